package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appreviews "github.com/bryanwahyu/formc-review/internal/application/reviews"
	domai "github.com/bryanwahyu/formc-review/internal/domain/ai"
	"github.com/bryanwahyu/formc-review/internal/domain/checklist"
	"github.com/bryanwahyu/formc-review/internal/domain/compliance"
	domain "github.com/bryanwahyu/formc-review/internal/domain/reports"
	"github.com/bryanwahyu/formc-review/internal/middleware"
)

// multipart parts above this size spill to disk
const maxFormMemory = 8 << 20

var errUploadTooLarge = errors.New("upload exceeds size limit")

// Reviewer is the review use case as served over HTTP.
type Reviewer interface {
	Review(ctx context.Context, cmd appreviews.SubmitCommand) (*domain.Report, error)
	Get(ctx context.Context, id domain.ReportID) (*domain.Report, error)
	List(ctx context.Context, page, pageSize int) ([]*domain.Report, error)
}

type Options struct {
	Reviews        Reviewer
	Catalog        *checklist.Catalog
	Intermediary   string
	MaxUploadBytes int64
	AIConfigured   bool
	CORSOrigins    []string
	APIKeys        map[string]string
	RateLimiter    *middleware.RateLimiter
	Metrics        *middleware.HTTPMetrics
	// Gatherer backs /metrics; the route is not mounted when nil.
	Gatherer  prometheus.Gatherer
	Readiness map[string]middleware.HealthChecker
	Log       *zap.Logger
}

type Router struct {
	reviews      Reviewer
	catalog      *checklist.Catalog
	intermediary string
	maxUpload    int64
	aiConfigured bool
	log          *zap.Logger
}

func NewRouter(opts Options) http.Handler {
	if opts.Log == nil {
		opts.Log = zap.L()
	}
	if opts.Catalog == nil {
		opts.Catalog = checklist.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 25 << 20
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := &Router{
		reviews:      opts.Reviews,
		catalog:      opts.Catalog,
		intermediary: opts.Intermediary,
		maxUpload:    opts.MaxUploadBytes,
		aiConfigured: opts.AIConfigured,
		log:          opts.Log,
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(opts.Log))
	mux.Use(opts.Metrics.Middleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders: []string{"X-Report-ID", "X-Request-Id"},
		MaxAge:         300,
	}))
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	mux.Use(opts.RateLimiter.Middleware)

	mux.Get("/", r.handleRoot)
	mux.Get("/health", r.handleHealth)
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.ReadinessHandler(opts.Readiness))
	if opts.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.Route("/api", func(rt chi.Router) {
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Post("/analyze-form-c", r.wrap(r.handleAnalyze))
		rt.Post("/test-analysis", r.wrap(r.handleTestAnalysis))
		rt.Get("/checklist", r.wrap(r.handleChecklist))
		rt.Get("/checklist/items", r.wrap(r.handleChecklistItems))
		rt.Get("/reports", r.wrap(r.handleReportList))
		rt.Get("/reports/{id}", r.wrap(r.handleReportGet))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				r.log.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
			}
			middleware.WriteError(w, status, err.Error())
		}
	}
}

// statusFor maps error kinds to HTTP status codes. Order matters: quota
// errors also match ErrExternalService.
func statusFor(err error) int {
	switch {
	case errors.Is(err, compliance.ErrDocumentTooLarge), errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, compliance.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, compliance.ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, appreviews.ErrHistoryDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, domai.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, compliance.ErrExternalService):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

type healthResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	AIConfigured bool   `json:"ai_configured"`
}

// GET /
func (r *Router) handleRoot(w http.ResponseWriter, _ *http.Request) {
	_ = middleware.WriteJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		Message:      "Form C Review API is running",
		AIConfigured: r.aiConfigured,
	})
}

// GET /health
func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = middleware.WriteJSON(w, http.StatusOK, healthResponse{
		Status:       "healthy",
		Message:      "All services operational",
		AIConfigured: r.aiConfigured,
	})
}

// POST /api/analyze
// multipart form: file (PDF), issuer_name
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	if err := req.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return fmt.Errorf("%w: limit is %d bytes", errUploadTooLarge, r.maxUpload)
		}
		return fmt.Errorf("%w: malformed multipart form: %v", compliance.ErrInvalidInput, err)
	}
	defer req.MultipartForm.RemoveAll()

	issuer, err := middleware.ValidateIssuerName(req.FormValue("issuer_name"))
	if err != nil {
		return err
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		return fmt.Errorf("%w: file is required", compliance.ErrInvalidInput)
	}
	defer file.Close()
	if err := middleware.ValidatePDFFileName(header.Filename); err != nil {
		return err
	}

	r.log.Info("received Form C for analysis",
		zap.String("issuer", issuer),
		zap.String("file", header.Filename),
		zap.Int64("size", header.Size),
	)

	report, err := r.reviews.Review(req.Context(), appreviews.SubmitCommand{
		IssuerName: issuer,
		FileName:   header.Filename,
		Body:       file,
	})
	if report == nil {
		return err
	}

	if report.ID != "" {
		w.Header().Set("X-Report-ID", string(report.ID))
	}
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		r.log.Warn("analysis failed", zap.String("issuer", issuer), zap.Int("status", status), zap.Error(err))
	}
	return middleware.WriteJSON(w, status, report)
}

// GET /api/reports?page=&page_size=
func (r *Router) handleReportList(w http.ResponseWriter, req *http.Request) error {
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))
	page = middleware.ValidatePage(page)
	size = middleware.ValidateLimit(size)

	list, err := r.reviews.List(req.Context(), page, size)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.Report{}
	}
	return middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"page":      page,
		"page_size": size,
		"reports":   list,
	})
}

// GET /api/reports/{id}
func (r *Router) handleReportGet(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateReportID(id); err != nil {
		return err
	}
	report, err := r.reviews.Get(req.Context(), domain.ReportID(id))
	if err != nil {
		return err
	}
	return middleware.WriteJSON(w, http.StatusOK, report)
}
