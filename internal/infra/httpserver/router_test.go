package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appreviews "github.com/bryanwahyu/formc-review/internal/application/reviews"
	domai "github.com/bryanwahyu/formc-review/internal/domain/ai"
	"github.com/bryanwahyu/formc-review/internal/domain/checklist"
	"github.com/bryanwahyu/formc-review/internal/domain/compliance"
	domain "github.com/bryanwahyu/formc-review/internal/domain/reports"
	"github.com/bryanwahyu/formc-review/internal/middleware"
)

const reportID = "2f1d7c4e-8a55-4c1e-9c39-0c4f5a8f6b10"

type fakeReviewer struct {
	calls    int
	issuer   string
	fileName string
	body     []byte

	report  *domain.Report
	err     error
	list    []*domain.Report
	listErr error
	getErr  error
}

func (f *fakeReviewer) Review(_ context.Context, cmd appreviews.SubmitCommand) (*domain.Report, error) {
	f.calls++
	f.issuer = cmd.IssuerName
	f.fileName = cmd.FileName
	f.body, _ = io.ReadAll(cmd.Body)
	return f.report, f.err
}

func (f *fakeReviewer) Get(_ context.Context, id domain.ReportID) (*domain.Report, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &domain.Report{ID: id, Success: true, IssuerName: "Acme Corp"}, nil
}

func (f *fakeReviewer) List(context.Context, int, int) ([]*domain.Report, error) {
	return f.list, f.listErr
}

func newTestRouter(rev *fakeReviewer, mutate ...func(*Options)) http.Handler {
	opts := Options{
		Reviews:      rev,
		Catalog:      checklist.Default(),
		AIConfigured: true,
		Log:          zap.NewNop(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	return NewRouter(opts)
}

func uploadRequest(t *testing.T, path, issuer, fileName string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if issuer != "" {
		require.NoError(t, mw.WriteField("issuer_name", issuer))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

var pdfBytes = []byte("%PDF-1.7\nbody")

func TestHealthEndpoints(t *testing.T) {
	h := newTestRouter(&fakeReviewer{})

	for path, status := range map[string]string{"/": "ok", "/health": "healthy"} {
		rec := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[healthResponse](t, rec)
		assert.Equal(t, status, body.Status)
		assert.True(t, body.AIConfigured)
	}

	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/livez", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/readyz", nil)).Code)
}

func TestAnalyze_Success(t *testing.T) {
	rev := &fakeReviewer{report: &domain.Report{
		ID:          reportID,
		Success:     true,
		IssuerName:  "Acme Corp",
		TotalPages:  12,
		RawAnalysis: "NO ISSUES FOUND",
		Structured:  compliance.EmptyStructuredAnalysis(),
		ModelUsed:   "gpt-4o",
	}}
	h := newTestRouter(rev)

	for _, path := range []string{"/api/analyze", "/api/analyze-form-c"} {
		rec := serve(h, uploadRequest(t, path, "  Acme Corp ", "formc.pdf", pdfBytes))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, reportID, rec.Header().Get("X-Report-ID"))
		body := decode[map[string]any](t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Acme Corp", body["issuer_name"])
		assert.Equal(t, float64(12), body["total_pages"])
		assert.Equal(t, "gpt-4o", body["model_used"])
		assert.Contains(t, body, "error")
		assert.Equal(t, "", body["error"])
		structured := body["structured_analysis"].(map[string]any)
		assert.Equal(t, []any{}, structured["amendments"])
	}
	assert.Equal(t, 2, rev.calls)
	assert.Equal(t, "Acme Corp", rev.issuer)
	assert.Equal(t, "formc.pdf", rev.fileName)
	assert.Equal(t, pdfBytes, rev.body)
}

func TestAnalyze_RejectsBadInputWithoutReview(t *testing.T) {
	tests := []struct {
		name     string
		issuer   string
		fileName string
	}{
		{"missing issuer", "", "formc.pdf"},
		{"blank issuer", "   ", "formc.pdf"},
		{"missing file", "Acme Corp", ""},
		{"not a pdf name", "Acme Corp", "formc.docx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rev := &fakeReviewer{}
			rec := serve(newTestRouter(rev), uploadRequest(t, "/api/analyze", tt.issuer, tt.fileName, pdfBytes))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[middleware.ErrorBody](t, rec).Detail)
			assert.Zero(t, rev.calls)
		})
	}

	t.Run("not multipart", func(t *testing.T) {
		rev := &fakeReviewer{}
		req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"issuer_name":"Acme"}`))
		req.Header.Set("Content-Type", "application/json")
		assert.Equal(t, http.StatusBadRequest, serve(newTestRouter(rev), req).Code)
		assert.Zero(t, rev.calls)
	})
}

func TestAnalyze_UploadTooLarge(t *testing.T) {
	rev := &fakeReviewer{}
	h := newTestRouter(rev, func(o *Options) { o.MaxUploadBytes = 1024 })

	big := append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("x"), 4096)...)
	rec := serve(h, uploadRequest(t, "/api/analyze", "Acme Corp", "formc.pdf", big))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, rev.calls)
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	failed := func() *domain.Report {
		return &domain.Report{ID: reportID, IssuerName: "Acme Corp", Structured: compliance.EmptyStructuredAnalysis(), Error: "boom"}
	}
	tests := []struct {
		name   string
		report *domain.Report
		err    error
		status int
	}{
		{"extraction", nil, errors.Join(compliance.ErrExtraction, errors.New("encrypted")), http.StatusUnprocessableEntity},
		{"invalid input", nil, compliance.ErrInvalidInput, http.StatusBadRequest},
		{"too large", failed(), compliance.ErrDocumentTooLarge, http.StatusRequestEntityTooLarge},
		{"quota", failed(), compliance.External(domai.ErrQuotaExceeded), http.StatusTooManyRequests},
		{"timeout", failed(), compliance.External(domai.ErrTimeout), http.StatusBadGateway},
		{"external", failed(), compliance.External(errors.New("reset")), http.StatusBadGateway},
		{"unknown", nil, errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rev := &fakeReviewer{report: tt.report, err: tt.err}
			rec := serve(newTestRouter(rev), uploadRequest(t, "/api/analyze", "Acme Corp", "formc.pdf", pdfBytes))

			assert.Equal(t, tt.status, rec.Code)
			body := decode[map[string]any](t, rec)
			if tt.report != nil {
				assert.Equal(t, false, body["success"])
				assert.Equal(t, "boom", body["error"])
				assert.Contains(t, body, "model_used")
				assert.Equal(t, reportID, rec.Header().Get("X-Report-ID"))
			} else {
				assert.NotEmpty(t, body["detail"])
			}
		})
	}
}

func TestTestAnalysis(t *testing.T) {
	rec := serve(newTestRouter(&fakeReviewer{}), httptest.NewRequest(http.MethodPost, "/api/test-analysis", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[domain.Report](t, rec)
	assert.True(t, report.Success)
	assert.Equal(t, "Test Company Inc.", report.IssuerName)
	assert.Equal(t, 25, report.TotalPages)
	assert.Equal(t, "mock", report.ModelUsed)
	require.Len(t, report.Structured.Amendments, 1)
	assert.Equal(t, "Rule 201(a)", report.Structured.Amendments[0].Rule)
	assert.Equal(t, "Critical", report.Structured.Amendments[0].Severity)
	assert.NotNil(t, report.Structured.KeyPersonnel)
}

func TestChecklist(t *testing.T) {
	h := newTestRouter(&fakeReviewer{})
	catalog := checklist.Default()

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/checklist", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[checklistView](t, rec)
	assert.Equal(t, catalog.Version(), view.Version)
	assert.Len(t, view.Categories, len(catalog.Categories()))
	assert.NotEmpty(t, view.Categories[0].Title)
	assert.NotEmpty(t, view.Categories[0].Items)
	assert.NotEmpty(t, view.Disclosures)
	assert.Contains(t, view.Disclosures[0].Requirements, "Intermediary information (must be DealMaker Securities LLC)")

	h = newTestRouter(&fakeReviewer{}, func(o *Options) { o.Intermediary = "Example Portal LLC" })
	view = decode[checklistView](t, serve(h, httptest.NewRequest(http.MethodGet, "/api/checklist", nil)))
	assert.Contains(t, view.Disclosures[0].Requirements, "Intermediary information (must be Example Portal LLC)")
}

func TestChecklistItems(t *testing.T) {
	h := newTestRouter(&fakeReviewer{})

	type itemsResponse struct {
		Count int              `json:"count"`
		Items []checklist.Item `json:"items"`
	}
	get := func(query string) *httptest.ResponseRecorder {
		return serve(h, httptest.NewRequest(http.MethodGet, "/api/checklist/items"+query, nil))
	}

	all := decode[itemsResponse](t, get(""))
	assert.Equal(t, len(checklist.Default().Items()), all.Count)

	critical := decode[itemsResponse](t, get("?severity=critical"))
	require.NotZero(t, critical.Count)
	for _, it := range critical.Items {
		assert.Equal(t, checklist.SeverityCritical, it.Severity)
	}

	atLeastHigh := decode[itemsResponse](t, get("?min_severity=High"))
	assert.Greater(t, atLeastHigh.Count, critical.Count)
	for _, it := range atLeastHigh.Items {
		assert.True(t, it.Severity.AtLeast(checklist.SeverityHigh))
	}

	ownership := decode[itemsResponse](t, get("?rule=201(h)&severity=Critical"))
	require.NotZero(t, ownership.Count)
	for _, it := range ownership.Items {
		assert.Contains(t, it.Rule, "201(h)")
	}

	none := decode[itemsResponse](t, get("?rule=no-such-rule"))
	assert.Zero(t, none.Count)
	assert.NotNil(t, none.Items)

	assert.Equal(t, http.StatusBadRequest, get("?severity=urgent").Code)
	assert.Equal(t, http.StatusBadRequest, get("?min_severity=urgent").Code)
}

func TestReports(t *testing.T) {
	t.Run("history disabled", func(t *testing.T) {
		h := newTestRouter(&fakeReviewer{listErr: appreviews.ErrHistoryDisabled, getErr: appreviews.ErrHistoryDisabled})
		assert.Equal(t, http.StatusNotImplemented, serve(h, httptest.NewRequest(http.MethodGet, "/api/reports", nil)).Code)
		assert.Equal(t, http.StatusNotImplemented, serve(h, httptest.NewRequest(http.MethodGet, "/api/reports/"+reportID, nil)).Code)
	})

	t.Run("list", func(t *testing.T) {
		h := newTestRouter(&fakeReviewer{list: []*domain.Report{{ID: reportID, IssuerName: "Acme Corp"}}})
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/reports?page=0&page_size=500", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode[map[string]any](t, rec)
		assert.Equal(t, float64(1), body["page"])
		assert.Equal(t, float64(100), body["page_size"])
		assert.Len(t, body["reports"], 1)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		rec := serve(newTestRouter(&fakeReviewer{}), httptest.NewRequest(http.MethodGet, "/api/reports", nil))
		body := decode[map[string]any](t, rec)
		assert.Equal(t, []any{}, body["reports"])
	})

	t.Run("get", func(t *testing.T) {
		rec := serve(newTestRouter(&fakeReviewer{}), httptest.NewRequest(http.MethodGet, "/api/reports/"+reportID, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.ReportID(reportID), decode[domain.Report](t, rec).ID)
	})

	t.Run("not found", func(t *testing.T) {
		h := newTestRouter(&fakeReviewer{getErr: domain.ErrNotFound})
		assert.Equal(t, http.StatusNotFound, serve(h, httptest.NewRequest(http.MethodGet, "/api/reports/"+reportID, nil)).Code)
	})

	t.Run("bad id", func(t *testing.T) {
		rec := serve(newTestRouter(&fakeReviewer{}), httptest.NewRequest(http.MethodGet, "/api/reports/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthAndMetricsWiring(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := middleware.NewHTTPMetrics(reg)
	h := newTestRouter(&fakeReviewer{}, func(o *Options) {
		o.APIKeys = map[string]string{"reviewer": "secret-1"}
		o.Metrics = metrics
		o.Gatherer = reg
	})

	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, httptest.NewRequest(http.MethodGet, "/api/checklist", nil)).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/checklist", nil)
	req.Header.Set("Authorization", "Bearer secret-1")
	assert.Equal(t, http.StatusOK, serve(h, req).Code)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "formc_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(&fakeReviewer{}, func(o *Options) { o.CORSOrigins = []string{"http://localhost:5173"} })

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := serve(h, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
