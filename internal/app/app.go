// Package app wires configuration into the review pipeline and HTTP server.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	appai "github.com/bryanwahyu/formc-review/internal/application/ai"
	appreviews "github.com/bryanwahyu/formc-review/internal/application/reviews"
	"github.com/bryanwahyu/formc-review/internal/config"
	"github.com/bryanwahyu/formc-review/internal/domain/checklist"
	"github.com/bryanwahyu/formc-review/internal/domain/compliance"
	domain "github.com/bryanwahyu/formc-review/internal/domain/reports"
	infraai "github.com/bryanwahyu/formc-review/internal/infra/ai"
	"github.com/bryanwahyu/formc-review/internal/infra/ai/prompt"
	mysqlp "github.com/bryanwahyu/formc-review/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/formc-review/internal/infra/db/postgres"
	"github.com/bryanwahyu/formc-review/internal/infra/executor/docker"
	"github.com/bryanwahyu/formc-review/internal/infra/extractor/pdftotext"
	"github.com/bryanwahyu/formc-review/internal/infra/httpserver"
	"github.com/bryanwahyu/formc-review/internal/infra/storage"
	"github.com/bryanwahyu/formc-review/internal/middleware"
)

// App holds the wired services. Close releases the store connection.
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Catalog  *checklist.Catalog
	Registry *prometheus.Registry
	Reviews  *appreviews.Service

	readiness map[string]middleware.HealthChecker
	db        *sql.DB
}

// New validates cfg and builds every component it enables. The store and
// archive are connected only when configured.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.L()
	}

	catalog := checklist.Default()
	policy, err := prompt.ParseOversizePolicy(cfg.Analysis.OversizePolicy)
	if err != nil {
		return nil, err
	}
	composer := prompt.NewComposer(catalog,
		prompt.WithMaxChars(cfg.Analysis.MaxDocumentChars),
		prompt.WithIntermediary(cfg.Analysis.Intermediary),
		prompt.WithOversizePolicy(policy),
	)

	client, err := infraai.NewClient(cfg.AI.Provider, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine := appai.NewService(client, composer,
		appai.WithGeneration(cfg.AI.Generation()),
		appai.WithTimeout(cfg.AI.Timeout),
		appai.WithMetrics(appai.NewMetrics(reg)),
		appai.WithLogger(log.Named("analysis")),
	)

	extractor := pdftotext.New(cfg.Extractor.PdfToTextPath, log.Named("pdftotext"))
	if img := cfg.Extractor.DockerImage; img != "" {
		extractor.WithCommand(docker.NewRunner(img).Command)
		log.Info("extracting text in container", zap.String("image", img))
	}

	svc := appreviews.NewService(extractor, engine, cfg.Analysis.MaxConcurrent)
	svc.Log = log.Named("reviews")
	svc.TempDir = cfg.Extractor.TempDir
	svc.Retry.MaxAttempts = cfg.Analysis.MaxAttempts

	a := &App{
		Config:    cfg,
		Log:       log,
		Catalog:   catalog,
		Registry:  reg,
		Reviews:   svc,
		readiness: map[string]middleware.HealthChecker{},
	}

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	if err := a.openArchive(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	log.Info("app initialized",
		zap.String("provider", cfg.AI.Provider),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("archive", cfg.Archive.Enabled),
		zap.Int("max_concurrent", cfg.Analysis.MaxConcurrent),
	)
	return a, nil
}

type reportStore interface {
	domain.Repository
	EnsureSchema(ctx context.Context) error
}

func (a *App) openStore(ctx context.Context) error {
	var (
		db   *sql.DB
		repo reportStore
		err  error
	)
	switch strings.ToLower(a.Config.Store.Driver) {
	case "", "none":
		return nil
	case "mysql":
		if db, err = mysqlp.Connect(ctx, a.Config.Store.DSN); err != nil {
			return err
		}
		repo = mysqlp.NewReportRepository(db)
	case "postgres":
		if db, err = postgresp.Connect(ctx, a.Config.Store.DSN); err != nil {
			return err
		}
		repo = postgresp.NewReportRepository(db)
	default:
		return eris.Wrapf(compliance.ErrConfiguration, "unknown store driver %q", a.Config.Store.Driver)
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return err
	}
	a.db = db
	a.Reviews.Repo = repo
	a.readiness["store"] = middleware.PingChecker{Target: db}
	return nil
}

func (a *App) openArchive(ctx context.Context) error {
	if !a.Config.Archive.Enabled {
		return nil
	}
	m := a.Config.Archive.Minio
	store, err := storage.New(ctx, m.Endpoint, m.Region, m.Bucket, m.AccessKey, m.SecretKey, m.UseSSL)
	if err != nil {
		return err
	}
	a.Reviews.Archive = store
	a.readiness["archive"] = middleware.CheckFunc(store.Ping)
	return nil
}

// Handler builds the HTTP API. Idle rate limit buckets are swept until ctx
// is done.
func (a *App) Handler(ctx context.Context) http.Handler {
	s := a.Config.Server
	var limiter *middleware.RateLimiter
	if s.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(s.RateLimitRPS, s.RateLimitBurst)
		go limiter.RunCleanup(ctx, 5*time.Minute, 10*time.Minute)
	}

	return httpserver.NewRouter(httpserver.Options{
		Reviews:        a.Reviews,
		Catalog:        a.Catalog,
		Intermediary:   a.Config.Analysis.Intermediary,
		MaxUploadBytes: s.MaxUploadBytes(),
		AIConfigured:   strings.TrimSpace(a.Config.AI.APIKey) != "",
		CORSOrigins:    s.CORSOrigins,
		APIKeys:        s.APIKeys,
		RateLimiter:    limiter,
		Metrics:        middleware.NewHTTPMetrics(a.Registry),
		Gatherer:       a.Registry,
		Readiness:      a.readiness,
		Log:            a.Log.Named("http"),
	})
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func (a *App) Serve(ctx context.Context, shutdownTimeout time.Duration) error {
	addr := fmt.Sprintf(":%d", a.Config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(ctx),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      a.Config.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return eris.Wrap(err, "server listen")
		}
		return nil
	case <-ctx.Done():
	}

	a.Log.Info("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return nil
}

func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
