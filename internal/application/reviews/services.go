package reviews

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/bryanwahyu/formc-review/internal/application"
	"github.com/bryanwahyu/formc-review/internal/domain/compliance"
	"github.com/bryanwahyu/formc-review/internal/domain/document"
	domain "github.com/bryanwahyu/formc-review/internal/domain/reports"
)

// ErrHistoryDisabled is returned by Get and List when no report store is
// configured.
var ErrHistoryDisabled = errors.New("report history is not configured")

// Analyzer is the analysis engine as seen by the pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, issuer, text string) compliance.AnalysisResult
}

// Service runs the review use case: stage the upload, extract, analyze,
// then archive and persist when those are configured. Safe for concurrent use.
type Service struct {
	Extractor document.Extractor
	Analyzer  Analyzer
	// Repo and Archive are optional.
	Repo    domain.Repository
	Archive domain.Archive
	Clock   application.Clock
	Log     *zap.Logger
	TempDir string
	Retry   RetryConfig

	sem *semaphore.Weighted
}

// NewService bounds concurrent analyses to maxConcurrent (at least one).
func NewService(extractor document.Extractor, analyzer Analyzer, maxConcurrent int) *Service {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Service{
		Extractor: extractor,
		Analyzer:  analyzer,
		Clock:     application.SystemClock{},
		Log:       zap.L(),
		Retry:     DefaultRetryConfig(),
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// SubmitCommand is one uploaded filing.
type SubmitCommand struct {
	IssuerName string
	FileName   string
	Body       io.Reader
}

// Review processes cmd. Invalid input and extraction failures return an
// error and no report; nothing is sent to the reasoning service for them.
// A failed analysis returns both the report (Success false) and its cause.
func (s *Service) Review(ctx context.Context, cmd SubmitCommand) (*domain.Report, error) {
	issuer := strings.TrimSpace(cmd.IssuerName)
	if issuer == "" {
		return nil, eris.Wrap(compliance.ErrInvalidInput, "issuer name is required")
	}
	if cmd.Body == nil {
		return nil, eris.Wrap(compliance.ErrInvalidInput, "file is required")
	}

	path, cleanup, err := s.stage(cmd.Body)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return s.ReviewFile(ctx, issuer, cmd.FileName, path)
}

// ReviewFile runs the pipeline on a PDF already on disk. The file is left in
// place.
func (s *Service) ReviewFile(ctx context.Context, issuer, fileName, path string) (*domain.Report, error) {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		return nil, eris.Wrap(compliance.ErrInvalidInput, "issuer name is required")
	}
	if fileName == "" {
		fileName = filepath.Base(path)
	}
	log := s.Log.With(zap.String("issuer", issuer), zap.String("file", fileName))

	doc := s.Extractor.Extract(ctx, path)
	if !doc.Success {
		log.Warn("extraction failed", zap.String("error", doc.Error))
		return nil, eris.Wrapf(compliance.ErrExtraction, "%s", doc.Error)
	}
	if strings.TrimSpace(doc.FullText) == "" {
		return nil, eris.Wrap(compliance.ErrExtraction, "document has no extractable text")
	}
	log.Info("document extracted", zap.Int("pages", doc.TotalPages), zap.Int("chars", len(doc.FullText)))

	result, err := s.analyze(ctx, issuer, doc.FullText)
	if err != nil {
		return nil, err
	}

	id := domain.ReportID(uuid.New().String())
	report := &domain.Report{
		ID:          id,
		Success:     result.Success,
		IssuerName:  result.IssuerName,
		FileName:    fileName,
		TotalPages:  doc.TotalPages,
		RawAnalysis: result.RawAnalysis,
		Structured:  result.Structured,
		ModelUsed:   result.ModelUsed,
		Truncated:   result.Truncated,
		Error:       result.Error,
		CreatedAt:   s.Clock.Now(),
	}

	if s.Archive != nil {
		key := fmt.Sprintf("formc/%s/%s", id, filepath.Base(fileName))
		url, err := s.Archive.Upload(ctx, path, key)
		if err != nil {
			log.Warn("archive upload failed", zap.Error(err))
		} else {
			report.ArchiveURL = url
		}
	}
	if s.Repo != nil {
		if err := s.Repo.Save(ctx, report); err != nil {
			log.Error("saving report failed", zap.String("report_id", string(id)), zap.Error(err))
		}
	}

	if !result.Success {
		return report, result.Err
	}
	return report, nil
}

// analyze holds an analysis slot only while the analyzer runs; backoff
// between attempts happens outside it.
func (s *Service) analyze(ctx context.Context, issuer, text string) (compliance.AnalysisResult, error) {
	attempts := s.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var result compliance.AnalysisResult
	for attempt := 0; attempt < attempts; attempt++ {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			if attempt > 0 {
				break
			}
			return result, eris.Wrap(err, "reviews: waiting for analysis slot")
		}
		result = s.Analyzer.Analyze(ctx, issuer, text)
		s.sem.Release(1)

		if result.Success || !IsTransient(result.Err) || attempt == attempts-1 {
			break
		}
		delay := s.Retry.backoff(attempt)
		s.Log.Warn("retrying analysis",
			zap.String("issuer", issuer),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(result.Err),
		)
		if err := sleep(ctx, delay); err != nil {
			break
		}
	}
	return result, nil
}

// stage copies the upload to a temp file after checking the PDF signature.
// The returned cleanup removes the file.
func (s *Service) stage(body io.Reader) (string, func(), error) {
	br := bufio.NewReader(body)
	head, _ := br.Peek(5)
	if !document.IsPDF(head) {
		return "", nil, eris.Wrap(compliance.ErrInvalidInput, "file is not a PDF")
	}

	f, err := os.CreateTemp(s.TempDir, "formc-*.pdf")
	if err != nil {
		return "", nil, eris.Wrap(err, "reviews: create temp file")
	}
	cleanup := func() {
		if err := os.Remove(f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.Log.Warn("failed to remove temp file", zap.String("path", f.Name()), zap.Error(err))
		}
	}
	if _, err := io.Copy(f, br); err != nil {
		f.Close()
		cleanup()
		return "", nil, eris.Wrap(err, "reviews: write upload")
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, eris.Wrap(err, "reviews: close upload")
	}
	return f.Name(), cleanup, nil
}

// Get returns one stored report.
func (s *Service) Get(ctx context.Context, id domain.ReportID) (*domain.Report, error) {
	if s.Repo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.Repo.Get(ctx, id)
}

// List returns a page of stored reports, newest first.
func (s *Service) List(ctx context.Context, page, pageSize int) ([]*domain.Report, error) {
	if s.Repo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.Repo.Paginate(ctx, page, pageSize)
}
