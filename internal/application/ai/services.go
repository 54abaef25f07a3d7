package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/formc-review/internal/domain/ai"
	"github.com/bryanwahyu/formc-review/internal/domain/compliance"
	"github.com/bryanwahyu/formc-review/internal/infra/ai/prompt"
)

const DefaultTimeout = 180 * time.Second

// Composer builds the request sent to the reasoning service.
type Composer interface {
	Compose(issuer, text string) (compliance.AnalysisRequest, error)
}

// Service runs one analysis per call: compose, a single reasoning call,
// then structure. It keeps no per-analysis state and is safe for concurrent use.
type Service struct {
	client    ai.Client
	composer  Composer
	structure func(string) compliance.StructuredAnalysis
	gen       ai.GenerationConfig
	timeout   time.Duration
	metrics   *Metrics
	log       *zap.Logger
}

type Option func(*Service)

func WithGeneration(cfg ai.GenerationConfig) Option {
	return func(s *Service) { s.gen = cfg }
}

// WithTimeout bounds each reasoning call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func NewService(client ai.Client, composer Composer, opts ...Option) *Service {
	s := &Service{
		client:    client,
		composer:  composer,
		structure: prompt.Structure,
		gen:       ai.DefaultGeneration(),
		timeout:   DefaultTimeout,
		log:       zap.L(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze never returns an error. Failures are reported through a result
// with Success false, Error set and Err holding the typed cause. Input that
// cannot be composed never reaches the reasoning service.
func (s *Service) Analyze(ctx context.Context, issuer, text string) compliance.AnalysisResult {
	log := s.log.With(zap.String("issuer", strings.TrimSpace(issuer)))

	req, err := s.composer.Compose(issuer, text)
	if err != nil {
		if errors.Is(err, compliance.ErrDocumentTooLarge) {
			s.metrics.IncrementOutcome(OutcomeTooLarge)
		} else {
			s.metrics.IncrementOutcome(OutcomeInvalidInput)
		}
		log.Warn("analysis rejected", zap.Error(err))
		return compliance.Failed(strings.TrimSpace(issuer), err)
	}
	if req.Truncated {
		s.metrics.IncrementTruncated()
		log.Warn("document truncated to character budget",
			zap.Int("original_chars", req.OriginalLength),
			zap.Int("kept_chars", len([]rune(req.DocumentText))),
		)
	}

	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	log.Info("analyzing form c", zap.Int("prompt_chars", len(req.Prompt)))
	start := time.Now()
	out, err := s.client.Generate(callCtx, req.Prompt, s.gen)
	s.metrics.ObserveCall(start)
	if err == nil && strings.TrimSpace(out.Text) == "" {
		err = ai.ErrEmptyResponse
	}
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ai.ErrTimeout) {
			err = fmt.Errorf("%w: %w", ai.ErrTimeout, err)
		}
		err = compliance.External(err)
		s.metrics.IncrementOutcome(OutcomeExternalFailed)
		log.Error("reasoning service failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		result := compliance.Failed(req.IssuerName, err)
		result.Truncated = req.Truncated
		return result
	}

	s.metrics.IncrementOutcome(OutcomeSuccess)
	log.Info("analysis complete", zap.String("model", out.Model), zap.Duration("elapsed", time.Since(start)))
	return compliance.AnalysisResult{
		Success:     true,
		IssuerName:  req.IssuerName,
		RawAnalysis: out.Text,
		Structured:  s.structure(out.Text),
		ModelUsed:   out.Model,
		Truncated:   req.Truncated,
	}
}
