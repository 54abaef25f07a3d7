package ai

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for formc_analyses_total.
const (
	OutcomeSuccess        = "success"
	OutcomeInvalidInput   = "invalid_input"
	OutcomeTooLarge       = "too_large"
	OutcomeExternalFailed = "external_error"
)

// Metrics tracks analysis outcomes and reasoning call latency. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Analyses  *prometheus.CounterVec
	Duration  prometheus.Histogram
	Truncated prometheus.Counter
}

// NewMetrics registers the engine metrics with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Analyses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "formc_analyses_total",
			Help: "Total number of analyses by outcome",
		}, []string{"outcome"}),
		Duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "formc_analysis_duration_seconds",
			Help:    "Duration of reasoning service calls",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 90, 120, 180, 300},
		}),
		Truncated: f.NewCounter(prometheus.CounterOpts{
			Name: "formc_documents_truncated_total",
			Help: "Documents cut to the character budget before analysis",
		}),
	}
}

func (m *Metrics) IncrementOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Analyses.WithLabelValues(outcome).Inc()
}

// ObserveCall records the duration of one reasoning call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCall(start time.Time) {
	if m == nil {
		return
	}
	m.Duration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementTruncated() {
	if m == nil {
		return
	}
	m.Truncated.Inc()
}
