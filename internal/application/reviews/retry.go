package reviews

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/bryanwahyu/formc-review/internal/domain/ai"
	"github.com/bryanwahyu/formc-review/internal/domain/compliance"
)

// RetryConfig controls how failed analyses are re-attempted. Only
// reasoning service failures that may succeed on a second try are retried.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	// A value of 1 means no retries.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	JitterFraction float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    1,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     30 * time.Second,
		JitterFraction: 0.25,
	}
}

// IsTransient reports whether err is worth another attempt. Rejected
// credentials and exhausted quota are not.
func IsTransient(err error) bool {
	if err == nil || !errors.Is(err, compliance.ErrExternalService) {
		return false
	}
	return !errors.Is(err, ai.ErrUnauthorized) && !errors.Is(err, ai.ErrQuotaExceeded)
}

func (c RetryConfig) backoff(attempt int) time.Duration {
	d := float64(c.InitialBackoff) * math.Pow(2, float64(attempt))
	if c.MaxBackoff > 0 && d > float64(c.MaxBackoff) {
		d = float64(c.MaxBackoff)
	}
	if c.JitterFraction > 0 {
		d += d * c.JitterFraction * (rand.Float64()*2 - 1)
	}
	return time.Duration(d)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
