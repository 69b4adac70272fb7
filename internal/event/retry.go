package event

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures exponential backoff for a subscribed handler.
// It is a pure value; the dispatcher owns the actual waiting.
type RetryPolicy struct {
	MaxRetries        int
	BaseDelay         time.Duration
	BackoffMultiplier float64
	Jitter            bool
}

// DefaultRetryPolicy mirrors the configuration defaults: three retries,
// one second base delay, doubling, with jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		BaseDelay:         time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// Delay returns the backoff before retry attempt n (1-based). Attempt 0 means
// no retry has happened yet, so the delay is zero. With jitter enabled the
// computed delay is scaled by a uniform factor in [0.8, 1.2].
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	d := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-1))
	if p.Jitter {
		d *= 0.8 + 0.4*rand.Float64()
	}
	return time.Duration(d)
}
