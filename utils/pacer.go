package utils

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out browser navigations so consecutive queries are at least
// the configured interval apart.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a Pacer allowing one query per rateLimitMs milliseconds.
// A non-positive interval disables pacing.
func NewPacer(rateLimitMs int) *Pacer {
	if rateLimitMs <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	interval := time.Duration(rateLimitMs) * time.Millisecond
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next query may start or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
