// Package ratelimit paces outbound requests to third-party sources.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// defaultJitter is the fraction by which each wait is randomly stretched or shortened.
const defaultJitter = 0.20

// Limiter wraps a token-bucket rate limiter and adds jitter to wait intervals.
// A nil *Limiter never blocks.
type Limiter struct {
	inner  *rate.Limiter
	jitter float64
}

// New creates a Limiter with the given requests-per-second rate and burst
// capacity. It returns nil (no limiting) when rps <= 0.
func New(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return nil
	}
	return &Limiter{inner: rate.NewLimiter(rate.Limit(rps), max(burst, 1)), jitter: defaultJitter}
}

// Wait blocks until a token is available, adding ±20% random jitter to the
// wait. Returns ctx.Err() if the context is done before the token is granted;
// the reservation is then returned to the bucket.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	res := l.inner.Reserve()
	if !res.OK() {
		return ctx.Err()
	}

	delay := res.Delay()
	if delay <= 0 {
		return nil
	}

	jitter := time.Duration(float64(delay) * l.jitter * (rand.Float64()*2 - 1)) //nolint:gosec // non-cryptographic random is fine for jitter
	delay = max(0, delay+jitter)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		res.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
