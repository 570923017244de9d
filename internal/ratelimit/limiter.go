package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles outbound quote requests across all workers.
// The zero configuration (requestsPerSecond <= 0) never blocks.
type Limiter struct {
	limiter *rate.Limiter
}

// New returns a limiter allowing requestsPerSecond with the given burst.
// A non-positive rate means unlimited.
func New(requestsPerSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Limiter{limiter: rate.NewLimiter(limit, burst)}
}

// Unlimited returns a limiter that never blocks.
func Unlimited() *Limiter {
	return New(0, 1)
}

// Wait blocks until a request may proceed.
// It returns an error if the context is canceled before the event can proceed
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Unbounded reports whether the limiter never blocks.
func (l *Limiter) Unbounded() bool {
	return l == nil || l.limiter.Limit() == rate.Inf
}
