package resilience

import (
	"context"

	"golang.org/x/time/rate"
)

// LimiterOpts tunes a rate limiter.
type LimiterOpts struct {
	// Rate is the sustained rate in permits per second. Non-positive
	// means unlimited.
	Rate float64
	// Burst is the bucket size. Values below 1 are raised to 1 so a
	// fresh limiter always admits its first call.
	Burst int
}

// Limiter paces calls with a token bucket.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter builds a limiter whose bucket starts full.
func NewLimiter(opts LimiterOpts) *Limiter {
	lim := rate.Limit(opts.Rate)
	if opts.Rate <= 0 {
		lim = rate.Inf
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	return &Limiter{rl: rate.NewLimiter(lim, opts.Burst)}
}

// Allow takes a token if one is available and reports whether it did.
func (l *Limiter) Allow() bool {
	return l.rl.Allow()
}

// Wait blocks until a token is available or ctx ends.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.rl.Wait(ctx)
}
