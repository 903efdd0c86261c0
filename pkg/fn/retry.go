package fn

import (
	"context"
	"math/rand"
	"time"
)

// RetryOpts bounds a retry loop.
type RetryOpts struct {
	// MaxAttempts counts the first try too. Non-positive means a single
	// attempt.
	MaxAttempts int
	// InitialWait is the delay before the second attempt; it doubles
	// per attempt up to MaxWait.
	InitialWait time.Duration
	MaxWait     time.Duration
	// Jitter scales each delay by a random factor in [0.5, 1.5).
	Jitter bool
}

// Retry runs f until it succeeds, the attempt budget is spent, or ctx
// ends. The last attempt's result is returned; a context end during a
// backoff wait returns ctx.Err instead.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) Result[T]) Result[T] {
	wait := opts.InitialWait
	for attempt := 1; ; attempt++ {
		r := f(ctx)
		if r.err == nil || attempt >= opts.MaxAttempts {
			return r
		}

		delay := wait
		if opts.Jitter {
			delay = time.Duration(float64(delay) * (0.5 + rand.Float64()))
		}
		if delay > opts.MaxWait {
			delay = opts.MaxWait
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Err[T](ctx.Err())
		case <-timer.C:
		}

		if wait *= 2; wait > opts.MaxWait {
			wait = opts.MaxWait
		}
	}
}
