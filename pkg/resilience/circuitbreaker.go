// Package resilience guards outbound dependencies: a circuit breaker
// for fail-fast behavior while a backend is down, and a token-bucket
// rate limiter for pacing work.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker's position in its closed/open/half-open cycle.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// BreakerOpts tunes the breaker. Zero fields take the defaults.
type BreakerOpts struct {
	// FailThreshold is the consecutive-failure count that trips the
	// breaker open.
	FailThreshold int
	// Timeout is how long a tripped breaker rejects calls before
	// letting probes through.
	Timeout time.Duration
	// HalfOpenMax caps concurrent probe calls in the half-open state.
	HalfOpenMax int
}

// DefaultBreakerOpts suits a remote embedding backend: trip after five
// straight failures, probe again after thirty seconds.
var DefaultBreakerOpts = BreakerOpts{
	FailThreshold: 5,
	Timeout:       30 * time.Second,
	HalfOpenMax:   1,
}

// Breaker is a consecutive-failure circuit breaker.
type Breaker struct {
	opts BreakerOpts

	mu       sync.Mutex
	state    State
	streak   int       // consecutive failures while closed
	reopenAt time.Time // when an open breaker starts probing
	probes   int       // probe calls admitted while half-open

	clock func() time.Time
}

// NewBreaker builds a breaker. Options left zero take the defaults.
func NewBreaker(opts BreakerOpts) *Breaker {
	merged := DefaultBreakerOpts
	if opts.FailThreshold > 0 {
		merged.FailThreshold = opts.FailThreshold
	}
	if opts.Timeout > 0 {
		merged.Timeout = opts.Timeout
	}
	if opts.HalfOpenMax > 0 {
		merged.HalfOpenMax = opts.HalfOpenMax
	}
	return &Breaker{opts: merged, clock: time.Now}
}

// Call runs f unless the breaker is rejecting. f's error feeds the
// breaker's bookkeeping and is returned as-is.
func (b *Breaker) Call(ctx context.Context, f func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := f(ctx)
	b.record(err)
	return err
}

// State reports the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

// stateLocked flips open to half-open once the reopen deadline passes.
func (b *Breaker) stateLocked() State {
	if b.state == StateOpen && !b.clock().Before(b.reopenAt) {
		b.state = StateHalfOpen
		b.probes = 0
	}
	return b.state
}

// admit decides whether a call may proceed.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.probes >= b.opts.HalfOpenMax {
			return ErrCircuitOpen
		}
		b.probes++
	}
	return nil
}

// record books the outcome of an admitted call.
func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state == StateHalfOpen {
			b.state = StateClosed
		}
		b.streak = 0
		return
	}

	b.streak++
	if b.state == StateHalfOpen || b.streak >= b.opts.FailThreshold {
		b.trip()
	}
}

// trip opens the breaker and schedules the next probe window.
func (b *Breaker) trip() {
	b.state = StateOpen
	b.reopenAt = b.clock().Add(b.opts.Timeout)
	b.streak = 0
	b.probes = 0
}
