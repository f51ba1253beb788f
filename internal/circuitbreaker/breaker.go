package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	Closed   State = iota // normal operation, calls pass through
	Open                  // failing, calls are rejected immediately
	HalfOpen              // testing recovery, a single probe call is allowed
)

// ErrOpen is returned when the circuit is open and the call was not made.
var ErrOpen = errors.New("circuit breaker is open")

// Breaker guards an upstream dependency. It opens after maxFailures
// consecutive errors and, after resetTimeout, lets one probe call through;
// the probe's outcome decides whether the circuit closes again.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	maxFailures int
	resetAfter  time.Duration
	openedAt    time.Time
	probing     bool
}

// New creates a Breaker. maxFailures must be at least 1.
func New(maxFailures int, resetAfter time.Duration) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &Breaker{maxFailures: maxFailures, resetAfter: resetAfter}
}

// Do runs fn through the breaker. Context cancellation before the call counts
// as the caller's error, not an upstream failure, and does not trip the
// breaker.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.admit(); err != nil {
		return err
	}

	err := fn(ctx)
	b.record(err)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if time.Since(b.openedAt) < b.resetAfter {
			return ErrOpen
		}
		b.state = HalfOpen
		b.probing = true
		return nil
	case HalfOpen:
		// Only one probe in flight at a time.
		if b.probing {
			return ErrOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false

	if err != nil {
		b.failures++
		if b.state == HalfOpen || b.failures >= b.maxFailures {
			b.state = Open
			b.openedAt = time.Now()
		}
		return
	}

	b.failures = 0
	b.state = Closed
}

// CurrentState returns the breaker state at the time of the call.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
