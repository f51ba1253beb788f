package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream down")

func fail(context.Context) error { return errUpstream }
func ok(context.Context) error   { return nil }

func TestClosedPassesThrough(t *testing.T) {
	b := New(3, time.Minute)
	ctx := context.Background()

	if err := b.Do(ctx, ok); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got := b.CurrentState(); got != Closed {
		t.Errorf("state = %v, want Closed", got)
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	b := New(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Do(ctx, fail); !errors.Is(err, errUpstream) {
			t.Fatalf("Do %d: %v", i, err)
		}
	}
	if got := b.CurrentState(); got != Open {
		t.Fatalf("state = %v, want Open", got)
	}

	// Further calls are rejected without reaching the upstream.
	called := false
	err := b.Do(ctx, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Do while open: %v, want ErrOpen", err)
	}
	if called {
		t.Error("upstream was called while the circuit was open")
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := New(2, time.Minute)
	ctx := context.Background()

	b.Do(ctx, fail)
	b.Do(ctx, ok)
	b.Do(ctx, fail)

	if got := b.CurrentState(); got != Closed {
		t.Errorf("state = %v, want Closed", got)
	}
}

func TestHalfOpenProbeRecovers(t *testing.T) {
	b := New(1, 10*time.Millisecond)
	ctx := context.Background()

	b.Do(ctx, fail)
	if got := b.CurrentState(); got != Open {
		t.Fatalf("state = %v, want Open", got)
	}

	time.Sleep(20 * time.Millisecond)

	if err := b.Do(ctx, ok); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if got := b.CurrentState(); got != Closed {
		t.Errorf("state after good probe = %v, want Closed", got)
	}
}

func TestHalfOpenProbeFailureReopens(t *testing.T) {
	b := New(1, 10*time.Millisecond)
	ctx := context.Background()

	b.Do(ctx, fail)
	time.Sleep(20 * time.Millisecond)

	if err := b.Do(ctx, fail); !errors.Is(err, errUpstream) {
		t.Fatalf("probe: %v", err)
	}
	if got := b.CurrentState(); got != Open {
		t.Errorf("state after failed probe = %v, want Open", got)
	}
}

func TestCancelledContextDoesNotTrip(t *testing.T) {
	b := New(1, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := b.Do(ctx, ok); !errors.Is(err, context.Canceled) {
		t.Fatalf("Do: %v, want context.Canceled", err)
	}
	if got := b.CurrentState(); got != Closed {
		t.Errorf("state = %v, want Closed", got)
	}
}
