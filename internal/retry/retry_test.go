package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	conflict := errors.New("constraint violation")
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return conflict
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	conflict := errors.New("constraint violation")
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return conflict
	})
	if !errors.Is(err, conflict) {
		t.Fatalf("expected last failure verbatim, got %v", err)
	}
	if calls != 5 {
		t.Fatalf("expected 5 attempts, got %d", calls)
	}
}

func TestDoStopsOnTerminal(t *testing.T) {
	boom := errors.New("cannot delete last row")
	calls := 0
	err := fastPolicy().Do(context.Background(), func(context.Context) error {
		calls++
		return Terminal(boom)
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected terminal error unwrapped, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no retries for terminal error, got %d calls", calls)
	}
}

func TestDoRespectsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := Policy{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second}
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("conflict")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestBackoffCap(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	for attempt, want := range []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
	} {
		delay := p.BaseDelay << uint(attempt)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
		if delay != want {
			t.Fatalf("attempt %d: expected delay %v, got %v", attempt, want, delay)
		}
	}
}
