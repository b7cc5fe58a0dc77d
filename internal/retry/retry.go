// Package retry wraps writes that can lose a race on a uniqueness
// constraint. The bounded retry loop is the application's concurrency
// control: a rejected write means a concurrent writer won, and the loser
// re-runs its attempt against fresh state.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy bounds the attempts and the backoff between them.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Default matches the production policy: 5 attempts, exponential backoff
// starting at 100ms and capped at 1s.
var Default = Policy{
	MaxAttempts: 5,
	BaseDelay:   100 * time.Millisecond,
	MaxDelay:    time.Second,
}

type terminalError struct {
	err error
}

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// Terminal marks an error as not retryable: validation failures and failed
// compensations must surface immediately, not after four more attempts.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}

// IsTerminal reports whether err carries the Terminal marker.
func IsTerminal(err error) bool {
	var t *terminalError
	return errors.As(err, &t)
}

// Do runs op until it succeeds, returns a terminal error, or the attempt
// budget is spent. Constraint conflicts and unexpected failures are both
// retried; the last failure is returned verbatim (unwrapped from the
// terminal marker if it carried one).
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		var t *terminalError
		if errors.As(err, &t) {
			return t.err
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}
		if err := p.sleep(ctx, attempt); err != nil {
			return err
		}
	}
	return lastErr
}

func (p Policy) sleep(ctx context.Context, attempt int) error {
	delay := p.BaseDelay << uint(attempt)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
