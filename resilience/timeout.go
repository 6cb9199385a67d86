package resilience

import (
	"context"
	"errors"
	"time"
)

// Timeout bounds how long a single call may run.
type Timeout struct {
	d time.Duration
}

// NewTimeout returns a Timeout of d. Non-positive d defaults to 10s.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = 10 * time.Second
	}
	return &Timeout{d: d}
}

// Duration returns the configured deadline.
func (t *Timeout) Duration() time.Duration { return t.d }

// Execute runs op with a derived deadline and returns ErrTimeout if the
// deadline passes first. op keeps running in the background until it
// observes ctx; its result is then discarded.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	select {
	case err := <-done:
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return ErrTimeout
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// ExecuteWait runs op in the caller's goroutine with a derived deadline and
// returns only after op does. A failure after the deadline passed becomes
// ErrTimeout; a success is reported as such even when late. Use it for
// writes whose completion order matters: no call outlives ExecuteWait.
func (t *Timeout) ExecuteWait(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	err := op(ctx)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
