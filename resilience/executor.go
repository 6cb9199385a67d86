package resilience

import (
	"context"
	"time"
)

// Executor composes a circuit breaker, retry and timeout around one call.
// Any of them may be absent.
type Executor struct {
	breaker *CircuitBreaker
	retry   *Retry
	timeout *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an Executor. With no options it calls op directly.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker guards calls with cb.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.breaker = cb }
}

// WithRetry retries failed calls with r.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithTimeout bounds each attempt to d.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(d) }
}

// CircuitBreaker returns the configured breaker, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker { return e.breaker }

// Execute runs op as breaker(retry(timeout(op))). The breaker sees one
// outcome per Execute call, after retries are exhausted, and each attempt
// gets its own deadline.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	return e.run(ctx, op, false)
}

// ExecuteOrdered is Execute, except that a timed-out attempt is waited for
// before the next attempt starts or ExecuteOrdered returns. Attempts never
// overlap and none completes after ExecuteOrdered has returned.
func (e *Executor) ExecuteOrdered(ctx context.Context, op func(context.Context) error) error {
	return e.run(ctx, op, true)
}

func (e *Executor) run(ctx context.Context, op func(context.Context) error, ordered bool) error {
	call := op
	if e.timeout != nil {
		inner := call
		if ordered {
			call = func(ctx context.Context) error { return e.timeout.ExecuteWait(ctx, inner) }
		} else {
			call = func(ctx context.Context) error { return e.timeout.Execute(ctx, inner) }
		}
	}
	if e.retry != nil {
		inner := call
		call = func(ctx context.Context) error { return e.retry.Execute(ctx, inner) }
	}
	if e.breaker != nil {
		inner := call
		call = func(ctx context.Context) error { return e.breaker.Execute(ctx, inner) }
	}
	return call(ctx)
}
