package storage

import (
	"context"
	"errors"
	"io"

	"github.com/jonwraymond/graphcache/resilience"
)

// IsTransient reports whether err is a backend failure worth retrying.
// Cancellation and invalid keys are not.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, ErrInvalidKey):
		return false
	case errors.Is(err, ErrUnavailable), errors.Is(err, resilience.ErrTimeout):
		return true
	default:
		return false
	}
}

// Resilient runs every call to an inner Adapter through a
// resilience.Executor. Timeouts and an open circuit surface as *OpError
// values, so callers only ever need to check ErrUnavailable.
//
// SetItem and RemoveItem return only after the inner call has returned,
// even on timeout, so an older write can never land after a newer one.
type Resilient struct {
	inner Adapter
	exec  *resilience.Executor
}

// NewResilient decorates inner with exec.
func NewResilient(inner Adapter, exec *resilience.Executor) *Resilient {
	if exec == nil {
		exec = resilience.NewExecutor()
	}
	return &Resilient{inner: inner, exec: exec}
}

// CircuitBreaker returns the executor's breaker, or nil.
func (r *Resilient) CircuitBreaker() *resilience.CircuitBreaker {
	return r.exec.CircuitBreaker()
}

// Unwrap returns the decorated adapter.
func (r *Resilient) Unwrap() Adapter { return r.inner }

// GetItem implements Adapter.
func (r *Resilient) GetItem(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := r.exec.Execute(ctx, func(ctx context.Context) error {
		var err error
		value, ok, err = r.inner.GetItem(ctx, key)
		return err
	})
	if err != nil {
		return "", false, r.wrap(OpGet, key, err)
	}
	return value, ok, nil
}

// SetItem implements Adapter.
func (r *Resilient) SetItem(ctx context.Context, key, data string) error {
	err := r.exec.ExecuteOrdered(ctx, func(ctx context.Context) error {
		return r.inner.SetItem(ctx, key, data)
	})
	return r.wrap(OpSet, key, err)
}

// RemoveItem implements Adapter.
func (r *Resilient) RemoveItem(ctx context.Context, key string) error {
	err := r.exec.ExecuteOrdered(ctx, func(ctx context.Context) error {
		return r.inner.RemoveItem(ctx, key)
	})
	return r.wrap(OpRemove, key, err)
}

// Close closes the inner adapter if it holds resources.
func (r *Resilient) Close() error {
	if c, ok := r.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (r *Resilient) wrap(op, key string, err error) error {
	if errors.Is(err, resilience.ErrTimeout) || errors.Is(err, resilience.ErrCircuitOpen) {
		return Unavailable(op, key, err)
	}
	return err
}

var (
	_ Adapter   = (*Resilient)(nil)
	_ io.Closer = (*Resilient)(nil)
)
