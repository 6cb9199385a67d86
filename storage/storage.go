package storage

import (
	"context"
	"errors"
	"fmt"
)

// Adapter is a durable string key-value store.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: methods honor cancellation and deadlines where the backend
//     allows it.
//   - Errors: a missing key is reported as ok=false, never as an error.
//     Backend failures match ErrUnavailable.
//   - RemoveItem is idempotent.
type Adapter interface {
	// GetItem returns the value stored under key.
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)

	// SetItem stores data under key, replacing any previous value.
	SetItem(ctx context.Context, key, data string) error

	// RemoveItem deletes key. Removing a missing key succeeds.
	RemoveItem(ctx context.Context, key string) error
}

// Sentinel errors for storage operations.
var (
	// ErrUnavailable matches every backend failure.
	ErrUnavailable = errors.New("storage: backend unavailable")

	// ErrInvalidKey is returned by adapters that cannot map a key to a
	// backend location.
	ErrInvalidKey = errors.New("storage: invalid key")
)

// Operation names used in OpError.
const (
	OpGet    = "get"
	OpSet    = "set"
	OpRemove = "remove"
)

// OpError describes a failed adapter call.
type OpError struct {
	Op  string
	Key string
	Err error
}

// Error implements error.
func (e *OpError) Error() string {
	return fmt.Sprintf("storage: %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the backend error.
func (e *OpError) Unwrap() error { return e.Err }

// Is reports whether target is ErrUnavailable.
func (e *OpError) Is(target error) bool { return target == ErrUnavailable }

// Unavailable wraps a backend error as an *OpError. It returns err unchanged
// when err is nil or already an *OpError.
func Unavailable(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		return err
	}
	return &OpError{Op: op, Key: key, Err: err}
}
