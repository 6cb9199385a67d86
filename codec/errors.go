package codec

import (
	"errors"
	"fmt"
)

// Sentinel errors for codec operations.
var (
	// ErrCorruptSnapshot indicates persisted data could not be decoded.
	ErrCorruptSnapshot = errors.New("codec: corrupt snapshot")

	// ErrSerialization indicates a value could not be encoded.
	ErrSerialization = errors.New("codec: serialization failed")
)

// CorruptSnapshotError describes why a snapshot could not be decoded.
type CorruptSnapshotError struct {
	// Path is the location in the tree where decoding failed.
	Path string
	// Reason is a short description of the problem.
	Reason string
	// Err is the underlying error, if any.
	Err error
}

func (e *CorruptSnapshotError) Error() string {
	msg := "codec: corrupt snapshot"
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CorruptSnapshotError) Unwrap() error { return e.Err }

// Is reports whether target is ErrCorruptSnapshot.
func (e *CorruptSnapshotError) Is(target error) bool {
	return target == ErrCorruptSnapshot
}

// SerializationError describes a value that could not be encoded.
type SerializationError struct {
	Path string
	Type string
	Err  error
}

func (e *SerializationError) Error() string {
	msg := "codec: serialization failed"
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Type != "" {
		msg += fmt.Sprintf(": unsupported type %s", e.Type)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SerializationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrSerialization.
func (e *SerializationError) Is(target error) bool {
	return target == ErrSerialization
}

func corrupt(path, reason string) error {
	return &CorruptSnapshotError{Path: path, Reason: reason}
}
