package cache

import (
	"errors"
	"strings"
)

// DefaultCacheKey is the storage key used when Options.CacheKey is empty.
const DefaultCacheKey = "__RelayCacheManager__"

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	// ErrNilCache is returned when an operation is called on a nil GraphCache.
	ErrNilCache = errors.New("cache: cache is nil")

	// ErrInvalidKey is returned when a cache key is empty, blank, or contains
	// line breaks.
	ErrInvalidKey = errors.New("cache: key is invalid")

	// ErrKeyTooLong is returned when a cache key exceeds MaxKeyLength.
	ErrKeyTooLong = errors.New("cache: key exceeds max length")

	// ErrNotFound is returned by ReadNodeOrLoad when the loader has no record.
	ErrNotFound = errors.New("cache: node not found")
)

// ValidateKey checks if a cache key is valid.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
