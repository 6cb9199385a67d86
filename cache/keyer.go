package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Keyer derives storage keys for caches that must not share a snapshot,
// such as one cache per signed-in user or per API endpoint.
//
// Contract:
// - Determinism: same inputs must produce same key, regardless of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(namespace string, scope any) (string, error)
}

// DefaultKeyer hashes the scope with SHA-256.
type DefaultKeyer struct {
	// Prefix starts every key. Default: "graphcache"
	Prefix string
}

// NewDefaultKeyer creates a DefaultKeyer with the default prefix.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{Prefix: "graphcache"}
}

// Key returns <prefix>:<namespace>:<hash>, where hash is the first 16 hex
// characters of SHA-256 over the scope's JSON form. encoding/json sorts map
// keys, so equal scopes always hash alike.
func (k *DefaultKeyer) Key(namespace string, scope any) (string, error) {
	if strings.ContainsAny(namespace, ":\n\r") || strings.TrimSpace(namespace) == "" {
		return "", fmt.Errorf("%w: namespace %q", ErrInvalidKey, namespace)
	}
	canonical, err := json.Marshal(scope)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize scope: %w", err)
	}
	sum := sha256.Sum256(canonical)

	prefix := k.Prefix
	if prefix == "" {
		prefix = "graphcache"
	}
	key := prefix + ":" + namespace + ":" + hex.EncodeToString(sum[:8])
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

var _ Keyer = (*DefaultKeyer)(nil)
