package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"
)

// DefaultAPIKeyHeader carries the API key.
const DefaultAPIKeyHeader = "X-API-Key"

// APIKeyAuthenticator accepts a fixed set of API keys. Every key maps to
// one principal; all keys share the same roles.
type APIKeyAuthenticator struct {
	header string
	roles  []string
	keys   []apiKey
}

type apiKey struct {
	principal string
	hash      [sha256.Size]byte
}

// NewAPIKeyAuthenticator creates an authenticator for keys, a map from
// principal to key. Empty keys are ignored. header defaults to
// DefaultAPIKeyHeader.
func NewAPIKeyAuthenticator(header string, keys map[string]string, roles ...string) *APIKeyAuthenticator {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	a := &APIKeyAuthenticator{header: header, roles: roles}
	for principal, key := range keys {
		if key == "" {
			continue
		}
		a.keys = append(a.keys, apiKey{principal: principal, hash: sha256.Sum256([]byte(key))})
	}
	slices.SortFunc(a.keys, func(x, y apiKey) int { return strings.Compare(x.principal, y.principal) })
	return a
}

func (a *APIKeyAuthenticator) Name() string { return "api_key" }

func (a *APIKeyAuthenticator) Authenticate(_ context.Context, r *http.Request) (*Identity, error) {
	key := strings.TrimSpace(r.Header.Get(a.header))
	if key == "" {
		return nil, ErrMissingCredentials
	}
	sum := sha256.Sum256([]byte(key))

	// Compare against every key so timing does not reveal which one matched.
	match := ""
	for _, k := range a.keys {
		if subtle.ConstantTimeCompare(sum[:], k.hash[:]) == 1 {
			match = k.principal
		}
	}
	if match == "" {
		return nil, ErrInvalidCredentials
	}
	return &Identity{
		Principal: match,
		Roles:     slices.Clone(a.roles),
		Method:    MethodAPIKey,
	}, nil
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)
