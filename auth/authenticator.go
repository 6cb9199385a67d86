package auth

import (
	"context"
	"errors"
	"net/http"
)

// Authenticator turns request credentials into an Identity.
//
// Authenticate returns ErrMissingCredentials when the request carries
// nothing it recognizes, and another auth error when the credentials it
// recognizes are wrong. Implementations must be safe for concurrent use.
type Authenticator interface {
	Name() string
	Authenticate(ctx context.Context, r *http.Request) (*Identity, error)
}

// Chain tries authenticators in order. The first one that recognizes the
// credentials decides the result.
type Chain []Authenticator

func (c Chain) Name() string { return "chain" }

func (c Chain) Authenticate(ctx context.Context, r *http.Request) (*Identity, error) {
	for _, a := range c {
		id, err := a.Authenticate(ctx, r)
		if errors.Is(err, ErrMissingCredentials) {
			continue
		}
		return id, err
	}
	return nil, ErrMissingCredentials
}
