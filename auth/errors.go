package auth

import "errors"

var (
	// ErrMissingCredentials means the request carried no credentials the
	// authenticator understands. Chain moves on to the next authenticator.
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")

	ErrForbidden = errors.New("auth: access denied")
)
