package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWTAuthenticator_Authenticate(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{Secret: []byte("s3cret"), Issuer: "graphcache", Audience: "ops"})
	valid, err := a.Sign("alice", []string{"operator"}, time.Minute)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	expired, err := a.Sign("alice", nil, -time.Minute)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	otherKey, err := NewJWTAuthenticator(JWTConfig{Secret: []byte("other"), Issuer: "graphcache", Audience: "ops"}).
		Sign("mallory", []string{"operator"}, time.Minute)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	wrongIssuer, err := NewJWTAuthenticator(JWTConfig{Secret: []byte("s3cret"), Issuer: "elsewhere", Audience: "ops"}).
		Sign("alice", nil, time.Minute)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "eve"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString(none) error = %v", err)
	}

	tests := []struct {
		name    string
		auth    string
		wantErr error
	}{
		{name: "valid", auth: "Bearer " + valid},
		{name: "no header", wantErr: ErrMissingCredentials},
		{name: "basic scheme", auth: "Basic abc", wantErr: ErrMissingCredentials},
		{name: "empty bearer", auth: "Bearer  ", wantErr: ErrMissingCredentials},
		{name: "expired", auth: "Bearer " + expired, wantErr: ErrTokenExpired},
		{name: "garbage", auth: "Bearer not.a.jwt", wantErr: ErrTokenMalformed},
		{name: "wrong key", auth: "Bearer " + otherKey, wantErr: ErrInvalidCredentials},
		{name: "wrong issuer", auth: "Bearer " + wrongIssuer, wantErr: ErrInvalidCredentials},
		{name: "alg none", auth: "Bearer " + none, wantErr: ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/metrics", nil)
			if tt.auth != "" {
				r.Header.Set("Authorization", tt.auth)
			}
			id, err := a.Authenticate(context.Background(), r)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if id.Principal != "alice" || !id.HasRole("operator") || id.Method != MethodJWT {
				t.Errorf("Authenticate() = %+v", id)
			}
			if id.ExpiresAt.IsZero() {
				t.Error("ExpiresAt is zero, want exp claim")
			}
		})
	}
}
