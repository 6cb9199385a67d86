package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jonwraymond/graphcache/codec"
)

// DefaultSealIssuer is the iss claim written when SealConfig.Issuer is empty.
const DefaultSealIssuer = "graphcache"

// ErrNoSealKey is returned by NewSealed without a signing secret.
var ErrNoSealKey = errors.New("storage: seal secret is required")

// SealConfig configures Sealed.
type SealConfig struct {
	// Secret signs new blobs. Required.
	Secret []byte

	// KeyID is written to the kid header so secrets can be rotated.
	KeyID string

	// PreviousKeys verifies blobs signed before a rotation, by kid.
	PreviousKeys map[string][]byte

	// Issuer is written and checked as the iss claim.
	// Default: "graphcache"
	Issuer string

	// Now overrides the clock for iat. Default: time.Now
	Now func() time.Time
}

// sealClaims carries a blob and binds it to its storage key via sub.
type sealClaims struct {
	Snapshot string `json:"snap"`
	jwt.RegisteredClaims
}

// Sealed stores blobs as HS256-signed JWS tokens. A blob that fails
// verification, was signed for another key, or is not a token at all is
// reported as a codec.CorruptSnapshotError.
type Sealed struct {
	inner  Adapter
	config SealConfig
	parser *jwt.Parser
}

// NewSealed decorates inner.
func NewSealed(inner Adapter, config SealConfig) (*Sealed, error) {
	if len(config.Secret) == 0 {
		return nil, ErrNoSealKey
	}
	if config.Issuer == "" {
		config.Issuer = DefaultSealIssuer
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(config.Issuer),
	)
	return &Sealed{inner: inner, config: config, parser: parser}, nil
}

// Unwrap returns the decorated adapter.
func (s *Sealed) Unwrap() Adapter { return s.inner }

// GetItem returns the verified blob stored under key.
func (s *Sealed) GetItem(ctx context.Context, key string) (string, bool, error) {
	raw, ok, err := s.inner.GetItem(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	snap, err := s.open(key, raw)
	if err != nil {
		return "", false, err
	}
	return snap, true, nil
}

// SetItem signs data and stores the token under key.
func (s *Sealed) SetItem(ctx context.Context, key, data string) error {
	token, err := s.seal(key, data)
	if err != nil {
		return Unavailable(OpSet, key, err)
	}
	return s.inner.SetItem(ctx, key, token)
}

// RemoveItem implements Adapter.
func (s *Sealed) RemoveItem(ctx context.Context, key string) error {
	return s.inner.RemoveItem(ctx, key)
}

// Close closes the inner adapter if it holds resources.
func (s *Sealed) Close() error {
	if c, ok := s.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Sealed) seal(key, data string) (string, error) {
	claims := sealClaims{
		Snapshot: data,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.config.Issuer,
			Subject:  key,
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(s.config.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if s.config.KeyID != "" {
		token.Header["kid"] = s.config.KeyID
	}
	return token.SignedString(s.config.Secret)
}

func (s *Sealed) open(key, raw string) (string, error) {
	var claims sealClaims
	_, err := s.parser.ParseWithClaims(raw, &claims, s.keyFor)
	if err != nil {
		return "", &codec.CorruptSnapshotError{Path: codec.RootPath, Reason: "seal verification failed", Err: err}
	}
	if claims.Subject != key {
		return "", &codec.CorruptSnapshotError{
			Path:   codec.RootPath,
			Reason: fmt.Sprintf("sealed for key %q", claims.Subject),
		}
	}
	return claims.Snapshot, nil
}

func (s *Sealed) keyFor(token *jwt.Token) (any, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" || kid == s.config.KeyID {
		return s.config.Secret, nil
	}
	if key, ok := s.config.PreviousKeys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("unknown key id %q", kid)
}

var (
	_ Adapter   = (*Sealed)(nil)
	_ io.Closer = (*Sealed)(nil)
)
