// Package driver builds a storage.Adapter stack from configuration: a
// backend, optionally sealed, optionally wrapped in a resilience executor.
package driver

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonwraymond/graphcache/resilience"
	"github.com/jonwraymond/graphcache/storage"
	"github.com/jonwraymond/graphcache/storage/pgkv"
	"github.com/jonwraymond/graphcache/storage/s3kv"
	"github.com/jonwraymond/graphcache/storage/sqlitekv"
)

// Backend names accepted in Config.Driver.
const (
	Memory   = "memory"
	File     = "file"
	SQLite   = "sqlite"
	Postgres = "postgres"
	S3       = "s3"
)

// Config selects and configures a backend.
type Config struct {
	// Driver is one of memory, file, sqlite, postgres, s3. Default: memory
	Driver string

	FileRoot string
	SQLite   sqlitekv.Config
	Postgres pgkv.Config
	S3       s3kv.Config

	Seal       SealConfig
	Resilience ResilienceConfig
}

// SealConfig enables the Sealed decorator when Secret is set.
type SealConfig struct {
	Secret       string
	KeyID        string
	PreviousKeys map[string]string
}

// ResilienceConfig enables the Resilient decorator.
type ResilienceConfig struct {
	Enabled bool

	Timeout      time.Duration
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	MaxFailures int
	Cooldown    time.Duration

	// OnStateChange is forwarded to the circuit breaker.
	OnStateChange func(name string, from, to resilience.State)
	// OnRetry is forwarded to the retry policy.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Stack is an opened adapter chain.
type Stack struct {
	storage.Adapter

	// Name is the backend name.
	Name string

	// Breaker is the circuit breaker guarding the backend, or nil.
	Breaker *resilience.CircuitBreaker

	closer io.Closer
}

// Close releases backend resources.
func (s *Stack) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Open builds the backend named by cfg.Driver and applies the configured
// decorators, innermost first: backend, seal, resilience.
func Open(ctx context.Context, cfg Config) (*Stack, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if name == "" {
		name = Memory
	}

	base, err := openBackend(ctx, name, cfg)
	if err != nil {
		return nil, err
	}
	stack := &Stack{Adapter: base, Name: name}
	if c, ok := base.(io.Closer); ok {
		stack.closer = c
	}

	if cfg.Seal.Secret != "" {
		prev := make(map[string][]byte, len(cfg.Seal.PreviousKeys))
		for kid, secret := range cfg.Seal.PreviousKeys {
			prev[kid] = []byte(secret)
		}
		sealed, err := storage.NewSealed(stack.Adapter, storage.SealConfig{
			Secret:       []byte(cfg.Seal.Secret),
			KeyID:        cfg.Seal.KeyID,
			PreviousKeys: prev,
		})
		if err != nil {
			_ = stack.Close()
			return nil, err
		}
		stack.Adapter = sealed
	}

	if cfg.Resilience.Enabled {
		rc := cfg.Resilience
		breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:          name,
			MaxFailures:   rc.MaxFailures,
			Cooldown:      rc.Cooldown,
			IsFailure:     storage.IsTransient,
			OnStateChange: rc.OnStateChange,
		})
		opts := []resilience.ExecutorOption{
			resilience.WithCircuitBreaker(breaker),
			resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
				MaxAttempts:  rc.MaxAttempts,
				InitialDelay: rc.InitialDelay,
				MaxDelay:     rc.MaxDelay,
				Jitter:       true,
				RetryIf:      storage.IsTransient,
				OnRetry:      rc.OnRetry,
			})),
		}
		if rc.Timeout > 0 {
			opts = append(opts, resilience.WithTimeout(rc.Timeout))
		}
		stack.Adapter = storage.NewResilient(stack.Adapter, resilience.NewExecutor(opts...))
		stack.Breaker = breaker
	}
	return stack, nil
}

func openBackend(ctx context.Context, name string, cfg Config) (storage.Adapter, error) {
	switch name {
	case Memory:
		return storage.NewMemoryAdapter(), nil
	case File:
		return storage.NewFileAdapter(cfg.FileRoot)
	case SQLite:
		return sqlitekv.Open(ctx, cfg.SQLite)
	case Postgres:
		return pgkv.Open(ctx, cfg.Postgres)
	case S3:
		return s3kv.Open(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("driver: unknown storage driver %q", name)
	}
}
