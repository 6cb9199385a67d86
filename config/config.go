// Package config loads graphcache settings from defaults, an optional TOML
// file and GRAPHCACHE_* environment variables, in that order, then resolves
// ${VAR} references and secretref: values and validates the result.
package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/jonwraymond/graphcache/auth"
	"github.com/jonwraymond/graphcache/cache"
	"github.com/jonwraymond/graphcache/observe"
	"github.com/jonwraymond/graphcache/storage/driver"
	"github.com/jonwraymond/graphcache/storage/pgkv"
	"github.com/jonwraymond/graphcache/storage/s3kv"
	"github.com/jonwraymond/graphcache/storage/sqlitekv"
)

// EnvPrefix starts every environment variable read by Load.
const EnvPrefix = "GRAPHCACHE_"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the complete graphcache configuration.
type Config struct {
	ServiceName string `toml:"service_name" env:"SERVICE_NAME"`
	Version     string `toml:"version" env:"VERSION"`

	Cache   CacheConfig   `toml:"cache" envPrefix:"CACHE_"`
	Storage StorageConfig `toml:"storage" envPrefix:"STORAGE_"`
	Observe ObserveConfig `toml:"observe" envPrefix:"OBSERVE_"`
	Server  ServerConfig  `toml:"server" envPrefix:"SERVER_"`
}

// CacheConfig selects the snapshot key and persistence policy. When Key is
// empty and Namespace is set, the key is derived from Namespace and Scope.
type CacheConfig struct {
	Key       string            `toml:"key" env:"KEY"`
	Namespace string            `toml:"namespace" env:"NAMESPACE"`
	Scope     map[string]string `toml:"scope" env:"SCOPE"`
	Persist   string            `toml:"persist" env:"PERSIST"`
}

type StorageConfig struct {
	Driver     string           `toml:"driver" env:"DRIVER"`
	FileRoot   string           `toml:"file_root" env:"FILE_ROOT"`
	SQLite     SQLiteConfig     `toml:"sqlite" envPrefix:"SQLITE_"`
	Postgres   PostgresConfig   `toml:"postgres" envPrefix:"POSTGRES_"`
	S3         S3Config         `toml:"s3" envPrefix:"S3_"`
	Seal       SealConfig       `toml:"seal" envPrefix:"SEAL_"`
	Resilience ResilienceConfig `toml:"resilience" envPrefix:"RESILIENCE_"`
}

type SQLiteConfig struct {
	Path  string `toml:"path" env:"PATH"`
	Table string `toml:"table" env:"TABLE"`
}

type PostgresConfig struct {
	DSN          string `toml:"dsn" env:"DSN"`
	Table        string `toml:"table" env:"TABLE"`
	MaxOpenConns int    `toml:"max_open_conns" env:"MAX_OPEN_CONNS"`
}

type S3Config struct {
	Bucket          string `toml:"bucket" env:"BUCKET"`
	Prefix          string `toml:"prefix" env:"PREFIX"`
	Region          string `toml:"region" env:"REGION"`
	Endpoint        string `toml:"endpoint" env:"ENDPOINT"`
	PathStyle       bool   `toml:"path_style" env:"PATH_STYLE"`
	AccessKeyID     string `toml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `toml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
	SessionToken    string `toml:"session_token" env:"SESSION_TOKEN"`
}

// SealConfig signs snapshots when Secret is set. PreviousKeys maps retired
// key ids to their secrets so old snapshots still verify.
type SealConfig struct {
	Secret       string            `toml:"secret" env:"SECRET"`
	KeyID        string            `toml:"key_id" env:"KEY_ID"`
	PreviousKeys map[string]string `toml:"previous_keys" env:"PREVIOUS_KEYS"`
}

type ResilienceConfig struct {
	Enabled      bool          `toml:"enabled" env:"ENABLED"`
	Timeout      time.Duration `toml:"timeout" env:"TIMEOUT"`
	MaxAttempts  int           `toml:"max_attempts" env:"MAX_ATTEMPTS"`
	InitialDelay time.Duration `toml:"initial_delay" env:"INITIAL_DELAY"`
	MaxDelay     time.Duration `toml:"max_delay" env:"MAX_DELAY"`
	MaxFailures  int           `toml:"max_failures" env:"MAX_FAILURES"`
	Cooldown     time.Duration `toml:"cooldown" env:"COOLDOWN"`
}

type ObserveConfig struct {
	Tracing struct {
		Enabled   bool    `toml:"enabled" env:"ENABLED"`
		Exporter  string  `toml:"exporter" env:"EXPORTER"`
		SamplePct float64 `toml:"sample_pct" env:"SAMPLE_PCT"`
	} `toml:"tracing" envPrefix:"TRACING_"`
	Metrics struct {
		Enabled  bool   `toml:"enabled" env:"ENABLED"`
		Exporter string `toml:"exporter" env:"EXPORTER"`
	} `toml:"metrics" envPrefix:"METRICS_"`
	Logging struct {
		Enabled bool   `toml:"enabled" env:"ENABLED"`
		Level   string `toml:"level" env:"LEVEL"`
	} `toml:"logging" envPrefix:"LOGGING_"`
}

// ServerConfig configures graphcachectl serve.
type ServerConfig struct {
	Addr            string        `toml:"addr" env:"ADDR"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	Auth            AuthConfig    `toml:"auth" envPrefix:"AUTH_"`
}

// AuthConfig guards the detailed health and metrics endpoints. Auth is on
// when any API key or a JWT secret is set. APIKeys maps principal to key.
type AuthConfig struct {
	APIKeys     map[string]string `toml:"api_keys" env:"API_KEYS"`
	JWTSecret   string            `toml:"jwt_secret" env:"JWT_SECRET"`
	JWTIssuer   string            `toml:"jwt_issuer" env:"JWT_ISSUER"`
	JWTAudience string            `toml:"jwt_audience" env:"JWT_AUDIENCE"`
	Role        string            `toml:"role" env:"ROLE"`
}

// Enabled reports whether any credential is configured.
func (a AuthConfig) Enabled() bool {
	return len(a.APIKeys) > 0 || a.JWTSecret != ""
}

// Default returns the built-in configuration: an in-memory store, the
// default cache key, logging at info and no exporters.
func Default() *Config {
	cfg := &Config{
		ServiceName: "graphcache",
		Version:     "dev",
		Cache:       CacheConfig{Persist: cache.PersistOnFieldWrite.String()},
		Storage: StorageConfig{
			Driver:   driver.Memory,
			FileRoot: "./graphcache-data",
			SQLite:   SQLiteConfig{Path: "graphcache.db", Table: sqlitekv.DefaultTable},
			Postgres: PostgresConfig{Table: pgkv.DefaultTable, MaxOpenConns: 4},
			S3:       S3Config{Region: "us-east-1"},
			Resilience: ResilienceConfig{
				Timeout:      10 * time.Second,
				MaxAttempts:  3,
				InitialDelay: 50 * time.Millisecond,
				MaxDelay:     5 * time.Second,
				MaxFailures:  5,
				Cooldown:     15 * time.Second,
			},
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			Auth:            AuthConfig{Role: "operator"},
		},
	}
	cfg.Observe.Tracing.Exporter = "none"
	cfg.Observe.Tracing.SamplePct = 1.0
	cfg.Observe.Metrics.Exporter = "none"
	cfg.Observe.Logging.Enabled = true
	cfg.Observe.Logging.Level = "info"
	return cfg
}

// Load builds a Config. path may be empty to skip the file. Secrets in
// file-relative secretref:file: references are read from the file's
// directory.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := Default()
	dir := ""

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalid, path, strings.Join(keys, ", "))
		}
		dir = filepath.Dir(path)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))

	resolver := NewResolver(EnvProvider{}, FileProvider{Dir: dir})
	if err := cfg.resolve(ctx, resolver); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolve expands every string that may carry a path, credential or key.
func (c *Config) resolve(ctx context.Context, r *Resolver) error {
	fields := map[string]*string{
		"cache.key":                    &c.Cache.Key,
		"storage.file_root":            &c.Storage.FileRoot,
		"storage.sqlite.path":          &c.Storage.SQLite.Path,
		"storage.postgres.dsn":         &c.Storage.Postgres.DSN,
		"storage.s3.endpoint":          &c.Storage.S3.Endpoint,
		"storage.s3.access_key_id":     &c.Storage.S3.AccessKeyID,
		"storage.s3.secret_access_key": &c.Storage.S3.SecretAccessKey,
		"storage.s3.session_token":     &c.Storage.S3.SessionToken,
		"storage.seal.secret":          &c.Storage.Seal.Secret,
		"server.auth.jwt_secret":       &c.Server.Auth.JWTSecret,
	}
	for name, p := range fields {
		v, err := r.Resolve(ctx, *p)
		if err != nil {
			return fmt.Errorf("config: resolve %s: %w", name, err)
		}
		*p = v
	}
	for kid, secret := range c.Storage.Seal.PreviousKeys {
		v, err := r.Resolve(ctx, secret)
		if err != nil {
			return fmt.Errorf("config: resolve storage.seal.previous_keys.%s: %w", kid, err)
		}
		c.Storage.Seal.PreviousKeys[kid] = v
	}
	for principal, key := range c.Server.Auth.APIKeys {
		v, err := r.Resolve(ctx, key)
		if err != nil {
			return fmt.Errorf("config: resolve server.auth.api_keys.%s: %w", principal, err)
		}
		c.Server.Auth.APIKeys[principal] = v
	}
	return nil
}

var drivers = []string{driver.Memory, driver.File, driver.SQLite, driver.Postgres, driver.S3}

// Validate reports the first invalid setting, wrapped in ErrInvalid.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}

	if _, err := cache.ParsePersistPolicy(c.Cache.Persist); err != nil {
		return invalid("cache.persist: %v", err)
	}
	if _, err := c.CacheKey(); err != nil {
		return invalid("cache key: %v", err)
	}

	s := c.Storage
	switch {
	case !slices.Contains(drivers, s.Driver):
		return invalid("storage.driver %q, want one of %v", s.Driver, drivers)
	case s.Driver == driver.SQLite && s.SQLite.Path == "":
		return invalid("storage.sqlite.path is required")
	case s.Driver == driver.Postgres && s.Postgres.DSN == "":
		return invalid("storage.postgres.dsn is required")
	case s.Driver == driver.S3 && s.S3.Bucket == "":
		return invalid("storage.s3.bucket is required")
	case s.Seal.Secret == "" && len(s.Seal.PreviousKeys) > 0:
		return invalid("storage.seal.previous_keys set without storage.seal.secret")
	}

	r := s.Resilience
	if r.Timeout < 0 || r.InitialDelay < 0 || r.MaxDelay < 0 || r.Cooldown < 0 {
		return invalid("storage.resilience durations must not be negative")
	}
	if r.MaxAttempts < 0 || r.MaxFailures < 0 {
		return invalid("storage.resilience counts must not be negative")
	}

	oc := c.ObserverConfig()
	if err := oc.Validate(); err != nil {
		return invalid("observe: %v", err)
	}
	if c.Server.Addr == "" {
		return invalid("server.addr is required")
	}
	for principal, key := range c.Server.Auth.APIKeys {
		if key == "" {
			return invalid("server.auth.api_keys.%s is empty", principal)
		}
	}
	if c.Server.Auth.Enabled() && c.Server.Auth.Role == "" {
		return invalid("server.auth.role is required when auth is enabled")
	}
	return nil
}

// CacheKey returns the snapshot key: Cache.Key when set, a key derived from
// Cache.Namespace and Cache.Scope when a namespace is set, otherwise
// cache.DefaultCacheKey.
func (c *Config) CacheKey() (string, error) {
	switch {
	case c.Cache.Key != "":
		return c.Cache.Key, cache.ValidateKey(c.Cache.Key)
	case c.Cache.Namespace != "":
		var scope any
		if len(c.Cache.Scope) > 0 {
			scope = c.Cache.Scope
		}
		return cache.NewDefaultKeyer().Key(c.Cache.Namespace, scope)
	default:
		return cache.DefaultCacheKey, nil
	}
}

// PersistPolicy returns the parsed Cache.Persist.
func (c *Config) PersistPolicy() (cache.PersistPolicy, error) {
	return cache.ParsePersistPolicy(c.Cache.Persist)
}

// DriverConfig maps the storage settings onto driver.Config.
func (c *Config) DriverConfig() driver.Config {
	s := c.Storage
	return driver.Config{
		Driver:   s.Driver,
		FileRoot: s.FileRoot,
		SQLite:   sqlitekv.Config{Path: s.SQLite.Path, Table: s.SQLite.Table},
		Postgres: pgkv.Config{DSN: s.Postgres.DSN, Table: s.Postgres.Table, MaxOpenConns: s.Postgres.MaxOpenConns},
		S3: s3kv.Config{
			Bucket:          s.S3.Bucket,
			Prefix:          s.S3.Prefix,
			Region:          s.S3.Region,
			Endpoint:        s.S3.Endpoint,
			PathStyle:       s.S3.PathStyle,
			AccessKeyID:     s.S3.AccessKeyID,
			SecretAccessKey: s.S3.SecretAccessKey,
			SessionToken:    s.S3.SessionToken,
		},
		Seal: driver.SealConfig{
			Secret:       s.Seal.Secret,
			KeyID:        s.Seal.KeyID,
			PreviousKeys: s.Seal.PreviousKeys,
		},
		Resilience: driver.ResilienceConfig{
			Enabled:      s.Resilience.Enabled,
			Timeout:      s.Resilience.Timeout,
			MaxAttempts:  s.Resilience.MaxAttempts,
			InitialDelay: s.Resilience.InitialDelay,
			MaxDelay:     s.Resilience.MaxDelay,
			MaxFailures:  s.Resilience.MaxFailures,
			Cooldown:     s.Resilience.Cooldown,
		},
	}
}

// Authenticator builds the serve endpoint authenticator from Server.Auth.
// It returns nil when auth is disabled.
func (c *Config) Authenticator() auth.Authenticator {
	a := c.Server.Auth
	if !a.Enabled() {
		return nil
	}
	var chain auth.Chain
	if len(a.APIKeys) > 0 {
		chain = append(chain, auth.NewAPIKeyAuthenticator("", a.APIKeys, a.Role))
	}
	if a.JWTSecret != "" {
		chain = append(chain, auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret:   []byte(a.JWTSecret),
			Issuer:   a.JWTIssuer,
			Audience: a.JWTAudience,
		}))
	}
	return chain
}

// ObserverConfig maps the observe settings onto observe.Config. The cache
// key and storage driver become resource attributes.
func (c *Config) ObserverConfig() observe.Config {
	o := c.Observe
	attrs := map[string]string{"graphcache.storage_driver": c.Storage.Driver}
	if key, err := c.CacheKey(); err == nil {
		attrs["graphcache.cache_key"] = key
	}
	return observe.Config{
		ServiceName: c.ServiceName,
		Version:     c.Version,
		Attributes:  attrs,
		Tracing: observe.TracingConfig{
			Enabled:   o.Tracing.Enabled,
			Exporter:  o.Tracing.Exporter,
			SamplePct: o.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.Metrics.Enabled,
			Exporter: o.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: o.Logging.Enabled,
			Level:   o.Logging.Level,
		},
	}
}
