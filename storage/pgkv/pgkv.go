// Package pgkv stores cache snapshots in a PostgreSQL table through the
// pgx database/sql driver.
package pgkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/jonwraymond/graphcache/storage"
)

const (
	driverName = "pgx"

	// DefaultDSN is used when Config.DSN is empty.
	DefaultDSN = "postgres://localhost/graphcache?sslmode=disable"

	// DefaultTable is the table used when Config.Table is empty.
	DefaultTable = "graphcache_kv"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex

	tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Config configures a Store.
type Config struct {
	// DSN is a postgres:// URL or key=value connection string.
	DSN string

	// Table holds the key-value rows. Default: graphcache_kv
	Table string

	// MaxOpenConns caps the pool. Default: 4
	MaxOpenConns int
}

// Store is a storage.Adapter backed by one Postgres table.
type Store struct {
	db    *sql.DB
	table string

	getSQL    string
	setSQL    string
	removeSQL string
}

// Open connects to Postgres and ensures the table exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = DefaultDSN
	}
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("pgkv: invalid table name %q", table)
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 4
	}

	openMu.Lock()
	db, err := sqlOpen(driverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("pgkv: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, storage.Unavailable("ping", "", err)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pgkv: ensure table %s: %w", table, err)
	}
	return &Store{
		db:        db,
		table:     table,
		getSQL:    fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, table),
		setSQL:    fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now()) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, table),
		removeSQL: fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, table),
	}, nil
}

// GetItem implements storage.Adapter.
func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.getSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storage.Unavailable(storage.OpGet, key, err)
	}
	return value, true, nil
}

// SetItem implements storage.Adapter.
func (s *Store) SetItem(ctx context.Context, key, data string) error {
	if _, err := s.db.ExecContext(ctx, s.setSQL, key, data); err != nil {
		return storage.Unavailable(storage.OpSet, key, err)
	}
	return nil
}

// RemoveItem implements storage.Adapter.
func (s *Store) RemoveItem(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.removeSQL, key); err != nil {
		return storage.Unavailable(storage.OpRemove, key, err)
	}
	return nil
}

// DB exposes the pool for integration tests.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the pool.
func (s *Store) Close() error { return s.db.Close() }

var _ storage.Adapter = (*Store)(nil)
