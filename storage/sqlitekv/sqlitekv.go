// Package sqlitekv stores cache snapshots in a SQLite database using the
// pure-Go modernc.org/sqlite driver.
package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/jonwraymond/graphcache/storage"
)

const (
	driverName = "sqlite"

	// DefaultTable is the table used when Config.Table is empty.
	DefaultTable = "graphcache_kv"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config configures a Store.
type Config struct {
	// Path is the database file. ":memory:" opens a private in-memory
	// database.
	Path string

	// Table holds the key-value rows. Default: graphcache_kv
	Table string
}

// Store is a storage.Adapter backed by one SQLite table.
type Store struct {
	db    *sql.DB
	table string

	getSQL    string
	setSQL    string
	removeSQL string
}

// Open opens (creating if needed) the database at cfg.Path and ensures the
// table exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("sqlitekv: path must not be empty")
	}
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("sqlitekv: invalid table name %q", table)
	}

	dsn := path
	if path != ":memory:" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return nil, fmt.Errorf("sqlitekv: path %q is a directory", path)
		}
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlitekv: create directory %q: %w", dir, err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitekv: open %q: %w", path, err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	s, err := newStore(ctx, db, table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func newStore(ctx context.Context, db *sql.DB, table string) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("sqlitekv: ping: %w", err)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL DEFAULT (unixepoch())
)`, table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("sqlitekv: ensure table %s: %w", table, err)
	}
	return &Store{
		db:        db,
		table:     table,
		getSQL:    fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, table),
		setSQL:    fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES (?, ?, unixepoch()) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, table),
		removeSQL: fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, table),
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

// Table returns the table name.
func (s *Store) Table() string { return s.table }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

var _ storage.Adapter = (*Store)(nil)
