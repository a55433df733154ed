// Package postgres provides a Postgres-backed entry store that keeps the
// tracker state as a versioned JSONB document.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"habitcore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.VersionedStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/habits?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists the state blob to the habit_state table.
type Store struct {
	db  *sql.DB
	key string
}

// NewStore opens a Postgres-backed store using dsn (falls back to defaultDSN),
// pings the server and ensures the state table exists.
func NewStore(ctx context.Context, dsn, key string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	if key == "" {
		key = domain.DefaultStateKey
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, key: key}, nil
}

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS habit_state (
		key     TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		version BIGINT NOT NULL DEFAULT 0
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("postgres: ensure state table: %w", err)
	}
	return nil
}

// Load implements domain.EntryStore.
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	blob, _, err := s.LoadVersioned(ctx)
	return blob, err
}

// LoadVersioned implements domain.VersionedStore.
func (s *Store) LoadVersioned(ctx context.Context) ([]byte, int64, error) {
	var (
		payload []byte
		version int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT payload, version FROM habit_state WHERE key = $1`, s.key).Scan(&payload, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, domain.ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: select state: %w", err)
	}
	return payload, version, nil
}

// Save implements domain.EntryStore. It ignores the stored version.
func (s *Store) Save(ctx context.Context, blob []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO habit_state(key, payload, version) VALUES($1, $2, 1)
		ON CONFLICT(key) DO UPDATE SET payload = EXCLUDED.payload, version = habit_state.version + 1`,
		s.key, blob)
	if err != nil {
		return fmt.Errorf("postgres: upsert state: %w", err)
	}
	return nil
}

// SaveVersioned implements domain.VersionedStore with a single conditional
// statement, so no explicit transaction is needed.
func (s *Store) SaveVersioned(ctx context.Context, blob []byte, expected int64) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if expected == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO habit_state(key, payload, version) VALUES($1, $2, 1) ON CONFLICT(key) DO NOTHING`,
			s.key, blob)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE habit_state SET payload = $1, version = version + 1 WHERE key = $2 AND version = $3`,
			blob, s.key, expected)
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: write state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres: rows affected: %w", err)
	}
	if n == 0 {
		return 0, domain.ErrConflict
	}
	return expected + 1, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
