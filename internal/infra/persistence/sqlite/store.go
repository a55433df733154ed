// Package sqlite persists the tracker state as a versioned JSON blob in a
// single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"habitcore/pkg/domain"
)

var _ domain.VersionedStore = (*Store)(nil)

const schema = `CREATE TABLE IF NOT EXISTS state (
	bucket  TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	version INTEGER NOT NULL DEFAULT 0
)`

// Store reads and writes one row of the state table keyed by bucket.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	path   string
	bucket string
}

// NewStore opens (or creates) the database at path and ensures the state table.
func NewStore(ctx context.Context, path, bucket string) (*Store, error) {
	if path == "" {
		path = "habits.db"
	}
	if bucket == "" {
		bucket = domain.DefaultStateKey
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("sqlite: create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// SQLite supports a single writer; one connection avoids SQLITE_BUSY between pooled conns.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create state table: %w", err)
	}
	return &Store{db: db, path: path, bucket: bucket}, nil
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
	err := s.db.QueryRowContext(ctx, `SELECT payload, version FROM state WHERE bucket = ?`, s.bucket).Scan(&payload, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, domain.ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: select state: %w", err)
	}
	return payload, version, nil
}

// Save implements domain.EntryStore, overwriting whatever version is stored.
func (s *Store) Save(ctx context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state(bucket, payload, version) VALUES(?, ?, 1)
		ON CONFLICT(bucket) DO UPDATE SET payload = excluded.payload, version = state.version + 1`,
		s.bucket, blob)
	if err != nil {
		return fmt.Errorf("sqlite: upsert %s: %w", s.bucket, err)
	}
	return nil
}

// SaveVersioned implements domain.VersionedStore.
func (s *Store) SaveVersioned(ctx context.Context, blob []byte, expected int64) (retVersion int64, retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	var res sql.Result
	if expected == 0 {
		res, err = tx.ExecContext(ctx, `INSERT INTO state(bucket, payload, version) VALUES(?, ?, 1) ON CONFLICT(bucket) DO NOTHING`, s.bucket, blob)
	} else {
		res, err = tx.ExecContext(ctx, `UPDATE state SET payload = ?, version = version + 1 WHERE bucket = ? AND version = ?`, blob, s.bucket, expected)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: write %s: %w", s.bucket, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if n == 0 {
		return 0, domain.ErrConflict
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return expected + 1, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
