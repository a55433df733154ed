package core

import (
	"context"
	"fmt"
	"io"

	"habitcore/internal/blob"
	"habitcore/internal/infra/persistence/memory"
	"habitcore/internal/infra/persistence/postgres"
	"habitcore/internal/infra/persistence/redis"
	"habitcore/internal/infra/persistence/sqlite"
	"habitcore/pkg/domain"
)

// StorageDriver identifies a concrete entry store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageRedis    StorageDriver = "redis"    // single redis key
	StorageBlob     StorageDriver = "blob"     // object in a blob store (fs, s3, memory)
)

// StorageOptions selects and configures the entry store backend.
type StorageOptions struct {
	Driver      StorageDriver
	Key         string
	SQLitePath  string
	PostgresDSN string
	Redis       redis.Options
	Blob        blob.Options
}

// OpenEntryStore builds the entry store named by opts.Driver, defaulting to
// sqlite. Stores holding connections implement io.Closer.
func OpenEntryStore(ctx context.Context, opts StorageOptions) (EntryStore, error) {
	key := opts.Key
	if key == "" {
		key = domain.DefaultStateKey
	}
	driver := opts.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(key), nil
	case StorageSQLite:
		store, err := sqlite.NewStore(ctx, opts.SQLitePath, key)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, opts.PostgresDSN, key)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageRedis:
		store, err := redis.NewStore(ctx, opts.Redis, key)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageBlob:
		backend, err := blob.Open(ctx, opts.Blob)
		if err != nil {
			return nil, fmt.Errorf("open blob backend: %w", err)
		}
		return blob.NewEntryStore(backend, key), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// CloseEntryStore releases store resources when it holds any.
func CloseEntryStore(store EntryStore) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// LocalStatePath returns the local file other processes write when they
// share store, so callers can watch it for changes.
func LocalStatePath(store EntryStore) (string, bool) {
	switch s := store.(type) {
	case *sqlite.Store:
		return s.Path(), true
	case *blob.EntryStore:
		return blob.LocalPath(s.Backend(), s.Key())
	default:
		return "", false
	}
}
