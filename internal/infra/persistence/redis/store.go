// Package redis stores the tracker state blob under a single Redis key.
// Writes are unconditional; the store follows the single-writer contract.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"habitcore/pkg/domain"
)

var _ domain.EntryStore = (*Store)(nil)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// client is the subset of *goredis.Client the store uses.
type client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Close() error
}

// Store implements domain.EntryStore against Redis.
type Store struct {
	rdb client
	key string
}

// NewStore connects to Redis and verifies the connection with PING.
func NewStore(ctx context.Context, opts Options, key string) (*Store, error) {
	if opts.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}
	return newStore(rdb, key), nil
}

func newStore(rdb client, key string) *Store {
	if key == "" {
		key = domain.DefaultStateKey
	}
	return &Store{rdb: rdb, key: key}
}

// Load implements domain.EntryStore.
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	blob, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %s: %w", s.key, err)
	}
	return blob, nil
}

// Save implements domain.EntryStore. The key never expires.
func (s *Store) Save(ctx context.Context, blob []byte) error {
	if err := s.rdb.Set(ctx, s.key, blob, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", s.key, err)
	}
	return nil
}

// Close releases the client.
func (s *Store) Close() error { return s.rdb.Close() }
