// Package memory provides an in-memory entry store used for tests and
// ephemeral sessions.
package memory

import (
	"context"
	"sync"

	"habitcore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.VersionedStore = (*Store)(nil)

// Store keeps blobs in process memory, one per key, with a version counter.
type Store struct {
	mu       sync.RWMutex
	key      string
	blobs    map[string][]byte
	versions map[string]int64
}

// NewStore returns an empty store addressing key (domain.DefaultStateKey when empty).
func NewStore(key string) *Store {
	if key == "" {
		key = domain.DefaultStateKey
	}
	return &Store{key: key, blobs: make(map[string][]byte), versions: make(map[string]int64)}
}

// Key returns the key the store reads and writes.
func (s *Store) Key() string { return s.key }

// Load implements domain.EntryStore.
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	blob, _, err := s.LoadVersioned(ctx)
	return blob, err
}

// Save implements domain.EntryStore; it overwrites unconditionally.
func (s *Store) Save(_ context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[s.key] = cloneBytes(blob)
	s.versions[s.key]++
	return nil
}

// LoadVersioned implements domain.VersionedStore.
func (s *Store) LoadVersioned(_ context.Context) ([]byte, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[s.key]
	if !ok {
		return nil, 0, domain.ErrNotFound
	}
	return cloneBytes(blob), s.versions[s.key], nil
}

// SaveVersioned implements domain.VersionedStore.
func (s *Store) SaveVersioned(_ context.Context, blob []byte, expected int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versions[s.key] != expected {
		return s.versions[s.key], domain.ErrConflict
	}
	s.blobs[s.key] = cloneBytes(blob)
	s.versions[s.key] = expected + 1
	return expected + 1, nil
}

// Close implements io.Closer.
func (s *Store) Close() error { return nil }

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
