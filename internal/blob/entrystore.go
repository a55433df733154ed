package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"habitcore/pkg/domain"
)

const stateContentType = "application/json"

// EntryStore keeps the serialized habit state as a single blob.
type EntryStore struct {
	store Store
	key   string
}

// NewEntryStore adapts store into a domain.EntryStore writing under key
// (domain.DefaultStateKey when empty).
func NewEntryStore(store Store, key string) *EntryStore {
	if key == "" {
		key = domain.DefaultStateKey
	}
	return &EntryStore{store: store, key: key}
}

// Key returns the blob key holding the state.
func (s *EntryStore) Key() string { return s.key }

// Backend exposes the underlying blob store.
func (s *EntryStore) Backend() Store { return s.store }

// Load reads the state blob, returning domain.ErrNotFound when it was never written.
func (s *EntryStore) Load(ctx context.Context) ([]byte, error) {
	_, rc, err := s.store.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.key, err)
	}
	defer func() { _ = rc.Close() }()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.key, err)
	}
	return payload, nil
}

// Save replaces the state blob with payload.
func (s *EntryStore) Save(ctx context.Context, payload []byte) error {
	opts := PutOptions{ContentType: stateContentType, Metadata: map[string]string{"schema": "habits.v1"}}
	if _, err := s.store.Put(ctx, s.key, bytes.NewReader(payload), opts); err != nil {
		return fmt.Errorf("put %s: %w", s.key, err)
	}
	return nil
}

var _ domain.EntryStore = (*EntryStore)(nil)
