package domain

import "context"

// DefaultStateKey is the key the serialized state is stored under.
const DefaultStateKey = "habit-tracker-data"

// EntryStore is the minimal contract a persistence backend fulfils: the whole
// tracker state travels as one opaque blob under a single key.
type EntryStore interface {
	// Load returns the stored blob or ErrNotFound when nothing was saved yet.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the stored blob. The write is durable once Save returns nil.
	Save(ctx context.Context, blob []byte) error
}

// VersionedStore is implemented by backends that guard writes with a version
// token. Versions start at 0 for an empty store and increase by one per save.
type VersionedStore interface {
	EntryStore
	// LoadVersioned returns the blob and its version, or ErrNotFound.
	LoadVersioned(ctx context.Context) ([]byte, int64, error)
	// SaveVersioned stores blob only if the current version equals expected,
	// returning the new version. A mismatch yields ErrConflict.
	SaveVersioned(ctx context.Context, blob []byte, expected int64) (int64, error)
}
