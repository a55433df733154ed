package blob

import (
	"habitcore/internal/infra/blob/fs"
)

// NewFilesystem constructs a filesystem-backed blob.Store rooted at the provided path.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}

// LocalPath returns the file backing key when store keeps blobs on the local
// filesystem. Watchers use it to follow changes made by other processes.
func LocalPath(store Store, key string) (string, bool) {
	local, ok := store.(*fs.Store)
	if !ok {
		return "", false
	}
	path, err := local.PathFor(key)
	if err != nil {
		return "", false
	}
	return path, true
}
