// Package file persists tree snapshots as files in a directory.
package file

import (
	"context"
	"os"
	"path/filepath"
)

// Persist implements the leanimt.Persist interface for storing and
// loading snapshots from files.
type Persist struct {
	basepath string
}

// Load loads the bytes persisted in the named file.
func (p Persist) Load(ctx context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(p.basepath, name))
}

// Store persists the given bytes in a file of the given name, if it
// doesn't exist already. Snapshots are content-addressed, so an
// existing file already holds the same bytes.
func (p Persist) Store(ctx context.Context, name string, bytes []byte) error {
	path := filepath.Join(p.basepath, name)
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return os.WriteFile(path, bytes, 0o644)
	}
	return nil
}

// NewPersistForPath returns a Persist that loads and stores snapshots
// as files in the directory at the given path.
func NewPersistForPath(path string) Persist {
	return Persist{path}
}
