// Package profile maps job and account identities to isolated on-disk
// browser-profile directories.
package profile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kleinvault/kleinvault/internal/errors"
)

// Allocator derives profile directories under a fixed root. The mapping
// is deterministic: identifier N always maps to <root>/account_N, so no
// two jobs ever collide on disk.
type Allocator struct {
	root string
}

// NewAllocator creates an allocator rooted at the given directory.
func NewAllocator(root string) *Allocator {
	return &Allocator{root: root}
}

// Root returns the profile root directory.
func (a *Allocator) Root() string {
	return a.root
}

// Path returns the profile directory for an identifier without creating
// it.
func (a *Allocator) Path(id int64) string {
	return filepath.Join(a.root, fmt.Sprintf("account_%d", id))
}

// Ensure creates the profile directory for an identifier, including
// parents. Creation is idempotent.
func (a *Allocator) Ensure(id int64) (string, error) {
	path := a.Path(id)
	if err := a.EnsureDir(path); err != nil {
		return "", err
	}
	return path, nil
}

// EnsureDir creates an arbitrary profile directory, including parents.
// Used when acting on a path already persisted in the store.
func (a *Allocator) EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return &errors.ErrDirectoryCreate{Path: path, Err: err}
	}
	return nil
}
