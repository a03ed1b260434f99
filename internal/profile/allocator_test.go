package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathDeterministic(t *testing.T) {
	a := NewAllocator("/data/profiles")

	if got := a.Path(7); got != filepath.Join("/data/profiles", "account_7") {
		t.Errorf("unexpected path: %s", got)
	}
	if a.Path(7) != a.Path(7) {
		t.Error("path must be deterministic")
	}
	if a.Path(7) == a.Path(8) {
		t.Error("distinct ids must not collide")
	}
}

func TestEnsureIdempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "profiles")
	a := NewAllocator(root)

	path, err := a.Ensure(3)
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s: %v", path, err)
	}

	// Second call on an existing directory is a no-op.
	if _, err := a.Ensure(3); err != nil {
		t.Fatalf("Ensure should be idempotent: %v", err)
	}
}

func TestEnsureDir(t *testing.T) {
	a := NewAllocator(t.TempDir())
	stored := filepath.Join(a.Root(), "account_12")

	if err := a.EnsureDir(stored); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}
	if err := a.EnsureDir(stored); err != nil {
		t.Fatalf("EnsureDir should be idempotent: %v", err)
	}
}
