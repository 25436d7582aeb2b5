package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials"))

	if err := store.Set(KeyDeepgram, "dg_secret_123\n"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(KeyDeepgram)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "dg_secret_123" {
		t.Fatalf("value = %q", got)
	}
}

func TestFileStorePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix permissions")
	}
	dir := filepath.Join(t.TempDir(), "credentials")
	store := NewFileStore(dir)
	if err := store.Set(KeyDeepgram, "value"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	info, err := os.Stat(filepath.Join(dir, KeyDeepgram))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("perm = %o, want 600", perm)
	}
}

func TestFileStoreMissing(t *testing.T) {
	store := NewFileStore(t.TempDir())
	_, err := store.Get(KeyDeepgram)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreRejectsEmptyValue(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.Set(KeyDeepgram, "  "); err == nil {
		t.Fatal("expected error for empty value")
	}
}

func TestFileStoreDelete(t *testing.T) {
	store := NewFileStore(t.TempDir())
	if err := store.Set(KeyDeepgram, "value"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Delete(KeyDeepgram); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(KeyDeepgram); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// Deleting again is fine.
	if err := store.Delete(KeyDeepgram); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}
