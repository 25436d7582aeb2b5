// Package secrets isolates API credential storage from the rest of the
// pipeline. Callers see only a name/value interface; the file-backed
// implementation keeps keys out of config files and logs.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeyDeepgram names the transcription service credential.
const KeyDeepgram = "deepgram_api_key"

// ErrNotFound indicates the requested credential has not been stored.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes named credentials.
type Store interface {
	Get(name string) (string, error)
	Set(name, value string) error
	Delete(name string) error
}

// FileStore persists each credential as one 0600 file under a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// DefaultDir returns the canonical credential directory.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ytscribe", "credentials"), nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

// Get returns the named credential, or ErrNotFound.
func (s *FileStore) Get(name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("read credential %s: %w", name, err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return value, nil
}

// Set stores the named credential with owner-only permissions.
func (s *FileStore) Set(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("credential value is empty")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	if err := os.WriteFile(s.path(name), []byte(strings.TrimSpace(value)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write credential %s: %w", name, err)
	}
	return nil
}

// Delete removes the named credential. Deleting an absent credential is not
// an error.
func (s *FileStore) Delete(name string) error {
	err := os.Remove(s.path(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete credential %s: %w", name, err)
	}
	return nil
}
