// Package blob stores uploaded file content on the local filesystem, keyed
// by the relative path persisted on UploadedFile rows.
package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is returned for keys that would escape the store root.
var ErrInvalidPath = errors.New("blob: invalid path")

// ErrBlobNotFound is returned when no content exists under the key.
var ErrBlobNotFound = errors.New("blob: not found")

// Store is a directory-backed blob store. Keys are slash-separated relative
// paths.
type Store struct {
	root string
}

// NewStore opens (creating if needed) a blob store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("blob: store directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("blob: failed to create store directory: %w", err)
	}
	return &Store{root: dir}, nil
}

// resolve maps a key to an absolute path inside the root, rejecting
// traversal.
func (s *Store) resolve(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", ErrInvalidPath
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, clean), nil
}

// Save writes the reader's content under key, creating parent directories.
// Existing content under the same key is replaced.
func (s *Store) Save(key string, r io.Reader) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("blob: failed to create directory for %s: %w", key, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("blob: failed to create %s: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("blob: failed to write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("blob: failed to close %s: %w", key, err)
	}
	return nil
}

// Open returns a reader over the content stored under key.
func (s *Store) Open(key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("blob: failed to open %s: %w", key, err)
	}
	return f, nil
}

// Remove deletes the content under key. Removing a missing key is not an
// error, deletions must be idempotent.
func (s *Store) Remove(key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blob: failed to remove %s: %w", key, err)
	}
	return nil
}
