// Package store persists the agent's device mirror between runs.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store defines the interface for mirror persistence backends.
type Store interface {
	// Save persists the given data, replacing what was there.
	Save(data []byte) error

	// Load retrieves the stored data. A store with nothing saved yet
	// returns nil data and no error.
	Load() ([]byte, error)

	// Close releases any resources held by the store.
	Close() error
}

// Open picks a backend from the path: SQLite for .db and .sqlite files,
// a JSON file otherwise. An empty path yields a store that keeps nothing.
func Open(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLite(path)
	default:
		return NewJSONStore(path), nil
	}
}

// JSONStore implements Store with a single file, written atomically.
type JSONStore struct {
	FilePath string
}

// NewJSONStore creates a new JSON file store.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{FilePath: path}
}

// Save writes data to a temp file and renames it into place.
func (s *JSONStore) Save(data []byte) error {
	if s.FilePath == "" {
		return nil
	}

	dir := filepath.Dir(s.FilePath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	tmpPath := s.FilePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.FilePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads data from the file.
func (s *JSONStore) Load() ([]byte, error) {
	if s.FilePath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(s.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// Close is a no-op for JSON files.
func (s *JSONStore) Close() error {
	return nil
}

var _ Store = (*JSONStore)(nil)
