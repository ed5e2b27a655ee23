package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore lays out per-instrument artifacts as
// <root>/<exchange>/<SYMBOL>/<name>.<ext>.
type FileStore struct {
	root string
}

// NewFileStore creates a store rooted at the given data directory.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Path builds the on-disk location for one artifact of an instrument.
func (s *FileStore) Path(exchange, symbol, name, ext string) string {
	return filepath.Join(s.root, strings.ToLower(exchange), strings.ToUpper(symbol), name+"."+ext)
}

// Exists reports whether an artifact is already present.
func (s *FileStore) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeAtomic writes data to a temp file and renames it into place, so a
// reader never observes a partially written artifact and a failed write
// never truncates the previous one.
func (s *FileStore) writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create parent dirs: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
