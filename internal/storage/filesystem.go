package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"staffsync/internal/staff"
)

// FileSystemStorage is a filesystem-based implementation of the Storage interface.
// Each key is stored as one JSON file:
//
//	<root>/
//	  staff_offline_data.json
//	  staff_pending_actions.json
//
// Writes go to a temp file that is synced and renamed over the old one, so a
// crash leaves either the previous or the new value, never a torn one.
type FileSystemStorage struct {
	root string
}

// NewFileSystemStorage creates a medium rooted at the given directory.
func NewFileSystemStorage(root string) (*FileSystemStorage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileSystemStorage{root: root}, nil
}

// Get returns the value stored under key, or nil if the file does not exist.
func (s *FileSystemStorage) Get(key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Put atomically replaces the file for key.
func (s *FileSystemStorage) Put(key string, value []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	return writeFile(path, value)
}

// Delete removes the file for key.
func (s *FileSystemStorage) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; files are closed after every operation.
func (s *FileSystemStorage) Close() error {
	return nil
}

// path maps a key to its file, rejecting keys that would escape the root.
func (s *FileSystemStorage) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, key+".json"), nil
}

// writeFile writes data to destPath using atomic write (temp file + rename).
func writeFile(destPath string, data []byte) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemStorage implements staff.Storage interface
var _ staff.Storage = (*FileSystemStorage)(nil)
