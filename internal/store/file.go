package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// counterOffset is the fixed position of the counter byte within the
// state file. The surrounding bytes are reserved.
const counterOffset = 0

// FileStore persists the counter in a file on flash-backed storage.
// Writes are synced to the device before returning: a successful
// Write survives having the battery pulled immediately after.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path. The file
// and its parent directory are created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Read returns the persisted counter, or 0 if the file does not exist
// yet (first-ever boot).
func (s *FileStore) Read() (uint8, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open state file: %w", err)
	}
	defer f.Close()

	var b [1]byte
	_, err = f.ReadAt(b[:], counterOffset)
	if err == io.EOF {
		// File exists but is shorter than the counter field.
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter: %w", err)
	}
	return b[0], nil
}

// Write durably persists the counter. The file, and on creation its
// directory entry, are synced before Write returns.
func (s *FileStore) Write(count uint8) error {
	created := false
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
		created = true
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteAt([]byte{count}, counterOffset); err != nil {
		return fmt.Errorf("write counter: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync state file: %w", err)
	}

	if created {
		if err := syncDir(filepath.Dir(s.path)); err != nil {
			return fmt.Errorf("sync state dir: %w", err)
		}
	}
	return nil
}

// Increment is a read-modify-write returning the new value,
// saturating at 255.
func (s *FileStore) Increment() (uint8, error) {
	count, err := s.Read()
	if err != nil {
		return 0, err
	}
	if count < 255 {
		count++
	}
	if err := s.Write(count); err != nil {
		return 0, err
	}
	return count, nil
}

// syncDir flushes a directory entry so a freshly created state file
// is reachable after power loss.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
