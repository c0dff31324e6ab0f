package binds

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"markestedt/snapkeys/keyset"
)

const (
	maxRenameRetry       = 10
	renameRetryBaseDelay = 10 * time.Millisecond
)

// FileStore persists bindings as one protobuf-encoded file.
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore for path. Nothing is touched on disk
// until Load or Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and decodes the file.
func (f *FileStore) Load() (map[keyset.Key][]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read bindings: %w", err)
	}
	return Unmarshal(data)
}

// Save replaces the file with the encoding of m.
func (f *FileStore) Save(m map[keyset.Key][]byte) error {
	return atomicWrite(f.path, Marshal(m))
}

func (f *FileStore) Location() string { return f.path }

func (f *FileStore) Close() error { return nil }

// atomicWrite writes data to a temp file in the target directory and
// renames it over path, so readers never observe a partial file.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create bindings dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".bindings.tmp.*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				logger.Warn("Failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				logger.Warn("Failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("close temp: %w", err)
	}

	if err = renameWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// renameWithRetry retries on Windows, where a reader holding the target
// open makes the rename fail transiently.
func renameWithRetry(from, to string) error {
	var lastErr error
	for attempt := 0; attempt < maxRenameRetry; attempt++ {
		err := os.Rename(from, to)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}
