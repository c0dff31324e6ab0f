package binds

import (
	"fmt"

	"markestedt/snapkeys/keyset"
)

// Backend names accepted by OpenPersister.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// OpenPersister returns the persister for backend at path.
func OpenPersister(backend, path string, readOnly bool) (Persister, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStore(path), nil
	case BackendBolt:
		return OpenBolt(path, readOnly)
	default:
		return nil, fmt.Errorf("unknown bindings backend: %s", backend)
	}
}

// Unavailable stands in for a backend that failed to open. Load reports
// err, so Open starts empty with a warning, and every Save fails without
// touching the file at path.
func Unavailable(path string, err error) Persister {
	return unavailable{path: path, err: err}
}

type unavailable struct {
	path string
	err  error
}

func (u unavailable) Load() (map[keyset.Key][]byte, error) { return nil, u.err }

func (u unavailable) Save(map[keyset.Key][]byte) error {
	return fmt.Errorf("bindings backend unavailable: %w", u.err)
}

func (u unavailable) Location() string { return u.path }
func (u unavailable) Close() error     { return nil }
