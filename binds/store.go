package binds

import (
	"errors"
	"fmt"
	"sync"

	"markestedt/snapkeys/keyset"
	"markestedt/snapkeys/logging"
)

var logger = logging.For("binds")

// ErrNotBound is returned by Lookup for a key with no image.
var ErrNotBound = errors.New("key not bound")

// Persister loads and saves the complete binding map.
// Implementations must not retain the map passed to Save.
type Persister interface {
	Load() (map[keyset.Key][]byte, error)
	Save(m map[keyset.Key][]byte) error
	Location() string
	Close() error
}

// Store maps keys to clipboard images. Every access takes the same
// mutex; there are no concurrent readers.
type Store struct {
	mu      sync.Mutex
	binds   map[keyset.Key][]byte
	persist Persister
	// dirty is set by Record and cleared by a successful save.
	dirty bool
}

// New returns an empty store that saves through p. p may be nil for a
// memory-only store.
func New(p Persister) *Store {
	return &Store{
		binds:   make(map[keyset.Key][]byte),
		persist: p,
	}
}

// Open loads the store from p. A load failure is logged and yields an
// empty store; it is never returned to the caller.
func Open(p Persister) *Store {
	s := New(p)
	if p == nil {
		return s
	}

	m, err := p.Load()
	if err != nil {
		logger.Warn("Couldn't load bindings, starting empty", "path", p.Location(), "error", err)
		return s
	}
	s.binds = m
	logger.Info("Loaded bindings", "path", p.Location(), "count", len(m))
	return s
}

// Record binds blob to key, replacing any previous image, then saves
// the whole store. The in-memory insert always takes effect; the
// returned error only reports a failed save.
func (s *Store) Record(key keyset.Key, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.binds[key] = clone(blob)
	s.dirty = true
	return s.saveLocked()
}

// Lookup returns a copy of the image bound to key, or ErrNotBound.
func (s *Store) Lookup(key keyset.Key) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, ok := s.binds[key]
	if !ok {
		return nil, fmt.Errorf("lookup %s: %w", key, ErrNotBound)
	}
	return clone(blob), nil
}

// Keys returns the bound keys in ascending order.
func (s *Store) Keys() []keyset.Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]keyset.Key, 0, len(s.binds))
	for k := range s.binds {
		keys = append(keys, k)
	}
	keyset.Sort(keys)
	return keys
}

// Sizes returns the image size of every binding.
func (s *Store) Sizes() map[keyset.Key]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[keyset.Key]int, len(s.binds))
	for k, v := range s.binds {
		out[k] = len(v)
	}
	return out
}

// Len returns the number of bindings.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.binds)
}

// Flush saves the current state if a Record has not been saved yet. A
// store that was never written to leaves the persisted data alone, so a
// file that failed to load survives a start and quit.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	return s.saveLocked()
}

// Close flushes and releases the persister.
func (s *Store) Close() error {
	err := s.Flush()
	if s.persist != nil {
		err = errors.Join(err, s.persist.Close())
	}
	return err
}

func (s *Store) saveLocked() error {
	if s.persist == nil {
		return nil
	}
	if err := s.persist.Save(s.binds); err != nil {
		return fmt.Errorf("save bindings to %s: %w", s.persist.Location(), err)
	}
	s.dirty = false
	return nil
}

func clone(b []byte) []byte {
	return append([]byte{}, b...)
}
