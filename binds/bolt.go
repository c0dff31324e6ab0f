package binds

import (
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"markestedt/snapkeys/keyset"
)

var bindingsBucket = []byte("bindings")

// BoltStore persists bindings in a bbolt database, one record per key.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// OpenBolt opens or creates the database at path. readOnly takes a
// shared lock, waiting up to a second for a writer to let go.
func OpenBolt(path string, readOnly bool) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout:  time.Second,
		ReadOnly: readOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}
	return &BoltStore{db: db, path: path}, nil
}

// Load reads every binding. A database without the bucket is empty.
func (s *BoltStore) Load() (map[keyset.Key][]byte, error) {
	m := make(map[keyset.Key][]byte)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bindingsBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if len(k) != 8 {
				return fmt.Errorf("corrupt binding key of %d bytes", len(k))
			}
			val := make([]byte, len(v))
			copy(val, v)
			m[keyset.Key(binary.BigEndian.Uint64(k))] = val
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read bindings: %w", err)
	}
	return m, nil
}

// Save replaces the bucket contents with m in one transaction.
func (s *BoltStore) Save(m map[keyset.Key][]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bindingsBucket) != nil {
			if err := tx.DeleteBucket(bindingsBucket); err != nil {
				return fmt.Errorf("dropping bucket: %w", err)
			}
		}
		b, err := tx.CreateBucket(bindingsBucket)
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
		for k, v := range m {
			if err := b.Put(boltKey(k), v); err != nil {
				return fmt.Errorf("put %s: %w", k, err)
			}
		}
		return nil
	})
}

func (s *BoltStore) Location() string { return s.path }

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func boltKey(k keyset.Key) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(k))
	return b[:]
}
