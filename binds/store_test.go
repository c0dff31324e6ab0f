package binds

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"markestedt/snapkeys/keyset"
	"markestedt/snapkeys/logging"
)

// memPersister records saves and can be told to fail.
type memPersister struct {
	mu      sync.Mutex
	data    map[keyset.Key][]byte
	loadErr error
	saveErr error
	saves   int
}

func (p *memPersister) Load() (map[keyset.Key][]byte, error) {
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	out := make(map[keyset.Key][]byte, len(p.data))
	for k, v := range p.data {
		out[k] = clone(v)
	}
	return out, nil
}

func (p *memPersister) Save(m map[keyset.Key][]byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	if p.saveErr != nil {
		return p.saveErr
	}
	p.data = make(map[keyset.Key][]byte, len(m))
	for k, v := range m {
		p.data[k] = clone(v)
	}
	return nil
}

func (p *memPersister) Location() string { return "memory" }
func (p *memPersister) Close() error     { return nil }

func TestRecordOverwrites(t *testing.T) {
	p := &memPersister{}
	s := New(p)

	if err := s.Record(keyset.KeyK, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(keyset.KeyK, []byte("second")); err != nil {
		t.Fatal(err)
	}

	got, err := s.Lookup(keyset.KeyK)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("Lookup(K) = %q, want second", got)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if p.saves != 2 {
		t.Errorf("saves = %d, want 2", p.saves)
	}
	if string(p.data[keyset.KeyK]) != "second" {
		t.Errorf("persisted K = %q, want second", p.data[keyset.KeyK])
	}
}

func TestLookupNotBound(t *testing.T) {
	s := New(nil)
	_, err := s.Lookup(keyset.KeyA)
	if !errors.Is(err, ErrNotBound) {
		t.Fatalf("Lookup on empty store: err = %v, want ErrNotBound", err)
	}
}

func TestStoreCopiesBlobs(t *testing.T) {
	s := New(nil)
	blob := []byte{1, 2, 3}
	if err := s.Record(keyset.KeyA, blob); err != nil {
		t.Fatal(err)
	}
	blob[0] = 9

	got, _ := s.Lookup(keyset.KeyA)
	if got[0] != 1 {
		t.Fatal("store aliases the recorded slice")
	}
	got[1] = 9
	again, _ := s.Lookup(keyset.KeyA)
	if again[1] != 2 {
		t.Fatal("store aliases the returned slice")
	}
}

func TestKeysSortedSnapshot(t *testing.T) {
	s := New(nil)
	for _, k := range []keyset.Key{keyset.KeyX, keyset.KeyB, keyset.KeyM} {
		if err := s.Record(k, []byte{byte(k)}); err != nil {
			t.Fatal(err)
		}
	}
	keys := s.Keys()
	want := []keyset.Key{keyset.KeyB, keyset.KeyM, keyset.KeyX}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("Keys() = %v, want %v", keys, want)
		}
	}

	keys[0] = keyset.KeyZ
	if s.Keys()[0] != keyset.KeyB {
		t.Fatal("Keys() result aliases store state")
	}
}

func TestSaveFailureKeepsMemory(t *testing.T) {
	p := &memPersister{saveErr: errors.New("disk full")}
	s := New(p)

	err := s.Record(keyset.KeyA, []byte("img"))
	if err == nil {
		t.Fatal("Record should report the save failure")
	}
	if !errors.Is(err, p.saveErr) {
		t.Errorf("err = %v, want wrapped disk full", err)
	}
	got, lookupErr := s.Lookup(keyset.KeyA)
	if lookupErr != nil || string(got) != "img" {
		t.Fatalf("Lookup after failed save = %q, %v; want img", got, lookupErr)
	}

	p.saveErr = nil
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if string(p.data[keyset.KeyA]) != "img" {
		t.Errorf("Flush did not persist A")
	}
}

func TestOpenLoadFailureStartsEmpty(t *testing.T) {
	c := logging.CaptureForTest()
	defer c.Restore()

	s := Open(&memPersister{loadErr: errors.New("corrupt")})
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}
	if !c.Has(slog.LevelWarn, "Couldn't load bindings") {
		t.Error("load failure not logged as a warning")
	}
}

func TestCloseAfterLoadFailureKeepsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindings.bin")
	corrupt := []byte{10, 255, 255, 255, 255, 15}
	if err := os.WriteFile(path, corrupt, 0o600); err != nil {
		t.Fatal(err)
	}

	s := Open(NewFileStore(path))
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(after, corrupt) {
		t.Errorf("file = %v after Close, want untouched %v", after, corrupt)
	}
}

func TestFlushSkipsCleanStore(t *testing.T) {
	p := &memPersister{data: map[keyset.Key][]byte{keyset.KeyA: []byte("img")}}
	s := Open(p)
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if p.saves != 0 {
		t.Errorf("saves = %d after Flush of an unchanged store, want 0", p.saves)
	}

	if err := s.Record(keyset.KeyB, []byte("other")); err != nil {
		t.Fatal(err)
	}
	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if p.saves != 1 {
		t.Errorf("saves = %d, want 1 (Record only; Flush had nothing new)", p.saves)
	}
}

func TestOpenLoadsExisting(t *testing.T) {
	p := &memPersister{data: map[keyset.Key][]byte{keyset.KeyA: {0x42, 0x4D}}}
	s := Open(p)
	got, err := s.Lookup(keyset.KeyA)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{0x42, 0x4D}) {
		t.Errorf("Lookup(A) = %v", got)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bindings.bin")
	fs := NewFileStore(path)

	want := map[keyset.Key][]byte{
		keyset.KeyA: {0x42, 0x4D, 0x00, 0x01},
		keyset.KeyE: {},
	}
	if err := fs.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := fs.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !equalMaps(got, want) {
		t.Fatalf("Load = %v, want %v", got, want)
	}

	if err := fs.Save(map[keyset.Key][]byte{}); err != nil {
		t.Fatal(err)
	}
	got, err = fs.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("after saving empty map, Load = %v", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the bindings file", len(entries))
	}
}

func TestFileStoreMissing(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "none.bin"))
	if _, err := fs.Load(); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load missing file: err = %v, want ErrNotExist", err)
	}
	s := Open(fs)
	if s.Len() != 0 {
		t.Fatal("store from missing file should be empty")
	}
}

func TestFileStoreCorruptFallsBackToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindings.bin")
	if err := os.WriteFile(path, []byte{0x0A, 0x7F}, 0o600); err != nil {
		t.Fatal(err)
	}
	s := Open(NewFileStore(path))
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}
}

func TestStoreReopenFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindings.bin")
	s := Open(NewFileStore(path))
	if err := s.Record(keyset.KeyA, []byte{0x42, 0x4D, 0x10}); err != nil {
		t.Fatal(err)
	}

	reopened := Open(NewFileStore(path))
	got, err := reopened.Lookup(keyset.KeyA)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{0x42, 0x4D, 0x10}) {
		t.Errorf("reopened A = %v", got)
	}
}

func TestBoltStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bindings.db")
	bs, err := OpenBolt(path, false)
	if err != nil {
		t.Fatal(err)
	}

	empty, err := bs.Load()
	if err != nil {
		t.Fatalf("Load on fresh db: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("fresh db has %d bindings", len(empty))
	}

	want := map[keyset.Key][]byte{
		keyset.KeyA: {0x42, 0x4D},
		keyset.KeyZ: {},
	}
	if err := bs.Save(want); err != nil {
		t.Fatal(err)
	}
	if err := bs.Save(map[keyset.Key][]byte{keyset.KeyA: {0x42, 0x4D}, keyset.KeyZ: {}}); err != nil {
		t.Fatal(err)
	}
	if err := bs.Close(); err != nil {
		t.Fatal(err)
	}

	ro, err := OpenBolt(path, true)
	if err != nil {
		t.Fatal(err)
	}
	defer ro.Close()
	got, err := ro.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !equalMaps(got, want) {
		t.Fatalf("Load = %v, want %v", got, want)
	}
}

func TestBoltSaveDropsRemovedKeys(t *testing.T) {
	bs, err := OpenBolt(filepath.Join(t.TempDir(), "b.db"), false)
	if err != nil {
		t.Fatal(err)
	}
	defer bs.Close()

	if err := bs.Save(map[keyset.Key][]byte{keyset.KeyA: {1}, keyset.KeyB: {2}}); err != nil {
		t.Fatal(err)
	}
	if err := bs.Save(map[keyset.Key][]byte{keyset.KeyB: {3}}); err != nil {
		t.Fatal(err)
	}
	got, err := bs.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !bytes.Equal(got[keyset.KeyB], []byte{3}) {
		t.Fatalf("Load = %v, want only B -> [3]", got)
	}
}

func TestOpenPersister(t *testing.T) {
	dir := t.TempDir()
	p, err := OpenPersister("", filepath.Join(dir, "a.bin"), false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*FileStore); !ok {
		t.Errorf("default backend = %T, want *FileStore", p)
	}

	p, err = OpenPersister(BackendBolt, filepath.Join(dir, "a.db"), false)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if _, ok := p.(*BoltStore); !ok {
		t.Errorf("bolt backend = %T, want *BoltStore", p)
	}

	if _, err := OpenPersister("redis", "x", false); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestUnavailableBoltStartsEmpty(t *testing.T) {
	c := logging.CaptureForTest()
	defer c.Restore()

	path := filepath.Join(t.TempDir(), "bindings.db")
	garbage := bytes.Repeat([]byte{0xAB}, 8<<10)
	if err := os.WriteFile(path, garbage, 0o600); err != nil {
		t.Fatal(err)
	}

	_, openErr := OpenPersister(BackendBolt, path, false)
	if openErr == nil {
		t.Fatal("opening a non-bolt file should fail")
	}

	s := Open(Unavailable(path, openErr))
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}
	if !c.Has(slog.LevelWarn, "Couldn't load bindings") {
		t.Error("open failure not logged as a warning")
	}

	err := s.Record(keyset.KeyA, []byte("img"))
	if !errors.Is(err, openErr) {
		t.Errorf("Record err = %v, want it to wrap the open failure", err)
	}
	if got, _ := s.Lookup(keyset.KeyA); string(got) != "img" {
		t.Errorf("Lookup(A) = %q after failed save, want img", got)
	}
	if err := s.Close(); err == nil {
		t.Error("Close of a store with unsaved records should report the save failure")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(after, garbage) {
		t.Error("unreadable bolt file was modified")
	}
}
