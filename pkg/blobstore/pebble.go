package blobstore

import (
	"bytes"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

// blobKeyPrefix namespaces blob values inside the database
const blobKeyPrefix = "blob/"

// PebbleStore keeps each blob as a single value in a Pebble database. The
// database directory is locked by Pebble for the lifetime of the store.
type PebbleStore struct {
	db      *pebble.DB
	mu      sync.Mutex
	writing map[string]struct{}
}

// NewPebbleStore opens (or creates) a Pebble database at path
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open pebble store %s", path)
	}
	return &PebbleStore{db: db, writing: make(map[string]struct{})}, nil
}

func blobKey(name string) []byte {
	return []byte(blobKeyPrefix + name)
}

// Create returns a writer that replaces the blob when closed
func (s *PebbleStore) Create(name string) (Writer, error) {
	if name == "" {
		return nil, errors.Wrap(ErrBadName, "empty name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, ErrClosed
	}
	if _, busy := s.writing[name]; busy {
		return nil, errors.Wrapf(ErrLocked, "%s", name)
	}
	s.writing[name] = struct{}{}

	return &pebbleWriter{store: s, name: name}, nil
}

// Open returns a reader over a copy of the stored blob
func (s *PebbleStore) Open(name string) (io.ReadCloser, error) {
	data, err := s.get(name)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Stat returns the stored blob length
func (s *PebbleStore) Stat(name string) (int64, error) {
	data, err := s.get(name)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// Delete removes the blob
func (s *PebbleStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}
	return s.db.Delete(blobKey(name), pebble.Sync)
}

// Close closes the underlying database
func (s *PebbleStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *PebbleStore) get(name string) ([]byte, error) {
	if name == "" {
		return nil, errors.Wrap(ErrBadName, "empty name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, ErrClosed
	}
	if _, busy := s.writing[name]; busy {
		return nil, errors.Wrapf(ErrLocked, "%s", name)
	}

	value, closer, err := s.db.Get(blobKey(name))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, errors.Wrapf(ErrNotExist, "%s", name)
		}
		return nil, err
	}
	defer closer.Close()

	// value is only valid until closer.Close
	data := make([]byte, len(value))
	copy(data, value)
	return data, nil
}

// pebbleWriter buffers the blob and commits it as one value
type pebbleWriter struct {
	store  *PebbleStore
	name   string
	buf    bytes.Buffer
	closed bool
}

func (w *pebbleWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	return w.buf.Write(p)
}

// Sync is a no-op; the value is committed with pebble.Sync on Close
func (w *pebbleWriter) Sync() error {
	return nil
}

func (w *pebbleWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	delete(w.store.writing, w.name)

	if w.store.db == nil {
		return ErrClosed
	}
	return w.store.db.Set(blobKey(w.name), w.buf.Bytes(), pebble.Sync)
}
