package blobstore

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// FileStore keeps each blob in a file below a root directory
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the root directory
func (s *FileStore) Dir() string {
	return s.dir
}

// Path resolves a blob name to a file path. Absolute names are used as-is.
func (s *FileStore) Path(name string) (string, error) {
	if name == "" {
		return "", errors.Wrap(ErrBadName, "empty name")
	}
	if filepath.IsAbs(name) {
		return filepath.Clean(name), nil
	}
	return filepath.Join(s.dir, name), nil
}

// Create opens the blob for exclusive writing and truncates it
func (s *FileStore) Create(name string) (Writer, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, errors.Wrapf(err, "create directory for %s", path)
	}

	// Truncate only once the lock is held so a concurrent holder keeps its data
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	unlock, err := lockFile(file, true)
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "lock %s", path)
	}

	if err := file.Truncate(0); err != nil {
		unlock()
		file.Close()
		return nil, errors.Wrapf(err, "truncate %s", path)
	}

	// The truncation itself is not yet durable
	return &fileWriter{file: file, unlock: unlock, dirty: true}, nil
}

// Open opens the blob for shared reading
func (s *FileStore) Open(name string) (io.ReadCloser, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotExist, "%s", path)
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}

	// os.Open succeeds on directories; reads would fail later
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	if info.IsDir() {
		file.Close()
		return nil, errors.Wrapf(ErrBadName, "%s is a directory", path)
	}

	unlock, err := lockFile(file, false)
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "lock %s", path)
	}

	return &fileReader{file: file, unlock: unlock}, nil
}

// Stat returns the file size of the blob
func (s *FileStore) Stat(name string) (int64, error) {
	path, err := s.Path(name)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.Wrapf(ErrNotExist, "%s", path)
		}
		return 0, errors.Wrapf(err, "stat %s", path)
	}
	if info.IsDir() {
		return 0, errors.Wrapf(ErrBadName, "%s is a directory", path)
	}

	return info.Size(), nil
}

// Close is a no-op; file handles are owned by writers and readers
func (s *FileStore) Close() error {
	return nil
}

type fileWriter struct {
	file   *os.File
	unlock func() error
	dirty  bool // bytes written since the last Sync
}

func (w *fileWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		w.dirty = true
	}
	return w.file.Write(p)
}

func (w *fileWriter) Sync() error {
	if err := w.file.Sync(); err != nil {
		return err
	}
	w.dirty = false
	return nil
}

// Close syncs any unsynced bytes, releases the lock and closes the file
func (w *fileWriter) Close() error {
	var syncErr error
	if w.dirty {
		syncErr = w.Sync()
	}
	unlockErr := w.unlock()
	closeErr := w.file.Close()

	return errors.CombineErrors(syncErr, errors.CombineErrors(unlockErr, closeErr))
}

type fileReader struct {
	file   *os.File
	unlock func() error
}

func (r *fileReader) Read(p []byte) (int, error) {
	return r.file.Read(p)
}

func (r *fileReader) Close() error {
	unlockErr := r.unlock()
	return errors.CombineErrors(unlockErr, r.file.Close())
}
