// Package blobstore names and persists blobs. A blob is an opaque byte
// buffer written once in full and read back sequentially.
package blobstore

import (
	"io"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrNotExist = errors.New("blob does not exist")
	ErrLocked   = errors.New("blob is in use")
	ErrClosed   = errors.New("blob store is closed")
	ErrBadName  = errors.New("invalid blob name")
)

// Writer receives the full contents of one blob. Close must only report
// success once every byte written has reached the backing medium.
type Writer interface {
	io.Writer
	Sync() error
	Close() error
}

// Store is a named collection of blobs
type Store interface {
	// Create opens name for exclusive writing, discarding prior contents.
	Create(name string) (Writer, error)
	// Open opens name for reading.
	Open(name string) (io.ReadCloser, error)
	// Stat returns the size of name in bytes.
	Stat(name string) (int64, error)
	Close() error
}
