//go:build unix

package blobstore

import (
	"os"
	"syscall"

	"github.com/cockroachdb/errors"
)

const lockingSupported = true

// lockFile places a non-blocking advisory flock(2) on f. Writers take an
// exclusive lock, readers a shared one, so a reader never observes a blob
// that is still being written.
//
// The returned function releases the lock; it must run before f is closed.
func lockFile(f *os.File, exclusive bool) (func() error, error) {
	how := syscall.LOCK_SH
	if exclusive {
		how = syscall.LOCK_EX
	}

	if err := syscall.Flock(int(f.Fd()), how|syscall.LOCK_NB); err != nil {
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, errors.Wrapf(ErrLocked, "%s", f.Name())
		}
		return nil, err
	}

	return func() error {
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}
