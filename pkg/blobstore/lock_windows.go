//go:build windows

package blobstore

import (
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/windows"
)

const lockingSupported = true

// lockFile places a non-blocking LockFileEx lock on the first byte of f.
// Writers take an exclusive lock, readers a shared one, so a writer cannot
// truncate a blob that is being read and a reader never sees a partial write.
// The lock belongs to the handle and goes away with it if the process dies.
//
// The returned function releases the lock; it must run before f is closed.
func lockFile(f *os.File, exclusive bool) (func() error, error) {
	handle := windows.Handle(f.Fd())

	flags := uint32(windows.LOCKFILE_FAIL_IMMEDIATELY)
	if exclusive {
		flags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}

	if err := windows.LockFileEx(handle, flags, 0, 1, 0, &windows.Overlapped{}); err != nil {
		if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
			return nil, errors.Wrapf(ErrLocked, "%s", f.Name())
		}
		return nil, err
	}

	return func() error {
		return windows.UnlockFileEx(handle, 0, 1, 0, &windows.Overlapped{})
	}, nil
}
