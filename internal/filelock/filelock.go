// Package filelock provides an advisory, exclusive, non-blocking lock on a
// file. It keeps a second passvault process from writing the same vault.
package filelock

import (
	"errors"
	"fmt"
	"os"
)

// ErrLocked is returned when another process holds the lock
var ErrLocked = errors.New("file is locked by another process")

// Lock is a held lock on a lock file
type Lock struct {
	f *os.File
}

// Acquire takes an exclusive lock on path, creating the file if needed.
// It never waits: a lock held elsewhere yields ErrLocked.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create lock file %s: %w", path, err)
	}

	if err := lockFile(f); err != nil {
		f.Close()
		return nil, err
	}

	return &Lock{f: f}, nil
}

// Release drops the lock. The lock file itself is left in place; removing
// it would let two processes lock different inodes.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlockFile(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
