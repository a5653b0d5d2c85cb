// Package lock serializes mutating commands across processes with an
// advisory lock on a file in the data directory.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("data directory is locked by another scribe process")

// Lock is a held advisory file lock.
type Lock struct {
	f *os.File
}

// Acquire takes the lock at path without blocking, creating the file and its
// parent directory if needed.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	f, err := acquireFileLock(path)
	if err != nil {
		return nil, err
	}
	return &Lock{f: f}, nil
}

// Release drops the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := releaseFileLock(l.f)
	l.f = nil
	return err
}
