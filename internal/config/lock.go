package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileLock serializes read-modify-write cycles on a shared file across
// goroutines of one process and across the short-lived hook processes.
// The in-process mutex is required because advisory locks are per open file
// description, not per goroutine.
type FileLock struct {
	path string
	mu   sync.Mutex
}

// NewFileLock returns a lock backed by the file at path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// With runs fn while holding the lock.
func (l *FileLock) With(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file %s: %w", l.path, err)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return fmt.Errorf("failed to lock %s: %w", l.path, err)
	}
	defer unlockFile(f)

	return fn()
}
