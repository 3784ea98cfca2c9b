// Package lock provides the cross-process exclusivity guard around the
// single-writer store: only one index, train, or watch process may
// hold the workspace's write lock at a time, so two invocations never
// race each other's SQLite transactions.
package lock

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	cserrors "github.com/codescope/codescope/internal/errors"
)

// WriteLock guards a workspace's `.cache/<app>.lock` file.
type WriteLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New returns a WriteLock for the given cache directory (typically
// `<root>/.cache`). The lock file itself is created lazily on Lock /
// TryLock.
func New(cacheDir string) *WriteLock {
	path := filepath.Join(cacheDir, "codescope.lock")
	return &WriteLock{path: path, flock: flock.New(path)}
}

// Lock blocks until the exclusive lock is acquired.
func (l *WriteLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return cserrors.Store("failed to create lock directory", err)
	}
	if err := l.flock.Lock(); err != nil {
		return cserrors.Store("failed to acquire write lock", err).
			WithSuggestion("another codescope process may be indexing this workspace")
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking, returning false
// if another process already holds it.
func (l *WriteLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, cserrors.Store("failed to create lock directory", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, cserrors.Store("failed to acquire write lock", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call on an unlocked WriteLock.
func (l *WriteLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return cserrors.Store("failed to release write lock", err)
	}
	l.locked = false
	return nil
}

// Path returns the lock file's path.
func (l *WriteLock) Path() string { return l.path }

// IsLocked reports whether this handle currently holds the lock.
func (l *WriteLock) IsLocked() bool { return l.locked }
