// Package workspace guards a local working directory against concurrent
// processing of the same stage.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const dirPermissions = 0o750

// ErrLocked is returned when another process holds the stage lock.
var ErrLocked = errors.New("stage is already being processed in this work directory")

// Lock is an exclusive advisory lock on <work dir>/.<stage>.lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// LockPath returns the lock file path for stage in workDir.
func LockPath(workDir, stage string) string {
	return filepath.Join(workDir, "."+stage+".lock")
}

// Acquire takes the stage lock without waiting.
func Acquire(workDir, stage string) (*Lock, error) {
	err := os.MkdirAll(workDir, dirPermissions)
	if err != nil {
		return nil, fmt.Errorf("create work dir %s: %w", workDir, err)
	}

	path := LockPath(workDir, stage)
	fileLock := flock.New(path)

	ok, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	return &Lock{path: path, lock: fileLock}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock. The lock file is left in place.
func (l *Lock) Release() error {
	err := l.lock.Unlock()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}

	return nil
}
