// Package lock prevents two extsort runs from reorganizing the same root at once.
package lock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the lock for a root.
var ErrLocked = errors.New("lock held by another process")

// Lock is an advisory file lock tied to one root directory.
type Lock struct {
	root  string
	path  string
	flock *flock.Flock
}

// PathFor returns the lock file location for root. The file lives in dir,
// or the system temp directory when dir is empty, never inside root itself.
func PathFor(dir, root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	if dir == "" {
		dir = os.TempDir()
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(dir, "extsort-"+hex.EncodeToString(sum[:8])+".lock"), nil
}

// Acquire takes the lock for root without blocking.
func Acquire(dir, root string) (*Lock, error) {
	path, err := PathFor(dir, root)
	if err != nil {
		return nil, err
	}

	l := &Lock{root: root, path: path, flock: flock.New(path)}
	ok, err := l.flock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another extsort run holds the lock for %s: %w", root, ErrLocked)
	}
	return l, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks and removes the lock file.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}
