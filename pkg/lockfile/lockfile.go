// Package lockfile provides the single advisory sentinel lock the engine
// takes at the start of any mutating operation (§5): "enforcement is by
// file-locking a sentinel in $DATA/ ... releasing it on exit (including
// crash via OS-level advisory lock)". flock is released by the kernel the
// moment the holding file descriptor is closed, including on process
// death, which is exactly the crash-safety property required here.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// Lock guards one sentinel path with both an OS-level flock (cross-process)
// and an in-process mutex (so two goroutines in the same process serialize
// too, since flock is per-descriptor and a naive re-open would not
// self-block).
type Lock struct {
	path string
	mu   sync.Mutex
}

// New returns a Lock over the sentinel file at path. The file is created
// on first use if absent.
func New(path string) *Lock {
	return &Lock{path: path}
}

// With runs fn while holding the sentinel lock, releasing it on return.
func (l *Lock) With(fn func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("lockfile: creating directory for %s: %w", l.path, err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("lockfile: opening %s: %w", l.path, err)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("lockfile: locking %s: %w", l.path, err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	return fn()
}
