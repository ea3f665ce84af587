// Package runs coordinates pipeline runs: a single-writer lock so two runs
// never touch the same staging or remote paths, and an optional Postgres
// ledger recording each run's outcome.
package runs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/JonMunkholm/storefront/internal/core"
)

// Lock is a held run lock.
type Lock interface {
	Release() error
}

// FileLock is a lock file created with O_EXCL. The holder's pid is written
// into it.
type FileLock struct {
	path string
}

// AcquireFile creates the lock file at path. If another live process holds
// it the error matches core.ErrLockHeld. A lock left behind by a process
// that no longer exists is taken over.
func AcquireFile(path string) (*FileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
			cerr := f.Close()
			if err := errors.Join(werr, cerr); err != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("write lock: %w", err)
			}
			return &FileLock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock: %w", err)
		}

		pid := holder(path)
		if pid > 0 && alive(pid) {
			return nil, fmt.Errorf("%w: pid %d holds %s", core.ErrLockHeld, pid, path)
		}
		if pid == 0 {
			// Unreadable or still being written by its creator.
			return nil, fmt.Errorf("%w: %s", core.ErrLockHeld, path)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: %s", core.ErrLockHeld, path)
}

// Path returns the lock file location.
func (l *FileLock) Path() string { return l.path }

// Release removes the lock file.
func (l *FileLock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

func holder(path string) int {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}

func alive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
