// Package workspace serializes merge runs on one workspace.
package workspace

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
)

// LockFileName is created in the workspace root while a merge runs.
const LockFileName = ".kvit-merge.lock"

// ErrLocked is returned when another run holds the workspace.
var ErrLocked = errors.New("workspace is locked by another merge")

// Lock represents an acquired workspace lock.
type Lock struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// AcquireLock takes an exclusive, non-blocking lock on the workspace so two
// merges never plan against the same files at once. The returned Lock must
// be released with Release.
func AcquireLock(workspaceRoot string) (*Lock, error) {
	lockPath := filepath.Join(workspaceRoot, LockFileName)

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
		if err != nil {
			return nil, fmt.Errorf("create workspace lock: %w", err)
		}

		if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
			holder := holderPID(f)
			f.Close()
			if holder > 0 {
				return nil, fmt.Errorf("%w (pid %d): %s", ErrLocked, holder, workspaceRoot)
			}
			return nil, fmt.Errorf("%w: %s", ErrLocked, workspaceRoot)
		}

		// A releasing run unlinks the file; a lock on the unlinked inode
		// guards nothing, so start over on the new file.
		if !isCurrent(f, lockPath) {
			f.Close()
			continue
		}

		// pid for whoever finds the lock busy
		_ = f.Truncate(0)
		_, _ = f.Seek(0, 0)
		fmt.Fprintf(f, "%d\n", os.Getpid())

		return &Lock{file: f, path: lockPath}, nil
	}
}

// isCurrent reports whether f is still the file at path.
func isCurrent(f *os.File, path string) bool {
	held, err := f.Stat()
	if err != nil {
		return false
	}
	onDisk, err := os.Stat(path)
	if err != nil {
		return false
	}
	return os.SameFile(held, onDisk)
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release removes the lock file and unlocks. The file is removed while the
// lock is still held. It is safe to call more than once.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	os.Remove(l.path)
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	l.file.Close()
	l.file = nil
}

func holderPID(f *os.File) int {
	buf := make([]byte, 32)
	n, _ := f.ReadAt(buf, 0)
	pid, err := strconv.Atoi(string(bytes.TrimSpace(buf[:n])))
	if err != nil {
		return 0
	}
	return pid
}
