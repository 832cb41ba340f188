package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/nordichpc/sonar/pkg/sonarerrors"
)

// NodeLock is an exclusive advisory lock held for the lifetime of a daemon
// process, preventing a second instance on the same node from racing the
// same directory sink or lock-directory (spec.md §4.6, §4.7). There is no
// third-party flock library in the agent's dependency stack, so this is one
// of the few components built directly on the standard library's syscall
// package, matching the idiom already established for platform.OwnSessionID.
type NodeLock struct {
	file *os.File
}

// AcquireNodeLock creates (or opens) path and takes a non-blocking exclusive
// flock on it. A second call against the same path, from any process, fails
// immediately rather than blocking.
func AcquireNodeLock(path string) (*NodeLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, sonarerrors.Wrap(sonarerrors.ErrCodeSink, "lock: mkdir", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, sonarerrors.Wrap(sonarerrors.ErrCodeSink, "lock: open", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, sonarerrors.WrapWithContext(sonarerrors.ErrCodeSink, "lock: held by another process", err,
			map[string]any{"path": path})
	}

	if err := f.Truncate(0); err == nil {
		fmt.Fprintf(f, "%d\n", os.Getpid())
	}

	return &NodeLock{file: f}, nil
}

// Release drops the lock and closes the underlying file. Safe to call once.
func (l *NodeLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return err
	}
	return closeErr
}
