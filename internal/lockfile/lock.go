// Package lockfile implements the scoped sentinel-file lock primitive
// (component A): construction attempts an atomic exclusive create, and
// release is idempotent and safe to call on every control-flow exit,
// including error propagation and panics recovered upstream. There is no
// stale-lock reclamation: unlike a single-host PID lock, a sentinel on a
// shared filesystem may be held by a writer on another host, so a dead
// local PID tells us nothing about whether the lock is still valid.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hermes-router/hermes/internal/errs"
)

// Lock is an acquired sentinel file. The zero value is not usable; obtain
// one via Acquire. Release is idempotent.
type Lock struct {
	path     string
	released bool
}

// info is written into the lock file for diagnostic purposes only; it is
// never read back to make acquisition decisions.
type info struct {
	PID       int       `json:"pid"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
}

// Acquire attempts to exclusively create the sentinel file at path. On
// success it returns a Lock whose Release removes the file. If the file
// already exists, it returns errs.ErrLockBusy — the caller should treat
// this as "another worker owns this resource" and silently skip.
func Acquire(path string, owner string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: mkdir parent of %s: %v", errs.ErrFSTransient, path, err)
	}

	tmp := fmt.Sprintf("%s.tmp.%d.%d", path, os.Getpid(), time.Now().UnixNano())
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: create temp lock %s: %v", errs.ErrFSTransient, tmp, err)
	}

	enc := json.NewEncoder(f)
	encErr := enc.Encode(info{PID: os.Getpid(), Owner: owner, CreatedAt: time.Now()})
	closeErr := f.Close()
	if encErr != nil || closeErr != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("%w: write temp lock %s", errs.ErrFSTransient, tmp)
	}
	defer func() { _ = os.Remove(tmp) }()

	if err := os.Link(tmp, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, errs.ErrLockBusy
		}
		return nil, fmt.Errorf("%w: link lock %s: %v", errs.ErrFSTransient, path, err)
	}

	return &Lock{path: path}, nil
}

// Release unlinks the sentinel file. It is a no-op on a second call, and
// any filesystem failure is logged but never returned — failure to unlink
// a lock must never abort the caller's control flow.
func (l *Lock) Release() {
	if l == nil || l.released {
		return
	}
	l.released = true
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to release lock", "path", l.path, "error", err)
	}
}

// Path reports the sentinel file path this lock guards.
func (l *Lock) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Exists reports whether a lock sentinel is currently present at path,
// without attempting to acquire it. Used by readers that must skip any
// directory containing .LOCK (§5 "Shared resources").
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
