// Package lock keeps two devtask invocations from mutating one project at once.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// FileName is the lock file created in the project root.
const FileName = ".devtask.lock"

// Info is the metadata stored in a lock file.
type Info struct {
	PID       int       `json:"pid"`
	CreatedAt time.Time `json:"created_at"`
	Task      string    `json:"task,omitempty"`
}

// ErrLocked reports a live lock held by another invocation.
type ErrLocked struct {
	Info *Info // nil if the lock file is unreadable
	Path string
}

func (e *ErrLocked) Error() string {
	if e.Info != nil {
		return fmt.Sprintf("project is locked by pid %d (task %q) since %s; remove %s if that process is gone",
			e.Info.PID, e.Info.Task, e.Info.CreatedAt.Format(time.RFC3339), e.Path)
	}
	return fmt.Sprintf("project is locked; remove %s if no devtask is running", e.Path)
}

// ProjectLock guards mutating tasks in one project directory.
type ProjectLock struct {
	Dir        string
	StaleAfter time.Duration
	Now        func() time.Time
	IsPIDAlive func(pid int) bool
}

// New returns a ProjectLock for dir. Locks older than an hour, or whose
// owner is gone, are taken over.
func New(dir string) ProjectLock {
	return ProjectLock{
		Dir:        dir,
		StaleAfter: time.Hour,
		Now:        time.Now,
		IsPIDAlive: isPIDAlive,
	}
}

// Path is the lock file location.
func (l ProjectLock) Path() string {
	return filepath.Join(l.Dir, FileName)
}

// Acquire takes the lock for task and returns the release function.
// Returns *ErrLocked when a live lock is held.
func (l ProjectLock) Acquire(task string) (release func() error, err error) {
	path := l.Path()

	for attempt := 0; attempt < 3; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			data, _ := json.Marshal(Info{PID: os.Getpid(), CreatedAt: l.Now(), Task: task})
			if _, werr := f.Write(data); werr != nil {
				f.Close()
				os.Remove(path)
				return nil, fmt.Errorf("failed to write lock file: %w", werr)
			}
			if cerr := f.Close(); cerr != nil {
				os.Remove(path)
				return nil, fmt.Errorf("failed to close lock file: %w", cerr)
			}
			return func() error {
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					return err
				}
				return nil
			}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		info, readErr := readInfo(path)
		if readErr != nil {
			// Unreadable lock: fall back to its mtime.
			st, statErr := os.Stat(path)
			if statErr != nil || l.Now().Sub(st.ModTime()) <= l.StaleAfter {
				return nil, &ErrLocked{Path: path}
			}
		} else if !l.isStale(info) {
			return nil, &ErrLocked{Info: info, Path: path}
		}

		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, &ErrLocked{Info: info, Path: path}
		}
	}

	return nil, &ErrLocked{Path: path}
}

func readInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (l ProjectLock) isStale(info *Info) bool {
	return !l.IsPIDAlive(info.PID) || l.Now().Sub(info.CreatedAt) > l.StaleAfter
}

// isPIDAlive probes pid with signal 0. EPERM means the process exists.
func isPIDAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
