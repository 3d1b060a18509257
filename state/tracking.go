package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// TrackedPath is a file system entry created during a bake.
type TrackedPath struct {
	Path string
	Dir  bool
}

// Tracker records the paths a bake creates, in creation order, so that a
// failed bake can be undone. Paths that existed before the bake are never
// recorded.
type Tracker struct {
	mu      sync.Mutex
	created []TrackedPath
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// MkdirAll creates dir and any missing parents, recording each directory
// it creates.
func (t *Tracker) MkdirAll(dir string, perm fs.FileMode) error {
	dir = filepath.Clean(dir)

	var missing []string
	for p := dir; ; p = filepath.Dir(p) {
		info, err := os.Stat(p)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("mkdir %s: %s is not a directory", dir, p)
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		missing = append(missing, p)
		if parent := filepath.Dir(p); parent == p {
			break
		}
	}

	for i := len(missing) - 1; i >= 0; i-- {
		if err := os.Mkdir(missing[i], perm); err != nil {
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			return err
		}
		t.record(TrackedPath{Path: missing[i], Dir: true})
	}
	return nil
}

// RecordFile notes a file created by the caller.
func (t *Tracker) RecordFile(path string) {
	t.record(TrackedPath{Path: filepath.Clean(path)})
}

func (t *Tracker) record(p TrackedPath) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.created = append(t.created, p)
}

// Created returns the recorded paths in creation order.
func (t *Tracker) Created() []TrackedPath {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TrackedPath(nil), t.created...)
}

// Files returns the recorded regular files in creation order.
func (t *Tracker) Files() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var files []string
	for _, p := range t.created {
		if !p.Dir {
			files = append(files, p.Path)
		}
	}
	return files
}

// Rollback removes every recorded path, newest first. A directory is removed
// with its contents, since everything inside a directory the bake created
// also came from the bake or its hooks. Entries already gone are ignored.
// The record is cleared even when some removals fail.
func (t *Tracker) Rollback() error {
	t.mu.Lock()
	created := t.created
	t.created = nil
	t.mu.Unlock()

	var errs []error
	for i := len(created) - 1; i >= 0; i-- {
		p := created[i]
		var err error
		if p.Dir {
			err = os.RemoveAll(p.Path)
		} else {
			err = os.Remove(p.Path)
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
