// Package write puts rendered files on disk.
package write

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrSkipped is returned when an existing file was left alone because of
// Options.SkipExisting.
var ErrSkipped = errors.New("file exists, skipped")

// ExistsError reports a file that exists and may not be replaced.
type ExistsError struct {
	Path string
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("file already exists and overwrite is false: %s", e.Path)
}

func (e *ExistsError) Is(target error) bool {
	return target == fs.ErrExist
}

// Outcome describes what a write did to the file system.
type Outcome int

const (
	Created Outcome = iota
	Replaced
	Skipped
	// Unchanged means an existing file already held the content and mode,
	// so it was not rewritten.
	Unchanged
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Replaced:
		return "replaced"
	case Skipped:
		return "skipped"
	case Unchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

type Writer interface {
	Write(path string, content []byte, options Options) (Outcome, error)
}

type Options struct {
	// Overwrite replaces existing files.
	Overwrite bool
	// SkipExisting leaves existing files untouched and reports ErrSkipped.
	// It takes precedence over Overwrite.
	SkipExisting bool
	// Atomic writes to a temporary sibling and renames it into place.
	Atomic bool
	// Mode is the permission of newly written files; zero means 0644.
	Mode fs.FileMode
}

func (o Options) mode() fs.FileMode {
	if o.Mode == 0 {
		return 0o644
	}
	return o.Mode.Perm()
}

// FileWriter writes to the local file system. Parent directories must
// already exist so that callers can account for every directory they
// create.
type FileWriter struct{}

func NewFileWriter() *FileWriter {
	return &FileWriter{}
}

func (fw *FileWriter) Write(path string, content []byte, options Options) (Outcome, error) {
	info, err := os.Lstat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return Skipped, fmt.Errorf("cannot write %s: is a directory", path)
		}
		if options.SkipExisting {
			return Skipped, ErrSkipped
		}
		if !options.Overwrite {
			return Skipped, &ExistsError{Path: path}
		}
		if info.Mode().Perm() == options.mode() {
			needs, err := fw.NeedsWrite(path, content)
			if err != nil {
				return Skipped, err
			}
			if !needs {
				return Unchanged, nil
			}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return Skipped, err
	}

	outcome := Created
	if err == nil {
		outcome = Replaced
	}

	if options.Atomic {
		return outcome, fw.atomicWrite(path, content, options.mode())
	}
	return outcome, fw.directWrite(path, content, options.mode(), outcome == Created)
}

// NeedsWrite reports whether path is missing or holds different content.
func (fw *FileWriter) NeedsWrite(path string, content []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, err
	}

	return string(existing) != string(content), nil
}

func (fw *FileWriter) atomicWrite(path string, content []byte, mode fs.FileMode) error {
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tempPath := file.Name()

	if _, err := file.Write(content); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}

	if err := file.Chmod(mode); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return err
	}
	return nil
}

func (fw *FileWriter) directWrite(path string, content []byte, mode fs.FileMode, exclusive bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if exclusive {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, mode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &ExistsError{Path: path}
		}
		return err
	}
	if _, err := file.Write(content); err != nil {
		file.Close()
		return err
	}
	if err := file.Chmod(mode); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
