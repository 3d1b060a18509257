// Package kilntest holds helpers for testing template bakes.
package kilntest

import (
	"io"
	"io/fs"
	"path"
	"sort"
	"time"
)

// MemoryFS is an in-memory fs.FS for building template sources in tests.
// Parent directories are created implicitly.
type MemoryFS struct {
	files map[string]*MemoryFile
}

type MemoryFile struct {
	name    string
	content []byte
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func NewMemoryFS() *MemoryFS {
	return &MemoryFS{
		files: make(map[string]*MemoryFile),
	}
}

// NewMemoryFSFrom builds a MemoryFS from a path to content map. Paths ending
// in a slash are created as empty directories.
func NewMemoryFSFrom(files map[string]string) *MemoryFS {
	mfs := NewMemoryFS()
	for name, content := range files {
		if len(name) > 0 && name[len(name)-1] == '/' {
			mfs.Mkdir(name)
			continue
		}
		mfs.WriteFile(name, []byte(content))
	}
	return mfs
}

func (mfs *MemoryFS) WriteFile(name string, data []byte) {
	mfs.WriteFileMode(name, data, 0o644)
}

func (mfs *MemoryFS) WriteFileMode(name string, data []byte, mode fs.FileMode) {
	name = path.Clean(name)
	mfs.files[name] = &MemoryFile{
		name:    name,
		content: data,
		mode:    mode.Perm(),
		modTime: time.Now(),
	}
	mfs.ensureDir(path.Dir(name))
}

func (mfs *MemoryFS) Mkdir(name string) {
	mfs.ensureDir(path.Clean(name))
}

func (mfs *MemoryFS) ensureDir(dir string) {
	if dir == "." || dir == "/" {
		return
	}

	if _, exists := mfs.files[dir]; !exists {
		mfs.files[dir] = &MemoryFile{
			name:    dir,
			mode:    0o755 | fs.ModeDir,
			modTime: time.Now(),
			isDir:   true,
		}
		mfs.ensureDir(path.Dir(dir))
	}
}

func (mfs *MemoryFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		root := &MemoryFile{name: ".", mode: 0o755 | fs.ModeDir, isDir: true}
		return &memoryFileHandle{file: root, mfs: mfs, path: "."}, nil
	}
	file, exists := mfs.files[name]
	if !exists {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return &memoryFileHandle{file: file, mfs: mfs, path: name}, nil
}

func (mfs *MemoryFS) ReadDir(name string) ([]fs.DirEntry, error) {
	name = path.Clean(name)
	if name != "." {
		f, ok := mfs.files[name]
		if !ok {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
		}
		if !f.isDir {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
		}
	}

	var entries []fs.DirEntry
	for filePath, file := range mfs.files {
		if path.Dir(filePath) == name {
			entries = append(entries, &memoryDirEntry{file})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	return entries, nil
}

type memoryFileHandle struct {
	file    *MemoryFile
	mfs     *MemoryFS
	path    string
	offset  int
	entries []fs.DirEntry
}

func (f *memoryFileHandle) Read(b []byte) (int, error) {
	if f.file.isDir {
		return 0, &fs.PathError{Op: "read", Path: f.path, Err: fs.ErrInvalid}
	}

	if f.offset >= len(f.file.content) {
		return 0, io.EOF
	}

	n := copy(b, f.file.content[f.offset:])
	f.offset += n
	return n, nil
}

func (f *memoryFileHandle) Stat() (fs.FileInfo, error) {
	return f.file, nil
}

func (f *memoryFileHandle) Close() error {
	return nil
}

func (f *memoryFileHandle) ReadDir(n int) ([]fs.DirEntry, error) {
	if !f.file.isDir {
		return nil, &fs.PathError{Op: "readdir", Path: f.path, Err: fs.ErrInvalid}
	}
	if f.entries == nil {
		entries, err := f.mfs.ReadDir(f.path)
		if err != nil {
			return nil, err
		}
		f.entries = entries
	}

	rest := f.entries[f.offset:]
	if n <= 0 {
		f.offset = len(f.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	if n > len(rest) {
		n = len(rest)
	}
	f.offset += n
	return rest[:n], nil
}

type memoryDirEntry struct {
	file *MemoryFile
}

func (e *memoryDirEntry) Name() string {
	return path.Base(e.file.name)
}

func (e *memoryDirEntry) IsDir() bool {
	return e.file.isDir
}

func (e *memoryDirEntry) Type() fs.FileMode {
	return e.file.Mode().Type()
}

func (e *memoryDirEntry) Info() (fs.FileInfo, error) {
	return e.file, nil
}

func (f *MemoryFile) Name() string {
	return path.Base(f.name)
}

func (f *MemoryFile) Size() int64 {
	return int64(len(f.content))
}

func (f *MemoryFile) Mode() fs.FileMode {
	return f.mode
}

func (f *MemoryFile) ModTime() time.Time {
	return f.modTime
}

func (f *MemoryFile) IsDir() bool {
	return f.isDir
}

func (f *MemoryFile) Sys() any {
	return nil
}
