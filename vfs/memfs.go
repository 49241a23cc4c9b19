package vfs

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// MemFS is an in-memory Fs backed by afero.MemMapFs, with a small symlink
// table layered on top since afero has no native symlink concept.
type MemFS struct {
	fs afero.Fs

	mu       sync.RWMutex
	symlinks map[string]string // absolute path -> target (may be relative)
}

// NewMemFS returns an empty in-memory filesystem rooted at "/".
func NewMemFS() *MemFS {
	return &MemFS{
		fs:       afero.NewMemMapFs(),
		symlinks: make(map[string]string),
	}
}

func clean(name string) string {
	if name == "" {
		return "/"
	}
	if !path.IsAbs(name) {
		name = "/" + name
	}
	return path.Clean(name)
}

func (m *MemFS) resolve(name string) string {
	name = clean(name)
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]bool{}
	for {
		target, ok := m.symlinks[name]
		if !ok {
			return name
		}
		if seen[name] {
			return name // cycle; let the underlying op fail naturally
		}
		seen[name] = true
		if path.IsAbs(target) {
			name = path.Clean(target)
		} else {
			name = path.Clean(path.Join(path.Dir(name), target))
		}
	}
}

func (m *MemFS) Open(name string) (File, error) {
	f, err := m.fs.Open(m.resolve(name))
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (m *MemFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	f, err := m.fs.OpenFile(m.resolve(name), flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (m *MemFS) Stat(name string) (FileInfo, error) {
	return m.fs.Stat(m.resolve(name))
}

func (m *MemFS) Lstat(name string) (FileInfo, error) {
	clean := clean(name)
	m.mu.RLock()
	target, isLink := m.symlinks[clean]
	m.mu.RUnlock()
	if isLink {
		return &symlinkInfo{name: path.Base(clean), target: target}, nil
	}
	return m.fs.Stat(clean)
}

func (m *MemFS) Mkdir(name string, perm os.FileMode) error {
	return m.fs.Mkdir(m.resolve(name), perm)
}

func (m *MemFS) MkdirAll(name string, perm os.FileMode) error {
	return m.fs.MkdirAll(m.resolve(name), perm)
}

func (m *MemFS) Remove(name string) error {
	clean := clean(name)
	m.mu.Lock()
	delete(m.symlinks, clean)
	m.mu.Unlock()
	return m.fs.Remove(clean)
}

func (m *MemFS) RemoveAll(name string) error {
	clean := clean(name)
	m.mu.Lock()
	for p := range m.symlinks {
		if p == clean || (len(p) > len(clean) && p[:len(clean)+1] == clean+"/") {
			delete(m.symlinks, p)
		}
	}
	m.mu.Unlock()
	return m.fs.RemoveAll(clean)
}

func (m *MemFS) Rename(oldname, newname string) error {
	o, n := clean(oldname), clean(newname)
	m.mu.Lock()
	if target, ok := m.symlinks[o]; ok {
		delete(m.symlinks, o)
		m.symlinks[n] = target
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	return m.fs.Rename(m.resolve(oldname), m.resolve(newname))
}

func (m *MemFS) ReadDir(name string) ([]fs.DirEntry, error) {
	infos, err := afero.ReadDir(m.fs, m.resolve(name))
	if err != nil {
		return nil, err
	}
	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = fs.FileInfoToDirEntry(info)
	}
	return entries, nil
}

func (m *MemFS) Symlink(oldname, newname string) error {
	clean := clean(newname)
	m.mu.Lock()
	m.symlinks[clean] = oldname
	m.mu.Unlock()
	return nil
}

func (m *MemFS) Readlink(name string) (string, error) {
	clean := clean(name)
	m.mu.RLock()
	target, ok := m.symlinks[clean]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("readlink %s: invalid argument", name)
	}
	return target, nil
}

func (m *MemFS) Chmod(name string, mode os.FileMode) error {
	return m.fs.Chmod(m.resolve(name), mode)
}

// symlinkInfo is a synthetic fs.FileInfo for Lstat on a symlink path.
type symlinkInfo struct {
	name   string
	target string
}

func (s *symlinkInfo) Name() string      { return s.name }
func (s *symlinkInfo) Size() int64       { return int64(len(s.target)) }
func (s *symlinkInfo) Mode() fs.FileMode { return fs.ModeSymlink | 0777 }
func (s *symlinkInfo) ModTime() time.Time { return time.Time{} }
func (s *symlinkInfo) IsDir() bool       { return false }
func (s *symlinkInfo) Sys() any          { return nil }
