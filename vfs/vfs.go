// Package vfs defines the virtual filesystem contract the interpreter runs
// against, plus an in-memory implementation backed by afero.
package vfs

import (
	"io/fs"
	"os"
	"time"
)

// FileInfo mirrors the subset of os.FileInfo the interpreter's file-test
// operators and builtins need, without pulling in a real filesystem.
type FileInfo = fs.FileInfo

// Fs is the contract a sandboxed filesystem must satisfy so the
// interpreter's redirections, file-test conditionals ([[ -f x ]] and
// friends), and builtins (cd, pwd, ls-like tools) can run against any
// backing store: a purely in-memory tree, a chroot-style overlay on the
// real disk, or a network-backed store.
type Fs interface {
	// Open opens name for reading.
	Open(name string) (File, error)
	// OpenFile opens name with the given flags (os.O_RDONLY, O_CREATE,
	// O_APPEND, O_TRUNC, ...) and permissions.
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	// Stat returns file metadata, following symlinks.
	Stat(name string) (FileInfo, error)
	// Lstat returns file metadata without following a trailing symlink.
	Lstat(name string) (FileInfo, error)
	// Mkdir creates a single directory.
	Mkdir(name string, perm os.FileMode) error
	// MkdirAll creates name and any missing parents.
	MkdirAll(name string, perm os.FileMode) error
	// Remove deletes a single file or empty directory.
	Remove(name string) error
	// RemoveAll recursively deletes name.
	RemoveAll(name string) error
	// Rename moves oldname to newname.
	Rename(oldname, newname string) error
	// ReadDir lists the entries of a directory.
	ReadDir(name string) ([]fs.DirEntry, error)
	// Symlink creates newname as a symlink pointing at oldname.
	Symlink(oldname, newname string) error
	// Readlink returns the target of a symlink.
	Readlink(name string) (string, error)
	// Chmod changes a file's permission bits.
	Chmod(name string, mode os.FileMode) error
}

// File is the subset of *os.File the interpreter's redirection machinery
// and builtins need.
type File interface {
	Name() string
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	Seek(offset int64, whence int) (int64, error)
	Stat() (FileInfo, error)
}

// ErrNotExist and friends are re-exported so callers can keep using
// errors.Is against the standard fs sentinels regardless of backend.
var (
	ErrNotExist = fs.ErrNotExist
	ErrExist    = fs.ErrExist
	ErrPermission = fs.ErrPermission
)

// timeNow is a replaceable clock seam kept distinct from time.Now; no code
// in this package reads it.
var timeNow = time.Now
