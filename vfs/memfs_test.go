package vfs

import (
	"os"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestMemFSBasics(t *testing.T) {
	c := qt.New(t)
	m := NewMemFS()

	c.Assert(m.MkdirAll("/a/b", 0755), qt.IsNil)
	f, err := m.OpenFile("/a/b/file.txt", os.O_CREATE|os.O_WRONLY, 0644)
	c.Assert(err, qt.IsNil)
	_, err = f.Write([]byte("hello"))
	c.Assert(err, qt.IsNil)
	c.Assert(f.Close(), qt.IsNil)

	info, err := m.Stat("/a/b/file.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(info.Size(), qt.Equals, int64(5))

	entries, err := m.ReadDir("/a/b")
	c.Assert(err, qt.IsNil)
	c.Assert(len(entries), qt.Equals, 1)
}

func TestMemFSSymlink(t *testing.T) {
	c := qt.New(t)
	m := NewMemFS()
	c.Assert(m.MkdirAll("/real", 0755), qt.IsNil)
	f, err := m.OpenFile("/real/target.txt", os.O_CREATE|os.O_WRONLY, 0644)
	c.Assert(err, qt.IsNil)
	f.Write([]byte("data"))
	f.Close()

	c.Assert(m.Symlink("/real/target.txt", "/link.txt"), qt.IsNil)
	info, err := m.Stat("/link.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(info.Size(), qt.Equals, int64(4))

	target, err := m.Readlink("/link.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(target, qt.Equals, "/real/target.txt")

	linfo, err := m.Lstat("/link.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(linfo.Mode()&os.ModeSymlink, qt.Not(qt.Equals), os.FileMode(0))
}
