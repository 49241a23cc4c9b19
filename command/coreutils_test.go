package command_test

import (
	"bytes"
	"os"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vercel-labs/just-bash-sub009/command"
	"github.com/vercel-labs/just-bash-sub009/vfs"
)

func newCtx(fs vfs.Fs, stdin string) (*command.Context, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &command.Context{
		Stdin:  strings.NewReader(stdin),
		Stdout: &out,
		Stderr: &errOut,
		Dir:    "/root",
		Fs:     fs,
	}, &out, &errOut
}

func TestEchoDefaultRegistryLookup(t *testing.T) {
	c := qt.New(t)
	reg := command.NewDefaultRegistry()
	cmd, ok := reg.Lookup("echo")
	c.Assert(ok, qt.IsTrue)

	ctx, out, _ := newCtx(vfs.NewMemFS(), "")
	code := cmd.Run([]string{"echo", "hello", "world"}, ctx)
	c.Assert(code, qt.Equals, 0)
	c.Assert(out.String(), qt.Equals, "hello world\n")
}

func TestEchoNoNewlineFlag(t *testing.T) {
	c := qt.New(t)
	reg := command.NewDefaultRegistry()
	cmd, _ := reg.Lookup("echo")

	ctx, out, _ := newCtx(vfs.NewMemFS(), "")
	cmd.Run([]string{"echo", "-n", "no-newline"}, ctx)
	c.Assert(out.String(), qt.Equals, "no-newline")
}

func TestCatReadsFileAndStdin(t *testing.T) {
	c := qt.New(t)
	fs := vfs.NewMemFS()
	f, err := fs.OpenFile("/root/a.txt", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	c.Assert(err, qt.IsNil)
	f.Write([]byte("file content\n"))
	f.Close()

	reg := command.NewDefaultRegistry()
	cmd, _ := reg.Lookup("cat")

	ctx, out, _ := newCtx(fs, "")
	code := cmd.Run([]string{"cat", "a.txt"}, ctx)
	c.Assert(code, qt.Equals, 0)
	c.Assert(out.String(), qt.Equals, "file content\n")

	ctx2, out2, _ := newCtx(fs, "piped in\n")
	cmd.Run([]string{"cat"}, ctx2)
	c.Assert(out2.String(), qt.Equals, "piped in\n")
}

func TestCatMissingFile(t *testing.T) {
	c := qt.New(t)
	reg := command.NewDefaultRegistry()
	cmd, _ := reg.Lookup("cat")

	ctx, _, errOut := newCtx(vfs.NewMemFS(), "")
	code := cmd.Run([]string{"cat", "/missing.txt"}, ctx)
	c.Assert(code, qt.Equals, 1)
	c.Assert(errOut.String(), qt.Contains, "No such file or directory")
}

func TestWcLinesWordsBytes(t *testing.T) {
	c := qt.New(t)
	reg := command.NewDefaultRegistry()
	cmd, _ := reg.Lookup("wc")

	ctx, out, _ := newCtx(vfs.NewMemFS(), "one two\nthree\n")
	cmd.Run([]string{"wc"}, ctx)
	c.Assert(out.String(), qt.Equals, "2 3 14\n")
}

func TestWcLinesOnly(t *testing.T) {
	c := qt.New(t)
	reg := command.NewDefaultRegistry()
	cmd, _ := reg.Lookup("wc")

	ctx, out, _ := newCtx(vfs.NewMemFS(), "a\nb\nc\n")
	cmd.Run([]string{"wc", "-l"}, ctx)
	c.Assert(out.String(), qt.Equals, "3\n")
}

func TestHeadAndTail(t *testing.T) {
	c := qt.New(t)
	reg := command.NewDefaultRegistry()
	input := "1\n2\n3\n4\n5\n"

	headCmd, _ := reg.Lookup("head")
	ctx, out, _ := newCtx(vfs.NewMemFS(), input)
	headCmd.Run([]string{"head", "-n", "2"}, ctx)
	c.Assert(out.String(), qt.Equals, "1\n2\n")

	tailCmd, _ := reg.Lookup("tail")
	ctx2, out2, _ := newCtx(vfs.NewMemFS(), input)
	tailCmd.Run([]string{"tail", "-n", "2"}, ctx2)
	c.Assert(out2.String(), qt.Equals, "4\n5\n")
}

func TestSortDefaultAndReverseAndNumeric(t *testing.T) {
	c := qt.New(t)
	reg := command.NewDefaultRegistry()
	sortCmd, _ := reg.Lookup("sort")

	ctx, out, _ := newCtx(vfs.NewMemFS(), "banana\napple\ncherry\n")
	sortCmd.Run([]string{"sort"}, ctx)
	c.Assert(out.String(), qt.Equals, "apple\nbanana\ncherry\n")

	ctx2, out2, _ := newCtx(vfs.NewMemFS(), "10\n2\n1\n")
	sortCmd.Run([]string{"sort", "-n"}, ctx2)
	c.Assert(out2.String(), qt.Equals, "1\n2\n10\n")
}

func TestGrepFindsMatchingLines(t *testing.T) {
	c := qt.New(t)
	reg := command.NewDefaultRegistry()
	grepCmd, _ := reg.Lookup("grep")

	ctx, out, _ := newCtx(vfs.NewMemFS(), "apple\nbanana\ngrape\n")
	code := grepCmd.Run([]string{"grep", "ap"}, ctx)
	c.Assert(code, qt.Equals, 0)
	c.Assert(out.String(), qt.Equals, "apple\ngrape\n")

	ctx2, out2, _ := newCtx(vfs.NewMemFS(), "apple\nbanana\n")
	code2 := grepCmd.Run([]string{"grep", "zzz"}, ctx2)
	c.Assert(code2, qt.Equals, 1)
	c.Assert(out2.String(), qt.Equals, "")
}

func TestRegistryNamesIncludesDefaults(t *testing.T) {
	c := qt.New(t)
	reg := command.NewDefaultRegistry()
	names := reg.Names()
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	for _, want := range []string{"echo", "cat", "wc", "sort", "head", "tail", "grep"} {
		c.Assert(found[want], qt.IsTrue, qt.Commentf("missing %s", want))
	}
}
