package shell_test

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/vercel-labs/just-bash-sub009/shell"
)

func TestExecBasic(t *testing.T) {
	c := qt.New(t)
	sh := shell.New()
	res, err := sh.Exec(context.Background(), "echo hello")
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "hello\n")
	c.Assert(res.ExitCode, qt.Equals, 0)
}

func TestPersistentSessionState(t *testing.T) {
	c := qt.New(t)
	sh := shell.New()
	ctx := context.Background()

	_, err := sh.Exec(ctx, "x=42")
	c.Assert(err, qt.IsNil)

	res, err := sh.Exec(ctx, "echo $x")
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "42\n")

	_, err = sh.Exec(ctx, "cd /tmp")
	c.Assert(err, qt.IsNil)
	c.Assert(sh.Dir(), qt.Equals, "/tmp")
}

func TestPersistentFunctionsAcrossCalls(t *testing.T) {
	c := qt.New(t)
	sh := shell.New()
	ctx := context.Background()

	_, err := sh.Exec(ctx, "greet() { echo \"hi $1\"; }")
	c.Assert(err, qt.IsNil)

	res, err := sh.Exec(ctx, "greet world")
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "hi world\n")
}

func TestWithEnv(t *testing.T) {
	c := qt.New(t)
	sh := shell.New(shell.WithEnv(map[string]string{"FOO": "bar"}))
	res, err := sh.Exec(context.Background(), "echo $FOO")
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "bar\n")
}

func TestSyntaxErrorReturnsExitCode2(t *testing.T) {
	c := qt.New(t)
	sh := shell.New()
	res, err := sh.Exec(context.Background(), "if then fi (((")
	c.Assert(err, qt.IsNil)
	c.Assert(res.ExitCode, qt.Equals, 2)
	c.Assert(res.Stderr, qt.Not(qt.Equals), "")
}

func TestWithLimitsBoundsIteration(t *testing.T) {
	c := qt.New(t)
	sh := shell.New(shell.WithLimits(100, 50, 1<<20))
	res, err := sh.Exec(context.Background(), "i=0; while true; do i=$((i+1)); done")
	c.Assert(err, qt.IsNil)
	c.Assert(res.ExitCode, qt.Not(qt.Equals), 0)
}

func TestExecWithStdin(t *testing.T) {
	c := qt.New(t)
	sh := shell.New()
	res, err := sh.ExecWithStdin(context.Background(), "read line; echo \"got:$line\"", "hello there\n")
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "got:hello there\n")
}

func TestWriteFileThenReadViaScript(t *testing.T) {
	c := qt.New(t)
	sh := shell.New()
	err := sh.WriteFile("/root/data.txt", "seeded content\n")
	c.Assert(err, qt.IsNil)

	res, err := sh.Exec(context.Background(), "cat /root/data.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "seeded content\n")
}

func TestReadFileAfterScriptWrite(t *testing.T) {
	c := qt.New(t)
	sh := shell.New()
	_, err := sh.Exec(context.Background(), "echo written > /root/out.txt")
	c.Assert(err, qt.IsNil)

	content, err := sh.ReadFile("/root/out.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(content, qt.Equals, "written\n")
}

func TestContextTimeout(t *testing.T) {
	c := qt.New(t)
	// Small iteration cap keeps Run bounded; the ctx is already expired
	// by the time Run returns, so ExecWithStdin reports ctx.Err() as its
	// error regardless of which cap fires the loop's exit first.
	sh := shell.New(shell.WithLimits(1000, 50, 1<<20), shell.WithTimeout(10*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), time.Microsecond)
	defer cancel()
	time.Sleep(time.Millisecond)
	_, err := sh.Exec(ctx, "i=0; while [ $i -lt 100000 ]; do i=$((i+1)); done")
	c.Assert(err, qt.Not(qt.IsNil))
}
