package interp_test

import (
	"bytes"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/vercel-labs/just-bash-sub009/command"
	"github.com/vercel-labs/just-bash-sub009/interp"
	"github.com/vercel-labs/just-bash-sub009/syntax"
	"github.com/vercel-labs/just-bash-sub009/vfs"
)

func runCond(t *testing.T, src string) (string, int) {
	t.Helper()
	p := syntax.NewParser()
	script, err := p.Parse(src, "test")
	qt.Assert(t, err, qt.IsNil)

	fs := vfs.NewMemFS()
	var stdout, stderr bytes.Buffer
	it := interp.New(fs, command.NewDefaultRegistry(), "/root",
		strings.NewReader(""), &stdout, &stderr, nil)
	code := it.Run(script)
	return stdout.String(), code
}

func TestCondStringTests(t *testing.T) {
	c := qt.New(t)
	cases := []struct {
		src  string
		want string
	}{
		{`[[ -z "" ]] && echo yes || echo no`, "yes\n"},
		{`[[ -n "x" ]] && echo yes || echo no`, "yes\n"},
		{`[[ -z "x" ]] && echo yes || echo no`, "no\n"},
	}
	for _, tc := range cases {
		out, _ := runCond(t, tc.src)
		c.Assert(out, qt.Equals, tc.want, qt.Commentf("src=%s", tc.src))
	}
}

func TestCondGlobMatch(t *testing.T) {
	c := qt.New(t)
	out, _ := runCond(t, `[[ "hello.go" == *.go ]] && echo match || echo nomatch`)
	c.Assert(out, qt.Equals, "match\n")

	out2, _ := runCond(t, `[[ "hello.txt" == *.go ]] && echo match || echo nomatch`)
	c.Assert(out2, qt.Equals, "nomatch\n")

	out3, _ := runCond(t, `[[ "hello.go" != *.go ]] && echo match || echo nomatch`)
	c.Assert(out3, qt.Equals, "nomatch\n")
}

func TestCondRegexMatch(t *testing.T) {
	c := qt.New(t)
	out, _ := runCond(t, `
[[ "foo123" =~ ^foo([0-9]+)$ ]]
echo "${BASH_REMATCH[0]}"
echo "${BASH_REMATCH[1]}"
`)
	c.Assert(out, qt.Equals, "foo123\n123\n")
}

func TestCondArithComparisons(t *testing.T) {
	c := qt.New(t)
	cases := []struct {
		src  string
		want string
	}{
		{`[[ 3 -lt 5 ]] && echo yes || echo no`, "yes\n"},
		{`[[ 5 -le 5 ]] && echo yes || echo no`, "yes\n"},
		{`[[ 5 -gt 5 ]] && echo yes || echo no`, "no\n"},
		{`[[ 5 -eq 5 ]] && echo yes || echo no`, "yes\n"},
		{`[[ 5 -ne 5 ]] && echo yes || echo no`, "no\n"},
	}
	for _, tc := range cases {
		out, _ := runCond(t, tc.src)
		c.Assert(out, qt.Equals, tc.want, qt.Commentf("src=%s", tc.src))
	}
}

func TestCondFileTests(t *testing.T) {
	c := qt.New(t)
	out, _ := runCond(t, `
echo content > /tmp/exists.txt
[[ -e /tmp/exists.txt ]] && echo exists || echo missing
[[ -f /tmp/exists.txt ]] && echo isfile || echo notfile
[[ -d /tmp/exists.txt ]] && echo isdir || echo notdir
[[ -s /tmp/exists.txt ]] && echo nonempty || echo empty
[[ -e /tmp/nope.txt ]] && echo exists || echo missing
`)
	c.Assert(out, qt.Equals, "exists\nisfile\nnotdir\nnonempty\nmissing\n")
}

func TestCondLogicalComposition(t *testing.T) {
	c := qt.New(t)
	out, _ := runCond(t, `[[ ( 1 -eq 1 ) && ( -n "x" ) ]] && echo yes || echo no`)
	c.Assert(out, qt.Equals, "yes\n")

	out2, _ := runCond(t, `[[ ! ( 1 -eq 2 ) ]] && echo yes || echo no`)
	c.Assert(out2, qt.Equals, "yes\n")

	out3, _ := runCond(t, `[[ 1 -eq 2 || 3 -eq 3 ]] && echo yes || echo no`)
	c.Assert(out3, qt.Equals, "yes\n")
}

func TestCondVarExistence(t *testing.T) {
	c := qt.New(t)
	out, _ := runCond(t, `
unset v
[[ -v v ]] && echo set || echo unset
v=1
[[ -v v ]] && echo set || echo unset
`)
	c.Assert(out, qt.Equals, "unset\nset\n")

	out2, _ := runCond(t, `
a=(x y z)
[[ -v a[1] ]] && echo set || echo unset
[[ -v a[9] ]] && echo set || echo unset
`)
	c.Assert(out2, qt.Equals, "set\nunset\n")
}

func TestCondLexicographic(t *testing.T) {
	c := qt.New(t)
	out, _ := runCond(t, `[[ "abc" < "abd" ]] && echo yes || echo no`)
	c.Assert(out, qt.Equals, "yes\n")
}
