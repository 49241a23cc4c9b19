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

func run(t *testing.T, src string) (string, string, int) {
	t.Helper()
	p := syntax.NewParser()
	script, err := p.Parse(src, "test")
	qt.Assert(t, err, qt.IsNil)

	var stdout, stderr bytes.Buffer
	it := interp.New(vfs.NewMemFS(), command.NewDefaultRegistry(), "/root",
		strings.NewReader(""), &stdout, &stderr, nil)
	code := it.Run(script)
	return stdout.String(), stderr.String(), code
}

func TestEchoHelloWorld(t *testing.T) {
	c := qt.New(t)
	out, _, code := run(t, "echo hello world")
	c.Assert(out, qt.Equals, "hello world\n")
	c.Assert(code, qt.Equals, 0)
}

func TestArithmetic(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `x=5; y=3; echo $((x*y+1))`)
	c.Assert(out, qt.Equals, "16\n")
}

func TestArrayBasics(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `a=(one two three); echo "${a[@]}"; echo "${#a[@]}"; echo "${a[-1]}"`)
	c.Assert(out, qt.Equals, "one two three\n3\nthree\n")
}

func TestLocalScoping(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `
x=outer
f() { local x=inner; echo $x; }
f
echo $x
`)
	c.Assert(out, qt.Equals, "inner\nouter\n")
}

func TestErrexit(t *testing.T) {
	c := qt.New(t)
	out, _, code := run(t, `
set -e
echo before
false
echo after
`)
	c.Assert(out, qt.Equals, "before\n")
	c.Assert(code, qt.Equals, 1)
}

func TestPipelineWordCount(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `for i in 1 2 3 4; do echo line$i; done | wc -l`)
	c.Assert(strings.TrimSpace(out), qt.Equals, "4")
}

func TestCaseMatching(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `
for w in cat.go cat.txt cat; do
  case $w in
    *.go) echo go-file ;;
    *.txt) echo text-file ;;
    *) echo other ;;
  esac
done
`)
	c.Assert(out, qt.Equals, "go-file\ntext-file\nother\n")
}

func TestParamDefaultVsUnset(t *testing.T) {
	c := qt.New(t)
	out1, _, _ := run(t, `unset v; echo "${v:-default}"`)
	c.Assert(out1, qt.Equals, "default\n")

	out2, _, _ := run(t, `v=""; echo "${v-default}"`)
	c.Assert(out2, qt.Equals, "\n")
}

func TestBreakContinueLevels(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `
for i in 1 2 3; do
  for j in a b c; do
    if [ "$j" = "b" ]; then continue 2; fi
    echo "$i-$j"
  done
done
`)
	c.Assert(out, qt.Equals, "1-a\n2-a\n3-a\n")
}

func TestFunctionReturnCode(t *testing.T) {
	c := qt.New(t)
	_, _, code := run(t, `
f() { return 3; }
f
`)
	c.Assert(code, qt.Equals, 3)
}

func TestSubshellDoesNotLeakVars(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `
x=1
( x=2; echo "inner=$x" )
echo "outer=$x"
`)
	c.Assert(out, qt.Equals, "inner=2\nouter=1\n")
}

func TestHeredoc(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, "cat <<EOF\nhello\nworld\nEOF\n")
	c.Assert(out, qt.Equals, "hello\nworld\n")
}

func TestRedirectToFile(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `
echo hi > /tmp/f.txt
cat /tmp/f.txt
`)
	c.Assert(out, qt.Equals, "hi\n")
}

func TestAndOrChaining(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `true && echo yes || echo no`)
	c.Assert(out, qt.Equals, "yes\n")

	out2, _, _ := run(t, `false && echo yes || echo no`)
	c.Assert(out2, qt.Equals, "no\n")
}

func TestCStyleForLoop(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `for ((i=0; i<3; i++)); do echo $i; done`)
	c.Assert(out, qt.Equals, "0\n1\n2\n")
}
