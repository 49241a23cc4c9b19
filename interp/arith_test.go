package interp_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestArithBasesAndPrecedence(t *testing.T) {
	c := qt.New(t)
	cases := []struct {
		src  string
		want string
	}{
		{`echo $((2 + 3 * 4))`, "14\n"},
		{`echo $(( (2 + 3) * 4 ))`, "20\n"},
		{`echo $((2**10))`, "1024\n"},
		{`echo $((7 / 2))`, "3\n"},
		{`echo $((-7 / 2))`, "-3\n"}, // truncation toward zero, not floor
		{`echo $((7 % 3))`, "1\n"},
		{`echo $((0x1F))`, "31\n"},
		{`echo $((010))`, "8\n"},
		{`echo $((2#1010))`, "10\n"},
		{`echo $((16#ff))`, "255\n"},
		{`echo $((1 << 4))`, "16\n"},
		{`echo $((1 && 0))`, "0\n"},
		{`echo $((1 || 0))`, "1\n"},
		{`x=1; echo $((x ? 2 : 3))`, "2\n"},
	}
	for _, tc := range cases {
		out, _, _ := run(t, tc.src)
		c.Assert(out, qt.Equals, tc.want, qt.Commentf("src=%s", tc.src))
	}
}

func TestArithAssignmentSetsVariable(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `(( x = 3 + 4 )); echo $((x))`)
	c.Assert(out, qt.Equals, "7\n")
}

func TestArithCStyleForZeroIterations(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `
n=0
count=0
for ((i=0; i<n; i++)); do count=$((count+1)); done
echo $count
`)
	c.Assert(out, qt.Equals, "0\n")
}

func TestArithDivisionByZero(t *testing.T) {
	c := qt.New(t)
	_, stderr, code := run(t, `echo $((1/0))`)
	c.Assert(code, qt.Not(qt.Equals), 0)
	c.Assert(stderr, qt.Not(qt.Equals), "")
}

func TestArithVariableRecursion(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `a=b; b=5; echo $((a+1))`)
	c.Assert(out, qt.Equals, "6\n")
}

func TestNegativeArraySliceOffset(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `a=(a b c d e); echo "${a[@]: -2}"`)
	c.Assert(out, qt.Equals, "d e\n")
}

func TestOutOfRangeNegativeIndexIsSoftError(t *testing.T) {
	c := qt.New(t)
	out, stderr, code := run(t, `a=(x y); echo "[${a[-5]}]"`)
	c.Assert(out, qt.Equals, "[]\n")
	c.Assert(stderr, qt.Contains, "bad array subscript")
	c.Assert(code, qt.Equals, 0) // soft error: does not fail the command
}

func TestPipefailRightmostNonZero(t *testing.T) {
	c := qt.New(t)
	out, _, code := run(t, `
set -o pipefail
true | false | true
echo done
`)
	c.Assert(out, qt.Equals, "done\n")
	c.Assert(code, qt.Equals, 0)

	_, _, code2 := run(t, `
set -o pipefail
true | false
`)
	c.Assert(code2, qt.Not(qt.Equals), 0)
}

func TestNounsetFailsOnUndefined(t *testing.T) {
	c := qt.New(t)
	_, stderr, code := run(t, `set -u; echo "${undef}"`)
	c.Assert(code, qt.Equals, 1)
	c.Assert(stderr, qt.Contains, "unbound variable")
}

func TestBraceRangeZeroPadding(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `echo {05..10}`)
	c.Assert(out, qt.Equals, "05 06 07 08 09 10\n")
}

func TestMixedIFSSplitting(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `
IFS=" ,"
x=" a  b,,c"
set -- $x
echo "$#|$1|$2|$3|$4"
`)
	c.Assert(out, qt.Equals, "4|a|b||c\n")
}

func TestReadPreservesDataWhenIFSExcludesWhitespace(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `
IFS=:
read -r a b <<< " x:y "
echo "[$a][$b]"
`)
	c.Assert(out, qt.Equals, "[ x][y ]\n")
}

func TestCommandSubstitutionDoesNotLeakAssignments(t *testing.T) {
	c := qt.New(t)
	out, _, _ := run(t, `x=orig; echo "$(x=5)"; echo "$x"`)
	c.Assert(out, qt.Equals, "\norig\n")
}

func TestCompgenWordList(t *testing.T) {
	c := qt.New(t)
	out, _, code := run(t, `compgen -W "apple apricot banana" ap`)
	c.Assert(out, qt.Equals, "apple\napricot\n")
	c.Assert(code, qt.Equals, 0)
}
