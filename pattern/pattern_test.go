package pattern

import (
	"regexp"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestRegexpBasic(t *testing.T) {
	c := qt.New(t)
	cases := []struct {
		pat, s string
		mode   Mode
		want   bool
	}{
		{"*.go", "main.go", EntireString, true},
		{"*.go", "main.txt", EntireString, false},
		{"foo?bar", "fooXbar", EntireString, true},
		{"foo?bar", "fooXYbar", EntireString, false},
		{"[abc]x", "bx", EntireString, true},
		{"[!abc]x", "dx", EntireString, true},
		{"[[:digit:]]+", "5", EntireString, false}, // '+' is literal without extglob
		{"HELLO", "hello", EntireString | NoGlobCase, true},
	}
	for _, tc := range cases {
		re, err := Regexp(tc.pat, tc.mode)
		c.Assert(err, qt.IsNil)
		rx, err := regexp.Compile(re)
		c.Assert(err, qt.IsNil)
		c.Assert(rx.MatchString(tc.s), qt.Equals, tc.want, qt.Commentf("pattern %q vs %q", tc.pat, tc.s))
	}
}

func TestBracketWithPosixClassAndExtraChars(t *testing.T) {
	c := qt.New(t)
	re, err := Regexp("[[:alpha:]_]*", EntireString)
	c.Assert(err, qt.IsNil)
	rx := regexp.MustCompile(re)
	c.Assert(rx.MatchString("_foo"), qt.IsTrue)
	c.Assert(rx.MatchString("foo_bar"), qt.IsTrue)
	c.Assert(rx.MatchString("1foo"), qt.IsFalse)
}

func TestExtglob(t *testing.T) {
	c := qt.New(t)
	re, err := Regexp("@(foo|bar)baz", Extglob|EntireString)
	c.Assert(err, qt.IsNil)
	rx := regexp.MustCompile(re)
	c.Assert(rx.MatchString("foobaz"), qt.IsTrue)
	c.Assert(rx.MatchString("barbaz"), qt.IsTrue)
	c.Assert(rx.MatchString("quxbaz"), qt.IsFalse)

	re2, err := Regexp("+(ab)", Extglob|EntireString)
	c.Assert(err, qt.IsNil)
	rx2 := regexp.MustCompile(re2)
	c.Assert(rx2.MatchString("ababab"), qt.IsTrue)
	c.Assert(rx2.MatchString(""), qt.IsFalse)
}

func TestGlobStar(t *testing.T) {
	c := qt.New(t)
	re, err := Regexp("a/**/b", GlobStar|EntireString)
	c.Assert(err, qt.IsNil)
	rx := regexp.MustCompile(re)
	c.Assert(rx.MatchString("a/x/y/b"), qt.IsTrue)
}

func TestHasMeta(t *testing.T) {
	c := qt.New(t)
	c.Assert(HasMeta("plain", false), qt.IsFalse)
	c.Assert(HasMeta("a*b", false), qt.IsTrue)
	c.Assert(HasMeta("a@(b)", true), qt.IsTrue)
	c.Assert(HasMeta("a@(b)", false), qt.IsFalse)
}
