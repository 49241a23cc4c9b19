// Package pattern translates shell pathname/matching patterns (globs, and
// extglob operators when enabled) into Go regular expressions.
//
// The approach mirrors mvdan.cc/sh/v3/pattern: walk the pattern byte by
// byte, emitting the equivalent regexp fragment, and let regexp/syntax do
// the actual matching. Extglob adds a small recursive-descent layer on top
// for the ?(...) *(...) +(...) @(...) !(...) group operators.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Mode controls optional matching behavior.
type Mode uint

const (
	EntireString Mode = 1 << iota // anchor with ^ and $
	NoGlobCase                    // case-insensitive match
	GlobStar                      // ** matches across path separators
	NoDotGlob                     // a leading '.' is not matched by * or ?
	Extglob                       // honor ?(...) *(...) +(...) @(...) !(...)
)

// SyntaxError reports a malformed pattern.
type SyntaxError struct {
	msg string
}

func (e *SyntaxError) Error() string { return e.msg }

// Regexp converts a shell pattern into a Go regular expression string.
func Regexp(pat string, mode Mode) (string, error) {
	var sb strings.Builder
	sb.WriteString("(?s")
	if mode&NoGlobCase != 0 {
		sb.WriteString("i")
	}
	sb.WriteString(")")
	if mode&EntireString != 0 {
		sb.WriteString("^")
	}
	p := &translator{s: pat, mode: mode}
	if err := p.translateSeq(&sb, ""); err != nil {
		return "", err
	}
	if mode&EntireString != 0 {
		sb.WriteString("$")
	}
	return sb.String(), nil
}

// Compile is a convenience wrapper building a *regexp.Regexp directly.
func Compile(pat string, mode Mode) (*regexp.Regexp, error) {
	re, err := Regexp(pat, mode|EntireString)
	if err != nil {
		return nil, err
	}
	return regexp.Compile(re)
}

// HasMeta reports whether pat contains any pattern metacharacter, so
// callers can skip the globbing machinery entirely for literal words.
func HasMeta(pat string, extglob bool) bool {
	for i := 0; i < len(pat); i++ {
		switch pat[i] {
		case '*', '?', '[', '\\':
			return true
		case '(', '@', '+', '!':
			if extglob && i+1 < len(pat) && pat[i+1] == '(' {
				return true
			}
		}
	}
	return false
}

// QuoteMeta escapes any pattern metacharacters in s so it matches itself
// literally.
func QuoteMeta(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

type translator struct {
	s    string
	i    int
	mode Mode
}

func (t *translator) eof() bool { return t.i >= len(t.s) }
func (t *translator) cur() byte {
	if t.eof() {
		return 0
	}
	return t.s[t.i]
}

// translateSeq consumes pattern text up to (and not including) any byte in
// stopSet, or EOF.
func (t *translator) translateSeq(sb *strings.Builder, stopSet string) error {
	first := true
	for !t.eof() {
		if stopSet != "" && strings.IndexByte(stopSet, t.cur()) >= 0 {
			return nil
		}
		if err := t.translateOne(sb, first); err != nil {
			return err
		}
		first = false
	}
	return nil
}

func (t *translator) translateOne(sb *strings.Builder, first bool) error {
	c := t.s[t.i]
	isExtglobLead := (c == '?' || c == '*' || c == '+' || c == '@' || c == '!') &&
		t.i+1 < len(t.s) && t.s[t.i+1] == '('
	if t.mode&Extglob != 0 && isExtglobLead {
		return t.translateExtglob(sb)
	}
	switch c {
	case '*':
		t.i++
		if t.mode&GlobStar != 0 && t.cur() == '*' {
			t.i++
			sb.WriteString("(?:[^/]*(?:/[^/]*)*)")
			return nil
		}
		if t.mode&NoDotGlob != 0 && first {
			sb.WriteString("([^.][^/]*)?")
			return nil
		}
		sb.WriteString(".*")
		return nil
	case '?':
		t.i++
		if t.mode&NoDotGlob != 0 && first {
			sb.WriteString("[^.]")
			return nil
		}
		sb.WriteString(".")
		return nil
	case '\\':
		t.i++
		if t.eof() {
			return &SyntaxError{msg: `\ at end of pattern`}
		}
		sb.WriteString(regexp.QuoteMeta(string(t.s[t.i])))
		t.i++
		return nil
	case '[':
		return t.translateBracket(sb)
	}
	sb.WriteString(regexp.QuoteMeta(string(c)))
	t.i++
	return nil
}

// translateExtglob handles ?(p1|p2) *(...) +(...) @(...) !(...).
func (t *translator) translateExtglob(sb *strings.Builder) error {
	kind := t.s[t.i]
	t.i += 2 // kind + '('
	var alts []string
	for {
		var inner strings.Builder
		if err := t.translateSeq(&inner, "|)"); err != nil {
			return err
		}
		alts = append(alts, inner.String())
		if t.eof() {
			return &SyntaxError{msg: "unterminated extglob group"}
		}
		if t.cur() == '|' {
			t.i++
			continue
		}
		break
	}
	if t.cur() != ')' {
		return &SyntaxError{msg: "unterminated extglob group"}
	}
	t.i++
	alt := strings.Join(alts, "|")
	switch kind {
	case '?':
		fmt.Fprintf(sb, "(?:%s)?", alt)
	case '*':
		fmt.Fprintf(sb, "(?:%s)*", alt)
	case '+':
		fmt.Fprintf(sb, "(?:%s)+", alt)
	case '@':
		fmt.Fprintf(sb, "(?:%s)", alt)
	case '!':
		// No direct regexp equivalent; approximate with "anything that
		// isn't exactly one of the alternatives" by excluding a full match.
		fmt.Fprintf(sb, "(?:(?!^(?:%s)$).*)", alt)
	}
	return nil
}

func (t *translator) translateBracket(sb *strings.Builder) error {
	start := t.i
	t.i++ // '['
	negate := false
	if t.cur() == '!' || t.cur() == '^' {
		negate = true
		t.i++
	}
	if name, n := posixClass(t.s[t.i:]); n > 0 {
		sb.WriteByte('[')
		if negate {
			sb.WriteByte('^')
		}
		sb.WriteString(name)
		t.i += n
		rest := t.i
		for t.cur() != ']' && !t.eof() {
			t.i++
		}
		if t.eof() {
			t.i = start
			sb.WriteString(`\[`)
			return nil
		}
		sb.WriteString(strings.ReplaceAll(t.s[rest:t.i], `\`, `\\`))
		t.i++
		sb.WriteByte(']')
		return nil
	}
	j := t.i
	if j < len(t.s) && t.s[j] == ']' {
		j++
	}
	for j < len(t.s) && t.s[j] != ']' {
		j++
	}
	if j >= len(t.s) {
		t.i = start
		sb.WriteString(`\[`)
		t.i++
		return nil
	}
	body := t.s[t.i:j]
	sb.WriteByte('[')
	if negate {
		sb.WriteByte('^')
	}
	sb.WriteString(strings.ReplaceAll(body, `\`, `\\`))
	sb.WriteByte(']')
	t.i = j + 1
	return nil
}

// posixClass recognizes a leading [:name:] and returns its regexp/syntax
// equivalent plus the number of bytes consumed (not including the closing
// outer ']').
func posixClass(s string) (string, int) {
	if !strings.HasPrefix(s, "[:") {
		return "", 0
	}
	end := strings.Index(s, ":]")
	if end < 0 {
		return "", 0
	}
	name := s[2:end]
	repl, ok := posixClasses[name]
	if !ok {
		return "", 0
	}
	return repl, end + 2
}

var posixClasses = map[string]string{
	"alpha":  "[:alpha:]",
	"digit":  "[:digit:]",
	"alnum":  "[:alnum:]",
	"upper":  "[:upper:]",
	"lower":  "[:lower:]",
	"space":  "[:space:]",
	"blank":  "[:blank:]",
	"punct":  "[:punct:]",
	"cntrl":  "[:cntrl:]",
	"print":  "[:print:]",
	"graph":  "[:graph:]",
	"xdigit": "[:xdigit:]",
}
