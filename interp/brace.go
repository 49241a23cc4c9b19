package interp

import (
	"strconv"
	"strings"

	"github.com/vercel-labs/just-bash-sub009/syntax"
)

// BraceWords realizes every BraceExp part of w into its cartesian set of
// concrete Words, the first step of spec.md §4.4's expansion pipeline.
// A word with no brace parts expands to itself alone.
func BraceWords(w syntax.Word) []syntax.Word {
	groups := expandBraceParts(w.Parts)
	out := make([]syntax.Word, len(groups))
	for i, g := range groups {
		out[i] = syntax.Word{Parts: g}
	}
	return out
}

func expandBraceParts(parts []syntax.WordPart) [][]syntax.WordPart {
	idx := -1
	for i, p := range parts {
		if _, ok := p.(*syntax.BraceExp); ok {
			idx = i
			break
		}
	}
	if idx == -1 {
		return [][]syntax.WordPart{parts}
	}
	prefix := parts[:idx]
	be := parts[idx].(*syntax.BraceExp)
	suffixGroups := expandBraceParts(parts[idx+1:])

	var out [][]syntax.WordPart
	for _, alt := range RealizeBrace(be) {
		for _, altParts := range expandBraceParts(alt.Parts) {
			for _, sufParts := range suffixGroups {
				combined := make([]syntax.WordPart, 0, len(prefix)+len(altParts)+len(sufParts))
				combined = append(combined, prefix...)
				combined = append(combined, altParts...)
				combined = append(combined, sufParts...)
				out = append(out, combined)
			}
		}
	}
	return out
}

// RealizeBrace turns one {a,b,c} or {from..to[..step]} expression into its
// literal alternatives.
func RealizeBrace(b *syntax.BraceExp) []syntax.Word {
	if b.Sequence {
		return realizeBraceSequence(b)
	}
	return append([]syntax.Word(nil), b.Elems...)
}

func realizeBraceSequence(b *syntax.BraceExp) []syntax.Word {
	step := 1
	if b.Step != nil && *b.Step != 0 {
		step = *b.Step
	}

	if fromN, errF := strconv.Atoi(b.From); errF == nil {
		if toN, errT := strconv.Atoi(b.To); errT == nil {
			var out []syntax.Word
			s := step
			if s < 0 {
				s = -s
			}
			if fromN <= toN {
				for v := fromN; v <= toN; v += s {
					out = append(out, litWord(formatBraceNum(v, b.Zeros)))
				}
			} else {
				for v := fromN; v >= toN; v -= s {
					out = append(out, litWord(formatBraceNum(v, b.Zeros)))
				}
			}
			return out
		}
	}

	if len(b.From) == 1 && len(b.To) == 1 {
		from, to := b.From[0], b.To[0]
		lower := func(c byte) bool { return c >= 'a' && c <= 'z' }
		upper := func(c byte) bool { return c >= 'A' && c <= 'Z' }
		if (lower(from) && upper(to)) || (upper(from) && lower(to)) {
			// Mixed-case ranges stay literal.
			lit := "{" + b.From + ".." + b.To
			if b.Step != nil {
				lit += ".." + strconv.Itoa(*b.Step)
			}
			return []syntax.Word{litWord(lit + "}")}
		}
		s := step
		if s < 0 {
			s = -s
		}
		var out []syntax.Word
		if from <= to {
			for c := int(from); c <= int(to); c += s {
				out = append(out, litWord(string(rune(c))))
			}
		} else {
			for c := int(from); c >= int(to); c -= s {
				out = append(out, litWord(string(rune(c))))
			}
		}
		return out
	}
	return nil
}

func litWord(s string) syntax.Word {
	return syntax.Word{Parts: []syntax.WordPart{&syntax.Lit{Value: s}}}
}

func formatBraceNum(v, zeros int) string {
	s := strconv.Itoa(v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for len(s) < zeros {
		s = "0" + s
	}
	if neg {
		s = "-" + s
	}
	return s
}
