package interp

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/vercel-labs/just-bash-sub009/pattern"
	"github.com/vercel-labs/just-bash-sub009/syntax"
)

// expandWordToString expands w and joins the result with no splitting or
// globbing, the form used for assignment right-hand sides and anywhere
// else bash treats a word as a single scalar.
func (it *Interp) expandWordToString(w syntax.Word) string {
	fields := it.expandWordRaw(w, true)
	var sb strings.Builder
	for _, f := range fields {
		if f.multi != nil {
			sb.WriteString(strings.Join(f.multi, " "))
			continue
		}
		sb.WriteString(f.text)
	}
	return sb.String()
}

// ExpandArgs expands words the full way: brace expansion (each word is
// realized into multiple Words via BraceWords here), tilde, substitution,
// splitting, globbing, and quote removal, producing the final argv
// fields.
func (it *Interp) ExpandArgs(words []syntax.Word) []string {
	var out []string
	for _, w := range words {
		for _, bw := range BraceWords(w) {
			out = append(out, it.expandWordFull(bw)...)
		}
	}
	return out
}

// expandWordFull runs the full pipeline (steps 2-6 of spec.md §4.4) on a
// single already-brace-expanded Word: assembly into quote-tagged fields,
// then IFS splitting and pathname expansion on whichever fields contain
// any unquoted content.
//
// Per-byte quote provenance is not tracked through splitting; a field
// assembled from any unquoted part is split/globbed as a whole, one
// assembled entirely from quoted parts is left alone. This is a
// deliberate approximation of bash's finer-grained per-character
// quoting.
func (it *Interp) expandWordFull(w syntax.Word) []string {
	assembled := it.assembleFields(w.Parts, false)
	var result []string
	for _, f := range assembled {
		if f.quoted {
			result = append(result, f.text)
			continue
		}
		for _, split := range it.splitIFS(f.text) {
			result = append(result, it.globField(split)...)
		}
	}
	return result
}

// assembleFields merges a Word's parts into quote-tagged fields, flushing
// whenever a multi-value expansion ($@, ${arr[@]}) is encountered so each
// of its elements becomes its own field.
func (it *Interp) assembleFields(parts []syntax.WordPart, inQuotes bool) []rawField {
	var out []rawField
	var cur strings.Builder
	curQuoted := true
	curHasContent := false

	flush := func() {
		out = append(out, rawField{text: cur.String(), quoted: curQuoted})
		cur.Reset()
		curQuoted = true
		curHasContent = false
	}

	for _, part := range parts {
		for _, f := range it.expandPart(part, inQuotes, false) {
			if f.multi != nil {
				if curHasContent {
					flush()
				}
				for _, v := range f.multi {
					out = append(out, rawField{text: v, quoted: f.quoted})
				}
				continue
			}
			cur.WriteString(f.text)
			curHasContent = true
			if !f.quoted {
				curQuoted = false
			}
		}
	}
	if curHasContent {
		flush()
	}
	if len(out) == 0 {
		out = append(out, rawField{text: "", quoted: inQuotes})
	}
	return out
}

type rawField struct {
	text   string
	quoted bool
	multi  []string
}

// expandWordRaw expands every WordPart of w into a sequence of raw
// fields, before splitting/globbing. scalarCtx suppresses the
// multi-field behavior of unquoted "$@"-like expansions, used for
// assignment RHS contexts.
func (it *Interp) expandWordRaw(w syntax.Word, scalarCtx bool) []rawField {
	var out []rawField
	for _, part := range w.Parts {
		out = append(out, it.expandPart(part, false, scalarCtx)...)
	}
	return out
}

func (it *Interp) expandPart(part syntax.WordPart, inQuotes, scalarCtx bool) []rawField {
	switch p := part.(type) {
	case *syntax.Lit:
		return []rawField{{text: p.Value, quoted: inQuotes}}
	case *syntax.Escaped:
		return []rawField{{text: string(p.Char), quoted: true}}
	case *syntax.SglQuoted:
		return []rawField{{text: p.Value, quoted: true}}
	case *syntax.DblQuoted:
		var out []rawField
		for _, inner := range p.Parts {
			out = append(out, it.expandPart(inner, true, scalarCtx)...)
		}
		if len(out) == 0 {
			out = append(out, rawField{text: "", quoted: true})
		}
		return out
	case *syntax.TildeExp:
		return []rawField{{text: it.expandTilde(p), quoted: inQuotes}}
	case *syntax.ParamExp:
		return it.expandParamExp(p, inQuotes, scalarCtx)
	case *syntax.CmdSubst:
		return []rawField{{text: it.runCaptured(p.Stmts), quoted: inQuotes}}
	case *syntax.ArithmExp:
		v, err := it.evalArith(p.X)
		if err != nil {
			it.arithHardError(err.Error())
			return []rawField{{text: "", quoted: inQuotes}}
		}
		return []rawField{{text: strconv.FormatInt(v, 10), quoted: inQuotes}}
	case *syntax.ProcSubst:
		return []rawField{{text: it.expandProcSubst(p), quoted: inQuotes}}
	case *syntax.BraceExp:
		// Should already have been realized by BraceWords; fall back to
		// the literal first element if one slips through (e.g. nested).
		words := RealizeBrace(p)
		if len(words) > 0 {
			return it.expandWordRaw(words[0], scalarCtx)
		}
		return nil
	case *syntax.GlobPart:
		return []rawField{{text: p.Pattern, quoted: inQuotes}}
	}
	return nil
}

func (it *Interp) softError(msg string) {
	it.State.ExpansionStderr = append(it.State.ExpansionStderr, msg)
	fmt.Fprintf(it.Stderr, "bash: %s\n", msg)
}

// arithHardError reports a $((...)) failure (division by zero, negative
// exponent, bad base value): unlike the soft errors in softError, spec.md
// §7 classifies ArithmeticError as failing the enclosing command, so this
// unwinds like unsetError rather than merely annotating expansionStderr.
func (it *Interp) arithHardError(msg string) {
	fmt.Fprintf(it.Stderr, "bash: %s\n", msg)
	panic(&controlSignal{kind: "exit", n: 1})
}

func (it *Interp) expandTilde(t *syntax.TildeExp) string {
	home, _ := it.lookupScalar("HOME")
	if home == "" {
		home = "/root"
	}
	switch {
	case t.Suffix == "":
		return home
	case t.Suffix == "+":
		return it.State.Dir
	case t.Suffix == "-":
		return it.State.OldDir
	default:
		// ~user: this sandbox has no real user database; only the
		// invoking user's home is known, so fall back to it.
		return home
	}
}

func (it *Interp) expandProcSubst(p *syntax.ProcSubst) string {
	// No real process/fd plumbing exists in the sandbox; approximate by
	// running the substitution and exposing its output as a synthetic
	// path the caller can Open through the VirtualFs is not possible
	// without a backing file, so materialize it as a temp-like file.
	name := fmt.Sprintf("/tmp/procsubst-%d", it.State.NextPid)
	it.State.NextPid++
	if p.In {
		out := it.runCaptured(p.Stmts)
		it.State.Fs.MkdirAll("/tmp", 0755)
		f, err := it.State.Fs.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err == nil {
			f.Write([]byte(out))
			f.Close()
		}
	}
	return name
}

// splitIFS splits s on IFS per spec.md §4.4 step 4.
func (it *Interp) splitIFS(s string) []string {
	ifs, ok := it.lookupScalar("IFS")
	if !ok {
		ifs = " \t\n"
	}
	if ifs == "" {
		return []string{s}
	}
	whitespace := " \t\n"
	allWhitespace := true
	for _, r := range ifs {
		if !strings.ContainsRune(whitespace, r) {
			allWhitespace = false
			break
		}
	}
	if allWhitespace {
		return strings.FieldsFunc(s, func(r rune) bool {
			return strings.ContainsRune(ifs, r)
		})
	}
	// Mixed IFS: a run of IFS-whitespace collapses to a single separator,
	// a single IFS-non-whitespace char is its own separator, and adjacent
	// whitespace around a non-whitespace separator is absorbed into it.
	// Leading whitespace is dropped entirely; a trailing non-whitespace
	// separator still yields a trailing empty field.
	isWS := func(r rune) bool {
		return strings.ContainsRune(whitespace, r) && strings.ContainsRune(ifs, r)
	}
	isIFSChar := func(r rune) bool { return strings.ContainsRune(ifs, r) }

	runes := []rune(s)
	n := len(runes)
	i := 0
	for i < n && isWS(runes[i]) {
		i++
	}
	var fields []string
	for i < n {
		start := i
		for i < n && !isIFSChar(runes[i]) {
			i++
		}
		fields = append(fields, string(runes[start:i]))
		if i >= n {
			break
		}
		trailingEmpty := false
		if isWS(runes[i]) {
			for i < n && isWS(runes[i]) {
				i++
			}
			if i < n && isIFSChar(runes[i]) && !isWS(runes[i]) {
				i++
				trailingEmpty = true
				for i < n && isWS(runes[i]) {
					i++
				}
			}
		} else {
			i++
			trailingEmpty = true
			for i < n && isWS(runes[i]) {
				i++
			}
		}
		if i >= n && trailingEmpty {
			fields = append(fields, "")
		}
	}
	return fields
}

func (it *Interp) globField(s string) []string {
	if it.State.Opts.Noglob {
		return []string{s}
	}
	if !pattern.HasMeta(s, it.State.Opts.Extglob) {
		return []string{s}
	}
	matches := it.globMatch(s)
	if len(matches) == 0 {
		if it.State.Opts.FailGlob {
			it.softError("no match: " + s)
			return nil
		}
		if it.State.Opts.NullGlob {
			return nil
		}
		return []string{s}
	}
	return matches
}

// globMatch expands s (a pathname pattern) against the VirtualFs. Only the
// last slash-separated segment is matched as a pattern; the directory part
// before it is used as a literal path.
func (it *Interp) globMatch(s string) []string {
	dir, base := path.Split(s)
	if dir == "" {
		dir = "."
	}
	var searchDir string
	if path.IsAbs(s) {
		searchDir = path.Dir(s)
	} else {
		searchDir = path.Join(it.State.Dir, path.Dir(s))
	}
	entries, err := it.State.Fs.ReadDir(searchDir)
	if err != nil {
		return nil
	}
	mode := pattern.Mode(0)
	if it.State.Opts.NocaseGlob {
		mode |= pattern.NoGlobCase
	}
	if it.State.Opts.GlobStar {
		mode |= pattern.GlobStar
	}
	if it.State.Opts.Extglob {
		mode |= pattern.Extglob
	}
	if !it.State.Opts.DotGlob {
		mode |= pattern.NoDotGlob
	}
	re, err := pattern.Compile(base, mode)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !it.State.Opts.DotGlob && strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if re.MatchString(e.Name()) {
			out = append(out, path.Join(dir, e.Name()))
		}
	}
	return out
}

// regexpCache avoids recompiling the same =~ pattern repeatedly within a
// script. Pipeline stages run as concurrent errgroup goroutines, so access
// is guarded by regexpCacheMu.
var (
	regexpCacheMu sync.Mutex
	regexpCache   = map[string]*regexp.Regexp{}
)

func compileERE(pat string) (*regexp.Regexp, error) {
	regexpCacheMu.Lock()
	re, ok := regexpCache[pat]
	regexpCacheMu.Unlock()
	if ok {
		return re, nil
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return nil, err
	}
	regexpCacheMu.Lock()
	regexpCache[pat] = re
	regexpCacheMu.Unlock()
	return re, nil
}
