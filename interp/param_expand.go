package interp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vercel-labs/just-bash-sub009/pattern"
	"github.com/vercel-labs/just-bash-sub009/syntax"
)

// expandParamExp implements the ${...} / $name expansion table of
// spec.md §4.3-§4.4.1: plain lookup, array/positional multi-value forms,
// length, indirection, and the full ParamOperation family.
func (it *Interp) expandParamExp(p *syntax.ParamExp, inQuotes, scalarCtx bool) []rawField {
	name := p.Param.Value

	if p.Excl && p.Op != nil && p.Op.Kind == syntax.OpIndirection {
		target, _ := it.lookupScalar(name)
		val, ok := it.lookupScalar(target)
		return it.finishScalarOp(nil, val, ok, inQuotes)
	}
	if p.Excl && p.Op != nil && p.Op.Kind == syntax.OpVarNamePrefix {
		var matches []string
		for k, v := range it.State.Vars {
			if v.set && strings.HasPrefix(k, name) {
				matches = append(matches, k)
			}
		}
		sort.Strings(matches)
		return it.joinArrayFields(matches, p.Op.PrefixAt, inQuotes)
	}
	if p.Excl && p.Index != nil && p.Index.All != 0 {
		keys := it.arrayKeys(name)
		return it.joinArrayFields(keys, p.Index.All == '@', inQuotes)
	}

	if p.Length {
		return []rawField{{text: strconv.Itoa(it.paramLength(p, name)), quoted: inQuotes}}
	}

	if (name == "@" || name == "*") && p.Index == nil {
		return it.finishMultiOp(p, append([]string(nil), it.State.Positional...), true, name == "@", inQuotes)
	}
	if p.Index != nil && p.Index.All != 0 {
		values := it.arrayValues(name)
		_, setOk := it.State.Vars[name]
		return it.finishMultiOp(p, values, setOk, p.Index.All == '@', inQuotes)
	}

	val, ok := it.paramScalarValue(p, name)
	return it.finishScalarOp(p.Op, val, ok, inQuotes, name)
}

func (it *Interp) paramScalarValue(p *syntax.ParamExp, name string) (string, bool) {
	if p.Index != nil {
		idx, err := it.evalArith(p.Index.Expr)
		if err != nil {
			return "", false
		}
		v, ok := it.State.Vars[name]
		if !ok {
			return "", false
		}
		if v.IsAssoc {
			s, ok := v.Assoc[strconv.FormatInt(idx, 10)]
			return s, ok
		}
		return it.getIndexed(name, int(idx)), true
	}
	return it.lookupScalar(name)
}

func (it *Interp) arrayValues(name string) []string {
	v, ok := it.State.Vars[name]
	if !ok || !v.set {
		return nil
	}
	if v.IsAssoc {
		keys := make([]string, 0, len(v.Assoc))
		for k := range v.Assoc {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, len(keys))
		for i, k := range keys {
			out[i] = v.Assoc[k]
		}
		return out
	}
	if v.Indexed == nil {
		if v.Scalar != "" || v.set {
			return []string{v.Scalar}
		}
		return nil
	}
	idxs := make([]int, 0, len(v.Indexed))
	for k := range v.Indexed {
		idxs = append(idxs, k)
	}
	sort.Ints(idxs)
	out := make([]string, len(idxs))
	for i, k := range idxs {
		out[i] = v.Indexed[k]
	}
	return out
}

func (it *Interp) arrayKeys(name string) []string {
	v, ok := it.State.Vars[name]
	if !ok || !v.set {
		return nil
	}
	if v.IsAssoc {
		keys := make([]string, 0, len(v.Assoc))
		for k := range v.Assoc {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	}
	idxs := make([]int, 0, len(v.Indexed))
	for k := range v.Indexed {
		idxs = append(idxs, k)
	}
	sort.Ints(idxs)
	out := make([]string, len(idxs))
	for i, k := range idxs {
		out[i] = strconv.Itoa(k)
	}
	return out
}

// joinArrayFields renders values either as one field-per-element
// (allAt, mirroring "$@") or as a single space-joined field ("$*").
func (it *Interp) joinArrayFields(values []string, allAt, inQuotes bool) []rawField {
	if allAt {
		if len(values) == 0 {
			return nil
		}
		return []rawField{{multi: values, quoted: inQuotes}}
	}
	sep := " "
	if ifs, ok := it.lookupScalar("IFS"); ok {
		if ifs == "" {
			sep = ""
		} else {
			sep = ifs[:1]
		}
	}
	return []rawField{{text: strings.Join(values, sep), quoted: inQuotes}}
}

func (it *Interp) paramLength(p *syntax.ParamExp, name string) int {
	if (name == "@" || name == "*") && p.Index == nil {
		return len(it.State.Positional)
	}
	if p.Index != nil && p.Index.All != 0 {
		return len(it.arrayValues(name))
	}
	val, _ := it.paramScalarValue(p, name)
	return len([]rune(val))
}

// finishMultiOp applies op (if any) to a multi-valued parameter
// (positional params or a whole array), producing the resulting fields.
func (it *Interp) finishMultiOp(p *syntax.ParamExp, values []string, ok, allAt, inQuotes bool) []rawField {
	op := p.Op
	if op == nil {
		return it.joinArrayFields(values, allAt, inQuotes)
	}
	switch op.Kind {
	case syntax.OpDefaultValue, syntax.OpAssignDefault, syntax.OpErrorIfUnset, syntax.OpUseAlternative:
		unset := !ok || len(values) == 0
		rescue, stop := it.defaultFamily(op, unset, p.Param.Value)
		if stop {
			return nil
		}
		if rescue != nil {
			return []rawField{{text: *rescue, quoted: inQuotes}}
		}
		return it.joinArrayFields(values, allAt, inQuotes)
	case syntax.OpSubstring:
		values = it.substringSlice(op, values)
		return it.joinArrayFields(values, allAt, inQuotes)
	default:
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = it.applyStringOp(op, v)
		}
		return it.joinArrayFields(out, allAt, inQuotes)
	}
	return it.joinArrayFields(values, allAt, inQuotes)
}

// finishScalarOp applies op (if any) to a single scalar value.
func (it *Interp) finishScalarOp(op *syntax.ParamOperation, val string, ok bool, inQuotes bool, name ...string) []rawField {
	varName := ""
	if len(name) > 0 {
		varName = name[0]
	}
	if op == nil {
		if !ok && it.State.Opts.Nounset {
			it.unsetError(varName)
		}
		return []rawField{{text: val, quoted: inQuotes}}
	}
	switch op.Kind {
	case syntax.OpDefaultValue, syntax.OpAssignDefault, syntax.OpErrorIfUnset, syntax.OpUseAlternative:
		unset := !ok || (op.Colon && val == "")
		rescue, stop := it.defaultFamily(op, unset, varName)
		if stop {
			return nil
		}
		if rescue != nil {
			val = *rescue
		}
		return []rawField{{text: val, quoted: inQuotes}}
	case syntax.OpSubstring:
		// Offsets and lengths count characters of the scalar value.
		runes := []rune(val)
		chars := make([]string, len(runes))
		for i, r := range runes {
			chars[i] = string(r)
		}
		return []rawField{{text: strings.Join(it.substringSlice(op, chars), ""), quoted: inQuotes}}
	default:
		return []rawField{{text: it.applyStringOp(op, val), quoted: inQuotes}}
	}
}

// defaultFamily evaluates the four unset/null-triggered operations.
// Returns (nil, false) when val should be used unmodified, or (&s, false)
// when val should be replaced by s. ErrorIfUnset on an unset value reports
// the error and unwinds with an exit controlSignal instead of returning.
func (it *Interp) defaultFamily(op *syntax.ParamOperation, unset bool, varName string) (*string, bool) {
	switch op.Kind {
	case syntax.OpDefaultValue:
		if unset {
			s := it.expandWordToString(op.Arg)
			return &s, false
		}
		return nil, false
	case syntax.OpAssignDefault:
		if unset {
			s := it.expandWordToString(op.Arg)
			if varName != "" {
				it.setScalar(varName, s)
			}
			return &s, false
		}
		return nil, false
	case syntax.OpErrorIfUnset:
		if unset {
			msg := it.expandWordToString(op.Arg)
			if msg == "" {
				msg = "parameter null or not set"
			}
			fmt.Fprintf(it.Stderr, "bash: %s: %s\n", varName, msg)
			panic(&controlSignal{kind: "exit", n: 1})
		}
		return nil, false
	case syntax.OpUseAlternative:
		if unset {
			empty := ""
			return &empty, false
		}
		s := it.expandWordToString(op.Arg)
		return &s, false
	}
	return nil, false
}

func (it *Interp) unsetError(name string) {
	fmt.Fprintf(it.Stderr, "bash: %s: unbound variable\n", name)
	panic(&controlSignal{kind: "exit", n: 1})
}

func (it *Interp) substringSlice(op *syntax.ParamOperation, values []string) []string {
	off := 0
	if op.Offset != nil {
		v, err := it.evalArith(op.Offset)
		if err == nil {
			off = int(v)
		}
	}
	n := len(values)
	if off < 0 {
		off += n
		if off < 0 {
			off = 0
		}
	}
	if off > n {
		off = n
	}
	end := n
	if op.HasLength {
		length := 0
		if v, err := it.evalArith(op.Length); err == nil {
			length = int(v)
		}
		if length < 0 {
			end = n + length
		} else {
			end = off + length
		}
	}
	if end > n {
		end = n
	}
	if end < off {
		end = off
	}
	return values[off:end]
}

func (it *Interp) globMode() pattern.Mode {
	mode := pattern.Mode(0)
	if it.State.Opts.Extglob {
		mode |= pattern.Extglob
	}
	if it.State.Opts.NocaseMatch {
		mode |= pattern.NoGlobCase
	}
	return mode
}

// applyStringOp handles the per-string operations: pattern removal,
// pattern replacement, case modification, and @-transforms.
func (it *Interp) applyStringOp(op *syntax.ParamOperation, s string) string {
	switch op.Kind {
	case syntax.OpPatternRemoval:
		pat := it.expandWordToString(op.Pat)
		if pat == "" {
			return s
		}
		if op.Side == "prefix" {
			n := matchAffixLen(s, pat, it.globMode(), op.Greedy, true)
			if n >= 0 {
				return s[n:]
			}
			return s
		}
		n := matchAffixLen(s, pat, it.globMode(), op.Greedy, false)
		if n >= 0 {
			return s[:n]
		}
		return s
	case syntax.OpPatternReplacement:
		pat := it.expandWordToString(op.ReplPat)
		repl := it.expandWordToString(op.ReplRep)
		return it.patternReplace(s, pat, repl, op.ReplAnchorStart, op.ReplAnchorEnd, op.ReplAll)
	case syntax.OpCaseModification:
		return it.applyCaseMod(op, s)
	case syntax.OpTransform:
		return it.applyTransform(op, s)
	}
	return s
}

// matchAffixLen returns the length of the matched prefix (fromStart) or
// the start offset of the matched suffix, trying every split point since
// extglob patterns can't be anchored-and-measured any other way without a
// real glob-matching engine; greedy picks the longest match, non-greedy
// the shortest.
func matchAffixLen(s, pat string, mode pattern.Mode, greedy, fromStart bool) int {
	re, err := pattern.Compile(pat, mode|pattern.EntireString)
	if err != nil {
		return -1
	}
	if fromStart {
		if greedy {
			for i := len(s); i >= 0; i-- {
				if re.MatchString(s[:i]) {
					return i
				}
			}
		} else {
			for i := 0; i <= len(s); i++ {
				if re.MatchString(s[:i]) {
					return i
				}
			}
		}
		return -1
	}
	if greedy {
		for i := 0; i <= len(s); i++ {
			if re.MatchString(s[i:]) {
				return i
			}
		}
	} else {
		for i := len(s); i >= 0; i-- {
			if re.MatchString(s[i:]) {
				return i
			}
		}
	}
	return -1
}

func (it *Interp) patternReplace(s, pat, repl string, anchorStart, anchorEnd, all bool) string {
	src, err := pattern.Regexp(pat, it.globMode())
	if err != nil {
		return s
	}
	switch {
	case anchorStart:
		src = "^(?:" + src + ")"
	case anchorEnd:
		src = "(?:" + src + ")$"
	}
	re, err := compileERE(src)
	if err != nil {
		return s
	}
	escRepl := strings.ReplaceAll(repl, "$", "$$")
	if all {
		return re.ReplaceAllString(s, escRepl)
	}
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}

func (it *Interp) applyCaseMod(op *syntax.ParamOperation, s string) string {
	conv := strings.ToLower
	if op.CaseUp {
		conv = strings.ToUpper
	}
	if op.CaseAll {
		return conv(s)
	}
	if s == "" {
		return s
	}
	r := []rune(s)
	head := conv(string(r[0]))
	return head + string(r[1:])
}

func (it *Interp) applyTransform(op *syntax.ParamOperation, s string) string {
	switch op.Transform {
	case 'U':
		return strings.ToUpper(s)
	case 'L':
		return strings.ToLower(s)
	case 'Q':
		return quoteForShell(s)
	case 'E':
		return interpretEchoEscapesForTransform(s)
	case 'A', 'a':
		return s
	default:
		return s
	}
}

func quoteForShell(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`!*?[](){}|&;<>~#") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func interpretEchoEscapesForTransform(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteByte('\\')
				sb.WriteByte(s[i])
			}
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
