package interp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vercel-labs/just-bash-sub009/syntax"
)

// builtinFunc is the shape of a builtin implementation: argv including the
// builtin's own name at index 0, returning its exit status.
type builtinFunc func(it *Interp, args []string) int

// builtins is the dispatch table consulted by execSimpleCommand after
// functions and before the external-command registry, per spec.md §4.6's
// name-resolution order.
var builtins = map[string]builtinFunc{
	":":        builtinTrue,
	"true":     builtinTrue,
	"false":    builtinFalse,
	"echo":     builtinEcho,
	"printf":   builtinPrintf,
	"cd":       builtinCd,
	"pwd":      builtinPwd,
	"export":   builtinExport,
	"unset":    builtinUnset,
	"set":      builtinSet,
	"shift":    builtinShift,
	"read":     builtinRead,
	"local":    builtinLocal,
	"declare":  builtinDeclare,
	"typeset":  builtinDeclare,
	"readonly": builtinReadonly,
	"return":   builtinReturn,
	"break":    builtinBreak,
	"continue": builtinContinue,
	"exit":     builtinExit,
	"eval":     builtinEval,
	"source":   builtinSource,
	".":        builtinSource,
	"trap":     builtinTrap,
	"test":     builtinTest,
	"[":        builtinBracketTest,
	"command":  builtinCommand,
	"type":     builtinType,
	"hash":     builtinNoop,
	"wait":     builtinWait,
	"let":      builtinLet,
	"mapfile":  builtinMapfile,
	"readarray": builtinMapfile,
	"shopt":    builtinShopt,
	"getopts":  builtinGetopts,
	"times":    builtinTimes,
	"umask":    builtinNoop,
	"pushd":    builtinPushd,
	"popd":     builtinPopd,
	"dirs":     builtinDirs,
	"builtin":  builtinBuiltin,
	"alias":    builtinNoop,
	"unalias":  builtinNoop,
	"exec":     builtinExec,
	"compgen":  builtinCompgen,
	"complete": builtinNoop,
}

func builtinTrue(it *Interp, args []string) int  { return 0 }
func builtinFalse(it *Interp, args []string) int { return 1 }
func builtinNoop(it *Interp, args []string) int  { return 0 }

func builtinEcho(it *Interp, args []string) int {
	a := args[1:]
	noNewline := false
	interpret := false
	for len(a) > 0 && strings.HasPrefix(a[0], "-") && len(a[0]) > 1 {
		opt := a[0]
		valid := true
		for _, c := range opt[1:] {
			if c != 'n' && c != 'e' && c != 'E' {
				valid = false
				break
			}
		}
		if !valid {
			break
		}
		if strings.Contains(opt, "n") {
			noNewline = true
		}
		if strings.Contains(opt, "e") {
			interpret = true
		}
		a = a[1:]
	}
	out := strings.Join(a, " ")
	if interpret {
		out = interpretBackslashEscapes(out)
	}
	if !noNewline {
		out += "\n"
	}
	fmt.Fprint(it.Stdout, out)
	return 0
}

func interpretBackslashEscapes(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '\\':
			sb.WriteByte('\\')
		case 'a':
			sb.WriteByte('\a')
		case '0':
			sb.WriteByte(0)
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

func builtinPrintf(it *Interp, args []string) int {
	if len(args) < 2 {
		return 0
	}
	format := args[1]
	fargs := args[2:]
	var varName string
	if format == "-v" {
		if len(fargs) < 2 {
			fmt.Fprintln(it.Stderr, "bash: printf: -v: option requires an argument")
			return 1
		}
		varName = fargs[0]
		format = fargs[1]
		fargs = fargs[2:]
	}
	out := applyPrintfFormat(format, fargs)
	if varName != "" {
		it.setScalar(varName, out)
		return 0
	}
	fmt.Fprint(it.Stdout, out)
	return 0
}

// applyPrintfFormat implements the printf(1) subset the sandbox supports,
// cycling the format over a longer argument list the way bash's builtin
// does.
func applyPrintfFormat(format string, args []string) string {
	var out strings.Builder
	argi := 0
	nextArg := func() string {
		if argi < len(args) {
			a := args[argi]
			argi++
			return a
		}
		return ""
	}
	runOnce := func() bool {
		consumed := false
		for i := 0; i < len(format); i++ {
			c := format[i]
			if c == '\\' && i+1 < len(format) {
				i++
				switch format[i] {
				case 'n':
					out.WriteByte('\n')
				case 't':
					out.WriteByte('\t')
				case '\\':
					out.WriteByte('\\')
				default:
					out.WriteByte(format[i])
				}
				continue
			}
			if c != '%' || i+1 >= len(format) {
				out.WriteByte(c)
				continue
			}
			i++
			switch format[i] {
			case '%':
				out.WriteByte('%')
			case 's':
				out.WriteString(nextArg())
				consumed = true
			case 'd', 'i':
				v, _ := strconv.ParseInt(strings.TrimSpace(nextArg()), 0, 64)
				fmt.Fprintf(&out, "%d", v)
				consumed = true
			case 'x':
				v, _ := strconv.ParseInt(strings.TrimSpace(nextArg()), 0, 64)
				fmt.Fprintf(&out, "%x", v)
				consumed = true
			case 'q':
				out.WriteString(strconv.Quote(nextArg()))
				consumed = true
			case 'b':
				out.WriteString(interpretBackslashEscapes(nextArg()))
				consumed = true
			default:
				out.WriteByte('%')
				out.WriteByte(format[i])
			}
		}
		return consumed
	}
	runOnce()
	for argi < len(args) {
		if !runOnce() {
			break
		}
	}
	return out.String()
}

func builtinCd(it *Interp, args []string) int {
	target := ""
	if len(args) > 1 {
		target = args[1]
	}
	switch target {
	case "":
		target, _ = it.lookupScalar("HOME")
	case "-":
		target = it.State.OldDir
		fmt.Fprintln(it.Stdout, target)
	}
	if !strings.HasPrefix(target, "/") {
		target = it.State.Dir + "/" + target
	}
	target = cleanPath(target)
	info, err := it.State.Fs.Stat(target)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(it.Stderr, "bash: cd: %s: No such file or directory\n", target)
		return 1
	}
	it.State.OldDir = it.State.Dir
	it.State.Dir = target
	it.setScalar("OLDPWD", it.State.OldDir)
	it.setScalar("PWD", target)
	return 0
}

func cleanPath(p string) string {
	parts := strings.Split(p, "/")
	var out []string
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, part)
		}
	}
	return "/" + strings.Join(out, "/")
}

func builtinPwd(it *Interp, args []string) int {
	fmt.Fprintln(it.Stdout, it.State.Dir)
	return 0
}

func builtinExport(it *Interp, args []string) int {
	if len(args) == 1 {
		var names []string
		for k := range it.State.ExportedVars {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(it.Stdout, "declare -x %s=%q\n", k, it.State.Vars[k].Scalar)
		}
		return 0
	}
	for _, a := range args[1:] {
		if a == "-p" {
			continue
		}
		name, value, hasEq := strings.Cut(a, "=")
		if hasEq {
			it.setScalar(name, value)
		}
		it.State.ExportedVars[name] = true
		if v, ok := it.State.Vars[name]; ok {
			v.Exported = true
		} else {
			it.State.Vars[name] = &Variable{Exported: true}
		}
	}
	return 0
}

func builtinUnset(it *Interp, args []string) int {
	funcMode := false
	a := args[1:]
	for len(a) > 0 && a[0] == "-f" {
		funcMode = true
		a = a[1:]
	}
	for len(a) > 0 && a[0] == "-v" {
		a = a[1:]
	}
	for _, name := range a {
		if funcMode {
			delete(it.State.Funcs, name)
			continue
		}
		if it.State.ReadonlyVars[name] {
			fmt.Fprintf(it.Stderr, "bash: unset: %s: cannot unset: readonly variable\n", name)
			return 1
		}
		delete(it.State.Vars, name)
		delete(it.State.ExportedVars, name)
		delete(it.State.IntegerVars, name)
		delete(it.State.AssocArrays, name)
		delete(it.State.Namerefs, name)
		delete(it.State.Funcs, name)
	}
	return 0
}

func builtinShift(it *Interp, args []string) int {
	n := 1
	if len(args) > 1 {
		if v, err := strconv.Atoi(args[1]); err == nil {
			n = v
		}
	}
	if n > len(it.State.Positional) {
		return 1
	}
	it.State.Positional = it.State.Positional[n:]
	return 0
}

// builtinSet implements `set -eux`/`set +e`/`set --` and friends.
func builtinSet(it *Interp, args []string) int {
	a := args[1:]
	i := 0
	for i < len(a) {
		arg := a[i]
		if arg == "--" {
			i++
			break
		}
		if len(arg) < 2 || (arg[0] != '-' && arg[0] != '+') {
			break
		}
		enable := arg[0] == '-'
		if arg == "-o" || arg == "+o" {
			i++
			if i < len(a) {
				it.setLongOption(a[i], enable)
			}
			i++
			continue
		}
		for _, c := range arg[1:] {
			it.setShortOption(c, enable)
		}
		i++
	}
	if i < len(a) || (len(a) > 0 && a[0] == "--") {
		rest := a[i:]
		it.State.Positional = append([]string(nil), rest...)
	}
	return 0
}

func (it *Interp) setShortOption(c rune, enable bool) {
	switch c {
	case 'e':
		it.State.Opts.Errexit = enable
	case 'u':
		it.State.Opts.Nounset = enable
	case 'x':
		it.State.Opts.Xtrace = enable
	case 'v':
		it.State.Opts.Verbose = enable
	case 'f':
		it.State.Opts.Noglob = enable
	case 'C':
		it.State.Opts.Noclobber = enable
	}
}

func (it *Interp) setLongOption(name string, enable bool) {
	switch name {
	case "errexit":
		it.State.Opts.Errexit = enable
	case "nounset":
		it.State.Opts.Nounset = enable
	case "pipefail":
		it.State.Opts.Pipefail = enable
	case "xtrace":
		it.State.Opts.Xtrace = enable
	case "noglob":
		it.State.Opts.Noglob = enable
	case "noclobber":
		it.State.Opts.Noclobber = enable
	case "verbose":
		it.State.Opts.Verbose = enable
	}
}

func builtinShopt(it *Interp, args []string) int {
	a := args[1:]
	unset := false
	var names []string
	for _, arg := range a {
		switch arg {
		case "-s":
			unset = false
		case "-u":
			unset = true
		case "-q", "-p":
		default:
			names = append(names, arg)
		}
	}
	for _, name := range names {
		enable := !unset
		switch name {
		case "extglob":
			it.State.Opts.Extglob = enable
		case "nocaseglob":
			it.State.Opts.NocaseGlob = enable
		case "nocasematch":
			it.State.Opts.NocaseMatch = enable
		case "globstar":
			it.State.Opts.GlobStar = enable
		case "nullglob":
			it.State.Opts.NullGlob = enable
		case "failglob":
			it.State.Opts.FailGlob = enable
		case "dotglob":
			it.State.Opts.DotGlob = enable
		}
	}
	return 0
}

// readDelim reads one byte at a time directly from r (no bufio layer) so
// repeated `read` calls on the same stream never lose bytes buffered by a
// prior call's reader, as a fresh bufio.Reader per call would. nchars caps the read at a fixed count (read -n); 0 means no
// cap.
func readDelim(r interface{ Read([]byte) (int, error) }, delim byte, nchars int) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		if nchars > 0 && sb.Len() >= nchars {
			return sb.String(), nil
		}
		n, err := r.Read(buf)
		if n > 0 {
			if buf[0] == delim && nchars == 0 {
				return sb.String(), nil
			}
			sb.WriteByte(buf[0])
		}
		if err != nil {
			return sb.String(), err
		}
	}
}

func builtinRead(it *Interp, args []string) int {
	a := args[1:]
	delim := byte('\n')
	nchars := 0
	var prompt string
	raw := false
	for len(a) > 0 && strings.HasPrefix(a[0], "-") && a[0] != "-" {
		switch {
		case a[0] == "-r":
			raw = true
			a = a[1:]
		case a[0] == "-d" && len(a) > 1:
			if len(a[1]) > 0 {
				delim = a[1][0]
			} else {
				delim = 0
			}
			a = a[2:]
		case a[0] == "-n" && len(a) > 1:
			nchars, _ = strconv.Atoi(a[1])
			a = a[2:]
		case a[0] == "-p" && len(a) > 1:
			prompt = a[1]
			a = a[2:]
		default:
			a = a[1:]
		}
	}
	if prompt != "" {
		fmt.Fprint(it.Stderr, prompt)
	}
	names := a
	if len(names) == 0 {
		names = []string{"REPLY"}
	}
	line, err := readDelim(it.Stdin, delim, nchars)
	if !raw {
		line = unescapeBackslashContinuation(line)
	}
	ifs, ok := it.lookupScalar("IFS")
	if !ok {
		ifs = " \t\n"
	}
	var fields []string
	if ifs == "" {
		fields = []string{line}
	} else {
		fields = splitIFSFields(line, ifs, len(names))
	}
	for i, name := range names {
		if i < len(fields) {
			it.setScalar(name, fields[i])
		} else {
			it.setScalar(name, "")
		}
	}
	if err != nil {
		return 1
	}
	return 0
}

func unescapeBackslashContinuation(s string) string {
	return strings.ReplaceAll(s, "\\\n", "")
}

// splitIFSFields splits on any IFS character, folding overflow words into
// the last field the way `read a b` does with more than two words of
// input.
func splitIFSFields(s, ifs string, maxFields int) []string {
	var ifsWhitespace strings.Builder
	for _, r := range " \t\n" {
		if strings.ContainsRune(ifs, r) {
			ifsWhitespace.WriteRune(r)
		}
	}
	s = strings.Trim(s, ifsWhitespace.String())
	if maxFields <= 1 {
		return []string{s}
	}
	var fields []string
	cur := strings.Builder{}
	for _, r := range s {
		if len(fields) == maxFields-1 {
			cur.WriteRune(r)
			continue
		}
		if strings.ContainsRune(ifs, r) {
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 || len(fields) < maxFields {
		fields = append(fields, cur.String())
	}
	return fields
}

func builtinLocal(it *Interp, args []string) int {
	for _, a := range args[1:] {
		name, value, hasEq := strings.Cut(a, "=")
		it.State.DeclareLocal(name)
		if hasEq {
			it.setScalar(name, value)
		} else if _, ok := it.State.Vars[name]; !ok {
			it.State.Vars[name] = &Variable{}
		}
	}
	return 0
}

// builtinDeclare implements declare/typeset's common flags. Array
// literals (`declare -a arr=(1 2 3)`) are not supported as a single
// invocation: the parser only produces a structured Assign.Array node for
// `NAME=(...)` in prefix-assignment position, so when `declare` is the
// command name the argument word ends at `arr=` and the `(...)` is not
// part of it. Use `arr=(1 2 3)` directly instead.
func builtinDeclare(it *Interp, args []string) int {
	a := args[1:]
	var flags string
	for len(a) > 0 && strings.HasPrefix(a[0], "-") && a[0] != "-" {
		flags += a[0][1:]
		a = a[1:]
	}
	if len(a) == 0 {
		return builtinDeclarePrint(it, flags)
	}
	for _, arg := range a {
		name, value, hasEq := strings.Cut(arg, "=")
		if strings.Contains(flags, "x") {
			it.State.ExportedVars[name] = true
		}
		if strings.Contains(flags, "i") {
			it.State.IntegerVars[name] = true
		}
		if strings.Contains(flags, "r") {
			it.State.ReadonlyVars[name] = true
		}
		if strings.Contains(flags, "A") {
			it.State.AssocArrays[name] = true
			if _, ok := it.State.Vars[name]; !ok {
				it.State.Vars[name] = &Variable{IsAssoc: true, Assoc: map[string]string{}, set: true}
			}
		}
		if strings.Contains(flags, "a") {
			if _, ok := it.State.Vars[name]; !ok {
				it.State.Vars[name] = &Variable{IsArray: true, Indexed: map[int]string{}, set: true}
			}
		}
		if strings.Contains(flags, "n") {
			it.State.Namerefs[name] = true
			if hasEq {
				it.State.Vars[name] = &Variable{Nameref: true, Scalar: value, set: true}
				continue
			}
			if v, ok := it.State.Vars[name]; ok {
				v.Nameref = true
			} else {
				it.State.Vars[name] = &Variable{Nameref: true}
			}
			continue
		}
		if hasEq {
			it.setScalar(name, value)
		} else if _, ok := it.State.Vars[name]; !ok {
			it.State.Vars[name] = &Variable{}
		}
	}
	return 0
}

func builtinDeclarePrint(it *Interp, flags string) int {
	var names []string
	for k := range it.State.Vars {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		v := it.State.Vars[k]
		if strings.Contains(flags, "x") && !v.Exported {
			continue
		}
		fmt.Fprintf(it.Stdout, "%s=%q\n", k, v.Scalar)
	}
	return 0
}

func builtinReadonly(it *Interp, args []string) int {
	for _, a := range args[1:] {
		name, value, hasEq := strings.Cut(a, "=")
		if hasEq {
			it.setScalar(name, value)
		}
		it.State.ReadonlyVars[name] = true
		if v, ok := it.State.Vars[name]; ok {
			v.ReadOnly = true
		}
	}
	return 0
}

func builtinReturn(it *Interp, args []string) int {
	n := it.State.LastExitCode
	if len(args) > 1 {
		n, _ = strconv.Atoi(args[1])
	}
	panic(&controlSignal{kind: "return", n: n})
}

func builtinBreak(it *Interp, args []string) int {
	n := 1
	if len(args) > 1 {
		if v, err := strconv.Atoi(args[1]); err == nil && v > 0 {
			n = v
		}
	}
	if it.loopDepth == 0 {
		return 0
	}
	panic(&controlSignal{kind: "break", n: n})
}

func builtinContinue(it *Interp, args []string) int {
	n := 1
	if len(args) > 1 {
		if v, err := strconv.Atoi(args[1]); err == nil && v > 0 {
			n = v
		}
	}
	if it.loopDepth == 0 {
		return 0
	}
	panic(&controlSignal{kind: "continue", n: n})
}

func builtinExit(it *Interp, args []string) int {
	n := it.State.LastExitCode
	if len(args) > 1 {
		n, _ = strconv.Atoi(args[1])
	}
	panic(&controlSignal{kind: "exit", n: n})
}

func builtinEval(it *Interp, args []string) int {
	src := strings.Join(args[1:], " ")
	p := syntax.NewParser()
	script, err := p.Parse(src, "eval")
	if err != nil {
		fmt.Fprintf(it.Stderr, "bash: eval: %s\n", err.Error())
		return 2
	}
	code := 0
	for _, stmt := range script.Stmts {
		code = it.execStatement(stmt, false)
	}
	return code
}

func builtinSource(it *Interp, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(it.Stderr, "bash: source: filename argument required")
		return 2
	}
	name := args[1]
	if !strings.HasPrefix(name, "/") {
		name = it.State.Dir + "/" + name
	}
	f, err := it.State.Fs.Open(name)
	if err != nil {
		fmt.Fprintf(it.Stderr, "bash: source: %s: No such file or directory\n", args[1])
		return 1
	}
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		n, rerr := f.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if rerr != nil {
			break
		}
	}
	f.Close()

	savedPositional := it.State.Positional
	if len(args) > 2 {
		it.State.Positional = args[2:]
	}
	defer func() { it.State.Positional = savedPositional }()

	p := syntax.NewParser()
	script, err := p.Parse(string(buf), args[1])
	if err != nil {
		fmt.Fprintf(it.Stderr, "bash: source: %s: %s\n", args[1], err.Error())
		return 2
	}
	code := 0
	for _, stmt := range script.Stmts {
		code = it.execStatement(stmt, false)
	}
	return code
}

func builtinTrap(it *Interp, args []string) int {
	a := args[1:]
	if len(a) == 0 {
		var names []string
		for k := range it.State.Traps {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(it.Stdout, "trap -- %q %s\n", it.State.Traps[k], k)
		}
		return 0
	}
	if a[0] == "-p" {
		return 0
	}
	action := a[0]
	for _, sig := range a[1:] {
		if action == "-" {
			delete(it.State.Traps, sig)
			continue
		}
		it.State.Traps[sig] = action
	}
	return 0
}

func builtinTest(it *Interp, args []string) int {
	return evalTestArgs(it, args[1:])
}

func builtinBracketTest(it *Interp, args []string) int {
	a := args[1:]
	if len(a) > 0 && a[len(a)-1] == "]" {
		a = a[:len(a)-1]
	}
	return evalTestArgs(it, a)
}

// evalTestArgs implements POSIX test(1)/[ semantics directly over already
//-expanded argv strings (not via the [[ ]] word-based conditional
// evaluator, since test's argument count changes its grammar: `test -f x`
// vs `test x -f`).
func evalTestArgs(it *Interp, a []string) int {
	b := boolToStatus
	switch len(a) {
	case 0:
		return 1
	case 1:
		return b(a[0] != "")
	case 2:
		if a[0] == "!" {
			return b(a[1] == "")
		}
		return b(testUnary(it, a[0], a[1]))
	case 3:
		if a[0] == "!" {
			return b(!(len(a) == 3 && testUnary(it, a[1], a[2])))
		}
		return b(testBinary(it, a[0], a[1], a[2]))
	case 4:
		if a[0] == "!" {
			return b(!testBinary(it, a[1], a[2], a[3]))
		}
	}
	return 1
}

func boolToStatus(ok bool) int {
	if ok {
		return 0
	}
	return 1
}

func testUnary(it *Interp, op, x string) bool {
	switch op {
	case "-z":
		return x == ""
	case "-n":
		return x != ""
	}
	info, err := it.State.Fs.Stat(x)
	switch op {
	case "-e", "-a":
		return err == nil
	case "-f":
		return err == nil && info.Mode().IsRegular()
	case "-d":
		return err == nil && info.IsDir()
	case "-r", "-w":
		return err == nil
	case "-x":
		return err == nil && info.Mode()&0111 != 0
	case "-s":
		return err == nil && info.Size() > 0
	}
	return false
}

func testBinary(it *Interp, x, op, y string) bool {
	switch op {
	case "=", "==":
		return x == y
	case "!=":
		return x != y
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		xi, _ := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		yi, _ := strconv.ParseInt(strings.TrimSpace(y), 10, 64)
		switch op {
		case "-eq":
			return xi == yi
		case "-ne":
			return xi != yi
		case "-lt":
			return xi < yi
		case "-le":
			return xi <= yi
		case "-gt":
			return xi > yi
		case "-ge":
			return xi >= yi
		}
	case "-nt":
		xi, xerr := it.State.Fs.Stat(x)
		yi, yerr := it.State.Fs.Stat(y)
		return xerr == nil && (yerr != nil || xi.ModTime().After(yi.ModTime()))
	case "-ot":
		xi, xerr := it.State.Fs.Stat(x)
		yi, yerr := it.State.Fs.Stat(y)
		return yerr == nil && (xerr != nil || xi.ModTime().Before(yi.ModTime()))
	}
	return false
}

func builtinCommand(it *Interp, args []string) int {
	a := args[1:]
	for len(a) > 0 && strings.HasPrefix(a[0], "-") {
		a = a[1:]
	}
	if len(a) == 0 {
		return 0
	}
	name := a[0]
	if bfn, ok := builtins[name]; ok {
		return bfn(it, a)
	}
	if cmd, ok := it.State.Commands.Lookup(name); ok {
		return cmd.Run(a, it.makeCommandContext())
	}
	fmt.Fprintf(it.Stderr, "bash: %s: command not found\n", name)
	return 127
}

func builtinBuiltin(it *Interp, args []string) int {
	if len(args) < 2 {
		return 0
	}
	if bfn, ok := builtins[args[1]]; ok {
		return bfn(it, args[1:])
	}
	fmt.Fprintf(it.Stderr, "bash: builtin: %s: not a shell builtin\n", args[1])
	return 1
}

func builtinType(it *Interp, args []string) int {
	status := 0
	for _, name := range args[1:] {
		switch {
		case it.State.Funcs[name] != nil:
			fmt.Fprintf(it.Stdout, "%s is a function\n", name)
		case builtins[name] != nil:
			fmt.Fprintf(it.Stdout, "%s is a shell builtin\n", name)
		default:
			if _, ok := it.State.Commands.Lookup(name); ok {
				fmt.Fprintf(it.Stdout, "%s is %s\n", name, name)
			} else {
				fmt.Fprintf(it.Stderr, "bash: type: %s: not found\n", name)
				status = 1
			}
		}
	}
	return status
}

func builtinWait(it *Interp, args []string) int {
	// Every command in this sandbox already runs synchronously to
	// completion (see DESIGN.md's background-job note), so there is
	// nothing left to wait for by the time `wait` runs.
	return 0
}

func builtinLet(it *Interp, args []string) int {
	code := 1
	for _, expr := range args[1:] {
		p := syntax.NewParser()
		tree, err := p.ParseArith(expr)
		if err != nil {
			continue
		}
		v, err := it.evalArith(tree)
		if err == nil && v != 0 {
			code = 0
		}
	}
	return code
}

func builtinMapfile(it *Interp, args []string) int {
	a := args[1:]
	varName := "MAPFILE"
	for len(a) > 0 {
		if a[0] == "-t" {
			a = a[1:]
			continue
		}
		if strings.HasPrefix(a[0], "-") && len(a[0]) > 1 {
			a = a[2:]
			continue
		}
		break
	}
	if len(a) > 0 {
		varName = a[0]
	}
	var lines []string
	for {
		line, err := readDelim(it.Stdin, '\n', 0)
		if line != "" || err == nil {
			lines = append(lines, line)
		}
		if err != nil {
			break
		}
	}
	it.State.Vars[varName] = &Variable{IsArray: true, Indexed: func() map[int]string {
		m := map[int]string{}
		for i, l := range lines {
			m[i] = l
		}
		return m
	}(), set: true}
	return 0
}

func builtinGetopts(it *Interp, args []string) int {
	if len(args) < 3 {
		return 2
	}
	optstring := args[1]
	varName := args[2]
	argv := it.State.Positional
	optindStr, _ := it.lookupScalar("OPTIND")
	optind, _ := strconv.Atoi(optindStr)
	if optind < 1 {
		optind = 1
	}
	if optind-1 >= len(argv) {
		return 1
	}
	cur := argv[optind-1]
	if len(cur) < 2 || cur[0] != '-' {
		return 1
	}
	opt := rune(cur[1])
	idx := strings.IndexRune(optstring, opt)
	if idx < 0 {
		it.setScalar(varName, "?")
		it.setScalar("OPTIND", strconv.Itoa(optind+1))
		return 0
	}
	it.setScalar(varName, string(opt))
	if idx+1 < len(optstring) && optstring[idx+1] == ':' {
		if len(cur) > 2 {
			it.setScalar("OPTARG", cur[2:])
			it.setScalar("OPTIND", strconv.Itoa(optind+1))
		} else if optind < len(argv) {
			it.setScalar("OPTARG", argv[optind])
			it.setScalar("OPTIND", strconv.Itoa(optind+2))
		}
	} else {
		it.setScalar("OPTIND", strconv.Itoa(optind+1))
	}
	return 0
}

func builtinTimes(it *Interp, args []string) int {
	fmt.Fprintln(it.Stdout, "0m0.000s 0m0.000s")
	fmt.Fprintln(it.Stdout, "0m0.000s 0m0.000s")
	return 0
}

func builtinPushd(it *Interp, args []string) int {
	if len(args) < 2 {
		if len(it.State.DirStack) == 0 {
			fmt.Fprintln(it.Stderr, "bash: pushd: no other directory")
			return 1
		}
		top := it.State.DirStack[len(it.State.DirStack)-1]
		it.State.DirStack = it.State.DirStack[:len(it.State.DirStack)-1]
		it.State.DirStack = append(it.State.DirStack, it.State.Dir)
		it.State.Dir = top
		it.setScalar("PWD", top)
		return 0
	}
	it.State.DirStack = append(it.State.DirStack, it.State.Dir)
	return builtinCd(it, []string{"cd", args[1]})
}

func builtinPopd(it *Interp, args []string) int {
	if len(it.State.DirStack) == 0 {
		fmt.Fprintln(it.Stderr, "bash: popd: directory stack empty")
		return 1
	}
	top := it.State.DirStack[len(it.State.DirStack)-1]
	it.State.DirStack = it.State.DirStack[:len(it.State.DirStack)-1]
	it.State.Dir = top
	it.setScalar("PWD", top)
	return 0
}

func builtinDirs(it *Interp, args []string) int {
	fmt.Fprint(it.Stdout, it.State.Dir)
	for i := len(it.State.DirStack) - 1; i >= 0; i-- {
		fmt.Fprintf(it.Stdout, " %s", it.State.DirStack[i])
	}
	fmt.Fprintln(it.Stdout)
	return 0
}

// builtinCompgen is an inert completion generator: no real completion UI
// exists in this sandbox (spec.md's Non-goals exclude readline/history),
// so -W's literal word list is filtered by the supplied prefix and printed
// one per line, matching bash's non-interactive `compgen -W` output shape.
func builtinCompgen(it *Interp, args []string) int {
	var words []string
	prefix := ""
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-W":
			if i+1 < len(args) {
				i++
				words = strings.Fields(args[i])
			}
		default:
			if !strings.HasPrefix(args[i], "-") {
				prefix = args[i]
			}
		}
	}
	matched := false
	for _, w := range words {
		if strings.HasPrefix(w, prefix) {
			fmt.Fprintln(it.Stdout, w)
			matched = true
		}
	}
	if !matched {
		return 1
	}
	return 0
}

// builtinExec replaces the shell with a command in real bash; this
// sandbox has no process model to replace, so it downgrades to running
// the command in place.
func builtinExec(it *Interp, args []string) int {
	if len(args) < 2 {
		return 0
	}
	name := args[1]
	rest := args[1:]
	if bfn, ok := builtins[name]; ok {
		return bfn(it, rest)
	}
	if cmd, ok := it.State.Commands.Lookup(name); ok {
		return cmd.Run(rest, it.makeCommandContext())
	}
	fmt.Fprintf(it.Stderr, "bash: exec: %s: not found\n", name)
	return 127
}
