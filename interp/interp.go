package interp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/vercel-labs/just-bash-sub009/command"
	"github.com/vercel-labs/just-bash-sub009/syntax"
	"github.com/vercel-labs/just-bash-sub009/vfs"
)

// ExecutionLimitError describes an exhausted caller-supplied resource
// limit (wall clock, loop iterations, recursion depth, output size). The
// interpreter itself reports an exhausted limit as exit status 124, not
// as a value of this type.
type ExecutionLimitError struct {
	Msg string
}

func (e *ExecutionLimitError) Error() string { return e.Msg }

// controlSignal is the internal propagation mechanism for break/continue
// /return/exit, modeled as a typed error per spec.md §9's "coroutine-like
// control flow" note.
type controlSignal struct {
	kind string // "break", "continue", "return", "exit"
	n    int
}

func (c *controlSignal) Error() string { return "control signal: " + c.kind }

// Interp is one execution of the tree-walking interpreter over a single
// State. It is not safe for concurrent or repeated use across unrelated
// inputs; callers construct one per top-level Exec call, mirroring
// spec.md §5's "one instance per execution" rule.
type Interp struct {
	State *State

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Ctx context.Context

	MaxOutput   int
	outputBytes int

	loopDepth int
	funcDepth int

	deadline time.Time

	fds map[int]*fdBinding

	inTrap map[string]bool

	rawStdout, rawStderr io.Writer
}

// Option configures an Interp at construction time.
type Option func(*Interp)

// WithLimits sets the iteration, recursion-depth, and output-size caps
// enforced during execution.
func WithLimits(maxIter, maxDepth, maxOutput int) Option {
	return func(it *Interp) {
		if maxIter > 0 {
			it.State.IterLimit = maxIter
		}
		if maxDepth > 0 {
			it.State.DepthLimit = maxDepth
		}
		it.MaxOutput = maxOutput
	}
}

// WithTimeout bounds the wall-clock duration of Run.
func WithTimeout(d time.Duration) Option {
	return func(it *Interp) {
		it.deadline = time.Now().Add(d)
	}
}

// New builds an Interp wired to fs, a command registry, stdio streams,
// and an initial environment.
func New(fs vfs.Fs, reg *command.Registry, dir string, stdin io.Reader, stdout, stderr io.Writer, env map[string]string, opts ...Option) *Interp {
	st := NewState(fs, reg, dir)
	for k, v := range env {
		st.SetEnv(k, v)
	}
	return NewWithState(st, stdin, stdout, stderr, opts...)
}

// NewWithState builds an Interp over an already-initialized State, the
// form the public shell package uses so variables, functions, and the
// working directory persist across successive top-level Exec calls on the
// same session (spec.md §5 scopes "one Interp per execution" to the
// interpreter, not to the State it runs over).
func NewWithState(st *State, stdin io.Reader, stdout, stderr io.Writer, opts ...Option) *Interp {
	it := &Interp{
		State:     st,
		Stdin:     stdin,
		Ctx:       context.Background(),
		MaxOutput: 64 << 20,
	}
	for _, o := range opts {
		o(it)
	}
	it.SetOutput(stdout, stderr)
	return it
}

// SetOutput (re)wires Stdout/Stderr, routing every write through
// checkOutput so MaxOutput is enforced regardless of which command or
// redirection produced the bytes.
func (it *Interp) SetOutput(stdout, stderr io.Writer) {
	it.rawStdout = stdout
	it.rawStderr = stderr
	it.Stdout = &countingWriter{it: it, w: stdout}
	it.Stderr = &countingWriter{it: it, w: stderr}
}

// countingWriter routes every byte written to stdout/stderr through
// checkOutput so the MaxOutput cap (set after construction via
// WithLimits) is honored no matter which stream the output landed on.
type countingWriter struct {
	it *Interp
	w  io.Writer
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	cw.it.checkOutput(len(p))
	return cw.w.Write(p)
}

// Result is the captured triple the public Shell API returns.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run parses nothing itself; it executes an already-parsed Script against
// the Interp's State and returns the final exit code. Captured output has
// already been written to it.Stdout/Stderr as execution proceeded.
func (it *Interp) Run(script *syntax.Script) (code int) {
	defer func() {
		if r := recover(); r != nil {
			if cs, ok := r.(*controlSignal); ok {
				switch cs.kind {
				case "exit":
					code = cs.n
					return
				default:
					code = it.State.LastExitCode
					return
				}
			}
			panic(r)
		}
	}()
	if trap, ok := it.State.Traps["EXIT"]; ok && trap != "" {
		defer it.runTrap("EXIT")
	}
	for _, stmt := range script.Stmts {
		it.execStatement(stmt, false)
		if !it.deadline.IsZero() && time.Now().After(it.deadline) {
			panic(&controlSignal{kind: "exit", n: 124})
		}
	}
	return it.State.LastExitCode
}

func (it *Interp) runTrap(sig string) {
	src, ok := it.State.Traps[sig]
	if !ok || src == "" {
		return
	}
	delete(it.State.Traps, sig) // EXIT fires once
	p := syntax.NewParser()
	script, err := p.Parse(src, "trap:"+sig)
	if err != nil {
		return
	}
	for _, stmt := range script.Stmts {
		it.execStatement(stmt, false)
	}
}

// runTrapRepeatable fires the DEBUG/ERR/RETURN traps, which unlike EXIT
// may run many times over a script's life. A re-entrancy guard keeps a
// trap body that itself triggers the same condition (e.g. an ERR trap
// whose own command fails) from recursing forever.
func (it *Interp) runTrapRepeatable(sig string) {
	src, ok := it.State.Traps[sig]
	if !ok || src == "" {
		return
	}
	if it.inTrap == nil {
		it.inTrap = map[string]bool{}
	}
	if it.inTrap[sig] {
		return
	}
	it.inTrap[sig] = true
	defer func() { it.inTrap[sig] = false }()

	p := syntax.NewParser()
	script, err := p.Parse(src, "trap:"+sig)
	if err != nil {
		return
	}
	savedCode := it.State.LastExitCode
	for _, stmt := range script.Stmts {
		it.execStatement(stmt, false)
	}
	it.State.LastExitCode = savedCode
}

// checkOutput enforces MaxOutput across the lifetime of the Interp,
// panicking with an exit-124 controlSignal when a command writes past the
// cap.
func (it *Interp) checkOutput(n int) {
	it.outputBytes += n
	if it.MaxOutput > 0 && it.outputBytes > it.MaxOutput {
		panic(&controlSignal{kind: "exit", n: 124})
	}
}

// --- variable access helpers shared by expand.go / arith.go / exec.go ------

func (it *Interp) resolveNameref(name string) string {
	seen := map[string]bool{}
	depth := 0
	for depth < 16 {
		v, ok := it.State.Vars[name]
		if !ok || !v.Nameref || !v.set {
			return name
		}
		if seen[v.Scalar] {
			return name
		}
		seen[name] = true
		name = v.Scalar
		depth++
	}
	return name
}

func (it *Interp) lookupScalar(name string) (string, bool) {
	name = it.resolveNameref(name)
	switch name {
	case "?":
		return strconv.Itoa(it.State.LastExitCode), true
	case "$":
		return strconv.Itoa(it.State.BashPid), true
	case "!":
		return strconv.Itoa(it.State.LastBackgroundPid), true
	case "#":
		return strconv.Itoa(len(it.State.Positional)), true
	case "_":
		return it.State.LastArg, true
	case "-":
		return it.optionFlagsString(), true
	case "0":
		return it.State.ScriptName, true
	case "RANDOM":
		return strconv.Itoa(it.State.Rand.Intn(32768)), true
	case "SECONDS":
		return strconv.Itoa(int(time.Since(it.State.StartTime).Seconds())), true
	case "BASHPID":
		return strconv.Itoa(it.State.BashPid), true
	case "PPID":
		if v, ok := it.State.Vars["PPID"]; ok {
			return v.Scalar, true
		}
		return "1", true
	case "LINENO":
		return strconv.Itoa(int(it.State.CurrentLine)), true
	case "FUNCNAME":
		if len(it.State.FuncNameStack) == 0 {
			return "", false
		}
		return it.State.FuncNameStack[len(it.State.FuncNameStack)-1], true
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 1 {
		if n <= len(it.State.Positional) {
			return it.State.Positional[n-1], true
		}
		return "", false
	}
	v, ok := it.State.Vars[name]
	if !ok || !v.set {
		return "", false
	}
	if v.IsArray {
		if s, ok := v.Indexed[0]; ok {
			return s, true
		}
		return "", true
	}
	if v.IsAssoc {
		return "", true
	}
	return v.Scalar, true
}

func (it *Interp) optionFlagsString() string {
	var sb strings.Builder
	if it.State.Opts.Errexit {
		sb.WriteByte('e')
	}
	if it.State.Opts.Nounset {
		sb.WriteByte('u')
	}
	if it.State.Opts.Xtrace {
		sb.WriteByte('x')
	}
	if it.State.Opts.Verbose {
		sb.WriteByte('v')
	}
	return sb.String()
}

func (it *Interp) setScalar(name, value string) {
	name = it.resolveNameref(name)
	if it.State.ReadonlyVars[name] {
		fmt.Fprintf(it.Stderr, "bash: %s: readonly variable\n", name)
		return
	}
	v, existed := it.State.Vars[name]
	if !existed {
		v = &Variable{}
	}
	if it.State.IntegerVars[name] {
		n, err := it.evalArithVarDepth(value, 0)
		if err == nil {
			value = strconv.FormatInt(n, 10)
		}
	}
	v.Scalar = value
	v.set = true
	it.State.Vars[name] = v
	if it.State.ExportedVars[name] {
		v.Exported = true
	}
	if name == "PWD" {
		it.State.Dir = value
	}
}

func (it *Interp) getIndexed(name string, idx int) string {
	name = it.resolveNameref(name)
	v, ok := it.State.Vars[name]
	if !ok {
		return ""
	}
	if v.IsAssoc {
		return v.Assoc[strconv.Itoa(idx)]
	}
	if idx < 0 {
		idx = it.maxIndex(name) + 1 + idx
		if idx < 0 {
			it.softError(name + ": bad array subscript")
			return ""
		}
	}
	if v.Indexed == nil {
		return ""
	}
	return v.Indexed[idx]
}

func (it *Interp) setIndexed(name string, idx int, value string) {
	name = it.resolveNameref(name)
	v, ok := it.State.Vars[name]
	if !ok {
		v = &Variable{}
		it.State.Vars[name] = v
	}
	v.set = true
	v.IsArray = true
	if idx < 0 {
		idx = it.maxIndex(name) + 1 + idx
		if idx < 0 {
			idx = 0
		}
	}
	if v.Indexed == nil {
		v.Indexed = make(map[int]string)
	}
	v.Indexed[idx] = value
}

func (it *Interp) setAssoc(name, key, value string) {
	name = it.resolveNameref(name)
	v, ok := it.State.Vars[name]
	if !ok {
		v = &Variable{}
		it.State.Vars[name] = v
	}
	v.set = true
	v.IsAssoc = true
	if v.Assoc == nil {
		v.Assoc = make(map[string]string)
	}
	v.Assoc[key] = value
}

func (it *Interp) maxIndex(name string) int {
	v, ok := it.State.Vars[name]
	if !ok || v.Indexed == nil {
		return -1
	}
	max := -1
	for k := range v.Indexed {
		if k > max {
			max = k
		}
	}
	return max
}

// runCaptured executes stmts against a cloned sub-Interp sharing the same
// Fs, with stdout captured to a buffer, for command substitution. Per
// spec.md's subshell-isolation invariant, command substitution runs in its
// own variable scope: assignments made inside $(...) must not leak to the
// parent, so the sub-Interp gets its own State.Clone() rather than the
// parent's State directly.
func (it *Interp) runCaptured(stmts []*syntax.Statement) string {
	var buf bytes.Buffer
	sub := &Interp{
		State:     it.State.Clone(),
		Stdin:     it.Stdin,
		Stderr:    it.Stderr,
		Ctx:       it.Ctx,
		MaxOutput: it.MaxOutput,
		loopDepth: it.loopDepth,
		funcDepth: it.funcDepth,
		deadline:  it.deadline,
	}
	sub.Stdout = &countingWriter{it: sub, w: &buf}
	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(*controlSignal); ok {
					return
				}
				panic(r)
			}
		}()
		for _, stmt := range stmts {
			sub.execStatement(stmt, false)
		}
	}()
	it.State.LastExitCode = sub.State.LastExitCode
	out := buf.String()
	return strings.TrimRight(out, "\n")
}
