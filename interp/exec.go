package interp

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/vercel-labs/just-bash-sub009/command"
	"github.com/vercel-labs/just-bash-sub009/pattern"
	"github.com/vercel-labs/just-bash-sub009/syntax"
)

// execStmtList runs stmts in order in the current interpreter, the
// ordinary (non-errexit-guarded) form used for compound-command bodies.
func (it *Interp) execStmtList(stmts []*syntax.Statement) int {
	code := 0
	for _, s := range stmts {
		code = it.execStatement(s, false)
	}
	return code
}

// execCondList runs stmts as the condition of an if/while/until: the
// errexit check is suspended per spec.md §4.5.2.
func (it *Interp) execCondList(stmts []*syntax.Statement) int {
	code := 0
	for _, s := range stmts {
		code = it.execStatement(s, true)
	}
	return code
}

// execStatement runs one &&/||/;-chained statement. guarded suppresses
// errexit/ERR-trap firing, for condition clauses and the left operands of
// &&/||, which spec.md §4.5.2 exempts.
func (it *Interp) execStatement(stmt *syntax.Statement, guarded bool) int {
	code := 0
	ranLast := false
	for i, pl := range stmt.Pipelines {
		if i > 0 {
			switch stmt.Connectors[i-1] {
			case syntax.LAND:
				if code != 0 {
					continue
				}
			case syntax.LOR:
				if code == 0 {
					continue
				}
			}
		}
		// Only the rightmost pipeline in the chain is errexit-eligible;
		// every other one sits to the left of a && or || and is exempt
		// (enforced below via ranLast, not per-pipeline).
		code = it.execPipeline(pl)
		ranLast = i == len(stmt.Pipelines)-1
	}

	if stmt.Background {
		it.State.LastBackgroundPid = it.State.NextPid
		it.State.NextPid++
		it.State.LastExitCode = 0
		return 0
	}

	it.State.LastExitCode = code
	if ranLast && !guarded && code != 0 {
		it.runTrapRepeatable("ERR")
		if it.State.Opts.Errexit {
			panic(&controlSignal{kind: "exit", n: code})
		}
	}
	return code
}

// execPipeline runs one |/|&-chained pipeline, honoring `time` and `!`.
func (it *Interp) execPipeline(p *syntax.Pipeline) int {
	if len(p.Stages) == 0 {
		return 0
	}
	var code int
	if p.Stages[0].TimeKeyword {
		start := time.Now()
		code = it.execPipelineStages(p.Stages)
		it.printTime(time.Since(start), p.Stages[0].TimePosix)
	} else {
		code = it.execPipelineStages(p.Stages)
	}
	if p.Negated {
		if code == 0 {
			code = 1
		} else {
			code = 0
		}
	}
	return code
}

func (it *Interp) printTime(d time.Duration, posix bool) {
	if posix {
		fmt.Fprintf(it.Stderr, "real %.3f\n", d.Seconds())
		return
	}
	mins := int(d.Minutes())
	secs := d.Seconds() - float64(mins*60)
	fmt.Fprintf(it.Stderr, "\nreal\t%dm%.3fs\nuser\t0m0.000s\nsys\t0m0.000s\n", mins, secs)
}

// execPipelineStages runs every stage of a pipeline. A single-stage
// pipeline runs directly in it so control signals propagate normally. A
// multi-stage pipeline runs each stage concurrently over a real io.Pipe,
// feeding stage i's stdout to stage i+1's stdin, with every stage but the
// last running against a State.Clone() so its assignments don't leak
// (spec.md §5's pipeline subshell semantics).
func (it *Interp) execPipelineStages(stages []*syntax.PipelineStage) int {
	n := len(stages)
	if n == 1 {
		return it.execOneStageCommand(stages[0])
	}

	codes := make([]int, n)
	signals := make([]*controlSignal, n)
	var g errgroup.Group
	var prevRead io.Reader = it.Stdin

	for i := 0; i < n; i++ {
		i := i
		st := stages[i]
		last := i == n-1
		sub := &Interp{
			State:     it.State,
			Stdin:     prevRead,
			Stdout:    it.Stdout,
			Stderr:    it.Stderr,
			Ctx:       it.Ctx,
			MaxOutput: it.MaxOutput,
			deadline:  it.deadline,
		}
		var pw *io.PipeWriter
		if !last {
			var pr *io.PipeReader
			pr, pw = io.Pipe()
			sub.Stdout = pw
			if st.PipeAll {
				sub.Stderr = pw
			}
			sub.State = it.State.Clone()
			prevRead = pr
		}
		g.Go(func() error {
			if pw != nil {
				defer pw.Close()
			}
			codes[i], signals[i] = sub.execStageRecovered(st)
			return nil
		})
	}
	g.Wait()

	for _, sig := range signals {
		if sig != nil {
			panic(sig)
		}
	}

	if it.State.Opts.Pipefail {
		for i := n - 1; i >= 0; i-- {
			if codes[i] != 0 {
				return codes[i]
			}
		}
		return 0
	}
	return codes[n-1]
}

// execStageRecovered runs one pipeline stage inside a goroutine, turning
// any escaping control signal (exit, a stray break/continue/return) into a
// value so it can be re-raised on the caller's goroutine once every stage
// has finished, instead of crashing the process.
func (it *Interp) execStageRecovered(st *syntax.PipelineStage) (code int, sig *controlSignal) {
	defer func() {
		if r := recover(); r != nil {
			if cs, ok := r.(*controlSignal); ok {
				sig = cs
				code = it.State.LastExitCode
				return
			}
			panic(r)
		}
	}()
	code = it.execOneStageCommand(st)
	return
}

func (it *Interp) execOneStageCommand(st *syntax.PipelineStage) int {
	cleanup, err := it.applyRedirs(st.Redirs)
	defer cleanup()
	if err != nil {
		fmt.Fprintln(it.Stderr, err.Error())
		return 1
	}
	return it.execCommand(st.Cmd)
}

// execCommand dispatches over every syntax.Command variant.
func (it *Interp) execCommand(cmd syntax.Command) int {
	switch c := cmd.(type) {
	case *syntax.SimpleCommand:
		return it.execSimpleCommand(c)
	case *syntax.FunctionDef:
		it.State.Funcs[c.Name.Value] = c
		return 0
	case *syntax.Group:
		return it.execStmtList(c.Stmts)
	case *syntax.Subshell:
		return it.execSubshell(c)
	case *syntax.IfClause:
		return it.execIf(c)
	case *syntax.WhileClause:
		return it.execWhile(c)
	case *syntax.UntilClause:
		return it.execUntil(c)
	case *syntax.ForClause:
		return it.execFor(c)
	case *syntax.CaseClause:
		return it.execCase(c)
	case *syntax.ArithCommand:
		v, err := it.evalArith(c.X)
		if err != nil {
			fmt.Fprintf(it.Stderr, "bash: ((: %s\n", err.Error())
			return 1
		}
		if v != 0 {
			return 0
		}
		return 1
	case *syntax.ConditionalCommand:
		ok, err := it.evalCond(c.X)
		if err != nil {
			fmt.Fprintf(it.Stderr, "bash: [[: %s\n", err.Error())
			return 2
		}
		if ok {
			return 0
		}
		return 1
	case *syntax.CoprocClause:
		// Downgraded to a plain background-ish block: the body runs to
		// completion in-line, since there is no coroutine fd plumbing in
		// this sandbox (see DESIGN.md).
		return it.execCommand(c.Body)
	}
	return 0
}

func (it *Interp) execSubshell(s *syntax.Subshell) (code int) {
	sub := &Interp{
		State:     it.State.Clone(),
		Stdin:     it.Stdin,
		Stdout:    it.Stdout,
		Stderr:    it.Stderr,
		Ctx:       it.Ctx,
		MaxOutput: it.MaxOutput,
		loopDepth: it.loopDepth,
		funcDepth: it.funcDepth,
		deadline:  it.deadline,
	}
	sub.State.BashPid = it.State.NextPid
	it.State.NextPid++
	func() {
		defer func() {
			if r := recover(); r != nil {
				if cs, ok := r.(*controlSignal); ok {
					if cs.kind == "exit" {
						code = cs.n
					} else {
						code = sub.State.LastExitCode
					}
					return
				}
				panic(r)
			}
		}()
		code = sub.execStmtList(s.Stmts)
	}()
	it.State.LastExitCode = code
	return code
}

func (it *Interp) execIf(c *syntax.IfClause) int {
	if it.condTrue(c.Cond) {
		return it.execStmtList(c.Then)
	}
	for _, e := range c.Elifs {
		if it.condTrue(e.Cond) {
			return it.execStmtList(e.Then)
		}
	}
	if c.HasElse {
		return it.execStmtList(c.Else)
	}
	it.State.LastExitCode = 0
	return 0
}

func (it *Interp) condTrue(stmts []*syntax.Statement) bool {
	return it.execCondList(stmts) == 0
}

// runLoopBody runs one iteration of a loop body, absorbing break/continue
// via panic/recover so nested loops of arbitrary depth unwind correctly
// (spec.md §9's "coroutine-like control flow"). brk reports whether the
// loop as a whole should stop.
func (it *Interp) runLoopBody(body []*syntax.Statement) (code int, brk bool) {
	it.loopDepth++
	defer func() { it.loopDepth-- }()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		cs, ok := r.(*controlSignal)
		if !ok {
			panic(r)
		}
		switch cs.kind {
		case "break":
			if cs.n > 1 {
				panic(&controlSignal{kind: "break", n: cs.n - 1})
			}
			brk = true
		case "continue":
			if cs.n > 1 {
				panic(&controlSignal{kind: "continue", n: cs.n - 1})
			}
		default:
			panic(r)
		}
	}()
	code = it.execStmtList(body)
	return
}

func (it *Interp) checkIterLimit(iter int) {
	if it.State.IterLimit > 0 && iter > it.State.IterLimit {
		panic(&controlSignal{kind: "exit", n: 124})
	}
}

func (it *Interp) execWhile(w *syntax.WhileClause) int {
	code := 0
	iter := 0
	for {
		iter++
		it.checkIterLimit(iter)
		if !it.condTrue(w.Cond) {
			break
		}
		var brk bool
		code, brk = it.runLoopBody(w.Do)
		if brk {
			break
		}
	}
	it.State.LastExitCode = code
	return code
}

func (it *Interp) execUntil(u *syntax.UntilClause) int {
	code := 0
	iter := 0
	for {
		iter++
		it.checkIterLimit(iter)
		if it.condTrue(u.Cond) {
			break
		}
		var brk bool
		code, brk = it.runLoopBody(u.Do)
		if brk {
			break
		}
	}
	it.State.LastExitCode = code
	return code
}

func (it *Interp) execFor(f *syntax.ForClause) int {
	switch loop := f.Loop.(type) {
	case *syntax.WordIter:
		return it.execForWords(f, loop)
	case *syntax.CStyleLoop:
		return it.execForCStyle(f, loop)
	}
	return 0
}

func (it *Interp) execForWords(f *syntax.ForClause, w *syntax.WordIter) int {
	var items []string
	if w.List == nil {
		items = append([]string(nil), it.State.Positional...)
	} else {
		items = it.ExpandArgs(w.List)
	}
	code := 0
	for i, item := range items {
		it.checkIterLimit(i + 1)
		it.setScalar(w.Name.Value, item)
		var brk bool
		code, brk = it.runLoopBody(f.Do)
		if brk {
			break
		}
	}
	it.State.LastExitCode = code
	return code
}

func (it *Interp) execForCStyle(f *syntax.ForClause, c *syntax.CStyleLoop) int {
	if c.Init != nil {
		if _, err := it.evalArith(c.Init); err != nil {
			fmt.Fprintf(it.Stderr, "bash: ((: %s\n", err.Error())
		}
	}
	code := 0
	iter := 0
	for {
		cond := true
		if c.Cond != nil {
			v, err := it.evalArith(c.Cond)
			if err != nil {
				fmt.Fprintf(it.Stderr, "bash: ((: %s\n", err.Error())
				break
			}
			cond = v != 0
		}
		if !cond {
			break
		}
		iter++
		it.checkIterLimit(iter)
		var brk bool
		code, brk = it.runLoopBody(f.Do)
		if brk {
			break
		}
		if c.Post != nil {
			if _, err := it.evalArith(c.Post); err != nil {
				fmt.Fprintf(it.Stderr, "bash: ((: %s\n", err.Error())
				break
			}
		}
	}
	it.State.LastExitCode = code
	return code
}

func (it *Interp) execCase(c *syntax.CaseClause) int {
	word := it.expandWordToString(c.Word)
	mode := it.globMode()
	code := 0
	fallThrough := false
	for i := 0; i < len(c.Items); i++ {
		item := c.Items[i]
		if !fallThrough && !it.caseItemMatches(item, word, mode) {
			continue
		}
		code = it.execStmtList(item.Stmts)
		switch item.Terminator {
		case syntax.DSEMI:
			it.State.LastExitCode = code
			return code
		case syntax.SEMIFALL:
			fallThrough = true
		default: // DSEMIFALL, or an implicit terminator on the last item
			fallThrough = false
		}
	}
	it.State.LastExitCode = code
	return code
}

func (it *Interp) caseItemMatches(item *syntax.CaseItem, word string, mode pattern.Mode) bool {
	for _, pw := range item.Patterns {
		pat := it.expandWordToString(pw)
		re, err := pattern.Compile(pat, mode|pattern.EntireString)
		if err == nil && re.MatchString(word) {
			return true
		}
	}
	return false
}

// callFunction invokes fn with args (args[0] is the function name, the
// rest become $1.. inside the body), pushing a scope frame and the
// FUNCNAME/call-site stacks, and catching a "return" control signal at the
// call boundary. Every frame is popped regardless of how the body exits,
// per spec.md §8's universal restore invariant.
func (it *Interp) callFunction(fn *syntax.FunctionDef, args []string) (code int) {
	if it.funcDepth >= it.State.DepthLimit {
		panic(&controlSignal{kind: "exit", n: 124})
	}
	it.State.PushScope()
	it.State.FuncNameStack = append(it.State.FuncNameStack, fn.Name.Value)
	it.State.CallLineStack = append(it.State.CallLineStack, it.State.CurrentLine)
	it.State.SourceStack = append(it.State.SourceStack, it.State.ScriptName)
	savedPositional := it.State.Positional
	it.State.Positional = append([]string(nil), args[1:]...)
	it.funcDepth++

	defer func() {
		it.funcDepth--
		it.State.Positional = savedPositional
		if n := len(it.State.FuncNameStack); n > 0 {
			it.State.FuncNameStack = it.State.FuncNameStack[:n-1]
		}
		if n := len(it.State.CallLineStack); n > 0 {
			it.State.CallLineStack = it.State.CallLineStack[:n-1]
		}
		if n := len(it.State.SourceStack); n > 0 {
			it.State.SourceStack = it.State.SourceStack[:n-1]
		}
		it.State.PopScope()
		it.runTrapRepeatable("RETURN")
		if r := recover(); r != nil {
			if cs, ok := r.(*controlSignal); ok && cs.kind == "return" {
				code = cs.n
				return
			}
			panic(r)
		}
	}()

	code = it.execCommand(fn.Body)
	return code
}

// --- redirection / fd machinery --------------------------------------------

// applyRedirs applies every redirect in order and returns a cleanup
// closure that restores whatever it replaced, to be run unconditionally
// (via defer) regardless of how the command's execution ends.
func (it *Interp) applyRedirs(redirs []*syntax.Redirect) (func(), error) {
	var restores []func()
	cleanup := func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}
	for _, r := range redirs {
		restore, err := it.applyRedir(r)
		if err != nil {
			cleanup()
			return func() {}, err
		}
		restores = append(restores, restore)
	}
	return cleanup, nil
}

func (it *Interp) redirFd(r *syntax.Redirect) int {
	if r.N != nil {
		n, _ := strconv.Atoi(r.N.Value)
		return n
	}
	return defaultFdFor(r.Op)
}

func defaultFdFor(op syntax.Token) int {
	switch op {
	case syntax.RDRIN, syntax.RDRINOUT, syntax.DPLIN, syntax.HDOC, syntax.DHEREDOC, syntax.WHEREDOC:
		return 0
	}
	return 1
}

func (it *Interp) applyRedir(r *syntax.Redirect) (func(), error) {
	fd := it.redirFd(r)

	switch r.Op {
	case syntax.HDOC, syntax.DHEREDOC:
		content := it.materializeHeredoc(r.Hdoc)
		old := it.Stdin
		it.Stdin = strings.NewReader(content)
		return func() { it.Stdin = old }, nil

	case syntax.WHEREDOC:
		content := it.expandWordToString(r.Word)
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		old := it.Stdin
		it.Stdin = strings.NewReader(content)
		return func() { it.Stdin = old }, nil

	case syntax.RDRIN:
		name := it.expandWordToString(r.Word)
		f, err := it.State.Fs.Open(name)
		if err != nil {
			return nil, redirError(name, err)
		}
		return it.bindFd(fd, f, nil, r.FdVar)

	case syntax.RDROUT, syntax.CLBOUT:
		name := it.expandWordToString(r.Word)
		if it.State.Opts.Noclobber && r.Op == syntax.RDROUT {
			if _, err := it.State.Fs.Stat(name); err == nil {
				return nil, fmt.Errorf("bash: %s: cannot overwrite existing file", name)
			}
		}
		f, err := it.State.Fs.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, redirError(name, err)
		}
		return it.bindFd(fd, nil, f, r.FdVar)

	case syntax.APPEND:
		name := it.expandWordToString(r.Word)
		f, err := it.State.Fs.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, redirError(name, err)
		}
		return it.bindFd(fd, nil, f, r.FdVar)

	case syntax.RDRINOUT:
		name := it.expandWordToString(r.Word)
		f, err := it.State.Fs.OpenFile(name, os.O_CREATE|os.O_RDWR, 0644)
		if err != nil {
			return nil, redirError(name, err)
		}
		return it.bindFd(fd, f, f, r.FdVar)

	case syntax.RDRALL:
		name := it.expandWordToString(r.Word)
		f, err := it.State.Fs.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, redirError(name, err)
		}
		return it.bindBoth(f)

	case syntax.APPALL:
		name := it.expandWordToString(r.Word)
		f, err := it.State.Fs.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, redirError(name, err)
		}
		return it.bindBoth(f)

	case syntax.DPLIN, syntax.DPLOUT:
		target := strings.TrimSpace(it.literalWordText(r.Word))
		if target == "-" {
			return it.closeFd(fd, r.Op == syntax.DPLIN)
		}
		srcFd, err := strconv.Atoi(target)
		if err != nil {
			return nil, fmt.Errorf("bash: %s: invalid fd for %s", target, r.Op)
		}
		return it.dupFd(fd, srcFd, r.Op == syntax.DPLIN)
	}
	return func() {}, nil
}

// literalWordText reads a word's text without splitting/globbing, for
// contexts (dup-fd targets, fd-var names) that must not expand further.
func (it *Interp) literalWordText(w syntax.Word) string {
	return it.expandWordToString(w)
}

// redirError wraps a failure opening a redirection target via
// golang.org/x/xerrors so the underlying vfs error survives for
// errors.Is/As callers while the message stays bash-shaped.
func redirError(name string, err error) error {
	return xerrors.Errorf("bash: %s: %w", name, err)
}

// bindFd rewires fd to r/w (whichever is non-nil becomes its Reader or
// Writer) and, if fdVar is set, records the allocated descriptor number in
// that variable per the `{name}>file` form (spec.md §4.6).
func (it *Interp) bindFd(fd int, r io.Reader, w io.Writer, fdVar *syntax.Lit) (func(), error) {
	if fdVar != nil {
		fd = it.State.NextFd
		it.State.NextFd++
		it.setScalar(fdVar.Value, strconv.Itoa(fd))
	}
	switch fd {
	case 0:
		old := it.Stdin
		if r != nil {
			it.Stdin = r
		}
		return func() {
			it.Stdin = old
			closeIfCloser(r)
		}, nil
	case 1:
		old := it.Stdout
		if w != nil {
			it.Stdout = w
		}
		return func() {
			it.Stdout = old
			closeIfCloser(w)
		}, nil
	case 2:
		old := it.Stderr
		if w != nil {
			it.Stderr = w
		}
		return func() {
			it.Stderr = old
			closeIfCloser(w)
		}, nil
	default:
		if it.fds == nil {
			it.fds = map[int]*fdBinding{}
		}
		old, hadOld := it.fds[fd]
		it.fds[fd] = &fdBinding{r: r, w: w}
		return func() {
			if hadOld {
				it.fds[fd] = old
			} else {
				delete(it.fds, fd)
			}
			closeIfCloser(r)
			closeIfCloser(w)
		}, nil
	}
}

func (it *Interp) bindBoth(f io.ReadWriter) (func(), error) {
	restoreOut, _ := it.bindFd(1, nil, f, nil)
	oldErr := it.Stderr
	it.Stderr = f.(io.Writer)
	return func() {
		restoreOut()
		it.Stderr = oldErr
	}, nil
}

func closeIfCloser(v interface{}) {
	if c, ok := v.(io.Closer); ok {
		c.Close()
	}
}

func (it *Interp) closeFd(fd int, isInput bool) (func(), error) {
	if isInput {
		old := it.getReader(fd)
		it.setReaderFd(fd, closedReader{})
		return func() { it.setReaderFd(fd, old) }, nil
	}
	old := it.getWriter(fd)
	it.setWriterFd(fd, io.Discard)
	return func() { it.setWriterFd(fd, old) }, nil
}

func (it *Interp) dupFd(fd, srcFd int, isInput bool) (func(), error) {
	if isInput {
		r := it.getReader(srcFd)
		old := it.getReader(fd)
		it.setReaderFd(fd, r)
		return func() { it.setReaderFd(fd, old) }, nil
	}
	w := it.getWriter(srcFd)
	old := it.getWriter(fd)
	it.setWriterFd(fd, w)
	return func() { it.setWriterFd(fd, old) }, nil
}

type closedReader struct{}

func (closedReader) Read(p []byte) (int, error) { return 0, io.EOF }

type fdBinding struct {
	r io.Reader
	w io.Writer
}

func (it *Interp) getReader(fd int) io.Reader {
	switch fd {
	case 0:
		return it.Stdin
	default:
		if b, ok := it.fds[fd]; ok && b.r != nil {
			return b.r
		}
		return it.Stdin
	}
}

func (it *Interp) getWriter(fd int) io.Writer {
	switch fd {
	case 1:
		return it.Stdout
	case 2:
		return it.Stderr
	default:
		if b, ok := it.fds[fd]; ok && b.w != nil {
			return b.w
		}
		return it.Stdout
	}
}

func (it *Interp) setReaderFd(fd int, r io.Reader) {
	switch fd {
	case 0:
		it.Stdin = r
	default:
		if it.fds == nil {
			it.fds = map[int]*fdBinding{}
		}
		b, ok := it.fds[fd]
		if !ok {
			b = &fdBinding{}
			it.fds[fd] = b
		}
		b.r = r
	}
}

func (it *Interp) setWriterFd(fd int, w io.Writer) {
	switch fd {
	case 1:
		it.Stdout = w
	case 2:
		it.Stderr = w
	default:
		if it.fds == nil {
			it.fds = map[int]*fdBinding{}
		}
		b, ok := it.fds[fd]
		if !ok {
			b = &fdBinding{}
			it.fds[fd] = b
		}
		b.w = w
	}
}

// materializeHeredoc expands (unless the delimiter was quoted) a here-doc
// body, stripping leading tabs for the <<- form.
func (it *Interp) materializeHeredoc(h *syntax.HereDoc) string {
	var text string
	if h.Quoted {
		text = it.literalHeredocText(h.Doc)
	} else {
		text = it.expandWordToString(h.Doc)
	}
	if h.StripTabs {
		lines := strings.Split(text, "\n")
		for i, l := range lines {
			lines[i] = strings.TrimLeft(l, "\t")
		}
		text = strings.Join(lines, "\n")
	}
	return text
}

// literalHeredocText assembles a quoted-delimiter here-doc body verbatim,
// with no parameter/command/arithmetic substitution.
func (it *Interp) literalHeredocText(w syntax.Word) string {
	var sb strings.Builder
	for _, part := range w.Parts {
		if lit, ok := part.(*syntax.Lit); ok {
			sb.WriteString(lit.Value)
		}
	}
	return sb.String()
}

// --- assignment -------------------------------------------------------------

func (it *Interp) execAssigns(assigns []*syntax.Assign) {
	for _, a := range assigns {
		it.execAssign(a)
	}
}

func (it *Interp) execAssign(a *syntax.Assign) {
	name := a.Name.Value
	isAssoc := it.State.AssocArrays[name]
	if existing, ok := it.State.Vars[name]; ok {
		isAssoc = isAssoc || existing.IsAssoc
	}

	switch {
	case a.Array != nil:
		it.execArrayAssign(name, a.Array, isAssoc)
	case a.Index != nil:
		key := it.arithIndexKey(a.Index, isAssoc)
		val := it.expandWordToString(a.Value)
		if isAssoc {
			if a.Append {
				val = it.getAssocOrIndexed(name, key) + val
			}
			it.setAssoc(name, key, val)
		} else {
			idx, err := it.evalArith(a.Index)
			n := 0
			if err == nil {
				n = int(idx)
			}
			if a.Append {
				val = it.getIndexed(name, n) + val
			}
			it.setIndexed(name, n, val)
		}
	case a.Naked:
		if _, ok := it.State.Vars[name]; !ok {
			it.State.Vars[name] = &Variable{}
		}
	default:
		val := it.expandWordToString(a.Value)
		if a.Append {
			if v, ok := it.State.Vars[name]; ok && (v.IsArray || v.IsAssoc) {
				it.setIndexed(name, it.maxIndex(name)+1, val)
				return
			}
			prev, _ := it.lookupScalar(name)
			val = prev + val
		}
		it.setScalar(name, val)
	}
}

func (it *Interp) getAssocOrIndexed(name, key string) string {
	v, ok := it.State.Vars[name]
	if !ok {
		return ""
	}
	if v.IsAssoc {
		return v.Assoc[key]
	}
	n, _ := strconv.Atoi(key)
	return v.Indexed[n]
}

// execArrayAssign handles NAME=(a b c) and NAME=([k]=v ...), dispatching
// the subscript of each element as a literal associative key or an
// arithmetic indexed-array index depending on the target's declared kind
// (see parser_assign.go: the parser always produces an ArithExpr for
// [...] regardless of array kind, so this disambiguation happens here).
func (it *Interp) execArrayAssign(name string, arr *syntax.ArrayExpr, isAssoc bool) {
	if isAssoc {
		if _, ok := it.State.Vars[name]; !ok {
			it.State.Vars[name] = &Variable{}
		}
		it.State.Vars[name].IsAssoc = true
		it.State.Vars[name].set = true
		if it.State.Vars[name].Assoc == nil {
			it.State.Vars[name].Assoc = map[string]string{}
		}
		for _, el := range arr.Elems {
			val := it.expandWordToString(el.Value)
			key := ""
			if el.Index != nil {
				key = it.arithIndexKey(el.Index, true)
			}
			it.setAssoc(name, key, val)
		}
		return
	}

	delete(it.State.Vars, name)
	next := 0
	for _, el := range arr.Elems {
		idx := next
		if el.Index != nil {
			v, err := it.evalArith(el.Index)
			if err == nil {
				idx = int(v)
			}
		}
		for _, val := range it.expandArrayElem(el.Value) {
			it.setIndexed(name, idx, val)
			idx++
		}
		next = idx
	}
	if _, ok := it.State.Vars[name]; !ok {
		it.State.Vars[name] = &Variable{IsArray: true, Indexed: map[int]string{}, set: true}
	}
}

// expandArrayElem expands one array-literal element the full way
// (splitting/globbing included), since `arr=($x)` splits an unquoted $x.
func (it *Interp) expandArrayElem(w syntax.Word) []string {
	var out []string
	for _, bw := range BraceWords(w) {
		out = append(out, it.expandWordFull(bw)...)
	}
	if len(out) == 0 {
		out = []string{""}
	}
	return out
}

// arithIndexKey extracts the subscript key for a `name[...]=` assignment:
// a literal string for associative arrays (bash never arithmetically
// evaluates an associative subscript), or the stringified arithmetic
// result otherwise.
func (it *Interp) arithIndexKey(e syntax.ArithExpr, isAssoc bool) string {
	if isAssoc {
		switch n := e.(type) {
		case *syntax.ArithVariable:
			return n.Name
		case *syntax.ArithWord:
			return it.expandWordToString(n.W)
		}
	}
	v, err := it.evalArith(e)
	if err != nil {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

// --- simple command execution ------------------------------------------

// execSimpleCommand fires the DEBUG trap, expands a command's words,
// applies its redirections and prefix assignments (scoped to the command
// alone when a command name follows), then resolves the name against
// functions, builtins, and the external-command registry in that order.
func (it *Interp) execSimpleCommand(c *syntax.SimpleCommand) int {
	if len(c.Args) == 0 {
		// Bare assignment(s) / redirection(s), no command: persist to the
		// current scope.
		cleanup, err := it.applyRedirs(c.Redirs)
		defer cleanup()
		if err != nil {
			fmt.Fprintln(it.Stderr, err.Error())
			return 1
		}
		it.execAssigns(c.Assigns)
		it.State.LastExitCode = 0
		return 0
	}

	it.runTrapRepeatable("DEBUG")

	var words []syntax.Word
	for _, w := range c.Args {
		words = append(words, BraceWords(w)...)
	}
	var args []string
	for _, w := range words {
		args = append(args, it.expandWordFull(w)...)
	}
	if len(args) == 0 {
		return 0
	}
	name := args[0]
	if len(args) > 0 {
		it.State.LastArg = args[len(args)-1]
	}

	if it.State.Opts.Xtrace {
		fmt.Fprintf(it.Stderr, "+ %s\n", strings.Join(args, " "))
	}

	cleanup, err := it.applyRedirs(c.Redirs)
	defer cleanup()
	if err != nil {
		fmt.Fprintln(it.Stderr, err.Error())
		return 1
	}

	if fn, ok := it.State.Funcs[name]; ok {
		// Prefix assignments to a function call are local to the call.
		sc := it.State.PushScope()
		for _, a := range c.Assigns {
			it.State.DeclareLocal(a.Name.Value)
			it.execAssign(a)
		}
		_ = sc
		defer it.State.PopScope()
		return it.callFunction(fn, args)
	}

	if bfn, ok := builtins[name]; ok {
		restore := it.applyPrefixAssigns(c.Assigns)
		defer restore()
		return bfn(it, args)
	}

	if cmd, ok := it.State.Commands.Lookup(name); ok {
		restore := it.applyPrefixAssigns(c.Assigns)
		defer restore()
		ctx := it.makeCommandContext()
		return cmd.Run(args, ctx)
	}

	if len(c.Assigns) > 0 && len(args) == 0 {
		it.execAssigns(c.Assigns)
		return 0
	}

	fmt.Fprintf(it.Stderr, "bash: %s: command not found\n", name)
	return 127
}

// applyPrefixAssigns applies a simple command's prefix assignments
// (`FOO=bar cmd`) for the duration of one external/builtin invocation,
// restoring the prior values afterward since such assignments don't
// persist past the command per POSIX.
func (it *Interp) applyPrefixAssigns(assigns []*syntax.Assign) func() {
	if len(assigns) == 0 {
		return func() {}
	}
	type saved struct {
		name    string
		had     bool
		prior   Variable
	}
	var backups []saved
	for _, a := range assigns {
		name := a.Name.Value
		if v, ok := it.State.Vars[name]; ok {
			backups = append(backups, saved{name: name, had: true, prior: *v})
		} else {
			backups = append(backups, saved{name: name, had: false})
		}
		it.execAssign(a)
		if v, ok := it.State.Vars[name]; ok {
			v.Exported = true
		}
	}
	return func() {
		for _, b := range backups {
			if b.had {
				cp := b.prior
				it.State.Vars[b.name] = &cp
			} else {
				delete(it.State.Vars, b.name)
			}
		}
	}
}

func (it *Interp) makeCommandContext() *command.Context {
	env := make(map[string]string)
	for name, v := range it.State.Vars {
		if v.Exported || it.State.ExportedVars[name] {
			env[name] = v.Scalar
		}
	}
	opts := map[string]bool{
		"nocaseglob":  it.State.Opts.NocaseGlob,
		"nocasematch": it.State.Opts.NocaseMatch,
		"extglob":     it.State.Opts.Extglob,
		"globstar":    it.State.Opts.GlobStar,
		"dotglob":     it.State.Opts.DotGlob,
	}
	return &command.Context{
		Stdin:   it.Stdin,
		Stdout:  it.Stdout,
		Stderr:  it.Stderr,
		Dir:     it.State.Dir,
		Env:     env,
		Fs:      it.State.Fs,
		Options: opts,
	}
}
