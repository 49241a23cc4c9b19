package command

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

func cmdTrue([]string, *Context) int  { return 0 }
func cmdFalse([]string, *Context) int { return 1 }

func cmdEcho(argv []string, ctx *Context) int {
	args := argv[1:]
	noNewline := false
	interpret := false
	for len(args) > 0 && strings.HasPrefix(args[0], "-") && len(args[0]) > 1 {
		opt := args[0]
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
		args = args[1:]
	}
	out := strings.Join(args, " ")
	if interpret {
		out = interpretEchoEscapes(out)
	}
	if !noNewline {
		out += "\n"
	}
	fmt.Fprint(ctx.Stdout, out)
	return 0
}

func interpretEchoEscapes(s string) string {
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
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

func cmdPrintf(argv []string, ctx *Context) int {
	if len(argv) < 2 {
		return 0
	}
	format := argv[1]
	args := argv[2:]
	out := applyPrintfFormat(format, args)
	fmt.Fprint(ctx.Stdout, out)
	return 0
}

// applyPrintfFormat implements the small subset of printf(1) conversions
// this sandbox cares about: %s %d %i %b %% plus literal escapes, cycling
// the format over the argument list the way bash's printf builtin does.
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
		consumedArg := false
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
				consumedArg = true
			case 'd', 'i':
				v, _ := strconv.ParseInt(strings.TrimSpace(nextArg()), 0, 64)
				fmt.Fprintf(&out, "%d", v)
				consumedArg = true
			case 'b':
				out.WriteString(interpretEchoEscapes(nextArg()))
				consumedArg = true
			default:
				out.WriteByte('%')
				out.WriteByte(format[i])
			}
		}
		return consumedArg
	}
	runOnce()
	for argi < len(args) {
		if !runOnce() {
			break
		}
	}
	return out.String()
}

func cmdCat(argv []string, ctx *Context) int {
	files := argv[1:]
	if len(files) == 0 {
		io.Copy(ctx.Stdout, ctx.Stdin)
		return 0
	}
	status := 0
	for _, name := range files {
		if name == "-" {
			io.Copy(ctx.Stdout, ctx.Stdin)
			continue
		}
		f, err := ctx.Fs.Open(resolvePath(ctx, name))
		if err != nil {
			fmt.Fprintf(ctx.Stderr, "cat: %s: No such file or directory\n", name)
			status = 1
			continue
		}
		io.Copy(ctx.Stdout, f)
		f.Close()
	}
	return status
}

func cmdPwd(argv []string, ctx *Context) int {
	fmt.Fprintln(ctx.Stdout, ctx.Dir)
	return 0
}

func cmdWc(argv []string, ctx *Context) int {
	lines, words, bytesCount := false, false, false
	files := []string{}
	for _, a := range argv[1:] {
		switch a {
		case "-l":
			lines = true
		case "-w":
			words = true
		case "-c":
			bytesCount = true
		default:
			files = append(files, a)
		}
	}
	if !lines && !words && !bytesCount {
		lines, words, bytesCount = true, true, true
	}
	count := func(r io.Reader) (int, int, int) {
		data, _ := io.ReadAll(r)
		nl := strings.Count(string(data), "\n")
		nw := len(strings.Fields(string(data)))
		return nl, nw, len(data)
	}
	report := func(nl, nw, nb int, name string) {
		var parts []string
		if lines {
			parts = append(parts, fmt.Sprint(nl))
		}
		if words {
			parts = append(parts, fmt.Sprint(nw))
		}
		if bytesCount {
			parts = append(parts, fmt.Sprint(nb))
		}
		if name != "" {
			parts = append(parts, name)
		}
		fmt.Fprintln(ctx.Stdout, strings.Join(parts, " "))
	}
	if len(files) == 0 {
		nl, nw, nb := count(ctx.Stdin)
		report(nl, nw, nb, "")
		return 0
	}
	status := 0
	for _, name := range files {
		f, err := ctx.Fs.Open(resolvePath(ctx, name))
		if err != nil {
			fmt.Fprintf(ctx.Stderr, "wc: %s: No such file or directory\n", name)
			status = 1
			continue
		}
		nl, nw, nb := count(f)
		f.Close()
		report(nl, nw, nb, name)
	}
	return status
}

func cmdHead(argv []string, ctx *Context) int  { return headTail(argv, ctx, true) }
func cmdTail(argv []string, ctx *Context) int  { return headTail(argv, ctx, false) }

func headTail(argv []string, ctx *Context, head bool) int {
	n := 10
	files := []string{}
	args := argv[1:]
	for i := 0; i < len(args); i++ {
		if args[i] == "-n" && i+1 < len(args) {
			n, _ = strconv.Atoi(args[i+1])
			i++
		} else if strings.HasPrefix(args[i], "-n") {
			n, _ = strconv.Atoi(strings.TrimPrefix(args[i], "-n"))
		} else {
			files = append(files, args[i])
		}
	}
	process := func(r io.Reader) {
		sc := bufio.NewScanner(r)
		var lines []string
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		if head {
			if len(lines) > n {
				lines = lines[:n]
			}
		} else {
			if len(lines) > n {
				lines = lines[len(lines)-n:]
			}
		}
		for _, l := range lines {
			fmt.Fprintln(ctx.Stdout, l)
		}
	}
	if len(files) == 0 {
		process(ctx.Stdin)
		return 0
	}
	status := 0
	for _, name := range files {
		f, err := ctx.Fs.Open(resolvePath(ctx, name))
		if err != nil {
			fmt.Fprintf(ctx.Stderr, "%s: %s: No such file or directory\n", map[bool]string{true: "head", false: "tail"}[head], name)
			status = 1
			continue
		}
		process(f)
		f.Close()
	}
	return status
}

func cmdSort(argv []string, ctx *Context) int {
	reverse := false
	numeric := false
	unique := false
	files := []string{}
	for _, a := range argv[1:] {
		switch a {
		case "-r":
			reverse = true
		case "-n":
			numeric = true
		case "-u":
			unique = true
		default:
			files = append(files, a)
		}
	}
	var lines []string
	readInto := func(r io.Reader) {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
	}
	if len(files) == 0 {
		readInto(ctx.Stdin)
	} else {
		for _, name := range files {
			f, err := ctx.Fs.Open(resolvePath(ctx, name))
			if err != nil {
				fmt.Fprintf(ctx.Stderr, "sort: %s: No such file or directory\n", name)
				continue
			}
			readInto(f)
			f.Close()
		}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		var less bool
		if numeric {
			vi, _ := strconv.ParseFloat(strings.TrimSpace(lines[i]), 64)
			vj, _ := strconv.ParseFloat(strings.TrimSpace(lines[j]), 64)
			less = vi < vj
		} else {
			less = lines[i] < lines[j]
		}
		if reverse {
			return !less
		}
		return less
	})
	if unique {
		lines = dedupeAdjacent(lines)
	}
	for _, l := range lines {
		fmt.Fprintln(ctx.Stdout, l)
	}
	return 0
}

func dedupeAdjacent(lines []string) []string {
	out := lines[:0:0]
	var last string
	first := true
	for _, l := range lines {
		if first || l != last {
			out = append(out, l)
		}
		last = l
		first = false
	}
	return out
}

func cmdGrep(argv []string, ctx *Context) int {
	invert := false
	ignoreCase := false
	countOnly := false
	var pattern string
	var files []string
	args := argv[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-v":
			invert = true
		case "-i":
			ignoreCase = true
		case "-c":
			countOnly = true
		default:
			if pattern == "" {
				pattern = args[i]
			} else {
				files = append(files, args[i])
			}
		}
	}
	matches := func(line string) bool {
		l, p := line, pattern
		if ignoreCase {
			l, p = strings.ToLower(l), strings.ToLower(p)
		}
		return strings.Contains(l, p) != invert
	}
	process := func(r io.Reader) int {
		sc := bufio.NewScanner(r)
		count := 0
		for sc.Scan() {
			if matches(sc.Text()) {
				count++
				if !countOnly {
					fmt.Fprintln(ctx.Stdout, sc.Text())
				}
			}
		}
		if countOnly {
			fmt.Fprintln(ctx.Stdout, count)
		}
		return count
	}
	if len(files) == 0 {
		count := process(ctx.Stdin)
		if count == 0 {
			return 1
		}
		return 0
	}
	total := 0
	status := 1
	for _, name := range files {
		f, err := ctx.Fs.Open(resolvePath(ctx, name))
		if err != nil {
			fmt.Fprintf(ctx.Stderr, "grep: %s: No such file or directory\n", name)
			status = 2
			continue
		}
		total += process(f)
		f.Close()
	}
	if total > 0 && status != 2 {
		status = 0
	}
	return status
}

func cmdTr(argv []string, ctx *Context) int {
	if len(argv) < 3 {
		io.Copy(ctx.Stdout, ctx.Stdin)
		return 0
	}
	from, to := argv[1], argv[2]
	data, _ := io.ReadAll(ctx.Stdin)
	out := make([]byte, len(data))
	for i, b := range data {
		idx := strings.IndexByte(from, b)
		if idx >= 0 && idx < len(to) {
			out[i] = to[idx]
		} else if idx >= 0 {
			out[i] = to[len(to)-1]
		} else {
			out[i] = b
		}
	}
	ctx.Stdout.Write(out)
	return 0
}

func cmdBasename(argv []string, ctx *Context) int {
	if len(argv) < 2 {
		return 1
	}
	b := path.Base(argv[1])
	if len(argv) >= 3 {
		b = strings.TrimSuffix(b, argv[2])
	}
	fmt.Fprintln(ctx.Stdout, b)
	return 0
}

func cmdDirname(argv []string, ctx *Context) int {
	if len(argv) < 2 {
		return 1
	}
	fmt.Fprintln(ctx.Stdout, path.Dir(argv[1]))
	return 0
}

func cmdSleep(argv []string, ctx *Context) int {
	if len(argv) < 2 {
		return 0
	}
	d, err := strconv.ParseFloat(argv[1], 64)
	if err != nil {
		fmt.Fprintf(ctx.Stderr, "sleep: invalid time interval '%s'\n", argv[1])
		return 1
	}
	time.Sleep(time.Duration(d * float64(time.Second)))
	return 0
}

func cmdSeq(argv []string, ctx *Context) int {
	args := argv[1:]
	var first, step, last float64 = 1, 1, 1
	switch len(args) {
	case 1:
		last, _ = strconv.ParseFloat(args[0], 64)
	case 2:
		first, _ = strconv.ParseFloat(args[0], 64)
		last, _ = strconv.ParseFloat(args[1], 64)
	case 3:
		first, _ = strconv.ParseFloat(args[0], 64)
		step, _ = strconv.ParseFloat(args[1], 64)
		last, _ = strconv.ParseFloat(args[2], 64)
	default:
		return 1
	}
	if step == 0 {
		step = 1
	}
	if step > 0 {
		for v := first; v <= last; v += step {
			fmt.Fprintln(ctx.Stdout, formatSeqNum(v))
		}
	} else {
		for v := first; v >= last; v += step {
			fmt.Fprintln(ctx.Stdout, formatSeqNum(v))
		}
	}
	return 0
}

func formatSeqNum(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func resolvePath(ctx *Context, name string) string {
	if path.IsAbs(name) {
		return name
	}
	return path.Join(ctx.Dir, name)
}
