// Command vsh is a small batch/REPL driver over the shell package, for
// manually exercising the interpreter and for testscript fixtures.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vercel-labs/just-bash-sub009/shell"
)

func main() {
	os.Exit(main1(os.Args[1:]))
}

// main1 is the testable entry point; TestMain registers it under
// testscript.RunMain so cmd/vsh/testdata/script/*.txtar fixtures can
// exec it as a subprocess-like command.
func main1(args []string) int {
	fs := flag.NewFlagSet("vsh", flag.ContinueOnError)
	cmdFlag := fs.String("c", "", "run this command string instead of a script file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()

	sh := shell.New(shell.WithEnv(envMap()))
	ctx := context.Background()

	switch {
	case *cmdFlag != "":
		return runSource(ctx, sh, *cmdFlag, rest)
	case len(rest) > 0:
		data, err := os.ReadFile(rest[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "vsh: %s: %v\n", rest[0], err)
			return 127
		}
		return runSource(ctx, sh, string(data), rest[1:])
	default:
		return repl(ctx, sh)
	}
}

func envMap() map[string]string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if name, val, ok := strings.Cut(kv, "="); ok {
			env[name] = val
		}
	}
	return env
}

func runSource(ctx context.Context, sh *shell.Shell, src string, scriptArgs []string) int {
	if len(scriptArgs) > 0 {
		var sb strings.Builder
		for i, a := range scriptArgs {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(shellQuote(a))
		}
		src = "set -- " + sb.String() + "\n" + src
	}
	res, err := sh.Exec(ctx, src)
	io.WriteString(os.Stdout, res.Stdout)
	io.WriteString(os.Stderr, res.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vsh: %v\n", err)
	}
	return res.ExitCode
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// repl reads one line at a time from stdin, running each as its own
// top-level script against the same persistent session, the way an
// interactive bash reads a script line-by-line from a terminal.
func repl(ctx context.Context, sh *shell.Shell) int {
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	code := 0
	for {
		fmt.Fprint(os.Stderr, "vsh> ")
		if !sc.Scan() {
			break
		}
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		res, err := sh.Exec(ctx, line)
		io.WriteString(os.Stdout, res.Stdout)
		io.WriteString(os.Stderr, res.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "vsh: %v\n", err)
		}
		code = res.ExitCode
	}
	return code
}
