// Package shell is the public, embeddable API over the sandboxed shell
// emulator: parse and run POSIX/bash-compatible source against an
// in-memory virtual filesystem and a pluggable external-command registry,
// and get back a captured {stdout, stderr, exitCode} triple. No real
// process is ever spawned.
package shell

import (
	"bytes"
	"context"
	"os"
	"strings"
	"time"

	"github.com/vercel-labs/just-bash-sub009/command"
	"github.com/vercel-labs/just-bash-sub009/interp"
	"github.com/vercel-labs/just-bash-sub009/syntax"
	"github.com/vercel-labs/just-bash-sub009/vfs"
)

// Result is the captured outcome of one Exec call.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Config configures a new Shell at construction time.
type Config struct {
	Fs       vfs.Fs
	Commands *command.Registry
	Dir      string
	Env      map[string]string

	MaxIterations int
	MaxDepth      int
	MaxOutput     int
	Timeout       time.Duration
}

// Option mutates a Config before a Shell is built from it.
type Option func(*Config)

// WithFs supplies the backing virtual filesystem.
func WithFs(fs vfs.Fs) Option { return func(c *Config) { c.Fs = fs } }

// WithCommands supplies the external-command registry.
func WithCommands(reg *command.Registry) Option { return func(c *Config) { c.Commands = reg } }

// WithDir sets the initial working directory.
func WithDir(dir string) Option { return func(c *Config) { c.Dir = dir } }

// WithEnv seeds the initial exported environment.
func WithEnv(env map[string]string) Option { return func(c *Config) { c.Env = env } }

// WithLimits bounds loop iterations, call-stack depth, and total captured
// output across every Exec call made on the resulting Shell.
func WithLimits(maxIter, maxDepth, maxOutput int) Option {
	return func(c *Config) {
		c.MaxIterations = maxIter
		c.MaxDepth = maxDepth
		c.MaxOutput = maxOutput
	}
}

// WithTimeout bounds the wall-clock duration of any single Exec call.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// Shell is a persistent session: variables, functions, and the working
// directory survive across successive Exec calls, exactly like a real
// interactive shell. Internally a fresh *interp.Interp is built per Exec
// call (spec.md §5's "one Interp instance per execution" note), but it
// runs over the same *interp.State throughout the Shell's lifetime.
type Shell struct {
	state *interp.State
	cfg   Config
}

// New builds a Shell ready to Exec against.
func New(opts ...Option) *Shell {
	cfg := Config{
		Dir:           "/root",
		MaxIterations: 1_000_000,
		MaxDepth:      1000,
		MaxOutput:     64 << 20,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.Fs == nil {
		cfg.Fs = vfs.NewMemFS()
		// A fresh in-memory filesystem gets the working directory and /tmp.
		_ = cfg.Fs.MkdirAll(cfg.Dir, 0755)
		_ = cfg.Fs.MkdirAll("/tmp", 0755)
	}
	if cfg.Commands == nil {
		cfg.Commands = command.NewDefaultRegistry()
	}
	st := interp.NewState(cfg.Fs, cfg.Commands, cfg.Dir)
	for k, v := range cfg.Env {
		st.SetEnv(k, v)
	}
	return &Shell{state: st, cfg: cfg}
}

// Exec parses and runs src against the shell's persistent session state,
// with stdin empty.
func (sh *Shell) Exec(ctx context.Context, src string) (Result, error) {
	return sh.ExecWithStdin(ctx, src, "")
}

// ExecWithStdin parses and runs src with stdin pre-seeded, returning the
// captured triple. A parse error is reported as exit code 2 with the
// error text on stderr, matching bash's own behavior for a syntax error,
// rather than as a Go error return — the error return is reserved for
// caller-supplied ctx cancellation.
func (sh *Shell) ExecWithStdin(ctx context.Context, src, stdin string) (Result, error) {
	p := syntax.NewParser()
	script, perr := p.Parse(src, "")

	var stdout, stderr bytes.Buffer
	opts := []interp.Option{
		interp.WithLimits(sh.cfg.MaxIterations, sh.cfg.MaxDepth, sh.cfg.MaxOutput),
	}
	if sh.cfg.Timeout > 0 {
		opts = append(opts, interp.WithTimeout(sh.cfg.Timeout))
	}
	it := interp.NewWithState(sh.state, strings.NewReader(stdin), &stdout, &stderr, opts...)
	it.Ctx = ctx

	if perr != nil {
		stderr.WriteString("bash: syntax error: " + perr.Error() + "\n")
		return Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: 2}, nil
	}

	code := it.Run(script)
	if err := ctx.Err(); err != nil {
		return Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: code}, err
	}
	return Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: code}, nil
}

// Dir reports the shell's current working directory.
func (sh *Shell) Dir() string { return sh.state.Dir }

// Fs exposes the shell's backing virtual filesystem, for callers that
// want to seed files before Exec or inspect output files afterward.
func (sh *Shell) Fs() vfs.Fs { return sh.cfg.Fs }

// ReadFile is a convenience wrapper reading a file from the shell's
// virtual filesystem.
func (sh *Shell) ReadFile(name string) (string, error) {
	f, err := sh.cfg.Fs.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteFile is a convenience wrapper seeding a file in the shell's
// virtual filesystem before a script runs.
func (sh *Shell) WriteFile(name, content string) error {
	f, err := sh.cfg.Fs.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write([]byte(content))
	return err
}
