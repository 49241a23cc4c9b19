// Package command defines the pluggable "external command" contract and a
// small coreutils-style registry that implements it directly against a
// vfs.Fs, since there is no real process to exec into.
package command

import (
	"io"

	"github.com/vercel-labs/just-bash-sub009/vfs"
)

// Context is everything an external command gets to see. Commands do not
// mutate shell variables directly; they read their environment and return
// captured streams.
type Context struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Dir    string
	Env    map[string]string
	Fs     vfs.Fs

	// Options carries the handful of shopt-like flags a command may care
	// about (e.g. nocaseglob for grep -i style tools); kept generic since
	// the registry is meant to be extensible.
	Options map[string]bool
}

// Command is the contract an external program, real or simulated, must
// satisfy.
type Command interface {
	Run(argv []string, ctx *Context) int
}

// Func adapts a plain function to the Command interface.
type Func func(argv []string, ctx *Context) int

func (f Func) Run(argv []string, ctx *Context) int { return f(argv, ctx) }

// Registry maps program names to their Command implementation.
type Registry struct {
	cmds map[string]Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{cmds: make(map[string]Command)}
}

// NewDefaultRegistry returns a registry pre-populated with the small
// coreutils-style command set implemented in this package.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("true", Func(cmdTrue))
	r.Register("false", Func(cmdFalse))
	r.Register("echo", Func(cmdEcho))
	r.Register("printf", Func(cmdPrintf))
	r.Register("cat", Func(cmdCat))
	r.Register("pwd", Func(cmdPwd))
	r.Register("wc", Func(cmdWc))
	r.Register("head", Func(cmdHead))
	r.Register("tail", Func(cmdTail))
	r.Register("sort", Func(cmdSort))
	r.Register("grep", Func(cmdGrep))
	r.Register("tr", Func(cmdTr))
	r.Register("basename", Func(cmdBasename))
	r.Register("dirname", Func(cmdDirname))
	r.Register("sleep", Func(cmdSleep))
	r.Register("seq", Func(cmdSeq))
	return r
}

// Register installs (or replaces) the Command for name.
func (r *Registry) Register(name string, c Command) {
	r.cmds[name] = c
}

// Lookup returns the Command registered for name, if any.
func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.cmds[name]
	return c, ok
}

// Names returns every registered command name, for compgen-style builtins.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.cmds))
	for name := range r.cmds {
		names = append(names, name)
	}
	return names
}
