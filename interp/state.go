// Package interp implements the tree-walking interpreter: the shell state
// model, word expansion, arithmetic and conditional evaluation, and
// execution of the syntax.Script AST produced by the syntax package.
package interp

import (
	"math/rand"
	"time"

	"github.com/vercel-labs/just-bash-sub009/command"
	"github.com/vercel-labs/just-bash-sub009/syntax"
	"github.com/vercel-labs/just-bash-sub009/vfs"
)

// Variable is the value cell behind every shell name: a scalar, an
// indexed array, or an associative array, plus the handful of attribute
// bits bash tracks per-name.
type Variable struct {
	Scalar     string
	Indexed    map[int]string
	Assoc      map[string]string
	IsArray    bool
	IsAssoc    bool
	Exported   bool
	ReadOnly   bool
	Integer    bool
	Nameref    bool
	set        bool
}

// IsSet reports whether the variable has ever been assigned (vs merely
// declared, e.g. by `local x` with no value).
func (v Variable) IsSet() bool { return v.set }

func newScalar(s string) Variable { return Variable{Scalar: s, set: true} }

// Scope is one entry in the function-call scope chain: a set of names
// local to this frame, with a saved prior value to restore when the
// frame is popped.
type Scope struct {
	saved map[string]*Variable // nil entry means "was unset"
}

// Options holds every set -o / shopt flag the spec calls out.
type Options struct {
	Errexit     bool
	Nounset     bool
	Pipefail    bool
	Xtrace      bool
	Noglob      bool
	Noclobber   bool
	Verbose     bool
	Extglob     bool
	NocaseGlob  bool
	NocaseMatch bool
	GlobStar    bool
	NullGlob    bool
	FailGlob    bool
	DotGlob     bool
}

// FdHandle is an opaque file-descriptor binding: a real vfs.File, or a
// pipe buffer, or a closed marker.
type FdHandle struct {
	File   vfs.File
	Closed bool
}

// State is the full mutable state of one Shell instance, per spec.md
// §3.2. It is explicitly constructed and passed around rather than kept
// in any process-wide singleton.
type State struct {
	Fs       vfs.Fs
	Commands *command.Registry

	Vars map[string]*Variable

	ExportedVars map[string]bool
	ReadonlyVars map[string]bool
	IntegerVars  map[string]bool
	AssocArrays  map[string]bool
	Namerefs     map[string]bool

	Funcs map[string]*syntax.FunctionDef

	Opts Options

	Positional []string
	ScriptName string

	FuncNameStack []string
	CallLineStack []uint32
	SourceStack   []string
	DirStack      []string

	Scopes []*Scope

	Traps map[string]string

	LastExitCode     int
	LastArg          string
	LastBackgroundPid int
	BashPid          int
	StartTime        time.Time
	CurrentLine      uint32

	ExpansionStderr []string

	Dir     string
	OldDir  string

	Stdout writer
	Stderr writer

	Rand *rand.Rand

	NextPid int
	NextFd  int

	IterLimit  int
	DepthLimit int

	BashRematch []string
}

type writer interface {
	Write(p []byte) (int, error)
}

// NewState builds a fresh, empty shell state rooted at dir, with fs as its
// backing filesystem and reg as its external-command registry.
func NewState(fs vfs.Fs, reg *command.Registry, dir string) *State {
	s := &State{
		Fs:           fs,
		Commands:     reg,
		Vars:         make(map[string]*Variable),
		ExportedVars: make(map[string]bool),
		ReadonlyVars: make(map[string]bool),
		IntegerVars:  make(map[string]bool),
		AssocArrays:  make(map[string]bool),
		Namerefs:     make(map[string]bool),
		Funcs:        make(map[string]*syntax.FunctionDef),
		Traps:        make(map[string]string),
		Dir:          dir,
		OldDir:       dir,
		StartTime:    time.Now(),
		BashPid:      1,
		NextPid:      2,
		Rand:         rand.New(rand.NewSource(1)),
		IterLimit:    1_000_000,
		DepthLimit:   1000,
		NextFd:       10,
	}
	s.Vars["IFS"] = &Variable{Scalar: " \t\n", set: true}
	s.Vars["PWD"] = &Variable{Scalar: dir, set: true}
	s.Vars["OLDPWD"] = &Variable{Scalar: dir, set: true}
	s.Vars["BASH_VERSION"] = &Variable{Scalar: "5.2.21(1)-release", set: true}
	s.Vars["PPID"] = &Variable{Scalar: "1", set: true}
	s.Vars["UID"] = &Variable{Scalar: "1000", set: true}
	s.Vars["EUID"] = &Variable{Scalar: "1000", set: true}
	s.Vars["PS1"] = &Variable{Scalar: `\s-\v\$ `, set: true}
	s.Vars["PS2"] = &Variable{Scalar: "> ", set: true}
	return s
}

// Get looks name up in the variable table as is; it does not follow
// namerefs (that chasing happens in resolveNameref).
func (s *State) Get(name string) (*Variable, bool) {
	v, ok := s.Vars[name]
	return v, ok
}

// Set installs v under name in the current (innermost) scope if name was
// declared local there, otherwise in the global variable table.
func (s *State) Set(name string, v *Variable) {
	s.Vars[name] = v
}

// SetEnv seeds name as an exported scalar, for callers outside package
// interp (the public shell API) that need to populate the environment
// without reaching into Variable's unexported fields.
func (s *State) SetEnv(name, value string) {
	s.Vars[name] = &Variable{Scalar: value, Exported: true, set: true}
	s.ExportedVars[name] = true
}

// PushScope opens a new local-variable frame, used on function entry.
func (s *State) PushScope() *Scope {
	sc := &Scope{saved: make(map[string]*Variable)}
	s.Scopes = append(s.Scopes, sc)
	return sc
}

// PopScope restores every name recorded in sc back to its prior value
// (or removes it if it was previously unset), regardless of how the
// frame's execution ended.
func (s *State) PopScope() {
	if len(s.Scopes) == 0 {
		return
	}
	sc := s.Scopes[len(s.Scopes)-1]
	s.Scopes = s.Scopes[:len(s.Scopes)-1]
	for name, prior := range sc.saved {
		if prior == nil {
			delete(s.Vars, name)
		} else {
			s.Vars[name] = prior
		}
	}
}

// DeclareLocal records name as local to the current scope frame, saving
// whatever value it had (or nil for "was unset") so PopScope can restore
// it later.
func (s *State) DeclareLocal(name string) {
	if len(s.Scopes) == 0 {
		return
	}
	sc := s.Scopes[len(s.Scopes)-1]
	if _, already := sc.saved[name]; already {
		return
	}
	if v, ok := s.Vars[name]; ok {
		cp := *v
		sc.saved[name] = &cp
	} else {
		sc.saved[name] = nil
	}
}

// Clone produces a deep-enough copy of State for subshell execution: the
// variable table, function table, and option snapshot are copied so
// mutations inside the subshell don't leak back; the VirtualFs is shared
// per spec.md §5.
func (s *State) Clone() *State {
	cp := *s
	cp.Vars = make(map[string]*Variable, len(s.Vars))
	for k, v := range s.Vars {
		vv := *v
		cp.Vars[k] = &vv
	}
	cp.ExportedVars = copySet(s.ExportedVars)
	cp.ReadonlyVars = copySet(s.ReadonlyVars)
	cp.IntegerVars = copySet(s.IntegerVars)
	cp.AssocArrays = copySet(s.AssocArrays)
	cp.Namerefs = copySet(s.Namerefs)
	cp.Funcs = make(map[string]*syntax.FunctionDef, len(s.Funcs))
	for k, v := range s.Funcs {
		cp.Funcs[k] = v
	}
	cp.Positional = append([]string(nil), s.Positional...)
	cp.Scopes = nil
	cp.Traps = make(map[string]string, len(s.Traps))
	for k, v := range s.Traps {
		cp.Traps[k] = v
	}
	return &cp
}

func copySet(m map[string]bool) map[string]bool {
	cp := make(map[string]bool, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
