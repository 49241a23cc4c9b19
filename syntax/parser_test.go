package syntax_test

import (
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/vercel-labs/just-bash-sub009/syntax"
)

// litArg returns arg i of a parsed single-SimpleCommand script's word, as
// its flattened literal text, for asserting shapes without hand-building
// the whole AST.
func litArgs(t *testing.T, script *syntax.Script) []string {
	t.Helper()
	qt.Assert(t, script.Stmts, qt.HasLen, 1)
	pl := script.Stmts[0].Pipelines[0]
	qt.Assert(t, pl.Stages, qt.HasLen, 1)
	sc, ok := pl.Stages[0].Cmd.(*syntax.SimpleCommand)
	qt.Assert(t, ok, qt.IsTrue)
	var out []string
	for _, w := range sc.Args {
		var sb strings.Builder
		for _, part := range w.Parts {
			if lit, ok := part.(*syntax.Lit); ok {
				sb.WriteString(lit.Value)
			}
		}
		out = append(out, sb.String())
	}
	return out
}

func TestParseSimpleCommandWords(t *testing.T) {
	p := syntax.NewParser()
	script, err := p.Parse("echo hello world", "t")
	qt.Assert(t, err, qt.IsNil)
	got := litArgs(t, script)
	want := []string{"echo", "hello", "world"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAssignmentWordDetection(t *testing.T) {
	p := syntax.NewParser()
	script, err := p.Parse("FOO=bar BAZ=qux cmd arg1", "t")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, script.Stmts, qt.HasLen, 1)
	sc := script.Stmts[0].Pipelines[0].Stages[0].Cmd.(*syntax.SimpleCommand)
	qt.Assert(t, sc.Assigns, qt.HasLen, 2)
	qt.Assert(t, sc.Assigns[0].Name.Value, qt.Equals, "FOO")
	qt.Assert(t, sc.Assigns[1].Name.Value, qt.Equals, "BAZ")
	got := litArgs(t, script)
	want := []string{"cmd", "arg1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

// bash's rule: an assignment preceding `[[`/`((` demotes the keyword to an
// ordinary command name, since no compound-command keyword can follow a
// prefix assignment syntactically (spec.md §4.2).
func TestAssignmentDemotesConditionalKeyword(t *testing.T) {
	p := syntax.NewParser()
	script, err := p.Parse("FOO=bar [[ 1 ]]", "t")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, script.Stmts, qt.HasLen, 1)
	_, isSimple := script.Stmts[0].Pipelines[0].Stages[0].Cmd.(*syntax.SimpleCommand)
	qt.Assert(t, isSimple, qt.IsTrue)
}

func TestParseIfElifElse(t *testing.T) {
	p := syntax.NewParser()
	script, err := p.Parse(`
if false; then
  echo a
elif true; then
  echo b
else
  echo c
fi
`, "t")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, script.Stmts, qt.HasLen, 1)
	ifc, ok := script.Stmts[0].Pipelines[0].Stages[0].Cmd.(*syntax.IfClause)
	qt.Assert(t, ok, qt.IsTrue)
	qt.Assert(t, ifc.Elifs, qt.HasLen, 1)
	qt.Assert(t, ifc.HasElse, qt.IsTrue)
}

func TestParseCaseTerminators(t *testing.T) {
	p := syntax.NewParser()
	script, err := p.Parse(`
case $x in
  a) echo A ;;
  b) echo B ;&
  c) echo C ;;&
  *) echo D ;;
esac
`, "t")
	qt.Assert(t, err, qt.IsNil)
	cc := script.Stmts[0].Pipelines[0].Stages[0].Cmd.(*syntax.CaseClause)
	qt.Assert(t, cc.Items, qt.HasLen, 4)
	qt.Assert(t, cc.Items[0].Terminator, qt.Equals, syntax.DSEMI)
	qt.Assert(t, cc.Items[1].Terminator, qt.Equals, syntax.SEMIFALL)
	qt.Assert(t, cc.Items[2].Terminator, qt.Equals, syntax.DSEMIFALL)
}

func TestParseFunctionDefBothForms(t *testing.T) {
	p := syntax.NewParser()
	script, err := p.Parse("f() { echo a; }; function g { echo b; }", "t")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, script.Stmts, qt.HasLen, 2)
	f1 := script.Stmts[0].Pipelines[0].Stages[0].Cmd.(*syntax.FunctionDef)
	f2 := script.Stmts[1].Pipelines[0].Stages[0].Cmd.(*syntax.FunctionDef)
	qt.Assert(t, f1.Name.Value, qt.Equals, "f")
	qt.Assert(t, f2.Name.Value, qt.Equals, "g")
}

func TestParseHeredocAttachesAtNewline(t *testing.T) {
	p := syntax.NewParser()
	script, err := p.Parse("cat <<EOF\nline one\nline two\nEOF\necho after\n", "t")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, script.Stmts, qt.HasLen, 2)
	sc := script.Stmts[0].Pipelines[0].Stages[0].Cmd.(*syntax.SimpleCommand)
	qt.Assert(t, sc.Redirs, qt.HasLen, 1)
	qt.Assert(t, sc.Redirs[0].Hdoc, qt.Not(qt.IsNil))
}

func TestUnterminatedQuoteIsSyntaxError(t *testing.T) {
	p := syntax.NewParser()
	_, err := p.Parse(`echo "unterminated`, "t")
	qt.Assert(t, err, qt.Not(qt.IsNil))
	pe, ok := err.(*syntax.ParseError)
	qt.Assert(t, ok, qt.IsTrue)
	qt.Assert(t, pe.Text, qt.Contains, "unexpected EOF")
}

func TestUnterminatedCommandSubstitutionIsSyntaxError(t *testing.T) {
	p := syntax.NewParser()
	_, err := p.Parse("echo $(echo foo", "t")
	qt.Assert(t, err, qt.Not(qt.IsNil))
}

func TestASTShapeForPipelineAndConnectors(t *testing.T) {
	p := syntax.NewParser()
	script, err := p.Parse("a | b && c || d; e &", "t")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, script.Stmts, qt.HasLen, 2)

	st0 := script.Stmts[0]
	qt.Assert(t, st0.Pipelines, qt.HasLen, 3)
	qt.Assert(t, st0.Connectors, qt.DeepEquals, []syntax.Token{syntax.LAND, syntax.LOR})
	qt.Assert(t, st0.Pipelines[0].Stages, qt.HasLen, 2) // "a | b"
	qt.Assert(t, st0.Background, qt.IsFalse)

	st1 := script.Stmts[1]
	qt.Assert(t, st1.Background, qt.IsTrue)

	// cmp over the flattened command names doubles as a structural
	// sanity check independent of quicktest's own comparator.
	var names []string
	for _, pl := range st0.Pipelines {
		for _, stg := range pl.Stages {
			sc := stg.Cmd.(*syntax.SimpleCommand)
			lit, _ := sc.Args[0].Lit()
			names = append(names, lit)
		}
	}
	want := []string{"a", "b", "c", "d"}
	if diff := cmp.Diff(want, names, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("command name mismatch (-want +got):\n%s", diff)
	}
}
