package syntax

// ParamExp represents ${...} or the short $name / $1 / $@ forms.
type ParamExp struct {
	Dollar, Rbrace Pos
	Short          bool // $name rather than ${name}
	Excl           bool // ${!name} indirection / array-keys / prefix forms
	Length         bool // ${#name}
	Param          Lit
	Index          *Index // arr[i], arr[@], arr[*]
	Op             *ParamOperation
}

func (p *ParamExp) Pos() Pos { return p.Dollar }
func (p *ParamExp) End() Pos {
	if p.Rbrace > 0 {
		return p.Rbrace + 1
	}
	return p.Param.End()
}

// Index is an array subscript: either an arithmetic expression, or one of
// the literal "@"/"*" all-elements markers.
type Index struct {
	All  byte // 0, '@', or '*'
	Expr ArithExpr
}

// ParamOpKind tags the ParameterOperation variants from spec.md §4.3/§4.4.1.
type ParamOpKind int

const (
	OpNone ParamOpKind = iota
	OpDefaultValue       // - / :-
	OpAssignDefault      // = / :=
	OpErrorIfUnset       // ? / :?
	OpUseAlternative     // + / :+
	OpSubstring          // :offset[:length]
	OpPatternRemoval     // # ## % %%
	OpPatternReplacement // / // /# /%
	OpCaseModification   // ^ ^^ , ,,
	OpTransform          // @Q @P @a @A @E @K @k @L @U
	OpIndirection        // !name
	OpArrayKeys          // !arr[@] / !arr[*]
	OpVarNamePrefix       // !prefix* / !prefix@
)

// ParamOperation is the payload of a ${name<op>word} expansion.
type ParamOperation struct {
	Kind ParamOpKind

	// OpDefaultValue/OpAssignDefault/OpErrorIfUnset/OpUseAlternative
	Colon bool // the `:` variant, which also triggers on empty (not just unset)
	Arg   Word

	// OpSubstring
	Offset    ArithExpr
	Length    ArithExpr
	HasLength bool
	SpaceOff  bool // a space preceded a negative offset (bash's from-the-end quirk)

	// OpPatternRemoval
	Side   string // "prefix" or "suffix"
	Greedy bool   // ## or %% vs # or %
	Pat    Word

	// OpPatternReplacement
	ReplAll          bool // //
	ReplAnchorStart  bool // /#
	ReplAnchorEnd    bool // /%
	ReplPat, ReplRep Word

	// OpCaseModification
	CaseAll  bool // ^^ or ,, vs ^ or ,
	CaseUp   bool // ^ family vs , family
	CasePat  Word

	// OpTransform
	Transform byte // 'Q','P','a','A','E','K','k','L','U'

	// OpVarNamePrefix
	PrefixAt bool // !prefix@ (each on own line/field) vs !prefix* (one word)
}
