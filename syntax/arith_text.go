package syntax

// OpText maps every Token that can appear as an ArithExpr/ConditionalExpr
// operator back to its literal source text. Kept separate from tokNames
// since a few tokens are deliberately reused across contexts with
// different spellings (e.g. RDRIN is both the redirection "<" and the
// arithmetic "<" comparison, which happen to share spelling anyway).
var OpText = map[Token]string{
	ADD: "+", SUB: "-", MUL: "*", QUO: "/", REM: "%", POW: "**",
	INC: "++", DEC: "--", NOT: "!", BITNOT: "~",
	EQL: "==", NEQ: "!=", LEQ: "<=", GEQ: ">=",
	RDRIN: "<", RDROUT: ">", HDOC: "<<", APPEND: ">>",
	tsBinAnd: "&", tsBinOr: "|", tsBinXor: "^",
	COMMA: ",", LAND: "&&", LOR: "||",
	ASSIGN: "=", ADDASSGN: "+=", SUBASSGN: "-=", MULASSGN: "*=",
	QUOASSGN: "/=", REMASSGN: "%=", ANDASSGN: "&=", ORASSGN: "|=",
	XORASSGN: "^=", SHLASSGN: "<<=", SHRASSGN: ">>=",
}
