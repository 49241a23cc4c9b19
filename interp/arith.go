package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vercel-labs/just-bash-sub009/syntax"
)

// ArithError reports a failure during arithmetic evaluation: division by
// zero, negative exponent, a malformed value for the chosen base, or an
// undefined dynamic sub-expression.
type ArithError struct {
	Msg string
}

func (e *ArithError) Error() string { return e.Msg }

// evalArith evaluates an arithmetic expression tree, resolving variables
// against the interpreter's current scope and mutating them for
// assignment/increment forms.
func (it *Interp) evalArith(e syntax.ArithExpr) (int64, error) {
	return it.evalArithDepth(e, 0)
}

func (it *Interp) evalArithDepth(e syntax.ArithExpr, depth int) (int64, error) {
	if depth > it.State.DepthLimit {
		return 0, &ArithError{Msg: "expression recursion too deep"}
	}
	switch n := e.(type) {
	case *syntax.ArithNumber:
		return parseArithNumber(n.Value)
	case *syntax.ArithVariable:
		return it.evalArithVarDepth(n.Name, depth)
	case *syntax.ArithWord:
		s := it.expandWordToString(n.W)
		return it.evalArithVarDepth(s, depth)
	case *syntax.ArithGroup:
		return it.evalArithDepth(n.X, depth+1)
	case *syntax.ArithUnary:
		return it.evalArithUnary(n, depth)
	case *syntax.ArithIncDec:
		return it.evalArithIncDec(n, depth)
	case *syntax.ArithBinary:
		return it.evalArithBinary(n, depth)
	case *syntax.ArithTernary:
		c, err := it.evalArithDepth(n.Cond, depth+1)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return it.evalArithDepth(n.Then, depth+1)
		}
		return it.evalArithDepth(n.Else, depth+1)
	case *syntax.ArithAssign:
		return it.evalArithAssign(n, depth)
	case *syntax.ArithArrayElem:
		return it.evalArithArrayElem(n, depth)
	}
	return 0, &ArithError{Msg: "unsupported arithmetic expression"}
}

// evalArithVarDepth resolves a bare name in arithmetic context: if unset,
// it is zero; if its value is itself a name, follow it; if it contains
// arithmetic syntax, re-parse and evaluate it (a reference cycle ends in
// an error once the depth counter passes State.DepthLimit).
func (it *Interp) evalArithVarDepth(name string, depth int) (int64, error) {
	if name == "" {
		return 0, nil
	}
	if v, err := parseArithNumber(name); err == nil {
		return v, nil
	}
	val, ok := it.lookupScalar(name)
	if !ok || val == "" {
		return 0, nil
	}
	if isBareName(val) && val != name {
		return it.evalArithVarDepth(val, depth+1)
	}
	p := syntax.NewParser()
	expr, err := p.ParseArith(val)
	if err != nil {
		return 0, &ArithError{Msg: "syntax error in expression (error token is \"" + val + "\")"}
	}
	return it.evalArithDepth(expr, depth+1)
}

func isBareName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}

func parseArithNumber(lit string) (int64, error) {
	lit = strings.TrimSpace(lit)
	if lit == "" {
		return 0, fmt.Errorf("empty")
	}
	neg := false
	if strings.HasPrefix(lit, "-") {
		neg = true
		lit = lit[1:]
	} else if strings.HasPrefix(lit, "+") {
		lit = lit[1:]
	}
	var v int64
	var err error
	switch {
	case strings.Contains(lit, "#"):
		parts := strings.SplitN(lit, "#", 2)
		base, berr := strconv.Atoi(parts[0])
		if berr != nil || base < 2 || base > 64 {
			return 0, &ArithError{Msg: "invalid arithmetic base"}
		}
		v, err = parseInBase(parts[1], base)
	case strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X"):
		v, err = strconv.ParseInt(lit[2:], 16, 64)
	case len(lit) > 1 && lit[0] == '0':
		v, err = strconv.ParseInt(lit, 8, 64)
	default:
		v, err = strconv.ParseInt(lit, 10, 64)
	}
	if err != nil {
		return 0, &ArithError{Msg: "value too great for base (error token is \"" + lit + "\")"}
	}
	if neg {
		v = -v
	}
	return v, nil
}

const base64Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ@_"

func parseInBase(s string, base int) (int64, error) {
	var v int64
	for _, c := range s {
		idx := strings.IndexRune(base64Alphabet, c)
		if idx < 0 || idx >= base {
			return 0, fmt.Errorf("value too great for base")
		}
		v = v*int64(base) + int64(idx)
	}
	return v, nil
}

func (it *Interp) evalArithUnary(n *syntax.ArithUnary, depth int) (int64, error) {
	v, err := it.evalArithDepth(n.X, depth+1)
	if err != nil {
		return 0, err
	}
	switch opText(n.Op) {
	case "+":
		return v, nil
	case "-":
		return -v, nil
	case "!":
		if v == 0 {
			return 1, nil
		}
		return 0, nil
	case "~":
		return ^v, nil
	}
	return 0, &ArithError{Msg: "bad unary operator"}
}

// opText maps the tokens ArithUnary/ArithBinary use back to their literal
// text via syntax.OpText, falling back to the token's String form.
func opText(t syntax.Token) string {
	if s, ok := syntax.OpText[t]; ok {
		return s
	}
	return t.String()
}

func (it *Interp) evalArithIncDec(n *syntax.ArithIncDec, depth int) (int64, error) {
	name, ok := arithLValueName(n.X)
	if !ok {
		return 0, &ArithError{Msg: "not a valid lvalue"}
	}
	cur, err := it.evalArithDepth(n.X, depth+1)
	if err != nil {
		return 0, err
	}
	delta := int64(1)
	if opText(n.Op) == "--" {
		delta = -1
	}
	next := cur + delta
	it.assignArithName(name, next)
	if n.Post {
		return cur, nil
	}
	return next, nil
}

func arithLValueName(e syntax.ArithExpr) (string, bool) {
	switch n := e.(type) {
	case *syntax.ArithVariable:
		return n.Name, true
	case *syntax.ArithArrayElem:
		return n.Name.Value, true
	}
	return "", false
}

func (it *Interp) assignArithName(name string, v int64) {
	it.setScalar(name, strconv.FormatInt(v, 10))
}

func (it *Interp) evalArithAssign(n *syntax.ArithAssign, depth int) (int64, error) {
	name, ok := arithLValueName(n.X)
	if !ok {
		return 0, &ArithError{Msg: "not a valid lvalue"}
	}
	rhs, err := it.evalArithDepth(n.Y, depth+1)
	if err != nil {
		return 0, err
	}
	result := rhs
	if n.Op != syntax.ASSIGN {
		cur, err := it.evalArithDepth(n.X, depth+1)
		if err != nil {
			return 0, err
		}
		result, err = applyCompound(n.Op, cur, rhs)
		if err != nil {
			return 0, err
		}
	}
	if elem, ok := n.X.(*syntax.ArithArrayElem); ok {
		idx, err := it.evalArithDepth(elem.Sub, depth+1)
		if err != nil {
			return 0, err
		}
		it.setIndexed(elem.Name.Value, int(idx), strconv.FormatInt(result, 10))
		return result, nil
	}
	it.assignArithName(name, result)
	return result, nil
}

func applyCompound(op syntax.Token, a, b int64) (int64, error) {
	switch opText(op) {
	case "+=":
		return a + b, nil
	case "-=":
		return a - b, nil
	case "*=":
		return a * b, nil
	case "/=":
		if b == 0 {
			return 0, &ArithError{Msg: "division by 0"}
		}
		return a / b, nil
	case "%=":
		if b == 0 {
			return 0, &ArithError{Msg: "division by 0"}
		}
		return a % b, nil
	case "&=":
		return a & b, nil
	case "|=":
		return a | b, nil
	case "^=":
		return a ^ b, nil
	case "<<=":
		return a << uint(b), nil
	case ">>=":
		return a >> uint(b), nil
	}
	return 0, &ArithError{Msg: "bad compound assignment operator"}
}

func (it *Interp) evalArithArrayElem(n *syntax.ArithArrayElem, depth int) (int64, error) {
	idx, err := it.evalArithDepth(n.Sub, depth+1)
	if err != nil {
		return 0, err
	}
	s := it.getIndexed(n.Name.Value, int(idx))
	return it.evalArithVarDepth(s, depth+1)
}

func (it *Interp) evalArithBinary(n *syntax.ArithBinary, depth int) (int64, error) {
	op := opText(n.Op)
	x, err := it.evalArithDepth(n.X, depth+1)
	if err != nil {
		return 0, err
	}
	if op == "&&" {
		if x == 0 {
			return 0, nil
		}
		y, err := it.evalArithDepth(n.Y, depth+1)
		if err != nil {
			return 0, err
		}
		return boolInt(y != 0), nil
	}
	if op == "||" {
		if x != 0 {
			return 1, nil
		}
		y, err := it.evalArithDepth(n.Y, depth+1)
		if err != nil {
			return 0, err
		}
		return boolInt(y != 0), nil
	}
	y, err := it.evalArithDepth(n.Y, depth+1)
	if err != nil {
		return 0, err
	}
	switch op {
	case ",":
		return y, nil
	case "|":
		return x | y, nil
	case "^":
		return x ^ y, nil
	case "&":
		return x & y, nil
	case "==":
		return boolInt(x == y), nil
	case "!=":
		return boolInt(x != y), nil
	case "<":
		return boolInt(x < y), nil
	case "<=":
		return boolInt(x <= y), nil
	case ">":
		return boolInt(x > y), nil
	case ">=":
		return boolInt(x >= y), nil
	case "<<":
		return x << uint(y), nil
	case ">>":
		return x >> uint(y), nil
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/":
		if y == 0 {
			return 0, &ArithError{Msg: "division by 0"}
		}
		return x / y, nil
	case "%":
		if y == 0 {
			return 0, &ArithError{Msg: "division by 0"}
		}
		return x % y, nil
	case "**":
		if y < 0 {
			return 0, &ArithError{Msg: "exponent less than 0"}
		}
		return ipow(x, y), nil
	}
	return 0, &ArithError{Msg: "bad binary operator " + op}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func ipow(base, exp int64) int64 {
	var result int64 = 1
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}
