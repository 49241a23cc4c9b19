package syntax

// parseStmts parses statements until stop() reports true or EOF is hit.
func (p *Parser) parseStmts(stop func() bool) []*Statement {
	var stmts []*Statement
	for {
		p.skipBlankNL()
		if p.err != nil || p.eof() || stop() {
			return stmts
		}
		if p.cur() == ';' { // stray separators between statements
			p.advance()
			continue
		}
		st := p.parseStatement()
		if p.err != nil {
			return stmts
		}
		stmts = append(stmts, st)
	}
}

func (p *Parser) parseStatement() *Statement {
	startPos := p.curPos()
	st := &Statement{Position: startPos}
	for {
		pipe := p.parsePipeline()
		if p.err != nil {
			return st
		}
		st.Pipelines = append(st.Pipelines, pipe)
		p.skipBlank()
		switch {
		case p.atOp("&&"):
			p.advanceN(2)
			st.Connectors = append(st.Connectors, LAND)
			p.skipBlankNL()
			continue
		case p.atOp("||"):
			p.advanceN(2)
			st.Connectors = append(st.Connectors, LOR)
			p.skipBlankNL()
			continue
		}
		break
	}
	p.skipBlank()
	if p.cur() == '&' && p.peek() != '&' {
		p.advance()
		st.Background = true
	}
	p.skipBlank()
	// Leave ;; ;& ;;& in place for parseCase to read as the item terminator.
	if p.cur() == ';' && p.peek() != ';' && p.peek() != '&' {
		p.advance()
	}
	p.consumePendingHeredocs()
	return st
}

func (p *Parser) atOp(op string) bool {
	for i := 0; i < len(op); i++ {
		if p.byteAt(p.pos+i) != op[i] {
			return false
		}
	}
	return true
}

// statementEnders are the reserved words that can end a statement list
// inside a compound command, checked by atStmtEnder.
var statementEnders = []string{"fi", "then", "elif", "else", "done", "esac", "}"}

func (p *Parser) atStmtEnder() bool {
	for _, kw := range statementEnders {
		if kw == "}" {
			if p.cur() == '}' {
				return true
			}
			continue
		}
		if p.atKeyword(kw) {
			return true
		}
	}
	return false
}

func (p *Parser) parsePipeline() *Pipeline {
	pl := &Pipeline{}
	p.skipBlank()
	if p.atKeyword("!") {
		pl.Bang = p.curPos()
		pl.Negated = true
		p.advance()
		p.skipBlank()
	}
	for {
		stage := &PipelineStage{}
		if p.atKeyword("time") {
			save := p.pos
			p.advance()
			p.skipBlank()
			if p.eof() || isWordBreak(p.cur()) && p.cur() != '(' {
				stage.TimeKeyword = true
				if p.atOp("-p") {
					stage.TimePosix = true
					p.advanceN(2)
					p.skipBlank()
				}
			} else if p.cur() == 0 {
				stage.TimeKeyword = true
			} else {
				p.pos = save
			}
		}
		stage.Cmd = p.parseCommand()
		if p.err != nil {
			return pl
		}
		p.parseRedirsInto(&stage.Redirs)
		p.skipBlank()
		if p.cur() == '|' {
			p.advance()
			if p.cur() == '&' {
				stage.PipeAll = true
				p.advance()
			}
			pl.Stages = append(pl.Stages, stage)
			p.skipBlankNL()
			continue
		}
		pl.Stages = append(pl.Stages, stage)
		return pl
	}
}

// parseCommand dispatches to the right compound-command parser, or falls
// through to a simple command. Per spec.md §4.2, if any prefix assignments
// were already consumed by the caller (none reach here, see
// parseSimpleOrCompound), `[[` and `((` lose their keyword status; that
// rule is implemented in parseSimpleOrCompound, which is the sole caller.
func (p *Parser) parseCommand() Command {
	return p.parseSimpleOrCompound()
}

func (p *Parser) parseSimpleOrCompound() Command {
	var assigns []*Assign
	var redirs []*Redirect
	for {
		p.skipBlank()
		if p.atRedirStart() {
			r := p.parseRedirect()
			if p.err != nil {
				return nil
			}
			redirs = append(redirs, r)
			continue
		}
		if p.atAssignWord() {
			a := p.parseAssign()
			if p.err != nil {
				return nil
			}
			assigns = append(assigns, a)
			continue
		}
		break
	}
	p.skipBlank()

	if len(assigns) == 0 {
		if cmd := p.tryParseCompound(); cmd != nil {
			if len(redirs) > 0 {
				if sc, ok := cmd.(*SimpleCommand); ok {
					sc.Redirs = append(redirs, sc.Redirs...)
				}
			}
			return cmd
		}
		if p.err != nil {
			return nil
		}
	}

	sc := &SimpleCommand{Assigns: assigns, Redirs: redirs}
	for {
		p.skipBlank()
		if p.atRedirStart() {
			r := p.parseRedirect()
			if p.err != nil {
				return nil
			}
			sc.Redirs = append(sc.Redirs, r)
			continue
		}
		if p.eof() || isWordBreak(p.cur()) {
			break
		}
		w := p.parseWord(wordStopNormal)
		if p.err != nil {
			return nil
		}
		sc.Args = append(sc.Args, w)
		// `name() { ...; }` function definition, recognized only as the
		// very first argument.
		if len(sc.Args) == 1 && len(sc.Assigns) == 0 && len(sc.Redirs) == 0 {
			if lit, ok := w.Lit(); ok && p.cur() == '(' && p.peek() == ')' {
				p.advanceN(2)
				p.skipBlankNL()
				return p.parseFuncBody(lit, false)
			}
		}
	}
	return sc
}

func (p *Parser) tryParseCompound() Command {
	switch {
	case p.atKeyword("if"):
		return p.parseIf()
	case p.atKeyword("while"):
		return p.parseWhile()
	case p.atKeyword("until"):
		return p.parseUntil()
	case p.atKeyword("for"):
		return p.parseFor()
	case p.atKeyword("case"):
		return p.parseCase()
	case p.atKeyword("function"):
		p.advanceN(len("function"))
		p.skipBlank()
		name, ok := p.readBareName()
		if !ok {
			p.err = p.errHere("syntax error: expected function name after 'function'")
			return nil
		}
		p.skipBlank()
		if p.cur() == '(' && p.peek() == ')' {
			p.advanceN(2)
		}
		p.skipBlankNL()
		return p.parseFuncBody(name, true)
	case p.atOp("(("):
		return p.parseArithCommand()
	case p.atOp("[["):
		return p.parseCondCommand()
	case p.cur() == '{':
		after := p.byteAt(p.pos + 1)
		if after == 0 || after == ' ' || after == '\t' || after == '\n' || after == ';' {
			return p.parseGroup()
		}
		return nil
	case p.cur() == '(':
		return p.parseSubshell()
	case p.atKeyword("coproc"):
		return p.parseCoproc()
	}
	return nil
}

func (p *Parser) readBareName() (string, bool) {
	start := p.pos
	for isNameByte(p.cur(), p.pos == start) {
		p.advance()
	}
	if p.pos == start {
		return "", false
	}
	return p.src[start:p.pos], true
}

func (p *Parser) parseFuncBody(name string, bashStyle bool) Command {
	pos := p.curPos()
	body := p.parseCommand()
	if p.err != nil {
		return nil
	}
	return &FunctionDef{Position: pos, BashStyle: bashStyle, Name: Lit{ValuePos: pos, Value: name}, Body: body}
}

func (p *Parser) parseGroup() Command {
	g := &Group{Lbrace: p.curPos()}
	p.advance() // {
	p.skipBlankNL()
	g.Stmts = p.parseStmts(func() bool { return p.cur() == '}' })
	if p.err != nil {
		return nil
	}
	if p.cur() != '}' {
		p.err = p.errHere("syntax error: unexpected end of file, expected '}'")
		return nil
	}
	g.Rbrace = p.curPos()
	p.advance()
	return g
}

func (p *Parser) parseSubshell() Command {
	s := &Subshell{Lparen: p.curPos()}
	p.advance() // (
	p.skipBlankNL()
	s.Stmts = p.parseStmts(func() bool { return p.cur() == ')' })
	if p.err != nil {
		return nil
	}
	if p.cur() != ')' {
		p.err = p.errHere("syntax error: unexpected end of file, expected ')'")
		return nil
	}
	s.Rparen = p.curPos()
	p.advance()
	return s
}

func (p *Parser) parseCoproc() Command {
	pos := p.curPos()
	p.advanceN(len("coproc"))
	p.skipBlank()
	name := ""
	if n, ok := p.readBareNameIfIdentPosition(); ok {
		name = n
		p.skipBlank()
	}
	body := p.parseCommand()
	if p.err != nil {
		return nil
	}
	return &CoprocClause{Coproc: pos, Name: name, Body: body}
}

// readBareNameIfIdentPosition peeks: `coproc NAME {` has a name only when
// followed eventually by a compound command, not when NAME would actually
// be the command itself (`coproc mycmd arg`). We use a simple heuristic:
// a bare identifier followed by optional blanks then `{` or `((`.
func (p *Parser) readBareNameIfIdentPosition() (string, bool) {
	save := p.pos
	name, ok := p.readBareName()
	if !ok {
		return "", false
	}
	p.skipBlank()
	if p.cur() == '{' || p.atOp("((") {
		return name, true
	}
	p.pos = save
	return "", false
}

func (p *Parser) parseIf() Command {
	c := &IfClause{If: p.curPos()}
	p.advanceN(len("if"))
	p.skipBlankNL()
	c.Cond = p.parseStmts(func() bool { return p.atKeyword("then") })
	if p.err != nil {
		return nil
	}
	if !p.consumeKeyword("then") {
		p.err = p.errHere("syntax error: expected 'then'")
		return nil
	}
	p.skipBlankNL()
	c.Then = p.parseStmts(func() bool {
		return p.atKeyword("fi") || p.atKeyword("elif") || p.atKeyword("else")
	})
	if p.err != nil {
		return nil
	}
	for p.atKeyword("elif") {
		elifPos := p.curPos()
		p.advanceN(len("elif"))
		p.skipBlankNL()
		cond := p.parseStmts(func() bool { return p.atKeyword("then") })
		if !p.consumeKeyword("then") {
			p.err = p.errHere("syntax error: expected 'then'")
			return nil
		}
		p.skipBlankNL()
		then := p.parseStmts(func() bool {
			return p.atKeyword("fi") || p.atKeyword("elif") || p.atKeyword("else")
		})
		c.Elifs = append(c.Elifs, &ElifClause{Elif: elifPos, Cond: cond, Then: then})
	}
	if p.atKeyword("else") {
		p.advanceN(len("else"))
		c.HasElse = true
		p.skipBlankNL()
		c.Else = p.parseStmts(func() bool { return p.atKeyword("fi") })
	}
	if !p.consumeKeyword("fi") {
		p.err = p.errHere("syntax error: unexpected end of file, expected 'fi'")
		return nil
	}
	c.Fi = p.curPos()
	return c
}

func (p *Parser) parseWhile() Command {
	w := &WhileClause{Keyword: p.curPos()}
	p.advanceN(len("while"))
	p.skipBlankNL()
	w.Cond = p.parseStmts(func() bool { return p.atKeyword("do") })
	if !p.consumeKeyword("do") {
		p.err = p.errHere("syntax error: expected 'do'")
		return nil
	}
	p.skipBlankNL()
	w.Do = p.parseStmts(func() bool { return p.atKeyword("done") })
	if !p.consumeKeyword("done") {
		p.err = p.errHere("syntax error: unexpected end of file, expected 'done'")
		return nil
	}
	w.Done = p.curPos()
	return w
}

func (p *Parser) parseUntil() Command {
	u := &UntilClause{Keyword: p.curPos()}
	p.advanceN(len("until"))
	p.skipBlankNL()
	u.Cond = p.parseStmts(func() bool { return p.atKeyword("do") })
	if !p.consumeKeyword("do") {
		p.err = p.errHere("syntax error: expected 'do'")
		return nil
	}
	p.skipBlankNL()
	u.Do = p.parseStmts(func() bool { return p.atKeyword("done") })
	if !p.consumeKeyword("done") {
		p.err = p.errHere("syntax error: unexpected end of file, expected 'done'")
		return nil
	}
	u.Done = p.curPos()
	return u
}

func (p *Parser) parseFor() Command {
	f := &ForClause{For: p.curPos()}
	p.advanceN(len("for"))
	p.skipBlank()
	if p.atOp("((") {
		cs := &CStyleLoop{Lparen: p.curPos()}
		p.advanceN(2)
		cs.Init = p.parseArithOrNil(";")
		p.expectByte(';')
		cs.Cond = p.parseArithOrNil(";")
		p.expectByte(';')
		cs.Post = p.parseArithOrNil(")")
		if !p.atOp("))") {
			p.err = p.errHere("syntax error: expected '))'")
			return nil
		}
		cs.Rparen = p.curPos()
		p.advanceN(2)
		f.Loop = cs
	} else {
		name, ok := p.readBareName()
		if !ok {
			p.err = p.errHere("syntax error: expected name after 'for'")
			return nil
		}
		wi := &WordIter{Name: Lit{ValuePos: f.For, Value: name}}
		p.skipBlank()
		if p.cur() == ';' {
			p.advance()
		} else if p.consumeKeyword("in") {
			p.skipBlank()
			for !p.eof() && p.cur() != '\n' && p.cur() != ';' {
				p.skipBlank()
				if p.eof() || p.cur() == '\n' || p.cur() == ';' {
					break
				}
				w := p.parseWord(wordStopNormal)
				if p.err != nil {
					return nil
				}
				wi.List = append(wi.List, w)
			}
			if p.cur() == ';' {
				p.advance()
			}
		}
		f.Loop = wi
	}
	p.skipBlankNL()
	if !p.consumeKeyword("do") {
		p.err = p.errHere("syntax error: expected 'do'")
		return nil
	}
	p.skipBlankNL()
	f.Do = p.parseStmts(func() bool { return p.atKeyword("done") })
	if !p.consumeKeyword("done") {
		p.err = p.errHere("syntax error: unexpected end of file, expected 'done'")
		return nil
	}
	f.Done = p.curPos()
	return f
}

func (p *Parser) expectByte(b byte) {
	p.skipBlank()
	if p.cur() != b {
		p.err = p.errHere("syntax error: expected %q", b)
		return
	}
	p.advance()
}

func (p *Parser) parseCase() Command {
	c := &CaseClause{Case: p.curPos()}
	p.advanceN(len("case"))
	p.skipBlank()
	c.Word = p.parseWord(wordStopNormal)
	if p.err != nil {
		return nil
	}
	p.skipBlankNL()
	if !p.consumeKeyword("in") {
		p.err = p.errHere("syntax error: expected 'in'")
		return nil
	}
	p.skipBlankNL()
	for !p.eof() && !p.atKeyword("esac") {
		if p.cur() == '(' {
			p.advance()
			p.skipBlank()
		}
		item := &CaseItem{}
		for {
			pat := p.parsePattern()
			if p.err != nil {
				return nil
			}
			item.Patterns = append(item.Patterns, pat)
			p.skipBlank()
			if p.cur() == '|' {
				p.advance()
				p.skipBlank()
				continue
			}
			break
		}
		if p.cur() != ')' {
			p.err = p.errHere("syntax error: expected ')' in case pattern")
			return nil
		}
		p.advance()
		p.skipBlankNL()
		item.Stmts = p.parseStmts(func() bool {
			return p.atOp(";;") || p.atOp(";&") || p.atOp(";;&") || p.atKeyword("esac")
		})
		switch {
		case p.atOp(";;&"):
			item.Terminator = DSEMIFALL
			p.advanceN(3)
		case p.atOp(";;"):
			item.Terminator = DSEMI
			p.advanceN(2)
		case p.atOp(";&"):
			item.Terminator = SEMIFALL
			p.advanceN(2)
		default:
			item.Terminator = DSEMI
		}
		c.Items = append(c.Items, item)
		p.skipBlankNL()
	}
	if !p.consumeKeyword("esac") {
		p.err = p.errHere("syntax error: unexpected end of file, expected 'esac'")
		return nil
	}
	c.Esac = p.curPos()
	return c
}

func (p *Parser) parseArithCommand() Command {
	a := &ArithCommand{Left: p.curPos()}
	p.advanceN(2)
	a.X = p.parseArithUntil(")")
	if !p.atOp("))") {
		p.err = p.errHere("syntax error: expected '))'")
		return nil
	}
	a.Right = p.curPos()
	p.advanceN(2)
	return a
}

func (p *Parser) parseCondCommand() Command {
	c := &ConditionalCommand{Left: p.curPos()}
	p.advanceN(2)
	p.skipBlank()
	c.X = p.parseCondOr()
	if p.err != nil {
		return nil
	}
	p.skipBlank()
	if !p.atOp("]]") {
		p.err = p.errHere("syntax error in conditional expression")
		return nil
	}
	c.Right = p.curPos()
	p.advanceN(2)
	return c
}
