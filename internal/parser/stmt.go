package parser

import (
	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/ident"
	"github.com/willow-lang/willow/internal/token"
	"github.com/willow-lang/willow/internal/types"
	"github.com/willow-lang/willow/internal/vm"
)

// parseStmtSync parses one statement, recovering from a parseError at this
// statement's boundary so a mistake inside one statement does not abort the
// rest of the function body (spec §4.1 error-recovery policy).
func (p *Parser) parseStmtSync() {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseError); !ok {
				panic(r)
			}
			p.synchronize()
			p.accept(token.SEMI)
		}
	}()
	p.parseStmt()
}

func (p *Parser) parseStmt() {
	tok, _ := p.peek()
	switch tok {
	case token.VAR:
		p.parseVarDecl()
	case token.CONST:
		p.parseConstDecl()
	case token.IF:
		p.parseIfStmt()
	case token.FOR:
		p.parseForStmt()
	case token.SWITCH:
		p.parseSwitchStmt()
	case token.RETURN:
		p.parseReturnStmt()
	case token.BREAK:
		p.parseBreakStmt()
	case token.CONTINUE:
		p.parseContinueStmt()
	case token.LBRACE:
		p.parseBlock()
	case token.SEMI:
		p.lex.Advance()
	default:
		p.parseSimpleStmt()
		p.accept(token.SEMI)
	}
}

// parseBlock parses a `{ ... }` statement list in its own nested scope
// (spec §4.3 "entering a block pushes it onto a stack").
func (p *Parser) parseBlock() {
	p.expect(token.LBRACE)
	p.idents.EnterBlock(false)
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		p.parseStmtSync()
	}
	p.idents.LeaveBlock()
	p.expect(token.RBRACE)
}

// parseSimpleStmt parses a short-decl, assignment, compound assignment or
// bare expression statement. A leading identifier is consumed once and
// reused for whichever of these forms follows, since the lexer's one-token
// lookahead cannot distinguish them without consuming the identifier first
// (spec §4.1: there is no combined ':=' token, so `x := 0` lexes as IDENT
// COLON EQ, the same prefix a plain `x = 0` assignment or `x.f()` call
// shares up through the identifier itself).
func (p *Parser) parseSimpleStmt() {
	tok, v := p.peek()
	line := p.line()

	if tok == token.IDENT {
		name, pos := v.Raw, v.Pos
		if builtinNames[name] {
			p.lex.Advance()
			pl := p.parseBuiltinCall(name, line)
			pl = p.parsePostfix(pl)
			p.finishExprStmt(pl, line)
			return
		}
		p.lex.Advance()
		if _, ok := p.accept(token.COLON); ok {
			p.expect(token.EQ)
			p.shortDecl(name, pos)
			return
		}
		id, ok := p.idents.Lookup(name)
		if !ok {
			p.fail("undefined identifier %s", name)
		}
		pl := p.identPlace(id, line)
		pl = p.parsePostfix(pl)
		p.finishAssignOrExprStmt(pl, line)
		return
	}

	pl := p.parseExpr()
	p.finishExprStmt(pl, line)
}

func (p *Parser) finishAssignOrExprStmt(pl place, line int) {
	tok, _ := p.peek()
	switch {
	case tok == token.EQ:
		p.lex.Advance()
		if !pl.addr {
			p.fail("cannot assign to this expression")
		}
		rhs := p.parseExpr()
		rhs = p.loadValue(rhs, line)
		if !types.Compatible(pl.typ, rhs.typ) {
			p.fail("cannot assign %s to %s", rhs.typ.String(), pl.typ.String())
		}
		p.gen.EmitTyped(code.ASSIGN, pl.typ.Underlying().Kind, pl.typ, line)

	case tok.IsAssignOp():
		p.lex.Advance()
		if !pl.addr {
			p.fail("cannot assign to this expression")
		}
		binOp := tok.BinaryOpFromAssign()
		k := pl.typ.Underlying().Kind

		p.gen.Emit(code.DUP, line)
		p.gen.EmitTyped(code.DEREF, k, pl.typ, line)
		rhs := p.parseExpr()
		rhs = p.loadValue(rhs, line)
		if k == types.String && binOp == token.PLUS {
			p.gen.EmitBuiltin(code.BuiltinConcat, line)
		} else {
			if !types.HasOperator(k, binOp) {
				p.fail("operator %s not valid for type %s", binOp.GoString(), pl.typ.String())
			}
			p.gen.EmitOp(code.BINARY, binOp, k, line)
		}
		p.gen.EmitTyped(code.ASSIGN, k, pl.typ, line)

	default:
		p.finishExprStmt(pl, line)
	}
}

// finishExprStmt discards a bare expression statement's value, restoring
// stack balance (spec §4.7: every pushed value must be consumed by
// something, and a call used purely for its side effect is no exception).
func (p *Parser) finishExprStmt(pl place, line int) {
	if pl.typ == nil {
		return
	}
	if pl.addr {
		pl = p.loadValue(pl, line)
	}
	if pl.typ.Underlying().Kind != types.Void {
		p.gen.Emit(code.POP, line)
	}
}

// parseIfStmt parses `if cond { ... } [else (if ... | { ... })]` (spec §4.6).
func (p *Parser) parseIfStmt() {
	p.expect(token.IF)
	line := p.line()
	cond := p.parseExpr()
	cond = p.loadValue(cond, line)
	if cond.typ.Underlying().Kind != types.Bool {
		p.fail("if condition must be bool, found %s", cond.typ.String())
	}

	elseLabel := p.gen.NewLabel()
	p.gen.EmitGoto(code.GOTO_IF_NOT, elseLabel, line)
	p.parseBlock()

	if _, ok := p.accept(token.ELSE); ok {
		end := p.gen.NewLabel()
		p.gen.EmitGoto(code.GOTO, end, p.line())
		p.gen.PlaceLabel(elseLabel)
		if p.at(token.IF) {
			p.parseIfStmt()
		} else {
			p.parseBlock()
		}
		p.gen.PlaceLabel(end)
		return
	}
	p.gen.PlaceLabel(elseLabel)
}

// parseForStmt parses the three for-loop shapes spec §4.6 allows: a bare
// `for { }` infinite loop, `for cond { }`, and the C-style
// `for init; cond; post { }`.
func (p *Parser) parseForStmt() {
	p.expect(token.FOR)
	p.idents.EnterBlock(false)
	defer p.idents.LeaveBlock()

	hasClauses := !p.at(token.LBRACE)
	var hasCond bool

	if hasClauses {
		// Disambiguate `for cond { }` from `for init; cond; post { }` by the
		// header's first token (see looksLikeForCondOnly); the three-clause
		// form then requires a semicolon after its init statement.
		if !p.looksLikeForCondOnly() {
			p.parseSimpleStmt()
			p.expect(token.SEMI)
			hasCond = true
		} else {
			hasCond = true
		}
	}

	start := p.gen.NewLabel()
	end := p.gen.NewLabel()
	p.gen.PlaceLabel(start)

	var condLine int
	if hasCond && !p.at(token.LBRACE) {
		condLine = p.line()
		cond := p.parseExpr()
		cond = p.loadValue(cond, condLine)
		p.gen.EmitGoto(code.GOTO_IF_NOT, end, condLine)
	}

	continueLabel := start
	if hasClauses {
		if _, ok := p.accept(token.SEMI); ok {
			// The post statement precedes the body in the source, so it is
			// emitted here and jumped over on the way into the body.
			body := p.gen.NewLabel()
			postLabel := p.gen.NewLabel()
			continueLabel = postLabel
			p.gen.EmitGoto(code.GOTO, body, p.line())
			p.gen.PlaceLabel(postLabel)
			p.parseSimpleStmt()
			p.gen.EmitGoto(code.GOTO, start, p.line())
			p.gen.PlaceLabel(body)
		}
	}

	p.gen.PushLoop(end, continueLabel)
	p.parseBlock()
	p.gen.PopLoop()

	p.gen.EmitGoto(code.GOTO, continueLabel, p.line())
	p.gen.PlaceLabel(end)
}

// looksLikeForCondOnly is a documented simplification: this parser does not
// backtrack, so `for init; cond; post` is only recognised when init starts
// with an identifier (a short-decl or assignment); any other leading token
// is treated as `for cond { }`. Plain `for { }` and the common
// `for i := 0; i < n; i += 1 { }` three-clause form both parse correctly.
func (p *Parser) looksLikeForCondOnly() bool {
	tok, _ := p.peek()
	return tok != token.IDENT
}

// parseSwitchStmt parses `switch expr { case v, v2: ...; default: ... }`
// (spec §4.6), compiled as a chain of equality comparisons against the
// switch subject held in a compiler-synthesized local, since this
// single-pass design has no dedicated switch opcode. default, if present,
// must be the last clause (a documented simplification: it is emitted in
// textual position the same as every other clause, so it must already be
// where its fallthrough-free semantics put it - at the end).
func (p *Parser) parseSwitchStmt() {
	p.expect(token.SWITCH)
	line := p.line()
	p.idents.EnterBlock(false)
	defer p.idents.LeaveBlock()

	subject := p.parseExpr()
	subject = p.loadValue(subject, line)
	idx := p.idents.AllocLocal(1)
	id, err := p.idents.Declare(p.idents.NewTemp(), ident.VarKind, subject.typ, token.Pos(0))
	if err != nil {
		p.fail("%s", err.Error())
	}
	id.Offset = idx
	p.gen.EmitIntTyped(code.PUSH_LOCAL_PTR_ZERO, int64(idx), subject.typ, line)
	p.gen.Emit(code.SWAP, line)
	p.gen.EmitTyped(code.ASSIGN, subject.typ.Underlying().Kind, subject.typ, line)

	p.expect(token.LBRACE)
	end := p.gen.NewLabel()

	for !p.at(token.RBRACE) {
		if _, ok := p.accept(token.DEFAULT); ok {
			p.expect(token.COLON)
			for !p.at(token.CASE) && !p.at(token.DEFAULT) && !p.at(token.RBRACE) {
				p.parseStmtSync()
			}
			continue
		}

		p.expect(token.CASE)
		next := p.gen.NewLabel()
		matched := p.gen.NewLabel()
		for {
			cl := p.line()
			p.gen.EmitInt(code.PUSH_LOCAL, int64(idx), cl)
			p.gen.EmitTyped(code.DEREF, subject.typ.Underlying().Kind, subject.typ, cl)
			val := p.parseExpr()
			val = p.loadValue(val, cl)
			p.gen.EmitOp(code.BINARY, token.EQL, subject.typ.Underlying().Kind, cl)
			p.gen.EmitGoto(code.GOTO_IF, matched, cl)
			if _, ok := p.accept(token.COMMA); ok {
				continue
			}
			break
		}
		p.gen.EmitGoto(code.GOTO, next, p.line())
		p.gen.PlaceLabel(matched)
		p.expect(token.COLON)
		for !p.at(token.CASE) && !p.at(token.DEFAULT) && !p.at(token.RBRACE) {
			p.parseStmtSync()
		}
		p.gen.EmitGoto(code.GOTO, end, p.line())
		p.gen.PlaceLabel(next)
	}
	p.gen.PlaceLabel(end)
	p.expect(token.RBRACE)
}

// parseReturnStmt parses `return [expr]` (spec §4.7 epilog). The value, if
// any, is moved into RegResult before the frame is torn down, the same
// convention a caller reads immediately after CALL/CALL_INDIRECT returns.
func (p *Parser) parseReturnStmt() {
	p.expect(token.RETURN)
	line := p.line()
	if p.fn == nil {
		p.fail("return outside a function")
	}

	if p.fn.resultType != nil && p.fn.resultType.Underlying().Kind != types.Void {
		val := p.parseExpr()
		val = p.loadValue(val, line)
		if !types.Compatible(p.fn.resultType, val.typ) {
			p.fail("cannot return %s as %s", val.typ.String(), p.fn.resultType.String())
		}
		p.gen.EmitInt(code.POP_REG, int64(vm.RegResult), line)
	}
	p.accept(token.SEMI)
	p.gen.EmitLeaveFrame(line)
	p.gen.EmitReturn(p.fn.paramSlots, code.ReturnNormal, line)
}

func (p *Parser) parseBreakStmt() {
	p.expect(token.BREAK)
	line := p.line()
	brk, _, ok := p.gen.CurrentLoop()
	if !ok {
		p.fail("break outside a loop")
	}
	p.gen.EmitGoto(code.GOTO, brk, line)
	p.accept(token.SEMI)
}

func (p *Parser) parseContinueStmt() {
	p.expect(token.CONTINUE)
	line := p.line()
	_, cont, ok := p.gen.CurrentLoop()
	if !ok {
		p.fail("continue outside a loop")
	}
	p.gen.EmitGoto(code.GOTO, cont, line)
	p.accept(token.SEMI)
}
