package parser

import (
	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/ident"
	"github.com/willow-lang/willow/internal/token"
	"github.com/willow-lang/willow/internal/types"
)

// Parse compiles every top-level declaration in the source the Parser was
// constructed over, emitting directly into its Generator (spec §4.5/§4.6).
// It never returns early on a malformed declaration: each one is
// synchronized independently so one mistake does not hide the rest (spec
// §4.1 error-recovery policy).
func (p *Parser) Parse() {
	for {
		tok, _ := p.peek()
		if tok == token.EOF {
			return
		}
		p.parseTopLevelDecl()
	}
}

func (p *Parser) parseTopLevelDecl() {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseError); !ok {
				panic(r)
			}
			p.synchronize()
		}
	}()

	tok, _ := p.peek()
	switch tok {
	case token.IMPORT:
		p.parseImportDecl()
	case token.FN:
		p.parseFuncDecl()
	case token.VAR:
		p.parseVarDecl()
	case token.CONST:
		p.parseConstDecl()
	case token.TYPE:
		p.parseTypeDecl()
	case token.SEMI:
		p.lex.Advance()
	default:
		p.fail("expected a declaration, found %s", tok.GoString())
	}
}

// parseImportDecl accepts and records an import statement's module path; a
// single compiled source is treated as one implicit module (spec §4.3), so
// this mainly exists to let host programs embed multi-file sources without
// a parse error on the import line itself.
func (p *Parser) parseImportDecl() {
	p.expect(token.IMPORT)
	p.expect(token.STRING)
	p.accept(token.SEMI)
}

// parseFuncDecl parses a named top-level function (spec §4.6 "fn
// declarations"). The identifier is declared before its body is compiled so
// a self-recursive call inside the body can already resolve it (spec §4.5's
// single-pass limitation: only self and textually-earlier functions are
// callable by name, documented in DESIGN.md).
func (p *Parser) parseFuncDecl() {
	p.expect(token.FN)
	name := p.expect(token.IDENT).Raw
	pos := p.lastPos()
	sig := p.parseSignature()
	ft := p.types.NewFunction(sig)

	id, err := p.idents.Declare(name, ident.ConstKind, ft, pos)
	if err != nil {
		p.fail("%s", err.Error())
	}
	id.Exported = true

	p.parseFuncBody(sig, id, false)
}

// parseFuncLiteral parses an anonymous `fn(...): T { ... }` expression (spec
// §4.6): its value is its compiled entry offset, pushed onto the stack the
// same way a named function identifier's value is (spec §4.7 "function
// values are a bare entry-offset Int").
func (p *Parser) parseFuncLiteral() place {
	p.expect(token.FN)
	sig := p.parseSignature()
	ft := p.types.NewFunction(sig)
	p.parseFuncBody(sig, nil, true)
	return place{typ: ft}
}

// parseFuncBody compiles one function's prolog, parameter declarations,
// body and epilog (spec §4.5 "Function prolog"/"epilog"). The body is
// placed after a skip-over GOTO so that compiling it inline at the call
// site (anonymous literals) or amid other declarations (named functions)
// never falls through into its instructions (spec §4.5's single-pass
// layout). If self is non-nil, its ConstVal is set to the resolved entry
// offset before the body is parsed, enabling self-recursion. If pushValue,
// the entry offset is left on the stack as this construct's expression
// value.
func (p *Parser) parseFuncBody(sig *types.Signature, self *ident.Ident, pushValue bool) int32 {
	line := p.line()
	after := p.gen.NewLabel()
	p.gen.EmitGoto(code.GOTO, after, line)

	entry := int32(p.gen.Len())
	enterIdx := p.gen.EmitEnterFrame(line)

	if self != nil {
		self.ConstVal = types.IntConst(types.Int64, int64(entry))
	}

	p.idents.EnterBlock(true)
	n := len(sig.Params)
	for i, param := range sig.Params {
		off := p.idents.AllocParam(1)
		idx := off - n
		pid, err := p.idents.Declare(param.Name, ident.VarKind, param.Type, token.Pos(0))
		if err != nil {
			p.fail("%s", err.Error())
		}
		pid.IsParam = true
		pid.Offset = idx
		_ = i
	}

	p.fn = &funcState{enterFrame: enterIdx, paramSlots: int32(n), resultType: sig.ResultType, outer: p.fn}

	p.expect(token.LBRACE)
	for !p.at(token.RBRACE) && !p.at(token.EOF) {
		p.parseStmtSync()
	}
	p.expect(token.RBRACE)

	p.gen.EmitLeaveFrame(line)
	p.gen.EmitReturn(int32(n), code.ReturnNormal, line)

	localSlots := p.idents.LocalSlotCount()
	p.idents.LeaveBlock()
	p.gen.FixEnterFrame(enterIdx, int32(n), int32(localSlots))

	p.fn = p.fn.outer
	p.gen.PlaceLabel(after)

	if pushValue {
		p.gen.EmitInt(code.PUSH, int64(entry), line)
	}
	return entry
}

// parseVarDecl parses `var name: Type [= expr]` or `var name = expr` at
// either top level or inside a function body (spec §4.6 "var declarations").
// Its storage is always heap-chunk-backed via PUSH_LOCAL_PTR_ZERO so its
// address can later be taken (spec §4.7 "Locals are always heap-chunk
// backed").
func (p *Parser) parseVarDecl() {
	p.expect(token.VAR)
	p.declareVar()
	for {
		if _, ok := p.accept(token.COMMA); !ok {
			break
		}
		p.declareVar()
	}
	p.accept(token.SEMI)
}

func (p *Parser) declareVar() {
	name := p.expect(token.IDENT).Raw
	pos := p.lastPos()
	line := p.line()

	if _, ok := p.accept(token.COLON); ok {
		typ := p.parseType()
		if _, ok := p.accept(token.EQ); ok {
			p.declareAndInit(name, pos, typ, line, true)
			return
		}
		idx := p.idents.AllocLocal(1)
		id, err := p.idents.Declare(name, ident.VarKind, typ, pos)
		if err != nil {
			p.fail("%s", err.Error())
		}
		id.Offset = idx
		p.gen.EmitIntTyped(code.PUSH_LOCAL_PTR_ZERO, int64(idx), typ, line)
		p.gen.Emit(code.POP, line)
		p.accept(token.SEMI)
		return
	}

	p.expect(token.EQ)
	p.declareAndInit(name, pos, nil, line, false)
}

// declareAndInit handles `var name: Type = expr`: the local's storage is
// zero-allocated, then the initializer is assigned into it.
func (p *Parser) declareAndInit(name string, pos token.Pos, typ *types.Type, line int, hasType bool) {
	val := p.parseExpr()
	val = p.loadValue(val, line)
	if hasType && !types.Compatible(typ, val.typ) {
		p.fail("cannot use %s as %s", val.typ.String(), typ.String())
	}
	if !hasType {
		typ = val.typ
	}
	idx := p.idents.AllocLocal(1)
	id, err := p.idents.Declare(name, ident.VarKind, typ, pos)
	if err != nil {
		p.fail("%s", err.Error())
	}
	id.Offset = idx
	p.gen.EmitIntTyped(code.PUSH_LOCAL_PTR_ZERO, int64(idx), typ, line)
	p.gen.Emit(code.SWAP, line)
	p.gen.EmitTyped(code.ASSIGN, typ.Underlying().Kind, typ, line)
	p.accept(token.SEMI)
}

// shortDecl implements `name := expr` (spec §4.6; the lexer never produces a
// combined ':=' token, so this is recognised as IDENT COLON EQ expr).
func (p *Parser) shortDecl(name string, pos token.Pos) {
	line := p.line()
	val := p.parseExpr()
	val = p.loadValue(val, line)
	idx := p.idents.AllocLocal(1)
	id, err := p.idents.Declare(name, ident.VarKind, val.typ, pos)
	if err != nil {
		p.fail("%s", err.Error())
	}
	id.Offset = idx
	p.gen.EmitIntTyped(code.PUSH_LOCAL_PTR_ZERO, int64(idx), val.typ, line)
	p.gen.Emit(code.SWAP, line)
	p.gen.EmitTyped(code.ASSIGN, val.typ.Underlying().Kind, val.typ, line)
}

// parseConstDecl parses `const name = expr`, folding expr as a compile-time
// constant (spec §4.6). Only literal expressions are supported; general
// constant folding of arbitrary compile-time expressions is out of scope
// for this pass (documented in DESIGN.md).
func (p *Parser) parseConstDecl() {
	p.expect(token.CONST)
	name := p.expect(token.IDENT).Raw
	pos := p.lastPos()
	p.expect(token.EQ)

	tok, v := p.peek()
	var c types.Const
	var typ *types.Type
	switch tok {
	case token.INT:
		c, typ = types.IntConst(types.Int64, v.Int), p.primType(types.Int64)
	case token.UINT:
		c, typ = types.UintConst(types.UInt64, v.Uint), p.primType(types.UInt64)
	case token.FLOAT:
		c, typ = types.RealConst(types.Real64, v.Float), p.primType(types.Real64)
	case token.STRING:
		c, typ = types.StringConst(v.Str), p.stringType
	case token.CHAR:
		c, typ = types.IntConst(types.Char, int64(v.Str[0])), p.charType
	default:
		p.fail("const %s: expected a literal constant", name)
	}
	p.lex.Advance()

	id, err := p.idents.Declare(name, ident.ConstKind, typ, pos)
	if err != nil {
		p.fail("%s", err.Error())
	}
	id.ConstVal = c
	p.accept(token.SEMI)
}

// parseTypeDecl parses `type name Type` (spec §4.6), naming the type so its
// String() and redeclaration diagnostics refer to the declared name.
func (p *Parser) parseTypeDecl() {
	p.expect(token.TYPE)
	name := p.expect(token.IDENT).Raw
	pos := p.lastPos()
	typ := p.parseType()
	typ.SetName(name)
	id, err := p.idents.Declare(name, ident.TypeKind, typ, pos)
	if err != nil {
		p.fail("%s", err.Error())
	}
	id.Exported = true
	p.accept(token.SEMI)
}

// lastPos recovers the position of the token just consumed, approximated by
// the current lookahead's position since the lexer does not expose the
// previous token's position directly.
func (p *Parser) lastPos() token.Pos {
	_, v := p.peek()
	return v.Pos
}
