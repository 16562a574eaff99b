package parser

import (
	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/ident"
	"github.com/willow-lang/willow/internal/token"
	"github.com/willow-lang/willow/internal/types"
)

// primType returns the cached Type for a primitive/handle kind, so repeated
// literal expressions of the same kind share one Type value (spec §4.2
// identity requirement for Equivalent's fast path).
func (p *Parser) primType(k types.Kind) *types.Type {
	switch k {
	case types.String:
		return p.stringType
	case types.Fiber:
		return p.fiberType
	default:
		return p.types.Primitive(k)
	}
}

// precedence returns the binding power of a binary operator token, 0 if tok
// is not a binary operator (spec §4.6's operator-precedence table).
func precedence(tok token.Token) int {
	switch tok {
	case token.LOR:
		return 1
	case token.LAND:
		return 2
	case token.EQL, token.NEQ, token.LT, token.LE, token.GT, token.GE:
		return 3
	case token.PIPE, token.CARET:
		return 4
	case token.AMPERSAND:
		return 5
	case token.LTLT, token.GTGT:
		return 6
	case token.PLUS, token.MINUS:
		return 7
	case token.STAR, token.SLASH, token.PERCENT:
		return 8
	default:
		return 0
	}
}

// parseExpr parses a full expression and leaves its value on top of the
// generator's emission stack, returning its type (spec §4.6).
func (p *Parser) parseExpr() place {
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrec int) place {
	left := p.parseUnary()
	for {
		tok, _ := p.peek()
		prec := precedence(tok)
		if prec < minPrec {
			return left
		}
		line := p.line()
		p.lex.Advance()

		left = p.loadValue(left, line)
		if tok == token.LAND || tok == token.LOR {
			left = p.shortCircuit(tok, left, prec, line)
			continue
		}

		right := p.parseBinary(prec + 1)
		right = p.loadValue(right, line)

		k := left.typ.Underlying().Kind
		if k == types.String && tok == token.PLUS {
			p.gen.EmitBuiltin(code.BuiltinConcat, line)
			left = place{typ: left.typ}
			continue
		}
		if !types.Equivalent(left.typ, right.typ) {
			p.fail("mismatched operand types %s and %s", left.typ.String(), right.typ.String())
		}
		if !types.HasOperator(k, tok) {
			p.fail("operator %s not valid for type %s", tok.GoString(), left.typ.String())
		}
		p.gen.EmitOp(code.BINARY, tok, k, line)
		resultType := left.typ
		if tok == token.EQL || tok == token.NEQ || tok == token.LT || tok == token.LE || tok == token.GT || tok == token.GE {
			resultType = p.boolType
		}
		left = place{typ: resultType}
	}
}

// shortCircuit emits a && / || expression via GOTO_IF/GOTO_IF_NOT so the
// right operand is only evaluated when it can change the result (spec §4.7
// control opcodes; no dedicated LAND/LOR opcode exists, this is built from
// the same primitives an if-statement uses).
func (p *Parser) shortCircuit(tok token.Token, left place, prec int, line int) place {
	skip := p.gen.NewLabel()
	end := p.gen.NewLabel()
	p.gen.Emit(code.DUP, line)
	if tok == token.LAND {
		p.gen.EmitGoto(code.GOTO_IF_NOT, skip, line)
	} else {
		p.gen.EmitGoto(code.GOTO_IF, skip, line)
	}
	p.gen.Emit(code.POP, line)
	right := p.parseBinary(prec + 1)
	right = p.loadValue(right, line)
	p.gen.EmitGoto(code.GOTO, end, line)
	p.gen.PlaceLabel(skip)
	p.gen.PlaceLabel(end)
	_ = right
	return place{typ: p.boolType}
}

// parseUnary handles prefix operators: arithmetic/logical negation and
// address-of (spec §4.6 "& takes the address of an addressable operand").
func (p *Parser) parseUnary() place {
	tok, _ := p.peek()
	line := p.line()
	switch tok {
	case token.MINUS, token.NOT, token.TILDE:
		p.lex.Advance()
		operand := p.parseUnary()
		operand = p.loadValue(operand, line)
		k := operand.typ.Underlying().Kind
		if !types.HasOperator(k, tok) && tok != token.MINUS {
			p.fail("operator %s not valid for type %s", tok.GoString(), operand.typ.String())
		}
		p.gen.EmitOp(code.UNARY, tok, k, line)
		return place{typ: operand.typ}

	case token.AMPERSAND:
		p.lex.Advance()
		operand := p.parsePostfix(p.parsePrimary())
		if !operand.addr {
			p.fail("cannot take the address of this expression")
		}
		return place{typ: p.types.PointerTo(operand.typ)}
	}
	return p.parsePostfix(p.parsePrimary())
}

// parsePostfix applies any chain of selector/index/call/deref suffixes to an
// already-parsed primary place (spec §4.6 "Selector expressions").
func (p *Parser) parsePostfix(pl place) place {
	for {
		tok, _ := p.peek()
		line := p.line()
		switch tok {
		case token.CARET:
			p.lex.Advance()
			pl = p.derefOnce(pl, line)

		case token.DOT:
			p.lex.Advance()
			name := p.expect(token.IDENT).Raw
			pl = p.selectField(pl, name, line)

		case token.LBRACK:
			p.lex.Advance()
			pl = p.index(pl, line)
			p.expect(token.RBRACK)

		case token.LPAREN:
			pl = p.call(pl, line)

		default:
			return pl
		}
	}
}

// selectField resolves pl.name, auto-dereferencing through any number of
// pointer hops first (spec §4.6).
func (p *Parser) selectField(pl place, name string, line int) place {
	pl = p.autoderefPointer(pl, line)
	ut := pl.typ.Underlying()
	f, ok := ut.FieldByName(name)
	if !ok {
		p.fail("type %s has no field %s", pl.typ.String(), name)
	}
	if ut.Kind == types.Interface {
		p.fail("interface method values are not supported as expressions")
	}
	p.gen.EmitIntTyped(code.GET_FIELD_PTR, int64(f.Offset), f.Type, line)
	return place{typ: f.Type, addr: true}
}

// index resolves a[k] for a static array, dynamic array or map base (spec
// §4.6/§4.7). The index expression is parsed and left on the stack before
// the caller's RBRACK is consumed.
func (p *Parser) index(pl place, line int) place {
	pl = p.autoderefPointer(pl, line)
	ut := pl.typ.Underlying()

	switch ut.Kind {
	case types.StaticArray:
		idx := p.parseExpr()
		idx = p.loadValue(idx, line)
		p.gen.EmitIntTyped(code.GET_ARRAY_PTR, int64(ut.Count), ut.Base, line)
		return place{typ: ut.Base, addr: true}

	case types.DynArray:
		pl = p.loadValue(pl, line)
		idx := p.parseExpr()
		idx = p.loadValue(idx, line)
		p.gen.EmitIntTyped(code.GET_DYNARRAY_PTR, 0, ut.Base, line)
		return place{typ: ut.Base, addr: true}

	case types.String:
		pl = p.loadValue(pl, line)
		idx := p.parseExpr()
		idx = p.loadValue(idx, line)
		p.gen.EmitIntTyped(code.GET_ARRAY_PTR, -1, p.charType, line)
		return place{typ: p.charType, addr: true}

	case types.Map:
		pl = p.loadValue(pl, line)
		key := p.parseExpr()
		key = p.loadValue(key, line)
		p.gen.EmitTyped(code.GET_MAP_PTR, 0, p.types.MapOf(ut.Key, ut.Base), line)
		return place{typ: ut.Base, addr: true}
	}

	p.fail("type %s is not indexable", pl.typ.String())
	return place{}
}

// parsePrimary parses one operand: a literal, identifier, parenthesised
// expression, composite literal or function literal (spec §4.6).
func (p *Parser) parsePrimary() place {
	tok, v := p.peek()
	line := p.line()

	switch tok {
	case token.INT:
		p.lex.Advance()
		p.gen.EmitInt(code.PUSH, v.Int, line)
		return place{typ: p.primType(types.Int64)}

	case token.UINT:
		p.lex.Advance()
		p.gen.EmitPushKind(types.UInt64, int64(v.Uint), line)
		return place{typ: p.primType(types.UInt64)}

	case token.FLOAT:
		p.lex.Advance()
		p.gen.EmitReal(v.Float, line)
		return place{typ: p.primType(types.Real64)}

	case token.CHAR:
		p.lex.Advance()
		p.gen.EmitPushKind(types.Char, int64(v.Str[0]), line)
		return place{typ: p.primType(types.Char)}

	case token.STRING:
		p.lex.Advance()
		p.gen.EmitString(v.Str, line)
		return place{typ: p.stringType}

	case token.LPAREN:
		p.lex.Advance()
		pl := p.parseExpr()
		p.expect(token.RPAREN)
		return pl

	case token.FN:
		return p.parseFuncLiteral()

	case token.LBRACK, token.MAP, token.STRUCT:
		typ := p.parseType()
		return p.compositeLiteral(typ, line)

	case token.IDENT:
		if builtinNames[v.Raw] {
			p.lex.Advance()
			return p.parseBuiltinCall(v.Raw, line)
		}
		p.lex.Advance()
		id, ok := p.idents.Lookup(v.Raw)
		if !ok {
			p.fail("undefined identifier %s", v.Raw)
		}
		return p.identPlace(id, line)
	}

	p.fail("expected an expression, found %s", tok.GoString())
	return place{}
}

// identPlace returns the place an already-resolved identifier reads/writes
// through: constants push their value directly; parameters load their
// frame slot with no indirection (spec §4.7 "parameters hold their value
// directly"); every other variable is addr:true over its heap-backed chunk.
func (p *Parser) identPlace(id *ident.Ident, line int) place {
	switch id.Kind {
	case ident.ConstKind:
		if id.Type.Underlying().Kind == types.Function {
			p.gen.EmitInt(code.PUSH, id.ConstVal.I, line)
			return place{typ: id.Type}
		}
		return p.pushConst(id.ConstVal, id.Type, line)

	case ident.VarKind:
		if id.IsParam {
			p.gen.EmitInt(code.PUSH_LOCAL, int64(id.Offset), line)
			ut := id.Type.Underlying()
			if ut.Kind == types.Pointer || ut.Kind == types.WeakPointer {
				return place{typ: id.Type, collapsed: true}
			}
			return place{typ: id.Type, addr: false}
		}
		p.gen.EmitInt(code.PUSH_LOCAL, int64(id.Offset), line)
		return place{typ: id.Type, addr: true}
	}

	p.fail("%s is not a value", id.Name)
	return place{}
}

func (p *Parser) pushConst(c types.Const, t *types.Type, line int) place {
	k := t.Underlying().Kind
	switch {
	case k.IsUnsignedInt():
		p.gen.EmitPushKind(k, int64(c.U), line)
	case k.IsReal():
		p.gen.EmitReal(c.R, line)
	case k == types.String:
		p.gen.EmitString(c.S, line)
	case k == types.Null:
		p.gen.EmitInt(code.PUSH, 0, line)
	default:
		p.gen.EmitPushKind(k, c.I, line)
	}
	return place{typ: t}
}

// call parses a call expression's argument list against callee's function
// type and emits CALL_INDIRECT for every call, including one to a
// directly-named function, whose entry offset identPlace pushes as a
// constant. Builtins never reach here: they are recognised and fully consumed
// by parsePrimary before any postfix chain begins.
func (p *Parser) call(callee place, line int) place {
	ft := callee.typ.Underlying()
	if ft.Kind != types.Function {
		p.fail("cannot call a value of type %s", callee.typ.String())
	}
	sig := ft.Sig

	callee = p.loadValue(callee, line)
	p.expect(token.LPAREN)
	for i := 0; !p.at(token.RPAREN); i++ {
		if i > 0 {
			p.expect(token.COMMA)
		}
		if i >= len(sig.Params) {
			p.fail("too many arguments")
		}
		arg := p.parseExpr()
		arg = p.loadValue(arg, p.line())
		if !types.Compatible(sig.Params[i].Type, arg.typ) {
			p.fail("argument %d: cannot use %s as %s", i+1, arg.typ.String(), sig.Params[i].Type.String())
		}
	}
	p.expect(token.RPAREN)

	p.gen.Emit(code.CALL_INDIRECT, line)
	p.gen.EmitInt(code.PUSH_REG, int64(0), line) // RegResult

	result := p.voidResult()
	if sig.NumResults > 0 {
		result = sig.ResultType
	}
	return place{typ: result}
}

func (p *Parser) voidResult() *types.Type { return p.types.Primitive(types.Void) }

// compositeLiteral builds a dynamic-array `[]T{ elem, elem, ... }` literal
// (spec §4.6); a literal of any other type is rejected. The array is
// allocated via CALL_BUILTIN make, then each element assigned through
// GET_DYNARRAY_PTR behind a DUP of the freshly-allocated
// handle, since that opcode overwrites its base operand in place with the
// resolved element address (spec §4.7 "GET_ARRAY_PTR"/"GET_DYNARRAY_PTR").
func (p *Parser) compositeLiteral(typ *types.Type, line int) place {
	ut := typ.Underlying()
	p.expect(token.LBRACE)

	switch ut.Kind {
	case types.DynArray:
		countIdx := p.gen.EmitInt(code.PUSH, 0, line)
		p.gen.EmitCallBuiltin(code.BuiltinMake, 0, ut.Base, line)

		n := 0
		for !p.at(token.RBRACE) {
			if n > 0 {
				p.expect(token.COMMA)
				if p.at(token.RBRACE) {
					break
				}
			}
			p.gen.Emit(code.DUP, line)
			p.gen.EmitInt(code.PUSH, int64(n), line)
			p.gen.EmitIntTyped(code.GET_DYNARRAY_PTR, 0, ut.Base, line)
			el := p.parseExpr()
			el = p.loadValue(el, line)
			if !types.Compatible(ut.Base, el.typ) {
				p.fail("cannot use %s as element type %s", el.typ.String(), ut.Base.String())
			}
			p.gen.EmitTyped(code.ASSIGN, ut.Base.Underlying().Kind, ut.Base, line)
			n++
		}
		p.expect(token.RBRACE)
		p.gen.Instrs[countIdx].Operand.Int = int64(n)
		return place{typ: typ}

	case types.StaticArray:
		p.fail("static array composite literals are not supported; use var and index assignment")
	}

	p.fail("composite literals are not supported for type %s", typ.String())
	return place{}
}
