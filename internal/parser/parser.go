// Package parser implements the single-pass compiler front end: a
// recursive-descent parser that emits bytecode directly into
// internal/code.Generator as it recognises each construct, with no
// intermediate AST (spec §4.5, §4.6). Structure and error-recovery style
// follow a conventional recursive-descent front end: one method per
// grammar production, driving the generator inline rather than building a
// tree to walk afterward.
package parser

import (
	"fmt"
	"go/scanner"

	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/ident"
	"github.com/willow-lang/willow/internal/lexer"
	"github.com/willow-lang/willow/internal/token"
	"github.com/willow-lang/willow/internal/types"
)

// Parser drives one compilation: it owns the lexer, the shared type and
// identifier tables, and the instruction buffer it emits into. There is
// exactly one implicit module per compiled source (spec §4.3's module
// visibility rules are honoured, but this parser never calls DeclareModule
// for more than module 0 plus whatever embed.AddModule registers ahead of
// time).
type Parser struct {
	lex      *lexer.Lexer
	filename string
	errs     scanner.ErrorList

	types  *types.Table
	idents *ident.Table
	gen    *code.Generator

	// predeclared type identifiers, cached for parseType's fast path.
	boolType, charType, stringType, fiberType *types.Type

	fn *funcState // innermost function body being compiled, nil at top level
}

// funcState tracks per-function bookkeeping while its body is being
// compiled: the ENTER_FRAME instruction index to back-patch once the final
// local-slot count is known, and the declared result type for checking
// return statements (spec §4.5 "Function prolog"/"epilog").
type funcState struct {
	enterFrame int
	paramSlots int32
	resultType *types.Type // nil for a function with no return value
	outer      *funcState  // enclosing function, for nested fn literals
}

// parseError is panicked by expect/fail and recovered at statement and
// declaration boundaries so one malformed construct does not abort the
// whole compile (spec §4.1 "the lexer... keeps scanning so the caller can
// collect every error in one pass" — the parser extends that policy to
// itself).
type parseError struct{ msg string }

func (e parseError) Error() string { return e.msg }

// New creates a parser over src. types and idents are shared across an
// embed.VM's lifetime so multiple compiled sources see the same predeclared
// identifiers and structural types (spec §4.2, §4.3).
func New(filename string, src []byte, types *types.Table, idents *ident.Table, gen *code.Generator) *Parser {
	p := &Parser{
		filename: filename,
		types:    types,
		idents:   idents,
		gen:      gen,
	}
	p.lex = lexer.New(filename, src, func(pos token.Position, msg string) {
		token.AddError(&p.errs, pos, msg)
	})
	p.registerPredeclared()
	return p
}

// registerPredeclared enters the primitive type names and the boolean/nil
// literals into block 0. None of these are keywords (spec §4.1's keyword
// list has no true/false/nil/bool/int/...), so they are ordinary
// identifiers a program could in principle shadow in an inner block, same
// as Go's predeclared "true"/"int"/"string".
func (p *Parser) registerPredeclared() {
	prim := map[string]types.Kind{
		"int8": types.Int8, "int16": types.Int16, "int32": types.Int32, "int": types.Int64,
		"uint8": types.UInt8, "uint16": types.UInt16, "uint32": types.UInt32, "uint": types.UInt64,
		"bool": types.Bool, "char": types.Char, "real32": types.Real32, "real": types.Real64,
	}
	for name, k := range prim {
		t := p.types.Primitive(k)
		t.SetName(name)
		id, _ := p.idents.Declare(name, ident.TypeKind, t, token.Pos(0))
		id.Exported = true
	}
	fiberType := &types.Type{Kind: types.Fiber}
	fiberType.SetName("fiber")
	p.fiberType = fiberType
	id, _ := p.idents.Declare("fiber", ident.TypeKind, fiberType, token.Pos(0))
	id.Exported = true

	p.boolType = p.types.Primitive(types.Bool)
	p.charType = p.types.Primitive(types.Char)
	stringType := &types.Type{Kind: types.String}
	stringType.SetName("str")
	p.stringType = stringType

	for _, b := range []bool{true, false} {
		name := "false"
		if b {
			name = "true"
		}
		id, _ := p.idents.Declare(name, ident.ConstKind, p.boolType, token.Pos(0))
		id.ConstVal = types.BoolConst(b)
		id.Exported = true
	}

	nilType := &types.Type{Kind: types.Null}
	nilType.SetName("nil")
	id, _ = p.idents.Declare("nil", ident.ConstKind, nilType, token.Pos(0))
	id.ConstVal = types.Const{Kind: types.Null}
	id.Exported = true
}

// Errors returns the accumulated compile errors, empty if none.
func (p *Parser) Errors() scanner.ErrorList { return p.errs }

func (p *Parser) errorf(pos token.Pos, format string, args ...any) {
	line, col := pos.LineCol()
	token.AddError(&p.errs, token.Position{Filename: p.filename, Line: line, Column: col}, fmt.Sprintf(format, args...))
}

// fail records an error at the current token and aborts the enclosing
// declaration/statement via panic, to be caught by a recover at a
// synchronisation point (spec §4.1 error-recovery policy, mirrored from the
// teacher's parser.go).
func (p *Parser) fail(format string, args ...any) {
	_, v := p.lex.Peek()
	p.errorf(v.Pos, format, args...)
	panic(parseError{fmt.Sprintf(format, args...)})
}

func (p *Parser) peek() (token.Token, token.Value) { return p.lex.Peek() }

func (p *Parser) at(tok token.Token) bool {
	t, _ := p.lex.Peek()
	return t == tok
}

// accept consumes and returns true if the current token matches tok.
func (p *Parser) accept(tok token.Token) (token.Value, bool) {
	if !p.at(tok) {
		return token.Value{}, false
	}
	_, v := p.lex.Peek()
	p.lex.Advance()
	return v, true
}

// expect consumes the current token, failing the parse if it does not match.
func (p *Parser) expect(tok token.Token) token.Value {
	v, ok := p.lex.Expect(tok)
	if !ok {
		panic(parseError{fmt.Sprintf("expected %s", tok.GoString())})
	}
	return v
}

func (p *Parser) line() int {
	_, v := p.lex.Peek()
	l, _ := v.Pos.LineCol()
	return l
}

// synchronize advances past tokens until a likely statement/declaration
// boundary, so a single malformed construct does not cascade into spurious
// follow-on errors (spec §4.1 policy).
func (p *Parser) synchronize() {
	for {
		t, _ := p.lex.Peek()
		switch t {
		case token.EOF, token.SEMI, token.RBRACE,
			token.FN, token.VAR, token.CONST, token.TYPE, token.IMPORT:
			return
		}
		p.lex.Advance()
	}
}

// place is the unified addressing model every expression-producing helper
// returns (spec §4.6's assignability rules, §4.7's addressing opcodes):
// typ is the Willow type of the value named, addr reports whether a memory
// address for it is currently on top of the generator's emission stack
// (true) or the value itself (false), and collapsed marks a pointer-typed
// parameter whose single indirection has already been folded away by the
// no-DEREF-for-params convention (spec §4.7 "parameters hold their value
// directly").
type place struct {
	typ       *types.Type
	addr      bool
	collapsed bool
}

// derefOnce applies one `^` dereference to pl, matching spec §4.6's pointer
// semantics: dereferencing a pointer-typed value walks one level of
// indirection; dereferencing a collapsed pointer-typed parameter costs no
// instruction at all, since the parameter's own slot already holds the
// pointee's address (spec §4.7 "parameters hold their value directly").
func (p *Parser) derefOnce(pl place, line int) place {
	ut := pl.typ.Underlying()
	if pl.collapsed {
		return place{typ: pl.typ, addr: true}
	}
	if ut.Kind != types.Pointer && ut.Kind != types.WeakPointer {
		p.fail("cannot dereference non-pointer type %s", pl.typ.String())
	}
	base := ut.Base
	if !pl.addr {
		// pl is a pointer value already on the stack; its address *is* its
		// pointee's address, no load needed.
		return place{typ: base, addr: true}
	}
	p.gen.EmitTyped(code.DEREF, types.Pointer, nil, line)
	return place{typ: base, addr: true}
}

// loadValue ensures pl's value (not its address) sits on top of the stack,
// emitting a final scalar DEREF if pl is currently an address (spec §4.7
// "DEREF (typed load via pointer on top)"). Struct/array addresses are left
// as addresses: a scalar DEREF cannot load a composite, and every consumer
// of a composite place (field/element access, copy/append/...) wants the
// address, not an attempted scalar load.
func (p *Parser) loadValue(pl place, line int) place {
	if !pl.addr {
		return pl
	}
	ut := pl.typ.Underlying()
	if ut.Kind == types.Struct || ut.Kind == types.StaticArray {
		return pl
	}
	p.gen.EmitTyped(code.DEREF, ut.Kind, pl.typ, line)
	return place{typ: pl.typ, addr: false}
}

// autoderefPointer walks past any number of pointer indirections in pl
// (spec §4.6 "selectors auto-dereference through any number of pointer
// hops"), used before field/method selectors and before indexing a
// pointer-to-array/map value.
func (p *Parser) autoderefPointer(pl place, line int) place {
	for {
		ut := pl.typ.Underlying()
		if ut.Kind != types.Pointer && ut.Kind != types.WeakPointer {
			return pl
		}
		pl = p.loadValue(pl, line)
		pl = place{typ: pl.typ, addr: false} // pl now holds a pointer value
		pl = p.derefOnce(pl, line)
	}
}
