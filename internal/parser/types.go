package parser

import (
	"github.com/willow-lang/willow/internal/ident"
	"github.com/willow-lang/willow/internal/token"
	"github.com/willow-lang/willow/internal/types"
)

// parseType recognises one type expression (spec §4.6 grammar): struct,
// interface, map and array forms are all built greedily, field by field, in
// one pass, since there is no separate type-checking pass to revisit them
// later.
func (p *Parser) parseType() *types.Type {
	tok, v := p.peek()
	switch tok {
	case token.STR:
		p.lex.Advance()
		return p.stringType

	case token.IDENT:
		id, ok := p.idents.Lookup(v.Raw)
		if !ok || id.Kind != ident.TypeKind {
			p.fail("%s is not a type", v.Raw)
		}
		p.lex.Advance()
		return id.Type

	case token.CARET:
		p.lex.Advance()
		base := p.parseType()
		return p.types.PointerTo(base)

	case token.WEAK:
		p.lex.Advance()
		p.expect(token.CARET)
		base := p.parseType()
		return p.types.WeakPointerTo(base)

	case token.LBRACK:
		p.lex.Advance()
		if _, ok := p.accept(token.RBRACK); ok {
			base := p.parseType()
			return p.types.DynArrayOf(base)
		}
		lit := p.expect(token.INT)
		p.expect(token.RBRACK)
		base := p.parseType()
		return p.types.ArrayOf(base, int(lit.Int))

	case token.MAP:
		p.lex.Advance()
		p.expect(token.LBRACK)
		key := p.parseType()
		p.expect(token.RBRACK)
		val := p.parseType()
		return p.types.MapOf(key, val)

	case token.STRUCT:
		p.lex.Advance()
		p.expect(token.LBRACE)
		st := p.types.NewStruct(p.idents.CurrentBlock())
		for !p.at(token.RBRACE) {
			names := []string{p.expect(token.IDENT).Raw}
			for {
				if _, ok := p.accept(token.COMMA); !ok {
					break
				}
				names = append(names, p.expect(token.IDENT).Raw)
			}
			p.expect(token.COLON)
			ft := p.parseType()
			for _, n := range names {
				st.AddField(n, ft)
			}
			p.accept(token.SEMI)
		}
		p.expect(token.RBRACE)
		return st

	case token.INTERFACE:
		p.lex.Advance()
		p.expect(token.LBRACE)
		it := p.types.NewInterface(p.idents.CurrentBlock())
		for !p.at(token.RBRACE) {
			name := p.expect(token.IDENT).Raw
			sig := p.parseSignature()
			it.AddMethod(name, p.types.NewFunction(sig))
			p.accept(token.SEMI)
		}
		p.expect(token.RBRACE)
		return it

	case token.FN:
		p.lex.Advance()
		sig := p.parseSignature()
		return p.types.NewFunction(sig)
	}

	p.fail("expected a type, found %s", tok.GoString())
	return nil
}

// parseSignature parses a function type's parameter list and optional
// result type, shared by fn declarations, fn-typed variables and fn literals
// (spec §4.6 "fn(params): result").
func (p *Parser) parseSignature() *types.Signature {
	sig := &types.Signature{}
	p.expect(token.LPAREN)
	for !p.at(token.RPAREN) {
		names := []string{p.expect(token.IDENT).Raw}
		for {
			if _, ok := p.accept(token.COMMA); !ok {
				break
			}
			names = append(names, p.expect(token.IDENT).Raw)
		}
		p.expect(token.COLON)
		pt := p.parseType()
		for _, n := range names {
			sig.Params = append(sig.Params, types.Param{Name: n, Type: pt})
		}
		if _, ok := p.accept(token.COMMA); !ok {
			break
		}
	}
	p.expect(token.RPAREN)
	if _, ok := p.accept(token.COLON); ok {
		sig.ResultType = p.parseType()
		sig.NumResults = 1
	}
	return sig
}
