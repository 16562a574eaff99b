package parser

import (
	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/token"
	"github.com/willow-lang/willow/internal/types"
)

// builtinNames lists every identifier the language reserves for a CALL_BUILTIN
// dispatch target (spec §4.9). None of these are lexical keywords (the
// lexer's keyword table has no entry for "make"/"len"/"printf"/...), so
// parsePrimary recognises them by name before falling back to an ordinary
// identifier lookup.
var builtinNames = map[string]bool{
	"make": true, "len": true, "sizeof": true,
	"copy": true, "append": true, "insert": true, "delete": true, "slice": true,
	"sort": true, "sortfast": true,
	"resume": true, "exit": true, "keys": true,
	"printf": true, "sprintf": true, "fprintf": true,
	"scanf": true, "fscanf": true, "sscanf": true,
	"real": true, "round": true, "trunc": true, "ceil": true, "floor": true,
	"abs": true, "fabs": true, "sqrt": true, "sin": true, "cos": true,
	"atan": true, "atan2": true, "exp": true, "log": true,
}

// parseBuiltinCall parses and emits one builtin invocation, already past the
// leading identifier. Each arm is grounded on the matching internal/builtin
// registration's exact stack ABI (spec §4.9).
func (p *Parser) parseBuiltinCall(name string, line int) place {
	p.expect(token.LPAREN)

	switch name {
	case "make":
		return p.parseMake(line)

	case "len":
		arg := p.arg(line)
		ut := arg.typ.Underlying()
		var t *types.Type
		switch ut.Kind {
		case types.Map:
			t = arg.typ
		case types.StaticArray, types.DynArray:
			t = ut.Base
		case types.String:
			t = p.charType
		default:
			p.fail("len: type %s has no length", arg.typ.String())
		}
		p.closeArgs()
		p.gen.EmitCallBuiltin(code.BuiltinLen, 0, t, line)
		return place{typ: p.primType(types.Int64)}

	case "sizeof":
		typ := p.parseType()
		p.closeArgs()
		p.gen.EmitCallBuiltin(code.BuiltinSizeof, 0, typ, line)
		return place{typ: p.primType(types.Int64)}

	case "copy":
		arg := p.arg(line)
		p.closeArgs()
		p.gen.EmitCallBuiltin(code.BuiltinCopy, 0, arg.typ, line)
		return place{typ: arg.typ}

	case "append":
		arg := p.arg(line)
		p.expect(token.COMMA)
		item := p.arg(line)
		_ = item
		p.closeArgs()
		p.gen.EmitCallBuiltin(code.BuiltinAppend, 0, arg.typ.Underlying().Base, line)
		return place{typ: arg.typ}

	case "insert":
		arg := p.arg(line)
		p.expect(token.COMMA)
		p.arg(line)
		p.expect(token.COMMA)
		p.arg(line)
		p.closeArgs()
		p.gen.EmitCallBuiltin(code.BuiltinInsert, 0, arg.typ.Underlying().Base, line)
		return place{typ: arg.typ}

	case "delete":
		arg := p.arg(line)
		p.expect(token.COMMA)
		p.arg(line)
		p.closeArgs()
		p.gen.EmitCallBuiltin(code.BuiltinDelete, 0, arg.typ.Underlying().Base, line)
		return place{typ: arg.typ}

	case "slice":
		arg := p.arg(line)
		p.expect(token.COMMA)
		p.arg(line)
		p.expect(token.COMMA)
		p.arg(line)
		p.closeArgs()
		p.gen.EmitCallBuiltin(code.BuiltinSlice, 0, arg.typ.Underlying().Base, line)
		return place{typ: arg.typ}

	case "sort":
		arr := p.arg(line)
		p.expect(token.COMMA)
		cmp := p.parseExpr()
		cmp = p.loadValue(cmp, line)
		_ = cmp
		p.closeArgs()
		p.gen.EmitCallBuiltin(code.BuiltinSort, 0, arr.typ.Underlying().Base, line)
		return arr

	case "sortfast":
		arr := p.arg(line)
		p.closeArgs()
		p.gen.EmitCallBuiltin(code.BuiltinSortFast, 0, arr.typ.Underlying().Base, line)
		return arr

	case "resume":
		if p.at(token.RPAREN) {
			p.closeArgs()
			p.gen.EmitCallBuiltin(code.BuiltinResume, 0, nil, line)
		} else {
			p.arg(line)
			p.closeArgs()
			p.gen.EmitCallBuiltin(code.BuiltinResume, 1, nil, line)
		}
		return place{typ: p.voidResult()}

	case "exit":
		if !p.at(token.RPAREN) {
			p.arg(line)
			p.gen.Emit(code.POP, line)
		}
		p.closeArgs()
		p.gen.EmitBuiltin(code.BuiltinExit, line)
		return place{typ: p.voidResult()}

	case "keys":
		m := p.arg(line)
		p.closeArgs()
		ut := m.typ.Underlying()
		p.gen.EmitCallBuiltin(code.BuiltinKeys, 0, ut.Key, line)
		return place{typ: p.types.DynArrayOf(ut.Key)}

	case "printf", "sprintf", "fprintf":
		return p.parsePrintfFamily(name, line)

	case "scanf", "fscanf", "sscanf":
		return p.parseScanfFamily(name, line)

	default:
		return p.parseMathCall(name, line)
	}
}

// arg parses one expression argument, loads its value and returns its place.
func (p *Parser) arg(line int) place {
	pl := p.parseExpr()
	return p.loadValue(pl, line)
}

func (p *Parser) closeArgs() { p.expect(token.RPAREN) }

// parseMake dispatches make(...)'s three forms: map, fiber and array (spec
// §4.9 "make"). A fiber entry whose first parameter is ^fiber has the
// currently-running fiber's handle auto-prepended to the explicit argument
// list (spec §4.9 "a function... may declare a leading ^fiber parameter").
func (p *Parser) parseMake(line int) place {
	typ := p.parseType()
	ut := typ.Underlying()

	switch ut.Kind {
	case types.Map:
		for !p.at(token.RPAREN) {
			p.expect(token.COMMA)
		}
		p.closeArgs()
		p.gen.EmitCallBuiltin(code.BuiltinMake, 0, typ, line)
		return place{typ: typ}

	case types.Fiber:
		p.expect(token.COMMA)
		entry := p.parseExpr()
		if entry.typ.Underlying().Kind != types.Function {
			p.fail("make(fiber, ...): second argument must be a function")
		}
		sig := entry.typ.Underlying().Sig
		entry = p.loadValue(entry, line)

		needsSelf := false
		if len(sig.Params) > 0 {
			put := sig.Params[0].Type.Underlying()
			if put.Kind == types.Pointer && put.Base != nil && put.Base.Underlying().Kind == types.Fiber {
				needsSelf = true
			}
		}
		n := 0
		if needsSelf {
			p.gen.EmitBuiltin(code.BuiltinSelf, line)
			n++
		}
		for !p.at(token.RPAREN) {
			p.expect(token.COMMA)
			if p.at(token.RPAREN) {
				break
			}
			p.arg(line)
			n++
		}
		p.closeArgs()
		p.gen.EmitCallBuiltin(code.BuiltinMake, int64(n), typ, line)
		return place{typ: typ}

	default: // array
		p.expect(token.COMMA)
		count := p.arg(line)
		_ = count
		p.closeArgs()
		p.gen.EmitCallBuiltin(code.BuiltinMake, 0, ut.Base, line)
		return place{typ: typ}
	}
}

// parsePrintfFamily covers printf/sprintf/fprintf, all of which share the
// [formatPtr, arg0...argN-1] stack ABI with an explicit argument count
// (spec §4.9 "printf").
func (p *Parser) parsePrintfFamily(name string, line int) place {
	var leading place
	hasLeading := name == "fprintf"
	if hasLeading {
		leading = p.arg(line)
		_ = leading
		p.expect(token.COMMA)
	}
	fmtArg := p.arg(line)
	if fmtArg.typ.Underlying().Kind != types.String {
		p.fail("%s: format argument must be a string", name)
	}
	n := 0
	for !p.at(token.RPAREN) {
		p.expect(token.COMMA)
		if p.at(token.RPAREN) {
			break
		}
		p.arg(line)
		n++
	}
	p.closeArgs()

	sel := code.BuiltinPrintf
	result := p.voidResult()
	switch name {
	case "sprintf":
		sel = code.BuiltinSprintf
		result = p.stringType
	case "fprintf":
		sel = code.BuiltinFprintf
	}
	p.gen.EmitCallBuiltin(sel, int64(n), nil, line)
	return place{typ: result}
}

// parseScanfFamily covers scanf/fscanf/sscanf: each destination argument
// must be addressable (spec §4.9 "scanf").
func (p *Parser) parseScanfFamily(name string, line int) place {
	if name == "fscanf" {
		p.arg(line)
		p.expect(token.COMMA)
	}
	if name == "sscanf" {
		src := p.arg(line)
		if src.typ.Underlying().Kind != types.String {
			p.fail("sscanf: source argument must be a string")
		}
		p.expect(token.COMMA)
	}
	n := 0
	for !p.at(token.RPAREN) {
		if n > 0 {
			p.expect(token.COMMA)
			if p.at(token.RPAREN) {
				break
			}
		}
		dst := p.parsePostfix(p.parsePrimary())
		if !dst.addr {
			p.fail("%s: destination argument %d is not addressable", name, n+1)
		}
		n++
	}
	p.closeArgs()

	sel := code.BuiltinScanf
	switch name {
	case "fscanf":
		sel = code.BuiltinFscanf
	case "sscanf":
		sel = code.BuiltinSscanf
	}
	p.gen.EmitCallBuiltin(sel, int64(n), nil, line)
	return place{typ: p.primType(types.Int64)}
}

// mathBuiltins maps a math builtin's name to its selector and result kind
// (spec §4.9's math library; real64 for every transcendental function
// except abs, which preserves the operand's own numeric kind).
var mathBuiltins = map[string]code.Builtin{
	"real": code.BuiltinReal, "round": code.BuiltinRound, "trunc": code.BuiltinTrunc,
	"ceil": code.BuiltinCeil, "floor": code.BuiltinFloor, "abs": code.BuiltinAbs,
	"fabs": code.BuiltinFabs, "sqrt": code.BuiltinSqrt, "sin": code.BuiltinSin,
	"cos": code.BuiltinCos, "atan": code.BuiltinAtan, "exp": code.BuiltinExp,
	"log": code.BuiltinLog,
}

func (p *Parser) parseMathCall(name string, line int) place {
	sel, ok := mathBuiltins[name]
	if name == "atan2" {
		x := p.arg(line)
		p.expect(token.COMMA)
		p.arg(line)
		p.closeArgs()
		p.gen.EmitBuiltin(code.BuiltinAtan2, line)
		_ = x
		return place{typ: p.primType(types.Real64)}
	}
	if !ok {
		p.fail("unknown builtin %s", name)
	}
	arg := p.arg(line)
	p.closeArgs()
	p.gen.EmitBuiltin(sel, line)
	if name == "abs" {
		return place{typ: arg.typ}
	}
	return place{typ: p.primType(types.Real64)}
}
