package code

import (
	"github.com/willow-lang/willow/internal/token"
	"github.com/willow-lang/willow/internal/types"
)

// Generator is a flat, append-only instruction buffer the parser emits
// directly into as it recognises each construct: there is no intermediate
// AST or control-flow graph (spec §4.5's single-pass requirement). Forward
// jumps (if/else, short-circuit operators, break/continue before their
// target is known) are handled with a label/fixup scheme instead of the
// teacher's two-pass block-linearization in lang/compiler/compiler.go,
// since that pass assumes a pre-built CFG this design intentionally skips.
type Generator struct {
	Instrs []Instr

	labelTarget map[int]int   // label id -> resolved instruction index, absent if unresolved
	labelFixups map[int][]int // label id -> instruction indices awaiting this label

	nextLabel int
	loops     []loopCtx
}

type loopCtx struct {
	breakLabel, continueLabel int
}

// NewGenerator returns an empty instruction buffer.
func NewGenerator() *Generator {
	return &Generator{
		labelTarget: make(map[int]int),
		labelFixups: make(map[int][]int),
	}
}

// Len returns the number of instructions emitted so far; it also serves as
// "the program counter of the next instruction".
func (g *Generator) Len() int { return len(g.Instrs) }

func (g *Generator) append(in Instr) int {
	g.Instrs = append(g.Instrs, in)
	idx := len(g.Instrs) - 1
	g.fuse()
	return idx
}

// fuse implements the peephole inlining pass (spec §4.5): PUSH immediately
// followed by DEREF collapses to PUSH_DEREF; SWAP immediately followed by
// ASSIGN or CHANGE_REF_CNT_ASSIGN collapses to SWAP_ASSIGN. Both fusions
// keep the leading instruction's operand and record the folded opcode in
// Inline, purely for -asm's "; DEREF" style annotation.
func (g *Generator) fuse() {
	n := len(g.Instrs)
	if n < 2 {
		return
	}
	prev := &g.Instrs[n-2]
	cur := &g.Instrs[n-1]

	switch {
	case prev.Op == PUSH && cur.Op == DEREF:
		prev.Op = PUSH_DEREF
		prev.Inline = DEREF
		prev.Kind = cur.Kind
		prev.Type = cur.Type
		g.Instrs = g.Instrs[:n-1]
	case prev.Op == SWAP && (cur.Op == ASSIGN || cur.Op == CHANGE_REF_CNT_ASSIGN):
		prev.Op = SWAP_ASSIGN
		prev.Inline = cur.Op
		prev.Kind = cur.Kind
		prev.Type = cur.Type
		g.Instrs = g.Instrs[:n-1]
	}
}

// Emit appends a plain opcode with no operand.
func (g *Generator) Emit(op Opcode, line int) int {
	return g.append(Instr{Op: op, Line: line})
}

// EmitInt appends an opcode with an integer operand (e.g. PUSH, PUSH_LOCAL,
// POP_REG's register index).
func (g *Generator) EmitInt(op Opcode, v int64, line int) int {
	return g.append(Instr{Op: op, Operand: Operand{Int: v}, Line: line})
}

// EmitReal appends PUSH with a real operand, tagged Real64 so the VM's PUSH
// handler renders it as a RealSlot rather than falling through to its
// integer default.
func (g *Generator) EmitReal(v float64, line int) int {
	return g.append(Instr{Op: PUSH, Kind: types.Real64, Operand: Operand{Real: v}, Line: line})
}

// EmitPushKind appends PUSH carrying an explicit kind tag alongside its
// integer operand, for literal constants whose bit pattern must be read
// back as unsigned (PUSH itself stores every non-real literal in the same
// int64 operand field; only the kind tag tells the VM's PUSH handler to
// reinterpret those bits as a uint64 instead of an int64).
func (g *Generator) EmitPushKind(k types.Kind, v int64, line int) int {
	return g.append(Instr{Op: PUSH, Kind: k, Operand: Operand{Int: v}, Line: line})
}

// EmitTyped appends an opcode carrying a type-kind tag and type reference
// (GET_FIELD_PTR, ASSIGN, ASSERT_TYPE, ASSERT_RANGE, etc).
func (g *Generator) EmitTyped(op Opcode, k types.Kind, t *types.Type, line int) int {
	return g.append(Instr{Op: op, Kind: k, Type: t, Line: line})
}

// EmitIntTyped appends an opcode carrying both an integer operand and a
// type reference: PUSH_LOCAL_PTR_ZERO (local slot index plus the stored
// type, for sizing the chunk it allocates) and GET_ARRAY_PTR (static
// length, or -1 for "use the string's stored length", plus the element
// type).
func (g *Generator) EmitIntTyped(op Opcode, v int64, t *types.Type, line int) int {
	return g.append(Instr{Op: op, Operand: Operand{Int: v}, Type: t, Line: line})
}

// EmitOp emits UNARY or BINARY, tagged with the source operator token and
// the operand type kind (spec §4.7 "Arithmetic: UNARY, BINARY parameterised
// by token kind and the operand's type kind").
func (g *Generator) EmitOp(op Opcode, tok token.Token, k types.Kind, line int) int {
	return g.append(Instr{Op: op, Tok: tok, Kind: k, Line: line})
}

// EmitBuiltin appends CALL_BUILTIN dispatching on selector b.
func (g *Generator) EmitBuiltin(b Builtin, line int) int {
	return g.append(Instr{Op: CALL_BUILTIN, Operand: Operand{Builtin: b}, Line: line})
}

// EmitCallBuiltin appends CALL_BUILTIN carrying both a selector and an
// argument count, for builtins whose stack ABI is variadic (printf's
// conversion list, make(fiber, entry, args...), sort's comparator arity).
func (g *Generator) EmitCallBuiltin(b Builtin, argCount int64, t *types.Type, line int) int {
	return g.append(Instr{Op: CALL_BUILTIN, Operand: Operand{Builtin: b, Int: argCount}, Type: t, Line: line})
}

// EmitString appends PUSH_STRING, which heap-allocates a fresh chunk from
// the embedded literal bytes each time it executes (spec §4.9: a string
// literal has no constant pool, so repeated execution — e.g. inside a
// loop — simply reallocates).
func (g *Generator) EmitString(s string, line int) int {
	return g.append(Instr{Op: PUSH_STRING, Operand: Operand{Str: s}, Line: line})
}

// EmitPair appends an opcode with a packed pair of 32-bit operands, used by
// ENTER_FRAME (param-slot count, local-slot count) and similar instructions.
func (g *Generator) EmitPair(op Opcode, a, b int32, line int) int {
	return g.append(Instr{Op: op, Operand: Operand{A: a, B: b}, Line: line})
}

// NewLabel allocates a fresh, as-yet-unplaced jump target.
func (g *Generator) NewLabel() int {
	id := g.nextLabel
	g.nextLabel++
	return id
}

// EmitGoto appends a GOTO-family instruction targeting label, which may not
// be placed yet: if unresolved, the instruction's operand is recorded for a
// fixup once PlaceLabel is called.
func (g *Generator) EmitGoto(op Opcode, label int, line int) int {
	idx := g.append(Instr{Op: op, Line: line})
	if target, ok := g.labelTarget[label]; ok {
		g.Instrs[idx].Operand.Int = int64(target)
	} else {
		g.labelFixups[label] = append(g.labelFixups[label], idx)
	}
	return idx
}

// PlaceLabel marks label as resolving to the next instruction to be
// emitted, patching every GOTO already emitted against it.
func (g *Generator) PlaceLabel(label int) {
	target := len(g.Instrs)
	g.labelTarget[label] = target
	for _, idx := range g.labelFixups[label] {
		g.Instrs[idx].Operand.Int = int64(target)
	}
	delete(g.labelFixups, label)
}

// PushLoop registers the break/continue targets for a loop body being
// generated, so nested break/continue statements can find them without the
// parser threading loop context through every recursive call.
func (g *Generator) PushLoop(breakLabel, continueLabel int) {
	g.loops = append(g.loops, loopCtx{breakLabel, continueLabel})
}

// PopLoop discards the innermost loop context on exiting its body.
func (g *Generator) PopLoop() {
	g.loops = g.loops[:len(g.loops)-1]
}

// CurrentLoop returns the break/continue labels of the innermost open loop.
func (g *Generator) CurrentLoop() (breakLabel, continueLabel int, ok bool) {
	if len(g.loops) == 0 {
		return 0, 0, false
	}
	top := g.loops[len(g.loops)-1]
	return top.breakLabel, top.continueLabel, true
}

// EmitEnterFrame emits the function prolog (spec §4.5 "Function prolog").
// The real slot counts are usually unknown until the body has been fully
// parsed (locals keep being allocated), so the caller patches the
// instruction via FixEnterFrame once the final layout is known.
func (g *Generator) EmitEnterFrame(line int) int {
	return g.EmitPair(ENTER_FRAME, 0, 0, line)
}

// FixEnterFrame back-patches a previously emitted ENTER_FRAME with the
// final parameter-slot and local-slot counts.
func (g *Generator) FixEnterFrame(idx int, paramSlots, localSlots int32) {
	g.Instrs[idx].Operand.A = paramSlots
	g.Instrs[idx].Operand.B = localSlots
}

// EmitLeaveFrame emits the function epilog's frame teardown (spec §4.5
// "Epilog emits LEAVE_FRAME plus RETURN <param-slot-count>").
func (g *Generator) EmitLeaveFrame(line int) int {
	return g.Emit(LEAVE_FRAME, line)
}

// EmitReturn emits RETURN with the parameter-slot count to pop and a
// sentinel distinguishing a normal return from fiber death or a VM-boundary
// return (spec §4.7).
func (g *Generator) EmitReturn(paramSlots int32, sentinel int32, line int) int {
	return g.EmitPair(RETURN, paramSlots, sentinel, line)
}
