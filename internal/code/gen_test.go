package code_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/difftest"
	"github.com/willow-lang/willow/internal/token"
	"github.com/willow-lang/willow/internal/types"
)

func TestPushDerefFuses(t *testing.T) {
	g := code.NewGenerator()
	g.EmitInt(code.PUSH, 7, 1)
	g.EmitTyped(code.DEREF, types.Int64, nil, 1)

	require.Len(t, g.Instrs, 1)
	require.Equal(t, code.PUSH_DEREF, g.Instrs[0].Op)
	require.Equal(t, code.DEREF, g.Instrs[0].Inline)
	require.Equal(t, int64(7), g.Instrs[0].Operand.Int)
}

func TestSwapAssignFuses(t *testing.T) {
	g := code.NewGenerator()
	g.Emit(code.SWAP, 1)
	g.EmitTyped(code.ASSIGN, types.Int64, nil, 1)

	require.Len(t, g.Instrs, 1)
	require.Equal(t, code.SWAP_ASSIGN, g.Instrs[0].Op)
	require.Equal(t, code.ASSIGN, g.Instrs[0].Inline)
}

func TestSwapChangeRefCntAssignFuses(t *testing.T) {
	g := code.NewGenerator()
	g.Emit(code.SWAP, 1)
	g.EmitTyped(code.CHANGE_REF_CNT_ASSIGN, types.Pointer, nil, 1)

	require.Len(t, g.Instrs, 1)
	require.Equal(t, code.SWAP_ASSIGN, g.Instrs[0].Op)
	require.Equal(t, code.CHANGE_REF_CNT_ASSIGN, g.Instrs[0].Inline)
}

func TestNoFuseAcrossUnrelatedOps(t *testing.T) {
	g := code.NewGenerator()
	g.Emit(code.DUP, 1)
	g.EmitTyped(code.DEREF, types.Int64, nil, 1)

	require.Len(t, g.Instrs, 2)
}

func TestForwardGotoFixup(t *testing.T) {
	g := code.NewGenerator()
	end := g.NewLabel()
	idx := g.EmitGoto(code.GOTO_IF_NOT, end, 1)
	g.Emit(code.NOP, 2)
	g.PlaceLabel(end)

	require.Equal(t, int64(2), g.Instrs[idx].Operand.Int)
}

func TestBackwardGotoResolvesImmediately(t *testing.T) {
	g := code.NewGenerator()
	top := g.NewLabel()
	g.PlaceLabel(top)
	g.Emit(code.NOP, 1)
	idx := g.EmitGoto(code.GOTO, top, 2)

	require.Equal(t, int64(0), g.Instrs[idx].Operand.Int)
}

func TestLoopContextStack(t *testing.T) {
	g := code.NewGenerator()
	brk, cont := g.NewLabel(), g.NewLabel()
	g.PushLoop(brk, cont)

	b, c, ok := g.CurrentLoop()
	require.True(t, ok)
	require.Equal(t, brk, b)
	require.Equal(t, cont, c)

	g.PopLoop()
	_, _, ok = g.CurrentLoop()
	require.False(t, ok)
}

func TestEnterFrameFixup(t *testing.T) {
	g := code.NewGenerator()
	idx := g.EmitEnterFrame(1)
	g.FixEnterFrame(idx, 3, 5)

	require.Equal(t, int32(3), g.Instrs[idx].Operand.A)
	require.Equal(t, int32(5), g.Instrs[idx].Operand.B)
}

func TestDisassembleFormat(t *testing.T) {
	g := code.NewGenerator()
	g.EmitOp(code.BINARY, token.PLUS, types.Int64, 4)
	out := g.Disassemble()

	require.Contains(t, out, "0 4 binary")
	require.Contains(t, out, "+")
	require.Contains(t, out, "int")
}

// TestDisassembleListingMatchesExactly pins the whole multi-line rendering
// for a short instruction sequence, rather than just substrings, using
// difftest.Listing so a mismatch prints a readable diff instead of just
// "strings not equal".
func TestDisassembleListingMatchesExactly(t *testing.T) {
	g := code.NewGenerator()
	g.EmitPushKind(types.Int64, 2, 1)
	g.EmitPushKind(types.Int64, 3, 1)
	g.EmitOp(code.BINARY, token.PLUS, types.Int64, 1)
	g.EmitOp(code.HALT, token.ILLEGAL, 0, 1)

	want := "0 1 push int <2>\n" +
		"1 1 push int <3>\n" +
		"2 1 binary + int\n" +
		"3 1 halt\n"
	difftest.Listing(t, "arithmetic prologue", want, g.Disassemble())
}
