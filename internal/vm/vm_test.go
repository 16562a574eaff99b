package vm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/token"
	"github.com/willow-lang/willow/internal/types"
	"github.com/willow-lang/willow/internal/vm"
)

func newTable() *types.Table { return types.NewTable() }

// TestArithmeticAndHalt builds "push 2; push 3; add; halt" directly as an
// instruction slice and checks the result left on the stack.
func TestArithmeticAndHalt(t *testing.T) {
	instrs := []code.Instr{
		{Op: code.PUSH, Operand: code.Operand{Int: 2}, Kind: types.Int64},
		{Op: code.PUSH, Operand: code.Operand{Int: 3}, Kind: types.Int64},
		{Op: code.BINARY, Tok: token.PLUS, Kind: types.Int64},
		{Op: code.POP_REG, Operand: code.Operand{Int: vm.RegResult}},
		{Op: code.HALT},
	}
	m := vm.New(nil)
	defer m.Close()
	f := vm.NewFiber(instrs, 256, nil)
	require.NoError(t, m.Run(f))
	require.Equal(t, int64(5), f.Reg[vm.RegResult].I)
}

// TestCallAndReturn exercises ENTER_FRAME/CALL/RETURN end to end: a two
// instruction "function" that doubles its single argument, called once
// from the root fiber.
func TestCallAndReturn(t *testing.T) {
	// Layout. Reg is fiber-wide, not frame-local, so the callee's own
	// POP_REG leaves the result visible to the caller across the RETURN
	// without the caller needing to pop anything off the stack itself:
	//   0: PUSH 21            (argument)
	//   1: CALL -> 3
	//   2: HALT
	//   3: ENTER_FRAME params=1 locals=0
	//   4: PUSH_LOCAL -1      (the argument, addressed relative to Base)
	//   5: PUSH 2
	//   6: BINARY *
	//   7: POP_REG RegResult
	//   8: RETURN
	instrs := []code.Instr{
		{Op: code.PUSH, Operand: code.Operand{Int: 21}, Kind: types.Int64},
		{Op: code.CALL, Operand: code.Operand{Int: 3}},
		{Op: code.HALT},
		{Op: code.ENTER_FRAME, Operand: code.Operand{A: 1, B: 0}},
		{Op: code.PUSH_LOCAL, Operand: code.Operand{Int: -1}},
		{Op: code.PUSH, Operand: code.Operand{Int: 2}, Kind: types.Int64},
		{Op: code.BINARY, Tok: token.STAR, Kind: types.Int64},
		{Op: code.POP_REG, Operand: code.Operand{Int: vm.RegResult}},
		{Op: code.RETURN},
	}
	m := vm.New(nil)
	defer m.Close()
	f := vm.NewFiber(instrs, 256, nil)
	require.NoError(t, m.Run(f))
	require.Equal(t, int64(42), f.Reg[vm.RegResult].I)
}

// TestPointerDerefAssignRoundTrip allocates addressable local storage via
// PUSH_LOCAL_PTR_ZERO, writes through it with ASSIGN, and reads the value
// back with DEREF.
func TestPointerDerefAssignRoundTrip(t *testing.T) {
	tt := newTable()
	intType := tt.Primitive(types.Int64)

	instrs := []code.Instr{
		{Op: code.ENTER_FRAME, Operand: code.Operand{A: 0, B: 1}},
		{Op: code.PUSH_LOCAL_PTR_ZERO, Operand: code.Operand{Int: 0}, Type: intType},
		{Op: code.PUSH, Operand: code.Operand{Int: 99}, Kind: types.Int64},
		{Op: code.ASSIGN, Kind: types.Int64},
		{Op: code.PUSH_LOCAL, Operand: code.Operand{Int: 0}},
		{Op: code.DEREF, Kind: types.Int64},
		{Op: code.POP_REG, Operand: code.Operand{Int: vm.RegResult}},
		{Op: code.HALT},
	}
	m := vm.New(nil)
	defer m.Close()
	f := vm.NewFiber(instrs, 256, nil)
	require.NoError(t, m.Run(f))
	require.Equal(t, int64(99), f.Reg[vm.RegResult].I)
}

// TestStackOverflowReported checks that exceeding the fiber's stack with an
// unbounded PUSH loop surfaces a RuntimeError rather than a Go panic.
func TestStackOverflowReported(t *testing.T) {
	instrs := []code.Instr{
		{Op: code.PUSH, Operand: code.Operand{Int: 1}, Kind: types.Int64},
		{Op: code.GOTO, Operand: code.Operand{Int: 0}},
	}
	m := vm.New(nil)
	defer m.Close()
	f := vm.NewFiber(instrs, 128, nil)
	err := m.Run(f)
	require.Error(t, err)
}

// TestDivisionByZeroIsRuntimeError exercises the BINARY int path's explicit
// zero check rather than letting Go panic on the underlying division.
func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	instrs := []code.Instr{
		{Op: code.PUSH, Operand: code.Operand{Int: 10}, Kind: types.Int64},
		{Op: code.PUSH, Operand: code.Operand{Int: 0}, Kind: types.Int64},
		{Op: code.BINARY, Tok: token.SLASH, Kind: types.Int64},
		{Op: code.HALT},
	}
	m := vm.New(nil)
	defer m.Close()
	f := vm.NewFiber(instrs, 256, nil)
	err := m.Run(f)
	require.Error(t, err)
	var rerr *vm.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Contains(t, rerr.Error(), "Division by zero")
}

// TestFrameEscapeDetected exercises spec §8 invariant 3: a frame whose ref
// count is nonzero at LEAVE_FRAME/RETURN time — meaning a pointer into one
// of its locals escaped — must fail rather than silently return, since the
// local storage it points at is about to be reused by the next frame.
func TestFrameEscapeDetected(t *testing.T) {
	instrs := []code.Instr{
		{Op: code.ENTER_FRAME, Operand: code.Operand{A: 0, B: 1}},
		{Op: code.CHANGE_REF_CNT_LOCAL, Operand: code.Operand{Int: 1}},
		{Op: code.RETURN},
	}
	m := vm.New(nil)
	defer m.Close()
	f := vm.NewFiber(instrs, 256, nil)
	err := m.Run(f)
	require.Error(t, err)
	var rerr *vm.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Contains(t, rerr.Error(), "Pointer to a local variable escapes from the function")
}

// TestFrameRefCntZeroReturnsCleanly is the mirror case: a frame that never
// recorded an escaping pointer returns normally, confirming the check
// above does not fire spuriously on the common path.
func TestFrameRefCntZeroReturnsCleanly(t *testing.T) {
	instrs := []code.Instr{
		{Op: code.ENTER_FRAME, Operand: code.Operand{A: 0, B: 1}},
		{Op: code.RETURN},
	}
	m := vm.New(nil)
	defer m.Close()
	f := vm.NewFiber(instrs, 256, nil)
	require.NoError(t, m.Run(f))
	require.False(t, f.Alive)
}
