package builtin_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/types"
	"github.com/willow-lang/willow/internal/vm"
)

func pushFormat(s string) code.Instr {
	return code.Instr{Op: code.PUSH_STRING, Operand: code.Operand{Str: s}, Type: &types.Type{Kind: types.String}}
}

// TestInvalidFormatStringRejectedBeforeOutput exercises spec §8 invariant
// 10: an unsupported conversion character fails the whole printf call
// before anything is written, rather than printing the valid prefix and
// then erroring partway through.
func TestInvalidFormatStringRejectedBeforeOutput(t *testing.T) {
	instrs := []code.Instr{
		pushFormat("ok %q bad"),
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinPrintf, Int: 0}},
		{Op: code.HALT},
	}
	m := newVM(t)
	f := vm.NewFiber(instrs, 256, nil)
	err := m.Run(f)
	require.Error(t, err)
	var rerr *vm.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Contains(t, rerr.Error(), "Invalid format string")
}

// TestPercentVMatchesPercentSOfRepr exercises spec §8 invariant 10's second
// half: printf's %v conversion on a value is equivalent to printf("%s",
// repr(v)) for that same value. For a bare int slot (no live heap pointer),
// reprSlot's own definition reduces repr(v) to its decimal string, so %v
// of 7 and %s of the literal "7" must render identically.
func TestPercentVMatchesPercentSOfRepr(t *testing.T) {
	sprintfResult := func(instrs []code.Instr) string {
		m := newVM(t)
		f := vm.NewFiber(instrs, 256, nil)
		require.NoError(t, m.Run(f))
		data, err := m.Heap.Deref(f.Reg[vm.RegResult].Ptr)
		require.NoError(t, err)
		return string(data)
	}

	vOut := sprintfResult([]code.Instr{
		pushFormat("%v"),
		{Op: code.PUSH, Operand: code.Operand{Int: 7}, Kind: types.Int64},
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinSprintf, Int: 1}},
		{Op: code.POP_REG, Operand: code.Operand{Int: vm.RegResult}},
		{Op: code.HALT},
	})

	sOut := sprintfResult([]code.Instr{
		pushFormat("%s"),
		pushFormat("7"),
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinSprintf, Int: 1}},
		{Op: code.POP_REG, Operand: code.Operand{Int: vm.RegResult}},
		{Op: code.HALT},
	})

	require.Equal(t, sOut, vOut)
}
