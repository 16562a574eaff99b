package builtin_test

import (
	"encoding/binary"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willow-lang/willow/internal/builtin"
	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/types"
	"github.com/willow-lang/willow/internal/vm"
)

func newVM(t *testing.T) *vm.VM {
	t.Helper()
	m := vm.New(nil)
	builtin.RegisterAll(m)
	t.Cleanup(m.Close)
	return m
}

// TestMakeAppendLenDynArray exercises make/append/len on a []int, driving
// each builtin directly through CALL_BUILTIN instructions.
func TestMakeAppendLenDynArray(t *testing.T) {
	tt := types.NewTable()
	intType := tt.Primitive(types.Int64)
	arrType := tt.DynArrayOf(intType)

	m := newVM(t)
	instrs := []code.Instr{
		{Op: code.PUSH, Operand: code.Operand{Int: 0}, Kind: types.Int64},
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinMake}, Type: arrType},
		{Op: code.PUSH, Operand: code.Operand{Int: 7}, Kind: types.Int64},
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinAppend}, Type: intType},
		{Op: code.PUSH, Operand: code.Operand{Int: 8}, Kind: types.Int64},
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinAppend}, Type: intType},
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinLen}, Type: intType},
		{Op: code.POP_REG, Operand: code.Operand{Int: vm.RegResult}},
		{Op: code.HALT},
	}
	f := vm.NewFiber(instrs, 256, nil)
	require.NoError(t, m.Run(f))
	require.Equal(t, int64(2), f.Reg[vm.RegResult].I)
}

// TestMapPutGet exercises GET_MAP_PTR's create-if-missing behavior: write
// through the node it returns, then read the same node back for the same
// key.
func TestMapPutGet(t *testing.T) {
	tt := types.NewTable()
	intType := tt.Primitive(types.Int64)
	mapType := tt.MapOf(intType, intType)

	m := newVM(t)
	instrs := []code.Instr{
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinMake}, Type: mapType},
		{Op: code.DUP},
		{Op: code.PUSH, Operand: code.Operand{Int: 5}, Kind: types.Int64}, // key
		{Op: code.GET_MAP_PTR, Type: mapType},
		{Op: code.PUSH, Operand: code.Operand{Int: 123}, Kind: types.Int64},
		{Op: code.ASSIGN, Kind: types.Int64},
		{Op: code.PUSH, Operand: code.Operand{Int: 5}, Kind: types.Int64}, // same key again
		{Op: code.GET_MAP_PTR, Type: mapType},
		{Op: code.DEREF, Kind: types.Int64},
		{Op: code.POP_REG, Operand: code.Operand{Int: vm.RegResult}},
		{Op: code.HALT},
	}
	f := vm.NewFiber(instrs, 256, nil)
	require.NoError(t, m.Run(f))
	require.Equal(t, int64(123), f.Reg[vm.RegResult].I)
}

// TestAbs checks that the abs builtin round-trips through the fiber stack
// correctly, turning -9 into 9.
func TestAbs(t *testing.T) {
	m := newVM(t)
	instrs := []code.Instr{
		{Op: code.PUSH, Operand: code.Operand{Int: -9}, Kind: types.Int64},
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinAbs}},
		{Op: code.POP_REG, Operand: code.Operand{Int: vm.RegResult}},
		{Op: code.HALT},
	}
	f := vm.NewFiber(instrs, 256, nil)
	require.NoError(t, m.Run(f))
	require.Equal(t, int64(9), f.Reg[vm.RegResult].I)
}

// TestFiberResumeRunsChildToCompletion exercises make(fiber,...) and
// resume(): the child fiber writes through a pointer argument, then calls
// exit, after which the parent observes the write.
func TestFiberResumeRunsChildToCompletion(t *testing.T) {
	tt := types.NewTable()
	intType := tt.Primitive(types.Int64)

	// Parent code runs first, starting at index 0 (a fresh fiber's IP
	// starts at 0); the child's entry point is the index just past it.
	//   0: ENTER_FRAME params=0 locals=1
	//   1: PUSH 9                    (child entry point, see below)
	//   2: PUSH_LOCAL_PTR_ZERO 0     (the arg: address of local int x)
	//   3: CALL_BUILTIN make(fiber, argcount=1)  -> fiber handle
	//   4: CALL_BUILTIN resume(argcount=1)       -> runs child to exit()
	//   5: PUSH_LOCAL 0
	//   6: DEREF
	//   7: POP_REG RegResult
	//   8: HALT
	//   9: ENTER_FRAME params=1 locals=0          (child, shares this code
	//  10: PUSH_LOCAL -1                           buffer with its parent,
	//  11: PUSH 42                                 spec §4.9 "a child fiber
	//  12: ASSIGN                                  shares the code buffer...
	//  13: CALL_BUILTIN exit                       with its parent")
	//  14: RETURN
	fiberType := &types.Type{Kind: types.Fiber}
	const childEntry = 9
	instrs := []code.Instr{
		{Op: code.ENTER_FRAME, Operand: code.Operand{A: 0, B: 1}},
		{Op: code.PUSH, Operand: code.Operand{Int: childEntry}, Kind: types.Int64},
		{Op: code.PUSH_LOCAL_PTR_ZERO, Operand: code.Operand{Int: 0}, Type: intType},
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinMake, Int: 1}, Type: fiberType},
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinResume, Int: 1}},
		{Op: code.PUSH_LOCAL, Operand: code.Operand{Int: 0}},
		{Op: code.DEREF, Kind: types.Int64},
		{Op: code.POP_REG, Operand: code.Operand{Int: vm.RegResult}},
		{Op: code.HALT},

		{Op: code.ENTER_FRAME, Operand: code.Operand{A: 1, B: 0}},
		{Op: code.PUSH_LOCAL, Operand: code.Operand{Int: -1}},
		{Op: code.PUSH, Operand: code.Operand{Int: 42}, Kind: types.Int64},
		{Op: code.ASSIGN, Kind: types.Int64},
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinExit}},
		{Op: code.RETURN},
	}
	m := newVM(t)
	f := vm.NewFiber(instrs, 512, nil)
	require.NoError(t, m.Run(f))
	require.Equal(t, int64(42), f.Reg[vm.RegResult].I)
}

// TestKeysIsPermutationOfInsertedKeys exercises spec §8 invariant 8: keys()
// returns a dynamic array whose length equals the map's size and whose
// contents are a permutation of the keys actually inserted. Each write
// re-DUPs the map handle first since GET_MAP_PTR mutates its base operand
// in place into the node pointer it returns (see TestMapPutGet above).
func TestKeysIsPermutationOfInsertedKeys(t *testing.T) {
	tt := types.NewTable()
	intType := tt.Primitive(types.Int64)
	mapType := tt.MapOf(intType, intType)

	put := func(key, val int64) []code.Instr {
		return []code.Instr{
			{Op: code.DUP},
			{Op: code.PUSH, Operand: code.Operand{Int: key}, Kind: types.Int64},
			{Op: code.GET_MAP_PTR, Type: mapType},
			{Op: code.PUSH, Operand: code.Operand{Int: val}, Kind: types.Int64},
			{Op: code.ASSIGN, Kind: types.Int64},
		}
	}

	instrs := []code.Instr{
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinMake}, Type: mapType},
	}
	instrs = append(instrs, put(1, 10)...)
	instrs = append(instrs, put(2, 20)...)
	instrs = append(instrs, put(3, 30)...)
	instrs = append(instrs,
		code.Instr{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinKeys}},
		code.Instr{Op: code.POP_REG, Operand: code.Operand{Int: vm.RegResult}},
		code.Instr{Op: code.HALT},
	)

	m := newVM(t)
	f := vm.NewFiber(instrs, 256, nil)
	require.NoError(t, m.Run(f))

	data, err := m.Heap.Deref(f.Reg[vm.RegResult].Ptr)
	require.NoError(t, err)
	require.Len(t, data, 3*8, "one 8-byte key per inserted entry")

	got := make([]int64, 3)
	for i := range got {
		got[i] = int64(binary.LittleEndian.Uint64(data[i*8 : (i+1)*8]))
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	require.Equal(t, []int64{1, 2, 3}, got)
}

// TestSortFastProducesNonDecreasingPermutation exercises spec §8 invariant
// 9: sortfast() rearranges a fixed-width element array into non-decreasing
// order without changing its length or multiset of elements. sortfast
// mutates the array in place and pushes nothing back, so the pointer is
// DUP'd first to read the result afterward.
func TestSortFastProducesNonDecreasingPermutation(t *testing.T) {
	tt := types.NewTable()
	intType := tt.Primitive(types.Int64)

	instrs := []code.Instr{
		{Op: code.PUSH, Operand: code.Operand{Int: 0}, Kind: types.Int64},
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinMake}, Type: intType},
		{Op: code.PUSH, Operand: code.Operand{Int: 9}, Kind: types.Int64},
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinAppend}, Type: intType},
		{Op: code.PUSH, Operand: code.Operand{Int: 2}, Kind: types.Int64},
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinAppend}, Type: intType},
		{Op: code.PUSH, Operand: code.Operand{Int: 5}, Kind: types.Int64},
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinAppend}, Type: intType},
		{Op: code.DUP},
		{Op: code.CALL_BUILTIN, Operand: code.Operand{Builtin: code.BuiltinSortFast}, Type: intType},
		{Op: code.POP_REG, Operand: code.Operand{Int: vm.RegResult}},
		{Op: code.HALT},
	}

	m := newVM(t)
	f := vm.NewFiber(instrs, 256, nil)
	require.NoError(t, m.Run(f))

	data, err := m.Heap.Deref(f.Reg[vm.RegResult].Ptr)
	require.NoError(t, err)
	require.Len(t, data, 3*8)

	got := make([]int64, 3)
	for i := range got {
		got[i] = int64(binary.LittleEndian.Uint64(data[i*8 : (i+1)*8]))
	}
	require.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i] < got[j] }))
	sorted := append([]int64(nil), got...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	require.ElementsMatch(t, []int64{9, 2, 5}, sorted)
}
