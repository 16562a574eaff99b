package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/willow-lang/willow/internal/types"
)

func TestEquivalencePrimitives(t *testing.T) {
	tbl := types.NewTable()
	require.True(t, types.Equivalent(tbl.Primitive(types.Int64), tbl.Primitive(types.Int64)))
	require.False(t, types.Equivalent(tbl.Primitive(types.Int64), tbl.Primitive(types.Real64)))
}

func TestEquivalenceReflexiveSymmetricTransitive(t *testing.T) {
	tbl := types.NewTable()
	a := tbl.ArrayOf(tbl.Primitive(types.Int32), 4)
	b := tbl.ArrayOf(tbl.Primitive(types.Int32), 4)
	c := tbl.ArrayOf(tbl.Primitive(types.Int32), 4)

	require.True(t, types.Equivalent(a, a), "reflexive")
	require.Equal(t, types.Equivalent(a, b), types.Equivalent(b, a), "symmetric")
	if types.Equivalent(a, b) && types.Equivalent(b, c) {
		require.True(t, types.Equivalent(a, c), "transitive")
	}
}

func TestEquivalenceMutuallyRecursiveStructsTerminates(t *testing.T) {
	tbl := types.NewTable()

	nodeA := tbl.NewStruct(0)
	nodeB := tbl.NewStruct(0)
	nodeA.SetName("NodeA")
	nodeB.SetName("NodeB")

	nodeA.AddField("value", tbl.Primitive(types.Int64))
	nodeA.AddField("next", tbl.PointerTo(nodeB))
	nodeB.AddField("value", tbl.Primitive(types.Int64))
	nodeB.AddField("next", tbl.PointerTo(nodeA))

	require.True(t, types.Equivalent(nodeA, nodeA))
	require.True(t, types.Equivalent(nodeA, nodeA), "repeated calls must also terminate")
}

func TestStructFieldOffsetsNoPadding(t *testing.T) {
	tbl := types.NewTable()
	s := tbl.NewStruct(0)
	s.AddField("a", tbl.Primitive(types.Int8))
	s.AddField("b", tbl.Primitive(types.Int64))
	s.AddField("c", tbl.Primitive(types.Bool))

	fa, _ := s.FieldByName("a")
	fb, _ := s.FieldByName("b")
	fc, _ := s.FieldByName("c")
	require.Equal(t, 0, fa.Offset)
	require.Equal(t, 1, fb.Offset)
	require.Equal(t, 9, fc.Offset)
	require.Equal(t, 10, types.Sizeof(s))
}

func TestPointerCompatibility(t *testing.T) {
	tbl := types.NewTable()
	voidPtr := tbl.PointerTo(tbl.Primitive(types.Void))
	intPtr := tbl.PointerTo(tbl.Primitive(types.Int64))
	nullT := tbl.Primitive(types.Null)

	require.True(t, types.Compatible(voidPtr, intPtr))
	require.True(t, types.Compatible(intPtr, nullT))
	require.False(t, types.Compatible(intPtr, tbl.PointerTo(tbl.Primitive(types.Real64))))
}

func TestOverflow(t *testing.T) {
	ok, msg := types.CheckIntOverflow(types.Int8, 200)
	require.False(t, ok)
	require.Equal(t, "Overflow of int8", msg)

	ok, _ = types.CheckIntOverflow(types.Int8, 100)
	require.True(t, ok)

	ok, msg = types.CheckIntOverflow(types.UInt8, -1)
	require.False(t, ok)
	require.Equal(t, "Overflow of uint8", msg)
}
