package ident_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/willow-lang/willow/internal/ident"
	"github.com/willow-lang/willow/internal/token"
	"github.com/willow-lang/willow/internal/types"
)

func TestDeclareAndLookupInnermostWins(t *testing.T) {
	tbl := ident.NewTable(nil)
	tt := types.NewTable()
	i64 := tt.Primitive(types.Int64)

	outer, err := tbl.Declare("x", ident.VarKind, i64, 0)
	require.NoError(t, err)

	tbl.EnterBlock(false)
	inner, err := tbl.Declare("x", ident.VarKind, i64, 0)
	require.NoError(t, err)

	found, ok := tbl.Lookup("x")
	require.True(t, ok)
	require.Same(t, inner, found)

	tbl.LeaveBlock()
	found, ok = tbl.Lookup("x")
	require.True(t, ok)
	require.Same(t, outer, found)
}

func TestRedeclarationInSameBlockErrors(t *testing.T) {
	tbl := ident.NewTable(nil)
	tt := types.NewTable()
	i64 := tt.Primitive(types.Int64)

	_, err := tbl.Declare("x", ident.VarKind, i64, 0)
	require.NoError(t, err)
	_, err = tbl.Declare("x", ident.VarKind, i64, 0)
	require.Error(t, err)
}

func TestUnusedIdentifierWarning(t *testing.T) {
	var warnings []string
	tbl := ident.NewTable(func(pos token.Position, msg string) {
		warnings = append(warnings, msg)
	})
	tt := types.NewTable()
	i64 := tt.Primitive(types.Int64)

	tbl.EnterBlock(false)
	_, err := tbl.Declare("unused", ident.VarKind, i64, 0)
	require.NoError(t, err)
	tbl.LeaveBlock()

	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0], "unused")
}

func TestUsedIdentifierNoWarning(t *testing.T) {
	var warnings []string
	tbl := ident.NewTable(func(pos token.Position, msg string) {
		warnings = append(warnings, msg)
	})
	tt := types.NewTable()
	i64 := tt.Primitive(types.Int64)

	tbl.EnterBlock(false)
	_, err := tbl.Declare("used", ident.VarKind, i64, 0)
	require.NoError(t, err)
	_, ok := tbl.Lookup("used")
	require.True(t, ok)
	tbl.LeaveBlock()

	require.Empty(t, warnings)
}

func TestModuleVisibilityRequiresExportOrImport(t *testing.T) {
	tbl := ident.NewTable(nil)
	tt := types.NewTable()
	i64 := tt.Primitive(types.Int64)

	tbl.DeclareModule(1, "a")
	tbl.DeclareModule(2, "b")

	tbl.SetModule(1)
	priv, err := tbl.Declare("secret", ident.VarKind, i64, 0)
	require.NoError(t, err)
	priv.Exported = false
	pub, err := tbl.Declare("shared", ident.VarKind, i64, 0)
	require.NoError(t, err)
	pub.Exported = true

	tbl.SetModule(2)
	_, ok := tbl.Lookup("secret")
	require.False(t, ok, "unexported identifier from another module must not be visible")
	_, ok = tbl.Lookup("shared")
	require.False(t, ok, "exported identifier is still invisible until imported")

	tbl.Import(2, 1)
	found, ok := tbl.Lookup("shared")
	require.True(t, ok)
	require.Equal(t, "shared", found.Name)
}

func TestMethodLookupKeyedByReceiver(t *testing.T) {
	tbl := ident.NewTable(nil)
	tt := types.NewTable()
	fooT := tt.NewStruct(0)
	fooT.SetName("Foo")
	barT := tt.NewStruct(0)
	barT.SetName("Bar")
	fn := tt.NewFunction(nil)

	_, err := tbl.DeclareMethod("speak", fooT, fn, 0)
	require.NoError(t, err)

	_, ok := tbl.LookupMethod("speak", fooT)
	require.True(t, ok)
	_, ok = tbl.LookupMethod("speak", barT)
	require.False(t, ok)
}

func TestDuplicateMethodErrors(t *testing.T) {
	tbl := ident.NewTable(nil)
	tt := types.NewTable()
	fooT := tt.NewStruct(0)
	fn := tt.NewFunction(nil)

	_, err := tbl.DeclareMethod("speak", fooT, fn, 0)
	require.NoError(t, err)
	_, err = tbl.DeclareMethod("speak", fooT, fn, 0)
	require.Error(t, err)
}

func TestAllocLocalAndParamOffsetsGrow(t *testing.T) {
	tbl := ident.NewTable(nil)
	tbl.EnterBlock(true)

	o0 := tbl.AllocLocal(8)
	o1 := tbl.AllocLocal(4)
	require.Equal(t, 0, o0)
	require.Equal(t, 8, o1)

	p0 := tbl.AllocParam(8)
	p1 := tbl.AllocParam(8)
	require.Equal(t, 0, p0)
	require.Equal(t, 8, p1)
}

func TestNewTempMonotonicAndUnique(t *testing.T) {
	tbl := ident.NewTable(nil)
	a := tbl.NewTemp()
	b := tbl.NewTemp()
	require.NotEqual(t, a, b)
}
