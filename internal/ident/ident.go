// Package ident implements the scoped identifier table: a singly linked list
// in declaration order with block nesting, module visibility, method
// receivers and forward-declared functions (spec §4.3).
package ident

import (
	"github.com/willow-lang/willow/internal/token"
	"github.com/willow-lang/willow/internal/types"
)

// Kind tags the variant of an Ident (spec §3 "Identifier").
type Kind uint8

const ( //nolint:revive
	ConstKind Kind = iota
	VarKind
	TypeKind
	BuiltinFnKind
	ModuleKind
)

// Ident is one entry in the identifier table (spec §3 "Identifier").
// Functions are Idents of Kind ConstKind whose Type is a function type and
// whose ConstVal carries the bytecode entry offset once compiled.
type Ident struct {
	Name   string
	Hash   uint32
	Kind   Kind
	Type   *types.Type
	Module int
	Block  int
	Pos    token.Pos

	Exported bool
	Used     bool

	// Var/const storage location. IsGlobal selects between the two
	// interpretations of Offset: a heap-relative slot for globals, or a
	// frame-relative slot for locals/parameters (spec §3 "Identifier").
	IsGlobal bool
	Offset   int

	// IsParam marks a VarKind identifier as a parameter rather than a
	// declared local: parameters hold their value directly in their frame
	// slot (no heap-chunk indirection), while locals are always backed by a
	// PUSH_LOCAL_PTR_ZERO-allocated chunk so their address can be taken
	// (spec §4.7 "Call frame layout").
	IsParam bool

	ConstVal types.Const

	// Receiver is set when this Ident names a method; methods are looked up
	// keyed by {name, receiver type} (spec §4.3).
	Receiver *types.Type

	// Forward marks a function identifier declared but not yet defined, to be
	// resolved before the enclosing module finishes compiling.
	Forward bool

	next *Ident // singly linked list in declaration order (spec §4.3)
}
