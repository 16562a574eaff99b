// Package vm implements the stack-based bytecode virtual machine: the Slot
// value representation, the per-fiber register file and call stack, and the
// dispatch loop over internal/code's opcode set (spec §4.7).
//
// Slot is a tagged-union-style value: Go has no union type, so every
// interpretation lives in its own field of one flat struct, since spec §3
// requires it be a fixed-size stack cell copied by value, not a boxed
// interface value.
package vm

import "github.com/willow-lang/willow/internal/heap"

// Slot is one operand-stack / register / local-variable cell (spec §3
// "Instruction operand union" and §4.7 register file). A pointer value is
// {Ptr, Off}: Ptr names the heap chunk (or a stack-resident chunk, marked
// isStack — see internal/heap), Off is the byte offset within it that
// GET_FIELD_PTR/GET_ARRAY_PTR/GET_DYNARRAY_PTR advance, generalizing the
// original's raw C pointer arithmetic to Go's handle-based addressing.
type Slot struct {
	I   int64   // signed integers, bools (0/1), chars
	U   uint64  // unsigned integers
	R   float64 // reals
	Ptr heap.Ptr
	Off int32
}

// IntSlot builds a Slot carrying a signed integer.
func IntSlot(v int64) Slot { return Slot{I: v} }

// UintSlot builds a Slot carrying an unsigned integer.
func UintSlot(v uint64) Slot { return Slot{U: v} }

// RealSlot builds a Slot carrying a real.
func RealSlot(v float64) Slot { return Slot{R: v} }

// PtrSlot builds a Slot carrying a heap pointer at offset 0.
func PtrSlot(p heap.Ptr) Slot { return Slot{Ptr: p} }

// FieldSlot builds a Slot addressing a byte offset within p's storage
// (spec §4.7 "GET_FIELD_PTR"/"GET_ARRAY_PTR").
func FieldSlot(p heap.Ptr, off int32) Slot { return Slot{Ptr: p, Off: off} }

// Bool reports the slot's truth value (I != 0, spec §4.2 Bool kind).
func (s Slot) Bool() bool { return s.I != 0 }
