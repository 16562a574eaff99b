package vm

import (
	"github.com/willow-lang/willow/internal/heap"
	"github.com/willow-lang/willow/internal/types"
)

// derefSlot loads a typed value from the storage a pointer slot addresses
// (spec §4.7 "DEREF"). addr.Ptr names the chunk, addr.Off the byte offset
// within it that prior GET_FIELD_PTR/GET_ARRAY_PTR/GET_DYNARRAY_PTR steps
// have accumulated.
func (m *VM) derefSlot(addr Slot, k types.Kind) (Slot, error) {
	data, err := m.Heap.Deref(addr.Ptr)
	if err != nil {
		return Slot{}, err
	}
	off := int(addr.Off)
	if off < 0 || off >= len(data) {
		return Slot{}, runtimeErrorf(0, 0, "dereference out of bounds: offset %d, size %d", off, len(data))
	}
	return readScalar(data[off:], k), nil
}

// assignSlot is the ASSIGN counterpart of derefSlot.
func (m *VM) assignSlot(addr Slot, val Slot, k types.Kind) error {
	data, err := m.Heap.Deref(addr.Ptr)
	if err != nil {
		return err
	}
	off := int(addr.Off)
	if off < 0 || off >= len(data) {
		return runtimeErrorf(0, 0, "assignment out of bounds: offset %d, size %d", off, len(data))
	}
	writeScalar(data[off:], k, val)
	return nil
}

// addrOf advances a pointer slot by deltaBytes within the same chunk,
// bounds-checking against the chunk's allocated size (spec §4.7
// "GET_FIELD_PTR/GET_ARRAY_PTR/GET_DYNARRAY_PTR advance a pointer by a
// byte offset without leaving its chunk").
func (m *VM) addrOf(base Slot, deltaBytes int) (Slot, error) {
	data, err := m.Heap.Deref(base.Ptr)
	if err != nil {
		return Slot{}, err
	}
	newOff := int(base.Off) + deltaBytes
	if newOff < 0 || newOff > len(data) {
		return Slot{}, runtimeErrorf(0, 0, "pointer arithmetic out of bounds: offset %d, size %d", newOff, len(data))
	}
	return FieldSlot(base.Ptr, int32(newOff)), nil
}

// typeSize is a package-local alias over types.Sizeof, named for readability
// at dispatch-loop call sites.
func typeSize(t *types.Type) int {
	if t == nil {
		return 0
	}
	return types.Sizeof(t)
}

// rangeOf returns the inclusive representable range for ASSERT_RANGE as
// types.Range's int64 pair. ASSERT_RANGE's dispatch case compares only the
// slot's signed I field against it; there is no separate check against
// types.UnsignedRange, so a value held in an unsigned slot's U field is not
// range-checked.
func rangeOf(k types.Kind) (lo, hi int64) {
	return types.Range(k)
}

// allocStack creates a heap chunk marked isStack for a local whose address
// is taken (spec §4.7 "PUSH_LOCAL_PTR_ZERO... storage is zero-filled";
// §4.8 "chunks allocated for addressable locals are marked isStack so
// LeaveFrame's escape check and the collector treat them like any other
// reference-counted chunk").
func (m *VM) allocStack(t *types.Type) heap.Ptr {
	return m.Heap.Alloc(typeSize(t), t, nil, true, 0)
}
