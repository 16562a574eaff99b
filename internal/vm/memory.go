package vm

import (
	encbinary "encoding/binary"
	"math"

	"github.com/willow-lang/willow/internal/heap"
	"github.com/willow-lang/willow/internal/types"
)

// readScalar loads a typed value out of raw heap/stack bytes (spec §4.7
// "DEREF (typed load via pointer on top)"). Composite kinds (struct,
// static array) are not handled here: their DEREF targets are themselves
// further GET_FIELD_PTR/GET_ARRAY_PTR operations, never a bare scalar load.
func readScalar(data []byte, k types.Kind) Slot {
	switch k {
	case types.Real32:
		return RealSlot(float64(math.Float32frombits(encbinary.LittleEndian.Uint32(data))))
	case types.Real64:
		return RealSlot(math.Float64frombits(encbinary.LittleEndian.Uint64(data)))
	case types.Bool, types.Char, types.Int8:
		return IntSlot(int64(int8(data[0])))
	case types.UInt8:
		return UintSlot(uint64(data[0]))
	case types.Int16:
		return IntSlot(int64(int16(encbinary.LittleEndian.Uint16(data))))
	case types.UInt16:
		return UintSlot(uint64(encbinary.LittleEndian.Uint16(data)))
	case types.Int32:
		return IntSlot(int64(int32(encbinary.LittleEndian.Uint32(data))))
	case types.UInt32:
		return UintSlot(uint64(encbinary.LittleEndian.Uint32(data)))
	case types.Int64:
		return IntSlot(int64(encbinary.LittleEndian.Uint64(data)))
	case types.UInt64:
		return UintSlot(encbinary.LittleEndian.Uint64(data))
	case types.Pointer, types.WeakPointer,
		types.String, types.DynArray, types.Map, types.Fiber:
		// Garbage-collected handle kinds are a single heap.Ptr scalar in
		// storage, same layout as a pointer (spec §3 "String"/"Dynamic
		// array"/"Map"/"Fiber": each is a handle, not an inline value).
		return PtrSlot(heap.Ptr(encbinary.LittleEndian.Uint64(data)))
	default:
		return IntSlot(int64(encbinary.LittleEndian.Uint64(data)))
	}
}

// writeScalar is the ASSIGN counterpart of readScalar.
func writeScalar(data []byte, k types.Kind, v Slot) {
	switch k {
	case types.Real32:
		encbinary.LittleEndian.PutUint32(data, math.Float32bits(float32(v.R)))
	case types.Real64:
		encbinary.LittleEndian.PutUint64(data, math.Float64bits(v.R))
	case types.Bool, types.Char, types.Int8, types.UInt8:
		data[0] = byte(v.I)
	case types.Int16, types.UInt16:
		encbinary.LittleEndian.PutUint16(data, uint16(v.I))
	case types.Int32, types.UInt32:
		encbinary.LittleEndian.PutUint32(data, uint32(v.I))
	case types.Pointer, types.WeakPointer,
		types.String, types.DynArray, types.Map, types.Fiber:
		encbinary.LittleEndian.PutUint64(data, uint64(v.Ptr))
	default:
		encbinary.LittleEndian.PutUint64(data, uint64(v.I))
	}
}
