package types

// Sizeof returns the exact byte size of t, matching host widths for
// primitives (int8/16/32/64 and their unsigned counterparts, booleans one
// byte, pointers eight bytes) and laying out struct fields in declared
// order with no inter-field padding (spec §4.2).
func Sizeof(t *Type) int {
	u := t.Underlying()
	switch u.Kind {
	case Void, Forward:
		return 0
	case Null, Bool, Int8, UInt8, Char:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Real32:
		return 4
	case Int64, UInt64, Real64:
		return 8
	case Pointer, WeakPointer, DynArray, String, Map, Interface, Closure, Fiber, Function:
		return 8
	case StaticArray:
		return u.Count * Sizeof(u.Base)
	case Struct:
		if u.sizeComputed {
			return u.size
		}
		size := 0
		for _, f := range u.Fields {
			size += Sizeof(f.Type)
		}
		u.size = size
		u.sizeComputed = true
		return size
	default:
		return 8
	}
}

// Range returns the inclusive [min, max] representable values for an
// integer kind, used by overflow checks (spec §4.2, §4.8 ASSERT_RANGE).
func Range(k Kind) (min, max int64) {
	switch k {
	case Int8:
		return -1 << 7, 1<<7 - 1
	case Int16:
		return -1 << 15, 1<<15 - 1
	case Int32:
		return -1 << 31, 1<<31 - 1
	case Int64:
		return -1 << 63, 1<<63 - 1
	case UInt8:
		return 0, 1<<8 - 1
	case UInt16:
		return 0, 1<<16 - 1
	case UInt32:
		return 0, 1<<32 - 1
	case UInt64:
		return 0, 1<<63 - 1 // representable exactly in int64; callers use uint64 path for the top half
	default:
		return 0, 0
	}
}

// UnsignedRange returns the inclusive [0, max] range for unsigned kinds as a
// uint64, since UInt64's max (2^64-1) does not fit in int64.
func UnsignedRange(k Kind) uint64 {
	switch k {
	case UInt8:
		return 1<<8 - 1
	case UInt16:
		return 1<<16 - 1
	case UInt32:
		return 1<<32 - 1
	case UInt64:
		return ^uint64(0)
	default:
		return 0
	}
}
