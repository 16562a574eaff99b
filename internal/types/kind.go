// Package types implements the structural type system: a type graph with
// forward declarations, equivalence, compatibility, overflow checks and
// field/parameter lookup (spec §2, §4.2).
package types

// Kind tags the variant of a Type (spec §3 "Type").
type Kind uint8

const ( //nolint:revive
	Void Kind = iota
	Forward
	Null
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Bool
	Char
	Real32
	Real64
	Pointer
	WeakPointer
	StaticArray
	DynArray
	String
	Map
	Struct
	Interface
	Closure
	Fiber
	Function
)

var kindNames = [...]string{
	Void:        "void",
	Forward:     "forward",
	Null:        "null",
	Int8:        "int8",
	Int16:       "int16",
	Int32:       "int32",
	Int64:       "int",
	UInt8:       "uint8",
	UInt16:      "uint16",
	UInt32:      "uint32",
	UInt64:      "uint",
	Bool:        "bool",
	Char:        "char",
	Real32:      "real32",
	Real64:      "real",
	Pointer:     "pointer",
	WeakPointer: "weak pointer",
	StaticArray: "static array",
	DynArray:    "dynamic array",
	String:      "str",
	Map:         "map",
	Struct:      "struct",
	Interface:   "interface",
	Closure:     "closure",
	Fiber:       "fiber",
	Function:    "function",
}

func (k Kind) String() string { return kindNames[k] }

// IsSignedInt reports whether k is one of the signed integer kinds.
func (k Kind) IsSignedInt() bool { return k >= Int8 && k <= Int64 }

// IsUnsignedInt reports whether k is one of the unsigned integer kinds.
func (k Kind) IsUnsignedInt() bool { return k >= UInt8 && k <= UInt64 }

// IsInt reports whether k is any integer kind.
func (k Kind) IsInt() bool { return k.IsSignedInt() || k.IsUnsignedInt() }

// IsReal reports whether k is a floating point kind.
func (k Kind) IsReal() bool { return k == Real32 || k == Real64 }

// IsNumeric reports whether k is an integer or real kind.
func (k Kind) IsNumeric() bool { return k.IsInt() || k.IsReal() }

// IsOrdinal reports whether values of this kind may be compared with
// < <= > >= (numeric, char, pointers excluded, spec's valid-operator table).
func (k Kind) IsOrdinal() bool { return k.IsNumeric() || k == Char }

// IsPointer reports whether k is a strong or weak pointer kind.
func (k Kind) IsPointer() bool { return k == Pointer || k == WeakPointer }

// IsGarbageCollected reports whether values of this kind are heap-managed
// and participate in reference counting (spec §4.8).
func (k Kind) IsGarbageCollected() bool {
	switch k {
	case Pointer, WeakPointer, DynArray, String, Map, Interface, Closure, Fiber:
		return true
	default:
		return false
	}
}
