package types

import "github.com/willow-lang/willow/internal/token"

type pairKey struct{ a, b *Type }

// Equivalent reports whether a and b are structurally identical. Cycles
// through mutually recursive struct/pointer graphs are detected via a
// visited-pair set so the comparison always terminates (spec §4.2, §8
// invariant 4: reflexive, symmetric, transitive even for recursive structs).
func Equivalent(a, b *Type) bool {
	return equiv(a, b, make(map[pairKey]bool))
}

func equiv(a, b *Type, seen map[pairKey]bool) bool {
	a, b = a.Underlying(), b.Underlying()
	if a == b {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}

	key := pairKey{a, b}
	rev := pairKey{b, a}
	if seen[key] || seen[rev] {
		// already comparing this pair higher up the recursion: assume equal to
		// let mutually recursive types converge (spec §4.2 cycle detection).
		return true
	}
	seen[key] = true

	switch a.Kind {
	case Void, Null, Int8, Int16, Int32, Int64, UInt8, UInt16, UInt32, UInt64,
		Bool, Char, Real32, Real64:
		return true

	case Pointer, WeakPointer, DynArray:
		return equiv(a.Base, b.Base, seen)

	case StaticArray:
		return a.Count == b.Count && equiv(a.Base, b.Base, seen)

	case Map:
		return equiv(a.Key, b.Key, seen) && equiv(a.Base, b.Base, seen)

	case String:
		return true

	case Struct, Interface:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name {
				return false
			}
			if !equiv(a.Fields[i].Type, b.Fields[i].Type, seen) {
				return false
			}
		}
		return true

	case Function:
		return equivSignature(a.Sig, b.Sig, seen)

	case Closure:
		return equiv(a.Base, b.Base, seen)

	case Fiber:
		return true

	default:
		return false
	}
}

func equivSignature(a, b *Signature, seen map[pairKey]bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Params) != len(b.Params) || a.IsVariadic != b.IsVariadic || a.NumResults != b.NumResults {
		return false
	}
	for i := range a.Params {
		if !equiv(a.Params[i].Type, b.Params[i].Type, seen) {
			return false
		}
	}
	if a.ResultType == nil || b.ResultType == nil {
		return a.ResultType == b.ResultType
	}
	return equiv(a.ResultType, b.ResultType, seen)
}

// Compatible reports whether a value of type src may be assigned to a
// variable of type dst, allowing the widenings spec §4.2 names:
// integer<->integer, real<->real, string<->string, and the pointer rules
// below. Unlike Equivalent, Compatible is directional (dst <- src).
func Compatible(dst, src *Type) bool {
	dst, src = dst.Underlying(), src.Underlying()
	if Equivalent(dst, src) {
		return true
	}

	switch {
	case dst.Kind.IsInt() && src.Kind.IsInt():
		return true
	case dst.Kind.IsReal() && src.Kind.IsReal():
		return true
	case dst.Kind.IsReal() && src.Kind.IsInt():
		return true // implicit integer->real conversion (spec §4.6)
	case dst.Kind == String && src.Kind == String:
		return true
	case dst.Kind.IsPointer() && src.Kind.IsPointer():
		return PointerAssignable(dst, src)
	case src.Kind == Null && dst.Kind.IsPointer():
		return true
	case dst.Kind == StaticArray && src.Kind == StaticArray:
		return dst.Count == src.Count && Compatible(dst.Base, src.Base)
	case dst.Kind == DynArray && src.Kind == StaticArray:
		return Compatible(dst.Base, src.Base) // array-of-T -> dynarray-of-T (spec §4.6)
	case dst.Kind == Interface:
		return true // concrete -> interface, runtime v-table build (spec §4.6)
	case src.Kind == Interface && dst.Kind == Interface:
		return true // interface -> interface, v-table rebuild
	}
	return false
}

// PointerAssignable implements spec §4.2's pointer compatibility rules for
// the left-hand side of an assignment:
//   - any pointer assigns to an untyped (void-based) pointer;
//   - null assigns to any pointer;
//   - string-pointers interconvert.
func PointerAssignable(dst, src *Type) bool {
	dst, src = dst.Underlying(), src.Underlying()
	if !dst.Kind.IsPointer() || !src.Kind.IsPointer() {
		return false
	}
	if dst.Base.Underlying().Kind == Void {
		return true
	}
	if dst.Base.Underlying().Kind == String && src.Base.Underlying().Kind == String {
		return true
	}
	return Equivalent(dst.Base, src.Base)
}

// PointerEquatable reports whether two pointer types may be compared for
// equality (spec §4.2: "both directions for equality").
func PointerEquatable(a, b *Type) bool {
	return PointerAssignable(a, b) || PointerAssignable(b, a)
}

// CastablePointers implements spec §4.2's castable-pointer-pair rule: both
// sides are pointers, the destination base is void or its size is <= the
// source base's size, and neither base is garbage-collected.
func CastablePointers(dst, src *Type) bool {
	dst, src = dst.Underlying(), src.Underlying()
	if !dst.Kind.IsPointer() || !src.Kind.IsPointer() {
		return false
	}
	if dst.Base.Underlying().Kind == Void {
		return true
	}
	if dst.Base.HasPointers() || src.Base.HasPointers() {
		return false
	}
	return Sizeof(dst.Base) <= Sizeof(src.Base)
}

// ValidOperators returns the set of binary/unary operator tokens legal for
// values of kind k (spec §4.2 "valid-operator", a per-kind operator table).
func ValidOperators(k Kind) []token.Token {
	switch {
	case k.IsInt():
		return []token.Token{
			token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
			token.AMPERSAND, token.PIPE, token.CARET, token.TILDE, token.LTLT, token.GTGT,
			token.EQL, token.NEQ, token.LT, token.LE, token.GT, token.GE,
		}
	case k.IsReal():
		return []token.Token{
			token.PLUS, token.MINUS, token.STAR, token.SLASH,
			token.EQL, token.NEQ, token.LT, token.LE, token.GT, token.GE,
		}
	case k == String:
		return []token.Token{token.PLUS, token.EQL, token.NEQ, token.LT, token.LE, token.GT, token.GE}
	case k == Bool:
		return []token.Token{token.EQL, token.NEQ, token.NOT, token.LAND, token.LOR}
	case k == Char:
		return []token.Token{token.EQL, token.NEQ, token.LT, token.LE, token.GT, token.GE}
	case k.IsPointer():
		return []token.Token{token.EQL, token.NEQ}
	default:
		return nil
	}
}

// HasOperator reports whether op is a member of ValidOperators(k).
func HasOperator(k Kind, op token.Token) bool {
	for _, t := range ValidOperators(k) {
		if t == op {
			return true
		}
	}
	return false
}
