package types

import "math"

// CheckIntOverflow enforces the target kind's signed/unsigned range on an
// integer assignment, returning false (and the verbatim error text spec §7
// requires) if v cannot be represented in k.
func CheckIntOverflow(k Kind, v int64) (ok bool, errMsg string) {
	switch {
	case k.IsSignedInt():
		min, max := Range(k)
		if v < min || v > max {
			return false, "Overflow of " + k.String()
		}
	case k.IsUnsignedInt():
		if v < 0 || uint64(v) > UnsignedRange(k) {
			return false, "Overflow of " + k.String()
		}
	}
	return true, ""
}

// CheckUintOverflow is the unsigned-source counterpart of CheckIntOverflow,
// used when the source value is already known to be non-negative (e.g. a
// uint64 register).
func CheckUintOverflow(k Kind, v uint64) (ok bool, errMsg string) {
	switch {
	case k.IsUnsignedInt():
		if v > UnsignedRange(k) {
			return false, "Overflow of " + k.String()
		}
	case k.IsSignedInt():
		_, max := Range(k)
		if v > uint64(max) {
			return false, "Overflow of " + k.String()
		}
	}
	return true, ""
}

// ClampReal bounds a real assignment to +/-DBL_MAX (or +/-FLT_MAX for
// 32-bit reals), per spec §4.2 ("Real targets bound to +/-DBL_MAX").
func ClampReal(k Kind, v float64) float64 {
	var limit float64
	switch k {
	case Real32:
		limit = math.MaxFloat32
	case Real64:
		limit = math.MaxFloat64
	default:
		return v
	}
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
