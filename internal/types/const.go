package types

// Const is a compile-time scalar or string value: the payload carried by
// constant identifiers and by default parameter values (spec §3
// "Identifier": "Constants carry a Const value (integer/unsigned/real/
// pointer)").
type Const struct {
	Kind Kind
	I    int64
	U    uint64
	R    float64
	S    string
}

// IsZero reports whether c is the unset "no default value" sentinel.
func (c Const) IsZero() bool { return c.Kind == Void }

func IntConst(k Kind, v int64) Const    { return Const{Kind: k, I: v} }
func UintConst(k Kind, v uint64) Const  { return Const{Kind: k, U: v} }
func RealConst(k Kind, v float64) Const { return Const{Kind: k, R: v} }
func StringConst(v string) Const        { return Const{Kind: String, S: v} }
func BoolConst(v bool) Const {
	if v {
		return Const{Kind: Bool, I: 1}
	}
	return Const{Kind: Bool, I: 0}
}

// Truth reports the boolean value of a Bool constant.
func (c Const) Truth() bool { return c.I != 0 }
