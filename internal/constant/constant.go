// Package constant evaluates compile-time scalar and string arithmetic on
// types.Const values: the unary/binary operators and the subset of built-in
// functions the compiler can fold at parse time (spec §4.5).
package constant

import (
	"fmt"
	"math"

	"github.com/willow-lang/willow/internal/token"
	"github.com/willow-lang/willow/internal/types"
)

// Unary evaluates a prefix operator against a constant (spec §4.5).
func Unary(op token.Token, v types.Const) (types.Const, error) {
	if v.Kind.IsReal() {
		switch op {
		case token.MINUS:
			return types.RealConst(v.Kind, -v.R), nil
		default:
			return types.Const{}, fmt.Errorf("illegal operator %s", op.GoString())
		}
	}
	switch op {
	case token.MINUS:
		return types.IntConst(v.Kind, -v.I), nil
	case token.NOT:
		return types.BoolConst(!v.Truth()), nil
	case token.TILDE:
		return types.IntConst(v.Kind, ^v.I), nil
	default:
		return types.Const{}, fmt.Errorf("illegal operator %s", op.GoString())
	}
}

// Binary evaluates an infix operator against two constants of the same kind
// class (string, real or integer). String ordering follows Go's native
// byte-wise string comparison.
func Binary(op token.Token, lhs, rhs types.Const) (types.Const, error) {
	switch {
	case lhs.Kind == types.String:
		return binaryString(op, lhs, rhs)
	case lhs.Kind.IsReal():
		return binaryReal(op, lhs, rhs)
	case lhs.Kind == types.Bool:
		return binaryBool(op, lhs, rhs)
	default:
		return binaryInt(op, lhs, rhs)
	}
}

func binaryString(op token.Token, lhs, rhs types.Const) (types.Const, error) {
	switch op {
	case token.PLUS:
		return types.StringConst(lhs.S + rhs.S), nil
	case token.EQL:
		return types.BoolConst(lhs.S == rhs.S), nil
	case token.NEQ:
		return types.BoolConst(lhs.S != rhs.S), nil
	case token.GT:
		return types.BoolConst(lhs.S > rhs.S), nil
	case token.LT:
		return types.BoolConst(lhs.S < rhs.S), nil
	case token.GE:
		return types.BoolConst(lhs.S >= rhs.S), nil
	case token.LE:
		return types.BoolConst(lhs.S <= rhs.S), nil
	default:
		return types.Const{}, fmt.Errorf("illegal operator %s", op.GoString())
	}
}

func binaryReal(op token.Token, lhs, rhs types.Const) (types.Const, error) {
	switch op {
	case token.PLUS:
		return types.RealConst(lhs.Kind, lhs.R+rhs.R), nil
	case token.MINUS:
		return types.RealConst(lhs.Kind, lhs.R-rhs.R), nil
	case token.STAR:
		return types.RealConst(lhs.Kind, lhs.R*rhs.R), nil
	case token.SLASH:
		if rhs.R == 0 {
			return types.Const{}, fmt.Errorf("Division by zero")
		}
		return types.RealConst(lhs.Kind, lhs.R/rhs.R), nil
	case token.EQL:
		return types.BoolConst(lhs.R == rhs.R), nil
	case token.NEQ:
		return types.BoolConst(lhs.R != rhs.R), nil
	case token.GT:
		return types.BoolConst(lhs.R > rhs.R), nil
	case token.LT:
		return types.BoolConst(lhs.R < rhs.R), nil
	case token.GE:
		return types.BoolConst(lhs.R >= rhs.R), nil
	case token.LE:
		return types.BoolConst(lhs.R <= rhs.R), nil
	default:
		return types.Const{}, fmt.Errorf("illegal operator %s", op.GoString())
	}
}

func binaryBool(op token.Token, lhs, rhs types.Const) (types.Const, error) {
	switch op {
	case token.EQL:
		return types.BoolConst(lhs.Truth() == rhs.Truth()), nil
	case token.NEQ:
		return types.BoolConst(lhs.Truth() != rhs.Truth()), nil
	case token.LAND:
		return types.BoolConst(lhs.Truth() && rhs.Truth()), nil
	case token.LOR:
		return types.BoolConst(lhs.Truth() || rhs.Truth()), nil
	default:
		return types.Const{}, fmt.Errorf("illegal operator %s", op.GoString())
	}
}

func binaryInt(op token.Token, lhs, rhs types.Const) (types.Const, error) {
	switch op {
	case token.PLUS:
		return types.IntConst(lhs.Kind, lhs.I+rhs.I), nil
	case token.MINUS:
		return types.IntConst(lhs.Kind, lhs.I-rhs.I), nil
	case token.STAR:
		return types.IntConst(lhs.Kind, lhs.I*rhs.I), nil
	case token.SLASH:
		if rhs.I == 0 {
			return types.Const{}, fmt.Errorf("Division by zero")
		}
		return types.IntConst(lhs.Kind, lhs.I/rhs.I), nil
	case token.PERCENT:
		if rhs.I == 0 {
			return types.Const{}, fmt.Errorf("Division by zero")
		}
		return types.IntConst(lhs.Kind, lhs.I%rhs.I), nil
	case token.LTLT:
		return types.IntConst(lhs.Kind, lhs.I<<uint(rhs.I)), nil
	case token.GTGT:
		return types.IntConst(lhs.Kind, lhs.I>>uint(rhs.I)), nil
	case token.AMPERSAND:
		return types.IntConst(lhs.Kind, lhs.I&rhs.I), nil
	case token.PIPE:
		return types.IntConst(lhs.Kind, lhs.I|rhs.I), nil
	case token.CARET:
		return types.IntConst(lhs.Kind, lhs.I^rhs.I), nil
	case token.EQL:
		return types.BoolConst(lhs.I == rhs.I), nil
	case token.NEQ:
		return types.BoolConst(lhs.I != rhs.I), nil
	case token.GT:
		return types.BoolConst(lhs.I > rhs.I), nil
	case token.LT:
		return types.BoolConst(lhs.I < rhs.I), nil
	case token.GE:
		return types.BoolConst(lhs.I >= rhs.I), nil
	case token.LE:
		return types.BoolConst(lhs.I <= rhs.I), nil
	default:
		return types.Const{}, fmt.Errorf("illegal operator %s", op.GoString())
	}
}

// CallBuiltin evaluates one of the compile-time-foldable built-in functions
// (spec §4.5). log computes the true natural logarithm (see SPEC_FULL.md
// Open Question decisions).
func CallBuiltin(name string, arg types.Const) (types.Const, error) {
	switch name {
	case "real":
		return types.RealConst(types.Real64, float64(arg.I)), nil
	case "round":
		return types.IntConst(types.Int64, int64(math.Round(arg.R))), nil
	case "trunc":
		return types.IntConst(types.Int64, int64(math.Trunc(arg.R))), nil
	case "ceil":
		return types.IntConst(types.Int64, int64(math.Ceil(arg.R))), nil
	case "floor":
		return types.IntConst(types.Int64, int64(math.Floor(arg.R))), nil
	case "abs":
		if arg.I < 0 {
			return types.IntConst(arg.Kind, -arg.I), nil
		}
		return arg, nil
	case "fabs":
		return types.RealConst(arg.Kind, math.Abs(arg.R)), nil
	case "sqrt":
		if arg.R < 0 {
			return types.Const{}, fmt.Errorf("sqrt() domain error")
		}
		return types.RealConst(arg.Kind, math.Sqrt(arg.R)), nil
	case "sin":
		return types.RealConst(arg.Kind, math.Sin(arg.R)), nil
	case "cos":
		return types.RealConst(arg.Kind, math.Cos(arg.R)), nil
	case "atan":
		return types.RealConst(arg.Kind, math.Atan(arg.R)), nil
	case "exp":
		return types.RealConst(arg.Kind, math.Exp(arg.R)), nil
	case "log":
		if arg.R <= 0 {
			return types.Const{}, fmt.Errorf("log() domain error")
		}
		return types.RealConst(arg.Kind, math.Log(arg.R)), nil
	case "len":
		return types.IntConst(types.Int64, int64(len(arg.S))), nil
	default:
		return types.Const{}, fmt.Errorf("illegal function %s", name)
	}
}

// CallBuiltin2 evaluates the two-argument form of atan2, kept separate from
// CallBuiltin's single-Const signature.
func CallBuiltin2(name string, a, b types.Const) (types.Const, error) {
	if name != "atan2" {
		return types.Const{}, fmt.Errorf("illegal function %s", name)
	}
	return types.RealConst(a.Kind, math.Atan2(a.R, b.R)), nil
}

// Sizeof evaluates the compile-time sizeof(T) built-in (spec §4.5).
func Sizeof(t *types.Type) types.Const {
	return types.IntConst(types.Int64, int64(types.Sizeof(t)))
}

// SizeofSelf evaluates sizeofself(x), the size of x's dynamic interface
// value at the point of the call (spec §4.5). Folding it requires the
// concrete type bound to an interface variable, which is only known once
// the interface's v-table has been built; when self is itself an unresolved
// interface type, the caller must defer evaluation to runtime instead.
func SizeofSelf(self *types.Type) types.Const {
	return Sizeof(self)
}
