package vm

import (
	"github.com/willow-lang/willow/internal/token"
	"github.com/willow-lang/willow/internal/types"
)

// unary evaluates UNARY against a single operand slot, tagged by operator
// and operand kind (spec §4.7 "UNARY, BINARY parameterised by token kind
// and the operand's type kind").
func unary(tok token.Token, k types.Kind, x Slot) (Slot, error) {
	switch {
	case k.IsReal():
		switch tok {
		case token.MINUS:
			return RealSlot(-x.R), nil
		}
	case k.IsUnsignedInt():
		switch tok {
		case token.MINUS:
			return UintSlot(-x.U), nil
		case token.TILDE:
			return UintSlot(^x.U), nil
		}
	default:
		switch tok {
		case token.MINUS:
			return IntSlot(-x.I), nil
		case token.NOT:
			return IntSlot(boolInt(!x.Bool())), nil
		case token.TILDE:
			return IntSlot(^x.I), nil
		}
	}
	return Slot{}, &RuntimeError{Msg: "illegal operator " + tok.GoString()}
}

// binary evaluates BINARY against two operand slots (spec §4.7).
func binary(tok token.Token, k types.Kind, x, y Slot) (Slot, error) {
	switch {
	case k.IsReal():
		return binaryReal(tok, x, y)
	case k.IsUnsignedInt() || k == types.WeakPointer:
		return binaryUint(tok, x, y)
	case k.IsPointer():
		return binaryPtr(tok, x, y)
	default:
		return binaryInt(tok, x, y)
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func binaryReal(tok token.Token, x, y Slot) (Slot, error) {
	switch tok {
	case token.PLUS:
		return RealSlot(x.R + y.R), nil
	case token.MINUS:
		return RealSlot(x.R - y.R), nil
	case token.STAR:
		return RealSlot(x.R * y.R), nil
	case token.SLASH:
		if y.R == 0 {
			return Slot{}, &RuntimeError{Msg: "Division by zero"}
		}
		return RealSlot(x.R / y.R), nil
	case token.EQL:
		return IntSlot(boolInt(x.R == y.R)), nil
	case token.NEQ:
		return IntSlot(boolInt(x.R != y.R)), nil
	case token.LT:
		return IntSlot(boolInt(x.R < y.R)), nil
	case token.LE:
		return IntSlot(boolInt(x.R <= y.R)), nil
	case token.GT:
		return IntSlot(boolInt(x.R > y.R)), nil
	case token.GE:
		return IntSlot(boolInt(x.R >= y.R)), nil
	}
	return Slot{}, &RuntimeError{Msg: "illegal operator " + tok.GoString()}
}

func binaryInt(tok token.Token, x, y Slot) (Slot, error) {
	switch tok {
	case token.PLUS:
		return IntSlot(x.I + y.I), nil
	case token.MINUS:
		return IntSlot(x.I - y.I), nil
	case token.STAR:
		return IntSlot(x.I * y.I), nil
	case token.SLASH:
		if y.I == 0 {
			return Slot{}, &RuntimeError{Msg: "Division by zero"}
		}
		return IntSlot(x.I / y.I), nil
	case token.PERCENT:
		if y.I == 0 {
			return Slot{}, &RuntimeError{Msg: "Division by zero"}
		}
		return IntSlot(x.I % y.I), nil
	case token.AMPERSAND:
		return IntSlot(x.I & y.I), nil
	case token.PIPE:
		return IntSlot(x.I | y.I), nil
	case token.CARET:
		return IntSlot(x.I ^ y.I), nil
	case token.LTLT:
		return IntSlot(x.I << uint(y.I)), nil
	case token.GTGT:
		return IntSlot(x.I >> uint(y.I)), nil
	case token.EQL:
		return IntSlot(boolInt(x.I == y.I)), nil
	case token.NEQ:
		return IntSlot(boolInt(x.I != y.I)), nil
	case token.LT:
		return IntSlot(boolInt(x.I < y.I)), nil
	case token.LE:
		return IntSlot(boolInt(x.I <= y.I)), nil
	case token.GT:
		return IntSlot(boolInt(x.I > y.I)), nil
	case token.GE:
		return IntSlot(boolInt(x.I >= y.I)), nil
	case token.LAND:
		return IntSlot(boolInt(x.Bool() && y.Bool())), nil
	case token.LOR:
		return IntSlot(boolInt(x.Bool() || y.Bool())), nil
	}
	return Slot{}, &RuntimeError{Msg: "illegal operator " + tok.GoString()}
}

func binaryUint(tok token.Token, x, y Slot) (Slot, error) {
	switch tok {
	case token.PLUS:
		return UintSlot(x.U + y.U), nil
	case token.MINUS:
		return UintSlot(x.U - y.U), nil
	case token.STAR:
		return UintSlot(x.U * y.U), nil
	case token.SLASH:
		if y.U == 0 {
			return Slot{}, &RuntimeError{Msg: "Division by zero"}
		}
		return UintSlot(x.U / y.U), nil
	case token.PERCENT:
		if y.U == 0 {
			return Slot{}, &RuntimeError{Msg: "Division by zero"}
		}
		return UintSlot(x.U % y.U), nil
	case token.AMPERSAND:
		return UintSlot(x.U & y.U), nil
	case token.PIPE:
		return UintSlot(x.U | y.U), nil
	case token.CARET:
		return UintSlot(x.U ^ y.U), nil
	case token.LTLT:
		return UintSlot(x.U << y.U), nil
	case token.GTGT:
		return UintSlot(x.U >> y.U), nil
	case token.EQL:
		return IntSlot(boolInt(x.U == y.U)), nil
	case token.NEQ:
		return IntSlot(boolInt(x.U != y.U)), nil
	case token.LT:
		return IntSlot(boolInt(x.U < y.U)), nil
	case token.LE:
		return IntSlot(boolInt(x.U <= y.U)), nil
	case token.GT:
		return IntSlot(boolInt(x.U > y.U)), nil
	case token.GE:
		return IntSlot(boolInt(x.U >= y.U)), nil
	}
	return Slot{}, &RuntimeError{Msg: "illegal operator " + tok.GoString()}
}

// binaryPtr handles pointer equality, the only valid pointer operator pair
// (spec §4.2 ValidOperators for pointer kinds).
func binaryPtr(tok token.Token, x, y Slot) (Slot, error) {
	switch tok {
	case token.EQL:
		return IntSlot(boolInt(x.Ptr == y.Ptr)), nil
	case token.NEQ:
		return IntSlot(boolInt(x.Ptr != y.Ptr)), nil
	}
	return Slot{}, &RuntimeError{Msg: "illegal operator " + tok.GoString()}
}
