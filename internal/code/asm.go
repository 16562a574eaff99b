package code

import (
	"fmt"
	"strings"

	"github.com/willow-lang/willow/internal/token"
)

// Disassemble renders the instruction buffer as the `-asm` human-readable
// listing (spec §7: "one line per instruction: `ip line opcode [tok] [type]
// [operand] [; DEREF]`").
func (g *Generator) Disassemble() string {
	var b strings.Builder
	for ip, in := range g.Instrs {
		fmt.Fprintf(&b, "%d %d %s", ip, in.Line, in.Op)

		if in.Tok != token.ILLEGAL {
			fmt.Fprintf(&b, " %s", in.Tok.String())
		}
		if in.Type != nil {
			fmt.Fprintf(&b, " %s", in.Type.String())
		} else if in.Kind != 0 {
			fmt.Fprintf(&b, " %s", in.Kind.String())
		}

		if op := operandString(in); op != "" {
			fmt.Fprintf(&b, " %s", op)
		}
		if in.Inline != NOP {
			fmt.Fprintf(&b, " ; %s", in.Inline)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func operandString(in Instr) string {
	switch in.Op {
	case CALL_BUILTIN:
		if in.Operand.Int != 0 {
			return fmt.Sprintf("<%d,%d>", in.Operand.Builtin, in.Operand.Int)
		}
		return fmt.Sprintf("<%d>", in.Operand.Builtin)
	case ENTER_FRAME, RETURN:
		return fmt.Sprintf("<%d,%d>", in.Operand.A, in.Operand.B)
	case GOTO, GOTO_IF, GOTO_IF_NOT, CALL, CALL_INDIRECT, CALL_EXTERN:
		return fmt.Sprintf("<%d>", in.Operand.Int)
	case PUSH:
		if in.Operand.Real != 0 {
			return fmt.Sprintf("<%g>", in.Operand.Real)
		}
		return fmt.Sprintf("<%d>", in.Operand.Int)
	case PUSH_STRING:
		return fmt.Sprintf("<%q>", in.Operand.Str)
	case PUSH_LOCAL, PUSH_LOCAL_PTR, PUSH_LOCAL_PTR_ZERO, PUSH_REG, PUSH_UPVALUE,
		POP_REG, PUSH_ZERO, GET_ARRAY_PTR:
		return fmt.Sprintf("<%d>", in.Operand.Int)
	default:
		return ""
	}
}
