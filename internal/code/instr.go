package code

import (
	"github.com/willow-lang/willow/internal/token"
	"github.com/willow-lang/willow/internal/types"
)

// Operand is the single operand union an Instr may carry: an integer, a
// packed pair of 32-bit ints (e.g. ENTER_FRAME's param-count/local-size
// pair), a real, or a builtin selector (spec §3 "Instruction": "one operand
// union (int, two packed 32-bit ints, pointer, real, builtin-selector)").
type Operand struct {
	Int     int64
	Real    float64
	Str     string // decoded string-literal payload for PUSH_STRING
	A, B    int32
	Builtin Builtin
}

// Instr is one bytecode instruction (spec §3 "Instruction").
type Instr struct {
	Op     Opcode
	Inline Opcode // fused second opcode for PUSH+DEREF / SWAP+ASSIGN, else NOP

	Tok  token.Token // operator kind for UNARY/BINARY, else token.ILLEGAL
	Kind types.Kind  // operand type-kind tag
	Type *types.Type

	Operand Operand

	Line int
}
