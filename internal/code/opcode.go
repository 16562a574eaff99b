// Package code implements the bytecode instruction format and the code
// generator buffer the parser emits into directly (spec §4.5, §4.7): no
// separate AST or control-flow-graph pass, following the single-pass
// architecture spec.md calls for. The Generator is a flat instruction
// buffer with label fixups rather than a tree-shaped IR.
package code

import "fmt"

// Opcode identifies one VM instruction (spec §4.7: "~40 opcodes").
type Opcode uint8

//nolint:revive
const (
	NOP Opcode = iota

	// stack manipulation
	PUSH
	PUSH_STRING
	PUSH_ZERO
	PUSH_LOCAL_PTR
	PUSH_LOCAL_PTR_ZERO
	PUSH_LOCAL
	PUSH_REG
	PUSH_UPVALUE
	POP
	POP_REG
	DUP
	SWAP
	ZERO

	// memory
	DEREF
	ASSIGN
	ASSIGN_PARAM

	// reference counting
	CHANGE_REF_CNT
	CHANGE_REF_CNT_GLOBAL
	CHANGE_REF_CNT_LOCAL
	CHANGE_REF_CNT_ASSIGN

	// arithmetic
	UNARY
	BINARY

	// composite access
	GET_ARRAY_PTR
	GET_DYNARRAY_PTR
	GET_MAP_PTR
	GET_FIELD_PTR

	// type assertions
	ASSERT_TYPE
	ASSERT_RANGE

	// weak pointers
	WEAKEN_PTR
	STRENGTHEN_PTR

	// control
	GOTO
	GOTO_IF
	GOTO_IF_NOT
	CALL
	CALL_INDIRECT
	CALL_EXTERN
	CALL_BUILTIN
	RETURN
	ENTER_FRAME
	LEAVE_FRAME
	HALT

	// peephole-fused pairs (spec §4.5: "PUSH+DEREF and SWAP+ASSIGN fuse into
	// a single instruction")
	PUSH_DEREF
	SWAP_ASSIGN

	numOpcodes
)

var opcodeNames = [...]string{
	NOP:                   "nop",
	PUSH:                  "push",
	PUSH_STRING:           "push_string",
	PUSH_ZERO:             "push_zero",
	PUSH_LOCAL_PTR:        "push_local_ptr",
	PUSH_LOCAL_PTR_ZERO:   "push_local_ptr_zero",
	PUSH_LOCAL:            "push_local",
	PUSH_REG:              "push_reg",
	PUSH_UPVALUE:          "push_upvalue",
	POP:                   "pop",
	POP_REG:               "pop_reg",
	DUP:                   "dup",
	SWAP:                  "swap",
	ZERO:                  "zero",
	DEREF:                 "deref",
	ASSIGN:                "assign",
	ASSIGN_PARAM:          "assign_param",
	CHANGE_REF_CNT:        "change_ref_cnt",
	CHANGE_REF_CNT_GLOBAL: "change_ref_cnt_global",
	CHANGE_REF_CNT_LOCAL:  "change_ref_cnt_local",
	CHANGE_REF_CNT_ASSIGN: "change_ref_cnt_assign",
	UNARY:                 "unary",
	BINARY:                "binary",
	GET_ARRAY_PTR:         "get_array_ptr",
	GET_DYNARRAY_PTR:      "get_dynarray_ptr",
	GET_MAP_PTR:           "get_map_ptr",
	GET_FIELD_PTR:         "get_field_ptr",
	ASSERT_TYPE:           "assert_type",
	ASSERT_RANGE:          "assert_range",
	WEAKEN_PTR:            "weaken_ptr",
	STRENGTHEN_PTR:        "strengthen_ptr",
	GOTO:                  "goto",
	GOTO_IF:               "goto_if",
	GOTO_IF_NOT:           "goto_if_not",
	CALL:                  "call",
	CALL_INDIRECT:         "call_indirect",
	CALL_EXTERN:           "call_extern",
	CALL_BUILTIN:          "call_builtin",
	RETURN:                "return",
	ENTER_FRAME:           "enter_frame",
	LEAVE_FRAME:           "leave_frame",
	HALT:                  "halt",
	PUSH_DEREF:            "push_deref",
	SWAP_ASSIGN:           "swap_assign",
}

func (op Opcode) String() string {
	if op < numOpcodes {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal opcode (%d)", op)
}

// Return-address sentinels (spec §4.7: "RETURN distinguishes three
// return-address sentinels").
const (
	ReturnNormal       int32 = 0
	ReturnFromFiber    int32 = -1
	ReturnFromVM       int32 = -2
)

// Builtin identifies a CALL_BUILTIN dispatch target (spec §4.9).
type Builtin uint16

//nolint:revive
const (
	BuiltinPrintf Builtin = iota
	BuiltinFprintf
	BuiltinSprintf
	BuiltinScanf
	BuiltinFscanf
	BuiltinSscanf
	BuiltinReal
	BuiltinRound
	BuiltinTrunc
	BuiltinCeil
	BuiltinFloor
	BuiltinAbs
	BuiltinFabs
	BuiltinSqrt
	BuiltinSin
	BuiltinCos
	BuiltinAtan
	BuiltinAtan2
	BuiltinExp
	BuiltinLog
	BuiltinLen
	BuiltinSizeof
	BuiltinSizeofSelf
	BuiltinMake
	BuiltinMakeFromArr
	BuiltinMakeFromStr
	BuiltinCopy
	BuiltinAppend
	BuiltinInsert
	BuiltinDelete
	BuiltinSlice
	BuiltinSort
	BuiltinSortFast
	BuiltinResume
	BuiltinExit
	BuiltinKeys
	BuiltinConcat
	BuiltinSelf

	// MapPtrSelector is not a CALL_BUILTIN target itself; internal/builtin
	// registers its GET_MAP_PTR implementation under this reserved selector
	// so internal/vm can dispatch that opcode through the same
	// map[Builtin]BuiltinFunc registry as CALL_BUILTIN, keeping the map
	// runtime's dolthub/swiss dependency out of internal/vm (spec §4.7
	// "GET_MAP_PTR creates the node if missing").
	MapPtrSelector Builtin = 1<<16 - 1
)
