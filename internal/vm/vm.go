package vm

import (
	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/heap"
)

// BuiltinFunc implements one CALL_BUILTIN (or GET_MAP_PTR) dispatch
// target; it manipulates the current fiber's stack directly. in is
// the triggering instruction, carrying the result/element type a
// polymorphic builtin like make/append/sizeof needs in in.Type and any
// extra selector bits in in.Operand. Builtins live in internal/builtin to
// avoid this package depending on them.
type BuiltinFunc func(m *VM, f *Fiber, in code.Instr) error

// ExternFunc implements a host-registered CALL_EXTERN target (spec §5 FFI
// bridge).
type ExternFunc func(m *VM, f *Fiber) error

// VM owns the heap and the currently-scheduled fiber tree (spec §4.7,
// §4.9). Exactly one fiber is ever running at a time — see Fiber's doc
// comment for why fibers are not goroutines.
type VM struct {
	Heap *heap.Heap

	Builtins map[code.Builtin]BuiltinFunc
	Externs  map[int32]ExternFunc

	Current *Fiber

	// MaxSteps bounds the number of instructions Run will dispatch before
	// failing with a step-limit error. Zero means unlimited.
	MaxSteps int64
}

// New creates a VM with an empty heap and no registered builtins/externs.
func New(onLeak func(string)) *VM {
	return &VM{
		Heap:     heap.New(onLeak),
		Builtins: make(map[code.Builtin]BuiltinFunc),
		Externs:  make(map[int32]ExternFunc),
	}
}

// RegisterBuiltin installs the implementation for a CALL_BUILTIN selector.
func (m *VM) RegisterBuiltin(b code.Builtin, fn BuiltinFunc) {
	m.Builtins[b] = fn
}

// RegisterExtern installs a host function reachable via CALL_EXTERN at
// entry id (spec §5 "FFI bridge").
func (m *VM) RegisterExtern(id int32, fn ExternFunc) {
	m.Externs[id] = fn
}

// Close releases the heap, reporting leaks through the onLeak callback
// passed to New.
func (m *VM) Close() { m.Heap.Close() }
