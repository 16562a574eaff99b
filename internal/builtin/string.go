package builtin

import (
	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/types"
	"github.com/willow-lang/willow/internal/vm"
)

// registerString wires the one string-specific arithmetic operator the
// scalar BINARY opcode cannot express: concatenation allocates a brand new
// heap chunk, something internal/vm's dispatch loop deliberately knows
// nothing about (spec §4.9; same GET_MAP_PTR-style split that keeps
// heap-aware logic out of internal/vm).
func registerString(m *vm.VM) {
	m.RegisterBuiltin(code.BuiltinConcat, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		rhs := f.Pop()
		lhs := f.Pop()
		lb, err := m.Heap.Deref(lhs.Ptr)
		if err != nil {
			return err
		}
		rb, err := m.Heap.Deref(rhs.Ptr)
		if err != nil {
			return err
		}
		p := m.Heap.Alloc(len(lb)+len(rb), &types.Type{Kind: types.String}, nil, false, 0)
		data, _ := m.Heap.Deref(p)
		n := copy(data, lb)
		copy(data[n:], rb)
		return f.Push(vm.PtrSlot(p))
	})
}
