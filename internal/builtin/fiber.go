package builtin

import (
	"fmt"

	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/heap"
	"github.com/willow-lang/willow/internal/vm"
)

// fiberRegistry ties a heap.Ptr handle to the *vm.Fiber it names, the same
// pattern mapRegistry uses for swiss.Map values: a Willow fiber value is a
// zero-size ref-counted heap chunk whose onFree deregisters the Go-side
// Fiber once the last reference to it drops (spec §4.9 "make... fiber:
// allocates a child fiber copying parent stack-size/flags").
type fiberRegistry struct {
	byPtr   map[heap.Ptr]*vm.Fiber
	byFiber map[*vm.Fiber]heap.Ptr
}

func newFiberRegistry() *fiberRegistry {
	return &fiberRegistry{
		byPtr:   make(map[heap.Ptr]*vm.Fiber),
		byFiber: make(map[*vm.Fiber]heap.Ptr),
	}
}

// handleFor returns the heap handle naming f, creating one if f has never
// been handed out as a fiber value before. This covers the currently
// running fiber, which spawn never registers on its own: a child whose
// first declared parameter is ^fiber (spec §4.9 "a function... may declare
// a leading ^fiber parameter to receive the fiber that resumed it") needs a
// handle for its caller even though that caller may be the root fiber or
// one resumed directly by Go code, not by make(fiber, ...).
func (r *fiberRegistry) handleFor(m *vm.VM, f *vm.Fiber) heap.Ptr {
	if p, ok := r.byFiber[f]; ok {
		return p
	}
	var p heap.Ptr
	p = m.Heap.Alloc(0, nil, func([]byte) {
		delete(r.byPtr, p)
		delete(r.byFiber, f)
	}, false, 0)
	r.byPtr[p] = f
	r.byFiber[f] = p
	return p
}

// spawn creates a child of parent, with the same stack size, starting at
// entry with argSlots already evaluated, returning the handle a
// `fiber`-typed local should hold.
func (r *fiberRegistry) spawn(m *vm.VM, parent *vm.Fiber, entry int32, argSlots []vm.Slot) (heap.Ptr, error) {
	child := vm.NewFiber(parent.Code, len(parent.Stack), parent)
	// NewFiber seeds the RETURN_FROM_FIBER sentinel immediately below any
	// frame the child's own ENTER_FRAME will build, assuming a zero-arg
	// entry point; move it back above the upvalues being pushed here so
	// the sentinel stays adjacent to the frame header regardless of how
	// many arguments this child's entry function takes (spec §4.9
	// "make... fiber: ...pushing upvalues and a RETURN_FROM_FIBER
	// sentinel" — upvalues first, sentinel last).
	sentinel := child.Pop()
	for _, a := range argSlots {
		if err := child.Push(a); err != nil {
			return heap.NullPtr, err
		}
	}
	if err := child.Push(sentinel); err != nil {
		return heap.NullPtr, err
	}
	child.IP = int(entry)

	var p heap.Ptr
	p = m.Heap.Alloc(0, nil, func([]byte) {
		delete(r.byPtr, p)
		delete(r.byFiber, child)
	}, false, 0)
	r.byPtr[p] = child
	r.byFiber[child] = p
	return p, nil
}

func (r *fiberRegistry) get(p heap.Ptr) (*vm.Fiber, bool) {
	f, ok := r.byPtr[p]
	return f, ok
}

// registerFiber wires resume()/exit() against the shared fiberRegistry;
// make(fiber, ...) itself is dispatched from array.go's BuiltinMake, which
// needs the same registry to allocate the child and hand back its handle
// (spec §4.9 "resume... switches the currently running fiber pointer").
func registerFiber(m *vm.VM, reg *fiberRegistry) {
	m.RegisterBuiltin(code.BuiltinResume, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		var target *vm.Fiber
		if in.Operand.Int == 0 {
			target = f.Parent
			if target == nil {
				return fmt.Errorf("resume: fiber has no parent")
			}
		} else {
			handle := f.Pop()
			t, ok := reg.get(handle.Ptr)
			if !ok {
				return fmt.Errorf("resume: not a fiber")
			}
			target = t
		}
		if !target.Alive {
			// Resuming a dead fiber is a no-op that stays on the caller
			// (spec §4.9 "if the named child is dead, no-op to the same
			// fiber").
			return nil
		}
		return m.Run(target)
	})

	m.RegisterBuiltin(code.BuiltinExit, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		f.Alive = false
		return nil
	})

	m.RegisterBuiltin(code.BuiltinSelf, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		return f.Push(vm.PtrSlot(reg.handleFor(m, f)))
	})
}
