// Package ffi is the stubbed host-call bridge spec.md's §5/§6 describe: a
// registration surface host code uses to expose Go functions to compiled
// scripts, resolved by name "at link/prototype time" (spec §6
// "add-func(name, func-pointer)"), without an actual C calling-convention
// bridge — there is no cgo here, no struct-layout marshaling, no varargs
// promotion. internal/vm's CALL_EXTERN opcode only knows a numeric
// selector (internal/vm.VM.RegisterExtern(id int32, ...)); Bridge is the
// thin layer translating a host-facing name into that selector.
package ffi

import (
	"fmt"

	"github.com/willow-lang/willow/internal/vm"
)

// Bridge assigns a stable CALL_EXTERN selector to each name registered
// through it and keeps the two directions (name -> id, id already taken)
// so a host can register functions in any order without colliding.
type Bridge struct {
	rt   *vm.VM
	ids  map[string]int32
	next int32
}

// NewBridge wraps rt, ready to register host functions against it.
func NewBridge(rt *vm.VM) *Bridge {
	return &Bridge{rt: rt, ids: make(map[string]int32)}
}

// Register assigns name its CALL_EXTERN selector (allocating one the first
// time name is seen, reusing it on a later call so a host can replace a
// previously registered implementation) and installs fn as the handler.
// fn receives the fiber's top len(argc) slots, already popped in
// left-to-right order, and its return value is pushed back — the same
// [args..., result] convention internal/builtin's CALL_BUILTIN handlers
// use, so a host function is indistinguishable from a built-in one to
// compiled code.
func (b *Bridge) Register(name string, argc int, fn func(args []vm.Slot) (vm.Slot, error)) int32 {
	id, ok := b.ids[name]
	if !ok {
		id = b.next
		b.next++
		b.ids[name] = id
	}
	b.rt.RegisterExtern(id, func(m *vm.VM, f *vm.Fiber) error {
		args := make([]vm.Slot, argc)
		for i := argc - 1; i >= 0; i-- {
			args[i] = f.Pop()
		}
		res, err := fn(args)
		if err != nil {
			return err
		}
		return f.Push(res)
	})
	return id
}

// Resolve returns the selector previously assigned to name, if any. A host
// embedding layer that also controls the compiled script (e.g. generating
// a CALL_EXTERN itself rather than relying on the surface grammar, which
// has no extern-call syntax of its own) uses this to emit the right
// operand.
func (b *Bridge) Resolve(name string) (int32, bool) {
	id, ok := b.ids[name]
	return id, ok
}

// Names returns every name currently registered, for diagnostics.
func (b *Bridge) Names() []string {
	names := make([]string, 0, len(b.ids))
	for name := range b.ids {
		names = append(names, name)
	}
	return names
}

// ErrUnresolved is returned by a Bridge consumer when a CALL_EXTERN site
// names a function nothing ever registered.
func ErrUnresolved(name string) error {
	return fmt.Errorf("extern function %q is not registered", name)
}
