package vm

import (
	"github.com/willow-lang/willow/internal/code"
)

// Run drives the dispatch loop for fiber f until it returns past the
// VM/fiber boundary or a RuntimeError occurs (spec §4.7). It is a plain
// switch over Opcode — Go has no portable computed-goto, so the switch is
// the idiomatic dispatch mechanism (see SPEC_FULL.md §9's note on the one
// stdlib-bound performance tradeoff this module accepts).
func (m *VM) Run(f *Fiber) error {
	prevCurrent := m.Current
	m.Current = f
	defer func() { m.Current = prevCurrent }()

	var steps int64
	for f.Alive {
		if m.MaxSteps > 0 {
			steps++
			if steps > m.MaxSteps {
				return runtimeErrorf(f.IP, 0, "step limit exceeded")
			}
		}
		if f.IP < 0 || f.IP >= len(f.Code) {
			return runtimeErrorf(f.IP, 0, "instruction pointer out of range")
		}
		in := f.Code[f.IP]
		ip := f.IP
		f.IP++

		switch in.Op {
		case code.NOP:
			// nothing

		case code.HALT:
			f.Alive = false
			return nil

		case code.PUSH:
			var s Slot
			switch {
			case in.Kind.IsReal():
				s = RealSlot(in.Operand.Real)
			case in.Kind.IsUnsignedInt():
				// Operand carries only a signed int64 field; an unsigned
				// literal's bits are stored there unchanged and just need
				// reinterpreting (spec §4.7 "a bare Slot carries no type
				// tag of its own" — the instruction's Kind is what tells
				// PUSH which union member the bit pattern belongs in).
				s = UintSlot(uint64(in.Operand.Int))
			default:
				s = IntSlot(in.Operand.Int)
			}
			if err := f.push(s); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.PUSH_STRING:
			p := m.Heap.Alloc(len(in.Operand.Str), in.Type, nil, false, 0)
			data, _ := m.Heap.Deref(p)
			copy(data, in.Operand.Str)
			if err := f.push(PtrSlot(p)); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.PUSH_ZERO:
			for i := int64(0); i < in.Operand.Int; i++ {
				if err := f.push(Slot{}); err != nil {
					return wrap(ip, in.Line, err)
				}
			}

		case code.PUSH_LOCAL_PTR:
			// The local slot already holds a pointer to heap-backed storage,
			// set up by an earlier PUSH_LOCAL_PTR_ZERO at its declaration
			// (spec §4.7 "PUSH_LOCAL_PTR pushes the address of local idx").
			if err := f.push(f.Stack[f.LocalAddr(int32(in.Operand.Int))]); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.PUSH_LOCAL_PTR_ZERO:
			// Locals whose address is ever taken live in a heap chunk marked
			// isStack rather than directly in the Go-typed stack slot, since
			// GET_FIELD_PTR/GET_ARRAY_PTR need byte-addressable storage a
			// bare Slot cannot provide (spec §4.7 "storage is zero-filled").
			p := m.allocStack(in.Type)
			local := PtrSlot(p)
			f.Stack[f.LocalAddr(int32(in.Operand.Int))] = local
			if err := f.push(local); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.PUSH_LOCAL:
			if err := f.push(f.Stack[f.LocalAddr(int32(in.Operand.Int))]); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.PUSH_REG:
			if err := f.push(f.Reg[in.Operand.Int]); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.PUSH_UPVALUE:
			// Upvalues are captured by value into the closure's hidden first
			// local slot at call time (spec §3 "Closure": one captured value
			// packed as an interface); PUSH_UPVALUE re-reads that slot.
			if err := f.push(f.Stack[f.LocalAddr(int32(in.Operand.Int))]); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.POP:
			f.pop()

		case code.POP_REG:
			f.Reg[in.Operand.Int] = f.pop()

		case code.DUP:
			if err := f.push(*f.peek(0)); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.SWAP:
			a, b := f.peek(0), f.peek(1)
			*a, *b = *b, *a

		case code.ZERO:
			*f.peek(0) = Slot{}

		case code.DEREF, code.PUSH_DEREF:
			addr := f.peek(0)
			s, err := m.derefSlot(*addr, in.Kind)
			if err != nil {
				return wrap(ip, in.Line, err)
			}
			*addr = s

		case code.ASSIGN, code.SWAP_ASSIGN:
			if in.Op == code.SWAP_ASSIGN {
				a, b := f.peek(0), f.peek(1)
				*a, *b = *b, *a
			}
			val := f.pop()
			addr := f.pop()
			if err := m.assignSlot(addr, val, in.Kind); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.ASSIGN_PARAM:
			val := f.pop()
			addr := f.pop()
			if err := m.assignSlot(addr, val, in.Kind); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.CHANGE_REF_CNT:
			p := f.peek(0)
			if _, err := m.Heap.ChangeRefCnt(p.Ptr, int32(in.Operand.Int)); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.CHANGE_REF_CNT_GLOBAL:
			addr := f.pop()
			s, err := m.derefSlot(addr, in.Kind)
			if err != nil {
				return wrap(ip, in.Line, err)
			}
			if _, err := m.Heap.ChangeRefCnt(s.Ptr, int32(in.Operand.Int)); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.CHANGE_REF_CNT_LOCAL:
			f.ChangeFrameRefCnt(int32(in.Operand.Int))

		case code.CHANGE_REF_CNT_ASSIGN:
			rhs := f.pop()
			addr := f.pop()
			old, err := m.derefSlot(addr, in.Kind)
			if err == nil && !old.Ptr.IsNull() {
				_, _ = m.Heap.ChangeRefCnt(old.Ptr, -1)
			}
			if !rhs.Ptr.IsNull() {
				if _, err := m.Heap.ChangeRefCnt(rhs.Ptr, 1); err != nil {
					return wrap(ip, in.Line, err)
				}
			}
			if err := m.assignSlot(addr, rhs, in.Kind); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.UNARY:
			x := f.pop()
			z, err := unary(in.Tok, in.Kind, x)
			if err != nil {
				return wrap(ip, in.Line, err)
			}
			if err := f.push(z); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.BINARY:
			y := f.pop()
			x := f.pop()
			z, err := binary(in.Tok, in.Kind, x, y)
			if err != nil {
				return wrap(ip, in.Line, err)
			}
			if err := f.push(z); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.WEAKEN_PTR:
			p := f.peek(0)
			p.Ptr = m.Heap.Weaken(p.Ptr)

		case code.STRENGTHEN_PTR:
			p := f.peek(0)
			strong, err := m.Heap.Strengthen(p.Ptr)
			if err != nil {
				return wrap(ip, in.Line, err)
			}
			p.Ptr = strong

		case code.GOTO:
			f.IP = int(in.Operand.Int)

		case code.GOTO_IF:
			if f.pop().Bool() {
				f.IP = int(in.Operand.Int)
			}

		case code.GOTO_IF_NOT:
			if !f.pop().Bool() {
				f.IP = int(in.Operand.Int)
			}

		case code.ENTER_FRAME:
			if err := f.EnterFrame(in.Operand.A, in.Operand.B); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.LEAVE_FRAME, code.RETURN:
			// Both opcodes pop the current call frame and resume at its
			// caller; RETURN is the mnemonic the compiler emits after a
			// return statement's value has been moved into RegResult,
			// LEAVE_FRAME the one emitted for implicit fall-off-the-end
			// returns (spec §4.7 "Call frame layout").
			done, err := m.doReturn(f, in)
			if err != nil {
				return wrap(ip, in.Line, err)
			}
			if done {
				return nil
			}

		case code.CALL:
			if err := f.push(IntSlot(int64(f.IP))); err != nil {
				return wrap(ip, in.Line, err)
			}
			f.IP = int(in.Operand.Int)

		case code.CALL_INDIRECT:
			entry := f.pop()
			if err := f.push(IntSlot(int64(f.IP))); err != nil {
				return wrap(ip, in.Line, err)
			}
			f.IP = int(entry.I)

		case code.CALL_EXTERN:
			fn, ok := m.Externs[int32(in.Operand.Int)]
			if !ok {
				return runtimeErrorf(ip, in.Line, "unregistered extern function %d", in.Operand.Int)
			}
			if err := fn(m, f); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.CALL_BUILTIN:
			fn, ok := m.Builtins[in.Operand.Builtin]
			if !ok {
				return runtimeErrorf(ip, in.Line, "unimplemented builtin %d", in.Operand.Builtin)
			}
			if err := fn(m, f, in); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.GET_FIELD_PTR:
			addr := f.peek(0)
			resolved, err := m.addrOf(*addr, int(in.Operand.Int))
			if err != nil {
				return wrap(ip, in.Line, err)
			}
			*addr = resolved

		case code.GET_ARRAY_PTR:
			idx := f.pop()
			base := f.peek(0)
			length := in.Operand.Int
			if length < 0 {
				// negative length operand means "use the string's stored
				// length" (spec §4.7 GET_ARRAY_PTR).
				data, err := m.Heap.Deref(base.Ptr)
				if err != nil {
					return wrap(ip, in.Line, err)
				}
				length = int64(len(data))
			}
			if idx.I < 0 || idx.I >= length {
				return runtimeErrorf(ip, in.Line, "Index %d is out of range 0...%d", idx.I, length-1)
			}
			elemSize := 1
			if in.Type != nil {
				elemSize = typeSize(in.Type)
			}
			resolved, err := m.addrOf(*base, int(idx.I)*elemSize)
			if err != nil {
				return wrap(ip, in.Line, err)
			}
			*base = resolved

		case code.GET_DYNARRAY_PTR:
			idx := f.pop()
			base := f.peek(0)
			data, err := m.Heap.Deref(base.Ptr)
			if err != nil {
				return wrap(ip, in.Line, err)
			}
			elemSize := 1
			if in.Type != nil {
				elemSize = typeSize(in.Type)
			}
			n := int64(len(data)) / int64(max(elemSize, 1))
			if idx.I < 0 || idx.I >= n {
				return runtimeErrorf(ip, in.Line, "Index %d is out of range 0...%d", idx.I, n-1)
			}
			resolved, err := m.addrOf(*base, int(idx.I)*elemSize)
			if err != nil {
				return wrap(ip, in.Line, err)
			}
			*base = resolved

		case code.GET_MAP_PTR:
			// Map node lookup/creation is implemented on top of the builtin
			// map runtime (internal/builtin), registered as a pseudo-builtin
			// so this package stays independent of the swiss-map dependency.
			fn, ok := m.Builtins[code.MapPtrSelector]
			if !ok {
				return runtimeErrorf(ip, in.Line, "map runtime not registered")
			}
			if err := fn(m, f, in); err != nil {
				return wrap(ip, in.Line, err)
			}

		case code.ASSERT_TYPE:
			v := f.peek(0)
			ok := !v.Ptr.IsNull()
			if !ok {
				v.Ptr = 0
			}

		case code.ASSERT_RANGE:
			v := f.peek(0)
			lo, hi := rangeOf(in.Kind)
			if v.I < lo || v.I > hi {
				return runtimeErrorf(ip, in.Line, "value %d out of range for %s", v.I, in.Kind.String())
			}

		default:
			return runtimeErrorf(ip, in.Line, "unimplemented opcode %s", in.Op)
		}
	}
	return nil
}

func wrap(ip, line int, err error) error {
	if re, ok := err.(*RuntimeError); ok {
		if re.IP == 0 {
			re.IP = ip
		}
		if re.Line == 0 {
			re.Line = line
		}
		return re
	}
	return runtimeErrorf(ip, line, "%s", err.Error())
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
