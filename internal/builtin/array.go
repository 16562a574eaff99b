package builtin

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/types"
	"github.com/willow-lang/willow/internal/vm"
)

// writeElemSlot encodes s into data (which must be at least elemSize(t)
// bytes) according to t's scalar kind, so append/insert preserve reals and
// sub-64-bit integers rather than always writing an 8-byte int.
func writeElemSlot(data []byte, t *types.Type, s vm.Slot) {
	width := elemSize(t)
	var k types.Kind
	if t != nil {
		k = t.Kind
	}
	switch {
	case k.IsReal():
		bits := math.Float64bits(s.R)
		if width == 4 {
			binary.LittleEndian.PutUint32(data, math.Float32bits(float32(s.R)))
		} else {
			binary.LittleEndian.PutUint64(data, bits)
		}
	case k.IsUnsignedInt():
		putUint(data, width, s.U)
	default:
		putUint(data, width, uint64(s.I))
	}
}

// readElemSlot is writeElemSlot's inverse, used by sort/sortfast to lift a
// raw array element back into a Slot for comparison or as a comparator
// callback argument.
func readElemSlot(data []byte, t *types.Type) vm.Slot {
	width := elemSize(t)
	var k types.Kind
	if t != nil {
		k = t.Kind
	}
	switch {
	case k.IsReal():
		if width == 4 {
			return vm.RealSlot(float64(math.Float32frombits(binary.LittleEndian.Uint32(data))))
		}
		return vm.RealSlot(math.Float64frombits(binary.LittleEndian.Uint64(data)))
	case k.IsUnsignedInt():
		return vm.UintSlot(getUint(data, width))
	default:
		return vm.IntSlot(int64(getUint(data, width)))
	}
}

func getUint(data []byte, width int) uint64 {
	switch width {
	case 1:
		return uint64(data[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(data))
	case 4:
		return uint64(binary.LittleEndian.Uint32(data))
	default:
		return binary.LittleEndian.Uint64(data[:min(len(data), 8)])
	}
}

// compareSlots orders two scalar slots of the same type for sortfast's
// callback-free comparison (spec §4.9 "sortfast... valid only for ordinal
// element types").
func compareSlots(a, b vm.Slot, t *types.Type) int {
	var k types.Kind
	if t != nil {
		k = t.Kind
	}
	switch {
	case k.IsReal():
		switch {
		case a.R < b.R:
			return -1
		case a.R > b.R:
			return 1
		default:
			return 0
		}
	case k.IsUnsignedInt():
		switch {
		case a.U < b.U:
			return -1
		case a.U > b.U:
			return 1
		default:
			return 0
		}
	default:
		switch {
		case a.I < b.I:
			return -1
		case a.I > b.I:
			return 1
		default:
			return 0
		}
	}
}

func putUint(data []byte, width int, v uint64) {
	switch width {
	case 1:
		data[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(data, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(data, uint32(v))
	default:
		binary.LittleEndian.PutUint64(data[:min(len(data), 8)], v)
	}
}

// registerArray wires the polymorphic value builtins that operate on
// dynamic arrays, strings and maps alike — make/len/sizeof/copy/append/
// insert/delete/slice — each driven by in.Type the same way GET_ARRAY_PTR
// and GET_DYNARRAY_PTR read an element type off their triggering
// instruction (spec §4.9). maps lets make() and len() hand map operands
// off to the same registry registerMap populates; sizeof() reads only
// in.Type.
func registerArray(m *vm.VM, maps *mapRegistry, fibers *fiberRegistry) {
	m.RegisterBuiltin(code.BuiltinMake, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		if in.Type != nil && in.Type.Kind == types.Map {
			p := maps.create(m, in.Type.Key, in.Type.Base)
			return f.Push(vm.PtrSlot(p))
		}
		if in.Type != nil && in.Type.Kind == types.Fiber {
			// Stack layout: [entry, arg0, arg1, ..., argN-1], argument count
			// in in.Operand.Int (spec §4.9 "make... fiber: allocates a child
			// fiber... pushing upvalues").
			n := int(in.Operand.Int)
			args := make([]vm.Slot, n)
			for i := n - 1; i >= 0; i-- {
				args[i] = f.Pop()
			}
			entry := f.Pop()
			p, err := fibers.spawn(m, f, int32(entry.I), args)
			if err != nil {
				return err
			}
			return f.Push(vm.PtrSlot(p))
		}
		n := f.Pop().I
		width := elemSize(in.Type)
		p := m.Heap.Alloc(int(n)*width, in.Type, nil, false, 0)
		return f.Push(vm.PtrSlot(p))
	})

	m.RegisterBuiltin(code.BuiltinMakeFromArr, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		src := f.Pop()
		data, err := m.Heap.Deref(src.Ptr)
		if err != nil {
			return err
		}
		p := m.Heap.Alloc(len(data), in.Type, nil, false, 0)
		dst, _ := m.Heap.Deref(p)
		copy(dst, data)
		return f.Push(vm.PtrSlot(p))
	})

	m.RegisterBuiltin(code.BuiltinMakeFromStr, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		src := f.Pop()
		data, err := m.Heap.Deref(src.Ptr)
		if err != nil {
			return err
		}
		p := m.Heap.Alloc(len(data), in.Type, nil, false, 0)
		dst, _ := m.Heap.Deref(p)
		copy(dst, data)
		return f.Push(vm.PtrSlot(p))
	})

	m.RegisterBuiltin(code.BuiltinLen, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		s := f.Pop()
		if in.Type != nil && in.Type.Kind == types.Map {
			return f.Push(vm.IntSlot(int64(maps.length(s.Ptr))))
		}
		data, err := m.Heap.Deref(s.Ptr)
		if err != nil {
			return f.Push(vm.IntSlot(0))
		}
		width := elemSize(in.Type)
		if width == 0 {
			width = 1
		}
		return f.Push(vm.IntSlot(int64(len(data) / width)))
	})

	m.RegisterBuiltin(code.BuiltinSizeof, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		return f.Push(vm.IntSlot(int64(elemSize(in.Type))))
	})

	m.RegisterBuiltin(code.BuiltinSizeofSelf, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		s := f.Pop()
		data, err := m.Heap.Deref(s.Ptr)
		if err != nil {
			return f.Push(vm.IntSlot(0))
		}
		return f.Push(vm.IntSlot(int64(len(data))))
	})

	m.RegisterBuiltin(code.BuiltinCopy, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		src := f.Pop()
		data, err := m.Heap.Deref(src.Ptr)
		if err != nil {
			return err
		}
		p := m.Heap.Alloc(len(data), in.Type, nil, false, 0)
		dst, _ := m.Heap.Deref(p)
		copy(dst, data)
		return f.Push(vm.PtrSlot(p))
	})

	m.RegisterBuiltin(code.BuiltinAppend, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		width := elemSize(in.Type)
		item := f.Pop()
		src := f.Pop()
		itemBytes := make([]byte, width)
		writeElemSlot(itemBytes, in.Type, item)

		old, err := m.Heap.Deref(src.Ptr)
		if err != nil {
			return err
		}
		p := m.Heap.Alloc(len(old)+width, in.Type, nil, false, 0)
		dst, _ := m.Heap.Deref(p)
		copy(dst, old)
		copy(dst[len(old):], itemBytes)
		return f.Push(vm.PtrSlot(p))
	})

	m.RegisterBuiltin(code.BuiltinInsert, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		width := elemSize(in.Type)
		item := f.Pop()
		idx := f.Pop().I
		src := f.Pop()
		old, err := m.Heap.Deref(src.Ptr)
		if err != nil {
			return err
		}
		at := int(idx) * width
		if at < 0 || at > len(old) {
			return fmt.Errorf("insert: index %d out of range", idx)
		}
		p := m.Heap.Alloc(len(old)+width, in.Type, nil, false, 0)
		dst, _ := m.Heap.Deref(p)
		copy(dst, old[:at])
		writeElemSlot(dst[at:at+width], in.Type, item)
		copy(dst[at+width:], old[at:])
		return f.Push(vm.PtrSlot(p))
	})

	m.RegisterBuiltin(code.BuiltinDelete, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		width := elemSize(in.Type)
		idx := f.Pop().I
		src := f.Pop()
		old, err := m.Heap.Deref(src.Ptr)
		if err != nil {
			return err
		}
		at := int(idx) * width
		if at < 0 || at+width > len(old) {
			return fmt.Errorf("delete: index %d out of range", idx)
		}
		p := m.Heap.Alloc(len(old)-width, in.Type, nil, false, 0)
		dst, _ := m.Heap.Deref(p)
		copy(dst, old[:at])
		copy(dst[at:], old[at+width:])
		return f.Push(vm.PtrSlot(p))
	})

	m.RegisterBuiltin(code.BuiltinSlice, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		width := elemSize(in.Type)
		if width == 0 {
			width = 1
		}
		end := f.Pop().I
		start := f.Pop().I
		src := f.Pop()
		old, err := m.Heap.Deref(src.Ptr)
		if err != nil {
			return err
		}
		lo, hi := int(start)*width, int(end)*width
		if lo < 0 || hi > len(old) || lo > hi {
			return fmt.Errorf("slice: range [%d:%d) out of bounds", start, end)
		}
		p := m.Heap.Alloc(hi-lo, in.Type, nil, false, 0)
		dst, _ := m.Heap.Deref(p)
		copy(dst, old[lo:hi])
		return f.Push(vm.PtrSlot(p))
	})
}
