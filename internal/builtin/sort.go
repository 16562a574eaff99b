package builtin

import (
	"sort"

	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/vm"
)

// registerSort wires sort()/sortfast(): sort() takes a comparator closure
// entry point and re-enters the dispatch loop once per comparison via
// vm.VM.Call (spec §4.9 "sort... re-entering the dispatch loop"), sortfast()
// skips the callback and compares elements by their raw scalar bytes for a
// fixed-width element type instead.
func registerSort(m *vm.VM) {
	m.RegisterBuiltin(code.BuiltinSort, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		entry := f.Pop()
		arr := f.Pop()
		width := elemSize(in.Type)
		data, err := m.Heap.Deref(arr.Ptr)
		if err != nil {
			return err
		}
		n := len(data) / max1(width)
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}

		var sortErr error
		sort.SliceStable(idx, func(a, b int) bool {
			if sortErr != nil {
				return false
			}
			sa := readElemSlot(data[idx[a]*width:], in.Type)
			sb := readElemSlot(data[idx[b]*width:], in.Type)
			res, err := m.Call(f, int32(entry.I), []vm.Slot{sa, sb})
			if err != nil {
				sortErr = err
				return false
			}
			return res.I < 0
		})
		if sortErr != nil {
			return sortErr
		}

		out := make([]byte, len(data))
		for i, j := range idx {
			copy(out[i*width:(i+1)*width], data[j*width:(j+1)*width])
		}
		copy(data, out)
		return nil
	})

	m.RegisterBuiltin(code.BuiltinSortFast, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		arr := f.Pop()
		width := elemSize(in.Type)
		data, err := m.Heap.Deref(arr.Ptr)
		if err != nil {
			return err
		}
		n := len(data) / max1(width)
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			sa := readElemSlot(data[idx[a]*width:], in.Type)
			sb := readElemSlot(data[idx[b]*width:], in.Type)
			return compareSlots(sa, sb, in.Type) < 0
		})
		out := make([]byte, len(data))
		for i, j := range idx {
			copy(out[i*width:(i+1)*width], data[j*width:(j+1)*width])
		}
		copy(data, out)
		return nil
	})
}

func max1(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
