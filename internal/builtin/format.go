package builtin

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/heap"
	"github.com/willow-lang/willow/internal/vm"
)

// writeInt64 writes v into the first 8 bytes of data, little-endian — the
// same byte order internal/heap's scalar accessors use, so a value written
// here by scanf and later read through DEREF round-trips correctly.
func writeInt64(data []byte, v int64) {
	binary.LittleEndian.PutUint64(data, uint64(v))
}

// registerFormat wires the printf/scanf family (spec §4.9: "iterate the
// format string one conversion at a time"). The stack ABI, bottom to top,
// is [formatPtr, arg0, arg1, ...]; in.Operand.Int carries the argument
// count so the builtin knows how many slots above formatPtr belong to it.
// Each conversion's interpretation of a Slot (as I, U, R or a string
// pointer) is driven entirely by the format character itself, since a
// bare Slot carries no type tag of its own (spec §3 "Instruction operand
// union" — kinds live on the instruction, not the runtime value).
func registerFormat(m *vm.VM) {
	m.RegisterBuiltin(code.BuiltinPrintf, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		s, err := formatArgs(m, f, in)
		if err != nil {
			return err
		}
		fmt.Print(s)
		return nil
	})
	m.RegisterBuiltin(code.BuiltinSprintf, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		s, err := formatArgs(m, f, in)
		if err != nil {
			return err
		}
		p := m.Heap.Alloc(len(s), nil, nil, false, 0)
		data, _ := m.Heap.Deref(p)
		copy(data, s)
		return f.Push(vm.PtrSlot(p))
	})
	m.RegisterBuiltin(code.BuiltinFprintf, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		// A real implementation dispatches on a host-provided io.Writer
		// handle; without a file/stream type wired up yet, this just
		// behaves like printf so calling code at least sees its output.
		s, err := formatArgs(m, f, in)
		if err != nil {
			return err
		}
		fmt.Print(s)
		return nil
	})

	m.RegisterBuiltin(code.BuiltinScanf, scanFromStdin)
	m.RegisterBuiltin(code.BuiltinSscanf, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		src := f.Pop()
		data, err := m.Heap.Deref(src.Ptr)
		if err != nil {
			return err
		}
		line := string(data)
		// re-push the format pointer scanInto expects to find and discard.
		if err := f.Push(src); err != nil {
			return err
		}
		return scanInto(m, f, in, line)
	})
	m.RegisterBuiltin(code.BuiltinFscanf, scanFromStdin)
}

func scanFromStdin(m *vm.VM, f *vm.Fiber, in code.Instr) error {
	var line string
	if _, err := fmt.Scanln(&line); err != nil {
		return err
	}
	return scanInto(m, f, in, line)
}

// scanInto parses whitespace-separated integer fields of line and writes
// each one through its destination pointer (an address left on the stack
// by the compiler, one per %d conversion), pushing the count of fields
// successfully assigned — scanf's return value (spec §4.9).
func scanInto(m *vm.VM, f *vm.Fiber, in code.Instr, line string) error {
	fields := strings.Fields(line)
	n := int(in.Operand.Int)
	dests := make([]vm.Slot, n)
	for i := n - 1; i >= 0; i-- {
		dests[i] = f.Pop()
	}
	f.Pop() // format string, unused by this simplified scanner

	count := int64(0)
	for i := 0; i < n && i < len(fields); i++ {
		v, err := strconv.ParseInt(fields[i], 10, 64)
		if err != nil {
			continue
		}
		data, err := m.Heap.Deref(dests[i].Ptr)
		if err != nil {
			continue
		}
		writeInt64(data, v)
		count++
	}
	return f.Push(vm.IntSlot(count))
}

// formatArgs renders the format string with its arguments, supporting the
// conversions spec §4.9 calls out explicitly: %d/%u/%f/%s/%c/%t and %v
// (pretty-print, depth-capped).
func formatArgs(m *vm.VM, f *vm.Fiber, in code.Instr) (string, error) {
	n := int(in.Operand.Int)
	args := make([]vm.Slot, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = f.Pop()
	}
	fp := f.Pop()
	data, err := m.Heap.Deref(fp.Ptr)
	if err != nil {
		return "", err
	}
	format := string(data)

	var b strings.Builder
	argi := 0
	next := func() (vm.Slot, error) {
		if argi >= len(args) {
			return vm.Slot{}, fmt.Errorf("not enough arguments for format string")
		}
		a := args[argi]
		argi++
		return a, nil
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i == len(format)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch format[i] {
		case '%':
			b.WriteByte('%')
		case 'd', 'i':
			a, err := next()
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "%d", a.I)
		case 'u':
			a, err := next()
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "%d", a.U)
		case 'f', 'g':
			a, err := next()
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "%g", a.R)
		case 'c':
			a, err := next()
			if err != nil {
				return "", err
			}
			b.WriteRune(rune(a.I))
		case 't':
			a, err := next()
			if err != nil {
				return "", err
			}
			b.WriteString(strconv.FormatBool(a.Bool()))
		case 's':
			a, err := next()
			if err != nil {
				return "", err
			}
			sd, err := m.Heap.Deref(a.Ptr)
			if err != nil {
				return "", fmt.Errorf("%%s argument is not a valid string")
			}
			b.Write(sd)
		case 'v':
			a, err := next()
			if err != nil {
				return "", err
			}
			b.WriteString(reprSlot(m, a, 0))
		default:
			return "", fmt.Errorf("Invalid format string")
		}
	}
	return b.String(), nil
}

// reprSlot renders a slot for %v without knowing its static type: a slot
// with a null pointer prints as its integer value, one holding a live heap
// pointer as the quoted bytes of that chunk, and one whose chunk is gone as
// "<dangling>". It does not recurse into the pointed-to value; depth is
// only compared against maxDepth on entry.
func reprSlot(m *vm.VM, s vm.Slot, depth int) string {
	const maxDepth = 16
	if depth > maxDepth {
		return "..."
	}
	if s.Ptr == heap.NullPtr {
		return strconv.FormatInt(s.I, 10)
	}
	data, err := m.Heap.Deref(s.Ptr)
	if err != nil {
		return "<dangling>"
	}
	return strconv.Quote(string(data))
}
