package builtin

import (
	"math"

	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/vm"
)

// registerMath wires the transcendental and rounding builtins, each
// popping its argument(s) off the fiber stack and pushing a real-kind
// result, except abs, which works on the integer field and pushes an
// integer (spec §4.9). internal/constant.CallBuiltin mirrors this for the
// compile-time constant-folding path — this is its runtime twin.
func registerMath(m *vm.VM) {
	unary := func(fn func(float64) float64) vm.BuiltinFunc {
		return func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
			x := f.Pop()
			return f.Push(vm.RealSlot(fn(x.R)))
		}
	}

	m.RegisterBuiltin(code.BuiltinReal, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		x := f.Pop()
		return f.Push(vm.RealSlot(float64(x.I)))
	})
	m.RegisterBuiltin(code.BuiltinRound, unary(math.Round))
	m.RegisterBuiltin(code.BuiltinTrunc, unary(math.Trunc))
	m.RegisterBuiltin(code.BuiltinCeil, unary(math.Ceil))
	m.RegisterBuiltin(code.BuiltinFloor, unary(math.Floor))
	m.RegisterBuiltin(code.BuiltinAbs, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		x := f.Pop()
		v := x.I
		if v < 0 {
			v = -v
		}
		return f.Push(vm.IntSlot(v))
	})
	m.RegisterBuiltin(code.BuiltinFabs, unary(math.Abs))
	m.RegisterBuiltin(code.BuiltinSqrt, unary(math.Sqrt))
	m.RegisterBuiltin(code.BuiltinSin, unary(math.Sin))
	m.RegisterBuiltin(code.BuiltinCos, unary(math.Cos))
	m.RegisterBuiltin(code.BuiltinAtan, unary(math.Atan))
	m.RegisterBuiltin(code.BuiltinExp, unary(math.Exp))
	// math.Log is the true natural logarithm (see SPEC_FULL.md Open
	// Question decisions).
	m.RegisterBuiltin(code.BuiltinLog, unary(math.Log))

	m.RegisterBuiltin(code.BuiltinAtan2, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		y := f.Pop()
		x := f.Pop()
		return f.Push(vm.RealSlot(math.Atan2(x.R, y.R)))
	})
}
