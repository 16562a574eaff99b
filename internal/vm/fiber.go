package vm

import (
	"fmt"

	"github.com/willow-lang/willow/internal/code"
)

// Register indices for the per-fiber register file (spec §4.7: "a fixed
// set used for result return (RESULT), method receiver (SELF), a heap-copy
// scratch, switch expression, and expression-list scratch").
const (
	RegResult = iota
	RegSelf
	RegHeapCopyScratch
	RegSwitchExpr
	RegExprListScratch
	numRegs
)

// Frame-relative offsets below Base (spec §4.7 "Call frame layout").
const (
	offsetReturnAddr   = -4
	offsetSavedBase    = -3
	offsetFrameRefCnt  = -2
	offsetParamLayout  = -1
)

// Fiber is one cooperatively-scheduled stack of execution (spec §4.9
// "Scheduling model"). Each fiber owns its own stack, instruction pointer
// and register file; fibers never run concurrently with each other or with
// Go goroutines, since the heap's reference counts are not safe for
// concurrent mutation (see SPEC_FULL.md's Open Question decision to keep
// scheduling single-threaded rather than goroutine-backed).
type Fiber struct {
	Code  []code.Instr
	IP    int
	Stack []Slot
	Top   int
	Base  int
	Reg   [numRegs]Slot

	Parent *Fiber
	Alive  bool

	stackOverflowMargin int
}

// NewFiber allocates a fiber with a fixed-size stack (spec §4.7
// "Stack-overflow is checked... the minimum-free-slot threshold is treated
// as the safety margin"). A sentinel return address is pushed up front so
// the outermost ENTER_FRAME/RETURN pair has the same four-slot frame header
// as any called function (spec §4.7 "Call frame layout"): ReturnFromVM for
// the root fiber, ReturnFromFiber for one spawned by spawn()/resume().
func NewFiber(c []code.Instr, stackSize int, parent *Fiber) *Fiber {
	f := &Fiber{
		Code:                c,
		Stack:               make([]Slot, stackSize),
		Parent:              parent,
		Alive:               true,
		stackOverflowMargin: 64,
	}
	sentinel := int64(code.ReturnFromVM)
	if parent != nil {
		sentinel = int64(code.ReturnFromFiber)
	}
	_ = f.push(IntSlot(sentinel))
	return f
}

func (f *Fiber) push(s Slot) error {
	if f.Top >= len(f.Stack)-f.stackOverflowMargin {
		return fmt.Errorf("Stack overflow")
	}
	f.Stack[f.Top] = s
	f.Top++
	return nil
}

func (f *Fiber) pop() Slot {
	f.Top--
	return f.Stack[f.Top]
}

func (f *Fiber) peek(depth int) *Slot {
	return &f.Stack[f.Top-1-depth]
}

// Push, Pop and Peek are the exported forms of the same three primitives,
// used by internal/builtin's CALL_BUILTIN implementations — builtins live
// outside this package but manipulate the fiber stack exactly like any
// other opcode handler (spec §4.9: "Built-ins... share the VM stack").
func (f *Fiber) Push(s Slot) error   { return f.push(s) }
func (f *Fiber) Pop() Slot           { return f.pop() }
func (f *Fiber) Peek(depth int) *Slot { return f.peek(depth) }

// EnterFrame pushes the frame's bookkeeping slots and reserves local
// storage (spec §4.7 "Call frame layout"). The return address itself is
// not pushed here: CALL/CALL_INDIRECT push it before jumping to the
// callee's entry point (and NewFiber pushes a sentinel for the outermost
// frame), so it is already the slot immediately below what EnterFrame adds.
func (f *Fiber) EnterFrame(paramSlots, localSlots int32) error {
	if err := f.push(IntSlot(int64(f.Base))); err != nil {
		return err
	}
	if err := f.push(IntSlot(0)); err != nil { // frame ref count
		return err
	}
	if err := f.push(IntSlot(int64(paramSlots))); err != nil { // param layout
		return err
	}
	f.Base = f.Top
	for i := int32(0); i < localSlots; i++ {
		if err := f.push(Slot{}); err != nil {
			return err
		}
	}
	return nil
}

// LeaveFrame pops the current frame's locals and bookkeeping slots, failing
// if the frame ref count is nonzero — meaning a pointer to one of this
// frame's locals escaped (spec §4.7: "fail 'Pointer to a local variable
// escapes'").
func (f *Fiber) LeaveFrame() (returnAddr int32, paramSlots int32, err error) {
	refCnt := f.Stack[f.Base+offsetFrameRefCnt].I
	if refCnt != 0 {
		return 0, 0, fmt.Errorf("Pointer to a local variable escapes from the function")
	}
	returnAddr = int32(f.Stack[f.Base+offsetReturnAddr].I)
	paramSlots = int32(f.Stack[f.Base+offsetParamLayout].I)
	savedBase := int(f.Stack[f.Base+offsetSavedBase].I)
	f.Top = f.Base + offsetReturnAddr - int(paramSlots)
	f.Base = savedBase
	return returnAddr, paramSlots, nil
}

// ChangeFrameRefCnt adjusts the current frame's escape counter (spec §4.7,
// §4.8: "a frame offset" form of CHANGE_REF_CNT).
func (f *Fiber) ChangeFrameRefCnt(delta int32) {
	f.Stack[f.Base+offsetFrameRefCnt].I += int64(delta)
}

// LocalAddr returns the absolute stack index of local-variable slot idx
// within the current frame. Non-negative idx addresses a local declared
// after Base, in declaration order; negative idx addresses a parameter,
// counting back from -1 (the last parameter pushed, immediately below the
// frame header) through -paramSlots (the first) — symmetric with how
// positive indices count up from Base (spec §4.7 "Call frame layout").
func (f *Fiber) LocalAddr(idx int32) int {
	if idx >= 0 {
		return f.Base + int(idx)
	}
	return f.Base + offsetReturnAddr + int(idx)
}
