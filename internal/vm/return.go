package vm

import "github.com/willow-lang/willow/internal/code"

// callSentinel marks the return address of a frame entered through Call
// (sort's comparator callback and the embedding API's call()):
// unlike ReturnFromVM/ReturnFromFiber it stops only the current nested Run,
// not the whole fiber — mirroring the original's reentrant "push a
// RETURN_FROM_VM marker and call the dispatch loop again" trick, but as
// real Go call-stack recursion instead of a marker the same loop has to
// recognise twice (spec §4.9 "sort... re-entering the dispatch loop").
const callSentinel int32 = -3

// doReturn pops the current frame and resumes at its caller, or — when the
// frame header's return address is one of the three sentinels — ends the
// fiber's run or the current nested Call (spec §4.7 "RETURN pops the
// current frame... sentinel return addresses distinguish an ordinary call
// return from the end of a fiber or the end of the program"). The returned
// bool tells Run whether dispatch should stop.
func (m *VM) doReturn(f *Fiber, in code.Instr) (done bool, err error) {
	returnAddr, _, err := f.LeaveFrame()
	if err != nil {
		return false, err
	}

	switch returnAddr {
	case code.ReturnFromVM, code.ReturnFromFiber:
		f.Alive = false
		return true, nil
	case callSentinel:
		return true, nil
	default:
		f.IP = int(returnAddr)
		return false, nil
	}
}

// Call invokes the function at entry with args already evaluated, running
// it to completion on fiber f and returning whatever it left in RegResult
// (spec §6 "call(ctx)"; spec §4.9 "sort"'s comparator callback). f must
// already be the VM's current fiber or about to become it; Call pushes a
// fresh return address so nested calls compose (a comparator invoked from
// within a builtin invoked from within a top-level call(), etc).
func (m *VM) Call(f *Fiber, entry int32, args []Slot) (Slot, error) {
	for _, a := range args {
		if err := f.push(a); err != nil {
			return Slot{}, err
		}
	}
	if err := f.push(IntSlot(int64(callSentinel))); err != nil {
		return Slot{}, err
	}
	savedIP := f.IP
	f.IP = int(entry)
	if err := m.Run(f); err != nil {
		return Slot{}, err
	}
	f.IP = savedIP
	return f.Reg[RegResult], nil
}
