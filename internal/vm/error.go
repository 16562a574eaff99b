package vm

import "fmt"

// RuntimeError is returned by the dispatch loop on any failure that would
// be a non-local "critical error" longjmp in the original implementation
// (spec §9 Open Question decision: a typed error return instead of a
// non-local exit, matching idiomatic Go error handling).
type RuntimeError struct {
	Msg  string
	IP   int
	Line int
}

func (e *RuntimeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d)", e.Msg, e.Line)
	}
	return e.Msg
}

func runtimeErrorf(ip, line int, format string, args ...any) *RuntimeError {
	return &RuntimeError{Msg: fmt.Sprintf(format, args...), IP: ip, Line: line}
}
