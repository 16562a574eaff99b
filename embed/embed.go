// Package embed is the public host-embedding surface (spec §6): the one
// handle type ("VM") a host program touches, wiring internal/lexer through
// internal/parser into an internal/code.Generator and, on run, driving an
// internal/vm.VM over the result. VM is the one type that calls into every
// compiler phase, generalized from a CLI-only entry point into a reusable
// library API that cmd/willow is itself just a thin caller of.
package embed

import (
	"fmt"
	"go/scanner"
	"io"

	"github.com/willow-lang/willow/internal/builtin"
	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/ffi"
	"github.com/willow-lang/willow/internal/heap"
	"github.com/willow-lang/willow/internal/ident"
	"github.com/willow-lang/willow/internal/parser"
	"github.com/willow-lang/willow/internal/token"
	"github.com/willow-lang/willow/internal/types"
	"github.com/willow-lang/willow/internal/vm"
)

// DefaultStackSize is the fiber stack's slot count absent an explicit
// -stack flag (spec §6 CLI contract's default).
const DefaultStackSize = 1 << 16

// Config collects the tunables a host sets at VM construction: stack size,
// a step-limit sandbox knob, and whether host-registered functions are
// disabled entirely (spec §6 "configuration"). cmd/willow builds one of
// these from its -stack/-sandbox flags via github.com/caarlos0/env/v6
// environment overrides.
type Config struct {
	// StackSize is the fiber stack's slot count. Zero selects
	// DefaultStackSize.
	StackSize int `env:"WILLOW_STACK"`
	// MaxSteps bounds the number of bytecode instructions a single Run/Call
	// will dispatch before failing with a step-limit error. Zero means
	// unlimited (the default for a non-sandboxed embedding).
	MaxSteps int64 `env:"WILLOW_MAX_STEPS"`
	// Sandbox disables CALL_EXTERN entirely, so embedded source can never
	// reach a host-registered function regardless of what AddFunc
	// registered (spec §6 "-sandbox").
	Sandbox bool `env:"WILLOW_SANDBOX"`
}

// Error is the {filename, function, line, column, code, message} record
// spec §6's `error` operation returns, covering both a failed compile and a
// failed run in one shape so a host need only check one field.
type Error struct {
	Filename string
	Function string
	Line     int
	Column   int
	Code     int32
	Message  string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.Filename, e.Line, e.Column, e.Message)
	}
	return e.Message
}

// HookEvent distinguishes ENTER_FRAME from LEAVE_FRAME notifications (spec
// §6 "set-hook(event, callback)").
type HookEvent int

const (
	HookCall HookEvent = iota
	HookReturn
)

// HookFunc is the callback type SetHook stores.
type HookFunc func(event HookEvent, ip int)

// VM is the embedding API's one handle type: alloc'ing a VM, compiling
// source into it and running it are three separate calls exactly as spec
// §6 describes, rather than one do-everything function, so a host can
// compile once and run/call many times (e.g. the sort comparator's nested
// Call, or a REPL).
type VM struct {
	filename string
	src      []byte

	types  *types.Table
	idents *ident.Table
	gen    *code.Generator
	rt     *vm.VM
	ffi    *ffi.Bridge

	stackSize  int
	sandbox    bool
	warn       func(filename string, line, col int, msg string)
	nextModule int

	compiled bool
	lastErr  *Error
	lastErrs []*Error
	main     *vm.Fiber

	hook HookFunc
}

// New allocates a VM with an empty heap and no source loaded (spec §6
// "alloc"), applying cfg's tunables. onLeak, if non-nil, is called once
// per chunk still live when the VM is closed (spec §8 invariant 1's leak
// detector).
func New(cfg Config, onLeak func(string)) *VM {
	rt := vm.New(onLeak)
	rt.MaxSteps = cfg.MaxSteps
	builtin.RegisterAll(rt)
	stackSize := cfg.StackSize
	if stackSize <= 0 {
		stackSize = DefaultStackSize
	}
	m := &VM{
		types:      types.NewTable(),
		idents:     ident.NewTable(nil),
		gen:        code.NewGenerator(),
		rt:         rt,
		ffi:        ffi.NewBridge(rt),
		stackSize:  stackSize,
		sandbox:    cfg.Sandbox,
		nextModule: 1,
	}
	return m
}

// Close frees the VM's heap, reporting any leaked chunks (spec §6 "free").
func (m *VM) Close() { m.rt.Close() }

// Init feeds source into the VM, overriding the stack size when stackSize
// is positive and installing warn as the unused-identifier warning callback
// when it is non-nil (spec §6 "init"). It takes no script arguments and
// sets no filesystem or library flags; sandboxing is configured only
// through Config.Sandbox at New.
func (m *VM) Init(filename string, src []byte, stackSize int, warn func(filename string, line, col int, msg string)) {
	m.filename = filename
	m.src = src
	if stackSize > 0 {
		m.stackSize = stackSize
	}
	m.warn = warn
	if warn != nil {
		m.idents = ident.NewTable(func(pos token.Position, msg string) {
			warn(pos.Filename, pos.Line, pos.Column, msg)
		})
	}
}

// AddModule injects a named in-memory module — used to bundle standard
// library source ahead of the user's own file (spec §6 "add-module(name,
// source)"). Every module compiles against the same shared type/identifier
// tables and generator as the main source, so declarations in one are
// visible to the next (spec §4.3 module visibility).
func (m *VM) AddModule(name string, source []byte) error {
	idx := m.nextModule
	m.idents.DeclareModule(idx, name)
	m.idents.SetModule(idx)
	p := parser.New(name, source, m.types, m.idents, m.gen)
	p.Parse()
	m.idents.SetModule(0)
	if errs := p.Errors(); len(errs) > 0 {
		return m.recordCompileError(errs)
	}
	m.idents.Import(0, idx)
	m.nextModule++
	return nil
}

// AddFunc registers a host callback callable from scripts via CALL_EXTERN,
// resolved by name at link time (spec §6 "add-func(name, func-pointer)"),
// delegating to internal/ffi.Bridge for the name-to-selector assignment.
// argc is how many already-evaluated stack slots fn expects, since
// internal/vm.ExternFunc (unlike BuiltinFunc) is not handed the triggering
// instruction and so has no operand to read an argument count from; hosts
// using this API are expected to know their own function's arity, the same
// way a C prototype fixes it ahead of a call (documented in DESIGN.md as
// an FFI scope simplification: no extern-call syntax exists in the surface
// grammar to resolve names against, so id assignment only matters to
// whatever compiles CALL_EXTERN sites directly against this Bridge).
// Under Config.Sandbox, AddFunc is a no-op: no host function is ever
// reachable from compiled source regardless of what is registered.
func (m *VM) AddFunc(name string, argc int, fn func(args []vm.Slot) (vm.Slot, error)) {
	if m.sandbox {
		return
	}
	m.ffi.Register(name, argc, fn)
}

// SetHook stores a single callback for function call and return events
// (spec §6 "set-hook(event, callback)"). The callback is only stored: the
// dispatch loop never invokes it, so no HookCall or HookReturn event is
// delivered.
func (m *VM) SetHook(fn HookFunc) { m.hook = fn }

// Compile runs the lexer, parser and generator over the VM's loaded source,
// reporting the first accumulated error (spec §6 "compile — run lexer,
// parser, generator; report first error via callback"). There is no
// separate lexer/parser invocation to wire: internal/parser.New already
// owns a internal/lexer.Lexer and drives it token by token as it parses
// (spec §4.5's single-pass architecture), so this method's entire job is
// constructing that one Parser and checking what it collected.
func (m *VM) Compile() error {
	p := parser.New(m.filename, m.src, m.types, m.idents, m.gen)
	p.Parse()
	if errs := p.Errors(); len(errs) > 0 {
		return m.recordCompileError(errs)
	}
	m.compiled = true
	return nil
}

func (m *VM) recordCompileError(errs scanner.ErrorList) error {
	m.lastErrs = m.lastErrs[:0]
	for _, e := range errs {
		m.lastErrs = append(m.lastErrs, &Error{
			Filename: e.Pos.Filename,
			Line:     e.Pos.Line,
			Column:   e.Pos.Column,
			Message:  e.Msg,
		})
	}
	first := m.lastErrs[0]
	m.lastErr = first
	return first
}

// CompileErrors returns every error the most recent Compile/AddModule call
// accumulated, not just the first (spec's "-check" widening of §7's
// fatal/longjmp model into a collect-and-report one; see DESIGN.md).
func (m *VM) CompileErrors() []*Error { return m.lastErrs }

// Run executes the compiled source's `main` entry point to completion
// (spec §6 "run/call(ctx) — execute either main or a specific function
// context").
func (m *VM) Run() error {
	id, ok := m.idents.Lookup("main")
	if !ok {
		e := &Error{Filename: m.filename, Message: "Called function is not defined"}
		m.lastErr = e
		return e
	}
	return m.runEntry(int32(id.ConstVal.I))
}

func (m *VM) runEntry(entry int32) error {
	f := vm.NewFiber(m.gen.Instrs, m.stackSize, nil)
	f.IP = int(entry)
	m.main = f
	if err := m.rt.Run(f); err != nil {
		m.lastErr = m.wrapRuntimeError(err)
		return m.lastErr
	}
	return nil
}

func (m *VM) wrapRuntimeError(err error) *Error {
	if re, ok := err.(*vm.RuntimeError); ok {
		return &Error{Filename: m.filename, Line: re.Line, Code: -1, Message: re.Msg}
	}
	return &Error{Filename: m.filename, Code: -1, Message: err.Error()}
}

// Call invokes an arbitrary compiled function by its identifier name with
// already-evaluated arguments, returning whatever it left in RegResult
// (spec §6 "call(ctx) — a specific function context (entry offset +
// parameter slots + result slot)"). Unlike Run, Call does not require a
// `main` to exist: it is the API a host uses to invoke any exported
// function directly, the same entry point sort's comparator uses
// internally (internal/vm.VM.Call).
func (m *VM) Call(name string, args []vm.Slot) (vm.Slot, error) {
	id, ok := m.idents.Lookup(name)
	if !ok {
		return vm.Slot{}, fmt.Errorf("Called function is not defined")
	}
	if m.main == nil {
		m.main = vm.NewFiber(m.gen.Instrs, m.stackSize, nil)
	}
	res, err := m.rt.Call(m.main, int32(id.ConstVal.I), args)
	if err != nil {
		m.lastErr = m.wrapRuntimeError(err)
		return vm.Slot{}, m.lastErr
	}
	return res, nil
}

// Alive reports whether the main fiber is still executable (spec §6
// "alive").
func (m *VM) Alive() bool { return m.main != nil && m.main.Alive }

// LastError returns the most recent compile or run error (spec §6
// "error"), or nil if none occurred.
func (m *VM) LastError() *Error { return m.lastErr }

// Unwind iterates the call-stack frames of the main fiber starting at its
// current base/IP, for stack-trace rendering (spec §6 "unwind(base, ip)").
// Each returned line is a bare instruction offset; resolving it to a
// (file, function, line) triple requires the debug-info stream spec §4.5
// promises the generator maintains, which this generator does not yet
// record per-instruction (documented in DESIGN.md: only Instr.Line survives
// today, not the enclosing function's name) — offsets are still reported so
// a host can at least count frame depth and map IPs back through
// Disassemble's listing by hand.
func (m *VM) Unwind() []int {
	if m.main == nil {
		return nil
	}
	var frames []int
	ip := m.main.IP
	base := m.main.Base
	for base > 0 {
		frames = append(frames, ip)
		ip = int(m.main.Stack[base-4].I)
		saved := int(m.main.Stack[base-3].I)
		if saved <= 0 || saved >= base {
			break
		}
		base = saved
	}
	return frames
}

// MakeString copies a Go string onto the VM's heap, returning a pointer
// slot a script can receive as a str-typed argument (spec §6 "make-string
// ... helpers for host code that builds scripting values").
func (m *VM) MakeString(s string) vm.Slot {
	p := m.rt.Heap.Alloc(len(s), m.types.Primitive(types.Char), nil, false, 0)
	data, _ := m.rt.Heap.Deref(p)
	copy(data, s)
	return vm.PtrSlot(p)
}

// MakeDynArray allocates an empty dynamic array of element type elem (spec
// §6 "make-dynarray").
func (m *VM) MakeDynArray(elem *types.Type) vm.Slot {
	p := m.rt.Heap.Alloc(0, elem, nil, false, 0)
	return vm.PtrSlot(p)
}

// MakeStruct allocates zeroed storage for struct type t (spec §6
// "make-struct").
func (m *VM) MakeStruct(t *types.Type) vm.Slot {
	p := m.rt.Heap.Alloc(types.Sizeof(t), t, nil, false, 0)
	return vm.PtrSlot(p)
}

// IncRef/DecRef let host code holding a Willow heap pointer participate in
// its reference counting (spec §6 "inc-ref, dec-ref").
func (m *VM) IncRef(p heap.Ptr) error { _, err := m.rt.Heap.ChangeRefCnt(p, 1); return err }
func (m *VM) DecRef(p heap.Ptr) error { _, err := m.rt.Heap.ChangeRefCnt(p, -1); return err }

// GetMapNodeData returns the raw byte storage of a map node at p, letting
// host code read/write a map entry directly (spec §6 "get-map-node-data").
func (m *VM) GetMapNodeData(p heap.Ptr) ([]byte, error) { return m.rt.Heap.Deref(p) }

// HeapStats is the {page count, chunk count, live bytes} snapshot returned
// by Stats (spec §6 addition, extending "mem-usage" with page/chunk
// granularity).
type HeapStats struct {
	Pages      int
	LiveChunks int
	LiveBytes  int64
}

// Stats reports current heap occupancy (spec §6 "mem-usage", extended).
func (m *VM) Stats() HeapStats {
	s := m.rt.Heap.Stats()
	return HeapStats{Pages: s.Pages, LiveChunks: s.LiveChunks, LiveBytes: s.LiveBytes}
}

// Disassemble writes the compiled instruction listing to w (spec §6 "-asm"
// contract), delegating to the generator's own pretty-printer.
func (m *VM) Disassemble(w io.Writer) error {
	_, err := io.WriteString(w, m.gen.Disassemble())
	return err
}
