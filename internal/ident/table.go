package ident

import (
	"fmt"
	"hash/fnv"

	"github.com/willow-lang/willow/internal/token"
	"github.com/willow-lang/willow/internal/types"
)

// block is a numbered lexical scope (spec §4.3: "A block is a numbered
// scope; entering a block pushes it onto a stack, leaving one pops it and
// frees the identifiers declared inside"). isFunctionRoot blocks own a
// growing local-frame size counter; non-root blocks share their enclosing
// function's counter via fn.
type block struct {
	index          int
	isFunctionRoot bool
	fn             *frameState // nil outside any function
	firstLocal     *Ident      // first Ident declared directly in this block
}

// frameState tracks local/parameter stack-offset allocation for one function
// body (spec §4.3 "Allocating stack offsets for locals" / "Allocating
// parameters").
type frameState struct {
	nextLocalOffset int
	nextParamOffset int
}

// WarnFunc reports an unused-identifier warning at pos (spec §4.3 "Warning
// on unused identifiers").
type WarnFunc func(pos token.Position, msg string)

// Table is the compiler's scoped identifier table: a singly linked list in
// declaration order plus a stack of open blocks for lookup (spec §4.3).
type Table struct {
	head, tail *Ident // declaration-order list, across all modules

	blocks    []*block // open-block stack, innermost last
	nextBlock int

	curModule    int
	moduleNames  map[int]string
	importedBy   map[int]map[int]bool // importedBy[m][dep] = dep is visible from m

	methods map[methodKey]*Ident

	warn WarnFunc
	temp int
}

type methodKey struct {
	name     string
	receiver *types.Type
}

// NewTable creates an empty identifier table. warn may be nil to disable
// unused-identifier diagnostics.
func NewTable(warn WarnFunc) *Table {
	t := &Table{
		moduleNames: make(map[int]string),
		importedBy:  make(map[int]map[int]bool),
		methods:     make(map[methodKey]*Ident),
		warn:        warn,
	}
	t.EnterBlock(false) // universal/predeclared block, index 0
	return t
}

func hashName(name string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return h.Sum32()
}

// DeclareModule registers module index m under name and gives it an empty
// set of imports if it has none yet.
func (t *Table) DeclareModule(m int, name string) {
	t.moduleNames[m] = name
	if t.importedBy[m] == nil {
		t.importedBy[m] = make(map[int]bool)
	}
}

// Import records that module `from` may see exported identifiers of module
// `dep` (spec §4.3 module visibility).
func (t *Table) Import(from, dep int) {
	if t.importedBy[from] == nil {
		t.importedBy[from] = make(map[int]bool)
	}
	t.importedBy[from][dep] = true
}

// SetModule switches the module context new declarations attach to.
func (t *Table) SetModule(m int) { t.curModule = m }

// EnterBlock pushes a new scope and returns its index. isFunctionRoot starts
// a fresh local-frame counter (spec §4.3 "Allocating stack offsets").
func (t *Table) EnterBlock(isFunctionRoot bool) int {
	idx := t.nextBlock
	t.nextBlock++

	b := &block{index: idx, isFunctionRoot: isFunctionRoot}
	if isFunctionRoot {
		b.fn = &frameState{}
	} else if len(t.blocks) > 0 {
		b.fn = t.blocks[len(t.blocks)-1].fn
	}
	t.blocks = append(t.blocks, b)
	return idx
}

// LeaveBlock pops the innermost scope, warning on any identifier declared in
// it that was never referenced (spec §4.3 "Warning on unused identifiers").
func (t *Table) LeaveBlock() {
	if len(t.blocks) == 0 {
		panic("ident: LeaveBlock with no open block")
	}
	b := t.blocks[len(t.blocks)-1]
	t.blocks = t.blocks[:len(t.blocks)-1]

	if t.warn == nil {
		return
	}
	for id := b.firstLocal; id != nil && id.Block == b.index; id = id.next {
		if !id.Used && id.Kind == VarKind && id.Name != "_" {
			t.warn(token.Position{}, fmt.Sprintf("%s declared and not used", id.Name))
		}
	}
}

// curBlock returns the innermost open block.
func (t *Table) curBlock() *block {
	return t.blocks[len(t.blocks)-1]
}

// Declare adds a new identifier to the innermost open block. It returns an
// error if name is already declared in that same block (spec §4.3: blocks
// reject shadowing redeclaration within themselves; shadowing an outer
// block's name is allowed).
func (t *Table) Declare(name string, kind Kind, typ *types.Type, pos token.Pos) (*Ident, error) {
	b := t.curBlock()
	for id := b.firstLocal; id != nil && id.Block == b.index; id = id.next {
		if id.Name == name {
			return nil, fmt.Errorf("%s redeclared in this block", name)
		}
	}

	id := &Ident{
		Name:   name,
		Hash:   hashName(name),
		Kind:   kind,
		Type:   typ,
		Module: t.curModule,
		Block:  b.index,
		Pos:    pos,
	}
	t.append(id)
	if b.firstLocal == nil {
		b.firstLocal = id
	}
	return id, nil
}

// DeclareMethod declares a method identifier keyed by {name, receiver}
// (spec §4.3: "Methods are looked up keyed by {name, receiver type}").
func (t *Table) DeclareMethod(name string, receiver, typ *types.Type, pos token.Pos) (*Ident, error) {
	key := methodKey{name, receiver.Underlying()}
	if _, exists := t.methods[key]; exists {
		return nil, fmt.Errorf("method %s already declared for %s", name, receiver.String())
	}
	id := &Ident{
		Name:     name,
		Hash:     hashName(name),
		Kind:     ConstKind,
		Type:     typ,
		Module:   t.curModule,
		Block:    t.curBlock().index,
		Pos:      pos,
		Receiver: receiver,
	}
	t.append(id)
	t.methods[key] = id
	return id, nil
}

func (t *Table) append(id *Ident) {
	if t.tail == nil {
		t.head = id
	} else {
		t.tail.next = id
	}
	t.tail = id
}

// Lookup walks the block stack from innermost to outermost, returning the
// nearest visible identifier named name (spec §4.3). An identifier declared
// in a different module (other than the predeclared module 0) is skipped
// unless it is Exported and the current module imports its module.
func (t *Table) Lookup(name string) (*Ident, bool) {
	for i := len(t.blocks) - 1; i >= 0; i-- {
		b := t.blocks[i]
		for id := b.firstLocal; id != nil && id.Block == b.index; id = id.next {
			if id.Name != name {
				continue
			}
			if !t.visible(id) {
				continue
			}
			id.Used = true
			return id, true
		}
	}
	return nil, false
}

func (t *Table) visible(id *Ident) bool {
	if id.Module == t.curModule {
		return true
	}
	if id.Module == 0 {
		return true // universal/predeclared block
	}
	if !id.Exported {
		return false
	}
	return t.importedBy[t.curModule][id.Module]
}

// LookupMethod finds a method named name declared for receiver's underlying
// type. Only that exact underlying type is tried; a method declared for a
// pointer to it, or for any other compatible type, is not found.
func (t *Table) LookupMethod(name string, receiver *types.Type) (*Ident, bool) {
	id, ok := t.methods[methodKey{name, receiver.Underlying()}]
	if ok {
		id.Used = true
	}
	return id, ok
}

// AllocLocal reserves size bytes in the enclosing function's frame and
// returns the offset assigned (spec §4.3 "Allocating stack offsets for
// locals").
func (t *Table) AllocLocal(size int) int {
	fn := t.curBlock().fn
	off := fn.nextLocalOffset
	fn.nextLocalOffset += size
	return off
}

// AllocParam reserves size bytes of parameter space, growing downward from
// the call-frame's base so that the saved return address and base pointer
// occupy the two slots just above the first parameter (spec §4.3).
func (t *Table) AllocParam(size int) int {
	fn := t.curBlock().fn
	off := fn.nextParamOffset
	fn.nextParamOffset += size
	return off
}

// LocalSlotCount returns the number of local slots allocated so far in the
// innermost function body, for patching ENTER_FRAME once a function's body
// has been fully parsed and its final frame layout is known.
func (t *Table) LocalSlotCount() int {
	return t.curBlock().fn.nextLocalOffset
}

// CurrentBlock returns the index of the innermost open block, for
// associating a newly constructed struct/interface type with its declaring
// scope (spec §4.3; mirrors types.NewStruct/NewInterface's block parameter).
func (t *Table) CurrentBlock() int {
	return t.curBlock().index
}

// NewTemp generates a fresh compiler-internal name, e.g. "$t3" (spec §4.3
// "Generating compiler-temporary names").
func (t *Table) NewTemp() string {
	t.temp++
	return fmt.Sprintf("$t%d", t.temp)
}

// Identifiers returns the full declaration-order list, for debugging and
// golden-test dumps.
func (t *Table) Identifiers() []*Ident {
	var out []*Ident
	for id := t.head; id != nil; id = id.next {
		out = append(out, id)
	}
	return out
}
