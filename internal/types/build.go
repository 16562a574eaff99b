package types

import "hash/fnv"

// Table owns the primitive types for one compiler instance. Primitives are
// created once per compiler at start-up (spec §4.2); composite types are
// constructed on demand through the table so cached pointer/array/map
// constructions can be reused, keeping type identity stable for Equivalent's
// fast path.
type Table struct {
	primitives map[Kind]*Type

	ptrCache    map[*Type]*Type
	weakCache   map[*Type]*Type
	arrCache    map[arrKey]*Type
	dynArrCache map[*Type]*Type
	mapCache    map[mapKey]*Type
}

type arrKey struct {
	base  *Type
	count int
}

type mapKey struct {
	key, val *Type
}

// NewTable constructs a fresh type table with all primitive kinds declared.
func NewTable() *Table {
	t := &Table{
		primitives:  make(map[Kind]*Type),
		ptrCache:    make(map[*Type]*Type),
		weakCache:   make(map[*Type]*Type),
		arrCache:    make(map[arrKey]*Type),
		dynArrCache: make(map[*Type]*Type),
		mapCache:    make(map[mapKey]*Type),
	}
	for k := Void; k <= Real64; k++ {
		t.primitives[k] = &Type{Kind: k, name: k.String()}
	}
	return t
}

// Primitive returns the shared Type value for a primitive kind.
func (t *Table) Primitive(k Kind) *Type { return t.primitives[k] }

// PointerTo returns (creating if needed) the pointer-to-base type.
func (t *Table) PointerTo(base *Type) *Type {
	if p, ok := t.ptrCache[base]; ok {
		return p
	}
	p := &Type{Kind: Pointer, Base: base}
	t.ptrCache[base] = p
	return p
}

// WeakPointerTo returns the weak-pointer-to-base type.
func (t *Table) WeakPointerTo(base *Type) *Type {
	if p, ok := t.weakCache[base]; ok {
		return p
	}
	p := &Type{Kind: WeakPointer, Base: base}
	t.weakCache[base] = p
	return p
}

// ArrayOf returns a static array of count elements of base.
func (t *Table) ArrayOf(base *Type, count int) *Type {
	k := arrKey{base, count}
	if a, ok := t.arrCache[k]; ok {
		return a
	}
	a := &Type{Kind: StaticArray, Base: base, Count: count}
	t.arrCache[k] = a
	return a
}

// DynArrayOf returns a dynamic array of base.
func (t *Table) DynArrayOf(base *Type) *Type {
	if a, ok := t.dynArrCache[base]; ok {
		return a
	}
	a := &Type{Kind: DynArray, Base: base}
	t.dynArrCache[base] = a
	return a
}

// MapOf returns a map from key to val.
func (t *Table) MapOf(key, val *Type) *Type {
	k := mapKey{key, val}
	if m, ok := t.mapCache[k]; ok {
		return m
	}
	m := &Type{Kind: Map, Key: key, Base: val}
	t.mapCache[k] = m
	return m
}

// NewStruct starts a new, empty struct type declared in block. Use AddField
// to append fields; each field's Offset is computed automatically as the
// struct's running byte size before the field was added, with no padding
// (spec §4.2: "no padding between non-aligned fields").
func (t *Table) NewStruct(block int) *Type {
	return &Type{Kind: Struct, Block: block}
}

// AddField appends a field to a struct type, computing its offset as the
// struct's current byte size before this field was added (spec §4.2: "no
// padding between non-aligned fields").
func (t *Type) AddField(name string, ft *Type) {
	if t.Kind != Struct {
		panic("types: AddField on non-struct type")
	}
	offset := 0
	for _, f := range t.Fields {
		offset += Sizeof(f.Type)
	}
	t.Fields = append(t.Fields, Field{
		Name:   name,
		Hash:   hashName(name),
		Type:   ft,
		Offset: offset,
	})
	t.Count = len(t.Fields)
	t.sizeComputed = false
}

// NewInterface starts a new, empty interface type declared in block. Use
// AddMethod to append methods; each gets a v-table slot index as Offset.
func (t *Table) NewInterface(block int) *Type {
	return &Type{Kind: Interface, Block: block}
}

// AddMethod appends a method signature to an interface type.
func (t *Type) AddMethod(name string, sig *Type) {
	if t.Kind != Interface {
		panic("types: AddMethod on non-interface type")
	}
	t.Fields = append(t.Fields, Field{
		Name:   name,
		Hash:   hashName(name),
		Type:   sig,
		Offset: len(t.Fields),
	})
}

// NewFunction builds a function type from a signature.
func (t *Table) NewFunction(sig *Signature) *Type {
	return &Type{Kind: Function, Sig: sig}
}

// NewClosure builds the closure type wrapping a function type (spec §3
// "Closure": entry offset plus one captured upvalue packed as an interface).
func (t *Table) NewClosure(fn *Type) *Type {
	return &Type{Kind: Closure, Base: fn}
}

// FieldByName looks up a struct or interface field by name, honouring
// declared order for the first match (spec §4.6 composite literal rule
// relies on declared order too).
func (t *Type) FieldByName(name string) (Field, bool) {
	u := t.Underlying()
	h := hashName(name)
	for _, f := range u.Fields {
		if f.Hash == h && f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ParamByName looks up a function signature parameter by name.
func (s *Signature) ParamByName(name string) (Param, int, bool) {
	for i, p := range s.Params {
		if p.Name == name {
			return p, i, true
		}
	}
	return Param{}, -1, false
}

func hashName(name string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return h.Sum32()
}
