package builtin

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/willow-lang/willow/internal/code"
	"github.com/willow-lang/willow/internal/heap"
	"github.com/willow-lang/willow/internal/types"
	"github.com/willow-lang/willow/internal/vm"
)

// mapKey is the comparable Go value a Willow map key reduces to, so a
// dolthub/swiss map (which requires a comparable key type, see the
// teacher's lang/machine/map.go swiss.Map[Value, Value]) can back it even
// though the VM's own Slot representation is not content-comparable for
// string keys (two distinct string chunks with equal bytes must hash and
// compare equal as map keys — spec §4.3 "structural... map key equality is
// by value").
type mapKey struct {
	kind types.Kind
	i    int64
	str  string
}

func makeMapKey(m *vm.VM, s vm.Slot, k types.Kind) mapKey {
	if k == types.String {
		data, err := m.Heap.Deref(s.Ptr)
		if err != nil {
			return mapKey{kind: k}
		}
		return mapKey{kind: k, str: string(data)}
	}
	if k.IsUnsignedInt() {
		return mapKey{kind: k, i: int64(s.U)}
	}
	return mapKey{kind: k, i: s.I}
}

// entry is one map's backing store: a swiss map from mapKey to a per-node
// heap pointer, so GET_MAP_PTR can hand back an addressable {Ptr, 0} into
// storage that lives independently of the swiss.Map's own internal array
// (spec §4.7 "GET_MAP_PTR creates the node if missing").
type entry struct {
	m       *swiss.Map[mapKey, heap.Ptr]
	keyType *types.Type
	valType *types.Type
}

// mapRegistry ties a heap.Ptr handle (the value a Willow map variable
// actually holds) to its Go-side swiss.Map, since the heap's chunk bytes
// have nowhere to store a live Go map value directly (spec §4.8's
// weak-pointer design keeps real Go pointers out of heap-chunk payloads;
// see internal/heap's package doc). Shared between registerArray's
// polymorphic make()/len()/sizeof() and registerMap's GET_MAP_PTR/keys().
type mapRegistry struct {
	byPtr map[heap.Ptr]*entry
}

func newMapRegistry() *mapRegistry {
	return &mapRegistry{byPtr: make(map[heap.Ptr]*entry)}
}

// create allocates a fresh, empty map and returns the handle a Willow
// local/slot should hold. The handle is a zero-size heap chunk purely so
// it participates in reference counting like any other garbage-collected
// value; onFree deregisters the swiss map when the last reference drops.
func (r *mapRegistry) create(m *vm.VM, keyType, valType *types.Type) heap.Ptr {
	var p heap.Ptr
	p = m.Heap.Alloc(0, nil, func([]byte) { delete(r.byPtr, p) }, false, 0)
	r.byPtr[p] = &entry{
		m:       swiss.NewMap[mapKey, heap.Ptr](8),
		keyType: keyType,
		valType: valType,
	}
	return p
}

func (r *mapRegistry) get(p heap.Ptr) (*entry, bool) {
	e, ok := r.byPtr[p]
	return e, ok
}

func (r *mapRegistry) length(p heap.Ptr) int {
	e, ok := r.byPtr[p]
	if !ok {
		return 0
	}
	return int(e.m.Count())
}

// registerMap wires GET_MAP_PTR (under code.MapPtrSelector) and keys()
// against the shared mapRegistry; make()/len()/sizeof() for Kind Map are
// handled in array.go, where make() and len() consult the same registry
// (spec §4.9 "keys() returns a dynamic array... a permutation of the map's
// keys").
func registerMap(m *vm.VM, reg *mapRegistry) {
	m.RegisterBuiltin(code.MapPtrSelector, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		key := f.Pop()
		base := f.Peek(0)
		if in.Type == nil || in.Type.Key == nil || in.Type.Base == nil {
			return fmt.Errorf("get_map_ptr: missing map type on instruction")
		}
		e, ok := reg.get(base.Ptr)
		if !ok {
			return fmt.Errorf("get_map_ptr: not a map")
		}
		mk := makeMapKey(m, key, in.Type.Key.Kind)
		nodePtr, ok := e.m.Get(mk)
		if !ok {
			nodePtr = m.Heap.Alloc(elemSize(e.valType), e.valType, nil, false, 0)
			e.m.Put(mk, nodePtr)
		}
		*base = vm.FieldSlot(nodePtr, 0)
		return nil
	})

	m.RegisterBuiltin(code.BuiltinKeys, func(m *vm.VM, f *vm.Fiber, in code.Instr) error {
		mapSlot := f.Pop()
		e, ok := reg.get(mapSlot.Ptr)
		if !ok {
			return fmt.Errorf("keys: not a map")
		}
		width := elemSize(e.keyType)
		n := int(e.m.Count())
		arrPtr := m.Heap.Alloc(n*width, e.keyType, nil, false, 0)
		data, err := m.Heap.Deref(arrPtr)
		if err != nil {
			return err
		}
		i := 0
		e.m.Iter(func(k mapKey, _ heap.Ptr) bool {
			writeMapKey(data[i*width:(i+1)*width], k)
			i++
			return false
		})
		return f.Push(vm.PtrSlot(arrPtr))
	})
}

// writeMapKey reconstructs a key's scalar byte representation for keys()'s
// result array. String keys are not reconstructible as fixed-width bytes
// here (a keys() result of kind String needs its own chunk per element,
// out of scope for this simplified array-of-scalars rendering); non-string
// kinds round-trip through the same little-endian layout as any other
// scalar slot.
func writeMapKey(data []byte, k mapKey) {
	writeInt64(data[:min(len(data), 8)], k.i)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
