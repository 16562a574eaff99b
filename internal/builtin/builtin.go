// Package builtin implements the CALL_BUILTIN/GET_MAP_PTR dispatch targets
// registered against an internal/vm.VM: the printf/scanf family, math
// functions, make/append/insert/delete/slice/copy, the map runtime, sort,
// and fiber control (spec §4.9 "Built-in runtime"). It is kept separate
// from internal/vm so the VM's dispatch loop does not need to import
// dolthub/swiss or the formatting machinery.
package builtin

import (
	"github.com/willow-lang/willow/internal/types"
	"github.com/willow-lang/willow/internal/vm"
)

// RegisterAll installs every builtin implemented by this package onto m,
// plus the map runtime's GET_MAP_PTR handler under code.MapPtrSelector.
// Call once per VM, after internal/vm.New.
func RegisterAll(m *vm.VM) {
	maps := newMapRegistry()
	fibers := newFiberRegistry()

	registerMath(m)
	registerFormat(m)
	registerArray(m, maps, fibers)
	registerMap(m, maps)
	registerSort(m)
	registerFiber(m, fibers)
	registerString(m)
}

// elemSize is typeSize's package-local counterpart, used wherever a
// builtin needs the byte width of a dynamic array's element type.
func elemSize(t *types.Type) int {
	if t == nil {
		return 1
	}
	return types.Sizeof(t)
}
