package filetest_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/willow-lang/willow/internal/filetest"
)

// These are spec §8's six literal end-to-end scenarios, verbatim.

func TestScenarioA_ArithmeticAndPrintf(t *testing.T) {
	res := filetest.Run(t, `fn main() { printf("%d\n", 2 + 3) }`)
	defer res.VM.Close()

	require.NoError(t, res.CompileErr)
	require.NoError(t, res.RunErr)
	require.Equal(t, "5\n", res.Stdout)
	require.False(t, res.VM.Alive())
	require.Empty(t, res.Leaks)

	stats := res.VM.Stats()
	require.Equal(t, 0, stats.LiveChunks, "fiber stacks are plain Go slices here, not heap chunks, so a clean exit leaves nothing live")
}

func TestScenarioB_ComparatorSortAndDynArray(t *testing.T) {
	res := filetest.Run(t, `fn main() {
	a := []int{3,1,2}
	sort(a, fn(x, y: ^int): int {return x^ - y^})
	printf("%d %d %d", a[0], a[1], a[2])
}`)
	defer res.VM.Close()

	require.NoError(t, res.CompileErr)
	require.NoError(t, res.RunErr)
	require.Equal(t, "1 2 3", res.Stdout)
}

func TestScenarioC_MapMakeIndexAssignAndRead(t *testing.T) {
	res := filetest.Run(t, `fn main() {
	m := make(map[str]int)
	m["x"] = 7
	printf("%d", m["x"])
}`)
	defer res.VM.Close()

	require.NoError(t, res.CompileErr)
	require.NoError(t, res.RunErr)
	require.Equal(t, "7", res.Stdout)
}

func TestScenarioD_StaticArrayOutOfBoundsIsRuntimeNotCompileError(t *testing.T) {
	res := filetest.Run(t, `fn main() { var a: [3]int; a[5] = 1 }`)
	defer res.VM.Close()

	require.NoError(t, res.CompileErr, "the out-of-bounds index is only known at run time")
	require.Error(t, res.RunErr)
	require.Contains(t, res.RunErr.Error(), "Index 5 is out of range 0...2")
	require.False(t, res.VM.Alive())
}

func TestScenarioE_FiberMakeResumeAndPointerWrite(t *testing.T) {
	res := filetest.Run(t, `fn child(parent: ^fiber, p: ^int) { p^ = 42; resume(parent) }
fn main() {
	x := 0
	f := make(fiber, child, &x)
	resume(f)
	printf("%d", x)
}`)
	defer res.VM.Close()

	require.NoError(t, res.CompileErr)
	require.NoError(t, res.RunErr)
	require.Equal(t, "42", res.Stdout)
}

func TestScenarioF_StringShortDeclConcatAssignAndLen(t *testing.T) {
	res := filetest.Run(t, `fn main() {
	s := "ab"
	s += "cd"
	printf("%s(%d)", s, len(s))
}`)
	defer res.VM.Close()

	require.NoError(t, res.CompileErr)
	require.NoError(t, res.RunErr)
	require.Equal(t, "abcd(4)", res.Stdout)
}
