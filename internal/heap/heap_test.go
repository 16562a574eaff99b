package heap_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/willow-lang/willow/internal/heap"
)

func TestAllocDerefRoundTrip(t *testing.T) {
	h := heap.New(nil)
	p := h.Alloc(8, nil, nil, false, 0)
	data, err := h.Deref(p)
	require.NoError(t, err)
	require.Len(t, data, 8)
}

func TestRefCntZeroReleasesChunk(t *testing.T) {
	h := heap.New(nil)
	p := h.Alloc(8, nil, nil, false, 0)

	n, err := h.ChangeRefCnt(p, -1)
	require.NoError(t, err)
	require.Equal(t, int32(0), n)

	_, err = h.Deref(p)
	require.Error(t, err, "dereferencing a released chunk must fail")
}

func TestOnFreeCalledOnRelease(t *testing.T) {
	h := heap.New(nil)
	called := false
	p := h.Alloc(4, nil, func(data []byte) { called = true }, false, 0)
	_, err := h.ChangeRefCnt(p, -1)
	require.NoError(t, err)
	require.True(t, called)
}

func TestNegativeRefCntErrors(t *testing.T) {
	h := heap.New(nil)
	p := h.Alloc(4, nil, nil, false, 0)
	_, err := h.ChangeRefCnt(p, -2)
	require.Error(t, err)
}

func TestWeakenStrengthenRoundTrip(t *testing.T) {
	h := heap.New(nil)
	p := h.Alloc(4, nil, nil, false, 0)
	weak := h.Weaken(p)

	strong, err := h.Strengthen(weak)
	require.NoError(t, err)
	require.False(t, strong.IsNull())

	_, err = h.Deref(strong)
	require.NoError(t, err)
}

func TestStrengthenAfterReleaseYieldsNull(t *testing.T) {
	h := heap.New(nil)
	p := h.Alloc(4, nil, nil, false, 0)
	weak := h.Weaken(p)

	_, err := h.ChangeRefCnt(p, -1)
	require.NoError(t, err)

	strong, err := h.Strengthen(weak)
	require.NoError(t, err)
	require.True(t, strong.IsNull(), "strengthening a weak pointer to a freed chunk must yield null")
}

func TestCloseReportsLeaks(t *testing.T) {
	var leaks []string
	h := heap.New(func(msg string) { leaks = append(leaks, msg) })
	h.Alloc(4, nil, nil, false, 0)
	h.Close()
	require.Len(t, leaks, 1)
}

func TestMemUsageTracksAllocationsAndReleases(t *testing.T) {
	h := heap.New(nil)
	require.Equal(t, int64(0), h.MemUsage())

	p := h.Alloc(16, nil, nil, false, 0)
	require.Equal(t, int64(16), h.MemUsage())

	_, err := h.ChangeRefCnt(p, -1)
	require.NoError(t, err)
	require.Equal(t, int64(0), h.MemUsage())
}

func TestManyAllocationsSpanMultiplePages(t *testing.T) {
	h := heap.New(nil)
	var ptrs []heap.Ptr
	for i := 0; i < 100; i++ {
		ptrs = append(ptrs, h.Alloc(8, nil, nil, false, 0))
	}
	for _, p := range ptrs {
		_, err := h.Deref(p)
		require.NoError(t, err)
	}
}
