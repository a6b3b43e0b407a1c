package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kmem/internal/arena"
)

// testHeapStart is page aligned so that a payload right after the first
// header is 16-byte aligned.
const testHeapStart = 0x100000

// newTestHeap returns an initialized free-list allocator over n bytes of Go
// memory starting at testHeapStart.
func newTestHeap(t testing.TB, n uint64, opts ...Option) *FreeListAllocator {
	t.Helper()

	ar, err := arena.FromBytes(testHeapStart, make([]byte, n))
	require.NoError(t, err)

	fl := NewFreeList(opts...)
	require.NoError(t, fl.Init(ar))
	return fl
}

// requireInvariants checks the free list is sorted, has no adjacent blocks,
// stays inside the region, and that every byte of the region is accounted for.
func requireInvariants(t testing.TB, fl *FreeListAllocator) {
	t.Helper()

	r := fl.Region()
	blocks := fl.FreeBlocks()
	for i, b := range blocks {
		require.GreaterOrEqual(t, b.Addr, r.Start, "block %d starts before region", i)
		require.LessOrEqual(t, b.End(), r.End(), "block %d runs past region", i)
		if i > 0 {
			prev := blocks[i-1]
			require.Greater(t, b.Addr, prev.Addr, "free list not sorted at %d", i)
			require.Greater(t, b.Addr, prev.End(), "blocks %d and %d are adjacent or overlapping", i-1, i)
		}
	}

	s := fl.Stats()
	require.Equal(t, r.Length, s.FreeBytes+s.BytesInUse+s.HeaderBytes,
		"conservation: free=%d inuse=%d headers=%d", s.FreeBytes, s.BytesInUse, s.HeaderBytes)
}

// requireSingleBlock checks the heap is back to one block spanning the region.
func requireSingleBlock(t testing.TB, fl *FreeListAllocator) {
	t.Helper()
	r := fl.Region()
	require.Equal(t, []Block{{Addr: r.Start, Size: r.Length - headerSize}}, fl.FreeBlocks())
}

// fill writes a recognizable pattern over an allocation's payload.
func fill(fl *FreeListAllocator, ptr, size uint64, seed byte) {
	b := fl.Slice(ptr, size)
	for i := range b {
		b[i] = seed + byte(i)
	}
}

// requireFilled checks the pattern written by fill is intact.
func requireFilled(t testing.TB, fl *FreeListAllocator, ptr, size uint64, seed byte) {
	t.Helper()
	b := fl.Slice(ptr, size)
	for i := range b {
		if b[i] != seed+byte(i) {
			require.Failf(t, "payload corrupted", "ptr=%#x offset %d: got %#x want %#x", ptr, i, b[i], seed+byte(i))
		}
	}
}
