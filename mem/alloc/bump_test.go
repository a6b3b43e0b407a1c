package alloc

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/kmem/mem/region"
)

func newTestBump(t testing.TB, start, length uint64) *BumpAllocator {
	t.Helper()
	ba := NewBump()
	require.NoError(t, ba.Init(region.Region{Start: start, Length: length}))
	return ba
}

// TestBumpAllocator_SimpleAlloc tests basic bump allocation.
func TestBumpAllocator_SimpleAlloc(t *testing.T) {
	ba := newTestBump(t, 0x4444_4444_0000, 100*1024)

	p, err := ba.Alloc(64, 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x4444_4444_0000), p)
	assert.Equal(t, uint64(64), ba.Used())
	assert.Equal(t, uint64(100*1024-64), ba.Remaining())
}

// TestBumpAllocator_MultipleAllocs tests sequential allocations.
func TestBumpAllocator_MultipleAllocs(t *testing.T) {
	ba := newTestBump(t, 0x10000, 4096)

	var last uint64
	for i := range 10 {
		size := uint64(32 + i*8)
		p, err := ba.Alloc(size, 8)
		require.NoError(t, err, "Alloc %d should succeed", i)
		if i > 0 {
			assert.Greater(t, p, last, "addresses should be monotonically increasing")
		}
		last = p
	}
}

// TestBumpAllocator_Alignment tests padding between allocations.
func TestBumpAllocator_Alignment(t *testing.T) {
	ba := newTestBump(t, 0x10000, 4096)

	p1, err := ba.Alloc(3, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(0x10000), p1)

	p2, err := ba.Alloc(8, 64)
	require.NoError(t, err)
	require.Equal(t, uint64(0x10040), p2)
	require.Equal(t, uint64(0x48), ba.Used(), "alignment gap counts as used")

	for align := uint64(1); align <= 1024; align <<= 1 {
		p, err := ba.Alloc(5, align)
		require.NoError(t, err)
		require.Zero(t, p%align)
	}
}

// TestBumpAllocator_OutOfMemory verifies the exact end of the region.
func TestBumpAllocator_OutOfMemory(t *testing.T) {
	ba := newTestBump(t, 0x10000, 128)

	_, err := ba.Alloc(100, 1)
	require.NoError(t, err)

	_, err = ba.Alloc(29, 1)
	require.ErrorIs(t, err, ErrOutOfMemory)

	p, err := ba.Alloc(28, 1)
	require.NoError(t, err, "filling the region exactly is allowed")
	require.Equal(t, uint64(0x10000+100), p)
	require.Zero(t, ba.Remaining())

	_, err = ba.Alloc(1, 1)
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, 2, ba.Stats().AllocFailed)
}

// TestBumpAllocator_AlignmentPastEnd verifies rounding beyond the region fails
// rather than wrapping.
func TestBumpAllocator_AlignmentPastEnd(t *testing.T) {
	ba := newTestBump(t, 0x10001, 100)
	_, err := ba.Alloc(1, 4096)
	require.ErrorIs(t, err, ErrOutOfMemory)

	top := newTestBump(t, math.MaxUint64-100, 100)
	_, err = top.Alloc(1, 1<<20)
	require.ErrorIs(t, err, ErrOutOfMemory, "rounding past the address-space top must not wrap")
}

// TestBumpAllocator_FreeIsNoop verifies Free never gives memory back.
func TestBumpAllocator_FreeIsNoop(t *testing.T) {
	ba := newTestBump(t, 0x10000, 4096)

	p, err := ba.Alloc(64, 8)
	require.NoError(t, err)
	require.NoError(t, ba.Free(p, 64, 8))
	assert.Equal(t, uint64(64), ba.Used())

	q, err := ba.Alloc(64, 8)
	require.NoError(t, err)
	assert.NotEqual(t, p, q, "freed memory is never reused")
}

func TestBumpAllocator_InitErrors(t *testing.T) {
	ba := newTestBump(t, 0x10000, 4096)
	require.ErrorIs(t, ba.Init(region.Region{Start: 0x20000, Length: 10}), ErrAlreadyInitialized)

	require.ErrorIs(t, NewBump().Init(region.Region{Start: 0, Length: 10}), ErrNullRegion)
	require.ErrorIs(t, NewBump().Init(region.Region{Start: 0x1000}), region.ErrEmptyRegion)

	_, err := NewBump().Alloc(8, 8)
	require.ErrorIs(t, err, ErrNotInitialized)

	_, err = ba.Alloc(8, 3)
	require.ErrorIs(t, err, ErrBadLayout)
}

// TestBumpAllocator_Concurrent exercises the internal spinlock.
func TestBumpAllocator_Concurrent(t *testing.T) {
	const workers, perWorker = 8, 200
	ba := newTestBump(t, 0x10000, workers*perWorker*16)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[uint64]bool)
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				p, err := ba.Alloc(16, 16)
				if err != nil {
					t.Error(err)
					return
				}
				mu.Lock()
				seen[p] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*perWorker, "every allocation got a distinct address")
	require.Zero(t, ba.Remaining())
}

func TestBumpAllocator_Stats(t *testing.T) {
	ba := newTestBump(t, 0x10000, 1024)
	_, err := ba.Alloc(100, 4)
	require.NoError(t, err)

	s := ba.Stats()
	assert.Equal(t, 1, s.AllocCalls)
	assert.Equal(t, 1, s.LiveAllocations)
	assert.Equal(t, uint64(100), s.BytesInUse)
	assert.Equal(t, uint64(924), s.FreeBytes)
	assert.Equal(t, 1, s.FreeBlocks)
}

// TestBumpAllocator_ExtraFreesKeepLiveCount verifies untracked stray frees
// never drive the live allocation count negative.
func TestBumpAllocator_ExtraFreesKeepLiveCount(t *testing.T) {
	ba := newTestBump(t, 0x10000, 1024)

	p, err := ba.Alloc(32, 8)
	require.NoError(t, err)
	require.NoError(t, ba.Free(p, 32, 8))
	require.NoError(t, ba.Free(p, 32, 8))
	require.NoError(t, ba.Free(0xdead0, 8, 8))

	s := ba.Stats()
	assert.Zero(t, s.LiveAllocations)
	assert.Equal(t, 3, s.FreeCalls)
}
