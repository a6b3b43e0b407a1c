package alloc

import (
	"fmt"

	"github.com/joshuapare/kmem/internal/console"
	"github.com/joshuapare/kmem/internal/format"
	"github.com/joshuapare/kmem/mem/region"
	"github.com/joshuapare/kmem/mem/spin"
)

// BumpAllocator is a monotonic allocator: it hands out addresses by
// advancing a cursor through its region and never reclaims them.
//
// Key characteristics:
//   - O(1) initialization and allocation
//   - Zero bookkeeping: no headers, no free list
//   - Free() is a no-op
//   - Writes nothing into the region, so it needs no backing memory
//
// It is meant for a bounded number of early, long-lived allocations. It
// carries its own spinlock because boot code may call it before the global
// heap facade is initialized.
type BumpAllocator struct {
	lock spin.Lock

	r    region.Region
	next uint64 // next free address; only ever increases

	initialized bool
	track       *tracker

	allocCalls  int
	freeCalls   int
	allocFailed int
	live        int
}

// NewBump creates an uninitialized bump allocator. Call Init before use.
func NewBump(opts ...Option) *BumpAllocator {
	o := buildOptions(opts)
	ba := &BumpAllocator{}
	if o.tracking {
		ba.track = newTracker()
	}
	return ba
}

// Init sets the cursor to the start of r.
func (ba *BumpAllocator) Init(r region.Region) error {
	ba.lock.Lock()
	defer ba.lock.Unlock()

	if ba.initialized {
		return ErrAlreadyInitialized
	}
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Start == 0 {
		return ErrNullRegion
	}
	ba.r = r
	ba.next = r.Start
	ba.initialized = true

	if logAlloc {
		console.Debug("bump init", "start", r.Start, "length", r.Length)
	}
	return nil
}

// Alloc rounds the cursor up to align and advances it past size bytes.
func (ba *BumpAllocator) Alloc(size, align uint64) (uint64, error) {
	if size == 0 || !format.IsPowerOfTwo(align) {
		return 0, fmt.Errorf("%w: size=%d align=%d", ErrBadLayout, size, align)
	}

	ba.lock.Lock()
	defer ba.lock.Unlock()

	ba.allocCalls++
	if !ba.initialized {
		return 0, ErrNotInitialized
	}

	end := ba.r.End()
	aligned, ok := format.AlignUpChecked(ba.next, align)
	if !ok || aligned > end || end-aligned < size {
		ba.allocFailed++
		return 0, fmt.Errorf("%w: %s, %d bytes remaining", ErrOutOfMemory,
			Layout{Size: size, Align: align}, end-ba.next)
	}

	ba.next = aligned + size
	ba.live++
	if ba.track != nil {
		ba.track.record(aligned, Layout{Size: size, Align: align})
	}
	return aligned, nil
}

// Free never reclaims memory. With tracking enabled it still validates the
// call so contract violations surface during development. Without tracking
// the live count is a best effort: extra frees cannot take it below zero.
func (ba *BumpAllocator) Free(ptr, size, align uint64) error {
	ba.lock.Lock()
	defer ba.lock.Unlock()

	ba.freeCalls++
	if ba.track != nil {
		if err := ba.track.release(ptr, Layout{Size: size, Align: align}); err != nil {
			return err
		}
	}
	if ba.live > 0 {
		ba.live--
	}
	return nil
}

// Used returns the bytes consumed so far, alignment gaps included.
func (ba *BumpAllocator) Used() uint64 {
	ba.lock.Lock()
	defer ba.lock.Unlock()
	if !ba.initialized {
		return 0
	}
	return ba.next - ba.r.Start
}

// Remaining returns the bytes left before the cursor reaches the end.
func (ba *BumpAllocator) Remaining() uint64 {
	ba.lock.Lock()
	defer ba.lock.Unlock()
	if !ba.initialized {
		return 0
	}
	return ba.r.End() - ba.next
}

// Region returns the managed region.
func (ba *BumpAllocator) Region() region.Region {
	return ba.r
}

// Stats reports counters. Free-list fields are zero; the unused tail of the
// region is reported as one free block.
func (ba *BumpAllocator) Stats() Stats {
	ba.lock.Lock()
	defer ba.lock.Unlock()

	s := Stats{
		AllocCalls:      ba.allocCalls,
		FreeCalls:       ba.freeCalls,
		AllocFailed:     ba.allocFailed,
		LiveAllocations: ba.live,
	}
	if ba.initialized {
		s.BytesInUse = ba.next - ba.r.Start
		if rest := ba.r.End() - ba.next; rest > 0 {
			s.FreeBlocks = 1
			s.FreeBytes = rest
			s.LargestFree = rest
		}
	}
	return s
}
