package alloc

import (
	"fmt"
	"os"

	"github.com/joshuapare/kmem/internal/arena"
	"github.com/joshuapare/kmem/internal/console"
	"github.com/joshuapare/kmem/internal/format"
	"github.com/joshuapare/kmem/mem/region"
)

// Runtime debug flag for allocation logging - controlled by KMEM_LOG_ALLOC env var.
var logAlloc = os.Getenv("KMEM_LOG_ALLOC") != ""

const (
	headerSize = format.HeaderSize
	nilAddr    = format.NilAddr
)

// FreeListAllocator is a first-fit allocator over one region.
//
// Free memory is described by an intrusive singly-linked list of blocks
// written into the free memory itself and kept sorted by address. Because
// the list is sorted and every Free merges with both neighbours, no two
// free blocks are ever adjacent, and coalescing only has to look at the
// immediate predecessor and successor.
type FreeListAllocator struct {
	ar   *arena.Arena
	r    region.Region
	head uint64 // address of the lowest free block, nilAddr when full

	initialized bool
	track       *tracker

	stats Stats
}

// NewFreeList creates an uninitialized allocator. Call Init before use.
func NewFreeList(opts ...Option) *FreeListAllocator {
	o := buildOptions(opts)
	fl := &FreeListAllocator{head: nilAddr}
	if o.tracking {
		fl.track = newTracker()
	}
	return fl
}

// Init hands the arena's region to the allocator and writes a single free
// block spanning all of it. The allocator owns the region from here on.
func (fl *FreeListAllocator) Init(a *arena.Arena) error {
	if fl.initialized {
		return ErrAlreadyInitialized
	}
	r := a.Region()
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Start == 0 {
		return ErrNullRegion
	}
	if r.Length <= headerSize {
		return fmt.Errorf("%w: %d bytes, need more than %d", ErrRegionTooSmall, r.Length, headerSize)
	}

	fl.ar = a
	fl.r = r
	fl.head = r.Start
	fl.putHeader(r.Start, format.Header{Size: r.Length - headerSize, Link: nilAddr})
	fl.initialized = true

	if logAlloc {
		console.Debug("freelist init", "start", r.Start, "length", r.Length)
	}
	return nil
}

// Alloc returns the address of size bytes aligned to align, taken from the
// first free block in address order that can hold them.
func (fl *FreeListAllocator) Alloc(size, align uint64) (uint64, error) {
	fl.stats.AllocCalls++
	if size == 0 || !format.IsPowerOfTwo(align) {
		return 0, fmt.Errorf("%w: size=%d align=%d", ErrBadLayout, size, align)
	}
	if !fl.initialized {
		return 0, ErrNotInitialized
	}

	prev := nilAddr
	for cur := fl.head; cur != nilAddr; {
		h := fl.header(cur)
		payload := cur + headerSize
		if p, ok := format.AlignUpChecked(payload, align); ok {
			pad := p - payload
			if h.Size >= pad && h.Size-pad >= size {
				fl.carve(prev, cur, h, p, pad, size)
				if fl.track != nil {
					fl.track.record(p, Layout{Size: size, Align: align})
				}
				if logAlloc {
					console.Debug("alloc", "size", size, "align", align, "block", cur, "ptr", p, "pad", pad)
				}
				return p, nil
			}
		}
		prev, cur = cur, h.Link
	}

	fl.stats.AllocFailed++
	if logAlloc {
		console.Debug("alloc failed", "size", size, "align", align, "free_bytes", fl.freeBytes())
	}
	return 0, fmt.Errorf("%w: %s", ErrOutOfMemory, Layout{Size: size, Align: align})
}

// carve takes an allocation at p out of the free block at cur (payload
// h.Size) and unlinks the block, leaving any usable tail on the list in its
// place.
func (fl *FreeListAllocator) carve(prev, cur uint64, h format.Header, p, pad, size uint64) {
	blockEnd := cur + headerSize + h.Size
	used := p + size
	rem := blockEnd - used

	next := h.Link
	span := blockEnd - p // whole tail folded into the allocation
	if rem >= headerSize {
		// Split: the tail becomes a free block in the consumed block's slot.
		fl.putHeader(used, format.Header{Size: rem - headerSize, Link: next})
		next = used
		span = size
		fl.stats.SplitCount++
	}
	fl.relink(prev, next)

	// The allocation header sits directly before p. Its link word records
	// the leading padding so Free can find the original block start.
	fl.putHeader(p-headerSize, format.Header{Size: span, Link: pad})

	fl.stats.LiveAllocations++
	fl.stats.BytesInUse += pad + span
}

// Free returns ptr's block to the free list, merging it with adjacent free
// blocks. ptr must have been returned by Alloc with the same size and align.
func (fl *FreeListAllocator) Free(ptr, size, align uint64) error {
	fl.stats.FreeCalls++
	if !fl.initialized {
		return ErrNotInitialized
	}
	if ptr < fl.r.Start+headerSize || ptr > fl.r.End() {
		return fmt.Errorf("%w: %#x outside %s", ErrPrecondition, ptr, fl.r)
	}
	if fl.track != nil {
		if err := fl.track.release(ptr, Layout{Size: size, Align: align}); err != nil {
			return err
		}
	}

	h := fl.header(ptr - headerSize)
	start := ptr - headerSize - h.Link
	payload := h.Link + h.Size

	fl.stats.LiveAllocations--
	fl.stats.BytesInUse -= payload

	fl.insert(start, payload)

	if logAlloc {
		console.Debug("free", "ptr", ptr, "block", start, "payload", payload)
	}
	return nil
}

// insert links a free block of the given payload at addr into the sorted
// list and coalesces it with its neighbours.
func (fl *FreeListAllocator) insert(addr, payload uint64) {
	prev := nilAddr
	cur := fl.head
	for cur != nilAddr && cur < addr {
		prev = cur
		cur = fl.header(cur).Link
	}
	// cur is now the first block above addr (or nilAddr)

	blockAddr := addr
	blockSize := payload

	if prev != nilAddr {
		ph := fl.header(prev)
		if prev+headerSize+ph.Size == addr {
			// Backward merge: the predecessor absorbs the freed block.
			fl.stats.CoalesceBackward++
			blockAddr = prev
			blockSize = ph.Size + headerSize + payload
		} else {
			fl.putHeader(prev, format.Header{Size: ph.Size, Link: addr})
		}
	} else {
		fl.head = addr
	}

	next := cur
	if cur != nilAddr && blockAddr+headerSize+blockSize == cur {
		// Forward merge: absorb the successor.
		fl.stats.CoalesceForward++
		ch := fl.header(cur)
		blockSize += headerSize + ch.Size
		next = ch.Link
	}
	fl.putHeader(blockAddr, format.Header{Size: blockSize, Link: next})
}

// relink makes prev (or the head when prev is nilAddr) point at next.
func (fl *FreeListAllocator) relink(prev, next uint64) {
	if prev == nilAddr {
		fl.head = next
		return
	}
	ph := fl.header(prev)
	ph.Link = next
	fl.putHeader(prev, ph)
}

// Slice returns the n payload bytes at ptr. It panics if the span is outside
// the region, like any out-of-range slice access.
func (fl *FreeListAllocator) Slice(ptr, n uint64) []byte {
	b, err := fl.ar.Slice(ptr, n)
	if err != nil {
		panic(err)
	}
	return b
}

// Trim hands the payload pages of every free block back to the host and
// returns the number of payload bytes released. Headers stay in place, so
// the free list is unchanged; released payloads read back as zero.
func (fl *FreeListAllocator) Trim() (uint64, error) {
	var released uint64
	for _, b := range fl.FreeBlocks() {
		if b.Size < format.PageSize {
			continue
		}
		if err := fl.ar.Discard(b.Addr+headerSize, b.Size); err != nil {
			return released, fmt.Errorf("trim block %#x: %w", b.Addr, err)
		}
		released += b.Size
	}
	if logAlloc {
		console.Debug("trim", "released", released)
	}
	return released, nil
}

// Region returns the managed region.
func (fl *FreeListAllocator) Region() region.Region {
	return fl.r
}

// FreeBlocks walks the free list in list order.
func (fl *FreeListAllocator) FreeBlocks() []Block {
	var blocks []Block
	for cur := fl.head; cur != nilAddr; {
		h := fl.header(cur)
		blocks = append(blocks, Block{Addr: cur, Size: h.Size})
		cur = h.Link
	}
	return blocks
}

// Stats returns the counters plus a fresh walk of the free list.
func (fl *FreeListAllocator) Stats() Stats {
	s := fl.stats
	for _, b := range fl.FreeBlocks() {
		s.FreeBlocks++
		s.FreeBytes += b.Size
		s.LargestFree = max(s.LargestFree, b.Size)
	}
	s.HeaderBytes = uint64(s.FreeBlocks+s.LiveAllocations) * headerSize
	return s
}

// Check walks the free list and verifies that blocks are sorted, never
// adjacent, inside the region, and that free, used and header bytes add up
// to the region length.
func (fl *FreeListAllocator) Check() error {
	if !fl.initialized {
		return ErrNotInitialized
	}
	var (
		prev   Block
		n      int
		free   uint64
		blocks int
	)
	limit := fl.r.Length / headerSize
	for cur := fl.head; cur != nilAddr; n++ {
		if uint64(n) > limit {
			return fmt.Errorf("%w: list longer than %d blocks", ErrCorrupt, limit)
		}
		off, err := fl.ar.Offset(cur)
		if err != nil || format.CheckHeader(fl.ar.Bytes(), off) != nil {
			return fmt.Errorf("%w: block %#x outside %s", ErrCorrupt, cur, fl.r)
		}
		h := fl.header(cur)
		b := Block{Addr: cur, Size: h.Size}
		if h.Size > fl.r.End()-cur-headerSize {
			return fmt.Errorf("%w: block %#x runs past %s", ErrCorrupt, cur, fl.r)
		}
		if n > 0 && b.Addr <= prev.End() {
			return fmt.Errorf("%w: block %#x not after %#x-%#x", ErrCorrupt, b.Addr, prev.Addr, prev.End())
		}
		free += h.Size
		blocks++
		prev = b
		cur = h.Link
	}

	total := free + fl.stats.BytesInUse + uint64(blocks+fl.stats.LiveAllocations)*headerSize
	if total != fl.r.Length {
		return fmt.Errorf("%w: %d bytes accounted, region has %d", ErrCorrupt, total, fl.r.Length)
	}
	return nil
}

// Tracked returns the number of live allocations in the tracking registry,
// or -1 when tracking is disabled.
func (fl *FreeListAllocator) Tracked() int {
	if fl.track == nil {
		return -1
	}
	return fl.track.len()
}

func (fl *FreeListAllocator) freeBytes() uint64 {
	var total uint64
	for _, b := range fl.FreeBlocks() {
		total += b.Size
	}
	return total
}

// header and putHeader are the only accessors of block headers. Addresses
// are translated by the arena; a header outside it panics like any
// out-of-range access.
func (fl *FreeListAllocator) header(addr uint64) format.Header {
	return format.ReadHeader(fl.ar.Bytes(), fl.offset(addr))
}

func (fl *FreeListAllocator) putHeader(addr uint64, h format.Header) {
	format.PutHeader(fl.ar.Bytes(), fl.offset(addr), h)
}

func (fl *FreeListAllocator) offset(addr uint64) uint64 {
	off, err := fl.ar.Offset(addr)
	if err != nil {
		panic(err)
	}
	return off
}
