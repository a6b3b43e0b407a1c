package alloc

import "fmt"

// Allocator is the runtime allocation contract.
//
// Implementations:
//   - FreeListAllocator: first-fit allocator with reuse
//   - BumpAllocator: monotonic allocator, Free is a no-op
type Allocator interface {
	// Alloc returns the address of at least size bytes aligned to align.
	Alloc(size, align uint64) (uint64, error)

	// Free releases ptr, which must come from Alloc with the same size and align.
	Free(ptr, size, align uint64) error
}

// Layout is the size and alignment of one allocation request.
type Layout struct {
	Size  uint64
	Align uint64
}

func (l Layout) String() string {
	return fmt.Sprintf("size=%d align=%d", l.Size, l.Align)
}

// Block is one entry of the free list.
type Block struct {
	Addr uint64 // address of the block header
	Size uint64 // payload bytes after the header
}

// End returns the first address past the block.
func (b Block) End() uint64 {
	return b.Addr + headerSize + b.Size
}

// Stats holds allocator counters and a snapshot of the free list.
type Stats struct {
	AllocCalls  int // Total Alloc() calls
	FreeCalls   int // Total Free() calls
	AllocFailed int // Alloc() calls that returned ErrOutOfMemory

	SplitCount       int // Blocks split on allocation
	CoalesceBackward int // Merges with the preceding free block
	CoalesceForward  int // Merges with the following free block

	LiveAllocations int    // Allocations not yet freed
	BytesInUse      uint64 // Bytes owned by live allocations, padding and tail slack included
	HeaderBytes     uint64 // Bytes spent on headers of free blocks and live allocations

	FreeBlocks  int    // Blocks on the free list
	FreeBytes   uint64 // Sum of free payload sizes
	LargestFree uint64 // Largest free payload
}

// Option configures an allocator at construction.
type Option func(*options)

type options struct {
	tracking bool
}

// WithTracking records every live allocation so that double frees,
// mismatched layouts and foreign pointers are reported as ErrPrecondition.
func WithTracking() Option {
	return func(o *options) {
		o.tracking = true
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Compile-time interface checks
var (
	_ Allocator = (*FreeListAllocator)(nil)
	_ Allocator = (*BumpAllocator)(nil)
)
