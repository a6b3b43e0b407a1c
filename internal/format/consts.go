// Package format holds the low-level layout of allocator metadata: the
// in-memory block header codec, alignment arithmetic, and the size constants
// shared by the heap, bump and frame allocators. Every read or write of a
// header written into managed memory goes through this package.
package format

// Size represents a memory block size in bytes.
type Size = uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)

const (
	// WordSize is the width of one header field.
	WordSize = 8

	// HeaderSize is the size of the block header that precedes every free
	// block and every allocated payload. Layout (little-endian):
	//   0x00  size  uint64
	//   0x08  link  uint64
	// For a free block, size is the payload size and link is the address of
	// the next free block. For an allocated block, size is the span from the
	// payload pointer to the end of the block and link is the leading padding
	// folded into the allocation.
	HeaderSize = 2 * WordSize

	// HeaderSizeOffset and HeaderLinkOffset locate the two header fields.
	HeaderSizeOffset = 0x00
	HeaderLinkOffset = 0x08

	// PageSize is the base page size of the paging layer.
	PageSize = 4 * Kb

	// FrameSize is the size of a physical frame handed out by the frame
	// allocator (one large page).
	FrameSize = 2 * Mb

	// NilAddr terminates the free list. Address zero is reserved as the null
	// pointer returned to the runtime on failure, so it cannot be used here.
	NilAddr = ^uint64(0)
)
