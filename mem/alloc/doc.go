// Package alloc provides the kernel heap allocators: a first-fit free-list
// allocator with splitting and coalescing, and a bump allocator for early
// boot.
//
// # Overview
//
// Both allocators manage a single region handed to them once by the boot
// sequence and never fall back to another allocator. They implement the
// Allocator interface, which is the two-operation contract the runtime's
// dynamic-memory hook calls through the global heap facade:
//
//   - Alloc(size, align): return the address of at least size bytes aligned to align
//   - Free(ptr, size, align): release an address returned by Alloc with the same layout
//
// # Implementations
//
// FreeListAllocator: general purpose, reuse capable
//
//   - Intrusive singly-linked free list written into the free memory itself
//   - List kept sorted by ascending address
//   - First fit, alignment aware placement
//   - Splits oversized blocks, merges freed blocks with both neighbours
//
// BumpAllocator: monotonic
//
//   - Advances a cursor, O(1) allocation
//   - Free is a no-op
//   - Used for a bounded number of long-lived early allocations
//
// # Block Layout
//
// Every free block and every allocated payload is preceded by a 16-byte
// header (see internal/format):
//
//	free block                       allocated block
//	+--------+--------+---------+    +------+--------+--------+---------+------+
//	| size S | next   | S bytes |    | pad  | span   | pad    | payload | tail |
//	+--------+--------+---------+    +------+--------+--------+---------+------+
//	^ B                              ^ B    ^ P-16            ^ P
//
// The header of an allocation always sits directly before the returned
// pointer, independent of alignment padding, so Free finds it at a fixed
// offset. Leading padding and any tail too small to hold a header are folded
// into the allocation and reclaimed with it.
//
// # Usage Example
//
//	ar, err := arena.New(region.Region{Start: 0x100000, Length: 1 << 20})
//	if err != nil {
//	    return err
//	}
//	fl := alloc.NewFreeList()
//	if err := fl.Init(ar); err != nil {
//	    return err
//	}
//
//	ptr, err := fl.Alloc(100, 8)
//	if err != nil {
//	    return err // alloc.ErrOutOfMemory
//	}
//	buf := fl.Slice(ptr, 100)
//	copy(buf, payload)
//
//	_ = fl.Free(ptr, 100, 8)
//
// # Preconditions
//
// Double free, freeing with a different layout, and freeing a pointer this
// allocator did not return are undefined behaviour: nothing per allocation
// is recorded that could detect them. WithTracking adds a registry of live
// allocations that turns these into ErrPrecondition, at the cost of a map
// entry per allocation.
//
// # Thread Safety
//
// FreeListAllocator is not thread-safe; the global heap facade serializes
// it behind a spinlock. BumpAllocator carries its own spinlock because early
// boot callers may reach it before the facade exists.
package alloc
