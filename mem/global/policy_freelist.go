//go:build !bumpheap

package global

// DefaultPolicy is the heap policy used when the boot config names none.
// Build with -tags bumpheap to default to the bump allocator.
const DefaultPolicy = PolicyFreeList
