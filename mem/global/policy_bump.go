//go:build bumpheap

package global

// DefaultPolicy is the heap policy used when the boot config names none.
const DefaultPolicy = PolicyBump
