package boot

import "errors"

var (
	// ErrNoHeapRegion indicates no usable area above LowMemoryLimit can hold
	// the requested heap.
	ErrNoHeapRegion = errors.New("boot: no usable area fits the heap")

	// ErrHeapSize indicates a heap size that is not a positive page multiple.
	ErrHeapSize = errors.New("boot: heap size must be a positive multiple of the page size")
)
