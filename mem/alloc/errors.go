package alloc

import "errors"

var (
	// ErrOutOfMemory indicates no free block or cursor space satisfies the request.
	ErrOutOfMemory = errors.New("alloc: out of memory")

	// ErrBadLayout indicates a zero size or an alignment that is not a power of two.
	ErrBadLayout = errors.New("alloc: size must be > 0 and align a power of two")

	// ErrAlreadyInitialized indicates a second Init on the same allocator.
	ErrAlreadyInitialized = errors.New("alloc: already initialized")

	// ErrNotInitialized indicates use before Init.
	ErrNotInitialized = errors.New("alloc: not initialized")

	// ErrRegionTooSmall indicates a region that cannot hold one block header.
	ErrRegionTooSmall = errors.New("alloc: region too small")

	// ErrNullRegion indicates a heap region starting at address zero, which
	// would make a valid allocation indistinguishable from null.
	ErrNullRegion = errors.New("alloc: region starts at the null address")

	// ErrPrecondition indicates a detected caller contract violation: double
	// free, mismatched layout, or a pointer this allocator does not own.
	ErrPrecondition = errors.New("alloc: precondition violated")

	// ErrCorrupt indicates Check found the free list in an impossible state.
	ErrCorrupt = errors.New("alloc: free list corrupt")
)
