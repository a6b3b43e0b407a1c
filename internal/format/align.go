package format

// Alignment utilities. All arithmetic is unsigned; callers guarantee the
// result does not wrap.

// IsPowerOfTwo reports whether n is a non-zero power of two.
func IsPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// AlignUp returns addr rounded up to the next multiple of align.
// align must be a power of two.
//
// Example:
//
//	AlignUp(1, 8)    = 8
//	AlignUp(8, 8)    = 8
//	AlignUp(4097, 4096) = 8192
func AlignUp(addr, align uint64) uint64 {
	return (addr + align - 1) &^ (align - 1)
}

// AlignDown returns addr rounded down to a multiple of align.
func AlignDown(addr, align uint64) uint64 {
	return addr &^ (align - 1)
}

// AlignUpChecked is AlignUp that reports wrap-around instead of returning a
// small bogus address.
func AlignUpChecked(addr, align uint64) (uint64, bool) {
	if addr > ^uint64(0)-(align-1) {
		return 0, false
	}
	return AlignUp(addr, align), true
}
