package region

import "errors"

var (
	// ErrEmptyRegion indicates a region of zero length.
	ErrEmptyRegion = errors.New("region: zero length")

	// ErrRegionOverflow indicates Start+Length wraps the address space.
	ErrRegionOverflow = errors.New("region: end address overflows")

	// ErrEmptyMap indicates a memory map without entries.
	ErrEmptyMap = errors.New("region: empty memory map")

	// ErrOverlap indicates two usable areas share addresses.
	ErrOverlap = errors.New("region: usable areas overlap")

	// ErrUnknownType indicates an unrecognized area type name.
	ErrUnknownType = errors.New("region: unknown area type")
)
