// Package region describes contiguous physical address ranges and the
// boot-reported memory map built from them.
//
// A Region has no behaviour of its own. It is the substrate the heap, bump
// and frame allocators are initialized from, and it is immutable once handed
// to an allocator.
package region

import (
	"fmt"
	"math"
)

// Region is a contiguous range of physical addresses [Start, Start+Length).
type Region struct {
	Start  uint64
	Length uint64
}

// New returns a validated region.
func New(start, length uint64) (Region, error) {
	r := Region{Start: start, Length: length}
	if err := r.Validate(); err != nil {
		return Region{}, err
	}
	return r, nil
}

// Validate checks Length > 0 and that Start+Length does not wrap.
func (r Region) Validate() error {
	if r.Length == 0 {
		return ErrEmptyRegion
	}
	if r.Start > math.MaxUint64-r.Length {
		return fmt.Errorf("%w: start=%#x length=%#x", ErrRegionOverflow, r.Start, r.Length)
	}
	return nil
}

// End returns the first address past the region.
func (r Region) End() uint64 {
	return r.Start + r.Length
}

// Contains reports whether addr lies inside the region.
func (r Region) Contains(addr uint64) bool {
	return addr >= r.Start && addr-r.Start < r.Length
}

// ContainsRange reports whether [addr, addr+n) lies inside the region.
func (r Region) ContainsRange(addr, n uint64) bool {
	if !r.Contains(addr) {
		return n == 0 && addr == r.End()
	}
	return n <= r.End()-addr
}

// Overlaps reports whether the two regions share at least one byte.
func (r Region) Overlaps(o Region) bool {
	return r.Start < o.End() && o.Start < r.End()
}

// String formats the region like a memory map line.
func (r Region) String() string {
	return fmt.Sprintf("[%#010x - %#010x] %d bytes", r.Start, r.End(), r.Length)
}
