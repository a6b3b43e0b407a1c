// Package arena provides host backing memory for a simulated physical region.
//
// An Arena owns exactly Region.Length bytes and translates physical addresses
// inside the region to offsets into those bytes. It is the only place where
// an address becomes a slice index.
package arena

import (
	"errors"
	"fmt"

	"github.com/joshuapare/kmem/mem/region"
)

var (
	// ErrOutOfRange indicates an address or span outside the arena.
	ErrOutOfRange = errors.New("arena: address out of range")

	// ErrTooLarge indicates the region cannot be mapped in this process.
	ErrTooLarge = errors.New("arena: region too large to map")

	// ErrClosed indicates use after Close.
	ErrClosed = errors.New("arena: closed")
)

// Arena is a region plus the bytes that back it.
type Arena struct {
	r       region.Region
	data    []byte
	release func([]byte) error
}

// New maps backing memory for r.
func New(r region.Region) (*Arena, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.Length > uint64(maxInt) {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, r.Length)
	}
	data, release, err := mapAnon(int(r.Length))
	if err != nil {
		return nil, fmt.Errorf("arena: map %s: %w", r, err)
	}
	return &Arena{r: r, data: data, release: release}, nil
}

// FromBytes wraps caller-owned memory. Close does not free it.
func FromBytes(start uint64, data []byte) (*Arena, error) {
	r, err := region.New(start, uint64(len(data)))
	if err != nil {
		return nil, err
	}
	return &Arena{r: r, data: data}, nil
}

// Region returns the physical range the arena backs.
func (a *Arena) Region() region.Region {
	return a.r
}

// Bytes returns the whole backing slice.
func (a *Arena) Bytes() []byte {
	return a.data
}

// Offset translates a physical address to an index into Bytes.
func (a *Arena) Offset(addr uint64) (uint64, error) {
	if a.data == nil {
		return 0, ErrClosed
	}
	if !a.r.Contains(addr) {
		return 0, fmt.Errorf("%w: %#x not in %s", ErrOutOfRange, addr, a.r)
	}
	return addr - a.r.Start, nil
}

// Slice returns the n bytes starting at physical address addr.
func (a *Arena) Slice(addr, n uint64) ([]byte, error) {
	if a.data == nil {
		return nil, ErrClosed
	}
	if !a.r.ContainsRange(addr, n) {
		return nil, fmt.Errorf("%w: [%#x, +%d) not in %s", ErrOutOfRange, addr, n, a.r)
	}
	off := addr - a.r.Start
	return a.data[off : off+n : off+n], nil
}

// Discard tells the host the span's contents are no longer needed. The span
// stays mapped and reads back as zero. Memory from FromBytes is only zeroed.
func (a *Arena) Discard(addr, n uint64) error {
	b, err := a.Slice(addr, n)
	if err != nil {
		return err
	}
	if a.release == nil {
		clear(b)
		return nil
	}
	return discard(b)
}

// Close unmaps the backing memory. Calling Close twice is a no-op.
func (a *Arena) Close() error {
	if a.data == nil {
		return nil
	}
	data := a.data
	a.data = nil
	if a.release == nil {
		return nil
	}
	return a.release(data)
}

const maxInt = int(^uint(0) >> 1)
