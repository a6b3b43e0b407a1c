// Package frame hands out physical memory in fixed 2 MiB frames.
//
// The allocator is deliberately simple: it counts frames upward from zero to
// the end of the highest usable area and never reclaims them. It does not
// consult the individual usable areas, so frames that fall in holes or
// reserved memory are still returned; callers that need to keep a range for
// themselves (the kernel heap, for example) move the cursor past it with
// SkipTo.
package frame

import (
	"fmt"

	"github.com/joshuapare/kmem/internal/console"
	"github.com/joshuapare/kmem/internal/format"
	"github.com/joshuapare/kmem/mem/region"
)

// Size is the size of one frame.
const Size = format.FrameSize

// Frame is a physical frame index.
type Frame uint64

// Address returns the physical address of the first byte of the frame.
func (f Frame) Address() uint64 {
	return uint64(f) * Size
}

// String returns the frame index and address.
func (f Frame) String() string {
	return fmt.Sprintf("frame %d @ %#x", uint64(f), f.Address())
}

// Containing returns the frame that holds addr.
func Containing(addr uint64) Frame {
	return Frame(addr / Size)
}

// FrameAllocator is a monotonic frame counter. It is not safe for
// concurrent use.
type FrameAllocator struct {
	next Frame
	max  Frame
}

// New sizes the allocator from mm: frames are handed out from index 0 up to
// (but excluding) the highest usable end address divided by Size.
func New(mm region.MemoryMap) (*FrameAllocator, error) {
	end, ok := mm.HighestUsable()
	if !ok {
		return nil, ErrNoUsableMemory
	}
	fa := &FrameAllocator{max: Containing(end)}
	console.Debug("frame allocator ready", "max", uint64(fa.max), "highest_usable", end)
	return fa, nil
}

// Allocate returns the next frame.
func (fa *FrameAllocator) Allocate() (Frame, error) {
	if fa.next >= fa.max {
		return 0, fmt.Errorf("%w: %d frames allocated", ErrExhausted, uint64(fa.max))
	}
	f := fa.next
	fa.next++
	return f, nil
}

// SkipTo moves the cursor forward to f. It never moves backwards and stops
// at the maximum.
func (fa *FrameAllocator) SkipTo(f Frame) {
	if f > fa.max {
		f = fa.max
	}
	if f > fa.next {
		fa.next = f
	}
}

// Remaining returns how many frames Allocate can still return.
func (fa *FrameAllocator) Remaining() uint64 {
	return uint64(fa.max - fa.next)
}

// Allocated returns the cursor position: frames returned or skipped.
func (fa *FrameAllocator) Allocated() uint64 {
	return uint64(fa.next)
}

// Max returns the exclusive upper bound of frame indices.
func (fa *FrameAllocator) Max() Frame {
	return fa.max
}
