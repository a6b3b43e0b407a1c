package frame

import "errors"

var (
	// ErrNoUsableMemory is returned by New when the memory map has no usable area.
	ErrNoUsableMemory = errors.New("frame: memory map has no usable memory")

	// ErrExhausted is returned by Allocate once every frame below the
	// highest usable address has been handed out.
	ErrExhausted = errors.New("frame: out of frames")
)
