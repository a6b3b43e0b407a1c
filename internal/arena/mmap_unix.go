//go:build unix

package arena

import (
	"errors"

	"golang.org/x/sys/unix"
)

// mapAnon maps size bytes of private anonymous memory.
func mapAnon(size int) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}
	release := func(b []byte) error {
		err := unix.Munmap(b)
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			return nil
		}
		return err
	}
	return data, release, nil
}

// discard drops whole pages inside b. Partial pages at the edges are zeroed by hand.
func discard(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	page := uintptr(unix.Getpagesize())
	base := sliceAddr(b)
	start := (base + page - 1) &^ (page - 1)
	end := (base + uintptr(len(b))) &^ (page - 1)
	if end <= start {
		clear(b)
		return nil
	}
	lo := int(start - base)
	hi := int(end - base)
	clear(b[:lo])
	clear(b[hi:])
	return dropPages(b[lo:hi])
}
