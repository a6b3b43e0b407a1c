package arena

import "unsafe"

// sliceAddr returns the host address of the first byte of b.
func sliceAddr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}
