package format

import "encoding/binary"

// Binary encoding utilities for header words.
//
// Headers live inside the managed region itself, so the region is a byte
// slice and headers are decoded with encoding/binary instead of being cast
// through unsafe pointers. The compiler inlines these calls.

// PutU64 writes a uint64 value to the buffer at the specified offset in little-endian format.
func PutU64(b []byte, off uint64, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU64 reads a uint64 value from the buffer at the specified offset in little-endian format.
func ReadU64(b []byte, off uint64) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}

// Header is the decoded form of a block header.
type Header struct {
	Size uint64
	Link uint64
}

// PutHeader writes h at offset off.
func PutHeader(b []byte, off uint64, h Header) {
	PutU64(b, off+HeaderSizeOffset, h.Size)
	PutU64(b, off+HeaderLinkOffset, h.Link)
}

// ReadHeader decodes the header at offset off.
func ReadHeader(b []byte, off uint64) Header {
	return Header{
		Size: ReadU64(b, off+HeaderSizeOffset),
		Link: ReadU64(b, off+HeaderLinkOffset),
	}
}

// CheckHeader reports whether a full header fits at off.
func CheckHeader(b []byte, off uint64) error {
	if off > uint64(len(b)) || uint64(len(b))-off < HeaderSize {
		return ErrTruncated
	}
	return nil
}
