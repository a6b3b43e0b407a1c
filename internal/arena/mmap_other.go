//go:build !unix

package arena

// mapAnon allocates from the Go heap when mmap is not available.
func mapAnon(size int) ([]byte, func([]byte) error, error) {
	return make([]byte, size), func([]byte) error { return nil }, nil
}

func discard(b []byte) error {
	clear(b)
	return nil
}
