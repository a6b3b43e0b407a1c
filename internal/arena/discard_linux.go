//go:build linux

package arena

import "golang.org/x/sys/unix"

// dropPages releases page-aligned memory. Private anonymous pages read back
// as zero after MADV_DONTNEED on Linux.
func dropPages(b []byte) error {
	return unix.Madvise(b, unix.MADV_DONTNEED)
}
