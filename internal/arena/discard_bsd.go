//go:build darwin || freebsd || netbsd || openbsd

package arena

import "golang.org/x/sys/unix"

// dropPages releases page-aligned memory. Outside Linux MADV_DONTNEED does not
// promise zero-fill, so the pages are cleared first.
func dropPages(b []byte) error {
	clear(b)
	return unix.Madvise(b, unix.MADV_DONTNEED)
}
