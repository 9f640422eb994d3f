package sshproto

import "bytes"

// CopyPrintable copies at most len(dst)-1 bytes of src into dst, stopping at
// the first byte that is not printable ASCII, and writes a NUL right after the
// last copied byte. It returns the number of bytes copied. A zero-capacity dst
// is left untouched.
func CopyPrintable(dst, src []byte) int {
	if len(dst) == 0 {
		return 0
	}

	limit := len(dst) - 1
	if len(src) < limit {
		limit = len(src)
	}

	n := 0
	for n < limit && isPrint(src[n]) {
		dst[n] = src[n]
		n++
	}
	dst[n] = 0

	return n
}

func isPrint(b byte) bool {
	return b >= 0x20 && b <= 0x7e
}

// cString returns the bytes of buf up to the first NUL as a string.
func cString(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i])
	}
	return string(buf)
}
