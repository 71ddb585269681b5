package engine

import "runtime"

// Zeroize overwrites a buffer with zeros in a way the compiler cannot
// elide as a dead store.
//
// A plain clear loop before the buffer's last use is enough for
// correctness, but once the buffer is otherwise dead the optimizer is
// entitled to drop the writes, which would silently reintroduce the
// plaintext leak this package exists to prevent. runtime.KeepAlive pins
// the buffer as live until after the writes, so the clear is observable
// and cannot be eliminated.
func Zeroize(b []byte) {
	if len(b) == 0 {
		return
	}
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// IsZeroed reports whether every byte of b is zero. Used by tests and
// the guard's exit-path assertions.
func IsZeroed(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
