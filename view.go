package corepy

import "github.com/Legend-Vipin/corepy/internal/buffer"

// Raw-address views for embedders that hand buffers across a language
// boundary. Each validates the address and count and returns a slice over
// the caller's memory without copying; the caller keeps ownership and must
// outlive the view.

// ViewFloat32 wraps count float32 values starting at addr. The address
// must be non-nil and 4-byte aligned.
func ViewFloat32(addr uintptr, count int) ([]float32, error) {
	return buffer.Float32(addr, count)
}

// ViewInt32 wraps count int32 values starting at addr.
func ViewInt32(addr uintptr, count int) ([]int32, error) {
	return buffer.Int32(addr, count)
}

// ViewBytes wraps count bytes starting at addr.
func ViewBytes(addr uintptr, count int) ([]byte, error) {
	return buffer.Bytes(addr, count)
}
