// Package buffer is the only place in the runtime that performs raw-pointer
// arithmetic. Binding layers hand the runtime raw buffer addresses; the
// constructors here validate them once and return ordinary bounds-checked
// slices, so everything above this package works on safe views.
package buffer

import (
	"errors"
	"fmt"
	"unsafe"
)

var (
	// ErrNilAddress is returned when a caller passes address zero.
	ErrNilAddress = errors.New("nil buffer address")

	// ErrBadAlignment is returned when an address is not aligned for the
	// requested element type.
	ErrBadAlignment = errors.New("misaligned buffer address")
)

// Float32 views count float32 elements starting at addr.
//
// The caller guarantees addr points at memory valid for count*4 bytes and
// that the memory outlives every use of the returned slice. Nothing here can
// verify that; it is the binding-layer contract.
func Float32(addr uintptr, count int) ([]float32, error) {
	if err := check(addr, count, unsafe.Alignof(float32(0))); err != nil {
		return nil, err
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(addr)), count), nil
}

// Int32 views count int32 elements starting at addr.
func Int32(addr uintptr, count int) ([]int32, error) {
	if err := check(addr, count, unsafe.Alignof(int32(0))); err != nil {
		return nil, err
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(addr)), count), nil
}

// Bytes views count bytes starting at addr. Used for boolean buffers, where
// any nonzero byte is truthy.
func Bytes(addr uintptr, count int) ([]byte, error) {
	if err := check(addr, count, 1); err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), count), nil
}

func check(addr uintptr, count int, align uintptr) error {
	if addr == 0 {
		return ErrNilAddress
	}
	if count < 0 {
		return fmt.Errorf("negative element count %d", count)
	}
	if addr%align != 0 {
		return fmt.Errorf("%w: %#x is not %d-byte aligned", ErrBadAlignment, addr, align)
	}
	return nil
}

// AsFloat32 reinterprets the front of a byte buffer as count float32
// elements. The buffer must hold at least count*4 bytes and start 4-byte
// aligned; arena allocations satisfy both when requested with align >= 4.
func AsFloat32(b []byte, count int) []float32 {
	if count == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), count)
}

// AsInt32 reinterprets the front of a byte buffer as count int32 elements.
func AsInt32(b []byte, count int) []int32 {
	if count == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&b[0])), count)
}

// Addr returns the address of the first element of a float32 slice, or zero
// for an empty slice. Test helper for exercising the raw-address
// constructors against real Go memory.
func Addr(s []float32) uintptr {
	if len(s) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&s[0]))
}
