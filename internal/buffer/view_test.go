package buffer

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func addrOfInt32(s []int32) uintptr { return uintptr(unsafe.Pointer(&s[0])) }
func addrOfByte(s []byte) uintptr   { return uintptr(unsafe.Pointer(&s[0])) }

func TestFloat32View(t *testing.T) {
	backing := []float32{1.5, -2, 3.25, 0}

	view, err := Float32(Addr(backing), len(backing))
	require.NoError(t, err)
	require.Len(t, view, 4)

	// Same memory, not a copy.
	view[2] = 99
	require.Equal(t, float32(99), backing[2])
}

func TestFloat32NilAddress(t *testing.T) {
	_, err := Float32(0, 8)
	require.ErrorIs(t, err, ErrNilAddress)
}

func TestFloat32Misaligned(t *testing.T) {
	backing := []float32{1, 2, 3}
	_, err := Float32(Addr(backing)+1, 2)
	require.ErrorIs(t, err, ErrBadAlignment)
}

func TestFloat32NegativeCount(t *testing.T) {
	backing := []float32{1}
	_, err := Float32(Addr(backing), -1)
	require.Error(t, err)
}

func TestInt32View(t *testing.T) {
	backing := []int32{7, 8, 9}
	view, err := Int32(addrOfInt32(backing), 3)
	require.NoError(t, err)
	require.Equal(t, []int32{7, 8, 9}, view)
}

func TestBytesView(t *testing.T) {
	backing := []byte{1, 0, 1}
	view, err := Bytes(addrOfByte(backing), 3)
	require.NoError(t, err)
	require.Equal(t, backing, view)

	// Byte buffers have no alignment requirement.
	_, err = Bytes(addrOfByte(backing)+1, 2)
	require.NoError(t, err)
}

func TestAsFloat32(t *testing.T) {
	raw := make([]byte, 16)
	f := AsFloat32(raw, 4)
	require.Len(t, f, 4)

	f[0] = 1.25
	roundTrip := AsFloat32(raw, 4)
	require.Equal(t, float32(1.25), roundTrip[0])

	require.Nil(t, AsFloat32(nil, 0))
}

func TestAsInt32(t *testing.T) {
	raw := make([]byte, 8)
	v := AsInt32(raw, 2)
	v[1] = -5
	require.Equal(t, int32(-5), AsInt32(raw, 2)[1])
}
