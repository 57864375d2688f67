package corepy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Legend-Vipin/corepy/internal/kernel"
)

func TestMatMulSmall(t *testing.T) {
	r := testRuntime(t, Config{})

	a := []float32{1, 2, 3, 4, 5, 6}    // 2x3
	b := []float32{7, 8, 9, 10, 11, 12} // 3x2
	out := make([]float32, 4)
	require.NoError(t, r.MatMul(context.Background(), a, b, out, 2, 3, 2))
	assert.Equal(t, []float32{58, 64, 139, 154}, out)
}

func TestMatMulBandingIsBitExact(t *testing.T) {
	const (
		m = 64
		k = 33
		n = 17
	)
	a := make([]float32, m*k)
	b := make([]float32, k*n)
	for i := range a {
		a[i] = float32(i%13) * 0.25
	}
	for i := range b {
		b[i] = float32(i%7) - 3.5
	}

	single := testRuntime(t, Config{Workers: 1})
	banded := testRuntime(t, Config{Workers: 7})

	out1 := make([]float32, m*n)
	outN := make([]float32, m*n)
	require.NoError(t, single.MatMul(context.Background(), a, b, out1, m, k, n))
	require.NoError(t, banded.MatMul(context.Background(), a, b, outN, m, k, n))

	// Each output row belongs to exactly one band, so worker count must
	// not change a single bit.
	assert.Equal(t, out1, outN)
}

func TestMatMulValidation(t *testing.T) {
	r := testRuntime(t, Config{})
	ctx := context.Background()
	a := []float32{1, 2, 3, 4}
	out := make([]float32, 4)

	assert.ErrorIs(t, r.MatMul(ctx, nil, a, out, 2, 2, 2), ErrNilBuffer)
	assert.ErrorIs(t, r.MatMul(ctx, a, nil, out, 2, 2, 2), ErrNilBuffer)
	assert.ErrorIs(t, r.MatMul(ctx, a, a, nil, 2, 2, 2), ErrNilBuffer)
	assert.ErrorIs(t, r.MatMul(ctx, a, a, out, 2, 2, -1), ErrSizeMismatch)
	assert.ErrorIs(t, r.MatMul(ctx, a, a, out, 3, 2, 2), ErrSizeMismatch)
	assert.ErrorIs(t, r.MatMul(ctx, a, a, out[:3], 2, 2, 2), ErrSizeMismatch)
}

func TestMatMulZeroDimensions(t *testing.T) {
	r := testRuntime(t, Config{})
	ctx := context.Background()

	// m == 0: nothing to produce.
	require.NoError(t, r.MatMul(ctx, []float32{}, []float32{1, 2}, []float32{}, 0, 1, 2))

	// k == 0: the product is defined and all-zero, so stale output must
	// be cleared.
	out := []float32{999, 999, 999, 999}
	require.NoError(t, r.MatMul(ctx, []float32{}, []float32{}, out, 2, 0, 2))
	assert.Equal(t, []float32{0, 0, 0, 0}, out)
}

func TestMatMulDefaultPolicyCutover(t *testing.T) {
	r := testRuntime(t, Config{BLASCutover: 4})

	const dim = 8 // above the 4 cutover in every dimension
	a := make([]float32, dim*dim)
	b := make([]float32, dim*dim)
	for i := range a {
		a[i] = float32(i % 5)
		b[i] = float32(i % 3)
	}
	out := make([]float32, dim*dim)
	require.NoError(t, r.MatMul(context.Background(), a, b, out, dim, dim, dim))

	explain := r.Explain()
	assert.Contains(t, explain, "policy=DEFAULT")
	if kernel.Available() {
		assert.Contains(t, explain, "OpenBLAS")
	} else {
		assert.Contains(t, explain, kernel.NativeLabel())
	}

	// Whatever the backend, the values must agree with the native kernel.
	want := make([]float32, dim*dim)
	kernel.MatMulF32(a, b, want, dim, dim, dim)
	for i := range want {
		assert.InDelta(t, want[i], out[i], 1e-3)
	}
}

func TestMatMulBelowCutoverStaysNative(t *testing.T) {
	r := testRuntime(t, Config{BLASCutover: 256})

	a := make([]float32, 16*16)
	out := make([]float32, 16*16)
	require.NoError(t, r.MatMul(context.Background(), a, a, out, 16, 16, 16))
	assert.Contains(t, r.Explain(), kernel.NativeLabel())
}
