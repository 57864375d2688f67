package kernel

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// vendorBLAS is flipped by the cgo build file when a system BLAS is linked
// in. Policy decisions treat it as the "vendor capability compiled in" bit.
var vendorBLAS = false

// Available reports whether the vendor BLAS path is compiled in.
func Available() bool {
	return vendorBLAS
}

// GemmF32 computes c = a×b through BLAS sgemm (row-major, no transpose,
// alpha=1, beta=0). Under cgo this reaches the system BLAS registered at
// init; callers gate on Available() so the pure-Go fallback implementation
// is only exercised by tests.
func GemmF32(a, b, c []float32, m, k, n int) {
	am := blas32.General{Rows: m, Cols: k, Stride: k, Data: a}
	bm := blas32.General{Rows: k, Cols: n, Stride: n, Data: b}
	cm := blas32.General{Rows: m, Cols: n, Stride: n, Data: c}
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, am, bm, 0, cm)
}

// Dot computes a·b, through BLAS sdot when the vendor capability is
// compiled in and the native unrolled loop otherwise.
func Dot(a, b []float32) float32 {
	if vendorBLAS {
		n := len(a)
		av := blas32.Vector{N: n, Inc: 1, Data: a}
		bv := blas32.Vector{N: n, Inc: 1, Data: b}
		return blas32.Dot(av, bv)
	}
	return DotNative(a, b)
}
