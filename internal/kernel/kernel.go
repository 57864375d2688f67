// Package kernel holds the sequential numeric kernels the dispatch layer
// fans out over, plus the vendor BLAS bindings. Every function here computes
// over exactly the slice it is given; chunking and threading are the
// scheduler's job.
package kernel

// SumF32 computes a Kahan-compensated sum. Compensation keeps sequential
// results stable enough to compare against parallel partial-sum combines.
func SumF32(data []float32) float32 {
	var sum, c float32
	for _, v := range data {
		y := v - c
		t := sum + y
		c = (t - sum) - y
		sum = t
	}
	return sum
}

// SumI32 computes an integer sum with wrap-around overflow semantics.
func SumI32(data []int32) int32 {
	var sum int32
	i := 0
	for ; i <= len(data)-4; i += 4 {
		sum += data[i] + data[i+1] + data[i+2] + data[i+3]
	}
	for ; i < len(data); i++ {
		sum += data[i]
	}
	return sum
}

// MeanF32 computes the arithmetic mean. The caller guarantees a non-empty
// slice; the façade rejects empty input before dispatch.
func MeanF32(data []float32) float32 {
	return SumF32(data) / float32(len(data))
}

// All reports whether every byte is nonzero. Early exit on the first zero.
func All(data []byte) bool {
	for _, v := range data {
		if v == 0 {
			return false
		}
	}
	return true
}

// Any reports whether at least one byte is nonzero.
func Any(data []byte) bool {
	for _, v := range data {
		if v != 0 {
			return true
		}
	}
	return false
}

// DotNative computes a dot product with an unrolled accumulator loop.
func DotNative(a, b []float32) float32 {
	var sum float32
	i := 0
	for ; i <= len(a)-4; i += 4 {
		sum += a[i] * b[i]
		sum += a[i+1] * b[i+1]
		sum += a[i+2] * b[i+2]
		sum += a[i+3] * b[i+3]
	}
	for ; i < len(a); i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// AddF32 computes out[i] = a[i] + b[i].
func AddF32(a, b, out []float32) {
	i := 0
	for ; i <= len(a)-4; i += 4 {
		out[i] = a[i] + b[i]
		out[i+1] = a[i+1] + b[i+1]
		out[i+2] = a[i+2] + b[i+2]
		out[i+3] = a[i+3] + b[i+3]
	}
	for ; i < len(a); i++ {
		out[i] = a[i] + b[i]
	}
}

// SubF32 computes out[i] = a[i] - b[i].
func SubF32(a, b, out []float32) {
	i := 0
	for ; i <= len(a)-4; i += 4 {
		out[i] = a[i] - b[i]
		out[i+1] = a[i+1] - b[i+1]
		out[i+2] = a[i+2] - b[i+2]
		out[i+3] = a[i+3] - b[i+3]
	}
	for ; i < len(a); i++ {
		out[i] = a[i] - b[i]
	}
}

// MulF32 computes out[i] = a[i] * b[i].
func MulF32(a, b, out []float32) {
	i := 0
	for ; i <= len(a)-4; i += 4 {
		out[i] = a[i] * b[i]
		out[i+1] = a[i+1] * b[i+1]
		out[i+2] = a[i+2] * b[i+2]
		out[i+3] = a[i+3] * b[i+3]
	}
	for ; i < len(a); i++ {
		out[i] = a[i] * b[i]
	}
}

// DivF32 computes out[i] = a[i] / b[i]. Division by zero follows IEEE 754
// (Inf/NaN), no special-casing.
func DivF32(a, b, out []float32) {
	i := 0
	for ; i <= len(a)-4; i += 4 {
		out[i] = a[i] / b[i]
		out[i+1] = a[i+1] / b[i+1]
		out[i+2] = a[i+2] / b[i+2]
		out[i+3] = a[i+3] / b[i+3]
	}
	for ; i < len(a); i++ {
		out[i] = a[i] / b[i]
	}
}

// MatMulF32 computes c = a×b for row-major matrices: a is m×k, b is k×n,
// c is m×n. The (i,p,j) loop order walks b and c rows contiguously, with the
// inner loop unrolled. c is zeroed first, so the same function serves both a
// full multiply and one disjoint row band of a larger one.
func MatMulF32(a, b, c []float32, m, k, n int) {
	for i := range c[:m*n] {
		c[i] = 0
	}
	for i := 0; i < m; i++ {
		ci := c[i*n : i*n+n]
		for p := 0; p < k; p++ {
			av := a[i*k+p]
			bp := b[p*n : p*n+n]
			j := 0
			for ; j <= n-4; j += 4 {
				ci[j] += av * bp[j]
				ci[j+1] += av * bp[j+1]
				ci[j+2] += av * bp[j+2]
				ci[j+3] += av * bp[j+3]
			}
			for ; j < n; j++ {
				ci[j] += av * bp[j]
			}
		}
	}
}
