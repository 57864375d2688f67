package corepy

import (
	"context"
	"fmt"

	"github.com/Legend-Vipin/corepy/internal/kernel"
	"github.com/Legend-Vipin/corepy/internal/sched"
)

// MatMul computes out = a·b for row-major operands: a is m×k, b is k×n,
// out is m×n. Slice lengths must match those dimensions exactly.
//
// Routing follows the active policy. PolicyBLAS and PolicyOpenBLAS force
// the vendor path; PolicyDefault takes it only when any dimension exceeds
// Config.BLASCutover. When no vendor BLAS is linked the native path serves
// every policy. The native path splits rows into one band per worker and
// runs the blocked kernel on each band; band boundaries do not change the
// result bits because each output row is computed by exactly one band.
//
// PolicyAccelerator is refused with ErrBackendNotHandled before anything
// is recorded or touched.
func (r *Runtime) MatMul(ctx context.Context, a, b, out []float32, m, k, n int) error {
	if a == nil || b == nil || out == nil {
		return ErrNilBuffer
	}
	if m < 0 || k < 0 || n < 0 {
		return ErrSizeMismatch
	}
	if len(a) != m*k || len(b) != k*n || len(out) != m*n {
		return fmt.Errorf("%w: a=%d want %d, b=%d want %d, out=%d want %d",
			ErrSizeMismatch, len(a), m*k, len(b), k*n, len(out), m*n)
	}

	policy := r.Policy()
	if policy == PolicyAccelerator {
		return fmt.Errorf("%w: %s", ErrBackendNotHandled, policy)
	}

	scope := r.prof.Begin(ctx, "matmul_2d", backendCPU, m*k*n)
	defer scope.End()

	useVendor := false
	switch policy {
	case PolicyBLAS, PolicyOpenBLAS:
		useVendor = true
	case PolicyDefault:
		c := r.cfg.BLASCutover
		useVendor = m > c || n > c || k > c
	}

	if useVendor && kernel.Available() {
		r.recordDispatch(backendVendor, "matmul", m, n, k, policy)
		kernel.GemmF32(a, b, out, m, k, n)
		return nil
	}

	r.recordDispatch(backendNative, "matmul", m, n, k, policy)
	err := r.pool.For(m, func(_ *sched.Worker, start, end int) {
		kernel.MatMulF32(a[start*k:end*k], b, out[start*n:end*n], end-start, k, n)
	})
	if err != nil {
		return wrapPanic(err)
	}
	return nil
}
