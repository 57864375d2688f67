package corepy

import (
	"context"

	"github.com/Legend-Vipin/corepy/internal/kernel"
)

// Element-wise operations run sequentially: they are memory-bound, and
// fanning them out buys nothing the cache misses do not take back.

// Add writes a[i]+b[i] into out. All three slices must have equal length;
// out may alias an input.
func (r *Runtime) Add(ctx context.Context, a, b, out []float32) error {
	return r.binaryOp(ctx, "add", kernel.AddF32, a, b, out)
}

// Sub writes a[i]-b[i] into out.
func (r *Runtime) Sub(ctx context.Context, a, b, out []float32) error {
	return r.binaryOp(ctx, "sub", kernel.SubF32, a, b, out)
}

// Mul writes a[i]*b[i] into out.
func (r *Runtime) Mul(ctx context.Context, a, b, out []float32) error {
	return r.binaryOp(ctx, "mul", kernel.MulF32, a, b, out)
}

// Div writes a[i]/b[i] into out. Division by zero follows IEEE-754: the
// result is ±Inf or NaN, never an error.
func (r *Runtime) Div(ctx context.Context, a, b, out []float32) error {
	return r.binaryOp(ctx, "div", kernel.DivF32, a, b, out)
}

func (r *Runtime) binaryOp(ctx context.Context, op string, k func(a, b, out []float32), a, b, out []float32) error {
	if a == nil || b == nil || out == nil {
		return ErrNilBuffer
	}
	if len(a) != len(b) || len(a) != len(out) {
		return ErrSizeMismatch
	}
	if len(a) == 0 {
		return nil
	}
	scope := r.prof.Begin(ctx, op, backendCPU, len(a))
	defer scope.End()
	k(a, b, out)
	return nil
}
