package corepy

import (
	"context"

	"github.com/Legend-Vipin/corepy/internal/buffer"
	"github.com/Legend-Vipin/corepy/internal/kernel"
	"github.com/Legend-Vipin/corepy/internal/sched"
)

// Sum returns the sum of data using compensated accumulation. Inputs at or
// above Config.ReduceParallelMin elements are split across the worker pool,
// one compensated partial per chunk, partials combined by plain addition.
// An empty (non-nil) input sums to 0.
func (r *Runtime) Sum(ctx context.Context, data []float32) (float32, error) {
	if data == nil {
		return 0, ErrNilBuffer
	}
	if len(data) == 0 {
		return 0, nil
	}
	scope := r.prof.Begin(ctx, "sum", backendCPU, len(data))
	defer scope.End()

	if len(data) >= r.cfg.ReduceParallelMin {
		return r.parallelSum(data)
	}
	return kernel.SumF32(data), nil
}

// SumInt32 returns the exact integer sum of data, parallelized like Sum.
func (r *Runtime) SumInt32(ctx context.Context, data []int32) (int32, error) {
	if data == nil {
		return 0, ErrNilBuffer
	}
	if len(data) == 0 {
		return 0, nil
	}
	scope := r.prof.Begin(ctx, "sum", backendCPU, len(data))
	defer scope.End()

	if len(data) < r.cfg.ReduceParallelMin {
		return kernel.SumI32(data), nil
	}

	n := len(data)
	chunk := sched.ChunkSize(n, r.pool.Size())
	chunks := (n + chunk - 1) / chunk
	var total int32
	err := r.scratch.Scope(func(a *sched.Arena) error {
		var partials []int32
		if raw, ok := a.Alloc(chunks, 4, 4); ok {
			partials = buffer.AsInt32(raw, chunks)
		} else {
			partials = make([]int32, chunks)
		}
		if err := r.pool.For(n, func(_ *sched.Worker, start, end int) {
			partials[start/chunk] = kernel.SumI32(data[start:end])
		}); err != nil {
			return err
		}
		for _, p := range partials {
			total += p
		}
		return nil
	})
	if err != nil {
		return 0, wrapPanic(err)
	}
	return total, nil
}

// Mean returns the arithmetic mean of data. Empty non-nil input is an
// ErrEmptyInput; the mean of nothing has no defined value.
func (r *Runtime) Mean(ctx context.Context, data []float32) (float32, error) {
	if data == nil {
		return 0, ErrNilBuffer
	}
	if len(data) == 0 {
		return 0, ErrEmptyInput
	}
	scope := r.prof.Begin(ctx, "mean", backendCPU, len(data))
	defer scope.End()

	if len(data) >= r.cfg.ReduceParallelMin {
		sum, err := r.parallelSum(data)
		if err != nil {
			return 0, err
		}
		return sum / float32(len(data)), nil
	}
	return kernel.MeanF32(data), nil
}

// All reports whether every byte of data is non-zero. Empty input is
// vacuously true.
func (r *Runtime) All(ctx context.Context, data []byte) (bool, error) {
	if data == nil {
		return false, ErrNilBuffer
	}
	if len(data) == 0 {
		return true, nil
	}
	scope := r.prof.Begin(ctx, "all", backendCPU, len(data))
	defer scope.End()
	return kernel.All(data), nil
}

// Any reports whether at least one byte of data is non-zero. Empty input is
// false.
func (r *Runtime) Any(ctx context.Context, data []byte) (bool, error) {
	if data == nil {
		return false, ErrNilBuffer
	}
	if len(data) == 0 {
		return false, nil
	}
	scope := r.prof.Begin(ctx, "any", backendCPU, len(data))
	defer scope.End()
	return kernel.Any(data), nil
}

// Dot returns the dot product of a and b, routed to the vendor BLAS when
// one is linked. Empty inputs dot to 0.
func (r *Runtime) Dot(ctx context.Context, a, b []float32) (float32, error) {
	if a == nil || b == nil {
		return 0, ErrNilBuffer
	}
	if len(a) != len(b) {
		return 0, ErrSizeMismatch
	}
	if len(a) == 0 {
		return 0, nil
	}
	scope := r.prof.Begin(ctx, "dot_product", backendCPU, len(a))
	defer scope.End()
	return kernel.Dot(a, b), nil
}

// parallelSum fans data out over the pool, one compensated partial sum per
// chunk. Partials live in a borrowed scratch arena when it has room; every
// chunk writes its own slot so the dirty arena memory needs no clearing.
func (r *Runtime) parallelSum(data []float32) (float32, error) {
	n := len(data)
	chunk := sched.ChunkSize(n, r.pool.Size())
	chunks := (n + chunk - 1) / chunk
	var total float32
	err := r.scratch.Scope(func(a *sched.Arena) error {
		var partials []float32
		if raw, ok := a.Alloc(chunks, 4, 4); ok {
			partials = buffer.AsFloat32(raw, chunks)
		} else {
			partials = make([]float32, chunks)
		}
		if err := r.pool.For(n, func(_ *sched.Worker, start, end int) {
			partials[start/chunk] = kernel.SumF32(data[start:end])
		}); err != nil {
			return err
		}
		for _, p := range partials {
			total += p
		}
		return nil
	})
	if err != nil {
		return 0, wrapPanic(err)
	}
	return total, nil
}
