package corepy

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/Legend-Vipin/corepy/internal/sched"
	"github.com/Legend-Vipin/corepy/profiler"
)

// Runtime owns the worker pool, scratch arenas, backend policy state and
// profiler of one dispatch instance. Its methods are safe for concurrent
// use. Construct with New, release with Close.
type Runtime struct {
	cfg     Config
	pool    *sched.Pool
	scratch *sched.ArenaPool
	prof    *profiler.Profiler

	policy     atomic.Uint32
	lastSimple atomic.Uint32

	dispatchMu   sync.Mutex
	lastDetailed *dispatchInfo
}

// New builds a runtime from cfg, filling unset fields from the environment.
func New(cfg Config) *Runtime {
	cfg = cfg.withDefaults()
	r := &Runtime{
		cfg:     cfg,
		pool:    sched.NewPool(cfg.Workers, cfg.ArenaBytes),
		scratch: sched.NewArenaPool(cfg.ArenaBytes),
		prof:    profiler.New(),
	}
	log.Info().
		Int("workers", cfg.Workers).
		Int("arena_bytes", cfg.ArenaBytes).
		Int("blas_cutover", cfg.BLASCutover).
		Msg("Initialized corepy runtime")
	return r
}

// Close stops the worker pool. Operations on a closed runtime fail.
func (r *Runtime) Close() {
	r.pool.Close()
}

// Config returns the resolved configuration the runtime was built with.
func (r *Runtime) Config() Config { return r.cfg }

// Workers returns the pool size.
func (r *Runtime) Workers() int { return r.pool.Size() }

// Profiler returns the runtime's profiler for enabling, reporting and
// export.
func (r *Runtime) Profiler() *profiler.Profiler { return r.prof }

// wrapPanic converts a pool panic failure into the public sentinel while
// keeping the full chain inspectable.
func wrapPanic(err error) error {
	var pe *sched.PanicError
	if errors.As(err, &pe) {
		return fmt.Errorf("%w: %w", ErrWorkerPanic, err)
	}
	return err
}
