// Package corepy is the dispatch layer of the corepy tensor runtime. It
// decides where each operation runs (native kernels, vendor BLAS), fans
// large work out over a work-stealing worker pool, and records per-operation
// timing through the profiler subpackage.
//
// A Runtime bundles the pool, scratch arenas, backend policy and profiler.
// Most programs use the process-wide Default runtime; tests and embedders
// construct isolated ones with New.
package corepy

import (
	"sync"

	"github.com/Legend-Vipin/corepy/profiler"
)

// Version is the corepy release version.
const Version = profiler.Version

var (
	defaultOnce sync.Once
	defaultRT   *Runtime
)

// Default returns the process-wide runtime, constructing it on first use
// from the zero Config (environment-driven). It is never closed.
func Default() *Runtime {
	defaultOnce.Do(func() {
		defaultRT = New(Config{})
	})
	return defaultRT
}
