package corepy

import (
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Legend-Vipin/corepy/internal/sched"
)

// Environment variables consulted for unset Config fields.
const (
	EnvNumThreads = "COREPY_NUM_THREADS"
	EnvArenaSize  = "COREPY_ARENA_SIZE"
)

// Tuning defaults. Both came out of benchmarking the native kernels against
// the vendor path; override per Runtime via Config when a deployment
// measures a different flip point.
const (
	// DefaultBLASCutover is the square-dimension size above which the
	// default policy hands matmul to the vendor BLAS.
	DefaultBLASCutover = 256

	// DefaultReduceParallelMin is the element count at which reductions
	// switch from the sequential kernel to the worker pool.
	DefaultReduceParallelMin = 1_000_000
)

// Config carries the tunables of a Runtime. The zero value is ready to use:
// zero fields are filled from the environment, or from built-in defaults
// when the environment is silent.
type Config struct {
	// Workers is the pool size. Zero means COREPY_NUM_THREADS, falling
	// back to runtime.NumCPU().
	Workers int

	// ArenaBytes is the scratch arena capacity per worker and per
	// borrowed caller arena. Zero means COREPY_ARENA_SIZE, falling back
	// to 1 MiB.
	ArenaBytes int

	// BLASCutover overrides DefaultBLASCutover when positive.
	BLASCutover int

	// ReduceParallelMin overrides DefaultReduceParallelMin when positive.
	ReduceParallelMin int
}

var (
	envOnce    sync.Once
	envWorkers int
	envArena   int
)

// envDefaults reads the environment exactly once per process. Invalid
// values are logged and ignored rather than failing construction.
func envDefaults() (workers, arenaBytes int) {
	envOnce.Do(func() {
		envWorkers = runtime.NumCPU()
		if v := os.Getenv(EnvNumThreads); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				log.Warn().Str("value", v).Str("var", EnvNumThreads).
					Msg("Ignoring invalid thread count")
			} else {
				envWorkers = n
			}
		}
		envArena = sched.DefaultArenaBytes
		if v := os.Getenv(EnvArenaSize); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				log.Warn().Str("value", v).Str("var", EnvArenaSize).
					Msg("Ignoring invalid arena size")
			} else {
				envArena = n
			}
		}
	})
	return envWorkers, envArena
}

func (c Config) withDefaults() Config {
	workers, arenaBytes := envDefaults()
	if c.Workers <= 0 {
		c.Workers = workers
	}
	if c.ArenaBytes <= 0 {
		c.ArenaBytes = arenaBytes
	}
	if c.BLASCutover <= 0 {
		c.BLASCutover = DefaultBLASCutover
	}
	if c.ReduceParallelMin <= 0 {
		c.ReduceParallelMin = DefaultReduceParallelMin
	}
	return c
}
