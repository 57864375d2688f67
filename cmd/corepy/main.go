package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"context"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/Legend-Vipin/corepy"
	"github.com/Legend-Vipin/corepy/internal/client"
	"github.com/Legend-Vipin/corepy/profiler"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

var (
	benchName     = flag.String("bench", "mixed", "Benchmark workload (sum, matmul, mixed)")
	benchSize     = flag.Int("size", 256, "Problem size: matrix dimension for matmul, squared for reductions")
	benchIters    = flag.Int("iters", 20, "Benchmark iterations")
	policyName    = flag.String("policy", "default", "Dispatch policy (default, openblas, blas, accelerator, or a numeric code)")
	workerCount   = flag.Int("workers", 0, "Worker pool size (0 = COREPY_NUM_THREADS or all CPUs)")
	flagArena     = flag.String("arena", "", "Scratch arena capacity per worker (e.g. 1MB, 512KB)")
	enableProfile = flag.Bool("profile", true, "Collect profile events during the run")
	profileCtx    = flag.String("context", "", "Session label recorded on profile events")
	exportPath    = flag.String("export", "", "Write the profile report to file (.json, .csv, or .arrow event stream)")
	serverAddr    = flag.String("flight", "", "Profile collector Flight address (e.g. localhost:3000)")
	datasetName   = flag.String("dataset", "corepy_profile", "Target dataset name on the collector")
	serveAddr     = flag.String("serve", "", "Address to listen on for the debug HTTP server (e.g. :8080)")
	collectAddr   = flag.String("collect", "", "Address to listen on for the profile collector Flight server (e.g. :9090)")
	maxConcurrent = flag.Int("max-concurrent", 64, "Maximum number of concurrent debug requests")
	enableOTel    = flag.Bool("otel", false, "Enable OpenTelemetry tracing (stdout)")
	cpuProfile    = flag.String("cpuprofile", "", "Write cpu profile to file")
	duration      = flag.Duration("duration", 0, "Run the benchmark as a soak test for the specified duration (e.g. 10s, 20m)")
)

func parseBytes(s string) int64 {
	// Simple parser without external deps
	// 4GB, 100MB, 1024
	if s == "" || s == "0" {
		return 0
	}
	var val int64
	var unit string
	fmt.Sscanf(s, "%d%s", &val, &unit)

	switch unit {
	case "GB", "G":
		return val * 1024 * 1024 * 1024
	case "MB", "M":
		return val * 1024 * 1024
	case "KB", "K":
		return val * 1024
	default:
		return val
	}
}

func parsePolicy(s string) (corepy.Policy, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return corepy.PolicyDefault, nil
	case "openblas":
		return corepy.PolicyOpenBLAS, nil
	case "blas":
		return corepy.PolicyBLAS, nil
	case "accelerator":
		return corepy.PolicyAccelerator, nil
	}
	code, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return corepy.PolicyDefault, fmt.Errorf("unknown policy %q", s)
	}
	return corepy.PolicyFromCode(uint8(code)), nil
}

func main() {
	// Initialize logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	flag.Parse()

	if *enableOTel {
		shutdown, err := initTracer()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracer")
		}
		defer shutdown(context.Background())
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create CPU profile file")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("Could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	policy, err := parsePolicy(*policyName)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad -policy value")
	}

	rt := corepy.New(corepy.Config{
		Workers:    *workerCount,
		ArenaBytes: int(parseBytes(*flagArena)),
	})
	defer rt.Close()

	rt.SetPolicy(policy)
	if *enableProfile {
		rt.Profiler().Enable()
	}
	if *profileCtx != "" {
		rt.Profiler().SetContext(*profileCtx)
	}

	// Server Mode
	if *serveAddr != "" {
		go startServer(*serveAddr, rt, *maxConcurrent)
		if *collectAddr == "" {
			select {}
		}
	}

	if *collectAddr != "" {
		StartCollectorServer(*collectAddr, rt.Profiler())
		return
	}

	runBench, err := newBench(rt, *benchName, *benchSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Bad -bench value")
	}

	if *duration > 0 {
		log.Info().Str("duration", duration.String()).Str("bench", *benchName).Msg("Starting soak test")

		startTime := time.Now()
		endTime := startTime.Add(*duration)
		var totalOps int64
		var iter int

		for time.Now().Before(endTime) {
			n, err := runBench(context.Background())
			if err != nil {
				log.Fatal().Err(err).Msg("Benchmark iteration failed")
			}

			totalOps += int64(n)
			iter++

			if iter%10 == 0 {
				elapsed := time.Since(startTime)
				rate := float64(totalOps) / elapsed.Seconds()
				log.Info().
					Str("elapsed", elapsed.Round(time.Second).String()).
					Int("iter", iter).
					Int64("total_ops", totalOps).
					Float64("ops_per_sec", rate).
					Msg("Soak test progress")
			}
		}

		totalElapsed := time.Since(startTime)
		log.Info().
			Int64("total_ops", totalOps).
			Dur("total_time", totalElapsed).
			Float64("avg_ops_per_sec", float64(totalOps)/totalElapsed.Seconds()).
			Msg("Soak test complete")
	} else {
		start := time.Now()
		var totalOps int64
		for i := 0; i < *benchIters; i++ {
			n, err := runBench(context.Background())
			if err != nil {
				log.Fatal().Err(err).Msg("Benchmark iteration failed")
			}
			totalOps += int64(n)
		}
		elapsed := time.Since(start)

		log.Info().
			Int("iters", *benchIters).
			Int64("total_ops", totalOps).
			Dur("elapsed", elapsed).
			Float64("ops_per_sec", float64(totalOps)/elapsed.Seconds()).
			Msg("Benchmark complete")
	}

	log.Info().Str("dispatch", rt.Explain()).Msg("Last dispatch decision")

	if !*enableProfile {
		return
	}

	report := rt.Profiler().Report(*profileCtx)
	fmt.Println(report.Table())

	if *exportPath != "" {
		if err := exportReport(rt.Profiler(), report, *exportPath); err != nil {
			log.Fatal().Err(err).Str("path", *exportPath).Msg("Failed to export profile")
		}
		log.Info().Str("path", *exportPath).Msg("Exported profile")
	}

	// If a collector is provided, send the raw events via Flight
	if *serverAddr != "" {
		log.Info().Int("events", rt.Profiler().Count()).Str("server", *serverAddr).Str("dataset", *datasetName).Msg("Sending profile events to collector")
		sink, err := client.NewProfileSink(*serverAddr, client.NewCircuitBreaker(client.DefaultMaxFailures, client.DefaultCooldown))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to collector")
		}
		defer func() {
			if err := sink.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close profile sink")
			}
		}()

		rec := rt.Profiler().EventsRecord(memory.NewGoAllocator())
		defer rec.Release()

		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		if err := sink.Push(ctx, *datasetName, rec); err != nil {
			log.Fatal().Err(err).Msg("Flight push failed")
		}
		log.Info().Msg("Successfully sent profile events to collector")
	}
}

// newBench builds the iteration body for one workload. The returned function
// reports how many operations it dispatched.
func newBench(rt *corepy.Runtime, name string, size int) (func(ctx context.Context) (int, error), error) {
	switch name {
	case "sum":
		data := rampFloat32(size * size)
		return func(ctx context.Context) (int, error) {
			if _, err := rt.Sum(ctx, data); err != nil {
				return 0, err
			}
			return 1, nil
		}, nil

	case "matmul":
		a := rampFloat32(size * size)
		b := rampFloat32(size * size)
		out := make([]float32, size*size)
		return func(ctx context.Context) (int, error) {
			if err := rt.MatMul(ctx, a, b, out, size, size, size); err != nil {
				return 0, err
			}
			return 1, nil
		}, nil

	case "mixed":
		a := rampFloat32(size * size)
		b := rampFloat32(size * size)
		out := make([]float32, size*size)
		return func(ctx context.Context) (int, error) {
			if _, err := rt.Sum(ctx, a); err != nil {
				return 0, err
			}
			if _, err := rt.Mean(ctx, b); err != nil {
				return 0, err
			}
			if _, err := rt.Dot(ctx, a, b); err != nil {
				return 0, err
			}
			if err := rt.Add(ctx, a, b, out); err != nil {
				return 0, err
			}
			if err := rt.MatMul(ctx, a, b, out, size, size, size); err != nil {
				return 0, err
			}
			return 5, nil
		}, nil
	}
	return nil, fmt.Errorf("unknown benchmark %q", name)
}

// rampFloat32 fills deterministic input so runs stay comparable.
func rampFloat32(n int) []float32 {
	res := make([]float32, n)
	for i := range res {
		res[i] = float32(i%1000) * 0.001
	}
	return res
}

func exportReport(p *profiler.Profiler, report *profiler.Report, path string) error {
	switch filepath.Ext(path) {
	case ".json":
		data, err := report.JSON()
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0644)
	case ".csv":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := report.WriteCSV(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	case ".arrow":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := p.WriteIPC(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return fmt.Errorf("unsupported export extension %q", filepath.Ext(path))
}

func initTracer() (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("corepy"),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp.Shutdown, nil
}
