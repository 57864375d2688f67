//go:build ignore

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Legend-Vipin/corepy/internal/client"
	"github.com/Legend-Vipin/corepy/profiler"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	addr := "localhost:9090"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	log.Info().Str("addr", addr).Msg("Connecting to corepy profile collector")

	// Breaker sized above the retry count so every attempt reaches the wire
	sink, err := client.NewProfileSink(addr, client.NewCircuitBreaker(20, 30*time.Second))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create profile sink")
	}
	defer sink.Close()

	p := profiler.New()
	now := time.Now().UnixMicro()
	p.Record(profiler.Event{Operation: "matmul_2d", Backend: "CPU", DataSize: 512 * 512 * 512, StartTimeUs: now - 1500, EndTimeUs: now, Context: "verify"})
	p.Record(profiler.Event{Operation: "sum", Backend: "CPU", DataSize: 1 << 20, StartTimeUs: now - 200, EndTimeUs: now, Context: "verify"})

	rec := p.EventsRecord(memory.NewGoAllocator())
	defer rec.Release()

	log.Info().Int64("rows", rec.NumRows()).Msg("Sending profile batch")

	// Retry push loop
	start := time.Now()
	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = sink.Push(ctx, "corepy_verify", rec)
		cancel()
		if err == nil {
			break
		}
		log.Warn().Err(err).Msg("Push failed, retrying...")
		time.Sleep(1 * time.Second)
	}

	if err != nil {
		log.Fatal().Err(err).Msg("Failed to push after retries")
	}
	elapsed := time.Since(start)

	log.Info().Dur("elapsed", elapsed).Msg("Collector accepted profile batch")

	fmt.Println("VERIFICATION PASSED")
}
