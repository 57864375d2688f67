package main

import (
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/Legend-Vipin/corepy/internal/client"
	"github.com/Legend-Vipin/corepy/profiler"
)

var eventsCollected = promauto.NewCounter(prometheus.CounterOpts{
	Name: "corepy_events_collected_total",
	Help: "The total number of profile events received over Flight",
})

// CollectorServer receives pushed profile event batches and folds them into
// a profiler, so the debug server can report over events from remote
// processes.
type CollectorServer struct {
	flight.BaseFlightServer
	prof  *profiler.Profiler
	alloc memory.Allocator
}

func NewCollectorServer(prof *profiler.Profiler) *CollectorServer {
	return &CollectorServer{
		prof:  prof,
		alloc: memory.NewGoAllocator(),
	}
}

func (s *CollectorServer) DoPut(stream flight.FlightService_DoPutServer) error {
	reader, err := flight.NewRecordReader(stream, ipc.WithAllocator(s.alloc))
	if err != nil {
		return err
	}
	defer reader.Release()

	for reader.Next() {
		rec := reader.Record()
		events, err := client.EventsFromRecord(rec)
		if err != nil {
			log.Warn().Err(err).Msg("Dropping batch with unexpected schema")
			continue
		}
		for _, e := range events {
			s.prof.Record(e)
		}
		eventsCollected.Add(float64(len(events)))
		log.Info().Int("events", len(events)).Msg("DoPut received profile batch")
	}
	return reader.Err()
}

func StartCollectorServer(addr string, prof *profiler.Profiler) {
	// Create the generic Flight Server which manages the GRPC lifecycle
	server := flight.NewFlightServer()

	// Register our custom service implementation
	server.RegisterFlightService(NewCollectorServer(prof))

	// Init handles the listener creation internally
	if err := server.Init(addr); err != nil {
		log.Fatal().Err(err).Msg("Failed to init Flight collector")
	}

	log.Info().Str("addr", addr).Msg("Starting corepy profile collector")
	if err := server.Serve(); err != nil {
		log.Fatal().Err(err).Msg("Flight collector failed")
	}
}
