// Package client ships profiler exports to an external Arrow Flight
// collector. Pushes go through a circuit breaker so a dead or slow
// collector degrades to dropped exports instead of blocking the runtime.
package client

import (
	"context"
	"errors"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ErrCircuitOpen is returned by Push while the breaker is open; the record
// was dropped, not queued.
var ErrCircuitOpen = errors.New("client: collector circuit open, profile push dropped")

// ProfileSink writes profile event records to a Flight collector dataset.
type ProfileSink struct {
	client  flight.Client
	conn    *grpc.ClientConn
	breaker *CircuitBreaker
}

// NewProfileSink connects to the collector at addr. The connection is lazy;
// a collector that is down surfaces on the first Push, not here. A nil
// breaker disables circuit breaking.
func NewProfileSink(addr string, breaker *CircuitBreaker) (*ProfileSink, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &ProfileSink{
		client:  flight.NewClientFromConn(conn, nil),
		conn:    conn,
		breaker: breaker,
	}, nil
}

// Push streams one record to the named dataset on the collector. Failures
// trip the breaker; pushes while the breaker is open fail fast with
// ErrCircuitOpen.
func (s *ProfileSink) Push(ctx context.Context, dataset string, rec arrow.Record) error {
	if s.breaker != nil && !s.breaker.Allow() {
		pushRejected.Inc()
		log.Warn().Str("dataset", dataset).Msg("Profile push rejected by open circuit")
		return ErrCircuitOpen
	}

	if err := s.doPut(ctx, dataset, rec); err != nil {
		if s.breaker != nil {
			s.breaker.Failure()
		}
		pushFailures.Inc()
		log.Error().Err(err).Str("dataset", dataset).Msg("Profile push failed")
		return err
	}
	if s.breaker != nil {
		s.breaker.Success()
	}
	pushTotal.Inc()
	log.Debug().Str("dataset", dataset).Int64("rows", rec.NumRows()).
		Msg("Pushed profile events")
	return nil
}

func (s *ProfileSink) doPut(ctx context.Context, dataset string, rec arrow.Record) error {
	desc := &flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: []string{dataset},
	}

	stream, err := s.client.DoPut(ctx)
	if err != nil {
		return err
	}

	writer := flight.NewRecordWriter(stream)
	writer.SetFlightDescriptor(desc)
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

// Close tears down the collector connection.
func (s *ProfileSink) Close() error {
	return s.conn.Close()
}
