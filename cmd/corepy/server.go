package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"

	"github.com/Legend-Vipin/corepy"
	"github.com/Legend-Vipin/corepy/internal/cache"
	"github.com/Legend-Vipin/corepy/profiler"
)

var (
	reportsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corepy_reports_generated_total",
		Help: "The total number of profile reports served",
	})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "corepy_request_duration_seconds",
		Help:    "Time spent serving debug requests",
		Buckets: prometheus.DefBuckets,
	})
)

type RuntimeInterface interface {
	Policy() corepy.Policy
	SetPolicy(p corepy.Policy)
	Explain() string
	Workers() int
	Profiler() *profiler.Profiler
}

type Server struct {
	runtime   RuntimeInterface
	baselines cache.BaselineCache
	sem       *semaphore.Weighted
}

func NewServer(rt RuntimeInterface, maxConcurrent int) *Server {
	return &Server{
		runtime:   rt,
		baselines: cache.NewMapCache(),
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

func startServer(addr string, rt RuntimeInterface, maxConcurrent int) {
	srv := NewServer(rt, maxConcurrent)

	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", srv.handleHealth)
	http.HandleFunc("/backend", srv.handleBackend)
	http.HandleFunc("/backend/policy", srv.handlePolicy)
	http.HandleFunc("/profiler/enable", srv.handleProfilerEnable)
	http.HandleFunc("/profiler/disable", srv.handleProfilerDisable)
	http.HandleFunc("/profiler/clear", srv.handleProfilerClear)
	http.HandleFunc("/profiler/context", srv.handleProfilerContext)
	http.HandleFunc("/profiler/report", srv.handleReport)
	http.HandleFunc("/profiler/baseline", srv.handleBaseline)
	http.HandleFunc("/profiler/regressions", srv.handleRegressions)
	http.HandleFunc("/profiler/bottlenecks", srv.handleBottlenecks)

	log.Info().Str("addr", addr).Msg("Starting corepy debug server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

var tracer = otel.Tracer("corepy-server")

type backendStatus struct {
	Policy     string `cbor:"policy"`
	PolicyCode uint8  `cbor:"policy_code"`
	Workers    int    `cbor:"workers"`
	VendorBLAS bool   `cbor:"vendor_blas"`
	Explain    string `cbor:"explain"`
}

func (s *Server) handleBackend(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "handleBackend")
	defer span.End()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := backendStatus{
		Policy:     s.runtime.Policy().String(),
		PolicyCode: s.runtime.Policy().Code(),
		Workers:    s.runtime.Workers(),
		VendorBLAS: corepy.VendorBLAS(),
		Explain:    s.runtime.Explain(),
	}

	w.Header().Set("Content-Type", "application/cbor")
	if err := cbor.NewEncoder(w).Encode(status); err != nil {
		span.RecordError(err)
		log.Error().Err(err).Msg("Failed to encode backend status")
	}
}

type policyRequest struct {
	Policy string `cbor:"policy,omitempty"`
	Code   *uint8 `cbor:"code,omitempty"`
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "handlePolicy")
	defer span.End()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req policyRequest
	decoder := cbor.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		span.RecordError(err)
		http.Error(w, fmt.Sprintf("Bad Request (CBOR decode): %v", err), http.StatusBadRequest)
		return
	}

	var policy corepy.Policy
	switch {
	case req.Policy != "":
		var err error
		policy, err = parsePolicy(req.Policy)
		if err != nil {
			http.Error(w, fmt.Sprintf("Bad Request: %v", err), http.StatusBadRequest)
			return
		}
	case req.Code != nil:
		policy = corepy.PolicyFromCode(*req.Code)
	default:
		http.Error(w, "Bad Request: policy or code required", http.StatusBadRequest)
		return
	}

	s.runtime.SetPolicy(policy)
	span.SetAttributes(attribute.String("policy", policy.String()))
	log.Info().Str("policy", policy.String()).Msg("Dispatch policy updated")

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleProfilerEnable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.runtime.Profiler().Enable()
	log.Info().Msg("Profiler enabled")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleProfilerDisable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.runtime.Profiler().Disable()
	log.Info().Msg("Profiler disabled")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleProfilerClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.runtime.Profiler().Clear()
	log.Info().Msg("Profiler events cleared")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type contextRequest struct {
	Context string `cbor:"context"`
}

func (s *Server) handleProfilerContext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req contextRequest
	decoder := cbor.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Bad Request (CBOR decode): %v", err), http.StatusBadRequest)
		return
	}

	s.runtime.Profiler().SetContext(req.Context)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handleReport")
	defer span.End()

	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Admission Control
	if err := s.sem.Acquire(ctx, 1); err != nil {
		log.Error().Err(err).Msg("Failed to acquire semaphore")
		http.Error(w, "Server busy", http.StatusServiceUnavailable)
		return
	}
	defer s.sem.Release(1)

	filter := r.URL.Query().Get("context")
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	report := s.runtime.Profiler().Report(filter)
	reportsGenerated.Inc()

	span.SetAttributes(
		attribute.String("format", format),
		attribute.Int("operation_count", report.OperationCount),
	)

	switch format {
	case "json":
		data, err := report.JSON()
		if err != nil {
			span.RecordError(err)
			http.Error(w, "Failed to render report", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	case "cbor":
		data, err := cbor.Marshal(report)
		if err != nil {
			span.RecordError(err)
			http.Error(w, "Failed to render report", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/cbor")
		_, _ = w.Write(data)
	case "table":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintln(w, report.Table())
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		if err := report.WriteCSV(w); err != nil {
			span.RecordError(err)
			log.Error().Err(err).Msg("Failed to write CSV report")
		}
	default:
		http.Error(w, fmt.Sprintf("Unknown format %q", format), http.StatusBadRequest)
	}
}

type baselineRequest struct {
	Name    string `cbor:"name"`
	Context string `cbor:"context,omitempty"`
}

func (s *Server) handleBaseline(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "handleBaseline")
	defer span.End()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req baselineRequest
	decoder := cbor.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		span.RecordError(err)
		http.Error(w, fmt.Sprintf("Bad Request (CBOR decode): %v", err), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Bad Request: name required", http.StatusBadRequest)
		return
	}

	report := s.runtime.Profiler().Report(req.Context)
	s.baselines.Put(req.Name, report)
	log.Info().Str("name", req.Name).Int("operations", report.OperationCount).Msg("Stored profile baseline")

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleRegressions(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "handleRegressions")
	defer span.End()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("baseline")
	baseline, ok := s.baselines.Get(name)
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown baseline %q", name), http.StatusNotFound)
		return
	}

	factor := 0.0
	if v := r.URL.Query().Get("factor"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("Bad Request: factor: %v", err), http.StatusBadRequest)
			return
		}
		factor = f
	}

	report := s.runtime.Profiler().Report(r.URL.Query().Get("context"))
	regressions := report.CompareBaseline(baseline, factor)
	if regressions == nil {
		regressions = []profiler.Regression{}
	}
	span.SetAttributes(attribute.Int("regressions", len(regressions)))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(regressions); err != nil {
		span.RecordError(err)
		log.Error().Err(err).Msg("Failed to encode regressions")
	}
}

func (s *Server) handleBottlenecks(w http.ResponseWriter, r *http.Request) {
	_, span := tracer.Start(r.Context(), "handleBottlenecks")
	defer span.End()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	threshold := 0.0
	if v := r.URL.Query().Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("Bad Request: threshold: %v", err), http.StatusBadRequest)
			return
		}
		threshold = f
	}

	report := s.runtime.Profiler().Report(r.URL.Query().Get("context"))
	bottlenecks := report.Bottlenecks(threshold)
	if bottlenecks == nil {
		bottlenecks = []profiler.Bottleneck{}
	}
	span.SetAttributes(attribute.Int("bottlenecks", len(bottlenecks)))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(bottlenecks); err != nil {
		span.RecordError(err)
		log.Error().Err(err).Msg("Failed to encode bottlenecks")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
