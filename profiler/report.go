package profiler

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionMetadata identifies one generated report. Context echoes the filter
// the report was built with, empty when unfiltered.
type SessionMetadata struct {
	SessionID      string `json:"session_id"`
	StartTimestamp string `json:"start_timestamp"`
	Version        string `json:"version"`
	Context        string `json:"context,omitempty"`
}

// OperationMetrics aggregates every event of one operation.
type OperationMetrics struct {
	Operation      string  `json:"operation"`
	Count          int     `json:"count"`
	TotalTimeMs    float64 `json:"total_time_ms"`
	AvgTimeMs      float64 `json:"avg_time_ms"`
	MinTimeMs      float64 `json:"min_time_ms"`
	MaxTimeMs      float64 `json:"max_time_ms"`
	PrimaryBackend string  `json:"primary_backend"`
	PercentTotal   float64 `json:"percent_total"`
}

// Report is an aggregated view over a set of events. OperationCount is the
// number of distinct operations, not events; TotalTimeMs is summed over the
// events the filter kept.
type Report struct {
	Metadata       SessionMetadata             `json:"metadata"`
	Operations     map[string]OperationMetrics `json:"operations"`
	TotalTimeMs    float64                     `json:"total_time_ms"`
	OperationCount int                         `json:"operation_count"`
}

// Report builds a report over the current events. A non-empty filter keeps
// only events recorded under that exact session label. Each call mints a
// fresh session id and timestamp.
func (p *Profiler) Report(filter string) *Report {
	return NewReport(p.Events(), filter)
}

// NewReport aggregates the given events, honoring the session label filter.
func NewReport(events []Event, filter string) *Report {
	r := &Report{
		Metadata: SessionMetadata{
			SessionID:      uuid.NewString(),
			StartTimestamp: time.Now().UTC().Format(time.RFC3339),
			Version:        Version,
			Context:        filter,
		},
		Operations: make(map[string]OperationMetrics),
	}

	var total float64
	type agg struct {
		count        int
		total        float64
		min, max     float64
		backends     map[string]int
		primary      string
		primaryCount int
	}
	groups := make(map[string]*agg)
	for _, e := range events {
		if filter != "" && e.Context != filter {
			continue
		}
		d := e.DurationMs()
		total += d
		g := groups[e.Operation]
		if g == nil {
			g = &agg{min: d, max: d, backends: make(map[string]int)}
			groups[e.Operation] = g
		}
		g.count++
		g.total += d
		if d < g.min {
			g.min = d
		}
		if d > g.max {
			g.max = d
		}
		g.backends[e.Backend]++
		// Strictly-greater keeps the first backend to reach a count, so
		// ties resolve deterministically in record order.
		if c := g.backends[e.Backend]; c > g.primaryCount {
			g.primaryCount = c
			g.primary = e.Backend
		}
	}

	for op, g := range groups {
		primary := g.primary
		if primary == "" {
			primary = "unknown"
		}
		percent := 0.0
		if total > 0 {
			percent = g.total / total * 100.0
		}
		r.Operations[op] = OperationMetrics{
			Operation:      op,
			Count:          g.count,
			TotalTimeMs:    g.total,
			AvgTimeMs:      g.total / float64(g.count),
			MinTimeMs:      g.min,
			MaxTimeMs:      g.max,
			PrimaryBackend: primary,
			PercentTotal:   percent,
		}
	}
	r.TotalTimeMs = total
	r.OperationCount = len(r.Operations)
	return r
}

// sortedOps returns the operations by total time descending, name ascending
// on ties, so rendered output is stable.
func (r *Report) sortedOps() []OperationMetrics {
	ops := make([]OperationMetrics, 0, len(r.Operations))
	for _, m := range r.Operations {
		ops = append(ops, m)
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].TotalTimeMs != ops[j].TotalTimeMs {
			return ops[i].TotalTimeMs > ops[j].TotalTimeMs
		}
		return ops[i].Operation < ops[j].Operation
	})
	return ops
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Table renders the report as a fixed-width text table, slowest operation
// first.
func (r *Report) Table() string {
	var b strings.Builder
	rule := strings.Repeat("=", 80)
	b.WriteString(rule)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "COREPY PROFILE REPORT (Total: %.2fms)\n", r.TotalTimeMs)
	if r.Metadata.Context != "" {
		fmt.Fprintf(&b, "Context: %s\n", r.Metadata.Context)
	}
	b.WriteString(rule)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "%-20s %-8s %-10s %-10s %-6s %s\n",
		"Operation", "Count", "Total(ms)", "Avg(ms)", "%", "Backend")
	b.WriteString(strings.Repeat("-", 80))
	b.WriteByte('\n')
	for _, op := range r.sortedOps() {
		fmt.Fprintf(&b, "%-20s %-8d %-10.2f %-10.3f %-6.1f %s\n",
			op.Operation, op.Count, op.TotalTimeMs, op.AvgTimeMs,
			op.PercentTotal, op.PrimaryBackend)
	}
	b.WriteString(rule)
	return b.String()
}

// WriteCSV writes one row per operation, slowest first. A report with no
// operations writes nothing, not even the header.
func (r *Report) WriteCSV(w io.Writer) error {
	ops := r.sortedOps()
	if len(ops) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	header := []string{
		"operation", "count", "total_time_ms", "avg_time_ms",
		"min_time_ms", "max_time_ms", "primary_backend", "percent_total",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, op := range ops {
		row := []string{
			op.Operation,
			strconv.Itoa(op.Count),
			formatMs(op.TotalTimeMs),
			formatMs(op.AvgTimeMs),
			formatMs(op.MinTimeMs),
			formatMs(op.MaxTimeMs),
			op.PrimaryBackend,
			formatMs(op.PercentTotal),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatMs(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
