package profiler

import (
	"fmt"
	"sort"
)

// Severity levels assigned by Bottlenecks.
const (
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// DefaultBottleneckThreshold flags operations above 20% of session time.
const DefaultBottleneckThreshold = 0.20

// DefaultRegressionFactor flags operations 1.2x slower than baseline.
const DefaultRegressionFactor = 1.2

// Bottleneck marks an operation that dominates the profiled session.
type Bottleneck struct {
	Operation    string  `json:"operation"`
	PercentTotal float64 `json:"percent_total"`
	TimeMs       float64 `json:"time_ms"`
	Severity     string  `json:"severity"`
	Reason       string  `json:"reason"`
	Suggestion   string  `json:"suggestion"`
}

// Bottlenecks returns the operations whose share of total time exceeds
// threshold (a fraction; non-positive means DefaultBottleneckThreshold).
// Operations above half the session time are CRITICAL, the rest HIGH.
// Sorted by share descending.
func (r *Report) Bottlenecks(threshold float64) []Bottleneck {
	if threshold <= 0 {
		threshold = DefaultBottleneckThreshold
	}
	var out []Bottleneck
	for _, op := range r.sortedOps() {
		frac := op.PercentTotal / 100.0
		if frac <= threshold {
			continue
		}
		severity := SeverityHigh
		if frac > 0.5 {
			severity = SeverityCritical
		}
		out = append(out, Bottleneck{
			Operation:    op.Operation,
			PercentTotal: op.PercentTotal,
			TimeMs:       op.TotalTimeMs,
			Severity:     severity,
			Reason:       fmt.Sprintf("Takes %.1f%% of execution time", op.PercentTotal),
			Suggestion:   "Check input size or switch backend",
		})
	}
	return out
}

// Regression marks an operation that got slower than a baseline report.
type Regression struct {
	Operation      string  `json:"operation"`
	BaselineMs     float64 `json:"baseline_ms"`
	ActualMs       float64 `json:"actual_ms"`
	SlowdownFactor float64 `json:"slowdown_factor"`
}

// CompareBaseline returns the operations whose average time grew by more
// than factor relative to the baseline report (non-positive factor means
// DefaultRegressionFactor). Operations absent from the baseline are
// skipped. Sorted by slowdown descending.
func (r *Report) CompareBaseline(baseline *Report, factor float64) []Regression {
	if factor <= 0 {
		factor = DefaultRegressionFactor
	}
	var out []Regression
	for op, curr := range r.Operations {
		base, ok := baseline.Operations[op]
		if !ok || base.AvgTimeMs <= 0 {
			continue
		}
		slowdown := curr.AvgTimeMs / base.AvgTimeMs
		if slowdown <= factor {
			continue
		}
		out = append(out, Regression{
			Operation:      op,
			BaselineMs:     base.AvgTimeMs,
			ActualMs:       curr.AvgTimeMs,
			SlowdownFactor: slowdown,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SlowdownFactor != out[j].SlowdownFactor {
			return out[i].SlowdownFactor > out[j].SlowdownFactor
		}
		return out[i].Operation < out[j].Operation
	})
	return out
}
