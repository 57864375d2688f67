// Package profiler collects per-operation timing events and aggregates them
// into session reports. It is sampling-free: every operation records exactly
// one event while enabled, and a disabled profiler costs a single atomic
// load per operation.
package profiler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Version is the release version stamped into report metadata.
const Version = "0.2.1"

// Event is one recorded operation. Timestamps are microseconds since the
// Unix epoch; Context is the session label the operation ran under, empty
// when none was set.
type Event struct {
	Operation   string `json:"operation"`
	Backend     string `json:"backend"`
	DataSize    int    `json:"data_size"`
	StartTimeUs int64  `json:"start_time_us"`
	EndTimeUs   int64  `json:"end_time_us"`
	Context     string `json:"context,omitempty"`
}

// DurationUs returns the event duration in microseconds, clamped at zero.
func (e Event) DurationUs() int64 {
	if e.EndTimeUs < e.StartTimeUs {
		return 0
	}
	return e.EndTimeUs - e.StartTimeUs
}

// DurationMs returns the event duration in milliseconds.
func (e Event) DurationMs() float64 {
	return float64(e.DurationUs()) / 1000.0
}

// Profiler is a thread-safe event collector. The zero value is not usable;
// construct with New. Disabled by default.
type Profiler struct {
	enabled atomic.Bool

	mu     sync.RWMutex
	events []Event
	label  string
}

// New returns a disabled profiler with no events.
func New() *Profiler {
	return &Profiler{}
}

// Enable turns on event collection.
func (p *Profiler) Enable() { p.enabled.Store(true) }

// Disable turns off event collection. Already-open scopes that were started
// while enabled still record on End.
func (p *Profiler) Disable() { p.enabled.Store(false) }

// Enabled reports whether events are being collected.
func (p *Profiler) Enabled() bool { return p.enabled.Load() }

// SetContext sets the default session label applied to events whose context
// carries no label of its own. Empty clears it.
func (p *Profiler) SetContext(label string) {
	p.mu.Lock()
	p.label = label
	p.mu.Unlock()
}

// Context returns the current default session label.
func (p *Profiler) Context() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.label
}

type labelKey struct{}

// WithLabel returns a context whose operations record under the given
// session label, overriding the profiler's default label.
func WithLabel(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, labelKey{}, label)
}

// LabelFromContext extracts the session label set by WithLabel.
func LabelFromContext(ctx context.Context) (string, bool) {
	label, ok := ctx.Value(labelKey{}).(string)
	return label, ok
}

// Scope is an open timing window for one operation. Obtain from Begin and
// close with End; End on a scope opened while the profiler was disabled is
// a no-op.
type Scope struct {
	p        *Profiler
	op       string
	backend  string
	dataSize int
	label    string
	start    int64
	active   bool
}

// Begin opens a timing scope for an operation. When the profiler is
// disabled this is a single atomic load and the returned scope is inert.
// The session label is taken from ctx if WithLabel set one, otherwise from
// the profiler's default.
func (p *Profiler) Begin(ctx context.Context, op, backend string, dataSize int) Scope {
	if !p.enabled.Load() {
		return Scope{}
	}
	label, ok := LabelFromContext(ctx)
	if !ok {
		p.mu.RLock()
		label = p.label
		p.mu.RUnlock()
	}
	return Scope{
		p:        p,
		op:       op,
		backend:  backend,
		dataSize: dataSize,
		label:    label,
		start:    time.Now().UnixMicro(),
		active:   true,
	}
}

// End closes the scope and records its event.
func (s *Scope) End() {
	if !s.active {
		return
	}
	s.active = false
	s.p.Record(Event{
		Operation:   s.op,
		Backend:     s.backend,
		DataSize:    s.dataSize,
		StartTimeUs: s.start,
		EndTimeUs:   time.Now().UnixMicro(),
		Context:     s.label,
	})
}

// Record appends a fully-formed event. Begin/End is the usual path; Record
// exists for replaying or importing events.
func (p *Profiler) Record(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
	profilerEvents.Inc()
}

// Events returns a snapshot copy of all recorded events in record order.
func (p *Profiler) Events() []Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Count returns the number of recorded events.
func (p *Profiler) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.events)
}

// Clear drops all recorded events. The enabled state and default label are
// untouched.
func (p *Profiler) Clear() {
	p.mu.Lock()
	p.events = p.events[:0]
	p.mu.Unlock()
}
