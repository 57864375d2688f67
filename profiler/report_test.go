package profiler

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvents() []Event {
	return []Event{
		{Operation: "add", Backend: "CPU", DataSize: 100, StartTimeUs: 0, EndTimeUs: 1000},
		{Operation: "add", Backend: "CPU", DataSize: 200, StartTimeUs: 0, EndTimeUs: 2000},
		{Operation: "mul", Backend: "GPU", DataSize: 100, StartTimeUs: 0, EndTimeUs: 500},
	}
}

func TestReportAggregation(t *testing.T) {
	r := NewReport(sampleEvents(), "")

	assert.Equal(t, 2, r.OperationCount, "distinct operations, not events")
	assert.Equal(t, 3.5, r.TotalTimeMs)

	add, ok := r.Operations["add"]
	require.True(t, ok)
	assert.Equal(t, 2, add.Count)
	assert.Equal(t, 3.0, add.TotalTimeMs)
	assert.Equal(t, 1.5, add.AvgTimeMs)
	assert.Equal(t, 1.0, add.MinTimeMs)
	assert.Equal(t, 2.0, add.MaxTimeMs)
	assert.Equal(t, "CPU", add.PrimaryBackend)
	assert.InDelta(t, 3.0/3.5*100, add.PercentTotal, 1e-9)

	mul, ok := r.Operations["mul"]
	require.True(t, ok)
	assert.Equal(t, 1, mul.Count)
	assert.Equal(t, 0.5, mul.TotalTimeMs)
	assert.Equal(t, "GPU", mul.PrimaryBackend)
}

func TestReportPercentagesSumTo100(t *testing.T) {
	r := NewReport(sampleEvents(), "")
	var sum float64
	for _, op := range r.Operations {
		sum += op.PercentTotal
	}
	assert.InDelta(t, 100.0, sum, 1e-9)
}

func TestReportPrimaryBackendMode(t *testing.T) {
	events := []Event{
		{Operation: "matmul_2d", Backend: "Corepy AVX2", EndTimeUs: 100},
		{Operation: "matmul_2d", Backend: "BLAS", EndTimeUs: 100},
		{Operation: "matmul_2d", Backend: "BLAS", EndTimeUs: 100},
	}
	r := NewReport(events, "")
	assert.Equal(t, "BLAS", r.Operations["matmul_2d"].PrimaryBackend)
}

func TestReportContextFilter(t *testing.T) {
	events := []Event{
		{Operation: "add", Backend: "CPU", StartTimeUs: 0, EndTimeUs: 1000, Context: "warmup"},
		{Operation: "sum", Backend: "CPU", StartTimeUs: 0, EndTimeUs: 2000, Context: "steady"},
		{Operation: "mul", Backend: "CPU", StartTimeUs: 0, EndTimeUs: 4000},
	}

	all := NewReport(events, "")
	assert.Equal(t, 3, all.OperationCount)
	assert.Equal(t, 7.0, all.TotalTimeMs)
	assert.Empty(t, all.Metadata.Context)

	warm := NewReport(events, "warmup")
	assert.Equal(t, 1, warm.OperationCount)
	assert.Equal(t, 1.0, warm.TotalTimeMs)
	assert.Equal(t, "warmup", warm.Metadata.Context)
	assert.InDelta(t, 100.0, warm.Operations["add"].PercentTotal, 1e-9)
}

func TestReportUnknownFilterIsEmpty(t *testing.T) {
	r := NewReport(sampleEvents(), "no_such_label")
	assert.Equal(t, 0, r.OperationCount)
	assert.Equal(t, 0.0, r.TotalTimeMs)
	assert.Empty(t, r.Operations)
	assert.Equal(t, "no_such_label", r.Metadata.Context)
	assert.NotEmpty(t, r.Metadata.SessionID)
	assert.Equal(t, Version, r.Metadata.Version)
}

func TestReportFreshSessionIdentity(t *testing.T) {
	p := New()
	p.Enable()
	s := p.Begin(context.Background(), "sum", "CPU", 10)
	s.End()

	r1 := p.Report("")
	r2 := p.Report("")

	_, err := uuid.Parse(r1.Metadata.SessionID)
	require.NoError(t, err)
	assert.NotEqual(t, r1.Metadata.SessionID, r2.Metadata.SessionID,
		"each report is its own session")
	assert.NotEmpty(t, r1.Metadata.StartTimestamp)
}

func TestReportJSONShape(t *testing.T) {
	r := NewReport(sampleEvents(), "")
	raw, err := r.JSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Contains(t, decoded, "metadata")
	require.Contains(t, decoded, "operations")
	require.Contains(t, decoded, "total_time_ms")
	require.Contains(t, decoded, "operation_count")

	meta := decoded["metadata"].(map[string]any)
	assert.Contains(t, meta, "session_id")
	assert.Contains(t, meta, "start_timestamp")
	assert.Contains(t, meta, "version")

	ops := decoded["operations"].(map[string]any)
	add := ops["add"].(map[string]any)
	for _, key := range []string{
		"operation", "count", "total_time_ms", "avg_time_ms",
		"min_time_ms", "max_time_ms", "primary_backend", "percent_total",
	} {
		assert.Contains(t, add, key)
	}
}

func TestReportTable(t *testing.T) {
	r := NewReport(sampleEvents(), "")
	table := r.Table()
	lines := strings.Split(table, "\n")

	rule := strings.Repeat("=", 80)
	assert.Equal(t, rule, lines[0])
	assert.Equal(t, "COREPY PROFILE REPORT (Total: 3.50ms)", lines[1])
	assert.Equal(t, rule, lines[2])
	assert.Contains(t, lines[3], "Operation")
	assert.Contains(t, lines[3], "Backend")
	assert.Equal(t, strings.Repeat("-", 80), lines[4])
	// Slowest first: add (3ms) before mul (0.5ms).
	assert.True(t, strings.HasPrefix(lines[5], "add"), "line = %q", lines[5])
	assert.True(t, strings.HasPrefix(lines[6], "mul"), "line = %q", lines[6])
	assert.Equal(t, rule, lines[len(lines)-1])
	assert.NotContains(t, table, "Context:")
}

func TestReportTableWithContext(t *testing.T) {
	events := []Event{
		{Operation: "sum", Backend: "CPU", StartTimeUs: 0, EndTimeUs: 1000, Context: "bench"},
	}
	table := NewReport(events, "bench").Table()
	assert.Contains(t, table, "Context: bench")
}

func TestReportWriteCSV(t *testing.T) {
	r := NewReport(sampleEvents(), "")

	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{
		"operation", "count", "total_time_ms", "avg_time_ms",
		"min_time_ms", "max_time_ms", "primary_backend", "percent_total",
	}, rows[0])
	assert.Equal(t, "add", rows[1][0], "slowest operation first")
	assert.Equal(t, "2", rows[1][1])
	assert.Equal(t, "3", rows[1][2])
	assert.Equal(t, "mul", rows[2][0])
}

func TestReportWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewReport(nil, "").WriteCSV(&buf))
	assert.Zero(t, buf.Len(), "empty report writes no rows")
}

func TestBottlenecks(t *testing.T) {
	events := []Event{
		{Operation: "matmul_2d", Backend: "CPU", StartTimeUs: 0, EndTimeUs: 6000},
		{Operation: "sum", Backend: "CPU", StartTimeUs: 0, EndTimeUs: 3000},
		{Operation: "add", Backend: "CPU", StartTimeUs: 0, EndTimeUs: 1000},
	}
	r := NewReport(events, "")

	got := r.Bottlenecks(0.20)
	require.Len(t, got, 2)
	assert.Equal(t, "matmul_2d", got[0].Operation)
	assert.Equal(t, SeverityCritical, got[0].Severity, "60%% share is critical")
	assert.Equal(t, "sum", got[1].Operation)
	assert.Equal(t, SeverityHigh, got[1].Severity)
	assert.Contains(t, got[0].Reason, "60.0%")
}

func TestCompareBaseline(t *testing.T) {
	baseline := NewReport([]Event{
		{Operation: "sum", Backend: "CPU", StartTimeUs: 0, EndTimeUs: 1000},
		{Operation: "add", Backend: "CPU", StartTimeUs: 0, EndTimeUs: 1000},
	}, "")
	current := NewReport([]Event{
		{Operation: "sum", Backend: "CPU", StartTimeUs: 0, EndTimeUs: 3000},
		{Operation: "add", Backend: "CPU", StartTimeUs: 0, EndTimeUs: 1100},
		{Operation: "new_op", Backend: "CPU", StartTimeUs: 0, EndTimeUs: 9000},
	}, "")

	got := current.CompareBaseline(baseline, 1.2)
	require.Len(t, got, 1, "add is within factor, new_op has no baseline")
	assert.Equal(t, "sum", got[0].Operation)
	assert.Equal(t, 1.0, got[0].BaselineMs)
	assert.Equal(t, 3.0, got[0].ActualMs)
	assert.InDelta(t, 3.0, got[0].SlowdownFactor, 1e-9)
}

func TestEventsRecordArrow(t *testing.T) {
	p := New()
	p.Record(Event{Operation: "sum", Backend: "CPU", DataSize: 64, StartTimeUs: 10, EndTimeUs: 20})
	p.Record(Event{Operation: "dot_product", Backend: "BLAS", DataSize: 128, StartTimeUs: 30, EndTimeUs: 50, Context: "bench"})

	rec := p.EventsRecord(nil)
	defer rec.Release()

	require.EqualValues(t, 2, rec.NumRows())
	require.True(t, rec.Schema().Equal(EventSchema))

	ops := rec.Column(0).(*array.String)
	assert.Equal(t, "sum", ops.Value(0))
	assert.Equal(t, "dot_product", ops.Value(1))

	sizes := rec.Column(2).(*array.Int64)
	assert.EqualValues(t, 64, sizes.Value(0))

	labels := rec.Column(5).(*array.String)
	assert.True(t, labels.IsNull(0), "unlabeled event exports null context")
	assert.Equal(t, "bench", labels.Value(1))
}

func TestWriteIPCRoundTrip(t *testing.T) {
	p := New()
	p.Record(Event{Operation: "sum", Backend: "CPU", DataSize: 64, StartTimeUs: 10, EndTimeUs: 20})

	var buf bytes.Buffer
	require.NoError(t, p.WriteIPC(&buf))

	rdr, err := ipc.NewReader(&buf)
	require.NoError(t, err)
	defer rdr.Release()

	require.True(t, rdr.Next())
	rec := rdr.Record()
	assert.EqualValues(t, 1, rec.NumRows())
	assert.Equal(t, "sum", rec.Column(0).(*array.String).Value(0))
	assert.False(t, rdr.Next())
}
