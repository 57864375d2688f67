package profiler

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// EventSchema is the Arrow schema of exported profile events, one row per
// event. Context is null for events recorded without a session label.
var EventSchema = arrow.NewSchema(
	[]arrow.Field{
		{Name: "operation", Type: arrow.BinaryTypes.String},
		{Name: "backend", Type: arrow.BinaryTypes.String},
		{Name: "data_size", Type: arrow.PrimitiveTypes.Int64},
		{Name: "start_time_us", Type: arrow.PrimitiveTypes.Int64},
		{Name: "end_time_us", Type: arrow.PrimitiveTypes.Int64},
		{Name: "context", Type: arrow.BinaryTypes.String, Nullable: true},
	},
	nil,
)

// EventsRecord builds an Arrow record over a snapshot of the current
// events. The caller owns the record and must Release it. A nil allocator
// uses memory.DefaultAllocator.
func (p *Profiler) EventsRecord(mem memory.Allocator) arrow.Record {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	b := array.NewRecordBuilder(mem, EventSchema)
	defer b.Release()

	operation := b.Field(0).(*array.StringBuilder)
	backend := b.Field(1).(*array.StringBuilder)
	dataSize := b.Field(2).(*array.Int64Builder)
	startUs := b.Field(3).(*array.Int64Builder)
	endUs := b.Field(4).(*array.Int64Builder)
	label := b.Field(5).(*array.StringBuilder)

	for _, e := range p.Events() {
		operation.Append(e.Operation)
		backend.Append(e.Backend)
		dataSize.Append(int64(e.DataSize))
		startUs.Append(e.StartTimeUs)
		endUs.Append(e.EndTimeUs)
		if e.Context == "" {
			label.AppendNull()
		} else {
			label.Append(e.Context)
		}
	}
	return b.NewRecord()
}

// WriteIPC streams the current events to w as a single-batch Arrow IPC
// stream.
func (p *Profiler) WriteIPC(w io.Writer) error {
	rec := p.EventsRecord(memory.DefaultAllocator)
	defer rec.Release()

	wr := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()))
	if err := wr.Write(rec); err != nil {
		wr.Close()
		return err
	}
	return wr.Close()
}
