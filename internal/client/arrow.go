package client

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/Legend-Vipin/corepy/profiler"
)

// EventsFromRecord decodes one record batch back into profile events. The
// record must carry profiler.EventSchema; anything else is refused rather
// than guessed at. A null context column decodes as the empty label.
func EventsFromRecord(rec arrow.Record) ([]profiler.Event, error) {
	if !rec.Schema().Equal(profiler.EventSchema) {
		return nil, fmt.Errorf("client: record schema %s does not match profile event schema", rec.Schema())
	}

	operation := rec.Column(0).(*array.String)
	backend := rec.Column(1).(*array.String)
	dataSize := rec.Column(2).(*array.Int64)
	startUs := rec.Column(3).(*array.Int64)
	endUs := rec.Column(4).(*array.Int64)
	label := rec.Column(5).(*array.String)

	events := make([]profiler.Event, rec.NumRows())
	for i := range events {
		events[i] = profiler.Event{
			Operation:   operation.Value(i),
			Backend:     backend.Value(i),
			DataSize:    int(dataSize.Value(i)),
			StartTimeUs: startUs.Value(i),
			EndTimeUs:   endUs.Value(i),
		}
		if label.IsValid(i) {
			events[i].Context = label.Value(i)
		}
	}
	return events, nil
}
