//go:build ignore

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/Legend-Vipin/corepy/internal/client"
	"github.com/Legend-Vipin/corepy/profiler"
)

func main() {
	path := "profile.arrow"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()

	rdr, err := ipc.NewReader(f, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		log.Fatalf("Failed to read Arrow stream: %v", err)
	}
	defer rdr.Release()

	var events []profiler.Event
	for rdr.Next() {
		batch, err := client.EventsFromRecord(rdr.Record())
		if err != nil {
			log.Fatalf("Bad record batch: %v", err)
		}
		events = append(events, batch...)
	}
	if rdr.Err() != nil {
		log.Fatalf("Stream error: %v", rdr.Err())
	}

	report := profiler.NewReport(events, "")
	fmt.Println(report.Table())
	fmt.Println()

	bottlenecks := report.Bottlenecks(0)
	if len(bottlenecks) == 0 {
		fmt.Println("No bottlenecks above threshold")
		return
	}

	out, err := json.MarshalIndent(bottlenecks, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal bottlenecks: %v", err)
	}
	fmt.Println(string(out))
}
