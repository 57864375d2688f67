package profiler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var profilerEvents = promauto.NewCounter(prometheus.CounterOpts{
	Name: "corepy_profiler_events_total",
	Help: "Profile events recorded across all profiler instances.",
})
