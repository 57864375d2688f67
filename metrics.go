package corepy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "corepy_dispatch_total",
	Help: "Dispatch decisions by operation and chosen backend.",
}, []string{"operation", "backend"})
