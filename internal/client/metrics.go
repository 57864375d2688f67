package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pushTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corepy_profile_pushes_total",
		Help: "Profile event records delivered to the collector.",
	})

	pushFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corepy_profile_push_failures_total",
		Help: "Profile pushes that failed at the collector.",
	})

	pushRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corepy_profile_push_rejected_total",
		Help: "Profile pushes dropped by the open circuit breaker.",
	})
)
