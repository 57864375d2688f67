package sched

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	poolWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "corepy_pool_workers",
		Help: "Worker count of the most recently constructed pool.",
	})

	poolTasks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corepy_pool_tasks_total",
		Help: "Chunk tasks executed by pool workers.",
	})

	poolSteals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corepy_pool_steals_total",
		Help: "Tasks taken from another worker's queue.",
	})

	poolPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corepy_pool_panics_total",
		Help: "Panics recovered inside pool tasks.",
	})

	arenaAllocs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corepy_arena_allocs_total",
		Help: "Successful arena allocations.",
	})

	arenaExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corepy_arena_exhausted_total",
		Help: "Arena allocations refused for lack of space.",
	})
)
