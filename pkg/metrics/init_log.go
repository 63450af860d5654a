package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLogMetrics() {
	r.LogBlocksTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathbench_log_blocks_total",
			Help: "Total number of execution log blocks by outcome",
		},
		[]string{"outcome"}, // parsed, no_query, no_count
	)

	r.LogRepeatsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "pathbench_log_repeats_total",
			Help: "Blocks that repeated an already seen query",
		},
	)

	r.LogDistinctQueries = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pathbench_log_distinct_queries",
			Help: "Number of distinct real queries in the last aggregated log",
		},
	)
}
