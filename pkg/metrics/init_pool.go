package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPoolMetrics() {
	r.RankedEntries = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pathbench_ranked_entries",
			Help: "Entries in the last computed ranking",
		},
		[]string{"kind"}, // pattern, template
	)

	r.PoolEntriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathbench_pool_entries_total",
			Help: "Pool entries emitted by selection type",
		},
		[]string{"selection_type"},
	)

	r.PoolShortfallsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "pathbench_pool_shortfalls_total",
			Help: "Patterns that received fewer real queries than requested",
		},
	)

	r.PoolSkippedPatterns = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "pathbench_pool_skipped_patterns_total",
			Help: "Ranked patterns left out of a fixed quota",
		},
	)
}
