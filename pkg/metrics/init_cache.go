package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initCacheMetrics() {
	r.CacheLookupsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathbench_cache_lookups_total",
			Help: "Result cache lookups",
		},
		[]string{"tier", "result"}, // memory|disk, hit|miss
	)
}
