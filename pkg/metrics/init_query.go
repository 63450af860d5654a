package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initQueryMetrics() {
	r.LabelExtractionFailuresTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathbench_label_extraction_failures_total",
			Help: "Templates skipped during real query generation",
		},
		[]string{"reason"},
	)

	r.RealQueriesGenerated = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "pathbench_real_queries_generated_total",
			Help: "Real queries produced by binding templates to nodes",
		},
	)
}
