package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRunMetrics() {
	r.RunInfo = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pathbench_run_info",
			Help: "Constant 1, labelled with the run configuration",
		},
		[]string{"run_id", "scoring", "selection"},
	)

	r.RunStartTimestamp = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pathbench_run_start_timestamp_seconds",
			Help: "Unix time the run started",
		},
	)
}
