package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initNodeMetrics() {
	r.EdgesObservedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "pathbench_edges_observed_total",
			Help: "Edge observations read while building node rankings",
		},
	)

	r.RankedLabels = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "pathbench_ranked_labels",
			Help: "Relation labels with a node ranking",
		},
	)

	r.SelectedNodes = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "pathbench_selected_nodes_total",
			Help: "Start nodes selected per selection mode",
		},
		[]string{"mode"},
	)
}
