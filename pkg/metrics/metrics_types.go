package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for a pipeline run
type Registry struct {
	// Log aggregation
	LogBlocksTotal     *prometheus.CounterVec
	LogRepeatsTotal    prometheus.Counter
	LogDistinctQueries prometheus.Gauge

	// Query generation
	LabelExtractionFailuresTotal *prometheus.CounterVec
	RealQueriesGenerated         prometheus.Counter

	// Node rankings
	EdgesObservedTotal prometheus.Counter
	RankedLabels       prometheus.Gauge
	SelectedNodes      *prometheus.CounterVec

	// Ranking and pool selection
	RankedEntries       *prometheus.GaugeVec
	PoolEntriesTotal    *prometheus.CounterVec
	PoolShortfallsTotal prometheus.Counter
	PoolSkippedPatterns prometheus.Counter

	// Stages
	StageDuration  *prometheus.HistogramVec
	StageRunsTotal *prometheus.CounterVec

	// Cache
	CacheLookupsTotal *prometheus.CounterVec

	// Run info
	RunInfo           *prometheus.GaugeVec
	RunStartTimestamp prometheus.Gauge

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initLogMetrics()
	r.initQueryMetrics()
	r.initNodeMetrics()
	r.initPoolMetrics()
	r.initStageMetrics()
	r.initCacheMetrics()
	r.initRunMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
