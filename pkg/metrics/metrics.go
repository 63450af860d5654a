package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Record methods are no-ops on a nil Registry so library code can take an
// optional *Registry.

// RecordLogBlock counts one log block by outcome
func (r *Registry) RecordLogBlock(outcome string) {
	if r == nil {
		return
	}
	r.LogBlocksTotal.WithLabelValues(outcome).Inc()
}

// RecordAggregation records the outcome of one log aggregation
func (r *Registry) RecordAggregation(distinct, repeats int) {
	if r == nil {
		return
	}
	r.LogDistinctQueries.Set(float64(distinct))
	r.LogRepeatsTotal.Add(float64(repeats))
}

// RecordInstantiation records real query generation
func (r *Registry) RecordInstantiation(generated int, skipped map[string]int) {
	if r == nil {
		return
	}
	r.RealQueriesGenerated.Add(float64(generated))
	for reason, n := range skipped {
		r.LabelExtractionFailuresTotal.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordNodeRankings records a node ranking build
func (r *Registry) RecordNodeRankings(edges, labels int, perMode map[string]int) {
	if r == nil {
		return
	}
	r.EdgesObservedTotal.Add(float64(edges))
	r.RankedLabels.Set(float64(labels))
	for mode, n := range perMode {
		r.SelectedNodes.WithLabelValues(mode).Add(float64(n))
	}
}

// RecordRanking records the size of a ranking
func (r *Registry) RecordRanking(kind string, entries int) {
	if r == nil {
		return
	}
	r.RankedEntries.WithLabelValues(kind).Set(float64(entries))
}

// RecordPool records a selected pool
func (r *Registry) RecordPool(selectionType string, entries, shortfalls, skipped int) {
	if r == nil {
		return
	}
	r.PoolEntriesTotal.WithLabelValues(selectionType).Add(float64(entries))
	r.PoolShortfallsTotal.Add(float64(shortfalls))
	r.PoolSkippedPatterns.Add(float64(skipped))
}

// RecordStage records one pipeline stage execution
func (r *Registry) RecordStage(stage string, err error, duration time.Duration) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.StageRunsTotal.WithLabelValues(stage, status).Inc()
	r.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit or miss
func (r *Registry) RecordCacheLookup(tier string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.CacheLookupsTotal.WithLabelValues(tier, result).Inc()
}

// SetRunInfo marks the start of a run
func (r *Registry) SetRunInfo(runID, scoring, selection string, started time.Time) {
	if r == nil {
		return
	}
	r.RunInfo.WithLabelValues(runID, scoring, selection).Set(1)
	r.RunStartTimestamp.Set(float64(started.Unix()))
}

// WriteTextfile writes every metric in text exposition format to path,
// for collection by a node_exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
