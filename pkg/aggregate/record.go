// Package aggregate parses a raw execution log into one record per distinct
// real query, attaching the template metadata recorded when the query was
// generated.
package aggregate

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Sample is one execution time. Defined is false when the log block had no
// duration line.
type Sample struct {
	Ms      float64 `json:"ms"`
	Defined bool    `json:"defined"`
}

// Record aggregates every log block that carried the same query text.
type Record struct {
	Query      string   `json:"query"`
	Pattern    string   `json:"abstract_pattern"`
	Template   string   `json:"template"`
	NodeID     string   `json:"node_id"`
	QNumber    int      `json:"q_number"`
	PathCount  int      `json:"path_count"`
	Samples    []Sample `json:"samples,omitempty"`
	Executions int      `json:"executions"`

	MeanTimeMs   float64 `json:"mean_time_ms"`
	StdDevTimeMs float64 `json:"stddev_time_ms"`
	// HasTiming is false when no sample had a duration.
	HasTiming bool `json:"has_timing"`
}

// DefinedTimes returns the durations that were present in the log.
func (r *Record) DefinedTimes() []float64 {
	out := make([]float64, 0, len(r.Samples))
	for _, s := range r.Samples {
		if s.Defined {
			out = append(out, s.Ms)
		}
	}
	return out
}

// finalize computes the timing statistics from the samples.
func (r *Record) finalize() {
	times := r.DefinedTimes()
	r.HasTiming = len(times) > 0
	r.MeanTimeMs, r.StdDevTimeMs = 0, 0
	if !r.HasTiming {
		return
	}
	r.MeanTimeMs = stat.Mean(times, nil)
	if len(times) > 1 {
		r.StdDevTimeMs = stat.StdDev(times, nil)
	}
}

// Table orders records by ascending mean execution time. Records without
// timing go last. Equal times keep their input order. The rankers treat
// this order as encounter order.
func Table(records []Record) []Record {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b Record) int {
		switch {
		case a.HasTiming && !b.HasTiming:
			return -1
		case !a.HasTiming && b.HasTiming:
			return 1
		case !a.HasTiming:
			return 0
		}
		return cmp.Compare(a.MeanTimeMs, b.MeanTimeMs)
	})
	return out
}
