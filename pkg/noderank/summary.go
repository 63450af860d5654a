package noderank

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Summary describes the count distribution of a NodeRanking.
type Summary struct {
	Total  int
	Max    int
	Min    int
	Mean   float64
	Median float64
}

// Summarize computes the distribution summary written alongside each ranking.
func Summarize(nr NodeRanking) Summary {
	if len(nr.Nodes) == 0 {
		return Summary{}
	}
	counts := make([]float64, len(nr.Nodes))
	for i, nc := range nr.Nodes {
		counts[i] = float64(nc.Count)
	}
	slices.Sort(counts)

	n := len(counts)
	median := counts[n/2]
	if n%2 == 0 {
		median = (counts[n/2-1] + counts[n/2]) / 2
	}
	return Summary{
		Total:  n,
		Max:    int(counts[n-1]),
		Min:    int(counts[0]),
		Mean:   stat.Mean(counts, nil),
		Median: median,
	}
}
