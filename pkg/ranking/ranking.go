// Package ranking scores abstract patterns and templates from aggregated
// execution records and orders them under a scoring policy.
package ranking

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/dd0wney/cluso-pathbench/pkg/aggregate"
)

// ScoringPolicy selects how a group of records is scored and ordered.
type ScoringPolicy string

const (
	// MeanPaths scores by mean path count and ranks highest score first.
	MeanPaths ScoringPolicy = "mean-paths"
	// MaxMedian scores by (max + median) / 2 of the path counts but ranks
	// by ascending mean execution time.
	MaxMedian ScoringPolicy = "max-median"
)

// ErrUnknownPolicy is returned by ParseScoringPolicy.
var ErrUnknownPolicy = errors.New("unknown scoring policy")

// ParseScoringPolicy parses a policy name, case-insensitively.
func ParseScoringPolicy(s string) (ScoringPolicy, error) {
	switch p := ScoringPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case MeanPaths, MaxMedian:
		return p, nil
	case "":
		return MeanPaths, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Score is one row of a pattern or template ranking. Name is the pattern
// name or the template text.
type Score struct {
	Rank       int     `json:"rank"`
	Name       string  `json:"name"`
	QNumber    int     `json:"q_number,omitempty"`
	Score      float64 `json:"score"`
	MeanTimeMs float64 `json:"mean_time_ms"`
	HasTiming  bool    `json:"has_timing"`
	Samples    int     `json:"samples"`
	MaxPaths   int     `json:"max_paths"`
	MinPaths   int     `json:"min_paths"`
	// Records are the positive-path records the score was computed from,
	// in encounter order.
	Records []aggregate.Record `json:"-"`
}

type group struct {
	key     string
	records []aggregate.Record
}

// groupBy partitions records by key, keeping first-encounter order of both
// groups and records.
func groupBy(records []aggregate.Record, key func(aggregate.Record) string) []group {
	at := make(map[string]int)
	var groups []group
	for _, r := range records {
		k := key(r)
		i, ok := at[k]
		if !ok {
			i = len(groups)
			at[k] = i
			groups = append(groups, group{key: k})
		}
		groups[i].records = append(groups[i].records, r)
	}
	return groups
}

// positive drops records with no paths.
func positive(records []aggregate.Record) []aggregate.Record {
	out := make([]aggregate.Record, 0, len(records))
	for _, r := range records {
		if r.PathCount > 0 {
			out = append(out, r)
		}
	}
	return out
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// score computes a row from a non-empty set of positive records.
func score(name string, qnum int, records []aggregate.Record, policy ScoringPolicy) Score {
	paths := make([]float64, len(records))
	var times []float64
	for i, r := range records {
		paths[i] = float64(r.PathCount)
		if r.HasTiming {
			times = append(times, r.MeanTimeMs)
		}
	}
	sorted := slices.Clone(paths)
	slices.Sort(sorted)

	s := Score{
		Name:     name,
		QNumber:  qnum,
		Samples:  len(records),
		MaxPaths: int(sorted[len(sorted)-1]),
		MinPaths: int(sorted[0]),
		Records:  records,
	}
	if len(times) > 0 {
		s.MeanTimeMs = stat.Mean(times, nil)
		s.HasTiming = true
	}

	switch policy {
	case MaxMedian:
		s.Score = (sorted[len(sorted)-1] + median(sorted)) / 2
	default:
		s.Score = stat.Mean(paths, nil)
	}
	return s
}

func order(rows []Score, policy ScoringPolicy) []Score {
	switch policy {
	case MaxMedian:
		slices.SortStableFunc(rows, func(a, b Score) int {
			switch {
			case a.HasTiming && !b.HasTiming:
				return -1
			case !a.HasTiming && b.HasTiming:
				return 1
			}
			return cmp.Compare(a.MeanTimeMs, b.MeanTimeMs)
		})
	default:
		slices.SortStableFunc(rows, func(a, b Score) int {
			return cmp.Compare(b.Score, a.Score)
		})
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

func rank(records []aggregate.Record, policy ScoringPolicy, key func(aggregate.Record) string) []Score {
	var rows []Score
	for _, g := range groupBy(records, key) {
		pos := positive(g.records)
		if len(pos) == 0 {
			continue
		}
		rows = append(rows, score(g.key, g.records[0].QNumber, pos, policy))
	}
	return order(rows, policy)
}

// RankPatterns groups table by abstract pattern and ranks the groups.
// table is expected in aggregate.Table order. Records with zero paths are
// ignored, and a pattern with no positive record is left out entirely.
func RankPatterns(table []aggregate.Record, policy ScoringPolicy) []Score {
	return rank(table, policy, func(r aggregate.Record) string { return r.Pattern })
}

// RankTemplates ranks the templates of one pattern row.
func RankTemplates(pattern Score, policy ScoringPolicy) []Score {
	rows := rank(pattern.Records, policy, func(r aggregate.Record) string { return r.Template })
	for i := range rows {
		rows[i].QNumber = pattern.QNumber
	}
	return rows
}

// Rankings holds a pattern ranking and, per pattern name, its template
// ranking.
type Rankings struct {
	Policy    ScoringPolicy      `json:"policy"`
	Patterns  []Score            `json:"patterns"`
	Templates map[string][]Score `json:"templates"`
}

// RankAll ranks patterns and the templates of every ranked pattern.
func RankAll(table []aggregate.Record, policy ScoringPolicy) Rankings {
	r := Rankings{
		Policy:    policy,
		Patterns:  RankPatterns(table, policy),
		Templates: make(map[string][]Score, len(table)),
	}
	for _, p := range r.Patterns {
		r.Templates[p.Name] = RankTemplates(p, policy)
	}
	return r
}

// TemplatesFor returns the template ranking of a pattern row.
func (r Rankings) TemplatesFor(p Score) []Score {
	return r.Templates[p.Name]
}
