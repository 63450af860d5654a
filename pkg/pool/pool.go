// Package pool selects the final bounded set of real queries from pattern
// and template rankings under a quota.
package pool

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/dd0wney/cluso-pathbench/pkg/aggregate"
	"github.com/dd0wney/cluso-pathbench/pkg/ranking"
)

// SelectionType records which policy produced an entry.
type SelectionType string

const (
	Selective SelectionType = "selective"
	Fixed     SelectionType = "fixed"
	Rankings  SelectionType = "rankings"
)

// ParseSelectionType parses a policy name.
func ParseSelectionType(s string) (SelectionType, error) {
	switch t := SelectionType(strings.ToLower(strings.TrimSpace(s))); t {
	case Selective, Fixed, Rankings:
		return t, nil
	case "":
		return Selective, nil
	}
	return "", fmt.Errorf("unknown selection policy %q", s)
}

// Entry is one selected real query.
type Entry struct {
	RealQuery     string        `json:"real_query"`
	Pattern       string        `json:"abstract_pattern"`
	QNumber       int           `json:"q_number"`
	Template      string        `json:"template"`
	NodeID        string        `json:"node_id"`
	Label         string        `json:"label,omitempty"`
	PathCount     int           `json:"path_count"`
	Executions    int           `json:"executions,omitempty"`
	MeanTimeMs    float64       `json:"mean_time_ms"`
	StdDevTimeMs  float64       `json:"stddev_time_ms"`
	TemplateScore float64       `json:"template_score,omitempty"`
	SelectionType SelectionType `json:"selection_type"`
}

// Shortfall is a pattern that received fewer real queries than requested.
type Shortfall struct {
	Pattern   string `json:"abstract_pattern"`
	QNumber   int    `json:"q_number"`
	Requested int    `json:"requested"`
	Selected  int    `json:"selected"`
}

// SkippedPattern is a ranked pattern the policy left out entirely.
type SkippedPattern struct {
	Pattern string `json:"abstract_pattern"`
	QNumber int    `json:"q_number"`
	Reason  string `json:"reason"`
}

// Summary reports what a selection asked for and what it got.
type Summary struct {
	RunID            string           `json:"run_id,omitempty"`
	Policy           SelectionType    `json:"policy"`
	Requested        int              `json:"requested"`
	Selected         int              `json:"selected"`
	Shortfalls       []Shortfall      `json:"shortfalls,omitempty"`
	Skipped          []SkippedPattern `json:"skipped,omitempty"`
	SkippedTemplates int              `json:"skipped_templates,omitempty"`
}

// Pool is the ordered selection plus its summary.
type Pool struct {
	Entries []Entry `json:"entries"`
	Summary Summary `json:"summary"`
}

// Queries returns the real queries in pool order.
func (p *Pool) Queries() []string {
	out := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		out[i] = e.RealQuery
	}
	return out
}

// Quota is the selective policy's {patterns x templates x real} budget.
type Quota struct {
	Abstract  Count
	Templates Count
	Real      int
}

func (q Quota) String() string {
	return fmt.Sprintf("aq=%s tq=%s rq=%d", q.Abstract, q.Templates, q.Real)
}

// FixedQuota is the fixed policy's per-pattern budget.
type FixedQuota struct {
	Templates int
	Real      int
}

// Total is Templates * Real.
func (f FixedQuota) Total() int {
	return f.Templates * f.Real
}

// topByPaths returns the records of a template ranked by path count,
// highest first, keeping encounter order on ties.
func topByPaths(records []aggregate.Record) []aggregate.Record {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b aggregate.Record) int {
		return cmp.Compare(b.PathCount, a.PathCount)
	})
	return out
}

func entryFrom(r aggregate.Record, p, t ranking.Score, st SelectionType) Entry {
	return Entry{
		RealQuery:     r.Query,
		Pattern:       p.Name,
		QNumber:       p.QNumber,
		Template:      t.Name,
		NodeID:        r.NodeID,
		PathCount:     r.PathCount,
		Executions:    r.Executions,
		MeanTimeMs:    r.MeanTimeMs,
		StdDevTimeMs:  r.StdDevTimeMs,
		TemplateScore: t.Score,
		SelectionType: st,
	}
}
