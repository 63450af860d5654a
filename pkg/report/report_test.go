package report

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/dd0wney/cluso-pathbench/pkg/aggregate"
	"github.com/dd0wney/cluso-pathbench/pkg/pipeline"
	"github.com/dd0wney/cluso-pathbench/pkg/pool"
	"github.com/dd0wney/cluso-pathbench/pkg/ranking"
)

func sampleResult() *pipeline.Result {
	p1 := ranking.Score{Rank: 1, Name: "P1", QNumber: 1, Score: 7, MeanTimeMs: 12, HasTiming: true, Samples: 3, MaxPaths: 10, MinPaths: 4}
	p2 := ranking.Score{Rank: 2, Name: "P2", QNumber: 2, Score: 3, MeanTimeMs: 2, HasTiming: true, Samples: 1, MaxPaths: 3, MinPaths: 3}
	return &pipeline.Result{
		RunID:       "run-1",
		Fingerprint: "abc",
		Scoring:     ranking.MeanPaths,
		Selection:   pool.Selective,
		Quota:       "aq=* tq=* rq=3",
		Stats:       aggregate.Stats{Blocks: 7, Parsed: 7, Repeats: 1},
		Unranked:    1,
		Rankings: ranking.Rankings{
			Policy:   ranking.MeanPaths,
			Patterns: []ranking.Score{p1, p2},
			Templates: map[string][]ranking.Score{
				"P1": {{Rank: 1, Name: "tA", QNumber: 1, Score: 7}, {Rank: 2, Name: "tB", QNumber: 1, Score: 6}},
				"P2": {{Rank: 1, Name: "tC", QNumber: 2, Score: 3}},
			},
		},
		Pool: pool.Pool{
			Entries: []pool.Entry{
				{RealQuery: "qA1", Pattern: "P1", QNumber: 1, Template: "tA", NodeID: "p1", PathCount: 10, SelectionType: pool.Selective},
				{RealQuery: "qA2", Pattern: "P1", QNumber: 1, Template: "tA", NodeID: "p2", PathCount: 4, SelectionType: pool.Selective},
				{RealQuery: "qC1", Pattern: "P2", QNumber: 2, Template: "tC", NodeID: "m1", PathCount: 3, SelectionType: pool.Selective},
			},
			Summary: pool.Summary{
				RunID: "run-1", Policy: pool.Selective, Requested: 9, Selected: 3,
				Shortfalls: []pool.Shortfall{{Pattern: "P1", QNumber: 1, Requested: 6, Selected: 2}},
			},
		},
	}
}

// decode round-trips data through JSON so assertions work on plain types.
func decode(t *testing.T, data any, v any) {
	t.Helper()
	b, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
}

func TestQueryPool(t *testing.T) {
	data, err := Query(sampleResult(), `{ pool(pattern: "P1") { realQuery nodeId pathCount } }`, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	var got struct {
		Pool []struct {
			RealQuery string
			NodeID    string `json:"nodeId"`
			PathCount int
		}
	}
	decode(t, data, &got)

	if len(got.Pool) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got.Pool))
	}
	if got.Pool[0].RealQuery != "qA1" || got.Pool[1].NodeID != "p2" {
		t.Errorf("unexpected entries: %+v", got.Pool)
	}
}

func TestQueryPatternsAndTemplates(t *testing.T) {
	data, err := Query(sampleResult(), `{
		patterns(limit: 1) { rank name score }
		templates(qNumber: 1) { rank name }
	}`, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	var got struct {
		Patterns  []struct{ Rank int; Name string; Score float64 }
		Templates []struct{ Rank int; Name string }
	}
	decode(t, data, &got)

	if len(got.Patterns) != 1 || got.Patterns[0].Name != "P1" || got.Patterns[0].Score != 7 {
		t.Errorf("unexpected patterns: %+v", got.Patterns)
	}
	if len(got.Templates) != 2 || got.Templates[1].Name != "tB" {
		t.Errorf("unexpected templates: %+v", got.Templates)
	}
}

func TestQuerySummary(t *testing.T) {
	data, err := Query(sampleResult(), `query($p: String) {
		summary { runId policy requested selected unranked shortfalls { pattern requested selected } }
		pool(pattern: $p) { realQuery }
	}`, map[string]any{"p": "P2"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	var got struct {
		Summary struct {
			RunID      string `json:"runId"`
			Policy     string
			Requested  int
			Selected   int
			Unranked   int
			Shortfalls []struct {
				Pattern   string
				Requested int
				Selected  int
			}
		}
		Pool []struct{ RealQuery string }
	}
	decode(t, data, &got)

	if got.Summary.RunID != "run-1" || got.Summary.Policy != "selective" {
		t.Errorf("unexpected summary: %+v", got.Summary)
	}
	if got.Summary.Requested != 9 || got.Summary.Selected != 3 || got.Summary.Unranked != 1 {
		t.Errorf("unexpected counts: %+v", got.Summary)
	}
	if len(got.Summary.Shortfalls) != 1 || got.Summary.Shortfalls[0].Selected != 2 {
		t.Errorf("unexpected shortfalls: %+v", got.Summary.Shortfalls)
	}
	if len(got.Pool) != 1 || got.Pool[0].RealQuery != "qC1" {
		t.Errorf("variables not applied: %+v", got.Pool)
	}
}

func TestQueryErrors(t *testing.T) {
	_, err := Query(sampleResult(), `{ pool { nope } }`, nil)
	if !errors.Is(err, ErrQuery) {
		t.Fatalf("expected ErrQuery, got %v", err)
	}
}
