package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-pathbench/pkg/cache"
	"github.com/dd0wney/cluso-pathbench/pkg/config"
	"github.com/dd0wney/cluso-pathbench/pkg/logging"
	"github.com/dd0wney/cluso-pathbench/pkg/metrics"
	"github.com/dd0wney/cluso-pathbench/pkg/noderank"
	"github.com/dd0wney/cluso-pathbench/pkg/pattern"
	"github.com/dd0wney/cluso-pathbench/pkg/pool"
	"github.com/dd0wney/cluso-pathbench/pkg/ranking"
)

func wrap(frag string) string {
	return "MATCH (x)=[ALL TRAILS ?p1 " + frag + "]=>(?y) RETURN ?p1"
}

var (
	tA = wrap("(:knows)+")
	tB = wrap("(:knows/:hasCreator)")
	tC = wrap("(:hasCreator)")

	templates = []string{tA, tB, tC}
	patterns  = []pattern.Abstract{{Name: "P1", ExpectedCount: 2}, {Name: "P2", ExpectedCount: 1}}
	mappings  = noderank.Mappings{"knows": {"p1", "p2"}, "hasCreator": {"m1"}}
)

func block(q string, paths int, ms float64) string {
	return fmt.Sprintf("Query received:\n%s\nResults: %d\nExecution duration: %g ms\n", q, paths, ms)
}

func fixture(t *testing.T) Inputs {
	t.Helper()
	r := New(WithLogger(logging.NopLogger{}))
	inst := r.Instantiate(config.Default().Normalize(), templates, patterns, mappings)
	require.Len(t, inst.Queries, 5)
	require.Empty(t, inst.Skipped)

	var sb strings.Builder
	sb.WriteString("server started\n")
	sb.WriteString(block(pattern.BindNode(tA, "p1"), 10, 10))
	sb.WriteString(block(pattern.BindNode(tA, "p2"), 4, 20))
	sb.WriteString(block(pattern.BindNode(tB, "p1"), 0, 5))
	sb.WriteString(block(pattern.BindNode(tB, "p2"), 6, 8))
	sb.WriteString(block(pattern.BindNode(tC, "m1"), 3, 2))
	sb.WriteString(block("MATCH (z)=[ALL TRAILS ?p (:other)]=>(?y) RETURN ?p", 50, 1))
	sb.WriteString(block(pattern.BindNode(tA, "p1"), 10, 30))

	return Inputs{Log: sb.String(), Templates: templates, Patterns: patterns, Index: inst.Index}
}

func counter() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
}

func TestRun_Selective(t *testing.T) {
	in := fixture(t)
	reg := metrics.NewRegistry()
	r := New(WithLogger(logging.NopLogger{}), WithMetrics(reg), WithRunID(counter()))

	res, err := r.Run(context.Background(), config.Default().Normalize(), in)
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, 7, res.Stats.Blocks)
	assert.Equal(t, 1, res.Stats.Repeats)
	assert.Equal(t, 1, res.Unranked, "query missing from the index is not ranked")
	assert.Len(t, res.Table, 5)

	require.Len(t, res.Rankings.Patterns, 2)
	p1 := res.Rankings.Patterns[0]
	assert.Equal(t, "P1", p1.Name)
	assert.Equal(t, 1, p1.QNumber)
	assert.InDelta(t, 20.0/3.0, p1.Score, 1e-9)
	assert.Equal(t, "P2", res.Rankings.Patterns[1].Name)

	tmpl := res.Rankings.Templates["P1"]
	require.Len(t, tmpl, 2)
	assert.Equal(t, tA, tmpl[0].Name)
	assert.Equal(t, tB, tmpl[1].Name)

	got := res.Pool.Queries()
	assert.Equal(t, []string{
		pattern.BindNode(tA, "p1"),
		pattern.BindNode(tA, "p2"),
		pattern.BindNode(tB, "p2"),
		pattern.BindNode(tC, "m1"),
	}, got)
	assert.Equal(t, "run-1", res.Pool.Summary.RunID)
	assert.Equal(t, 9, res.Pool.Summary.Requested)
	assert.Len(t, res.Pool.Summary.Shortfalls, 2)

	first := res.Pool.Entries[0]
	assert.Equal(t, 2, first.Executions)
	assert.InDelta(t, 20.0, first.MeanTimeMs, 1e-9)
}

func TestRun_Idempotent(t *testing.T) {
	in := fixture(t)
	cfg := config.Default().Normalize()

	a, err := New(WithLogger(logging.NopLogger{})).Run(context.Background(), cfg, in)
	require.NoError(t, err)
	b, err := New(WithLogger(logging.NopLogger{})).Run(context.Background(), cfg, in)
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	a.RunID, b.RunID = "", ""
	a.Pool.Summary.RunID, b.Pool.Summary.RunID = "", ""
	assert.Equal(t, a, b)
}

func TestRun_Fixed(t *testing.T) {
	in := fixture(t)
	cfg := config.Default()
	cfg.Selection = "fixed"
	cfg.Fixed = config.FixedConfig{QNumbers: []int{2, 5}, Templates: []int{1, 1}, Real: []int{1, 2}}

	log := logging.NewCaptureLogger()
	res, err := New(WithLogger(log)).Run(context.Background(), cfg.Normalize(), in)
	require.NoError(t, err)

	assert.Equal(t, pool.Fixed, res.Pool.Summary.Policy)
	assert.Equal(t, []string{pattern.BindNode(tC, "m1")}, res.Pool.Queries())
	require.Len(t, res.Pool.Summary.Skipped, 1)
	assert.Equal(t, "P1", res.Pool.Summary.Skipped[0].Pattern)
	require.Len(t, res.Pool.Summary.Shortfalls, 1)
	assert.Equal(t, 5, res.Pool.Summary.Shortfalls[0].QNumber)

	var skipped []any
	for _, e := range log.Entries() {
		if e.Level == logging.WarnLevel && e.Message == "pattern skipped" {
			skipped = append(skipped, e.Fields["pattern"])
		}
	}
	assert.Equal(t, []any{"P1"}, skipped)
}

func TestRun_MaxMedian(t *testing.T) {
	in := fixture(t)
	cfg := config.Default()
	cfg.Scoring = "max-median"

	res, err := New(WithLogger(logging.NopLogger{})).Run(context.Background(), cfg.Normalize(), in)
	require.NoError(t, err)
	assert.Equal(t, ranking.MaxMedian, res.Rankings.Policy)
	// P2 mean time 2ms beats P1
	assert.Equal(t, "P2", res.Rankings.Patterns[0].Name)
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Scoring = "fastest"
	_, err := New(WithLogger(logging.NopLogger{})).Run(context.Background(), cfg, Inputs{})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(WithLogger(logging.NopLogger{})).Run(ctx, config.Default().Normalize(), fixture(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_EmptyLog(t *testing.T) {
	res, err := New(WithLogger(logging.NopLogger{})).Run(context.Background(), config.Default().Normalize(), Inputs{})
	require.NoError(t, err)
	assert.Empty(t, res.Pool.Entries)
	assert.Empty(t, res.Rankings.Patterns)
}

func TestRun_Cache(t *testing.T) {
	in := fixture(t)
	c, err := cache.New(t.TempDir(), 4)
	require.NoError(t, err)
	r := New(WithLogger(logging.NopLogger{}), WithCache(c), WithRunID(counter()))
	cfg := config.Default().Normalize()

	first, err := r.Run(context.Background(), cfg, in)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := r.Run(context.Background(), cfg, in)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "run-2", second.RunID)
	assert.Equal(t, "run-2", second.Pool.Summary.RunID)
	assert.Equal(t, first.Pool.Queries(), second.Pool.Queries())

	cfg.Quota.Real = 1
	third, err := r.Run(context.Background(), cfg.Normalize(), in)
	require.NoError(t, err)
	assert.False(t, third.Cached, "quota change alters the fingerprint")
}

func TestFingerprint(t *testing.T) {
	in := fixture(t)
	cfg := config.Default().Normalize()
	base := Fingerprint(cfg, in)

	assert.Equal(t, base, Fingerprint(cfg, in))

	other := cfg
	other.Paths.Log = "elsewhere.txt"
	assert.Equal(t, base, Fingerprint(other, in), "paths do not matter")

	other = cfg
	other.Scoring = "max-median"
	assert.NotEqual(t, base, Fingerprint(other, in))

	changed := in
	changed.Log += block("MATCH (q)=[ALL TRAILS ?p (:x)]=>(?y) RETURN ?p", 1, 1)
	assert.NotEqual(t, base, Fingerprint(cfg, changed))
}

func TestAssign(t *testing.T) {
	idx := pattern.SideIndex{
		"q1": {Template: tA, Pattern: "Stale"},
		"q2": {Template: "not listed", Pattern: "Kept"},
	}
	got, qnums := Assign(Inputs{Templates: templates, Patterns: patterns, Index: idx})

	assert.Equal(t, "P1", got["q1"].Pattern)
	assert.Equal(t, "Kept", got["q2"].Pattern)
	assert.Equal(t, map[string]int{"P1": 1, "P2": 2}, qnums)
	assert.Equal(t, "Stale", idx["q1"].Pattern, "input index is not modified")

	got, qnums = Assign(Inputs{Templates: templates, Index: idx})
	assert.Equal(t, "Stale", got["q1"].Pattern, "no patterns declared keeps recorded names")
	assert.Equal(t, "Kept", got["q2"].Pattern)
	assert.Empty(t, qnums)
}

func TestRun_TemplatesWithoutPatterns(t *testing.T) {
	in := fixture(t)
	in.Patterns = nil

	res, err := New(WithLogger(logging.NopLogger{})).Run(context.Background(), config.Default().Normalize(), in)
	require.NoError(t, err)

	var names []string
	for _, p := range res.Rankings.Patterns {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"P1", "P2"}, names)
	for _, e := range res.Pool.Entries {
		assert.NotEqual(t, pattern.OtherPattern, e.Pattern)
	}
}

func TestInstantiate_Skips(t *testing.T) {
	log := logging.NewCaptureLogger()
	reg := metrics.NewRegistry()
	r := New(WithLogger(log), WithMetrics(reg))

	inst := r.Instantiate(config.Default().Normalize(),
		[]string{tA, wrap("(:unmapped)"), "MATCH (n1)=[ALL TRAILS ?p (:knows)]=>(?y) RETURN ?p"},
		patterns, mappings)

	assert.Len(t, inst.Queries, 3, "two knows nodes plus the pre-bound query")
	require.Len(t, inst.Skipped, 1)
	assert.Equal(t, pattern.SkipNoMapping, inst.Skipped[0].Reason)
	assert.Equal(t, 1, log.Count(logging.WarnLevel))
}

func TestNodeMappings(t *testing.T) {
	b := noderank.NewBuilder()
	for _, e := range []noderank.Edge{
		{Origin: "p1", Relation: "knows", Target: "p2"},
		{Origin: "p1", Relation: "knows", Target: "p3"},
		{Origin: "p2", Relation: "knows", Target: "p3"},
		{Origin: "m1", Relation: "hasCreator", Target: "p1"},
	} {
		b.Add(e)
	}
	cfg := config.Default()
	cfg.Nodes.PerLabel = 1
	m, sel := New(WithLogger(logging.NopLogger{})).NodeMappings(cfg.Normalize(), b.Rankings(), b.Edges())

	assert.Equal(t, noderank.Mappings{"knows": {"p1"}, "hasCreator": {"m1"}}, m)
	assert.Len(t, sel["knows"], 1)
}

func TestFromRankings(t *testing.T) {
	pats := []ranking.Score{{Rank: 1, Name: "P1", QNumber: 1}}
	tmpls := map[int][]ranking.Score{1: {{Rank: 1, Name: tA, QNumber: 1}}}
	cfg := config.Default()
	cfg.Quota.Real = 1

	p := New(WithLogger(logging.NopLogger{}), WithRunID(counter())).FromRankings(cfg.Normalize(), pats, tmpls, mappings)
	assert.Equal(t, []string{pattern.BindNode(tA, "p1")}, p.Queries())
	assert.Equal(t, "run-1", p.Summary.RunID)
	assert.Equal(t, pool.Rankings, p.Summary.Policy)
}
