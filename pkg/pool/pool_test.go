package pool

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-pathbench/pkg/aggregate"
	"github.com/dd0wney/cluso-pathbench/pkg/ranking"
)

func rec(pattern string, qnum int, template string, node string, paths int) aggregate.Record {
	return aggregate.Record{
		Query:      fmt.Sprintf("%s|%s|%s", pattern, template, node),
		Pattern:    pattern,
		QNumber:    qnum,
		Template:   template,
		NodeID:     node,
		PathCount:  paths,
		Executions: 1,
		MeanTimeMs: 1,
		HasTiming:  true,
	}
}

// twoPatterns ranks P1 (mean 10) above P2 (mean 5).
func twoPatterns() ranking.Rankings {
	table := []aggregate.Record{
		rec("P1", 1, "t1", "a", 12),
		rec("P1", 1, "t1", "b", 8),
		rec("P1", 1, "t2", "c", 10),
		rec("P2", 2, "u1", "d", 5),
		rec("P2", 2, "u1", "e", 5),
	}
	return ranking.RankAll(table, ranking.MeanPaths)
}

func TestParseCount(t *testing.T) {
	c, err := ParseCount("*")
	require.NoError(t, err)
	assert.True(t, c.IsAll())
	assert.Equal(t, 7, c.Take(7))

	c, err = ParseCount(" 3 ")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Take(2))
	assert.Equal(t, 3, c.Take(9))
	assert.Equal(t, "3", c.String())

	_, err = ParseCount("-1")
	assert.ErrorIs(t, err, ErrInvalidCount)
	_, err = ParseCount("many")
	assert.ErrorIs(t, err, ErrInvalidCount)

	var u Count
	require.NoError(t, u.UnmarshalText([]byte("all")))
	assert.Equal(t, All, u)
}

func TestSelectQuota_OnlyTopPattern(t *testing.T) {
	p := SelectQuota(twoPatterns(), Quota{Abstract: N(1), Templates: All, Real: 3})

	require.Len(t, p.Entries, 3)
	for _, e := range p.Entries {
		assert.Equal(t, "P1", e.Pattern)
		assert.Equal(t, Selective, e.SelectionType)
	}
	// t1 (mean 10) ties t2 (mean 10); t1 seen first
	assert.Equal(t, []string{"P1|t1|a", "P1|t1|b", "P1|t2|c"}, p.Queries())
	assert.Equal(t, 6, p.Summary.Requested)
	assert.Equal(t, 3, p.Summary.Selected)
	require.Len(t, p.Summary.Shortfalls, 1)
	assert.Equal(t, Shortfall{Pattern: "P1", QNumber: 1, Requested: 6, Selected: 3}, p.Summary.Shortfalls[0])
}

func TestSelectQuota_RealOrderByPaths(t *testing.T) {
	table := []aggregate.Record{
		rec("P", 1, "t", "low", 1),
		rec("P", 1, "t", "high", 9),
		rec("P", 1, "t", "mid", 5),
	}
	p := SelectQuota(ranking.RankAll(table, ranking.MeanPaths), Quota{Abstract: All, Templates: N(1), Real: 2})

	assert.Equal(t, []string{"P|t|high", "P|t|mid"}, p.Queries())
	assert.Empty(t, p.Summary.Shortfalls)
}

func TestSelectQuota_Idempotent(t *testing.T) {
	r := twoPatterns()
	q := Quota{Abstract: All, Templates: N(2), Real: 2}
	assert.Equal(t, SelectQuota(r, q), SelectQuota(r, q))
}

func TestSelectFixed(t *testing.T) {
	p := SelectFixed(twoPatterns(), map[int]FixedQuota{
		1: {Templates: 1, Real: 3},
		7: {Templates: 1, Real: 1},
	})

	// P1 wants 3: t1 gives min(3, 2, 3) = 2, t2 gives min(3, 1, 1) = 1
	assert.Equal(t, []string{"P1|t1|a", "P1|t1|b", "P1|t2|c"}, p.Queries())
	for _, e := range p.Entries {
		assert.Equal(t, Fixed, e.SelectionType)
	}

	require.Len(t, p.Summary.Skipped, 1)
	assert.Equal(t, "P2", p.Summary.Skipped[0].Pattern)

	require.Len(t, p.Summary.Shortfalls, 1)
	assert.Equal(t, Shortfall{QNumber: 7, Requested: 1}, p.Summary.Shortfalls[0])
	assert.Equal(t, 4, p.Summary.Requested)
	assert.Equal(t, 3, p.Summary.Selected)
}

func TestSelectFixed_StopsAtTotal(t *testing.T) {
	p := SelectFixed(twoPatterns(), map[int]FixedQuota{1: {Templates: 1, Real: 1}, 2: {Templates: 2, Real: 1}})

	assert.Equal(t, []string{"P1|t1|a", "P2|u1|d"}, p.Queries())
	require.Len(t, p.Summary.Shortfalls, 1)
	assert.Equal(t, "P2", p.Summary.Shortfalls[0].Pattern)
}

func TestFromRankings(t *testing.T) {
	tmpl := "MATCH (x)=[ALL TRAILS ?p1 (:hasCreator/:isLocatedIn)]=>(?y) RETURN ?p1"
	bad := "RETURN nothing"
	patterns := []ranking.Score{{Name: "P1", QNumber: 1}, {Name: "Loose"}, {Name: "P3", QNumber: 3}}
	templates := map[int][]ranking.Score{1: {{Name: tmpl, Score: 4}, {Name: bad}}}
	mappings := map[string][]string{"hasCreator": {"m1", "m2", "m3"}}

	p := FromRankings(patterns, templates, mappings, Quota{Abstract: All, Templates: All, Real: 2})

	require.Len(t, p.Entries, 2)
	assert.Equal(t, "MATCH (m1)=[ALL TRAILS ?p1 (:hasCreator/:isLocatedIn)]=>(?y) RETURN ?p1", p.Entries[0].RealQuery)
	assert.Equal(t, "m2", p.Entries[1].NodeID)
	assert.Equal(t, "hasCreator", p.Entries[1].Label)
	assert.Equal(t, 4.0, p.Entries[0].TemplateScore)
	assert.Equal(t, Rankings, p.Summary.Policy)
	assert.Equal(t, 1, p.Summary.SkippedTemplates)
	assert.Len(t, p.Summary.Skipped, 2)

	idx := p.SideIndex()
	assert.Equal(t, "m1", idx[p.Entries[0].RealQuery].NodeID)
	assert.Equal(t, "P1", idx[p.Entries[0].RealQuery].Pattern)
}

func TestQuotaBoundProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("selective pool never exceeds aq*tq*rq", prop.ForAll(
		func(paths []int, aq, tq, rq int) bool {
			var table []aggregate.Record
			for i, n := range paths {
				pat := fmt.Sprintf("P%d", i%4)
				table = append(table, rec(pat, i%4+1, fmt.Sprintf("t%d", i%3), fmt.Sprint(i), n))
			}
			r := ranking.RankAll(table, ranking.MeanPaths)
			p := SelectQuota(r, Quota{Abstract: N(aq), Templates: N(tq), Real: rq})
			return len(p.Entries) <= aq*tq*rq && p.Summary.Selected == len(p.Entries)
		},
		gen.SliceOf(gen.IntRange(0, 10)),
		gen.IntRange(0, 4),
		gen.IntRange(0, 4),
		gen.IntRange(0, 4),
	))

	properties.Property("equality when every template has enough records", prop.ForAll(
		func(aq, tq, rq int) bool {
			var table []aggregate.Record
			for p := 0; p < aq; p++ {
				for t := 0; t < tq; t++ {
					for n := 0; n < rq; n++ {
						table = append(table, rec(fmt.Sprintf("P%d", p), p+1, fmt.Sprintf("t%d", t), fmt.Sprint(n), n+1))
					}
				}
			}
			r := ranking.RankAll(table, ranking.MeanPaths)
			p := SelectQuota(r, Quota{Abstract: N(aq), Templates: N(tq), Real: rq})
			return len(p.Entries) == aq*tq*rq
		},
		gen.IntRange(1, 4),
		gen.IntRange(1, 4),
		gen.IntRange(1, 4),
	))

	properties.TestingRun(t)
}
