package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-pathbench/pkg/aggregate"
)

func rec(pattern string, qnum int, template string, paths int, ms float64) aggregate.Record {
	return aggregate.Record{
		Query:      pattern + template + string(rune('0'+paths)),
		Pattern:    pattern,
		QNumber:    qnum,
		Template:   template,
		PathCount:  paths,
		MeanTimeMs: ms,
		HasTiming:  true,
	}
}

func names(rows []Score) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

func TestParseScoringPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ScoringPolicy
		wantErr bool
	}{
		{"mean-paths", MeanPaths, false},
		{"MAX-MEDIAN", MaxMedian, false},
		{"", MeanPaths, false},
		{"median", "", true},
	}
	for _, tt := range tests {
		got, err := ParseScoringPolicy(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownPolicy, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestRankPatterns_ZeroPathExclusion(t *testing.T) {
	table := []aggregate.Record{
		rec("Empty", 1, "e1", 0, 1),
		rec("Empty", 1, "e2", 0, 2),
		rec("P2", 2, "t1", 4, 3),
		rec("P2", 2, "t1", 0, 1),
	}

	for _, policy := range []ScoringPolicy{MeanPaths, MaxMedian} {
		rows := RankPatterns(table, policy)
		require.Len(t, rows, 1, policy)
		assert.Equal(t, "P2", rows[0].Name)
		assert.Equal(t, 1, rows[0].Samples)
		assert.Equal(t, 4.0, rows[0].Score)
	}
}

func TestRankPatterns_MeanPaths(t *testing.T) {
	table := []aggregate.Record{
		rec("A", 1, "a1", 2, 5),
		rec("B", 2, "b1", 10, 50),
		rec("A", 1, "a2", 4, 7),
		rec("C", 3, "c1", 3, 1),
	}
	rows := RankPatterns(table, MeanPaths)

	assert.Equal(t, []string{"B", "A", "C"}, names(rows))
	assert.Equal(t, 3.0, rows[1].Score)
	assert.Equal(t, 6.0, rows[1].MeanTimeMs)
	assert.Equal(t, 4, rows[1].MaxPaths)
	assert.Equal(t, 2, rows[1].MinPaths)
	assert.Equal(t, []int{1, 2, 3}, []int{rows[0].Rank, rows[1].Rank, rows[2].Rank})
}

func TestRankPatterns_StableTies(t *testing.T) {
	table := []aggregate.Record{
		rec("X", 1, "x", 5, 1),
		rec("Y", 2, "y", 5, 1),
		rec("Z", 3, "z", 5, 1),
	}
	assert.Equal(t, []string{"X", "Y", "Z"}, names(RankPatterns(table, MeanPaths)))
	assert.Equal(t, []string{"X", "Y", "Z"}, names(RankPatterns(table, MaxMedian)))
}

func TestRankPatterns_MaxMedianOrdersByTime(t *testing.T) {
	table := []aggregate.Record{
		rec("Big", 1, "b", 100, 90),
		rec("Small", 2, "s", 1, 10),
		rec("Mid", 3, "m1", 2, 30),
		rec("Mid", 3, "m2", 6, 50),
		rec("Mid", 3, "m3", 10, 40),
	}
	rows := RankPatterns(table, MaxMedian)

	assert.Equal(t, []string{"Small", "Mid", "Big"}, names(rows))
	// max 10, median 6
	assert.Equal(t, 8.0, rows[1].Score)
	assert.Equal(t, 40.0, rows[1].MeanTimeMs)
}

func TestMaxMedian_EvenMedian(t *testing.T) {
	table := []aggregate.Record{
		rec("P", 1, "a", 1, 1),
		rec("P", 1, "b", 3, 1),
		rec("P", 1, "c", 5, 1),
		rec("P", 1, "d", 9, 1),
	}
	rows := RankPatterns(table, MaxMedian)
	require.Len(t, rows, 1)
	// median (3+5)/2 = 4
	assert.Equal(t, 6.5, rows[0].Score)
}

func TestRankTemplates(t *testing.T) {
	table := []aggregate.Record{
		rec("P", 4, "t1", 1, 1),
		rec("P", 4, "t2", 9, 1),
		rec("P", 4, "t1", 3, 1),
		rec("P", 4, "t3", 0, 1),
	}
	patterns := RankPatterns(table, MeanPaths)
	require.Len(t, patterns, 1)

	templates := RankTemplates(patterns[0], MeanPaths)
	assert.Equal(t, []string{"t2", "t1"}, names(templates))
	assert.Equal(t, 2.0, templates[1].Score)
	assert.Equal(t, 4, templates[0].QNumber)

	all := RankAll(table, MeanPaths)
	assert.Equal(t, templates, all.TemplatesFor(patterns[0]))
}
