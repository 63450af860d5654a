package noderank

import (
	"errors"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edges(triples ...[3]string) []Edge {
	out := make([]Edge, len(triples))
	for i, t := range triples {
		out[i] = Edge{Origin: t[0], Relation: t[1], Target: t[2]}
	}
	return out
}

func ranking(counts ...int) NodeRanking {
	nr := NodeRanking{Label: "l"}
	for i, c := range counts {
		nr.Nodes = append(nr.Nodes, NodeCount{Node: string(rune('a' + i)), Count: c})
	}
	return nr
}

func nodes(sel []NodeCount) []string {
	out := make([]string, len(sel))
	for i, nc := range sel {
		out[i] = nc.Node
	}
	return out
}

func TestBuild_StableTies(t *testing.T) {
	r := Build(slices.Values(edges(
		[3]string{"b", "knows", "x"},
		[3]string{"a", "knows", "x"},
		[3]string{"c", "knows", "y"},
		[3]string{"c", "knows", "z"},
		[3]string{"a", "hasCreator", "m"},
	)))

	assert.Equal(t, []string{"knows", "hasCreator"}, r.Labels)

	nr, ok := r.Get("knows")
	require.True(t, ok)
	assert.Equal(t, []NodeCount{{"c", 2}, {"b", 1}, {"a", 1}}, nr.Nodes)
	assert.Equal(t, 2, nr.Position("b"))
	assert.Equal(t, 0, nr.Position("zz"))

	assert.Equal(t, 2, r.Stats["knows"].Incoming["x"])
	in := IncomingRanking(r.Stats["knows"])
	assert.Equal(t, "x", in.Nodes[0].Node)
}

func TestSelectByMode(t *testing.T) {
	nr := ranking(9, 8, 7, 6, 5, 4, 3, 2, 1, 0)

	tests := []struct {
		mode Mode
		k    int
		want []string
	}{
		{ModeMax, 3, []string{"a", "b", "c"}},
		{ModeMin, 3, []string{"i", "h", "g"}},
		{ModeMedian, 3, []string{"e", "f", "g"}},
		{ModeMedian, 2, []string{"e", "f"}},
		{ModeP25, 3, []string{"b", "c", "d"}},
		{ModeP75, 3, []string{"g", "h", "i"}},
		{ModeP75, 6, []string{"e", "f", "g", "h", "i", "j"}},
		{ModeP25, 6, []string{"a", "b", "c", "d", "e", "f"}},
		{ModeMax, 20, []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			got := nodes(SelectByMode(nr.Nodes, tt.mode, tt.k))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectByMode_MinSkipsZero(t *testing.T) {
	nr := ranking(3, 0, 0)
	assert.Equal(t, []string{"a"}, nodes(SelectByMode(nr.Nodes, ModeMin, 2)))
}

func TestSelect_SharedPool(t *testing.T) {
	nr := ranking(9, 8, 7, 6, 5, 4)
	sel := Select(nr, []Mode{ModeMax, ModeMedian}, 2)

	require.Len(t, sel, 2)
	assert.Equal(t, []string{"a", "b"}, nodes(sel[0].Nodes))
	// remaining c d e f; centre index 2
	assert.Equal(t, []string{"d", "e"}, nodes(sel[1].Nodes))
	assert.Equal(t, []string{"a", "b", "d", "e"}, Flatten(sel))
}

func TestSelectAll(t *testing.T) {
	r := Build(slices.Values(edges(
		[3]string{"p1", "knows", "p2"},
		[3]string{"p1", "knows", "p3"},
		[3]string{"p2", "knows", "p3"},
		[3]string{"m1", "hasCreator", "p1"},
	)))
	m, sel := SelectAll(r, []Mode{ModeMax}, 1)
	assert.Equal(t, Mappings{"knows": {"p1"}, "hasCreator": {"m1"}}, m)
	assert.Equal(t, []string{"hasCreator", "knows"}, m.Labels())
	assert.Len(t, sel["knows"], 1)
}

func TestParseModes(t *testing.T) {
	modes, err := ParseModes("MAX+med+max,.25")
	require.NoError(t, err)
	assert.Equal(t, []Mode{ModeMax, ModeMedian, ModeP25}, modes)
	assert.Equal(t, "max+med+.25", FormatModes(modes))

	_, err = ParseModes("max+top")
	assert.True(t, errors.Is(err, ErrUnknownMode))

	_, err = ParseModes("")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestSummarize(t *testing.T) {
	s := Summarize(ranking(5, 3, 2, 1))
	assert.Equal(t, Summary{Total: 4, Max: 5, Min: 1, Mean: 2.75, Median: 2.5}, s)
	assert.Equal(t, Summary{}, Summarize(NodeRanking{}))
}

func TestWindowProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("percentile window is k wide and clamped around L/4", prop.ForAll(
		func(l, k int) bool {
			if k > l {
				k = l
			}
			start, end := Window(l, l/4, k)
			want := min(max(l/4-k/2, 0), l-k)
			return end-start == k && start == want
		},
		gen.IntRange(1, 500),
		gen.IntRange(1, 50),
	))

	properties.Property("mode selection never repeats a node", prop.ForAll(
		func(counts []int, k int) bool {
			nr := NodeRanking{Label: "l"}
			for i, c := range counts {
				nr.Nodes = append(nr.Nodes, NodeCount{Node: string(rune(0x100 + i)), Count: c})
			}
			seen := make(map[string]bool)
			for _, n := range Flatten(Select(nr, []Mode{ModeMax, ModeMedian, ModeP25, ModeP75, ModeMin}, k)) {
				if seen[n] {
					return false
				}
				seen[n] = true
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 20)),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
