// Package noderank counts how often each node appears as the origin of an
// edge with a given relation label and picks start nodes from the resulting
// per-label rankings.
package noderank

import (
	"iter"
	"slices"
)

// Edge is one observed (origin, relation, target) triple.
type Edge struct {
	Origin   string
	Relation string
	Target   string
}

// RelationStats holds outgoing and incoming edge counts for one relation
// label. Incoming counts are kept for export only.
type RelationStats struct {
	Label    string
	Outgoing map[string]int
	Incoming map[string]int

	// origins in first-encounter order, used to break ranking ties.
	origins []string
}

// Origins returns origin nodes in first-encounter order.
func (s *RelationStats) Origins() []string {
	return slices.Clone(s.origins)
}

// Builder accumulates edges into per-label RelationStats.
type Builder struct {
	stats  map[string]*RelationStats
	labels []string
	edges  int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{stats: make(map[string]*RelationStats)}
}

// Add records one edge observation.
func (b *Builder) Add(e Edge) {
	s, ok := b.stats[e.Relation]
	if !ok {
		s = &RelationStats{
			Label:    e.Relation,
			Outgoing: make(map[string]int),
			Incoming: make(map[string]int),
		}
		b.stats[e.Relation] = s
		b.labels = append(b.labels, e.Relation)
	}
	if _, seen := s.Outgoing[e.Origin]; !seen {
		s.origins = append(s.origins, e.Origin)
	}
	s.Outgoing[e.Origin]++
	s.Incoming[e.Target]++
	b.edges++
}

// Edges returns the number of observations added so far.
func (b *Builder) Edges() int {
	return b.edges
}

// Rankings freezes the accumulated counts into per-label rankings. The
// Builder should not be used afterwards.
func (b *Builder) Rankings() *Rankings {
	r := &Rankings{
		Labels:  slices.Clone(b.labels),
		ByLabel: make(map[string]NodeRanking, len(b.labels)),
		Stats:   b.stats,
	}
	for _, label := range b.labels {
		r.ByLabel[label] = rank(b.stats[label])
	}
	return r
}

// Build consumes edges and returns the per-label rankings.
func Build(edges iter.Seq[Edge]) *Rankings {
	b := NewBuilder()
	for e := range edges {
		b.Add(e)
	}
	return b.Rankings()
}

// Rankings is the result of Build. Labels lists relation labels in
// first-encounter order.
type Rankings struct {
	Labels  []string
	ByLabel map[string]NodeRanking
	Stats   map[string]*RelationStats
}

// Get returns the ranking for label.
func (r *Rankings) Get(label string) (NodeRanking, bool) {
	nr, ok := r.ByLabel[label]
	return nr, ok
}

// NodeCount is one entry of a NodeRanking.
type NodeCount struct {
	Node  string
	Count int
}

// NodeRanking lists the origin nodes of a label by outgoing count, highest
// first. Equal counts keep first-encounter order.
type NodeRanking struct {
	Label string
	Nodes []NodeCount
}

// Len returns the number of ranked nodes.
func (nr NodeRanking) Len() int {
	return len(nr.Nodes)
}

// Position returns the 1-based rank of node, or 0 if absent.
func (nr NodeRanking) Position(node string) int {
	for i, nc := range nr.Nodes {
		if nc.Node == node {
			return i + 1
		}
	}
	return 0
}

func rank(s *RelationStats) NodeRanking {
	nodes := make([]NodeCount, 0, len(s.origins))
	for _, o := range s.origins {
		nodes = append(nodes, NodeCount{Node: o, Count: s.Outgoing[o]})
	}
	slices.SortStableFunc(nodes, func(a, b NodeCount) int {
		return b.Count - a.Count
	})
	return NodeRanking{Label: s.Label, Nodes: nodes}
}

// IncomingRanking ranks target nodes by incoming count. Ties are broken by
// node id since incoming order is not tracked.
func IncomingRanking(s *RelationStats) NodeRanking {
	nodes := make([]NodeCount, 0, len(s.Incoming))
	for n, c := range s.Incoming {
		nodes = append(nodes, NodeCount{Node: n, Count: c})
	}
	slices.SortFunc(nodes, func(a, b NodeCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		if a.Node < b.Node {
			return -1
		}
		if a.Node > b.Node {
			return 1
		}
		return 0
	})
	return NodeRanking{Label: s.Label, Nodes: nodes}
}
