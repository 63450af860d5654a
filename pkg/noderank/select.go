package noderank

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Mode selects which region of a ranking start nodes are drawn from.
type Mode string

const (
	ModeMax    Mode = "max"
	ModeMin    Mode = "min"
	ModeMedian Mode = "med"
	ModeP25    Mode = ".25"
	ModeP75    Mode = ".75"
)

// ErrUnknownMode is returned by ParseModes for an unsupported mode name.
var ErrUnknownMode = errors.New("unknown node selection mode")

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeMax, ModeMin, ModeMedian, ModeP25, ModeP75:
		return true
	}
	return false
}

// ParseModes parses a "+"- or ","-separated mode list such as "max+med".
// Names are lower-cased and duplicates dropped, keeping first occurrence.
func ParseModes(s string) ([]Mode, error) {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == '+' || r == ',' || r == ' '
	})
	var modes []Mode
	for _, f := range fields {
		m := Mode(f)
		if !m.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMode, f)
		}
		if !slices.Contains(modes, m) {
			modes = append(modes, m)
		}
	}
	if len(modes) == 0 {
		return nil, fmt.Errorf("%w: empty mode list", ErrUnknownMode)
	}
	return modes, nil
}

// FormatModes is the inverse of ParseModes.
func FormatModes(modes []Mode) string {
	parts := make([]string, len(modes))
	for i, m := range modes {
		parts[i] = string(m)
	}
	return strings.Join(parts, "+")
}

// SelectByMode picks up to k entries from available, which must already be
// in ranking order. Fewer than k entries are returned only when available
// (or, for ModeMin, its positive-count subset) is shorter than k.
func SelectByMode(available []NodeCount, mode Mode, k int) []NodeCount {
	if k <= 0 || len(available) == 0 {
		return nil
	}
	n := len(available)

	switch mode {
	case ModeMax:
		return slices.Clone(available[:min(k, n)])
	case ModeMin:
		valid := make([]NodeCount, 0, n)
		for _, nc := range available {
			if nc.Count > 0 {
				valid = append(valid, nc)
			}
		}
		slices.SortStableFunc(valid, func(a, b NodeCount) int {
			return a.Count - b.Count
		})
		return valid[:min(k, len(valid))]
	case ModeMedian:
		return window(available, n/2, k)
	case ModeP25:
		return window(available, n/4, k)
	case ModeP75:
		return window(available, n*3/4, k)
	}
	return nil
}

// Window returns the [start, end) bounds of a k-wide window centred at c in
// a list of length n. The extra element of an odd k goes after the centre.
// A window that would cross an edge is shifted flush against it.
func Window(n, c, k int) (start, end int) {
	if n <= k {
		return 0, n
	}
	start = max(0, c-k/2)
	end = min(n, c+k/2+k%2)
	if start == 0 {
		end = min(n, k)
	} else if end == n {
		start = n - k
	}
	return start, end
}

func window(available []NodeCount, c, k int) []NodeCount {
	start, end := Window(len(available), c, k)
	return slices.Clone(available[start:end])
}

// ModeSelection is the set of nodes one mode contributed.
type ModeSelection struct {
	Mode  Mode
	Nodes []NodeCount
}

// Select applies modes in order over a shared pool: a node picked by one
// mode is unavailable to the next. Results are concatenated in mode order.
func Select(nr NodeRanking, modes []Mode, k int) []ModeSelection {
	picked := make(map[string]struct{})
	out := make([]ModeSelection, 0, len(modes))
	for _, m := range modes {
		available := make([]NodeCount, 0, len(nr.Nodes))
		for _, nc := range nr.Nodes {
			if _, ok := picked[nc.Node]; !ok {
				available = append(available, nc)
			}
		}
		sel := SelectByMode(available, m, k)
		for _, nc := range sel {
			picked[nc.Node] = struct{}{}
		}
		out = append(out, ModeSelection{Mode: m, Nodes: sel})
	}
	return out
}

// Flatten concatenates the node ids of a multi-mode selection.
func Flatten(sel []ModeSelection) []string {
	var nodes []string
	for _, s := range sel {
		for _, nc := range s.Nodes {
			nodes = append(nodes, nc.Node)
		}
	}
	return nodes
}

// Mappings maps a relation label to the start nodes chosen for it.
type Mappings map[string][]string

// Labels returns mapped labels sorted for stable output.
func (m Mappings) Labels() []string {
	labels := make([]string, 0, len(m))
	for l := range m {
		labels = append(labels, l)
	}
	slices.Sort(labels)
	return labels
}

// SelectAll runs Select for every label and returns the non-empty results
// together with the per-label selections for annotation.
func SelectAll(r *Rankings, modes []Mode, k int) (Mappings, map[string][]ModeSelection) {
	out := make(Mappings, len(r.Labels))
	selections := make(map[string][]ModeSelection, len(r.Labels))
	for _, label := range r.Labels {
		sel := Select(r.ByLabel[label], modes, k)
		selections[label] = sel
		if nodes := Flatten(sel); len(nodes) > 0 {
			out[label] = nodes
		}
	}
	return out, selections
}

// DefaultMappings is the fallback used when neither a ranking directory
// nor a mapping file is available.
func DefaultMappings() Mappings {
	return Mappings{
		"hasCreator":  {"m135702"},
		"containerOf": {"f38"},
		"hasMember":   {"f41"},
		"knows":       {"p4"},
	}
}
