package pattern

import (
	"regexp"
	"strings"
)

// RealQuery is a template with its start node bound to a graph node.
type RealQuery struct {
	Query    string
	Template string
	Pattern  string
	QNumber  int
	NodeID   string
	Label    string
}

// IndexEntry re-attaches template metadata to a real query when the
// execution log is parsed later.
type IndexEntry struct {
	Template string `json:"original"`
	Pattern  string `json:"abstract_pattern"`
	NodeID   string `json:"node_id,omitempty"`
	Label    string `json:"label,omitempty"`
}

// SideIndex is keyed by the real query string exactly as sent to the server.
type SideIndex map[string]IndexEntry

// SkipReason explains why a template produced no real queries.
type SkipReason string

const (
	SkipNoLabel    SkipReason = "no-initial-label"
	SkipNoMapping  SkipReason = "label-not-mapped"
	SkipEmptyNodes SkipReason = "no-nodes-for-label"
)

// SkippedTemplate records a template left out of instantiation.
type SkippedTemplate struct {
	Template string
	Label    string
	Reason   SkipReason
}

// Instantiation is the output of Instantiate.
type Instantiation struct {
	Queries []RealQuery
	Index   SideIndex
	Skipped []SkippedTemplate
}

var boundNode = regexp.MustCompile(`MATCH \(([^)]+)\)=`)

// BindNode substitutes node for the template's start-node placeholder.
func BindNode(template, node string) string {
	return strings.ReplaceAll(template, Placeholder, "("+node+")=")
}

// ExtractNode recovers the bound start node from a real query.
func ExtractNode(query string) (string, bool) {
	m := boundNode.FindStringSubmatch(query)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Instantiate binds every template to the nodes mapped to its initial label.
// Templates that already name a start node pass through unchanged. perLabel
// caps how many mapped nodes are used per template; zero means all of them.
func Instantiate(templates []string, assign Assignment, qnums map[string]int, mappings map[string][]string, perLabel int) Instantiation {
	out := Instantiation{Index: make(SideIndex)}

	for _, tmpl := range templates {
		name := assign.PatternOf(tmpl)

		if !strings.Contains(tmpl, Placeholder) {
			out.Queries = append(out.Queries, RealQuery{
				Query:    tmpl,
				Template: tmpl,
				Pattern:  name,
				QNumber:  qnums[name],
			})
			out.Index[tmpl] = IndexEntry{Template: tmpl, Pattern: name}
			continue
		}

		label, ok := InitialLabel(tmpl)
		if !ok {
			out.Skipped = append(out.Skipped, SkippedTemplate{Template: tmpl, Reason: SkipNoLabel})
			continue
		}
		nodes, ok := mappings[label]
		if !ok {
			out.Skipped = append(out.Skipped, SkippedTemplate{Template: tmpl, Label: label, Reason: SkipNoMapping})
			continue
		}
		if perLabel > 0 && len(nodes) > perLabel {
			nodes = nodes[:perLabel]
		}
		if len(nodes) == 0 {
			out.Skipped = append(out.Skipped, SkippedTemplate{Template: tmpl, Label: label, Reason: SkipEmptyNodes})
			continue
		}

		for _, node := range nodes {
			q := BindNode(tmpl, node)
			out.Queries = append(out.Queries, RealQuery{
				Query:    q,
				Template: tmpl,
				Pattern:  name,
				QNumber:  qnums[name],
				NodeID:   node,
				Label:    label,
			})
			out.Index[q] = IndexEntry{Template: tmpl, Pattern: name, NodeID: node, Label: label}
		}
	}
	return out
}
