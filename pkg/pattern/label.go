// Package pattern models query templates and the abstract patterns they
// realise: initial-label extraction, Q-number assignment, and binding a
// template's start node to concrete graph nodes.
package pattern

import (
	"regexp"
	"strings"
)

// Placeholder is the unbound start node every template begins with.
const Placeholder = "(x)="

const (
	// header matches the start-node binding and path clause up to the first
	// path token, e.g. "(x)=[ALL TRAILS ?p1 ".
	header = `\([a-zA-Z0-9_]+\)=\[[A-Z]+(?: [A-Z]+)* \?[a-zA-Z0-9_]+\s+`
	ident  = `[a-zA-Z0-9_]+`
)

// labelRule pairs a structural matcher with the capture group holding the
// label it extracts.
type labelRule struct {
	name  string
	re    *regexp.Regexp
	group int
}

// labelRules are evaluated in order; the first match wins. Several rules
// match overlapping text, so the order is part of the contract.
var labelRules = []labelRule{
	// ((:a|:b)?) yields the second branch, unlike every other rule.
	{name: "optional-alternation", re: regexp.MustCompile(header + `\(\(:` + ident + `\|:(` + ident + `)\)\?\)`), group: 1},
	// (:a  :a/:b  :a{1,4}  (:a?)  (:a|(...))
	{name: "direct", re: regexp.MustCompile(header + `\(?:(` + ident + `)`), group: 1},
	{name: "alternation", re: regexp.MustCompile(header + `\(\(:(` + ident + `)\|`), group: 1},
	{name: "optional-sequence", re: regexp.MustCompile(header + `\(\(:?(` + ident + `)/:?` + ident + `\)\?\)`), group: 1},
	{name: "optional-label", re: regexp.MustCompile(header + `\(:(` + ident + `)\?\)`), group: 1},
	{name: "optional-group", re: regexp.MustCompile(header + `\(\(:(` + ident + `)\?\)\)`), group: 1},
	{name: "nested-alternation", re: regexp.MustCompile(header + `\(:(` + ident + `)\|`), group: 1},
	{name: "repeated-group", re: regexp.MustCompile(header + `\(\(:(` + ident + `)/`), group: 1},
}

var anyLabel = regexp.MustCompile(`:(` + ident + `)`)

// InitialLabel returns the edge label that immediately follows the start
// node of template. When no structural rule applies it falls back to the
// first colon-prefixed identifier anywhere in the string.
func InitialLabel(template string) (string, bool) {
	label, _, ok := matchLabel(template)
	return label, ok
}

// InitialLabelRule is InitialLabel plus the name of the rule that matched
// ("fallback" for the anywhere-search). Used in diagnostics.
func InitialLabelRule(template string) (label, rule string, ok bool) {
	return matchLabel(template)
}

func matchLabel(template string) (string, string, bool) {
	for _, r := range labelRules {
		if m := r.re.FindStringSubmatch(template); m != nil {
			if label := cleanLabel(m[r.group]); label != "" {
				return label, r.name, true
			}
		}
	}
	if m := anyLabel.FindStringSubmatch(template); m != nil {
		if label := cleanLabel(m[1]); label != "" {
			return label, "fallback", true
		}
	}
	return "", "", false
}

func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ")")
	s = strings.ReplaceAll(s, "?", "")
	return strings.TrimPrefix(s, ":")
}
