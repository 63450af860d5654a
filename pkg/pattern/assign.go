package pattern

// OtherPattern absorbs templates beyond the declared distribution.
const OtherPattern = "Other"

// UnknownPattern labels queries that cannot be traced back to a template.
const UnknownPattern = "Unknown"

// Abstract is a named pattern with the number of consecutive templates that
// realise it. QNumber is its 1-based declaration position.
type Abstract struct {
	Name          string `json:"name" yaml:"name"`
	ExpectedCount int    `json:"expected_count" yaml:"expected_count"`
	QNumber       int    `json:"q_number" yaml:"q_number"`
}

// Assignment maps a template to the name of its abstract pattern.
type Assignment map[string]string

// PatternOf returns the pattern a template was assigned to, or UnknownPattern.
func (a Assignment) PatternOf(template string) string {
	if name, ok := a[template]; ok {
		return name
	}
	return UnknownPattern
}

// AssignQNumbers numbers patterns 1..N in declaration order. A name declared
// twice keeps its last position.
func AssignQNumbers(patterns []Abstract) map[string]int {
	out := make(map[string]int, len(patterns))
	for i, p := range patterns {
		out[p.Name] = i + 1
	}
	return out
}

// Numbered returns a copy of patterns with QNumber filled from declaration order.
func Numbered(patterns []Abstract) []Abstract {
	out := make([]Abstract, len(patterns))
	for i, p := range patterns {
		p.QNumber = i + 1
		out[i] = p
	}
	return out
}

// AssignQueries walks templates in order, giving each declared pattern
// exactly ExpectedCount consecutive templates. Templates left over once the
// distribution is exhausted go to OtherPattern. It never fails: a short
// template list simply leaves later patterns with fewer templates.
func AssignQueries(templates []string, distribution []Abstract) Assignment {
	out := make(Assignment, len(templates))
	next := 0
	for _, p := range distribution {
		for i := 0; i < p.ExpectedCount && next < len(templates); i++ {
			out[templates[next]] = p.Name
			next++
		}
	}
	for ; next < len(templates); next++ {
		out[templates[next]] = OtherPattern
	}
	return out
}
