package pool

import (
	"slices"

	"github.com/dd0wney/cluso-pathbench/pkg/pattern"
	"github.com/dd0wney/cluso-pathbench/pkg/ranking"
)

// SelectQuota applies the selective policy: the first q.Abstract patterns,
// the first q.Templates templates of each, and the q.Real records of each
// template with the most paths.
func SelectQuota(r ranking.Rankings, q Quota) Pool {
	p := Pool{Summary: Summary{Policy: Selective}}

	patterns := r.Patterns[:q.Abstract.Take(len(r.Patterns))]
	for _, pat := range patterns {
		templates := r.TemplatesFor(pat)
		chosen := templates[:q.Templates.Take(len(templates))]

		requested := q.Templates.Bound(len(templates)) * q.Real
		selected := 0
		for _, t := range chosen {
			recs := topByPaths(t.Records)
			for _, rec := range recs[:min(q.Real, len(recs))] {
				p.Entries = append(p.Entries, entryFrom(rec, pat, t, Selective))
				selected++
			}
		}

		p.Summary.Requested += requested
		if selected < requested {
			p.Summary.Shortfalls = append(p.Summary.Shortfalls, Shortfall{
				Pattern:   pat.Name,
				QNumber:   pat.QNumber,
				Requested: requested,
				Selected:  selected,
			})
		}
	}
	p.Summary.Selected = len(p.Entries)
	return p
}

// SelectFixed applies the fixed policy. Ranked patterns without a quota
// are skipped. For the rest, templates are walked best-first taking up to
// Real records each until Templates*Real entries are selected or the
// templates run out. Quotas naming a pattern that was never ranked are
// reported as shortfalls.
func SelectFixed(r ranking.Rankings, quotas map[int]FixedQuota) Pool {
	p := Pool{Summary: Summary{Policy: Fixed}}
	seen := make(map[int]bool, len(quotas))

	for _, pat := range r.Patterns {
		fq, ok := quotas[pat.QNumber]
		if !ok {
			p.Summary.Skipped = append(p.Summary.Skipped, SkippedPattern{
				Pattern: pat.Name,
				QNumber: pat.QNumber,
				Reason:  "no fixed quota",
			})
			continue
		}
		seen[pat.QNumber] = true

		total := fq.Total()
		selected := 0
		for _, t := range r.TemplatesFor(pat) {
			if selected >= total {
				break
			}
			recs := topByPaths(t.Records)
			take := min(fq.Real, len(recs), total-selected)
			for _, rec := range recs[:take] {
				p.Entries = append(p.Entries, entryFrom(rec, pat, t, Fixed))
			}
			selected += take
		}

		p.Summary.Requested += total
		if selected < total {
			p.Summary.Shortfalls = append(p.Summary.Shortfalls, Shortfall{
				Pattern:   pat.Name,
				QNumber:   pat.QNumber,
				Requested: total,
				Selected:  selected,
			})
		}
	}

	var unranked []int
	for qn := range quotas {
		if !seen[qn] {
			unranked = append(unranked, qn)
		}
	}
	slices.Sort(unranked)
	for _, qn := range unranked {
		total := quotas[qn].Total()
		p.Summary.Requested += total
		p.Summary.Shortfalls = append(p.Summary.Shortfalls, Shortfall{QNumber: qn, Requested: total})
	}

	p.Summary.Selected = len(p.Entries)
	return p
}

// FromRankings builds a pool from previously exported rankings without an
// execution log. Each chosen template is bound to the first q.Real nodes
// mapped to its initial label. Patterns without a Q number and templates
// without a usable label are skipped.
func FromRankings(patterns []ranking.Score, templates map[int][]ranking.Score, mappings map[string][]string, q Quota) Pool {
	p := Pool{Summary: Summary{Policy: Rankings}}

	for _, pat := range patterns[:q.Abstract.Take(len(patterns))] {
		if pat.QNumber <= 0 {
			p.Summary.Skipped = append(p.Summary.Skipped, SkippedPattern{
				Pattern: pat.Name,
				Reason:  "no q number",
			})
			continue
		}
		ranked := templates[pat.QNumber]
		if len(ranked) == 0 {
			p.Summary.Skipped = append(p.Summary.Skipped, SkippedPattern{
				Pattern: pat.Name,
				QNumber: pat.QNumber,
				Reason:  "no template ranking",
			})
			continue
		}
		chosen := ranked[:q.Templates.Take(len(ranked))]

		requested := q.Templates.Bound(len(ranked)) * q.Real
		selected := 0
		for _, t := range chosen {
			label, ok := pattern.InitialLabel(t.Name)
			if !ok {
				p.Summary.SkippedTemplates++
				continue
			}
			nodes := mappings[label]
			if len(nodes) == 0 {
				p.Summary.SkippedTemplates++
				continue
			}
			for _, node := range nodes[:min(q.Real, len(nodes))] {
				p.Entries = append(p.Entries, Entry{
					RealQuery:     pattern.BindNode(t.Name, node),
					Pattern:       pat.Name,
					QNumber:       pat.QNumber,
					Template:      t.Name,
					NodeID:        node,
					Label:         label,
					TemplateScore: t.Score,
					SelectionType: Rankings,
				})
				selected++
			}
		}

		p.Summary.Requested += requested
		if selected < requested {
			p.Summary.Shortfalls = append(p.Summary.Shortfalls, Shortfall{
				Pattern:   pat.Name,
				QNumber:   pat.QNumber,
				Requested: requested,
				Selected:  selected,
			})
		}
	}
	p.Summary.Selected = len(p.Entries)
	return p
}

// SideIndex builds the side index for re-parsing a log produced by running
// the pool's queries.
func (p *Pool) SideIndex() pattern.SideIndex {
	idx := make(pattern.SideIndex, len(p.Entries))
	for _, e := range p.Entries {
		label := e.Label
		if label == "" {
			label, _ = pattern.InitialLabel(e.Template)
		}
		node := e.NodeID
		if node == "" || node == pattern.UnknownPattern {
			if n, ok := pattern.ExtractNode(e.RealQuery); ok {
				node = n
			}
		}
		idx[e.RealQuery] = pattern.IndexEntry{
			Template: e.Template,
			Pattern:  e.Pattern,
			NodeID:   node,
			Label:    label,
		}
	}
	return idx
}
