package pipeline

import (
	"maps"
	"slices"
	"strconv"

	"github.com/dd0wney/cluso-pathbench/pkg/cache"
	"github.com/dd0wney/cluso-pathbench/pkg/config"
)

// Fingerprint identifies a run by everything that affects its output.
// Paths, cache and logging settings are not part of it.
func Fingerprint(cfg config.PipelineConfig, in Inputs) cache.Fingerprint {
	h := cache.NewHasher().
		Text("log", in.Log).
		Strings("templates", in.Templates)

	for _, p := range in.Patterns {
		h.Text("pattern", p.Name).Text("expected", strconv.Itoa(p.ExpectedCount))
	}

	keys := slices.Sorted(maps.Keys(in.Index))
	for _, k := range keys {
		e := in.Index[k]
		h.Strings("index", []string{k, e.Template, e.Pattern, e.NodeID, e.Label})
	}

	q := cfg.PoolQuota()
	h.Text("scoring", string(cfg.ScoringPolicy())).
		Text("selection", string(cfg.SelectionType())).
		Text("quota", q.String())

	fixed := cfg.FixedQuotas()
	for _, qn := range slices.Sorted(maps.Keys(fixed)) {
		f := fixed[qn]
		h.Strings("fixed", []string{strconv.Itoa(qn), strconv.Itoa(f.Templates), strconv.Itoa(f.Real)})
	}
	return h.Sum()
}
