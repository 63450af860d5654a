package pipeline

import (
	"time"

	"github.com/dd0wney/cluso-pathbench/pkg/config"
	"github.com/dd0wney/cluso-pathbench/pkg/logging"
	"github.com/dd0wney/cluso-pathbench/pkg/noderank"
	"github.com/dd0wney/cluso-pathbench/pkg/pattern"
	"github.com/dd0wney/cluso-pathbench/pkg/pool"
	"github.com/dd0wney/cluso-pathbench/pkg/ranking"
)

// NodeMappings selects start nodes for every label of rankings using the
// configured modes and nodes-per-label. edges is the number of observations
// rankings was built from, 0 when it was loaded from ranking files.
func (r *Runner) NodeMappings(cfg config.PipelineConfig, rankings *noderank.Rankings, edges int) (noderank.Mappings, map[string][]noderank.ModeSelection) {
	var (
		m   noderank.Mappings
		sel map[string][]noderank.ModeSelection
	)
	modes := cfg.Modes()
	_ = r.stage(StageNodes, r.logger, func() error {
		m, sel = noderank.SelectAll(rankings, modes, cfg.PerLabel())
		return nil
	})

	perMode := make(map[string]int, len(modes))
	for _, label := range rankings.Labels {
		for _, s := range sel[label] {
			perMode[string(s.Mode)] += len(s.Nodes)
		}
		if _, ok := m[label]; !ok {
			r.logger.Debug("no nodes selected", logging.Label(label))
		}
	}
	r.metrics.RecordNodeRankings(edges, len(rankings.Labels), perMode)
	return m, sel
}

// Instantiate binds templates to mapped nodes and builds the side index the
// aggregation of the resulting log needs.
func (r *Runner) Instantiate(cfg config.PipelineConfig, templates []string, patterns []pattern.Abstract, mappings noderank.Mappings) pattern.Instantiation {
	var inst pattern.Instantiation
	_ = r.stage(StageInstantiate, r.logger, func() error {
		assign := pattern.AssignQueries(templates, patterns)
		inst = pattern.Instantiate(templates, assign, pattern.AssignQNumbers(patterns), mappings, cfg.PerLabel())
		return nil
	})

	skipped := make(map[string]int)
	for _, s := range inst.Skipped {
		skipped[string(s.Reason)]++
		r.logger.Warn("template skipped", logging.Template(s.Template),
			logging.Label(s.Label), logging.String("reason", string(s.Reason)))
	}
	r.metrics.RecordInstantiation(len(inst.Queries), skipped)
	r.logger.Info("real queries generated",
		logging.Int("templates", len(templates)),
		logging.Int("queries", len(inst.Queries)),
		logging.Int("skipped", len(inst.Skipped)))
	return inst
}

// FromRankings builds a pool from exported rankings without an execution
// log.
func (r *Runner) FromRankings(cfg config.PipelineConfig, patterns []ranking.Score, templates map[int][]ranking.Score, mappings noderank.Mappings) pool.Pool {
	runID := r.newID()
	log := r.logger.With(logging.RunID(runID))
	r.metrics.SetRunInfo(runID, cfg.Scoring, string(pool.Rankings), time.Now())

	var p pool.Pool
	_ = r.stage(StageSelect, log, func() error {
		p = pool.FromRankings(patterns, templates, mappings, cfg.PoolQuota())
		return nil
	})
	p.Summary.RunID = runID
	r.metrics.RecordPool(string(pool.Rankings), len(p.Entries), len(p.Summary.Shortfalls), len(p.Summary.Skipped))
	for _, s := range p.Summary.Skipped {
		log.Warn("pattern skipped", logging.Pattern(s.Pattern), logging.QNumber(s.QNumber), logging.String("reason", s.Reason))
	}
	log.Info("pool built from rankings",
		logging.Int("requested", p.Summary.Requested),
		logging.Int("selected", p.Summary.Selected),
		logging.Int("skipped_templates", p.Summary.SkippedTemplates))
	return p
}
