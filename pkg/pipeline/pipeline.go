// Package pipeline wires the stages of a benchmark run together: pattern
// assignment, log aggregation, ranking and pool selection.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-pathbench/pkg/aggregate"
	"github.com/dd0wney/cluso-pathbench/pkg/cache"
	"github.com/dd0wney/cluso-pathbench/pkg/config"
	"github.com/dd0wney/cluso-pathbench/pkg/logging"
	"github.com/dd0wney/cluso-pathbench/pkg/metrics"
	"github.com/dd0wney/cluso-pathbench/pkg/pattern"
	"github.com/dd0wney/cluso-pathbench/pkg/pool"
	"github.com/dd0wney/cluso-pathbench/pkg/ranking"
)

// Stage names, used in logs and the stage metrics.
const (
	StageAssign      = "assign"
	StageAggregate   = "aggregate"
	StageRank        = "rank"
	StageSelect      = "select"
	StageInstantiate = "instantiate"
	StageNodes       = "nodes"
)

// Inputs are the artifacts a run reads. Templates and Patterns may be empty
// when the side index already carries pattern names.
type Inputs struct {
	Log       string
	Templates []string
	Patterns  []pattern.Abstract
	Index     pattern.SideIndex
}

// Result is everything a run produces.
type Result struct {
	RunID       string                `json:"run_id"`
	Fingerprint string                `json:"fingerprint"`
	Scoring     ranking.ScoringPolicy `json:"scoring"`
	Selection   pool.SelectionType    `json:"selection"`
	Quota       string                `json:"quota,omitempty"`
	Stats       aggregate.Stats       `json:"stats"`
	// Unranked counts records dropped before ranking because their query
	// was not in the side index.
	Unranked int                `json:"unranked"`
	Table    []aggregate.Record `json:"table"`
	Rankings ranking.Rankings   `json:"rankings"`
	Pool     pool.Pool          `json:"pool"`
	Cached   bool               `json:"-"`
}

// Runner executes runs. The zero value is not usable; call New.
type Runner struct {
	logger  logging.Logger
	metrics *metrics.Registry
	cache   *cache.Cache
	newID   func() string
}

// Option configures a Runner.
type Option func(*Runner)

func WithLogger(l logging.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

func WithMetrics(m *metrics.Registry) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithCache reuses results of earlier runs over identical inputs.
func WithCache(c *cache.Cache) Option {
	return func(r *Runner) { r.cache = c }
}

// WithRunID overrides run id generation.
func WithRunID(fn func() string) Option {
	return func(r *Runner) { r.newID = fn }
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{newID: uuid.NewString}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrDefault(r.logger).With(logging.Component("pipeline"))
	return r
}

// Run is New().Run with default options.
func Run(ctx context.Context, cfg config.PipelineConfig, in Inputs) (*Result, error) {
	return New().Run(ctx, cfg, in)
}

func (r *Runner) stage(name string, log logging.Logger, fn func() error) error {
	timer := logging.StartTimer(log, "stage complete", logging.Stage(name))
	err := fn()
	var elapsed time.Duration
	if err != nil {
		elapsed = timer.EndError(err)
	} else {
		elapsed = timer.End()
	}
	r.metrics.RecordStage(name, err, elapsed)
	return err
}

// Run aggregates the log, ranks patterns and templates, and selects the
// pool. The output depends only on cfg and in, apart from RunID.
func (r *Runner) Run(ctx context.Context, cfg config.PipelineConfig, in Inputs) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runID := r.newID()
	log := r.logger.With(logging.RunID(runID))
	r.metrics.SetRunInfo(runID, cfg.Scoring, cfg.Selection, time.Now())

	fp := Fingerprint(cfg, in)
	if r.cache != nil {
		var cached Result
		if r.cache.GetJSON(fp, &cached) {
			log.Info("reusing cached result", logging.String("fingerprint", fp.String()))
			cached.RunID = runID
			cached.Pool.Summary.RunID = runID
			cached.Cached = true
			return &cached, nil
		}
	}

	res := &Result{
		RunID:       runID,
		Fingerprint: fp.String(),
		Scoring:     cfg.ScoringPolicy(),
		Selection:   cfg.SelectionType(),
	}

	var index pattern.SideIndex
	var qnums map[string]int
	_ = r.stage(StageAssign, log, func() error {
		index, qnums = Assign(in)
		return nil
	})

	var agg aggregate.Result
	_ = r.stage(StageAggregate, log, func() error {
		agg = aggregate.New(aggregate.WithLogger(log), aggregate.WithMetrics(r.metrics)).
			Aggregate(in.Log, index, qnums)
		return nil
	})
	res.Stats = agg.Stats

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_ = r.stage(StageRank, log, func() error {
		table := aggregate.Table(agg.Records)
		res.Table = make([]aggregate.Record, 0, len(table))
		for _, rec := range table {
			if rec.Pattern == pattern.UnknownPattern {
				res.Unranked++
				continue
			}
			res.Table = append(res.Table, rec)
		}
		if res.Unranked > 0 {
			log.Warn("records without side index entry left out of rankings", logging.Count(res.Unranked))
		}
		res.Rankings = ranking.RankAll(res.Table, res.Scoring)
		r.metrics.RecordRanking("pattern", len(res.Rankings.Patterns))
		templates := 0
		for _, rows := range res.Rankings.Templates {
			templates += len(rows)
		}
		r.metrics.RecordRanking("template", templates)
		return nil
	})

	err := r.stage(StageSelect, log, func() error {
		switch res.Selection {
		case pool.Selective:
			q := cfg.PoolQuota()
			res.Quota = q.String()
			res.Pool = pool.SelectQuota(res.Rankings, q)
		case pool.Fixed:
			res.Quota = fmt.Sprintf("fixed=%v", cfg.FixedQuotas())
			res.Pool = pool.SelectFixed(res.Rankings, cfg.FixedQuotas())
		default:
			return fmt.Errorf("%w: selection %q needs a rankings directory", config.ErrInvalidConfig, res.Selection)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Pool.Summary.RunID = runID
	r.metrics.RecordPool(string(res.Pool.Summary.Policy), len(res.Pool.Entries),
		len(res.Pool.Summary.Shortfalls), len(res.Pool.Summary.Skipped))

	for _, s := range res.Pool.Summary.Shortfalls {
		log.Warn("quota not met", logging.Pattern(s.Pattern), logging.QNumber(s.QNumber),
			logging.Int("requested", s.Requested), logging.Int("selected", s.Selected))
	}
	for _, s := range res.Pool.Summary.Skipped {
		log.Warn("pattern skipped", logging.Pattern(s.Pattern), logging.QNumber(s.QNumber),
			logging.String("reason", s.Reason))
	}
	log.Info("pool selected",
		logging.String("policy", string(res.Pool.Summary.Policy)),
		logging.Int("requested", res.Pool.Summary.Requested),
		logging.Int("selected", res.Pool.Summary.Selected))

	if r.cache != nil {
		if err := r.cache.PutJSON(fp, res); err != nil {
			log.Warn("failed to cache result", logging.Error(err))
		}
	}
	return res, nil
}

// Assign returns the side index with pattern names taken from the template
// assignment, and the Q number of every declared pattern. Index entries
// whose template is not in the template list keep their recorded pattern.
// Without both templates and patterns the index is returned as recorded.
func Assign(in Inputs) (pattern.SideIndex, map[string]int) {
	qnums := pattern.AssignQNumbers(in.Patterns)
	if len(in.Templates) == 0 || len(in.Patterns) == 0 {
		return in.Index, qnums
	}
	assign := pattern.AssignQueries(in.Templates, in.Patterns)
	index := make(pattern.SideIndex, len(in.Index))
	for q, e := range in.Index {
		if name, ok := assign[e.Template]; ok {
			e.Pattern = name
		}
		index[q] = e
	}
	return index, qnums
}
