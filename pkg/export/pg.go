package export

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/cluso-pathbench/pkg/pool"
	"github.com/dd0wney/cluso-pathbench/pkg/ranking"
)

// DB is the subset of *pgxpool.Pool the sink uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, rows pgx.CopyFromSource) (int64, error)
}

// PGSink stores pools and rankings in PostgreSQL, one set of rows per run.
type PGSink struct {
	db   DB
	pool *pgxpool.Pool // nil when built over a caller-supplied DB
}

// NewPGSink connects to databaseURL and creates the tables if needed.
func NewPGSink(ctx context.Context, databaseURL string) (*PGSink, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 4
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	p, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &PGSink{db: p, pool: p}
	if err := s.Migrate(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

// NewPGSinkWithDB wraps an existing connection. The caller owns db.
func NewPGSinkWithDB(db DB) *PGSink {
	return &PGSink{db: db}
}

// Close closes the connection pool opened by NewPGSink.
func (s *PGSink) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schema = `
	CREATE TABLE IF NOT EXISTS pathbench_pool (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		real_query TEXT NOT NULL,
		pattern TEXT NOT NULL,
		q_number INTEGER NOT NULL,
		template TEXT NOT NULL,
		node_id TEXT,
		path_count INTEGER NOT NULL,
		mean_time_ms DOUBLE PRECISION,
		stddev_time_ms DOUBLE PRECISION,
		selection_type TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	);

	CREATE TABLE IF NOT EXISTS pathbench_ranking (
		run_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		pattern TEXT NOT NULL,
		rank INTEGER NOT NULL,
		name TEXT NOT NULL,
		q_number INTEGER,
		score DOUBLE PRECISION NOT NULL,
		mean_time_ms DOUBLE PRECISION,
		samples INTEGER NOT NULL,
		max_paths INTEGER NOT NULL,
		min_paths INTEGER NOT NULL,
		PRIMARY KEY (run_id, kind, pattern, rank)
	);

	CREATE INDEX IF NOT EXISTS idx_pathbench_pool_pattern ON pathbench_pool(run_id, pattern);
	`

// Migrate creates the sink tables.
func (s *PGSink) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

var (
	poolColumns    = []string{"run_id", "position", "real_query", "pattern", "q_number", "template", "node_id", "path_count", "mean_time_ms", "stddev_time_ms", "selection_type"}
	rankingColumns = []string{"run_id", "kind", "pattern", "rank", "name", "q_number", "score", "mean_time_ms", "samples", "max_paths", "min_paths"}
)

// WritePool replaces the stored pool of p's run.
func (s *PGSink) WritePool(ctx context.Context, p *pool.Pool) (int64, error) {
	runID := p.Summary.RunID
	if _, err := s.db.Exec(ctx, `DELETE FROM pathbench_pool WHERE run_id = $1`, runID); err != nil {
		return 0, fmt.Errorf("failed to clear pool: %w", err)
	}

	rows := make([][]any, len(p.Entries))
	for i, e := range p.Entries {
		rows[i] = []any{
			runID, i + 1, e.RealQuery, e.Pattern, e.QNumber, e.Template, e.NodeID,
			e.PathCount, e.MeanTimeMs, e.StdDevTimeMs, string(e.SelectionType),
		}
	}
	n, err := s.db.CopyFrom(ctx, pgx.Identifier{"pathbench_pool"}, poolColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("failed to copy pool: %w", err)
	}
	return n, nil
}

func rankingRow(runID, kind, pattern string, sc ranking.Score) []any {
	var mean any
	if sc.HasTiming {
		mean = sc.MeanTimeMs
	}
	var q any
	if sc.QNumber > 0 {
		q = sc.QNumber
	}
	return []any{runID, kind, pattern, sc.Rank, sc.Name, q, sc.Score, mean, sc.Samples, sc.MaxPaths, sc.MinPaths}
}

// WriteRankings replaces the stored pattern and template rankings of runID.
func (s *PGSink) WriteRankings(ctx context.Context, runID string, r ranking.Rankings) (int64, error) {
	if _, err := s.db.Exec(ctx, `DELETE FROM pathbench_ranking WHERE run_id = $1`, runID); err != nil {
		return 0, fmt.Errorf("failed to clear rankings: %w", err)
	}

	var rows [][]any
	for _, p := range r.Patterns {
		rows = append(rows, rankingRow(runID, "pattern", p.Name, p))
		for _, t := range r.TemplatesFor(p) {
			rows = append(rows, rankingRow(runID, "template", p.Name, t))
		}
	}
	n, err := s.db.CopyFrom(ctx, pgx.Identifier{"pathbench_ranking"}, rankingColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("failed to copy rankings: %w", err)
	}
	return n, nil
}
