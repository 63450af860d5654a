package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-pathbench/pkg/artifact"
	"github.com/dd0wney/cluso-pathbench/pkg/cache"
	"github.com/dd0wney/cluso-pathbench/pkg/config"
	"github.com/dd0wney/cluso-pathbench/pkg/export"
	"github.com/dd0wney/cluso-pathbench/pkg/logging"
	"github.com/dd0wney/cluso-pathbench/pkg/logwatch"
	"github.com/dd0wney/cluso-pathbench/pkg/pattern"
	"github.com/dd0wney/cluso-pathbench/pkg/pipeline"
)

// Output file names inside the pool output directory.
const (
	poolTextFile  = "pool.txt"
	poolCSVFile   = "pool.csv"
	poolIndexFile = "pool_index.json"
	resultFile    = "result.json"
)

func newPoolCmd(a *app) *cobra.Command {
	var (
		logPath, index, templates, patterns string
		scoring, policy, outDir             string
		fixedQ, fixedT, fixedR              string
		cacheDir, pgURL, publish            string
		waitStable                          time.Duration
		q                                   quotaFlags
	)

	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Rank patterns and templates from an execution log and select a pool",
		Long: `Aggregate the execution log into one record per distinct query, rank
abstract patterns and their templates, and select the final query pool.

Examples:
  pathbench pool --log result.txt --index query_info.json --patterns patrones.txt --aq 3 --tq '*' --rq 3 --out out/
  pathbench pool --policy fixed --fixed-q 1,2 --fixed-templates 2,2 --fixed-real 3,1 --out out/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var parseErr error
			cfg, err := a.validated(func(c *config.PipelineConfig) {
				q.apply(cmd, c)
				stringFlag(cmd, "log", logPath, &c.Paths.Log)
				stringFlag(cmd, "index", index, &c.Paths.Index)
				stringFlag(cmd, "templates", templates, &c.Paths.Templates)
				stringFlag(cmd, "patterns", patterns, &c.Paths.Patterns)
				stringFlag(cmd, "scoring", scoring, &c.Scoring)
				stringFlag(cmd, "policy", policy, &c.Selection)
				stringFlag(cmd, "out", outDir, &c.Paths.Output)
				stringFlag(cmd, "cache-dir", cacheDir, &c.CacheDir)
				stringFlag(cmd, "pg-url", pgURL, &c.PostgresURL)
				stringFlag(cmd, "publish", publish, &c.Publish.URL)
				if cmd.Flags().Changed("wait-stable") {
					c.WaitStable = waitStable
				}
				for _, f := range []struct {
					name string
					val  string
					dst  *[]int
				}{
					{"fixed-q", fixedQ, &c.Fixed.QNumbers},
					{"fixed-templates", fixedT, &c.Fixed.Templates},
					{"fixed-real", fixedR, &c.Fixed.Real},
				} {
					if !cmd.Flags().Changed(f.name) {
						continue
					}
					list, err := config.ParseIntList(f.val)
					if err != nil {
						parseErr = fmt.Errorf("--%s: %w", f.name, err)
					}
					*f.dst = list
				}
			})
			if parseErr != nil {
				return parseErr
			}
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.runPool(ctx, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&logPath, "log", "", "execution log (default from config)")
	f.StringVar(&index, "index", "", "side index written by the queries command (default from config)")
	f.StringVar(&templates, "templates", "", "template file; reassigns patterns when present")
	f.StringVar(&patterns, "patterns", "", "abstract pattern file (default from config)")
	f.StringVar(&scoring, "scoring", "mean-paths", "scoring policy: mean-paths or max-median")
	f.StringVar(&policy, "policy", "selective", "selection policy: selective or fixed")
	f.StringVar(&fixedQ, "fixed-q", "", "fixed policy: comma separated Q numbers")
	f.StringVar(&fixedT, "fixed-templates", "", "fixed policy: templates per Q number")
	f.StringVar(&fixedR, "fixed-real", "", "fixed policy: real queries per template")
	f.StringVar(&outDir, "out", "", "output directory (default from config)")
	f.StringVar(&cacheDir, "cache-dir", "", "reuse results of identical earlier runs from this directory")
	f.StringVar(&pgURL, "pg-url", "", "also store the pool and rankings in this PostgreSQL database")
	f.StringVar(&publish, "publish", "", "upload the output directory to this s3://bucket/prefix")
	f.DurationVar(&waitStable, "wait-stable", 0, "wait until the log has not changed for this long before reading it")
	q.register(cmd)
	return cmd
}

// loadOptional loads an input that a run can do without, logging a warning
// when it is missing.
func loadOptional[T any](a *app, what string, load func() (T, error)) (T, error) {
	v, err := load()
	if artifact.IsMissing(err) {
		a.logger.Warn(what+" not found, continuing without it", logging.Error(err))
		var zero T
		return zero, nil
	}
	return v, err
}

func (a *app) runPool(ctx context.Context, cfg config.PipelineConfig) error {
	if cfg.WaitStable > 0 {
		if _, err := logwatch.New(logwatch.WithQuiet(cfg.WaitStable), logwatch.WithLogger(a.logger)).
			Wait(ctx, cfg.Paths.Log); err != nil {
			return fmt.Errorf("waiting for %s: %w", cfg.Paths.Log, err)
		}
	}

	raw, err := artifact.ReadLog(cfg.Paths.Log)
	if err != nil {
		return err
	}
	idx, err := artifact.LoadSideIndex(cfg.Paths.Index)
	if err != nil {
		return err
	}
	pats, err := loadOptional(a, "pattern file", func() ([]pattern.Abstract, error) {
		return artifact.LoadPatterns(cfg.Paths.Patterns, a.logger)
	})
	if err != nil {
		return err
	}
	tmpls, err := loadOptional(a, "template file", func() ([]string, error) {
		return artifact.LoadTemplates(cfg.Paths.Templates)
	})
	if err != nil {
		return err
	}

	var opts []pipeline.Option
	if cfg.CacheDir != "" {
		c, err := cache.New(cfg.CacheDir, cfg.CacheSize, cache.WithLogger(a.logger), cache.WithMetrics(a.metrics))
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithCache(c))
	}

	res, err := a.runner(opts...).Run(ctx, cfg, pipeline.Inputs{
		Log:       raw,
		Templates: tmpls,
		Patterns:  pats,
		Index:     idx,
	})
	if err != nil {
		return err
	}

	out := cfg.Paths.Output
	if err := artifact.WritePoolText(filepath.Join(out, poolTextFile), &res.Pool); err != nil {
		return err
	}
	if err := export.WritePoolFile(filepath.Join(out, poolCSVFile), &res.Pool); err != nil {
		return err
	}
	if err := artifact.WriteSideIndex(filepath.Join(out, poolIndexFile), res.Pool.SideIndex()); err != nil {
		return err
	}
	if err := export.WriteRankings(out, res.Rankings); err != nil {
		return err
	}
	if err := artifact.WriteJSON(filepath.Join(out, resultFile), res); err != nil {
		return err
	}

	if cfg.PostgresURL != "" {
		if err := a.storePG(ctx, cfg.PostgresURL, res); err != nil {
			return err
		}
	}

	if cfg.Publish.URL != "" {
		pub, err := export.NewS3Publisher(ctx, cfg.Publish.URL, export.S3Options{
			Region:    cfg.Publish.Region,
			Endpoint:  cfg.Publish.Endpoint,
			AccessKey: cfg.Publish.AccessKey,
			SecretKey: cfg.Publish.SecretKey,
			Logger:    a.logger,
		})
		if err != nil {
			return err
		}
		if _, err := pub.PublishDir(ctx, out); err != nil {
			return err
		}
	}

	a.logger.Info("pool run written", logging.RunID(res.RunID), logging.Path(out),
		logging.Bool("cached", res.Cached))
	s := res.Pool.Summary
	fmt.Fprintf(a.out, "run %s: %d patterns ranked, %d/%d queries selected (%s), %d shortfalls\n",
		res.RunID, len(res.Rankings.Patterns), s.Selected, s.Requested, s.Policy, len(s.Shortfalls))
	return nil
}

func (a *app) storePG(ctx context.Context, url string, res *pipeline.Result) error {
	sink, err := export.NewPGSink(ctx, url)
	if err != nil {
		return err
	}
	defer sink.Close()

	n, err := sink.WritePool(ctx, &res.Pool)
	if err != nil {
		return err
	}
	m, err := sink.WriteRankings(ctx, res.RunID, res.Rankings)
	if err != nil {
		return err
	}
	a.logger.Info("stored in postgres", logging.RunID(res.RunID),
		logging.Int("pool_rows", int(n)), logging.Int("ranking_rows", int(m)))
	return nil
}
