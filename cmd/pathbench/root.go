package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-pathbench/pkg/config"
	"github.com/dd0wney/cluso-pathbench/pkg/logging"
	"github.com/dd0wney/cluso-pathbench/pkg/metrics"
	"github.com/dd0wney/cluso-pathbench/pkg/pipeline"
	"github.com/dd0wney/cluso-pathbench/pkg/validation"
)

// app carries state shared by every subcommand.
type app struct {
	cfgFile     string
	logLevel    string
	metricsFile string

	cfg     config.PipelineConfig
	logger  logging.Logger
	metrics *metrics.Registry
	out     io.Writer
	stderr  io.Writer
}

func newRootCmd(out, stderr io.Writer) *cobra.Command {
	a := &app{out: out, stderr: stderr}

	root := &cobra.Command{
		Use:   "pathbench",
		Short: "Rank graph path queries and select benchmark pools",
		Long: `pathbench builds node rankings from edge lists, instantiates query
templates against the selected nodes, and turns the execution log of those
queries into pattern and template rankings and a bounded query pool.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.metricsFile == "" {
				return nil
			}
			if err := a.metrics.WriteTextfile(a.metricsFile); err != nil {
				return fmt.Errorf("failed to write metrics: %w", err)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (default from config or LOG_LEVEL)")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		newNodesCmd(a),
		newQueriesCmd(a),
		newPoolCmd(a),
		newRankingsCmd(a),
		newInspectCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if a.cfgFile != "" {
		loaded, err := config.Load(a.cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	a.cfg = cfg.Normalize()

	level := validation.DefaultOr(a.logLevel, os.Getenv("LOG_LEVEL"))
	level = validation.DefaultOr(level, a.cfg.LogLevel)
	a.logger = logging.NewJSONLogger(a.stderr, logging.ParseLevel(level))
	logging.SetDefaultLogger(a.logger)

	a.metrics = metrics.NewRegistry()
	if a.metricsFile == "" {
		a.metricsFile = a.cfg.MetricsFile
	}
	return nil
}

// validated applies cmd's changed flags through apply and re-validates.
func (a *app) validated(apply func(*config.PipelineConfig)) (config.PipelineConfig, error) {
	cfg := a.cfg
	apply(&cfg)
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (a *app) runner(opts ...pipeline.Option) *pipeline.Runner {
	return pipeline.New(append([]pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithMetrics(a.metrics),
	}, opts...)...)
}

// quotaFlags are shared by the pool and rankings commands.
type quotaFlags struct {
	aq, tq   string
	rq       int
	perLabel int
	modes    string
}

func (q *quotaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&q.aq, "aq", "*", "abstract patterns to keep (* for all)")
	cmd.Flags().StringVar(&q.tq, "tq", "*", "templates per pattern (* for all)")
	cmd.Flags().IntVar(&q.rq, "rq", 3, "real queries per template")
	cmd.Flags().IntVar(&q.perLabel, "per-label", 0, "nodes selected per label (default: --rq)")
	cmd.Flags().StringVar(&q.modes, "modes", "max", "node selection modes joined by + (max, min, med, .25, .75)")
}

func (q *quotaFlags) apply(cmd *cobra.Command, cfg *config.PipelineConfig) {
	f := cmd.Flags()
	if f.Changed("aq") {
		cfg.Quota.Abstract = q.aq
	}
	if f.Changed("tq") {
		cfg.Quota.Templates = q.tq
	}
	if f.Changed("rq") {
		cfg.Quota.Real = q.rq
	}
	if f.Changed("per-label") {
		cfg.Nodes.PerLabel = q.perLabel
	}
	if f.Changed("modes") {
		cfg.Nodes.Modes = q.modes
	}
}

// stringFlag copies a changed string flag into dst.
func stringFlag(cmd *cobra.Command, name string, val string, dst *string) {
	if cmd.Flags().Changed(name) {
		*dst = val
	}
}
