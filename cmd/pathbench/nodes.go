package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-pathbench/pkg/artifact"
	"github.com/dd0wney/cluso-pathbench/pkg/config"
	"github.com/dd0wney/cluso-pathbench/pkg/logging"
	"github.com/dd0wney/cluso-pathbench/pkg/noderank"
)

func newNodesCmd(a *app) *cobra.Command {
	var (
		edges, outDir, mappingsPath string
		q                           quotaFlags
	)

	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "Rank start nodes per relation label from an edge list",
		Long: `Count outgoing edges per origin node for every relation label, write one
ranking file per label, and select start nodes with the configured modes.

Examples:
  pathbench nodes --edges edges.txt --out rankings/01/rankingsNodes --modes max+med --per-label 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.validated(func(c *config.PipelineConfig) {
				q.apply(cmd, c)
				stringFlag(cmd, "edges", edges, &c.Paths.Edges)
				stringFlag(cmd, "mappings", mappingsPath, &c.Paths.Mappings)
			})
			if err != nil {
				return err
			}
			if cfg.Paths.Edges == "" {
				return fmt.Errorf("%w: an edge file is required (--edges)", config.ErrInvalidConfig)
			}

			rankings, stats, err := artifact.LoadEdges(cfg.Paths.Edges, a.logger)
			if err != nil {
				return err
			}
			mappings, selections := a.runner().NodeMappings(cfg, rankings, stats.Edges)

			for _, label := range rankings.Labels {
				nr := rankings.ByLabel[label]
				if err := artifact.WriteNodeRanking(outDir, nr, selections[label], filepath.Base(cfg.Paths.Edges)); err != nil {
					return err
				}
			}
			if err := artifact.WriteMappings(cfg.Paths.Mappings, mappings, cfg.Modes(), cfg.PerLabel()); err != nil {
				return err
			}

			a.logger.Info("node rankings written",
				logging.Path(outDir),
				logging.Int("edges", stats.Edges),
				logging.Int("skipped_lines", stats.Skipped),
				logging.Int("labels", len(rankings.Labels)))
			fmt.Fprintf(a.out, "%d edges, %d labels, %d mapped (modes %s, %d per label)\n",
				stats.Edges, len(rankings.Labels), len(mappings),
				noderank.FormatModes(cfg.Modes()), cfg.PerLabel())
			return nil
		},
	}

	cmd.Flags().StringVar(&edges, "edges", "", "edge list: origin,relation,target per line")
	cmd.Flags().StringVar(&outDir, "out", "rankingsNodes", "directory for per-label ranking files")
	cmd.Flags().StringVar(&mappingsPath, "mappings", "nodos.txt", "label to node mapping file to write")
	q.register(cmd)
	return cmd
}

// resolveMappings loads the label to node mappings from a mapping file,
// falling back to selecting from a node ranking directory and finally to
// the built-in defaults.
func (a *app) resolveMappings(cfg config.PipelineConfig, rankingsDir string) (noderank.Mappings, error) {
	if cfg.Paths.Mappings != "" {
		m, err := artifact.LoadMappings(cfg.Paths.Mappings)
		if err == nil {
			return m, nil
		}
		if !artifact.IsMissing(err) {
			return nil, err
		}
		a.logger.Warn("mapping file not found", logging.Path(cfg.Paths.Mappings))
	}
	if rankingsDir != "" {
		r, err := artifact.LoadNodeRankings(rankingsDir)
		if err == nil {
			m, _ := a.runner().NodeMappings(cfg, r, 0)
			return m, nil
		}
		if !artifact.IsMissing(err) {
			return nil, err
		}
		a.logger.Warn("node ranking directory not found", logging.Path(rankingsDir))
	}
	a.logger.Warn("using default node mappings")
	return noderank.DefaultMappings(), nil
}
