package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-pathbench/pkg/artifact"
	"github.com/dd0wney/cluso-pathbench/pkg/config"
	"github.com/dd0wney/cluso-pathbench/pkg/export"
	"github.com/dd0wney/cluso-pathbench/pkg/logging"
	"github.com/dd0wney/cluso-pathbench/pkg/noderank"
)

func newRankingsCmd(a *app) *cobra.Command {
	var (
		dir, mappings, nodeRankings, outDir string
		q                                   quotaFlags
	)

	cmd := &cobra.Command{
		Use:   "rankings",
		Short: "Build a pool from previously exported rankings",
		Long: `Reuse rankingAbstract.csv and rankingTemplates/Q<n>.csv from an earlier run:
take the top patterns and templates under the quota and bind each template to
the first mapped nodes of its initial label. No execution log is needed.

Start nodes come from <dir>/rankingsNodes unless --mappings is given.

Examples:
  pathbench rankings --dir rankings/01 --aq 2 --tq 1 --rq 4 --out out/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.validated(func(c *config.PipelineConfig) {
				q.apply(cmd, c)
				stringFlag(cmd, "mappings", mappings, &c.Paths.Mappings)
				stringFlag(cmd, "dir", dir, &c.Paths.RankingsDir)
				stringFlag(cmd, "out", outDir, &c.Paths.Output)
			})
			if err != nil {
				return err
			}
			if cfg.Paths.RankingsDir == "" {
				return fmt.Errorf("%w: a rankings directory is required (--dir)", config.ErrInvalidConfig)
			}

			patterns, templates, err := export.LoadRankings(cfg.Paths.RankingsDir)
			if err != nil {
				return err
			}
			if nodeRankings == "" {
				nodeRankings = filepath.Join(cfg.Paths.RankingsDir, "rankingsNodes")
			}
			m, err := a.rankingMappings(cfg, nodeRankings, cmd.Flags().Changed("mappings"))
			if err != nil {
				return err
			}

			p := a.runner().FromRankings(cfg, patterns, templates, m)
			out := cfg.Paths.Output
			if err := artifact.WritePoolText(filepath.Join(out, poolTextFile), &p); err != nil {
				return err
			}
			if err := export.WritePoolFile(filepath.Join(out, poolCSVFile), &p); err != nil {
				return err
			}
			if err := artifact.WriteSideIndex(filepath.Join(out, poolIndexFile), p.SideIndex()); err != nil {
				return err
			}
			if err := artifact.WriteJSON(filepath.Join(out, "pool.json"), p); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "%d/%d queries selected from rankings (%d templates skipped)\n",
				p.Summary.Selected, p.Summary.Requested, p.Summary.SkippedTemplates)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "rankings directory holding rankingAbstract.csv")
	cmd.Flags().StringVar(&mappings, "mappings", "", "label to node mapping file used instead of the node rankings")
	cmd.Flags().StringVar(&nodeRankings, "node-rankings", "", "node ranking directory (default <dir>/rankingsNodes)")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (default from config)")
	q.register(cmd)
	return cmd
}

// rankingMappings selects start nodes from the node ranking directory that
// belongs to the exported rankings. An explicit mapping file wins; without
// one the configured mapping file is only a fallback for a missing
// directory.
func (a *app) rankingMappings(cfg config.PipelineConfig, dir string, explicit bool) (noderank.Mappings, error) {
	if explicit {
		return a.resolveMappings(cfg, dir)
	}
	r, err := artifact.LoadNodeRankings(dir)
	if err == nil {
		m, _ := a.runner().NodeMappings(cfg, r, 0)
		return m, nil
	}
	if !artifact.IsMissing(err) {
		return nil, err
	}
	a.logger.Warn("node ranking directory not found", logging.Path(dir))
	return a.resolveMappings(cfg, "")
}
