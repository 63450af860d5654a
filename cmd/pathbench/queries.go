package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-pathbench/pkg/artifact"
	"github.com/dd0wney/cluso-pathbench/pkg/config"
)

func newQueriesCmd(a *app) *cobra.Command {
	var (
		templates, patterns, mappings, nodeRankings, out, index string
		q                                                       quotaFlags
	)

	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Instantiate query templates against mapped start nodes",
		Long: `Bind every template's (x)= start node to the nodes mapped to its initial
edge label, writing one real query per line plus the side index used to
re-attach template metadata when the execution log is parsed.

Examples:
  pathbench queries --templates consultas.txt --patterns patrones.txt --mappings nodos.txt --out queries.txt --index query_info.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.validated(func(c *config.PipelineConfig) {
				q.apply(cmd, c)
				stringFlag(cmd, "templates", templates, &c.Paths.Templates)
				stringFlag(cmd, "patterns", patterns, &c.Paths.Patterns)
				stringFlag(cmd, "mappings", mappings, &c.Paths.Mappings)
				stringFlag(cmd, "index", index, &c.Paths.Index)
			})
			if err != nil {
				return err
			}

			tmpls, err := artifact.LoadTemplates(cfg.Paths.Templates)
			if err != nil {
				return err
			}
			pats, err := artifact.LoadPatterns(cfg.Paths.Patterns, a.logger)
			if err != nil {
				return err
			}
			m, err := a.resolveMappings(cfg, nodeRankings)
			if err != nil {
				return err
			}

			inst := a.runner().Instantiate(cfg, tmpls, pats, m)
			lines := make([]string, len(inst.Queries))
			for i, rq := range inst.Queries {
				lines[i] = rq.Query
			}
			if err := artifact.WriteLines(out, lines); err != nil {
				return err
			}
			if err := artifact.WriteSideIndex(cfg.Paths.Index, inst.Index); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d real queries from %d templates (%d skipped)\n",
				len(inst.Queries), len(tmpls), len(inst.Skipped))
			return nil
		},
	}

	cmd.Flags().StringVar(&templates, "templates", "", "template file (default from config)")
	cmd.Flags().StringVar(&patterns, "patterns", "", "abstract pattern file (default from config)")
	cmd.Flags().StringVar(&mappings, "mappings", "", "label to node mapping file (default from config)")
	cmd.Flags().StringVar(&nodeRankings, "node-rankings", "", "node ranking directory used when the mapping file is missing")
	cmd.Flags().StringVar(&out, "out", "queries.txt", "real query output file")
	cmd.Flags().StringVar(&index, "index", "", "side index output file (default from config)")
	q.register(cmd)
	return cmd
}
