package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-pathbench/pkg/artifact"
	"github.com/dd0wney/cluso-pathbench/pkg/pipeline"
	"github.com/dd0wney/cluso-pathbench/pkg/report"
)

const defaultInspectQuery = `{
  summary { runId scoring policy quota requested selected unranked
            shortfalls { pattern qNumber requested selected } }
  patterns { rank name qNumber score meanTimeMs samples }
}`

func newInspectCmd(a *app) *cobra.Command {
	var resultPath, query, varsJSON string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Query a saved run result with GraphQL",
		Long: `Load result.json written by the pool command and run a GraphQL query over
its summary, pattern and template rankings, and pool.

Examples:
  pathbench inspect --result out/result.json --query '{ pool(pattern: "P1") { realQuery pathCount } }'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if resultPath == "" {
				resultPath = filepath.Join(a.cfg.Paths.Output, resultFile)
			}
			var res pipeline.Result
			if err := artifact.ReadJSON("run result", resultPath, &res); err != nil {
				return err
			}

			var vars map[string]any
			if varsJSON != "" {
				if err := json.Unmarshal([]byte(varsJSON), &vars); err != nil {
					return fmt.Errorf("--vars: %w", err)
				}
			}

			data, err := report.Query(&res, query, vars)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(data)
		},
	}

	cmd.Flags().StringVar(&resultPath, "result", "", "result file (default <output>/result.json)")
	cmd.Flags().StringVar(&query, "query", defaultInspectQuery, "GraphQL query")
	cmd.Flags().StringVar(&varsJSON, "vars", "", "query variables as a JSON object")
	return cmd
}
