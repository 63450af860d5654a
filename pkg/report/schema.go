// Package report exposes a pipeline result through an in-process GraphQL
// schema so rankings and pools can be inspected with ad-hoc queries.
package report

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-pathbench/pkg/pipeline"
	"github.com/dd0wney/cluso-pathbench/pkg/pool"
	"github.com/dd0wney/cluso-pathbench/pkg/ranking"
)

var scoreType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Score",
	Fields: graphql.Fields{
		"rank":       &graphql.Field{Type: graphql.Int},
		"name":       &graphql.Field{Type: graphql.String},
		"qNumber":    &graphql.Field{Type: graphql.Int},
		"score":      &graphql.Field{Type: graphql.Float},
		"meanTimeMs": &graphql.Field{Type: graphql.Float},
		"hasTiming":  &graphql.Field{Type: graphql.Boolean},
		"samples":    &graphql.Field{Type: graphql.Int},
		"maxPaths":   &graphql.Field{Type: graphql.Int},
		"minPaths":   &graphql.Field{Type: graphql.Int},
	},
})

var entryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "PoolEntry",
	Fields: graphql.Fields{
		"realQuery":     &graphql.Field{Type: graphql.String},
		"pattern":       &graphql.Field{Type: graphql.String},
		"qNumber":       &graphql.Field{Type: graphql.Int},
		"template":      &graphql.Field{Type: graphql.String},
		"nodeId":        &graphql.Field{Type: graphql.String},
		"pathCount":     &graphql.Field{Type: graphql.Int},
		"executions":    &graphql.Field{Type: graphql.Int},
		"meanTimeMs":    &graphql.Field{Type: graphql.Float},
		"stdDevTimeMs":  &graphql.Field{Type: graphql.Float},
		"templateScore": &graphql.Field{Type: graphql.Float},
		"selectionType": &graphql.Field{Type: graphql.String},
	},
})

var shortfallType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Shortfall",
	Fields: graphql.Fields{
		"pattern":   &graphql.Field{Type: graphql.String},
		"qNumber":   &graphql.Field{Type: graphql.Int},
		"requested": &graphql.Field{Type: graphql.Int},
		"selected":  &graphql.Field{Type: graphql.Int},
	},
})

var skippedType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SkippedPattern",
	Fields: graphql.Fields{
		"pattern": &graphql.Field{Type: graphql.String},
		"qNumber": &graphql.Field{Type: graphql.Int},
		"reason":  &graphql.Field{Type: graphql.String},
	},
})

var summaryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Summary",
	Fields: graphql.Fields{
		"runId":            &graphql.Field{Type: graphql.String},
		"fingerprint":      &graphql.Field{Type: graphql.String},
		"scoring":          &graphql.Field{Type: graphql.String},
		"policy":           &graphql.Field{Type: graphql.String},
		"quota":            &graphql.Field{Type: graphql.String},
		"requested":        &graphql.Field{Type: graphql.Int},
		"selected":         &graphql.Field{Type: graphql.Int},
		"skippedTemplates": &graphql.Field{Type: graphql.Int},
		"blocks":           &graphql.Field{Type: graphql.Int},
		"parsed":           &graphql.Field{Type: graphql.Int},
		"repeats":          &graphql.Field{Type: graphql.Int},
		"unranked":         &graphql.Field{Type: graphql.Int},
		"shortfalls":       &graphql.Field{Type: graphql.NewList(shortfallType)},
		"skipped":          &graphql.Field{Type: graphql.NewList(skippedType)},
	},
})

func scoreMap(s ranking.Score) map[string]any {
	return map[string]any{
		"rank":       s.Rank,
		"name":       s.Name,
		"qNumber":    s.QNumber,
		"score":      s.Score,
		"meanTimeMs": s.MeanTimeMs,
		"hasTiming":  s.HasTiming,
		"samples":    s.Samples,
		"maxPaths":   s.MaxPaths,
		"minPaths":   s.MinPaths,
	}
}

func entryMap(e pool.Entry) map[string]any {
	return map[string]any{
		"realQuery":     e.RealQuery,
		"pattern":       e.Pattern,
		"qNumber":       e.QNumber,
		"template":      e.Template,
		"nodeId":        e.NodeID,
		"pathCount":     e.PathCount,
		"executions":    e.Executions,
		"meanTimeMs":    e.MeanTimeMs,
		"stdDevTimeMs":  e.StdDevTimeMs,
		"templateScore": e.TemplateScore,
		"selectionType": string(e.SelectionType),
	}
}

func summaryMap(res *pipeline.Result) map[string]any {
	s := res.Pool.Summary
	shortfalls := make([]any, len(s.Shortfalls))
	for i, sf := range s.Shortfalls {
		shortfalls[i] = map[string]any{
			"pattern": sf.Pattern, "qNumber": sf.QNumber,
			"requested": sf.Requested, "selected": sf.Selected,
		}
	}
	skipped := make([]any, len(s.Skipped))
	for i, sp := range s.Skipped {
		skipped[i] = map[string]any{"pattern": sp.Pattern, "qNumber": sp.QNumber, "reason": sp.Reason}
	}
	return map[string]any{
		"runId":            res.RunID,
		"fingerprint":      res.Fingerprint,
		"scoring":          string(res.Scoring),
		"policy":           string(s.Policy),
		"quota":            res.Quota,
		"requested":        s.Requested,
		"selected":         s.Selected,
		"skippedTemplates": s.SkippedTemplates,
		"blocks":           res.Stats.Blocks,
		"parsed":           res.Stats.Parsed,
		"repeats":          res.Stats.Repeats,
		"unranked":         res.Unranked,
		"shortfalls":       shortfalls,
		"skipped":          skipped,
	}
}

// matches reports whether a row passes the optional pattern and qNumber
// arguments.
func matches(args map[string]any, name string, qnum int) bool {
	if p, ok := args["pattern"].(string); ok && p != name {
		return false
	}
	if q, ok := args["qNumber"].(int); ok && q != qnum {
		return false
	}
	return true
}

func limit(args map[string]any, n int) int {
	if l, ok := args["limit"].(int); ok && l >= 0 && l < n {
		return l
	}
	return n
}

var filterArgs = graphql.FieldConfigArgument{
	"pattern": &graphql.ArgumentConfig{Type: graphql.String},
	"qNumber": &graphql.ArgumentConfig{Type: graphql.Int},
	"limit":   &graphql.ArgumentConfig{Type: graphql.Int},
}

// NewSchema builds a schema whose root fields resolve against res.
func NewSchema(res *pipeline.Result) (graphql.Schema, error) {
	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"summary": &graphql.Field{
				Type: summaryType,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return summaryMap(res), nil
				},
			},
			"pool": &graphql.Field{
				Type: graphql.NewList(entryType),
				Args: filterArgs,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					var out []any
					for _, e := range res.Pool.Entries {
						if matches(p.Args, e.Pattern, e.QNumber) {
							out = append(out, entryMap(e))
						}
					}
					return out[:limit(p.Args, len(out))], nil
				},
			},
			"patterns": &graphql.Field{
				Type: graphql.NewList(scoreType),
				Args: filterArgs,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					var out []any
					for _, s := range res.Rankings.Patterns {
						if matches(p.Args, s.Name, s.QNumber) {
							out = append(out, scoreMap(s))
						}
					}
					return out[:limit(p.Args, len(out))], nil
				},
			},
			"templates": &graphql.Field{
				Type: graphql.NewList(scoreType),
				Args: filterArgs,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					var out []any
					for _, pat := range res.Rankings.Patterns {
						if !matches(p.Args, pat.Name, pat.QNumber) {
							continue
						}
						for _, s := range res.Rankings.TemplatesFor(pat) {
							out = append(out, scoreMap(s))
						}
					}
					return out[:limit(p.Args, len(out))], nil
				},
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: queryType})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create schema: %w", err)
	}
	return schema, nil
}
