package report

import (
	"errors"
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/dd0wney/cluso-pathbench/pkg/pipeline"
)

// ErrQuery is returned when a query fails validation or execution.
var ErrQuery = errors.New("report query failed")

// ExecuteQuery executes a GraphQL query against a schema
func ExecuteQuery(query string, schema graphql.Schema, variables map[string]any) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  query,
		VariableValues: variables,
	})
}

// Query runs query against res and returns the data, or ErrQuery wrapping
// the GraphQL errors.
func Query(res *pipeline.Result, query string, variables map[string]any) (any, error) {
	schema, err := NewSchema(res)
	if err != nil {
		return nil, err
	}
	out := ExecuteQuery(query, schema, variables)
	if out.HasErrors() {
		errs := make([]error, len(out.Errors))
		for i, e := range out.Errors {
			errs[i] = errors.New(e.Message)
		}
		return out.Data, fmt.Errorf("%w: %w", ErrQuery, errors.Join(errs...))
	}
	return out.Data, nil
}
