package fixture

import (
	"context"
	"fmt"
	"slices"

	"github.com/afoeder/typo3cr/internal/node"
	"github.com/afoeder/typo3cr/internal/qom"
	"github.com/afoeder/typo3cr/internal/query"
	"github.com/afoeder/typo3cr/internal/storage"
)

// QueryResult is the outcome of one fixture query.
type QueryResult struct {
	Name   string   `json:"name"`
	Expect []string `json:"expect"`
	Got    []string `json:"got"`
	Error  string   `json:"error,omitempty"`
}

// Passed reports whether the query ran and returned exactly the expected
// identifiers in order.
func (r QueryResult) Passed() bool {
	return r.Error == "" && slices.Equal(r.Expect, r.Got)
}

// Verify runs every query of fx against the active workspace of b. Filters
// qualify bare property names with the prefix of the queried node type.
//
// A query that fails is reported in its result; Verify itself fails only when
// the context is done.
func Verify(ctx context.Context, b storage.Backend, fx *Fixture) ([]QueryResult, error) {
	results := make([]QueryResult, 0, len(fx.Queries))
	for _, q := range fx.Queries {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r := QueryResult{Name: q.Name, Expect: q.Expect}
		got, err := run(ctx, b, q)
		if err != nil {
			r.Error = err.Error()
		}
		r.Got = got
		results = append(results, r)
	}
	return results, nil
}

func run(ctx context.Context, b storage.Backend, spec QuerySpec) ([]string, error) {
	prefix, _ := node.SplitName(spec.Type)
	constraint, err := qom.ParseFilter(spec.Where, prefix)
	if err != nil {
		return nil, fmt.Errorf("parse where: %w", err)
	}
	q, err := query.New(b, qom.Selector{NodeTypeName: spec.Type}, constraint)
	if err != nil {
		return nil, err
	}
	if spec.Limit > 0 {
		if err := q.SetLimit(spec.Limit); err != nil {
			return nil, err
		}
	}
	if err := q.SetOffset(spec.Offset); err != nil {
		return nil, err
	}
	res, err := q.Execute(ctx)
	if err != nil {
		return nil, err
	}
	return res.Identifiers(), nil
}
