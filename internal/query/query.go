// Package query executes QOM trees against a storage backend.
//
// A Query carries the immutable QOM tree plus the result shaping set at build
// time. Execute asks the backend for matching identifiers and returns them
// with a lazy node iterator; nodes are only loaded, and objects only mapped,
// when the caller pulls them.
package query

import (
	"context"
	"maps"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/node"
	"github.com/afoeder/typo3cr/internal/qom"
	"github.com/afoeder/typo3cr/internal/storage"
)

// Language is the language tag of queries built from QOM trees.
const Language = "JCR-JQOM"

// Query is an executable QOM query.
type Query struct {
	backend    storage.Backend
	source     qom.Source
	constraint qom.Constraint
	limit      int
	offset     int
	bindValues map[string]qom.Literal
}

// New creates a query over source filtered by constraint (nil matches all).
func New(backend storage.Backend, source qom.Source, constraint qom.Constraint) (*Query, error) {
	if backend == nil {
		return nil, crerr.InvalidArgument("query requires a backend")
	}
	if err := qom.Validate(source, constraint); err != nil {
		return nil, err
	}
	return &Query{
		backend:    backend,
		source:     source,
		constraint: constraint,
		bindValues: make(map[string]qom.Literal),
	}, nil
}

// SetLimit sets the maximum number of results. n must be positive.
func (q *Query) SetLimit(n int) error {
	if n < 1 {
		return crerr.InvalidArgument("limit must be a positive integer, got %d", n)
	}
	q.limit = n
	return nil
}

// SetOffset sets the number of results to skip. n must not be negative.
func (q *Query) SetOffset(n int) error {
	if n < 0 {
		return crerr.InvalidArgument("offset must be a non-negative integer, got %d", n)
	}
	q.offset = n
	return nil
}

// Limit returns the limit; 0 means unlimited.
func (q *Query) Limit() int { return q.limit }

// Offset returns the offset.
func (q *Query) Offset() int { return q.offset }

// Language returns the query language tag.
func (q *Query) Language() string { return Language }

// Source returns the source tree.
func (q *Query) Source() qom.Source { return q.source }

// Constraint returns the constraint tree, or nil.
func (q *Query) Constraint() qom.Constraint { return q.constraint }

// BindValues returns a copy of the bound variable values.
func (q *Query) BindValues() map[string]qom.Literal {
	return maps.Clone(q.bindValues)
}

// Execute resolves the matching node identifiers through the backend.
// Every bind variable the constraint uses must be bound.
func (q *Query) Execute(ctx context.Context) (*Result, error) {
	for _, name := range qom.BindVariableNames(q.constraint) {
		if _, ok := q.bindValues[name]; !ok {
			return nil, crerr.InvalidArgument("bind variable %q has no value", name).WithDetail("variable", name)
		}
	}

	ids, err := q.backend.FindNodeIdentifiers(ctx, q)
	if err != nil {
		return nil, err
	}
	return &Result{identifiers: ids, backend: q.backend}, nil
}

// Statement would return the textual form of the query.
func (q *Query) Statement() (string, error) {
	return "", crerr.NotSupported("query statement")
}

// StoredQueryPath would return the path of the node the query is stored in.
func (q *Query) StoredQueryPath() (string, error) {
	return "", crerr.NotSupported("stored query path")
}

// StoreAsNode would persist the query as a node at path.
func (q *Query) StoreAsNode(path string) (*node.Node, error) {
	return nil, crerr.NotSupported("storing a query as node")
}

// Result is the outcome of an executed query.
type Result struct {
	identifiers []string
	backend     storage.Backend
}

// Identifiers returns the matching node identifiers in result order.
func (r *Result) Identifiers() []string {
	return append([]string(nil), r.identifiers...)
}

// Nodes returns a fresh iterator loading the matching nodes on demand.
func (r *Result) Nodes() *storage.NodeIterator {
	return r.backend.GetNodeIterator(r.identifiers)
}

// Len returns the number of matches.
func (r *Result) Len() int { return len(r.identifiers) }
