package query

import (
	"slices"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/qom"
	"github.com/afoeder/typo3cr/internal/storage"
)

// Prepared is a query with named bind variables. The variables are exactly
// those the constraint references; binding any other name fails.
type Prepared struct {
	*Query
	variables []string
}

// NewPrepared creates a prepared query.
func NewPrepared(backend storage.Backend, source qom.Source, constraint qom.Constraint) (*Prepared, error) {
	q, err := New(backend, source, constraint)
	if err != nil {
		return nil, err
	}
	return &Prepared{Query: q, variables: qom.BindVariableNames(constraint)}, nil
}

// BindVariableNames returns the declared variable names, sorted.
func (p *Prepared) BindVariableNames() []string {
	return slices.Clone(p.variables)
}

// BindValue binds v to the declared variable name.
func (p *Prepared) BindValue(name string, v qom.Literal) error {
	if _, found := slices.BinarySearch(p.variables, name); !found {
		return crerr.InvalidArgument("%q is not a bind variable of this query", name).WithDetail("variable", name)
	}
	p.bindValues[name] = v
	return nil
}
