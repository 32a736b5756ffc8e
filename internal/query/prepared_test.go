package query

import (
	"context"
	"testing"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/qom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byNameAndAge() qom.Constraint {
	return qom.And{Constraints: []qom.Constraint{
		qom.Comparison{
			Operand1: qom.PropertyValue{PropertyName: "flow3:name"},
			Operator: qom.OperatorEqualTo,
			Operand2: qom.BindVariableValue{Name: "name"},
		},
		qom.Comparison{
			Operand1: qom.PropertyValue{PropertyName: "flow3:age"},
			Operator: qom.OperatorGreaterThan,
			Operand2: qom.BindVariableValue{Name: "minAge"},
		},
	}}
}

func TestBindValueRejectsUndeclaredVariable(t *testing.T) {
	b, _ := newBackend()
	p, err := NewPrepared(b, people, byNameAndAge())
	require.NoError(t, err)

	err = p.BindValue("undeclaredVar", qom.StringLiteral("x"))
	require.Error(t, err)
	assert.True(t, crerr.IsInvalidArgument(err))
	assert.Empty(t, p.BindValues())
}

func TestBindVariableNamesAreDeclaredByStatement(t *testing.T) {
	b, _ := newBackend()
	p, err := NewPrepared(b, people, byNameAndAge())
	require.NoError(t, err)

	assert.Equal(t, []string{"minAge", "name"}, p.BindVariableNames())

	plain, err := NewPrepared(b, people, nil)
	require.NoError(t, err)
	assert.Empty(t, plain.BindVariableNames())
	assert.True(t, crerr.IsInvalidArgument(plain.BindValue("name", qom.StringLiteral("Ada"))))
}

func TestPreparedExecuteRequiresAllBindings(t *testing.T) {
	b, s := newBackend("p1")
	p, err := NewPrepared(b, people, byNameAndAge())
	require.NoError(t, err)

	require.NoError(t, p.BindValue("name", qom.StringLiteral("Ada")))
	_, err = p.Execute(context.Background())
	assert.True(t, crerr.IsInvalidArgument(err))
	assert.Empty(t, s.requested)

	require.NoError(t, p.BindValue("minAge", qom.LongLiteral(18)))
	res, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, res.Identifiers())
	require.Len(t, s.bound, 1)
	assert.Equal(t, qom.LongLiteral(18), s.bound[0]["minAge"])
}

func TestPreparedRebindOverwrites(t *testing.T) {
	b, _ := newBackend()
	p, err := NewPrepared(b, people, byNameAndAge())
	require.NoError(t, err)

	require.NoError(t, p.BindValue("name", qom.StringLiteral("Ada")))
	require.NoError(t, p.BindValue("name", qom.StringLiteral("Grace")))
	assert.Equal(t, qom.StringLiteral("Grace"), p.BindValues()["name"])
}
