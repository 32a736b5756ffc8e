package querysql

import (
	"fmt"
	"strings"
	"testing"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/node"
	"github.com/afoeder/typo3cr/internal/qom"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testQuery struct {
	source     qom.Source
	constraint qom.Constraint
	limit      int
	offset     int
	binds      map[string]qom.Literal
}

func (q testQuery) Source() qom.Source                 { return q.source }
func (q testQuery) Constraint() qom.Constraint         { return q.constraint }
func (q testQuery) Limit() int                         { return q.limit }
func (q testQuery) Offset() int                        { return q.offset }
func (q testQuery) BindValues() map[string]qom.Literal { return q.binds }

func mustJoin(t *testing.T, left, right qom.Source, jt qom.JoinType, cond qom.JoinCondition) *qom.Join {
	t.Helper()
	j, err := qom.NewJoin(left, right, jt, cond)
	require.NoError(t, err)
	return j
}

// renderCompiled renders SQL and typed parameters for golden comparison.
func renderCompiled(sql string, params []any) []byte {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%T(%v)", p, p)
	}
	return []byte(sql + "\n" + strings.Join(parts, ", ") + "\n")
}

func assertGolden(t *testing.T, name string, sql string, params []any) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, renderCompiled(sql, params))
}

func TestCompile_Golden(t *testing.T) {
	posts := qom.Selector{NodeTypeName: "flow3:Blog_Post", SelectorName: "post"}
	authors := qom.Selector{NodeTypeName: "flow3:Person", SelectorName: "author"}
	pages := qom.Selector{NodeTypeName: "flow3:Content", SelectorName: "page"}
	people := qom.Selector{NodeTypeName: "flow3:Person", SelectorName: "p"}

	tests := []struct {
		name     string
		compiler *SQLCompiler
		query    testQuery
	}{
		{
			name:     "select_person_by_name",
			compiler: NewSQLCompiler("default"),
			query: testQuery{
				source: qom.Selector{NodeTypeName: "flow3:Person"},
				constraint: qom.Comparison{
					Operand1: qom.PropertyValue{PropertyName: "flow3:name"},
					Operator: qom.OperatorEqualTo,
					Operand2: qom.StringLiteral("Ada"),
				},
				limit: 5,
			},
		},
		{
			name:     "left_outer_join_posts_authors",
			compiler: NewSQLCompiler("default"),
			query: testQuery{
				source: mustJoin(t, posts, authors, qom.JoinTypeLeftOuter, qom.EquiJoinCondition{
					Selector1Name: "post", Property1Name: "flow3:author",
					Selector2Name: "author", Property2Name: "flow3:id",
				}),
			},
		},
		{
			name: "descendant_join_bound_age",
			compiler: &SQLCompiler{
				Workspace: "live",
				SubTypes: func(name string) []string {
					if name == "flow3:Content" {
						return []string{"flow3:Content", "flow3:Page"}
					}
					return []string{name}
				},
			},
			query: testQuery{
				source: mustJoin(t, pages, people, qom.JoinTypeInner, qom.DescendantNodeJoinCondition{
					DescendantSelectorName: "p", AncestorSelectorName: "page",
				}),
				constraint: qom.And{Constraints: []qom.Constraint{
					qom.Comparison{
						Operand1: qom.PropertyValue{SelectorName: "p", PropertyName: "flow3:age"},
						Operator: qom.OperatorGreaterThan,
						Operand2: qom.BindVariableValue{Name: "minAge"},
					},
					qom.Not{Constraint: qom.PropertyExistence{SelectorName: "page", PropertyName: "flow3:hidden"}},
				}},
				limit:  10,
				offset: 20,
				binds:  map[string]qom.Literal{"minAge": qom.LongLiteral(18)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := tt.compiler.Compile(tt.query)
			require.NoError(t, err)
			assertGolden(t, tt.name, sql, params)
		})
	}
}

func TestCompile_OrderByMandatory(t *testing.T) {
	compiler := NewSQLCompiler("default")
	people := qom.Selector{NodeTypeName: "flow3:Person", SelectorName: "p"}
	posts := qom.Selector{NodeTypeName: "flow3:Blog_Post", SelectorName: "b"}

	testCases := []struct {
		name  string
		query testQuery
	}{
		{"selector", testQuery{source: people}},
		{"selector with empty or", testQuery{source: people, constraint: qom.Or{}}},
		{"same node join", testQuery{source: mustJoin(t, people, posts, qom.JoinTypeInner,
			qom.SameNodeJoinCondition{Selector1Name: "p", Selector2Name: "b"})}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, _, err := compiler.Compile(tc.query)
			require.NoError(t, err)

			assert.Contains(t, sql, "ORDER BY s0.seq ASC, s0.identifier COLLATE BINARY ASC")
			assert.NotContains(t, sql, "ASC COLLATE", "sqlite wants the collation before the direction")
			assert.True(t, strings.HasSuffix(sql, "LIMIT ? OFFSET ?"), sql)
		})
	}
}

func TestCompile_NoStringInterpolation(t *testing.T) {
	compiler := NewSQLCompiler("default")
	dangerousValue := "'; DROP TABLE nodes; --"

	sql, params, err := compiler.Compile(testQuery{
		source: qom.Selector{NodeTypeName: "flow3:Person"},
		constraint: qom.Comparison{
			Operand1: qom.NodeLocalName{},
			Operator: qom.OperatorEqualTo,
			Operand2: qom.StringLiteral(dangerousValue),
		},
	})
	require.NoError(t, err)

	assert.NotContains(t, sql, dangerousValue)
	assert.Contains(t, params, dangerousValue)
	assert.Contains(t, sql, "s0.local_name = ?")
}

func TestCompile_JoinTypes(t *testing.T) {
	compiler := NewSQLCompiler("default")
	parents := qom.Selector{NodeTypeName: "flow3:Folder", SelectorName: "parent"}
	children := qom.Selector{NodeTypeName: "flow3:Document", SelectorName: "child"}
	cond := qom.ChildNodeJoinCondition{ChildSelectorName: "child", ParentSelectorName: "parent"}

	for jt, keyword := range map[qom.JoinType]string{
		qom.JoinTypeInner:      " INNER JOIN ",
		qom.JoinTypeLeftOuter:  " LEFT OUTER JOIN ",
		qom.JoinTypeRightOuter: " RIGHT OUTER JOIN ",
	} {
		t.Run(string(jt), func(t *testing.T) {
			sql, _, err := compiler.Compile(testQuery{source: mustJoin(t, parents, children, jt, cond)})
			require.NoError(t, err)
			assert.Contains(t, sql, keyword)
			assert.Contains(t, sql, "ON s1.parent = s0.identifier")
		})
	}
}

func TestCompile_LikeUsesEscape(t *testing.T) {
	compiler := NewSQLCompiler("default")

	sql, params, err := compiler.Compile(testQuery{
		source: qom.Selector{NodeTypeName: "flow3:Person"},
		constraint: qom.Comparison{
			Operand1: qom.PropertyValue{PropertyName: "flow3:name"},
			Operator: qom.OperatorLike,
			Operand2: qom.StringLiteral(`A\_%`),
		},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, `p.value LIKE ? ESCAPE '\'`)
	assert.Equal(t, `A\_%`, params[4])
}

func TestCompile_Errors(t *testing.T) {
	people := qom.Selector{NodeTypeName: "flow3:Person"}

	_, _, err := NewSQLCompiler("").Compile(testQuery{source: people})
	assert.True(t, crerr.IsInvalidArgument(err))

	_, _, err = NewSQLCompiler("default").Compile(testQuery{})
	assert.True(t, crerr.IsInvalidArgument(err))

	_, _, err = NewSQLCompiler("default").Compile(testQuery{
		source: people,
		constraint: qom.Comparison{
			Operand1: qom.PropertyValue{PropertyName: "flow3:name"},
			Operator: qom.OperatorEqualTo,
			Operand2: qom.BindVariableValue{Name: "missing"},
		},
	})
	assert.True(t, crerr.IsInvalidArgument(err))

	_, _, err = NewSQLCompiler("default").Compile(testQuery{
		source: people,
		constraint: qom.Comparison{
			Operand1: qom.PropertyValue{PropertyName: "flow3:age"},
			Operator: qom.OperatorLessThan,
			Operand2: qom.Literal{Value: node.StringValue("old"), Type: node.TypeLong},
		},
	})
	assert.True(t, crerr.IsInvalidArgument(err))
}
