package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/namespace"
	"github.com/afoeder/typo3cr/internal/node"
	"github.com/afoeder/typo3cr/internal/qom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearch struct {
	workspace string
	ids       []string
}

func (s *fakeSearch) SetWorkspaceName(name string) { s.workspace = name }

func (s *fakeSearch) FindNodeIdentifiers(_ context.Context, _ Query) ([]string, error) {
	return s.ids, nil
}

type fakeQuery struct{ limit, offset int }

func (q fakeQuery) Source() qom.Source                 { return qom.Selector{NodeTypeName: "nt:base"} }
func (q fakeQuery) Constraint() qom.Constraint         { return nil }
func (q fakeQuery) Limit() int                         { return q.limit }
func (q fakeQuery) Offset() int                        { return q.offset }
func (q fakeQuery) BindValues() map[string]qom.Literal { return nil }

func TestBaseDefaultWorkspace(t *testing.T) {
	var b Base
	assert.Equal(t, "default", b.WorkspaceName())
}

func TestSetWorkspaceNameRejectsEmpty(t *testing.T) {
	var b Base
	err := b.SetWorkspaceName("")
	assert.True(t, crerr.IsInvalidArgument(err))
	assert.Equal(t, "default", b.WorkspaceName())
}

func TestWorkspacePropagatesToSearchEngine(t *testing.T) {
	var b Base
	s := &fakeSearch{}

	b.SetSearchEngine(s)
	assert.Equal(t, "default", s.workspace)

	require.NoError(t, b.SetWorkspaceName("live"))
	assert.Equal(t, "live", b.WorkspaceName())
	assert.Equal(t, "live", s.workspace)

	other := &fakeSearch{}
	b.SetSearchEngine(other)
	assert.Equal(t, "live", other.workspace)
}

func TestFindNodeIdentifiersWithoutEngine(t *testing.T) {
	var b Base
	_, err := b.FindNodeIdentifiers(context.Background(), fakeQuery{})
	assert.True(t, crerr.IsInvalidArgument(err))
}

func TestFindNodeIdentifiersNeverExceedsLimit(t *testing.T) {
	var b Base
	b.SetSearchEngine(&fakeSearch{ids: []string{"a", "b", "c", "d"}})

	ids, err := b.FindNodeIdentifiers(context.Background(), fakeQuery{limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	ids, err = b.FindNodeIdentifiers(context.Background(), fakeQuery{})
	require.NoError(t, err)
	assert.Len(t, ids, 4)
}

func TestNamespaceRegistryDefault(t *testing.T) {
	var b Base
	assert.Equal(t, "flow3", b.NamespaceRegistry().PersistencePrefix())

	r := namespace.NewRegistry()
	b.SetNamespaceRegistry(r)
	assert.Same(t, r, b.NamespaceRegistry())
}

type configurable struct {
	Base
	dsn     string
	timeout time.Duration
	retries int
	ratio   float64
	engine  Search
}

func (c *configurable) SetDataSourceName(dsn string) { c.dsn = dsn }
func (c *configurable) SetTimeout(d time.Duration)   { c.timeout = d }
func (c *configurable) SetRetries(n int)             { c.retries = n }
func (c *configurable) SetRatio(f float64)           { c.ratio = f }
func (c *configurable) SetEngine(s Search)           { c.engine = s }
func (c *configurable) SetFailing(string) error      { return errors.New("refused") }
func (c *configurable) SetPair(a, b string)          {}

func TestConfigureInvokesSetters(t *testing.T) {
	c := &configurable{}
	err := Configure(c, map[string]any{
		"dataSourceName": "file:test.db",
		"timeout":        2 * time.Second,
		"retries":        float64(3), // as decoded from YAML or JSON
		"ratio":          1,
		"workspaceName":  "live",
		"unknownOption":  true,
		"pair":           "ignored",
		"engine":         nil,
	})
	require.NoError(t, err)

	assert.Equal(t, "file:test.db", c.dsn)
	assert.Equal(t, 2*time.Second, c.timeout)
	assert.Equal(t, 3, c.retries)
	assert.Equal(t, 1.0, c.ratio)
	assert.Equal(t, "live", c.WorkspaceName())
	assert.Nil(t, c.engine)
}

func TestConfigureErrors(t *testing.T) {
	c := &configurable{}

	err := Configure(c, map[string]any{"dataSourceName": 42})
	assert.True(t, crerr.IsInvalidArgument(err))

	err = Configure(c, map[string]any{"retries": nil})
	assert.True(t, crerr.IsInvalidArgument(err))

	err = Configure(c, map[string]any{"workspaceName": ""})
	assert.True(t, crerr.IsInvalidArgument(err))

	err = Configure(c, map[string]any{"failing": "x"})
	assert.EqualError(t, err, "option failing: refused")
}

type countingGetter struct {
	calls int
	nodes map[string]*node.Node
}

func (g *countingGetter) GetNode(_ context.Context, id string) (*node.Node, error) {
	g.calls++
	n, ok := g.nodes[id]
	if !ok {
		return nil, crerr.NotFound(id)
	}
	return n, nil
}

func TestNodeIteratorIsLazy(t *testing.T) {
	g := &countingGetter{nodes: map[string]*node.Node{
		"a": node.New("a", "a", "nt:unstructured"),
		"b": node.New("b", "b", "nt:unstructured"),
	}}
	it := NewNodeIterator(g, []string{"a", "b"})
	assert.Equal(t, 2, it.Len())
	assert.Equal(t, 0, g.calls)

	ctx := context.Background()
	require.True(t, it.Next(ctx))
	assert.Equal(t, "a", it.Node().Identifier)
	assert.Equal(t, 1, g.calls)

	require.True(t, it.Next(ctx))
	assert.Equal(t, "b", it.Node().Identifier)
	assert.False(t, it.Next(ctx))
	assert.NoError(t, it.Err())
	assert.Equal(t, 2, it.Position())
}

func TestNodeIteratorStopsAtError(t *testing.T) {
	g := &countingGetter{nodes: map[string]*node.Node{"b": node.New("b", "b", "nt:unstructured")}}
	it := NewNodeIterator(g, []string{"missing", "b"})

	ctx := context.Background()
	assert.False(t, it.Next(ctx))
	assert.True(t, crerr.IsNotFound(it.Err()))
	assert.False(t, it.Next(ctx))
	assert.Equal(t, 1, g.calls)
}
