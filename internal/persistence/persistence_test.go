package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/kvstore"
	"github.com/afoeder/typo3cr/internal/mapper"
	"github.com/afoeder/typo3cr/internal/node"
	"github.com/afoeder/typo3cr/internal/qom"
	"github.com/afoeder/typo3cr/internal/query"
	"github.com/afoeder/typo3cr/internal/schema"
)

func ref(id, name, target string) *node.Node {
	return node.New(id, name, node.ObjectProxyType).
		AddProperty(node.NewProperty("flow3:target", node.TypeReference, node.StringValue(target)))
}

// newBlog stores a post and its author; the author's favourite is the post.
func newBlog(t *testing.T) (*kvstore.Store, *schema.Registry) {
	t.Helper()
	s, err := kvstore.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	post := node.New("p1", "flow3:post1", "flow3:Blog_Post").
		AddProperty(node.NewProperty("flow3:title", node.TypeString, node.StringValue("Hello"))).
		AddProperty(node.NewProperty("flow3:rating", node.TypeLong, node.LongValue(9))).
		AddProperty(node.NewProperty("flow3:published", node.TypeDate, node.NewValue("2024-05-01T10:00:00+02:00"))).
		AddChild(node.New("t1", "flow3:tags", node.ArrayProxyType).
			AddProperty(node.NewProperty("flow3:0", node.TypeString, node.StringValue("go"))).
			AddProperty(node.NewProperty("flow3:1", node.TypeString, node.StringValue("cms")))).
		AddChild(ref("r1", "flow3:author", "u1"))
	person := node.New("u1", "flow3:ada", "flow3:Blog_Person").
		AddProperty(node.NewProperty("flow3:name", node.TypeString, node.StringValue("Ada"))).
		AddProperty(node.NewProperty("flow3:age", node.TypeLong, node.LongValue(36))).
		AddChild(ref("r2", "flow3:favourite", "p1"))
	require.NoError(t, s.AddNode(ctx, "", post))
	require.NoError(t, s.AddNode(ctx, "", person))

	schemas, err := schema.NewRegistry(
		&schema.ClassSchema{ClassName: "Blog.Post", Properties: []schema.PropertyDef{
			{Name: "title", Type: schema.TypeString},
			{Name: "rating", Type: schema.TypeInteger},
			{Name: "published", Type: schema.TypeDateTime},
			{Name: "tags", Type: schema.TypeArray},
			{Name: "author", Type: "Blog.Person"},
		}},
		&schema.ClassSchema{ClassName: "Blog.Person", Properties: []schema.PropertyDef{
			{Name: "name", Type: schema.TypeString},
			{Name: "age", Type: schema.TypeInteger},
			{Name: "favourite", Type: "Blog.Post"},
		}},
	)
	require.NoError(t, err)
	return s, schemas
}

func TestFind(t *testing.T) {
	s, schemas := newBlog(t)
	m := NewManager(s, schemas)
	ctx := context.Background()

	q, err := m.CreateQuery("flow3:Blog_Post", nil)
	require.NoError(t, err)
	objects, err := m.Find(ctx, q)
	require.NoError(t, err)
	require.Len(t, objects, 1)

	post := objects[0].(*Entity)
	assert.Equal(t, "Blog.Post", post.ClassName())
	assert.Equal(t, []string{"title", "rating", "published", "tags", "author"}, post.PropertyNames())

	rating, _ := post.Property("rating")
	assert.Equal(t, int64(9), rating)
	published, _ := post.Property("published")
	assert.True(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC).Equal(published.(time.Time)))

	author, _ := post.Property("author")
	favourite, _ := author.(*Entity).Property("favourite")
	assert.Same(t, post, favourite, "the cycle resolves to the same instance")

	assert.Equal(t, []mapper.Object{post}, m.Session().ReconstitutedObjects())
	assert.True(t, m.Session().IsReconstituted(post))
	assert.False(t, m.Session().IsReconstituted(author.(*Entity)), "only query results are registered")
}

func TestFind_Golden(t *testing.T) {
	s, schemas := newBlog(t)
	m := NewManager(s, schemas)

	q, err := m.CreateQuery("flow3:Blog_Post", nil)
	require.NoError(t, err)
	objects, err := m.Find(context.Background(), q)
	require.NoError(t, err)

	out, err := Dump(objects)
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "post_with_author", out)
}

func TestFind_PreparedQuery(t *testing.T) {
	s, schemas := newBlog(t)
	m := NewManager(s, schemas)
	ctx := context.Background()

	prepared, err := query.NewPrepared(s, qom.Selector{NodeTypeName: "flow3:Blog_Person"}, qom.Comparison{
		Operand1: qom.PropertyValue{PropertyName: "flow3:age"},
		Operator: qom.OperatorGreaterThan,
		Operand2: qom.BindVariableValue{Name: "minAge"},
	})
	require.NoError(t, err)

	_, err = m.Find(ctx, prepared)
	assert.True(t, crerr.IsInvalidArgument(err), "unbound variable")
	assert.Empty(t, m.Session().ReconstitutedObjects())

	require.NoError(t, prepared.BindValue("minAge", qom.LongLiteral(40)))
	objects, err := m.Find(ctx, prepared)
	require.NoError(t, err)
	assert.Empty(t, objects)

	require.NoError(t, prepared.BindValue("minAge", qom.LongLiteral(30)))
	objects, err = m.Find(ctx, prepared)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	name, _ := objects[0].(*Entity).Property("name")
	assert.Equal(t, "Ada", name)
}

func TestFindByIdentifier(t *testing.T) {
	s, schemas := newBlog(t)
	m := NewManager(s, schemas)
	ctx := context.Background()

	obj, err := m.FindByIdentifier(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Blog.Person", obj.(*Entity).ClassName())

	_, err = m.FindByIdentifier(ctx, "missing")
	assert.True(t, crerr.IsNotFound(err))
}

func TestFind_MappingFailureRegistersNothing(t *testing.T) {
	s, _ := newBlog(t)
	onlyPosts, err := schema.NewRegistry(&schema.ClassSchema{ClassName: "Blog.Post", Properties: []schema.PropertyDef{
		{Name: "author", Type: "Blog.Person"},
	}})
	require.NoError(t, err)
	m := NewManager(s, onlyPosts)

	q, err := m.CreateQuery("flow3:Blog_Post", nil)
	require.NoError(t, err)
	_, err = m.Find(context.Background(), q)
	require.Error(t, err)
	assert.True(t, crerr.IsNotFound(err), "no schema for Blog.Person: %v", err)
	assert.Empty(t, m.Session().ReconstitutedObjects())
}

func TestDirtyTracking(t *testing.T) {
	s, schemas := newBlog(t)
	m := NewManager(s, schemas)

	q, err := m.CreateQuery("flow3:Blog_Post", nil)
	require.NoError(t, err)
	objects, err := m.Find(context.Background(), q)
	require.NoError(t, err)
	post := objects[0].(*Entity)

	assert.False(t, post.Dirty())
	assert.Empty(t, m.Session().DirtyEntities())

	post.Modify("title", "Bye")
	assert.True(t, post.IsDirty("title"))
	assert.False(t, post.IsDirty("rating"))
	assert.Equal(t, []*Entity{post}, m.Session().DirtyEntities())

	post.Modify("title", "Hello")
	assert.False(t, post.Dirty(), "restoring the clean value")
}

func TestDirtyTracking_CollectionChangedInPlace(t *testing.T) {
	s, schemas := newBlog(t)
	m := NewManager(s, schemas)

	q, err := m.CreateQuery("flow3:Blog_Post", nil)
	require.NoError(t, err)
	objects, err := m.Find(context.Background(), q)
	require.NoError(t, err)
	post := objects[0].(*Entity)

	v, ok := post.Property("tags")
	require.True(t, ok)
	tags := v.(*mapper.Collection)
	require.False(t, post.IsDirty("tags"))

	tags.Set("2", "new")
	assert.True(t, post.IsDirty("tags"))
	assert.False(t, post.IsDirty("title"))
	assert.Equal(t, []*Entity{post}, m.Session().DirtyEntities())
}

func TestEntityBeforeCleanStateIsDirty(t *testing.T) {
	e := NewEntity("Page")
	require.NoError(t, e.SetProperty("title", "x"))
	assert.True(t, e.IsDirty("title"))
	e.MemorizeCleanState()
	assert.False(t, e.IsDirty("title"))
	e.Modify("subtitle", "y")
	assert.True(t, e.IsDirty("subtitle"), "new property")
}

func TestBuilderReinjectsDependencies(t *testing.T) {
	s, schemas := newBlog(t)
	clock := func() time.Time { return time.Unix(0, 0) }
	b := NewBuilder()
	b.Inject("Blog.Post", "clock", clock)
	m := NewManager(s, schemas, WithBuilder(b))

	q, err := m.CreateQuery("flow3:Blog_Post", nil)
	require.NoError(t, err)
	objects, err := m.Find(context.Background(), q)
	require.NoError(t, err)

	post := objects[0].(*Entity)
	_, ok := post.Dependency("clock")
	assert.True(t, ok)
	author, _ := post.Property("author")
	_, ok = author.(*Entity).Dependency("clock")
	assert.False(t, ok, "dependencies are per class")
}

func TestBuilderRejectsForeignObjects(t *testing.T) {
	b := NewBuilder()
	cfg, err := b.ObjectConfiguration("Page")
	require.NoError(t, err)
	assert.Error(t, b.ReinjectDependencies(foreign{}, cfg))

	_, err = b.ObjectConfiguration("")
	assert.True(t, crerr.IsInvalidArgument(err))
}

type foreign struct{}

func (foreign) SetProperty(string, any) error { return nil }
func (foreign) MemorizeCleanState()           {}
