package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/afoeder/typo3cr/internal/node"
	"github.com/stretchr/testify/require"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func str(name, v string) node.Property {
	return node.NewProperty(name, node.TypeString, node.StringValue(v))
}

func long(name string, v int64) node.Property {
	return node.NewProperty(name, node.TypeLong, node.LongValue(v))
}

// person creates a root level person node.
func person(id, key, name string, age int64) *node.Node {
	return node.New(id, "flow3:"+key, "flow3:Person").
		AddProperty(str("flow3:id", key)).
		AddProperty(str("flow3:name", name)).
		AddProperty(long("flow3:age", age))
}

func post(id, local, title, author string, rating int64) *node.Node {
	return node.New(id, "flow3:"+local, "flow3:Blog_Post").
		AddProperty(str("flow3:title", title)).
		AddProperty(str("flow3:author", author)).
		AddProperty(long("flow3:rating", rating))
}

// createBlogStore stores, in document order:
//
//	blog (flow3:Blog)
//	  p1 "Hello"        by ada,    rating 9
//	  p2 "hello world"  by bob,    rating 10
//	  p3 "Draft"        by nobody, rating 3
//	u1 ada (36)
//	u2 bob (9)
//	u3 cy  (51), no posts
func createBlogStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	ctx := context.Background()

	blog := node.New("blog", "flow3:blog", "flow3:Blog").
		AddChild(post("p1", "post1", "Hello", "ada", 9)).
		AddChild(post("p2", "post2", "hello world", "bob", 10)).
		AddChild(post("p3", "post3", "Draft", "nobody", 3))
	require.NoError(t, s.AddNode(ctx, "", blog))
	require.NoError(t, s.AddNode(ctx, "", person("u1", "ada", "Ada", 36)))
	require.NoError(t, s.AddNode(ctx, "", person("u2", "bob", "Bob", 9)))
	require.NoError(t, s.AddNode(ctx, "", person("u3", "cy", "Cy", 51)))
	return s
}
