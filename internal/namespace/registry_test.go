package namespace

import (
	"testing"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinNamespaces(t *testing.T) {
	r := NewRegistry()

	uri, ok := r.URI("jcr")
	require.True(t, ok)
	assert.Equal(t, "http://www.jcp.org/jcr/1.0", uri)

	prefix, ok := r.Prefix("http://forge.typo3.org/namespaces/flow3")
	require.True(t, ok)
	assert.Equal(t, "flow3", prefix)

	assert.Equal(t, []string{"flow3", "jcr", "mix", "nt", "xml"}, r.Prefixes())
	assert.Equal(t, "flow3", r.PersistencePrefix())
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("blog", "http://example.com/blog"))

	uri, ok := r.URI("blog")
	require.True(t, ok)
	assert.Equal(t, "http://example.com/blog", uri)

	require.NoError(t, r.Register("blog", "http://example.com/blog/2"))
	_, ok = r.Prefix("http://example.com/blog")
	assert.False(t, ok)

	assert.True(t, crerr.IsInvalidArgument(r.Register("jcr", "http://elsewhere")))
	assert.True(t, crerr.IsInvalidArgument(r.Register("", "http://x")))
	assert.True(t, crerr.IsInvalidArgument(r.Register("a:b", "http://x")))
}

func TestSetPersistencePrefix(t *testing.T) {
	r := NewRegistry()
	assert.True(t, crerr.IsInvalidArgument(r.SetPersistencePrefix("app")))

	require.NoError(t, r.Register("app", "http://example.com/app"))
	require.NoError(t, r.SetPersistencePrefix("app"))
	assert.Equal(t, "app", r.PersistencePrefix())
}

func TestStripPrefix(t *testing.T) {
	local, ok := StripPrefix("flow3:title", "flow3")
	assert.True(t, ok)
	assert.Equal(t, "title", local)

	_, ok = StripPrefix("jcr:uuid", "flow3")
	assert.False(t, ok)
	_, ok = StripPrefix("flow3:", "flow3")
	assert.False(t, ok)
	_, ok = StripPrefix("title", "flow3")
	assert.False(t, ok)
}
