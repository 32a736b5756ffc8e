package mapper

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionKeepsInsertionOrder(t *testing.T) {
	c := NewCollection()
	c.Set("zebra", 1)
	c.Set("apple", 2)
	c.Set("zebra", 3)

	assert.Equal(t, []string{"zebra", "apple"}, c.Keys())
	assert.Equal(t, 2, c.Len())
	v, ok := c.Get("zebra")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = c.Get("mango")
	assert.False(t, ok)
}

func TestCollectionKeysIsACopy(t *testing.T) {
	c := NewCollection()
	c.Set("a", 1)
	keys := c.Keys()
	keys[0] = "b"
	assert.Equal(t, []string{"a"}, c.Keys())
}

func TestCollectionMarshalJSON(t *testing.T) {
	inner := NewCollection()
	inner.Set("1", "y")
	inner.Set("0", "x")

	c := NewCollection()
	c.Set("title", "Hello")
	c.Set("tags", inner)
	c.Set("count", int64(2))

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Hello","tags":{"1":"y","0":"x"},"count":2}`, string(data))
}

func TestCollectionSnapshot(t *testing.T) {
	inner := NewCollection()
	inner.Set("x", 1)
	c := NewCollection()
	c.Set("a", 1)
	c.Set("nested", inner)

	snap := c.Snapshot()
	c.Set("a", 2)
	c.Set("b", 3)
	inner.Set("y", 2)

	assert.Equal(t, []string{"a", "nested"}, snap.Keys())
	v, _ := snap.Get("a")
	assert.Equal(t, 1, v)
	nested, _ := snap.Get("nested")
	assert.Equal(t, []string{"x"}, nested.(*Collection).Keys())
}
