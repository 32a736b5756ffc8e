package mapper

import (
	"bytes"
	"encoding/json"
)

// Collection is the decoded form of an array proxy: an ordered, keyed
// collection. Keys keep the order the backend reported entries in.
type Collection struct {
	keys   []string
	values map[string]any
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{values: make(map[string]any)}
}

// Set stores v under key. Setting an existing key keeps its position.
func (c *Collection) Set(key string, v any) {
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = v
}

// Get returns the value stored under key.
func (c *Collection) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns the keys in order.
func (c *Collection) Keys() []string {
	return append([]string(nil), c.keys...)
}

// Len returns the number of entries.
func (c *Collection) Len() int {
	return len(c.keys)
}

// Snapshot returns a copy that later Set calls on c do not affect. Nested
// collections are copied too; every other value is shared.
func (c *Collection) Snapshot() *Collection {
	out := &Collection{keys: c.Keys(), values: make(map[string]any, len(c.values))}
	for k, v := range c.values {
		if nested, ok := v.(*Collection); ok {
			v = nested.Snapshot()
		}
		out.values[k] = v
	}
	return out
}

// ToMap converts the collection to a map, nested collections included.
func (c *Collection) ToMap() map[string]any {
	out := make(map[string]any, len(c.keys))
	for _, k := range c.keys {
		v := c.values[k]
		if nested, ok := v.(*Collection); ok {
			v = nested.ToMap()
		}
		out[k] = v
	}
	return out
}

// MarshalJSON renders the collection as a JSON object in key order.
func (c *Collection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
