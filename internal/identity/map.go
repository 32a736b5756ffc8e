// Package identity provides the identity map of a mapping pass: a table from
// node identifier to the single live object materialized for it.
//
// A Map is scoped to one mapping pass or persistence session and is passed
// explicitly to every recursive call. It is not safe for concurrent use.
package identity

import (
	"github.com/afoeder/typo3cr/internal/crerr"
)

// Map binds node identifiers to objects.
// T is usually an interface type; objects are compared with ==, so pointer
// implementations give reference identity.
type Map[T comparable] struct {
	objects map[string]T
}

// New creates an empty identity map.
func New[T comparable]() *Map[T] {
	return &Map[T]{objects: make(map[string]T)}
}

// Has reports whether an object is registered for id.
func (m *Map[T]) Has(id string) bool {
	_, ok := m.objects[id]
	return ok
}

// Get returns the object registered for id.
// A miss is a NOT_FOUND error; callers are expected to check Has first.
func (m *Map[T]) Get(id string) (T, error) {
	obj, ok := m.objects[id]
	if !ok {
		var zero T
		return zero, crerr.NotFound(id)
	}
	return obj, nil
}

// Register binds obj to id. Registering the same object again is a no-op;
// binding id to a different object fails with DUPLICATE_IDENTIFIER.
func (m *Map[T]) Register(obj T, id string) error {
	if existing, ok := m.objects[id]; ok {
		if existing == obj {
			return nil
		}
		return crerr.New(crerr.CodeDuplicateIdentifier,
			"identifier %q is already registered to another object", id).
			WithDetail("identifier", id)
	}
	m.objects[id] = obj
	return nil
}

// Len returns the number of registered objects.
func (m *Map[T]) Len() int {
	return len(m.objects)
}
