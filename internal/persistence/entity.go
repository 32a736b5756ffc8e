// Package persistence ties querying and mapping together: a Manager executes
// a query against a backend, maps the result through a fresh mapping pass and
// records every reconstituted object in its Session.
//
// Entity is a generic aggregate usable for any class schema, so content can
// be loaded without a Go type per class.
package persistence

import (
	"reflect"
	"slices"

	"github.com/afoeder/typo3cr/internal/mapper"
)

// Entity is a map-backed aggregate with dirty tracking.
type Entity struct {
	className    string
	properties   *mapper.Collection
	clean        map[string]any
	dependencies map[string]any
}

// NewEntity creates an empty entity of className.
func NewEntity(className string) *Entity {
	return &Entity{
		className:    className,
		properties:   mapper.NewCollection(),
		dependencies: make(map[string]any),
	}
}

// ClassName returns the class the entity was created for.
func (e *Entity) ClassName() string { return e.className }

// SetProperty assigns a persisted value without validation.
func (e *Entity) SetProperty(name string, value any) error {
	e.properties.Set(name, value)
	return nil
}

// MemorizeCleanState records the current property values as the baseline
// IsDirty compares against. Collections are snapshotted so changes made to
// them in place still show up as dirty.
func (e *Entity) MemorizeCleanState() {
	e.clean = make(map[string]any, e.properties.Len())
	for _, name := range e.properties.Keys() {
		v, _ := e.properties.Get(name)
		if c, ok := v.(*mapper.Collection); ok {
			v = c.Snapshot()
		}
		e.clean[name] = v
	}
}

// Property returns the current value of name.
func (e *Entity) Property(name string) (any, bool) {
	return e.properties.Get(name)
}

// PropertyNames returns the property names in assignment order.
func (e *Entity) PropertyNames() []string {
	return e.properties.Keys()
}

// Modify changes a property after reconstitution.
func (e *Entity) Modify(name string, value any) {
	e.properties.Set(name, value)
}

// Dependency returns a reinjected collaborator.
func (e *Entity) Dependency(name string) (any, bool) {
	v, ok := e.dependencies[name]
	return v, ok
}

// IsDirty reports whether name differs from its clean state. Before
// MemorizeCleanState every property is dirty. Referenced entities compare by
// identity.
func (e *Entity) IsDirty(name string) bool {
	if e.clean == nil {
		return true
	}
	current, ok := e.properties.Get(name)
	clean, wasClean := e.clean[name]
	if ok != wasClean {
		return true
	}
	return !sameValue(current, clean)
}

// Dirty reports whether any property is dirty.
func (e *Entity) Dirty() bool {
	for _, name := range e.properties.Keys() {
		if e.IsDirty(name) {
			return true
		}
	}
	return false
}

func sameValue(a, b any) bool {
	ea, okA := a.(*Entity)
	eb, okB := b.(*Entity)
	if okA || okB {
		return ea == eb
	}
	ca, okA := a.(*mapper.Collection)
	cb, okB := b.(*mapper.Collection)
	if okA || okB {
		return okA && okB && sameCollection(ca, cb)
	}
	return reflect.DeepEqual(a, b)
}

func sameCollection(a, b *mapper.Collection) bool {
	if !slices.Equal(a.Keys(), b.Keys()) {
		return false
	}
	for _, k := range a.Keys() {
		va, _ := a.Get(k)
		vb, _ := b.Get(k)
		if !sameValue(va, vb) {
			return false
		}
	}
	return true
}
