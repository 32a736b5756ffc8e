package mapper

import (
	"context"

	"github.com/afoeder/typo3cr/internal/node"
	"github.com/afoeder/typo3cr/internal/schema"
)

// Object is the change-tracking capability every mapped aggregate provides.
// Implementations must be pointers: the identity map compares objects with ==.
type Object interface {
	// SetProperty assigns a persisted value without validation.
	SetProperty(name string, value any) error

	// MemorizeCleanState records the current state as the unmodified baseline.
	MemorizeCleanState()
}

// ObjectConfiguration describes how instances of a class are wired.
type ObjectConfiguration struct {
	ClassName string

	// Dependencies are the collaborators reinjected into reconstituted
	// instances, by name.
	Dependencies map[string]any
}

// ObjectConfigurations looks up the wiring of a class.
type ObjectConfigurations interface {
	ObjectConfiguration(className string) (*ObjectConfiguration, error)
}

// ObjectBuilder constructs empty instances and reinjects their collaborators.
type ObjectBuilder interface {
	CreateEmptyObject(className string, cfg *ObjectConfiguration) (Object, error)
	ReinjectDependencies(obj Object, cfg *ObjectConfiguration) error
}

// ClassSchemas looks up the property declarations of a class.
type ClassSchemas interface {
	ClassSchema(className string) (*schema.ClassSchema, error)
}

// Session receives every aggregate materialized by Map.
type Session interface {
	RegisterReconstitutedObject(obj Object)
}

// NodeSource fetches nodes by identifier. Storage backends implement it.
type NodeSource interface {
	GetNode(ctx context.Context, identifier string) (*node.Node, error)
}

// NodeIterator yields the nodes to map.
type NodeIterator interface {
	Next(ctx context.Context) bool
	Node() *node.Node
	Err() error
}
