// Package storage defines the workspace-scoped contract every node store
// implements, and the shared state concrete backends embed.
package storage

import (
	"context"

	"github.com/afoeder/typo3cr/internal/namespace"
	"github.com/afoeder/typo3cr/internal/node"
	"github.com/afoeder/typo3cr/internal/qom"
)

// DefaultWorkspace is the workspace a backend starts in.
const DefaultWorkspace = "default"

// Query is what a backend needs to know about a query to resolve it.
// query.Query implements it.
type Query interface {
	Source() qom.Source
	Constraint() qom.Constraint

	// Limit is the maximum number of identifiers to return; 0 means unlimited.
	Limit() int
	Offset() int

	// BindValues holds the values of bound variables by name.
	BindValues() map[string]qom.Literal
}

// Backend is a node store scoped to one active workspace.
type Backend interface {
	WorkspaceName() string

	// SetWorkspaceName switches the active workspace and propagates the
	// switch to the bound search engine.
	SetWorkspaceName(name string) error

	SetSearchEngine(s Search)
	SetNamespaceRegistry(r *namespace.Registry)
	NamespaceRegistry() *namespace.Registry

	// FindNodeIdentifiers returns identifiers of nodes matching q in the
	// active workspace, honoring limit and offset.
	FindNodeIdentifiers(ctx context.Context, q Query) ([]string, error)

	// GetNode loads the subtree rooted at the identified node.
	GetNode(ctx context.Context, identifier string) (*node.Node, error)

	// GetNodeIterator resolves identifiers lazily, one node per Next.
	GetNodeIterator(identifiers []string) *NodeIterator
}

// Search resolves queries to node identifiers for one workspace at a time.
type Search interface {
	SetWorkspaceName(name string)
	FindNodeIdentifiers(ctx context.Context, q Query) ([]string, error)
}

// Writer adds nodes to the active workspace.
type Writer interface {
	// AddNode stores n and its subtree below the node parentID. An empty
	// parentID adds a root level node.
	AddNode(ctx context.Context, parentID string, n *node.Node) error
}

// Store is a backend that accepts writes. store.Store and kvstore.Store
// implement it.
type Store interface {
	Backend
	Writer
}
