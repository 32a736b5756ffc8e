package storage

import (
	"context"
	"fmt"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/namespace"
)

// Base holds the state shared by all backends: the active workspace, the
// search engine and the namespace registry. Concrete backends embed it.
//
// The zero value is usable and starts in DefaultWorkspace. Base is not safe
// for concurrent use; callers switching workspaces on a shared backend race.
type Base struct {
	workspaceName string
	search        Search
	namespaces    *namespace.Registry
}

// WorkspaceName returns the active workspace.
func (b *Base) WorkspaceName() string {
	if b.workspaceName == "" {
		return DefaultWorkspace
	}
	return b.workspaceName
}

// SetWorkspaceName switches the active workspace. The bound search engine is
// switched as well, so both always agree.
func (b *Base) SetWorkspaceName(name string) error {
	if name == "" {
		return crerr.InvalidArgument("workspace name must not be empty")
	}
	b.workspaceName = name
	if b.search != nil {
		b.search.SetWorkspaceName(name)
	}
	return nil
}

// SetSearchEngine binds s and selects the active workspace on it.
func (b *Base) SetSearchEngine(s Search) {
	b.search = s
	if s != nil {
		s.SetWorkspaceName(b.WorkspaceName())
	}
}

// SearchEngine returns the bound search engine, or nil.
func (b *Base) SearchEngine() Search {
	return b.search
}

// SetNamespaceRegistry binds r.
func (b *Base) SetNamespaceRegistry(r *namespace.Registry) {
	b.namespaces = r
}

// NamespaceRegistry returns the bound registry, creating one with the
// builtin namespaces on first use.
func (b *Base) NamespaceRegistry() *namespace.Registry {
	if b.namespaces == nil {
		b.namespaces = namespace.NewRegistry()
	}
	return b.namespaces
}

// FindNodeIdentifiers delegates to the bound search engine. The result never
// exceeds the query limit, whatever the engine returns.
func (b *Base) FindNodeIdentifiers(ctx context.Context, q Query) ([]string, error) {
	if b.search == nil {
		return nil, crerr.InvalidArgument("no search engine bound to backend")
	}
	ids, err := b.search.FindNodeIdentifiers(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search workspace %s: %w", b.WorkspaceName(), err)
	}
	if limit := q.Limit(); limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}
