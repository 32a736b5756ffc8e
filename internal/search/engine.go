// Package search implements an in-memory storage.Search over roaring bitmaps.
//
// Each workspace keeps postings per node type, per property and per
// (property, canonical value). Constraints on a single selector are evaluated
// as bitmap algebra; equality on non-numeric literals reads the value
// postings directly, every other comparison scans the candidate bitmap.
// Joins are evaluated as nested loops over the selectors' candidate bitmaps.
//
// Results are the primary selector's identifiers, distinct and in document
// order, which is the order nodes were indexed in.
package search

import (
	"context"
	"log/slog"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/node"
	"github.com/afoeder/typo3cr/internal/qom"
	"github.com/afoeder/typo3cr/internal/storage"
)

// Engine is a storage.Search answering queries from an in-memory index.
// It is safe for concurrent use.
type Engine struct {
	mu        sync.RWMutex
	workspace string
	indexes   map[string]*index
	subTypes  func(nodeType string) []string
	logger    *slog.Logger
}

var _ storage.Search = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithSubTypes sets the expansion of a selector's node type into every type
// name it matches. Default: the node type name only.
func WithSubTypes(fn func(nodeType string) []string) Option {
	return func(e *Engine) {
		e.subTypes = fn
	}
}

// WithLogger sets the logger for debug records. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an empty engine searching storage.DefaultWorkspace.
func New(opts ...Option) *Engine {
	e := &Engine{
		workspace: storage.DefaultWorkspace,
		indexes:   make(map[string]*index),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetWorkspaceName selects the workspace searched by FindNodeIdentifiers.
func (e *Engine) SetWorkspaceName(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.workspace = name
}

// WorkspaceName returns the searched workspace.
func (e *Engine) WorkspaceName() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.workspace
}

// Index adds the subtree n to workspace below the indexed node parentID, or
// at root level when parentID is empty. Identifiers must be unique within
// the workspace; a rejected subtree leaves the index unchanged.
func (e *Engine) Index(workspace, parentID string, n *node.Node) error {
	if n == nil {
		return crerr.InvalidArgument("cannot index a nil node")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	ix, ok := e.indexes[workspace]
	if !ok {
		ix = newIndex()
		e.indexes[workspace] = ix
	}

	parent := noParent
	if parentID != "" {
		p, ok := ix.ids[parentID]
		if !ok {
			return crerr.NotFound(parentID).WithDetail("workspace", workspace)
		}
		parent = int(p)
	}
	return ix.add(parent, n)
}

// Len returns the number of nodes indexed in workspace.
func (e *Engine) Len(workspace string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if ix, ok := e.indexes[workspace]; ok {
		return len(ix.docs)
	}
	return 0
}

// FindNodeIdentifiers evaluates q against the selected workspace.
func (e *Engine) FindNodeIdentifiers(ctx context.Context, q storage.Query) ([]string, error) {
	if q == nil || q.Source() == nil {
		return nil, crerr.InvalidArgument("cannot search without source")
	}
	primary, err := qom.PrimarySelector(q.Source())
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	ix, ok := e.indexes[e.workspace]
	if !ok {
		ix = newIndex()
	}
	ev := &evaluation{
		ctx:    ctx,
		engine: e,
		ix:     ix,
		source: q.Source(),
		binds:  q.BindValues(),
	}

	var matches *roaring.Bitmap
	if sel, ok := q.Source().(qom.Selector); ok {
		matches = ev.candidates(sel)
		if c := q.Constraint(); c != nil {
			if matches, err = ev.filter(c, matches); err != nil {
				return nil, err
			}
		}
	} else {
		if matches, err = ev.joined(primary.Name(), q.Constraint()); err != nil {
			return nil, err
		}
	}

	var ids []string
	skip := q.Offset()
	it := matches.Iterator()
	for it.HasNext() {
		d := it.Next()
		if skip > 0 {
			skip--
			continue
		}
		if q.Limit() > 0 && len(ids) >= q.Limit() {
			break
		}
		ids = append(ids, ix.docs[d].identifier)
	}

	e.logger.Debug("query resolved",
		"workspace", e.workspace,
		"matches", matches.GetCardinality(),
		"identifiers", len(ids),
	)
	return ids, nil
}
