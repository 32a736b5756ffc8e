package storage

import (
	"context"
	"fmt"

	"github.com/afoeder/typo3cr/internal/node"
)

// NodeGetter loads a node by identifier.
type NodeGetter interface {
	GetNode(ctx context.Context, identifier string) (*node.Node, error)
}

// NodeIterator resolves identifiers to nodes one at a time, on demand.
//
//	it := backend.GetNodeIterator(ids)
//	for it.Next(ctx) {
//		n := it.Node()
//	}
//	if err := it.Err(); err != nil { ... }
type NodeIterator struct {
	source NodeGetter
	ids    []string
	pos    int
	cur    *node.Node
	err    error
}

// NewNodeIterator creates an iterator over ids backed by source.
func NewNodeIterator(source NodeGetter, ids []string) *NodeIterator {
	return &NodeIterator{source: source, ids: ids}
}

// Next loads the next node. It returns false when the identifiers are
// exhausted or a load failed; Err distinguishes the two.
func (it *NodeIterator) Next(ctx context.Context) bool {
	if it.err != nil || it.pos >= len(it.ids) {
		return false
	}
	id := it.ids[it.pos]
	it.pos++

	n, err := it.source.GetNode(ctx, id)
	if err != nil {
		it.err = fmt.Errorf("load node %s: %w", id, err)
		it.cur = nil
		return false
	}
	it.cur = n
	return true
}

// Node returns the current node.
func (it *NodeIterator) Node() *node.Node { return it.cur }

// Err returns the first load error.
func (it *NodeIterator) Err() error { return it.err }

// Len returns the total number of identifiers.
func (it *NodeIterator) Len() int { return len(it.ids) }

// Position returns how many identifiers were consumed.
func (it *NodeIterator) Position() int { return it.pos }
