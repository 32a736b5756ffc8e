// Package kvstore provides a LevelDB-backed content repository backend.
//
// Node records are JSON documents keyed by workspace and identifier. A second
// key range records document order, from which the in-memory search index
// (internal/search) is rebuilt when the database is opened. Queries are
// answered by that index; subtrees are loaded from LevelDB.
package kvstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/node"
	"github.com/afoeder/typo3cr/internal/nodetype"
	"github.com/afoeder/typo3cr/internal/search"
	"github.com/afoeder/typo3cr/internal/storage"
)

// Key layout. Workspace names and identifiers never contain NUL.
//
//	n\x00<workspace>\x00<identifier>  -> record (JSON)
//	o\x00<workspace>\x00<seq uint64>  -> identifier, in document order
var (
	nodePrefix  = []byte("n\x00")
	orderPrefix = []byte("o\x00")
)

// Store is a storage.Backend persisting nodes in LevelDB and searching them
// through a search.Engine. Writes are serialised; the active workspace is
// shared state and not synchronised.
type Store struct {
	storage.Base

	db     *leveldb.DB
	engine *search.Engine
	types  *nodetype.Manager
	logger *slog.Logger

	mu  sync.Mutex
	seq map[string]uint64 // last document order number per workspace
}

var (
	_ storage.Backend = (*Store)(nil)
	_ storage.Writer  = (*Store)(nil)
)

// record is the stored form of one node. Children are stored as identifiers
// in sibling order.
type record struct {
	Parent     string           `json:"parent,omitempty"`
	Name       string           `json:"name"`
	Type       string           `json:"type"`
	Properties []recordProperty `json:"properties,omitempty"`
	Children   []string         `json:"children,omitempty"`
}

type recordProperty struct {
	Name  string            `json:"name"`
	Type  node.PropertyType `json:"type"`
	Value string            `json:"value"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for debug records. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithNodeTypes makes selectors match the registered subtypes of their node type.
func WithNodeTypes(m *nodetype.Manager) Option {
	return func(s *Store) {
		s.types = m
	}
}

// Open opens or creates a LevelDB database in dir and rebuilds the search
// index from it.
func Open(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := leveldb.OpenFile(dir, &opt.Options{
		Filter: filter.NewBloomFilter(10), // 10 bits/key
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newStore(db, opts)
}

// OpenMemory creates a store on volatile in-memory LevelDB storage.
func OpenMemory(opts ...Option) (*Store, error) {
	db, err := leveldb.Open(lvlstorage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}
	return newStore(db, opts)
}

func newStore(db *leveldb.DB, opts []Option) (*Store, error) {
	s := &Store{
		db:     db,
		logger: slog.Default(),
		seq:    make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}

	engineOpts := []search.Option{search.WithLogger(s.logger)}
	if s.types != nil {
		engineOpts = append(engineOpts, search.WithSubTypes(s.types.SubTypeNames))
	}
	s.engine = search.New(engineOpts...)

	if err := s.reindex(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to rebuild search index: %w", err)
	}
	s.SetSearchEngine(s.engine)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Engine returns the search engine bound at open.
func (s *Store) Engine() *search.Engine {
	return s.engine
}

// reindex feeds every stored node to the search engine in document order,
// so parents are indexed before their children.
func (s *Store) reindex() error {
	it := s.db.NewIterator(util.BytesPrefix(orderPrefix), nil)
	defer it.Release()

	nodes := 0
	for it.Next() {
		ws, seq, err := parseOrderKey(it.Key())
		if err != nil {
			return err
		}
		id := string(it.Value())

		rec, err := s.load(ws, id)
		if err != nil {
			return fmt.Errorf("load %s/%s: %w", ws, id, err)
		}
		if err := s.engine.Index(ws, rec.Parent, rec.toNode(id)); err != nil {
			return fmt.Errorf("index %s/%s: %w", ws, id, err)
		}
		s.seq[ws] = seq
		nodes++
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("iterate document order: %w", err)
	}
	s.logger.Debug("search index rebuilt", "nodes", nodes, "workspaces", len(s.seq))
	return nil
}

// AddNode stores n and its subtree in the active workspace below the node
// parentID, after the parent's existing children. An empty parentID adds a
// root level node. The subtree is written in one batch.
func (s *Store) AddNode(ctx context.Context, parentID string, n *node.Node) error {
	if n == nil {
		return crerr.InvalidArgument("cannot add a nil node")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := s.WorkspaceName()

	b := &batchWriter{
		store:     s,
		batch:     new(leveldb.Batch),
		workspace: ws,
		seq:       s.seq[ws],
		seen:      make(map[string]bool),
	}

	if parentID != "" {
		parent, err := s.load(ws, parentID)
		if err != nil {
			return fmt.Errorf("add node below %s: %w", parentID, err)
		}
		parent.Children = append(parent.Children, n.Identifier)
		if err := b.put(parentID, parent); err != nil {
			return err
		}
	}
	if err := b.write(parentID, n); err != nil {
		return fmt.Errorf("add node %s: %w", n.Identifier, err)
	}

	if err := s.db.Write(b.batch, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("add node %s: write batch: %w", n.Identifier, err)
	}
	s.seq[ws] = b.seq

	// The batch was validated like the index validates, so indexing the
	// canonical subtree cannot be rejected.
	if err := s.engine.Index(ws, parentID, b.canonical); err != nil {
		return fmt.Errorf("add node %s: index: %w", n.Identifier, err)
	}

	s.logger.Debug("subtree added", "workspace", ws, "root", n.Identifier, "nodes", len(b.seen))
	return nil
}

// batchWriter collects the records of one subtree.
type batchWriter struct {
	store     *Store
	batch     *leveldb.Batch
	workspace string
	seq       uint64
	seen      map[string]bool
	canonical *node.Node
}

func (b *batchWriter) write(parentID string, n *node.Node) error {
	root, err := b.writeNode(parentID, n)
	if err != nil {
		return err
	}
	b.canonical = root
	return nil
}

// writeNode adds n's records and returns the canonical copy of the subtree.
func (b *batchWriter) writeNode(parentID string, n *node.Node) (*node.Node, error) {
	if n.Identifier == "" {
		return nil, crerr.InvalidArgument("node %q of type %s has no identifier", n.Name, n.PrimaryType)
	}
	if n.PrimaryType == "" {
		return nil, crerr.InvalidArgument("node %s has no primary type", n.Identifier)
	}
	exists, err := b.store.db.Has(nodeKey(b.workspace, n.Identifier), nil)
	if err != nil {
		return nil, fmt.Errorf("check identifier: %w", err)
	}
	if exists || b.seen[n.Identifier] {
		return nil, crerr.New(crerr.CodeDuplicateIdentifier,
			"node %s already exists in workspace %s", n.Identifier, b.workspace).
			WithDetail("identifier", n.Identifier)
	}
	b.seen[n.Identifier] = true

	canonical := node.New(n.Identifier, n.Name, n.PrimaryType)
	rec := &record{Parent: parentID, Name: canonical.Name, Type: n.PrimaryType}
	names := make(map[string]bool, len(n.Properties))
	for _, p := range n.Properties {
		name := node.NormalizeName(p.Name)
		if names[name] {
			return nil, crerr.InvalidArgument("node %s carries property %s twice", n.Identifier, name)
		}
		names[name] = true

		v, err := node.Canonicalize(p.Value, p.Type)
		if err != nil {
			return nil, crerr.InvalidArgument("property %s of node %s: %v", name, n.Identifier, err).
				WithDetail("property", name)
		}
		rec.Properties = append(rec.Properties, recordProperty{Name: name, Type: p.Type, Value: v.String()})
		canonical.AddProperty(node.NewProperty(name, p.Type, v))
	}

	b.seq++
	b.batch.Put(orderKey(b.workspace, b.seq), []byte(n.Identifier))

	for _, c := range n.Children {
		child, err := b.writeNode(n.Identifier, c)
		if err != nil {
			return nil, err
		}
		rec.Children = append(rec.Children, c.Identifier)
		canonical.AddChild(child)
	}
	if err := b.put(n.Identifier, rec); err != nil {
		return nil, err
	}
	return canonical, nil
}

func (b *batchWriter) put(id string, rec *record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal node %s: %w", id, err)
	}
	b.batch.Put(nodeKey(b.workspace, id), data)
	return nil
}

// GetNode loads the subtree rooted at the identified node of the active
// workspace. Returns a NOT_FOUND error when the workspace has no such node.
func (s *Store) GetNode(ctx context.Context, identifier string) (*node.Node, error) {
	return s.loadTree(ctx, s.WorkspaceName(), identifier)
}

func (s *Store) loadTree(ctx context.Context, ws, id string) (*node.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec, err := s.load(ws, id)
	if err != nil {
		return nil, err
	}
	n := rec.toNode(id)
	for _, childID := range rec.Children {
		child, err := s.loadTree(ctx, ws, childID)
		if err != nil {
			return nil, fmt.Errorf("load child of %s: %w", id, err)
		}
		n.AddChild(child)
	}
	return n, nil
}

// GetNodeIterator resolves identifiers lazily through GetNode.
func (s *Store) GetNodeIterator(identifiers []string) *storage.NodeIterator {
	return storage.NewNodeIterator(s, identifiers)
}

func (s *Store) load(ws, id string) (*record, error) {
	data, err := s.db.Get(nodeKey(ws, id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, crerr.NotFound(id).WithDetail("workspace", ws)
	}
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", id, err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode node %s: %w", id, err)
	}
	return &rec, nil
}

// toNode returns the record as a node without children.
func (r *record) toNode(id string) *node.Node {
	n := node.New(id, r.Name, r.Type)
	for _, p := range r.Properties {
		n.AddProperty(node.NewProperty(p.Name, p.Type, node.NewValue(p.Value)))
	}
	return n
}

func nodeKey(ws, id string) []byte {
	key := make([]byte, 0, len(nodePrefix)+len(ws)+1+len(id))
	key = append(key, nodePrefix...)
	key = append(key, ws...)
	key = append(key, 0)
	return append(key, id...)
}

func orderKey(ws string, seq uint64) []byte {
	key := make([]byte, 0, len(orderPrefix)+len(ws)+1+8)
	key = append(key, orderPrefix...)
	key = append(key, ws...)
	key = append(key, 0)
	return binary.BigEndian.AppendUint64(key, seq)
}

func parseOrderKey(key []byte) (string, uint64, error) {
	rest := bytes.TrimPrefix(key, orderPrefix)
	if len(rest) < 9 || rest[len(rest)-9] != 0 {
		return "", 0, fmt.Errorf("malformed order key %q", key)
	}
	return string(rest[:len(rest)-9]), binary.BigEndian.Uint64(rest[len(rest)-8:]), nil
}
