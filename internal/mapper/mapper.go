// Package mapper materializes node subtrees into typed object graphs.
//
// Every node is mapped according to the class schema derived from its primary
// type. Within one mapping pass an identity map guarantees a single live
// object per node identifier: the empty instance is registered before any of
// its properties are resolved, so self references and mutual references
// converge on the same, possibly half-built, instance.
//
// Collections are decoded from array proxy nodes into *Collection values.
// References are read from object proxy nodes and resolved through the
// NodeSource, then mapped like any other node.
package mapper

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/identity"
	"github.com/afoeder/typo3cr/internal/namespace"
	"github.com/afoeder/typo3cr/internal/node"
	"github.com/afoeder/typo3cr/internal/schema"
)

// DefaultMaxDepth bounds the recursion of one mapping pass.
const DefaultMaxDepth = 1000

// Dependencies are the collaborators a Mapper calls into.
type Dependencies struct {
	Schemas        ClassSchemas
	Configurations ObjectConfigurations
	Builder        ObjectBuilder
	Session        Session

	// Nodes resolves object proxy targets. Required only when the mapped
	// trees contain references.
	Nodes NodeSource
}

func (d Dependencies) check() error {
	switch {
	case d.Schemas == nil:
		return crerr.InvalidArgument("mapper has no class schemas")
	case d.Configurations == nil:
		return crerr.InvalidArgument("mapper has no object configurations")
	case d.Builder == nil:
		return crerr.InvalidArgument("mapper has no object builder")
	}
	return nil
}

// Mapper maps nodes to objects.
type Mapper struct {
	deps     Dependencies
	prefix   string
	maxDepth int
	logger   *slog.Logger
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithMaxDepth sets the recursion limit of a mapping pass.
//
// Default: 1000 (DefaultMaxDepth). Well-formed graphs bottom out through the
// identity map long before that; the limit catches malformed trees.
func WithMaxDepth(n int) Option {
	return func(m *Mapper) {
		m.maxDepth = n
	}
}

// WithLogger sets the logger for debug records. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Mapper) {
		m.logger = l
	}
}

// WithNamespacePrefix sets the prefix of mapped property and proxy entry names.
// Default: "flow3".
func WithNamespacePrefix(prefix string) Option {
	return func(m *Mapper) {
		m.prefix = prefix
	}
}

// New creates a Mapper.
func New(deps Dependencies, opts ...Option) *Mapper {
	m := &Mapper{
		deps:     deps,
		prefix:   namespace.PersistencePrefix,
		maxDepth: DefaultMaxDepth,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Map maps the aggregate root nodes yielded by it, in input order, and
// registers each object with the session as reconstituted.
//
// All nodes share one fresh identity map. A failure on any node aborts the
// batch: no objects are returned and none are registered with the session.
func (m *Mapper) Map(ctx context.Context, it NodeIterator) ([]Object, error) {
	if m.deps.Session == nil {
		return nil, crerr.InvalidArgument("mapper has no session")
	}
	p := m.NewPass()

	var objects []Object
	for it.Next(ctx) {
		obj, err := p.MapSingleNode(ctx, it.Node())
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}

	for _, obj := range objects {
		m.deps.Session.RegisterReconstitutedObject(obj)
	}
	m.logger.Debug("nodes mapped", "objects", len(objects), "identities", p.identities.Len())
	return objects, nil
}

// MapNodes is Map over a slice.
func (m *Mapper) MapNodes(ctx context.Context, nodes []*node.Node) ([]Object, error) {
	return m.Map(ctx, &sliceIterator{nodes: nodes})
}

// Pass is one mapping pass: the recursion state and identity map shared by
// all nodes mapped through it. A Pass is not safe for concurrent use.
type Pass struct {
	m          *Mapper
	identities *identity.Map[Object]
	depth      int
}

// NewPass starts a mapping pass with an empty identity map.
func (m *Mapper) NewPass() *Pass {
	return &Pass{m: m, identities: identity.New[Object]()}
}

// Identities exposes the identity map of the pass.
func (p *Pass) Identities() *identity.Map[Object] {
	return p.identities
}

func (p *Pass) enter(n *node.Node) error {
	p.depth++
	if p.depth > p.m.maxDepth {
		return crerr.New(crerr.CodeDepthExceeded,
			"mapping depth %d exceeds limit %d at node %s", p.depth, p.m.maxDepth, n.Identifier).
			WithDetail("identifier", n.Identifier)
	}
	return nil
}

func (p *Pass) leave() {
	p.depth--
}

// MapSingleNode returns the object for n, materializing it unless the
// identity map already holds one.
func (p *Pass) MapSingleNode(ctx context.Context, n *node.Node) (Object, error) {
	if p.identities.Has(n.Identifier) {
		return p.identities.Get(n.Identifier)
	}
	if n.Identifier == "" {
		return nil, crerr.InvalidArgument("node %q of type %s has no identifier", n.Name, n.PrimaryType)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deps := p.m.deps
	if p.depth == 0 {
		if err := deps.check(); err != nil {
			return nil, err
		}
	}

	defer p.leave()
	if err := p.enter(n); err != nil {
		return nil, err
	}

	className, err := schema.ClassNameFromNodeType(n.PrimaryType)
	if err != nil {
		return nil, err
	}
	classSchema, err := deps.Schemas.ClassSchema(className)
	if err != nil {
		return nil, fmt.Errorf("map node %s: %w", n.Identifier, err)
	}
	cfg, err := deps.Configurations.ObjectConfiguration(className)
	if err != nil {
		return nil, fmt.Errorf("map node %s: %w", n.Identifier, err)
	}
	obj, err := deps.Builder.CreateEmptyObject(className, cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", className, err)
	}
	if v := reflect.ValueOf(obj); v.Kind() != reflect.Pointer || v.IsNil() {
		return nil, crerr.InvalidArgument("builder returned %T for %s, want a non-nil pointer", obj, className)
	}

	// Registration precedes hydration so cycles resolve to this instance.
	if err := p.identities.Register(obj, n.Identifier); err != nil {
		return nil, err
	}

	values := make([]any, len(classSchema.Properties))
	for i, def := range classSchema.Properties {
		v, err := p.resolveProperty(ctx, n, def)
		if err != nil {
			return nil, fmt.Errorf("map %s.%s of node %s: %w", className, def.Name, n.Identifier, err)
		}
		values[i] = v
	}

	if err := deps.Builder.ReinjectDependencies(obj, cfg); err != nil {
		return nil, fmt.Errorf("reinject dependencies of %s: %w", className, err)
	}
	for i, def := range classSchema.Properties {
		if err := obj.SetProperty(def.Name, values[i]); err != nil {
			return nil, fmt.Errorf("set %s.%s: %w", className, def.Name, err)
		}
	}
	obj.MemorizeCleanState()

	p.m.logger.Debug("node materialized",
		"identifier", n.Identifier,
		"class", className,
		"depth", p.depth,
	)
	return obj, nil
}

// resolveProperty returns the native value of one declared property, or nil
// when the node carries nothing for it.
func (p *Pass) resolveProperty(ctx context.Context, n *node.Node, def schema.PropertyDef) (any, error) {
	name := node.QualifiedName(p.m.prefix, def.Name)

	switch def.Category() {
	case schema.CategoryScalar:
		prop, ok := n.Property(name)
		if !ok {
			return nil, nil
		}
		return node.NativeValue(prop.Value, prop.Type)

	case schema.CategoryArray:
		child := n.Node(name)
		if child == nil {
			return nil, nil
		}
		if child.Kind() != node.KindArrayProxy {
			return nil, crerr.New(crerr.CodeSchemaViolation,
				"array property %s is stored in node %s of type %s, expected %s",
				def.Name, child.Identifier, child.PrimaryType, node.ArrayProxyType).
				WithDetail("property", def.Name)
		}
		col, err := p.DecodeArrayProxy(ctx, child)
		if err != nil {
			return nil, err
		}
		return col, nil

	default:
		child := n.Node(name)
		if child == nil {
			return nil, nil
		}
		if child.Kind() == node.KindObjectProxy {
			return p.ResolveObjectProxy(ctx, child)
		}
		return p.MapSingleNode(ctx, child)
	}
}

// DecodeArrayProxy decodes an array proxy node into a Collection.
//
// Child nodes are decoded first, then scalar properties, each in backend
// order. Keys are the entry names without the namespace prefix; entries
// outside the namespace are ignored.
func (p *Pass) DecodeArrayProxy(ctx context.Context, proxy *node.Node) (*Collection, error) {
	if proxy.Kind() != node.KindArrayProxy {
		return nil, crerr.UnsupportedType(proxy.PrimaryType,
			"cannot be decoded as an array, only "+node.ArrayProxyType+" nodes can")
	}

	defer p.leave()
	if err := p.enter(proxy); err != nil {
		return nil, err
	}

	col := NewCollection()
	for _, child := range proxy.Children {
		key, ok := namespace.StripPrefix(child.Name, p.m.prefix)
		if !ok {
			continue
		}

		var (
			v   any
			err error
		)
		switch child.Kind() {
		case node.KindArrayProxy:
			v, err = p.DecodeArrayProxy(ctx, child)
		case node.KindObjectProxy:
			v, err = p.ResolveObjectProxy(ctx, child)
		default:
			v, err = p.MapSingleNode(ctx, child)
		}
		if err != nil {
			return nil, fmt.Errorf("decode entry %q: %w", key, err)
		}
		col.Set(key, v)
	}

	for _, prop := range proxy.Properties {
		key, ok := namespace.StripPrefix(prop.Name, p.m.prefix)
		if !ok {
			continue
		}
		v, err := node.NativeValue(prop.Value, prop.Type)
		if err != nil {
			return nil, fmt.Errorf("decode entry %q: %w", key, err)
		}
		col.Set(key, v)
	}
	return col, nil
}

// ResolveObjectProxy follows the target reference of an object proxy and
// maps the referenced node through the identity map.
func (p *Pass) ResolveObjectProxy(ctx context.Context, proxy *node.Node) (Object, error) {
	if proxy.Kind() != node.KindObjectProxy {
		return nil, crerr.UnsupportedType(proxy.PrimaryType,
			"cannot be resolved as a reference, only "+node.ObjectProxyType+" nodes can")
	}

	targetName := node.QualifiedName(p.m.prefix, node.TargetLocalName)
	target, ok := proxy.Property(targetName)
	if !ok || target.Value.String() == "" {
		return nil, crerr.New(crerr.CodeSchemaViolation,
			"object proxy %s has no %s reference", proxy.Identifier, targetName).
			WithDetail("identifier", proxy.Identifier)
	}
	id := target.Value.String()

	if p.identities.Has(id) {
		return p.identities.Get(id)
	}
	if p.m.deps.Nodes == nil {
		return nil, crerr.InvalidArgument("cannot resolve reference to %s: no node source bound", id)
	}
	targetNode, err := p.m.deps.Nodes.GetNode(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve reference %s: %w", id, err)
	}

	p.m.logger.Debug("object proxy resolved", "proxy", proxy.Identifier, "target", id)
	return p.MapSingleNode(ctx, targetNode)
}

type sliceIterator struct {
	nodes []*node.Node
	idx   int
	cur   *node.Node
}

func (it *sliceIterator) Next(ctx context.Context) bool {
	if it.idx >= len(it.nodes) {
		return false
	}
	it.cur = it.nodes[it.idx]
	it.idx++
	return true
}

func (it *sliceIterator) Node() *node.Node { return it.cur }

func (it *sliceIterator) Err() error { return nil }
