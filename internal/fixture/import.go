package fixture

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/afoeder/typo3cr/internal/node"
	"github.com/afoeder/typo3cr/internal/storage"
)

// Importer turns fixtures into node trees and writes them.
type Importer struct {
	ids    node.IdentifierGenerator
	logger *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithIdentifierGenerator sets the generator for nodes declared without an
// identifier and for proxy nodes.
//
// Default: node.UUIDv7Generator{}.
func WithIdentifierGenerator(g node.IdentifierGenerator) Option {
	return func(i *Importer) {
		i.ids = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(i *Importer) {
		i.logger = l
	}
}

// NewImporter creates an Importer.
func NewImporter(opts ...Option) *Importer {
	i := &Importer{
		ids:    node.UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Build converts the fixture's node declarations into node trees.
func (i *Importer) Build(fx *Fixture) []*node.Node {
	roots := make([]*node.Node, 0, len(fx.Nodes))
	for _, spec := range fx.Nodes {
		roots = append(roots, i.build(spec))
	}
	return roots
}

func (i *Importer) build(spec NodeSpec) *node.Node {
	id := spec.Identifier
	if id == "" {
		id = i.ids.Generate()
	}
	n := node.New(id, spec.Name, spec.Type)
	for _, p := range spec.Properties {
		n.AddProperty(node.NewProperty(p.Name, p.Type, node.NewValue(p.Value)))
	}
	for _, child := range spec.Children {
		n.AddChild(i.build(child))
	}

	for _, a := range spec.Arrays {
		prefix, _ := node.SplitName(a.Name)
		proxy := node.New(i.ids.Generate(), a.Name, node.ArrayProxyType)
		for _, e := range a.Entries {
			proxy.AddProperty(node.NewProperty(node.QualifiedName(prefix, e.Name), e.Type, node.NewValue(e.Value)))
		}
		n.AddChild(proxy)
	}
	for _, r := range spec.References {
		prefix, _ := node.SplitName(r.Name)
		proxy := node.New(i.ids.Generate(), r.Name, node.ObjectProxyType).
			AddProperty(node.NewProperty(node.QualifiedName(prefix, node.TargetLocalName), node.TypeReference, node.StringValue(r.Target)))
		n.AddChild(proxy)
	}
	return n
}

// Import writes the fixture's root nodes into the active workspace of w, in
// declaration order, and returns their identifiers. A root that fails to
// import stops the import; roots written before it are kept.
func (i *Importer) Import(ctx context.Context, w storage.Writer, fx *Fixture) ([]string, error) {
	roots := i.Build(fx)
	ids := make([]string, 0, len(roots))
	for _, root := range roots {
		if err := w.AddNode(ctx, "", root); err != nil {
			return ids, fmt.Errorf("import %s: %w", root.Name, err)
		}
		ids = append(ids, root.Identifier)
	}
	i.logger.Debug("fixture imported", "fixture", fx.Name, "roots", len(ids))
	return ids, nil
}

// ImportInto switches b to the fixture's workspace, when it names one, and
// imports the fixture there.
func (i *Importer) ImportInto(ctx context.Context, b storage.Store, fx *Fixture) ([]string, error) {
	if fx.Workspace != "" {
		if err := b.SetWorkspaceName(fx.Workspace); err != nil {
			return nil, err
		}
	}
	return i.Import(ctx, b, fx)
}

// Import imports fx with a default Importer.
func Import(ctx context.Context, w storage.Writer, fx *Fixture) ([]string, error) {
	return NewImporter().Import(ctx, w, fx)
}
