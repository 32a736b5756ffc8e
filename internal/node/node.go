// Package node defines the hierarchical, typed node model of the content
// repository: nodes with an identifier, a primary type, ordered scalar
// properties and ordered named children.
//
// Collections and references cannot be stored as properties, so they are
// written as synthetic proxy nodes. Kind classifies a node from its primary
// type so consumers switch on the tag instead of comparing type names at every
// call site.
package node

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Well-known names of the persistence namespace.
const (
	// DefaultNamespacePrefix is the prefix of all names written by the persistence layer.
	DefaultNamespacePrefix = "flow3"

	// ArrayProxyType is the primary type of nodes encoding a collection.
	ArrayProxyType = "flow3:arrayPropertyProxy"

	// ObjectProxyType is the primary type of nodes encoding a reference to another aggregate.
	ObjectProxyType = "flow3:objectPropertyProxy"

	// TargetLocalName is the local name of the reference property of an object proxy.
	TargetLocalName = "target"
)

// Kind tags a node as plain content or as one of the proxy encodings.
type Kind int

const (
	// KindPlain is a regular content node mapped to an object.
	KindPlain Kind = iota
	// KindArrayProxy encodes a keyed collection.
	KindArrayProxy
	// KindObjectProxy encodes a reference to another node.
	KindObjectProxy
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindArrayProxy:
		return "array-proxy"
	case KindObjectProxy:
		return "object-proxy"
	default:
		return "unknown"
	}
}

// ClassifyKind returns the Kind for a primary type name.
func ClassifyKind(primaryType string) Kind {
	switch primaryType {
	case ArrayProxyType:
		return KindArrayProxy
	case ObjectProxyType:
		return KindObjectProxy
	default:
		return KindPlain
	}
}

// Property is a named scalar value with its declared storage type.
type Property struct {
	Name  string
	Type  PropertyType
	Value Value
}

// NewProperty creates a property with a normalized name.
func NewProperty(name string, t PropertyType, v Value) Property {
	return Property{Name: NormalizeName(name), Type: t, Value: v}
}

// Node is an entry of the hierarchical store.
//
// Properties and Children keep the order reported by the backend. Nodes are
// read-only to the mapping and query layers. A subtree is loaded as a whole;
// references to other aggregates are stored as identifiers, never as pointers.
//
// Create nodes with New: a Node literal carries no Kind and reports
// KindPlain.
type Node struct {
	Identifier  string
	Name        string
	PrimaryType string
	Properties  []Property
	Children    []*Node

	kind Kind
}

// New creates a node with a normalized name.
func New(identifier, name, primaryType string) *Node {
	return &Node{
		Identifier:  identifier,
		Name:        NormalizeName(name),
		PrimaryType: primaryType,
		kind:        ClassifyKind(primaryType),
	}
}

// Kind returns the proxy tag assigned when the node was created.
func (n *Node) Kind() Kind {
	return n.kind
}

// AddProperty appends a property and returns the node for chaining.
func (n *Node) AddProperty(p Property) *Node {
	n.Properties = append(n.Properties, p)
	return n
}

// AddChild appends a child node and returns the node for chaining.
func (n *Node) AddChild(child *Node) *Node {
	n.Children = append(n.Children, child)
	return n
}

// HasProperty reports whether the node carries the named property.
func (n *Node) HasProperty(name string) bool {
	_, ok := n.Property(name)
	return ok
}

// Property returns the named property.
func (n *Node) Property(name string) (Property, bool) {
	name = NormalizeName(name)
	for _, p := range n.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// HasNode reports whether the node has a child with the given name.
func (n *Node) HasNode(name string) bool {
	return n.Node(name) != nil
}

// Node returns the first child with the given name, or nil.
func (n *Node) Node(name string) *Node {
	name = NormalizeName(name)
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Walk calls fn for the node and every descendant in document order.
// Walking stops at the first error.
func (n *Node) Walk(fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeName returns name in Unicode NFC so names compare byte-wise.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// SplitName splits a qualified name into namespace prefix and local name.
// Unqualified names have an empty prefix.
func SplitName(name string) (prefix, local string) {
	prefix, local, found := strings.Cut(name, ":")
	if !found {
		return "", name
	}
	return prefix, local
}

// QualifiedName joins a prefix and local name.
func QualifiedName(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}
