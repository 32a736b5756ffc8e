// Package nodetype models primary node types and their inheritance.
//
// A NodeType is immutable once created. Search engines consult the Manager so
// that a selector on a type also matches nodes of its sub types.
package nodetype

import (
	"sort"

	"github.com/afoeder/typo3cr/internal/crerr"
)

// NodeType is a named node type with any number of declared super types.
type NodeType struct {
	name               string
	declaredSuperTypes []*NodeType
}

// New creates a node type. Super types are kept in declaration order.
func New(name string, superTypes ...*NodeType) (*NodeType, error) {
	if name == "" {
		return nil, crerr.InvalidArgument("node type name must not be empty")
	}
	for i, st := range superTypes {
		if st == nil {
			return nil, crerr.InvalidArgument("super type %d of %s is nil", i, name)
		}
	}
	return &NodeType{
		name:               name,
		declaredSuperTypes: append([]*NodeType(nil), superTypes...),
	}, nil
}

// Name returns the qualified type name.
func (t *NodeType) Name() string { return t.name }

// DeclaredSuperTypes returns a copy of the direct super types.
func (t *NodeType) DeclaredSuperTypes() []*NodeType {
	return append([]*NodeType(nil), t.declaredSuperTypes...)
}

// IsOfType reports whether t is name or inherits from it, directly or transitively.
func (t *NodeType) IsOfType(name string) bool {
	if t.name == name {
		return true
	}
	for _, st := range t.declaredSuperTypes {
		if st.IsOfType(name) {
			return true
		}
	}
	return false
}

// Manager is a registry of node types.
type Manager struct {
	types map[string]*NodeType
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{types: make(map[string]*NodeType)}
}

// Register adds t. Registering a second type with the same name fails.
func (m *Manager) Register(t *NodeType) error {
	if existing, ok := m.types[t.name]; ok && existing != t {
		return crerr.InvalidArgument("node type %s is already registered", t.name)
	}
	m.types[t.name] = t
	return nil
}

// HasNodeType reports whether name is registered.
func (m *Manager) HasNodeType(name string) bool {
	_, ok := m.types[name]
	return ok
}

// NodeType returns the registered type called name.
func (m *Manager) NodeType(name string) (*NodeType, error) {
	t, ok := m.types[name]
	if !ok {
		return nil, crerr.New(crerr.CodeNotFound, "no node type %s", name).WithDetail("nodeType", name)
	}
	return t, nil
}

// SubTypeNames returns name and every registered type inheriting from it, sorted.
// An unregistered name yields just itself.
func (m *Manager) SubTypeNames(name string) []string {
	names := []string{name}
	for n, t := range m.types {
		if n != name && t.IsOfType(name) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Names returns all registered type names, sorted.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.types))
	for n := range m.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
