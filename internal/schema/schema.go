// Package schema holds class schemas: the ordered property declarations that
// drive how a node is decoded into an object.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/node"
)

// Declared property types with a fixed meaning. Any other declared type names
// a class and denotes an object-valued property.
const (
	TypeInteger  = "integer"
	TypeInt      = "int"
	TypeFloat    = "float"
	TypeBoolean  = "boolean"
	TypeString   = "string"
	TypeDateTime = "DateTime"
	TypeArray    = "array"
)

// Category groups declared types by how their values are stored.
type Category int

const (
	// CategoryScalar values are stored as properties.
	CategoryScalar Category = iota
	// CategoryArray values are stored as array proxy children.
	CategoryArray
	// CategoryObject values are stored as owned children or object proxies.
	CategoryObject
)

// PropertyDef declares one property of a class.
type PropertyDef struct {
	Name string
	Type string
}

// Category returns how the property is stored.
func (p PropertyDef) Category() Category {
	switch p.Type {
	case TypeInteger, TypeInt, TypeFloat, TypeBoolean, TypeString, TypeDateTime:
		return CategoryScalar
	case TypeArray:
		return CategoryArray
	default:
		return CategoryObject
	}
}

// ClassSchema is the ordered property declaration of a mapped class.
type ClassSchema struct {
	ClassName  string
	Properties []PropertyDef
}

// Property returns the declaration of the named property.
func (s *ClassSchema) Property(name string) (PropertyDef, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyDef{}, false
}

// Validate checks that property names are non-empty and unique.
func (s *ClassSchema) Validate() error {
	if s.ClassName == "" {
		return crerr.InvalidArgument("class schema has no class name")
	}
	seen := make(map[string]bool, len(s.Properties))
	for _, p := range s.Properties {
		if p.Name == "" {
			return crerr.InvalidArgument("class %s declares a property without name", s.ClassName)
		}
		if p.Type == "" {
			return crerr.InvalidArgument("property %s.%s has no type", s.ClassName, p.Name)
		}
		if seen[p.Name] {
			return crerr.InvalidArgument("property %s.%s declared twice", s.ClassName, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Registry looks up class schemas by class name.
type Registry struct {
	schemas map[string]*ClassSchema
}

// NewRegistry creates a registry holding the given schemas.
func NewRegistry(schemas ...*ClassSchema) (*Registry, error) {
	r := &Registry{schemas: make(map[string]*ClassSchema)}
	for _, s := range schemas {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a schema, replacing any schema of the same class.
func (r *Registry) Register(s *ClassSchema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.schemas[s.ClassName] = s
	return nil
}

// ClassSchema returns the schema of className.
func (r *Registry) ClassSchema(className string) (*ClassSchema, error) {
	s, ok := r.schemas[className]
	if !ok {
		return nil, crerr.New(crerr.CodeNotFound, "no class schema for %s", className).
			WithDetail("class", className)
	}
	return s, nil
}

// ClassNames returns the registered class names, sorted.
func (r *Registry) ClassNames() []string {
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClassNameFromNodeType derives a class name from a primary node type:
// the local part of the type name with "_" read as the class separator.
//
//	flow3:Blog_Post -> Blog.Post
func ClassNameFromNodeType(nodeType string) (string, error) {
	_, local := node.SplitName(nodeType)
	if local == "" {
		return "", crerr.InvalidArgument("node type %q has no local name", nodeType)
	}
	return strings.ReplaceAll(local, "_", "."), nil
}

// NodeTypeFromClassName is the inverse of ClassNameFromNodeType.
func NodeTypeFromClassName(prefix, className string) string {
	return node.QualifiedName(prefix, strings.ReplaceAll(className, ".", "_"))
}

// String renders the schema as "Class{name:type, ...}".
func (s *ClassSchema) String() string {
	parts := make([]string, len(s.Properties))
	for i, p := range s.Properties {
		parts[i] = fmt.Sprintf("%s:%s", p.Name, p.Type)
	}
	return s.ClassName + "{" + strings.Join(parts, ", ") + "}"
}
