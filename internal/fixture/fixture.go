// Package fixture loads workspace fixtures from YAML and imports them into a
// storage backend.
//
// A fixture declares a tree of nodes plus optional queries with their
// expected results:
//
//	name: blog
//	description: Posts and their authors
//	workspace: live
//	nodes:
//	  - name: flow3:blog
//	    type: flow3:Blog
//	    identifier: blog
//	    children:
//	      - name: flow3:post1
//	        type: flow3:Blog_Post
//	        properties:
//	          flow3:title: Hello
//	          flow3:published: { type: Date, value: "2024-05-01T10:00:00Z" }
//	        arrays:
//	          flow3:tags: [go, cms]
//	        references:
//	          flow3:author: u1
//	queries:
//	  - name: posts by ada
//	    type: flow3:Blog_Post
//	    where: "title LIKE 'H%'"
//	    expect: [p1]
//
// Properties, arrays and references keep their declaration order. Scalar
// shorthands are typed by their YAML tag: integers are Long, floats Double,
// booleans Boolean and everything else String.
package fixture

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/afoeder/typo3cr/internal/node"
)

// Fixture is a workspace tree with the queries it is expected to answer.
type Fixture struct {
	// Name uniquely identifies this fixture.
	Name string `yaml:"name"`

	// Description explains what the fixture models.
	Description string `yaml:"description,omitempty"`

	// Workspace is the workspace the nodes are imported into. Empty means
	// the backend's active workspace.
	Workspace string `yaml:"workspace,omitempty"`

	// Nodes are the root level nodes, in document order.
	Nodes []NodeSpec `yaml:"nodes"`

	// Queries are checked by Verify after import.
	Queries []QuerySpec `yaml:"queries,omitempty"`
}

// NodeSpec declares one node and its subtree.
type NodeSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	// Identifier is generated when empty.
	Identifier string `yaml:"identifier,omitempty"`

	Properties Properties `yaml:"properties,omitempty"`

	// Arrays become array proxy children holding the listed scalars.
	Arrays Arrays `yaml:"arrays,omitempty"`

	// References become object proxy children targeting the identifiers.
	References References `yaml:"references,omitempty"`

	Children []NodeSpec `yaml:"children,omitempty"`
}

// QuerySpec is a single selector query with its expected identifiers.
type QuerySpec struct {
	Name   string   `yaml:"name"`
	Type   string   `yaml:"type"`
	Where  string   `yaml:"where,omitempty"`
	Limit  int      `yaml:"limit,omitempty"`
	Offset int      `yaml:"offset,omitempty"`
	Expect []string `yaml:"expect"`
}

// PropertySpec is one typed property value.
type PropertySpec struct {
	Name  string
	Type  node.PropertyType
	Value string
}

// Properties is an ordered property mapping.
type Properties []PropertySpec

// UnmarshalYAML reads a mapping of name to either a scalar shorthand or a
// {type, value} mapping.
func (p *Properties) UnmarshalYAML(value *yaml.Node) error {
	return eachPair(value, func(key string, v *yaml.Node) error {
		spec, err := decodeProperty(key, v)
		if err != nil {
			return err
		}
		*p = append(*p, spec)
		return nil
	})
}

// ArraySpec is one collection of scalar entries.
type ArraySpec struct {
	Name    string
	Entries []PropertySpec
}

// Arrays is an ordered mapping of array names to their entries.
type Arrays []ArraySpec

// UnmarshalYAML reads a mapping of name to a sequence of scalars. Entries are
// keyed by their position.
func (a *Arrays) UnmarshalYAML(value *yaml.Node) error {
	return eachPair(value, func(key string, v *yaml.Node) error {
		if v.Kind != yaml.SequenceNode {
			return fmt.Errorf("line %d: array %s must be a sequence", v.Line, key)
		}
		spec := ArraySpec{Name: key}
		for i, item := range v.Content {
			entry, err := decodeProperty(fmt.Sprint(i), item)
			if err != nil {
				return err
			}
			spec.Entries = append(spec.Entries, entry)
		}
		*a = append(*a, spec)
		return nil
	})
}

// ReferenceSpec names the node a reference points to.
type ReferenceSpec struct {
	Name   string
	Target string
}

// References is an ordered mapping of reference names to target identifiers.
type References []ReferenceSpec

// UnmarshalYAML reads a mapping of name to target identifier.
func (r *References) UnmarshalYAML(value *yaml.Node) error {
	return eachPair(value, func(key string, v *yaml.Node) error {
		if v.Kind != yaml.ScalarNode || v.Value == "" {
			return fmt.Errorf("line %d: reference %s must name a target identifier", v.Line, key)
		}
		*r = append(*r, ReferenceSpec{Name: key, Target: v.Value})
		return nil
	})
}

func eachPair(value *yaml.Node, fn func(key string, v *yaml.Node) error) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if err := fn(value.Content[i].Value, value.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func decodeProperty(name string, v *yaml.Node) (PropertySpec, error) {
	switch v.Kind {
	case yaml.ScalarNode:
		t := node.TypeString
		switch v.ShortTag() {
		case "!!int":
			t = node.TypeLong
		case "!!float":
			t = node.TypeDouble
		case "!!bool":
			t = node.TypeBoolean
		}
		return PropertySpec{Name: name, Type: t, Value: v.Value}, nil

	case yaml.MappingNode:
		var typed struct {
			Type  string `yaml:"type"`
			Value string `yaml:"value"`
		}
		if err := v.Decode(&typed); err != nil {
			return PropertySpec{}, fmt.Errorf("property %s: %w", name, err)
		}
		t, err := node.ParsePropertyType(typed.Type)
		if err != nil {
			return PropertySpec{}, fmt.Errorf("line %d: property %s: %w", v.Line, name, err)
		}
		return PropertySpec{Name: name, Type: t, Value: typed.Value}, nil

	default:
		return PropertySpec{}, fmt.Errorf("line %d: property %s must be a scalar or {type, value}", v.Line, name)
	}
}

// Load reads and parses a fixture YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Parse(data)
}

// Parse parses fixture YAML.
func Parse(data []byte) (*Fixture, error) {
	var fx Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&fx); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateFixture(&fx); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &fx, nil
}

// validateFixture checks that required fields are present and valid.
func validateFixture(fx *Fixture) error {
	if fx.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(fx.Nodes) == 0 {
		return fmt.Errorf("nodes list is required and must be non-empty")
	}
	for i := range fx.Nodes {
		if err := validateNode(fmt.Sprintf("nodes[%d]", i), &fx.Nodes[i]); err != nil {
			return err
		}
	}
	for i, q := range fx.Queries {
		if q.Name == "" {
			return fmt.Errorf("queries[%d]: name is required", i)
		}
		if q.Type == "" {
			return fmt.Errorf("queries[%d]: type is required", i)
		}
		if q.Limit < 0 || q.Offset < 0 {
			return fmt.Errorf("queries[%d]: limit and offset must not be negative", i)
		}
	}
	return nil
}

func validateNode(path string, n *NodeSpec) error {
	if n.Name == "" {
		return fmt.Errorf("%s: name is required", path)
	}
	if n.Type == "" {
		return fmt.Errorf("%s: type is required", path)
	}
	for i := range n.Children {
		if err := validateNode(fmt.Sprintf("%s.children[%d]", path, i), &n.Children[i]); err != nil {
			return err
		}
	}
	return nil
}
