package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/afoeder/typo3cr/internal/nodetype"
	"github.com/afoeder/typo3cr/internal/schema"
)

// Result holds the class schemas and node types declared in one CUE value.
type Result struct {
	Classes   []*schema.ClassSchema
	NodeTypes []NodeTypeDecl
}

// Compile extracts every class under "class" and every node type under
// "nodetype" of v, in declaration order.
func Compile(v cue.Value) (*Result, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	result := &Result{}

	if classesVal := v.LookupPath(cue.ParsePath("class")); classesVal.Exists() {
		iter, err := classesVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			cs, err := CompileClass(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("class %s: %w", iter.Selector().Unquoted(), err)
			}
			result.Classes = append(result.Classes, cs)
		}
	}

	if typesVal := v.LookupPath(cue.ParsePath("nodetype")); typesVal.Exists() {
		iter, err := typesVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			decl, err := CompileNodeType(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("nodetype %s: %w", iter.Selector().Unquoted(), err)
			}
			result.NodeTypes = append(result.NodeTypes, decl)
		}
	}

	return result, nil
}

// Schemas returns a registry of the compiled class schemas.
func (r *Result) Schemas() (*schema.Registry, error) {
	return schema.NewRegistry(r.Classes...)
}

// NodeTypeManager builds the declared node types. Every class also gets the
// node type it is stored as (see schema.NodeTypeFromClassName) unless that
// type is declared explicitly.
func (r *Result) NodeTypeManager(prefix string) (*nodetype.Manager, error) {
	decls := append([]NodeTypeDecl{}, r.NodeTypes...)
	declared := make(map[string]bool, len(decls))
	for _, d := range decls {
		declared[d.Name] = true
	}
	for _, cs := range r.Classes {
		name := schema.NodeTypeFromClassName(prefix, cs.ClassName)
		if !declared[name] {
			decls = append(decls, NodeTypeDecl{Name: name})
			declared[name] = true
		}
	}
	return BuildNodeTypes(decls)
}
