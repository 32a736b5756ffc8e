package compiler

import (
	"sort"

	"cuelang.org/go/cue"

	"github.com/afoeder/typo3cr/internal/nodetype"
)

// NodeTypeDecl is a node type as declared in CUE, before its supertypes are
// resolved.
type NodeTypeDecl struct {
	Name       string
	SuperTypes []string
}

// CompileNodeType parses a CUE node type declaration:
//
//	nodetype: "flow3:Blog_Post": supertypes: ["flow3:Content"]
func CompileNodeType(v cue.Value) (NodeTypeDecl, error) {
	if err := v.Err(); err != nil {
		return NodeTypeDecl{}, formatCUEError(err)
	}

	var decl NodeTypeDecl
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		decl.Name = labels[len(labels)-1].Unquoted()
	}

	superVal := v.LookupPath(cue.ParsePath("supertypes"))
	if !superVal.Exists() {
		return decl, nil
	}
	iter, err := superVal.List()
	if err != nil {
		return NodeTypeDecl{}, formatCUEError(err)
	}
	for iter.Next() {
		name, err := iter.Value().String()
		if err != nil {
			return NodeTypeDecl{}, formatCUEError(err)
		}
		decl.SuperTypes = append(decl.SuperTypes, name)
	}
	return decl, nil
}

// BuildNodeTypes resolves declarations into a node type manager. Supertypes
// must be declared; inheritance cycles are rejected.
func BuildNodeTypes(decls []NodeTypeDecl) (*nodetype.Manager, error) {
	if cycles := AnalyzeCycles(decls); len(cycles) > 0 {
		return nil, &CompileError{Field: "nodetype." + cycles[0].Path[0], Message: cycles[0].Message}
	}

	byName := make(map[string]NodeTypeDecl, len(decls))
	for _, d := range decls {
		byName[d.Name] = d
	}

	m := nodetype.NewManager()
	built := make(map[string]*nodetype.NodeType, len(decls))

	var build func(name string) (*nodetype.NodeType, error)
	build = func(name string) (*nodetype.NodeType, error) {
		if t, ok := built[name]; ok {
			return t, nil
		}
		d, ok := byName[name]
		if !ok {
			return nil, &CompileError{Field: "nodetype." + name, Message: "undeclared node type"}
		}
		supers := make([]*nodetype.NodeType, 0, len(d.SuperTypes))
		for _, s := range d.SuperTypes {
			st, err := build(s)
			if err != nil {
				return nil, err
			}
			supers = append(supers, st)
		}
		t, err := nodetype.New(name, supers...)
		if err != nil {
			return nil, err
		}
		if err := m.Register(t); err != nil {
			return nil, err
		}
		built[name] = t
		return t, nil
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := build(name); err != nil {
			return nil, err
		}
	}
	return m, nil
}
