package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/afoeder/typo3cr/internal/schema"
)

// CompileClass parses a CUE value into a ClassSchema.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value is the class struct itself; its label is the class name and
// its properties keep their declaration order:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`class: "Blog.Post": properties: { title: string, author: "Person" }`)
//	cs, err := CompileClass(v.LookupPath(cue.MakePath(cue.Str("class"), cue.Str("Blog.Post"))))
func CompileClass(v cue.Value) (*schema.ClassSchema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	cs := &schema.ClassSchema{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		cs.ClassName = labels[len(labels)-1].Unquoted()
	}

	propsVal := v.LookupPath(cue.ParsePath("properties"))
	if !propsVal.Exists() {
		return cs, nil // a class without state is valid
	}

	iter, err := propsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		typeName, err := extractTypeName(iter.Value())
		if err != nil {
			return nil, err
		}
		cs.Properties = append(cs.Properties, schema.PropertyDef{
			Name: iter.Selector().Unquoted(),
			Type: typeName,
		})
	}
	return cs, nil
}

// extractTypeName converts a CUE property declaration to a schema type name.
//
// A concrete string names the type explicitly ("DateTime", "Blog.Post").
// Otherwise the CUE kind decides: string, int, float, bool and lists map to
// the scalar and array types. Structs are rejected: object-valued properties
// name their class.
func extractTypeName(v cue.Value) (string, error) {
	if v.IsConcrete() && v.Kind() == cue.StringKind {
		s, err := v.String()
		if err != nil {
			return "", formatCUEError(err)
		}
		if s == "" {
			return "", &CompileError{Field: "type", Message: "type name must not be empty", Pos: v.Pos()}
		}
		return s, nil
	}

	switch v.IncompleteKind() {
	case cue.StringKind:
		return schema.TypeString, nil
	case cue.IntKind:
		return schema.TypeInteger, nil
	case cue.FloatKind, cue.NumberKind:
		return schema.TypeFloat, nil
	case cue.BoolKind:
		return schema.TypeBoolean, nil
	case cue.ListKind:
		return schema.TypeArray, nil
	case cue.StructKind:
		return "", &CompileError{
			Field:   "type",
			Message: "inline structs are not supported - name the class instead",
			Pos:     v.Pos(),
		}
	default:
		return "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
