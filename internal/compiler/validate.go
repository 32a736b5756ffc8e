package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/afoeder/typo3cr/internal/schema"
)

// Validation error codes (E100-E199)
const (
	// Class errors (E101-E109)
	ErrClassNameInvalid    = "E101" // class name is not a dotted identifier
	ErrPropertyNameInvalid = "E102" // property name is not an identifier
	ErrDuplicateProperty   = "E103" // property declared twice
	ErrUnknownClass        = "E104" // object property names an undeclared class
	ErrUnsupportedType     = "E105" // lowercase type name that is not a scalar

	// Node type errors (E110-E119)
	ErrNodeTypeNameInvalid = "E110" // node type is not prefix:LocalName
	ErrUnknownSuperType    = "E111" // supertype is not declared
	ErrSuperTypeCycle      = "E112" // inheritance cycle
	ErrDuplicateSuperType  = "E113" // supertype listed twice
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var (
	classNamePattern    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*(\.[A-Za-z][A-Za-z0-9]*)*$`)
	propertyNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	nodeTypePattern     = regexp.MustCompile(`^[a-z][a-z0-9]*:[A-Za-z][A-Za-z0-9_]*$`)
)

// Validate checks a compiled result for consistency.
// Returns all errors found (does not fail-fast).
func Validate(r *Result) []ValidationError {
	var errs []ValidationError

	classes := make(map[string]bool, len(r.Classes))
	for _, cs := range r.Classes {
		classes[cs.ClassName] = true
	}
	for _, cs := range r.Classes {
		errs = append(errs, validateClass(cs, classes)...)
	}

	declared := make(map[string]bool, len(r.NodeTypes))
	for _, d := range r.NodeTypes {
		declared[d.Name] = true
	}
	for _, d := range r.NodeTypes {
		errs = append(errs, validateNodeType(d, declared)...)
	}

	for _, c := range AnalyzeCycles(r.NodeTypes) {
		errs = append(errs, ValidationError{
			Field:   "nodetype." + c.Path[0],
			Message: c.Message,
			Code:    ErrSuperTypeCycle,
		})
	}
	return errs
}

func validateClass(cs *schema.ClassSchema, classes map[string]bool) []ValidationError {
	var errs []ValidationError
	field := "class." + cs.ClassName

	if !classNamePattern.MatchString(cs.ClassName) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("invalid class name %q", cs.ClassName),
			Code:    ErrClassNameInvalid,
		})
	}

	seen := make(map[string]bool, len(cs.Properties))
	for i, p := range cs.Properties {
		path := fmt.Sprintf("%s.properties[%d]", field, i)

		if !propertyNamePattern.MatchString(p.Name) {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("invalid property name %q", p.Name),
				Code:    ErrPropertyNameInvalid,
			})
		}
		if seen[p.Name] {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("duplicate property name: %q", p.Name),
				Code:    ErrDuplicateProperty,
			})
		}
		seen[p.Name] = true

		if p.Category() != schema.CategoryObject {
			continue
		}
		// lowercase names are reserved for scalar types
		if first := p.Type[:1]; strings.ToLower(first) == first && strings.ToUpper(first) != first {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("unsupported type %q for property %q", p.Type, p.Name),
				Code:    ErrUnsupportedType,
			})
			continue
		}
		if !classes[p.Type] {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("property %q references undeclared class %q", p.Name, p.Type),
				Code:    ErrUnknownClass,
			})
		}
	}
	return errs
}

func validateNodeType(d NodeTypeDecl, declared map[string]bool) []ValidationError {
	var errs []ValidationError
	field := "nodetype." + d.Name

	if !nodeTypePattern.MatchString(d.Name) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("invalid node type name %q, want prefix:LocalName", d.Name),
			Code:    ErrNodeTypeNameInvalid,
		})
	}

	seen := make(map[string]bool, len(d.SuperTypes))
	for i, s := range d.SuperTypes {
		path := fmt.Sprintf("%s.supertypes[%d]", field, i)
		if seen[s] {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("supertype %q listed twice", s),
				Code:    ErrDuplicateSuperType,
			})
		}
		seen[s] = true
		if !declared[s] {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("undeclared supertype %q", s),
				Code:    ErrUnknownSuperType,
			})
		}
	}
	return errs
}
