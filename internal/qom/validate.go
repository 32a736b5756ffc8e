package qom

import (
	"sort"

	"github.com/afoeder/typo3cr/internal/crerr"
)

// ResolveSelector returns the selector called name. An empty name denotes the
// only selector of a single-selector source and is ambiguous otherwise.
func ResolveSelector(source Source, name string) (Selector, error) {
	sels := Selectors(source)
	if name == "" {
		if len(sels) == 1 {
			return sels[0], nil
		}
		return Selector{}, crerr.InvalidArgument("selector name required: source has %d selectors", len(sels))
	}
	for _, s := range sels {
		if s.Name() == name {
			return s, nil
		}
	}
	return Selector{}, crerr.InvalidArgument("unknown selector %q", name)
}

// Validate checks that source and constraint form a well-formed query:
// selectors are named uniquely and every selector reference resolves.
func Validate(source Source, constraint Constraint) error {
	if source == nil {
		return crerr.InvalidArgument("query has no source")
	}
	if err := validateSource(source, map[string]bool{}); err != nil {
		return err
	}
	if constraint == nil {
		return nil
	}
	return validateConstraint(source, constraint)
}

func validateSource(source Source, seen map[string]bool) error {
	switch s := source.(type) {
	case Selector:
		if s.NodeTypeName == "" {
			return crerr.InvalidArgument("selector %q has no node type", s.SelectorName)
		}
		if seen[s.Name()] {
			return crerr.InvalidArgument("selector name %q used twice", s.Name())
		}
		seen[s.Name()] = true
		return nil

	case *Join:
		if s == nil {
			return crerr.InvalidArgument("nil join")
		}
		if err := validateSource(s.left, seen); err != nil {
			return err
		}
		if err := validateSource(s.right, seen); err != nil {
			return err
		}
		return validateJoinCondition(s)

	default:
		return crerr.InvalidArgument("unsupported source %s", describe(source))
	}
}

func validateJoinCondition(j *Join) error {
	var left, right string
	switch c := j.condition.(type) {
	case EquiJoinCondition:
		if c.Property1Name == "" || c.Property2Name == "" {
			return crerr.InvalidArgument("equi-join condition requires both property names")
		}
		left, right = c.Selector1Name, c.Selector2Name
	case SameNodeJoinCondition:
		left, right = c.Selector1Name, c.Selector2Name
	case ChildNodeJoinCondition:
		left, right = c.ChildSelectorName, c.ParentSelectorName
	case DescendantNodeJoinCondition:
		left, right = c.DescendantSelectorName, c.AncestorSelectorName
	default:
		return crerr.InvalidArgument("unsupported join condition %T", j.condition)
	}

	for _, name := range []string{left, right} {
		if name == "" {
			return crerr.InvalidArgument("join condition %T requires selector names", j.condition)
		}
		if !hasSelector(j, name) {
			return crerr.InvalidArgument("join condition references unknown selector %q", name)
		}
	}
	if hasSelector(j.left, left) == hasSelector(j.left, right) {
		return crerr.InvalidArgument("join condition must relate the left and the right source")
	}
	return nil
}

func hasSelector(source Source, name string) bool {
	for _, s := range Selectors(source) {
		if s.Name() == name {
			return true
		}
	}
	return false
}

func validateConstraint(source Source, c Constraint) error {
	switch c := c.(type) {
	case And:
		return validateAll(source, c.Constraints)
	case Or:
		return validateAll(source, c.Constraints)
	case Not:
		if c.Constraint == nil {
			return crerr.InvalidArgument("NOT requires a constraint")
		}
		return validateConstraint(source, c.Constraint)
	case Comparison:
		if !c.Operator.Valid() {
			return crerr.InvalidArgument("unsupported operator %q", string(c.Operator))
		}
		if err := validateDynamicOperand(source, c.Operand1); err != nil {
			return err
		}
		switch op := c.Operand2.(type) {
		case Literal:
			return nil
		case BindVariableValue:
			if op.Name == "" {
				return crerr.InvalidArgument("bind variable without name")
			}
			return nil
		default:
			return crerr.InvalidArgument("unsupported static operand %T", c.Operand2)
		}
	case PropertyExistence:
		if c.PropertyName == "" {
			return crerr.InvalidArgument("property existence requires a property name")
		}
		_, err := ResolveSelector(source, c.SelectorName)
		return err
	default:
		return crerr.InvalidArgument("unsupported constraint %T", c)
	}
}

func validateAll(source Source, cs []Constraint) error {
	for _, c := range cs {
		if c == nil {
			return crerr.InvalidArgument("nil constraint in composite")
		}
		if err := validateConstraint(source, c); err != nil {
			return err
		}
	}
	return nil
}

func validateDynamicOperand(source Source, op DynamicOperand) error {
	switch op := op.(type) {
	case PropertyValue:
		if op.PropertyName == "" {
			return crerr.InvalidArgument("property value requires a property name")
		}
		_, err := ResolveSelector(source, op.SelectorName)
		return err
	case NodeLocalName:
		_, err := ResolveSelector(source, op.SelectorName)
		return err
	default:
		return crerr.InvalidArgument("unsupported dynamic operand %T", op)
	}
}

// BindVariableNames returns the sorted, distinct names of all bind variables
// in the constraint. They form the closed variable set of a prepared query.
func BindVariableNames(c Constraint) []string {
	seen := map[string]bool{}
	collectBindVariables(c, seen)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectBindVariables(c Constraint, seen map[string]bool) {
	switch c := c.(type) {
	case And:
		for _, sub := range c.Constraints {
			collectBindVariables(sub, seen)
		}
	case Or:
		for _, sub := range c.Constraints {
			collectBindVariables(sub, seen)
		}
	case Not:
		collectBindVariables(c.Constraint, seen)
	case Comparison:
		if bv, ok := c.Operand2.(BindVariableValue); ok && bv.Name != "" {
			seen[bv.Name] = true
		}
	}
}
