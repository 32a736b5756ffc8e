package qom

import (
	"strings"

	"github.com/afoeder/typo3cr/internal/node"
)

// Constraint filters the node tuples of a source.
//
// This is a sealed interface - only types in this package implement it.
//
// Constraint types:
//   - And, Or: conjunction and disjunction of constraints
//   - Not: negation
//   - Comparison: dynamic operand compared to a static operand
//   - PropertyExistence: the selected node carries a property
//
// A nil Constraint matches every tuple.
type Constraint interface {
	constraintNode()
}

// DynamicOperand evaluates to a value of the selected node.
type DynamicOperand interface {
	dynamicOperandNode()
}

// StaticOperand evaluates to a value fixed at execution time.
type StaticOperand interface {
	staticOperandNode()
}

// And is true when all constraints are true. An empty And is true.
type And struct {
	Constraints []Constraint
}

func (And) constraintNode() {}

// Or is true when any constraint is true. An empty Or is false.
type Or struct {
	Constraints []Constraint
}

func (Or) constraintNode() {}

// Not negates a constraint.
type Not struct {
	Constraint Constraint
}

func (Not) constraintNode() {}

// Comparison compares a dynamic operand to a static operand.
//
//	<Operand1> <Operator> <Operand2>
//
// A tuple whose dynamic operand has no value never satisfies a comparison.
type Comparison struct {
	Operand1 DynamicOperand
	Operator Operator
	Operand2 StaticOperand
}

func (Comparison) constraintNode() {}

// PropertyExistence is true when the selected node carries the property.
type PropertyExistence struct {
	SelectorName string
	PropertyName string
}

func (PropertyExistence) constraintNode() {}

// PropertyValue is the value of a property of the selected node.
type PropertyValue struct {
	SelectorName string
	PropertyName string
}

func (PropertyValue) dynamicOperandNode() {}

// NodeLocalName is the local part of the selected node's name.
type NodeLocalName struct {
	SelectorName string
}

func (NodeLocalName) dynamicOperandNode() {}

// Literal is a constant value. Its Type decides how ordering comparisons are
// performed; TypeUndefined compares lexically.
type Literal struct {
	Value node.Value
	Type  node.PropertyType
}

func (Literal) staticOperandNode() {}

// BindVariableValue is a named placeholder bound on a prepared query.
type BindVariableValue struct {
	Name string
}

func (BindVariableValue) staticOperandNode() {}

// Operator is a comparison operator.
type Operator string

const (
	OperatorEqualTo              Operator = "="
	OperatorNotEqualTo           Operator = "<>"
	OperatorLessThan             Operator = "<"
	OperatorLessThanOrEqualTo    Operator = "<="
	OperatorGreaterThan          Operator = ">"
	OperatorGreaterThanOrEqualTo Operator = ">="
	OperatorLike                 Operator = "LIKE"
)

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	switch o {
	case OperatorEqualTo, OperatorNotEqualTo, OperatorLessThan, OperatorLessThanOrEqualTo,
		OperatorGreaterThan, OperatorGreaterThanOrEqualTo, OperatorLike:
		return true
	default:
		return false
	}
}

// ParseOperator resolves an operator token. "==" and "!=" are accepted as
// aliases, LIKE case-insensitively.
func ParseOperator(token string) (Operator, bool) {
	switch strings.ToUpper(token) {
	case "=", "==":
		return OperatorEqualTo, true
	case "<>", "!=":
		return OperatorNotEqualTo, true
	case "<":
		return OperatorLessThan, true
	case "<=":
		return OperatorLessThanOrEqualTo, true
	case ">":
		return OperatorGreaterThan, true
	case ">=":
		return OperatorGreaterThanOrEqualTo, true
	case "LIKE":
		return OperatorLike, true
	default:
		return "", false
	}
}

// StringLiteral is shorthand for a String-typed literal.
func StringLiteral(s string) Literal {
	return Literal{Value: node.StringValue(s), Type: node.TypeString}
}

// LongLiteral is shorthand for a Long-typed literal.
func LongLiteral(n int64) Literal {
	return Literal{Value: node.LongValue(n), Type: node.TypeLong}
}
