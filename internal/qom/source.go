package qom

import (
	"fmt"

	"github.com/afoeder/typo3cr/internal/crerr"
)

// Source is the node-tuple producing part of a query.
//
// This is a sealed interface - only types in this package implement it.
//
// Source types:
//   - Selector: all nodes of a node type
//   - *Join: two sources combined under a join type and condition
type Source interface {
	sourceNode() // Marker method - seals interface to this package
}

// JoinCondition relates the node tuples of the two sides of a join.
//
// This is a sealed interface - only types in this package implement it.
type JoinCondition interface {
	joinConditionNode()
}

// Selector selects all nodes of a primary node type (sub types included).
//
// Semantics:
//
//	SELECT * FROM [<NodeTypeName>] AS <SelectorName>
//
// SelectorName may be empty; the selector is then named after its node type.
type Selector struct {
	NodeTypeName string
	SelectorName string
}

func (Selector) sourceNode() {}

// Name returns the selector name, defaulting to the node type name.
func (s Selector) Name() string {
	if s.SelectorName != "" {
		return s.SelectorName
	}
	return s.NodeTypeName
}

// JoinType is the kind of a join.
type JoinType string

const (
	JoinTypeInner      JoinType = "inner"
	JoinTypeLeftOuter  JoinType = "left-outer"
	JoinTypeRightOuter JoinType = "right-outer"
)

// Valid reports whether t is one of the three join types.
func (t JoinType) Valid() bool {
	switch t {
	case JoinTypeInner, JoinTypeLeftOuter, JoinTypeRightOuter:
		return true
	default:
		return false
	}
}

// Join combines two sources.
//
// Semantics:
//
//	<left> [INNER|LEFT OUTER|RIGHT OUTER] JOIN <right> ON <condition>
//
// A Join is immutable: every part is supplied to NewJoin and read through
// accessors, so one Join may be shared by concurrently executing queries.
type Join struct {
	left      Source
	right     Source
	joinType  JoinType
	condition JoinCondition
}

func (*Join) sourceNode() {}

// NewJoin creates a join. All parts are required and the join type must be
// inner, left-outer or right-outer.
func NewJoin(left, right Source, joinType JoinType, condition JoinCondition) (*Join, error) {
	if left == nil || right == nil {
		return nil, crerr.InvalidArgument("join requires a left and a right source")
	}
	if !joinType.Valid() {
		return nil, crerr.InvalidArgument("unsupported join type %q", string(joinType))
	}
	if condition == nil {
		return nil, crerr.InvalidArgument("join requires a join condition")
	}
	return &Join{left: left, right: right, joinType: joinType, condition: condition}, nil
}

// Left returns the left source.
func (j *Join) Left() Source { return j.left }

// Right returns the right source.
func (j *Join) Right() Source { return j.right }

// JoinType returns the join type.
func (j *Join) JoinType() JoinType { return j.joinType }

// JoinCondition returns the join condition.
func (j *Join) JoinCondition() JoinCondition { return j.condition }

// EquiJoinCondition joins tuples whose property values are equal.
//
//	<Selector1Name>.<Property1Name> = <Selector2Name>.<Property2Name>
type EquiJoinCondition struct {
	Selector1Name string
	Property1Name string
	Selector2Name string
	Property2Name string
}

func (EquiJoinCondition) joinConditionNode() {}

// SameNodeJoinCondition joins tuples selecting the same node.
type SameNodeJoinCondition struct {
	Selector1Name string
	Selector2Name string
}

func (SameNodeJoinCondition) joinConditionNode() {}

// ChildNodeJoinCondition joins a child node to its parent.
type ChildNodeJoinCondition struct {
	ChildSelectorName  string
	ParentSelectorName string
}

func (ChildNodeJoinCondition) joinConditionNode() {}

// DescendantNodeJoinCondition joins a node to any of its ancestors.
type DescendantNodeJoinCondition struct {
	DescendantSelectorName string
	AncestorSelectorName   string
}

func (DescendantNodeJoinCondition) joinConditionNode() {}

// Selectors returns the selectors of source from left to right.
func Selectors(source Source) []Selector {
	switch s := source.(type) {
	case Selector:
		return []Selector{s}
	case *Join:
		return append(Selectors(s.left), Selectors(s.right)...)
	default:
		return nil
	}
}

// PrimarySelector returns the left-most selector. Query results identify
// nodes of this selector.
func PrimarySelector(source Source) (Selector, error) {
	sels := Selectors(source)
	if len(sels) == 0 {
		return Selector{}, crerr.InvalidArgument("source %s has no selector", describe(source))
	}
	return sels[0], nil
}

func describe(source Source) string {
	if source == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", source)
}
