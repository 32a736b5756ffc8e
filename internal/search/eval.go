package search

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/node"
	"github.com/afoeder/typo3cr/internal/qom"
)

// tuple binds selector names to documents. A selector missing from the
// tuple is null, as produced by outer joins.
type tuple map[string]uint32

// evaluation is the state of one FindNodeIdentifiers call.
type evaluation struct {
	ctx    context.Context
	engine *Engine
	ix     *index
	source qom.Source
	binds  map[string]qom.Literal
}

// candidates returns the documents a selector ranges over.
func (ev *evaluation) candidates(sel qom.Selector) *roaring.Bitmap {
	types := []string{sel.NodeTypeName}
	if ev.engine.subTypes != nil {
		types = ev.engine.subTypes(sel.NodeTypeName)
	}
	return ev.ix.ofTypes(types)
}

// filter narrows candidates of a single selector source to those satisfying c.
func (ev *evaluation) filter(c qom.Constraint, candidates *roaring.Bitmap) (*roaring.Bitmap, error) {
	switch c := c.(type) {
	case qom.And:
		result := candidates.Clone()
		for _, sub := range c.Constraints {
			r, err := ev.filter(sub, result)
			if err != nil {
				return nil, err
			}
			result = r
		}
		return result, nil

	case qom.Or:
		result := roaring.New()
		for _, sub := range c.Constraints {
			r, err := ev.filter(sub, candidates)
			if err != nil {
				return nil, err
			}
			result.Or(r)
		}
		return result, nil

	case qom.Not:
		sub, err := ev.filter(c.Constraint, candidates)
		if err != nil {
			return nil, err
		}
		return roaring.AndNot(candidates, sub), nil

	case qom.PropertyExistence:
		bm, ok := ev.ix.byProperty[node.NormalizeName(c.PropertyName)]
		if !ok {
			return roaring.New(), nil
		}
		return roaring.And(candidates, bm), nil

	case qom.Comparison:
		lit, err := ev.literal(c)
		if err != nil {
			return nil, err
		}
		if pv, ok := c.Operand1.(qom.PropertyValue); ok && c.Operator == qom.OperatorEqualTo && !qom.Numeric(lit.Type) {
			bm, ok := ev.ix.byValue[node.NormalizeName(pv.PropertyName)][lit.Value.String()]
			if !ok {
				return roaring.New(), nil
			}
			return roaring.And(candidates, bm), nil
		}

		result := roaring.New()
		it := candidates.Iterator()
		for it.HasNext() {
			d := it.Next()
			ok, err := ev.compare(d, c, lit)
			if err != nil {
				return nil, err
			}
			if ok {
				result.Add(d)
			}
		}
		return result, nil

	default:
		return nil, crerr.NotSupported(fmt.Sprintf("constraint %T", c))
	}
}

// joined evaluates a join source and returns the primary selector's
// documents of every tuple satisfying c.
func (ev *evaluation) joined(primary string, c qom.Constraint) (*roaring.Bitmap, error) {
	tuples, err := ev.tuples(ev.source)
	if err != nil {
		return nil, err
	}

	result := roaring.New()
	for _, t := range tuples {
		d, ok := t[primary]
		if !ok || result.Contains(d) {
			continue
		}
		if c != nil {
			ok, err := ev.test(c, t)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		result.Add(d)
	}
	return result, nil
}

// tuples enumerates the rows of a source.
func (ev *evaluation) tuples(source qom.Source) ([]tuple, error) {
	switch s := source.(type) {
	case qom.Selector:
		var rows []tuple
		it := ev.candidates(s).Iterator()
		for it.HasNext() {
			rows = append(rows, tuple{s.Name(): it.Next()})
		}
		return rows, nil

	case *qom.Join:
		left, err := ev.tuples(s.Left())
		if err != nil {
			return nil, err
		}
		right, err := ev.tuples(s.Right())
		if err != nil {
			return nil, err
		}

		outer, inner := left, right
		if s.JoinType() == qom.JoinTypeRightOuter {
			outer, inner = right, left
		}

		var rows []tuple
		for _, o := range outer {
			if err := ev.ctx.Err(); err != nil {
				return nil, err
			}
			matched := false
			for _, i := range inner {
				row := merge(o, i)
				ok, err := ev.joins(s.JoinCondition(), row)
				if err != nil {
					return nil, err
				}
				if ok {
					rows = append(rows, row)
					matched = true
				}
			}
			if !matched && s.JoinType() != qom.JoinTypeInner {
				rows = append(rows, o)
			}
		}
		return rows, nil

	default:
		return nil, crerr.NotSupported(fmt.Sprintf("source %T", source))
	}
}

// joins reports whether row satisfies a join condition.
func (ev *evaluation) joins(cond qom.JoinCondition, row tuple) (bool, error) {
	switch c := cond.(type) {
	case qom.EquiJoinCondition:
		d1, d2, ok, err := ev.pair(row, c.Selector1Name, c.Selector2Name)
		if !ok || err != nil {
			return false, err
		}
		p1, ok1 := ev.ix.docs[d1].properties[node.NormalizeName(c.Property1Name)]
		p2, ok2 := ev.ix.docs[d2].properties[node.NormalizeName(c.Property2Name)]
		return ok1 && ok2 && p1.value.String() == p2.value.String(), nil

	case qom.SameNodeJoinCondition:
		d1, d2, ok, err := ev.pair(row, c.Selector1Name, c.Selector2Name)
		return ok && d1 == d2, err

	case qom.ChildNodeJoinCondition:
		child, parent, ok, err := ev.pair(row, c.ChildSelectorName, c.ParentSelectorName)
		return ok && ev.ix.docs[child].parent == int(parent), err

	case qom.DescendantNodeJoinCondition:
		desc, anc, ok, err := ev.pair(row, c.DescendantSelectorName, c.AncestorSelectorName)
		return ok && ev.ix.isDescendant(desc, anc), err

	default:
		return false, crerr.NotSupported(fmt.Sprintf("join condition %T", cond))
	}
}

// pair returns the documents bound to two selectors; ok is false when either
// is null.
func (ev *evaluation) pair(row tuple, a, b string) (uint32, uint32, bool, error) {
	da, okA, err := ev.bound(row, a)
	if err != nil {
		return 0, 0, false, err
	}
	db, okB, err := ev.bound(row, b)
	if err != nil {
		return 0, 0, false, err
	}
	return da, db, okA && okB, nil
}

func (ev *evaluation) bound(row tuple, selectorName string) (uint32, bool, error) {
	sel, err := qom.ResolveSelector(ev.source, selectorName)
	if err != nil {
		return 0, false, err
	}
	d, ok := row[sel.Name()]
	return d, ok, nil
}

// test evaluates c against one joined row.
func (ev *evaluation) test(c qom.Constraint, row tuple) (bool, error) {
	switch c := c.(type) {
	case qom.And:
		for _, sub := range c.Constraints {
			ok, err := ev.test(sub, row)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil

	case qom.Or:
		for _, sub := range c.Constraints {
			ok, err := ev.test(sub, row)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case qom.Not:
		ok, err := ev.test(c.Constraint, row)
		return !ok, err

	case qom.PropertyExistence:
		d, ok, err := ev.bound(row, c.SelectorName)
		if !ok || err != nil {
			return false, err
		}
		_, has := ev.ix.docs[d].properties[node.NormalizeName(c.PropertyName)]
		return has, nil

	case qom.Comparison:
		lit, err := ev.literal(c)
		if err != nil {
			return false, err
		}
		d, ok, err := ev.bound(row, selectorOf(c.Operand1))
		if !ok || err != nil {
			return false, err
		}
		return ev.compare(d, c, lit)

	default:
		return false, crerr.NotSupported(fmt.Sprintf("constraint %T", c))
	}
}

// compare evaluates a comparison against document d. A numeric literal only
// matches numeric properties.
func (ev *evaluation) compare(d uint32, c qom.Comparison, lit qom.Literal) (bool, error) {
	doc := ev.ix.docs[d]
	switch operand := c.Operand1.(type) {
	case qom.PropertyValue:
		p, ok := doc.properties[node.NormalizeName(operand.PropertyName)]
		if !ok {
			return false, nil
		}
		if c.Operator != qom.OperatorLike && qom.Numeric(lit.Type) && !qom.Numeric(p.typ) {
			return false, nil
		}
		return qom.Compare(p.value, c.Operator, lit)

	case qom.NodeLocalName:
		return qom.Compare(node.StringValue(doc.localName), c.Operator,
			qom.Literal{Value: lit.Value, Type: node.TypeString})

	default:
		return false, crerr.NotSupported(fmt.Sprintf("dynamic operand %T", c.Operand1))
	}
}

// literal resolves the static operand of c, normalized unless it is a LIKE
// pattern.
func (ev *evaluation) literal(c qom.Comparison) (qom.Literal, error) {
	var lit qom.Literal
	switch op := c.Operand2.(type) {
	case qom.Literal:
		lit = op
	case qom.BindVariableValue:
		v, ok := ev.binds[op.Name]
		if !ok {
			return qom.Literal{}, crerr.InvalidArgument("bind variable %q has no value", op.Name)
		}
		lit = v
	default:
		return qom.Literal{}, crerr.NotSupported(fmt.Sprintf("static operand %T", c.Operand2))
	}

	if c.Operator == qom.OperatorLike {
		return lit, nil
	}
	normalized, err := lit.Normalize()
	if err != nil {
		return qom.Literal{}, crerr.InvalidArgument("literal %q: %v", lit.Value.String(), err)
	}
	return normalized, nil
}

func selectorOf(op qom.DynamicOperand) string {
	switch op := op.(type) {
	case qom.PropertyValue:
		return op.SelectorName
	case qom.NodeLocalName:
		return op.SelectorName
	default:
		return ""
	}
}

func merge(a, b tuple) tuple {
	row := make(tuple, len(a)+len(b))
	for k, v := range a {
		row[k] = v
	}
	for k, v := range b {
		row[k] = v
	}
	return row
}
