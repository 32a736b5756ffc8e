// Package querysql compiles QOM queries into parameterized SQLite SQL over the
// nodes and properties tables of internal/store.
package querysql

import (
	"fmt"
	"strings"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/qom"
	"github.com/afoeder/typo3cr/internal/storage"
)

// SQLCompiler compiles QOM queries to parameterized SQL for SQLite.
//
// CRITICAL: every query orders by document order (seq) with an identifier
// tiebreaker, so results are deterministic.
// CRITICAL: values are always parameterized, never interpolated.
//
// The compiled statement selects the distinct identifiers of the primary
// (left-most) selector. Each selector is a derived table restricted to the
// workspace and its node types, so outer joins keep their null-extended rows.
type SQLCompiler struct {
	// Workspace restricts every selector. Required.
	Workspace string

	// SubTypes expands a selector's node type into all type names it matches.
	// nil matches the node type name only.
	SubTypes func(nodeType string) []string
}

// NewSQLCompiler creates a compiler for workspace.
func NewSQLCompiler(workspace string) *SQLCompiler {
	return &SQLCompiler{Workspace: workspace}
}

// compilation is the state of one Compile call.
type compilation struct {
	c       *SQLCompiler
	source  qom.Source
	aliases map[string]string // selector name -> table alias
	binds   map[string]qom.Literal
}

// Compile converts q to SQL. Returns (sql, params, error).
//
// MANDATORY: ORDER BY <primary>.seq, <primary>.identifier.
// MANDATORY: all values are parameterized.
func (c *SQLCompiler) Compile(q storage.Query) (string, []any, error) {
	if q == nil || q.Source() == nil {
		return "", nil, crerr.InvalidArgument("cannot compile a query without source")
	}
	if c.Workspace == "" {
		return "", nil, crerr.InvalidArgument("cannot compile a query without workspace")
	}

	primary, err := qom.PrimarySelector(q.Source())
	if err != nil {
		return "", nil, err
	}

	comp := &compilation{
		c:       c,
		source:  q.Source(),
		aliases: make(map[string]string),
		binds:   q.BindValues(),
	}
	for i, sel := range qom.Selectors(q.Source()) {
		comp.aliases[sel.Name()] = fmt.Sprintf("s%d", i)
	}
	p := comp.aliases[primary.Name()]

	fromSQL, params, err := comp.compileSource(q.Source())
	if err != nil {
		return "", nil, fmt.Errorf("compile source: %w", err)
	}

	where := p + ".identifier IS NOT NULL"
	if q.Constraint() != nil {
		constraintSQL, constraintParams, err := comp.compileConstraint(q.Constraint())
		if err != nil {
			return "", nil, fmt.Errorf("compile constraint: %w", err)
		}
		where += " AND (" + constraintSQL + ")"
		params = append(params, constraintParams...)
	}

	limit := -1 // SQLite: negative limit means no limit
	if q.Limit() > 0 {
		limit = q.Limit()
	}
	params = append(params, limit, q.Offset())

	sql := fmt.Sprintf(
		"SELECT DISTINCT %[1]s.identifier, %[1]s.seq FROM %[2]s WHERE %[3]s "+
			"ORDER BY %[1]s.seq ASC, %[1]s.identifier COLLATE BINARY ASC LIMIT ? OFFSET ?",
		p, fromSQL, where)
	return sql, params, nil
}

func (comp *compilation) compileSource(source qom.Source) (string, []any, error) {
	switch s := source.(type) {
	case qom.Selector:
		return comp.compileSelector(s)
	case *qom.Join:
		return comp.compileJoin(s)
	default:
		return "", nil, crerr.NotSupported(fmt.Sprintf("source %T", source))
	}
}

// compileSelector renders a derived table of the selector's nodes.
func (comp *compilation) compileSelector(s qom.Selector) (string, []any, error) {
	types := []string{s.NodeTypeName}
	if comp.c.SubTypes != nil {
		types = comp.c.SubTypes(s.NodeTypeName)
	}

	params := []any{comp.c.Workspace}
	for _, t := range types {
		params = append(params, t)
	}
	sql := fmt.Sprintf("(SELECT * FROM nodes WHERE workspace = ? AND primary_type IN (%s)) AS %s",
		placeholders(len(types)), comp.aliases[s.Name()])
	return sql, params, nil
}

func (comp *compilation) compileJoin(j *qom.Join) (string, []any, error) {
	leftSQL, leftParams, err := comp.compileSource(j.Left())
	if err != nil {
		return "", nil, fmt.Errorf("compile join left: %w", err)
	}
	rightSQL, rightParams, err := comp.compileSource(j.Right())
	if err != nil {
		return "", nil, fmt.Errorf("compile join right: %w", err)
	}
	onSQL, onParams, err := comp.compileJoinCondition(j.JoinCondition())
	if err != nil {
		return "", nil, fmt.Errorf("compile join condition: %w", err)
	}

	var keyword string
	switch j.JoinType() {
	case qom.JoinTypeInner:
		keyword = "INNER JOIN"
	case qom.JoinTypeLeftOuter:
		keyword = "LEFT OUTER JOIN"
	case qom.JoinTypeRightOuter:
		keyword = "RIGHT OUTER JOIN"
	default:
		return "", nil, crerr.InvalidArgument("unsupported join type %q", string(j.JoinType()))
	}

	params := append(append(leftParams, rightParams...), onParams...)
	return fmt.Sprintf("%s %s %s ON %s", leftSQL, keyword, rightSQL, onSQL), params, nil
}

func (comp *compilation) compileJoinCondition(cond qom.JoinCondition) (string, []any, error) {
	switch c := cond.(type) {
	case qom.EquiJoinCondition:
		a1, err := comp.alias(c.Selector1Name)
		if err != nil {
			return "", nil, err
		}
		a2, err := comp.alias(c.Selector2Name)
		if err != nil {
			return "", nil, err
		}
		sql := fmt.Sprintf("EXISTS (SELECT 1 FROM properties p1, properties p2 "+
			"WHERE p1.workspace = ? AND p1.node = %s.identifier AND p1.name = ? "+
			"AND p2.workspace = ? AND p2.node = %s.identifier AND p2.name = ? "+
			"AND p1.value = p2.value)", a1, a2)
		ws := comp.c.Workspace
		return sql, []any{ws, c.Property1Name, ws, c.Property2Name}, nil

	case qom.SameNodeJoinCondition:
		a1, a2, err := comp.alias2(c.Selector1Name, c.Selector2Name)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s.identifier = %s.identifier", a1, a2), nil, nil

	case qom.ChildNodeJoinCondition:
		child, parent, err := comp.alias2(c.ChildSelectorName, c.ParentSelectorName)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s.parent = %s.identifier", child, parent), nil, nil

	case qom.DescendantNodeJoinCondition:
		desc, anc, err := comp.alias2(c.DescendantSelectorName, c.AncestorSelectorName)
		if err != nil {
			return "", nil, err
		}
		// path is the "/"-delimited identifier chain from the root, so a
		// descendant's path starts with its ancestor's.
		return fmt.Sprintf("(%[1]s.identifier <> %[2]s.identifier AND substr(%[1]s.path, 1, length(%[2]s.path)) = %[2]s.path)",
			desc, anc), nil, nil

	default:
		return "", nil, crerr.NotSupported(fmt.Sprintf("join condition %T", cond))
	}
}

// compileConstraint compiles a constraint to a WHERE fragment.
// CRITICAL: values are never interpolated.
func (comp *compilation) compileConstraint(c qom.Constraint) (string, []any, error) {
	switch c := c.(type) {
	case qom.And:
		return comp.compileComposite(c.Constraints, " AND ", "1 = 1")
	case qom.Or:
		return comp.compileComposite(c.Constraints, " OR ", "1 = 0")
	case qom.Not:
		sql, params, err := comp.compileConstraint(c.Constraint)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + sql + ")", params, nil
	case qom.PropertyExistence:
		a, err := comp.alias(c.SelectorName)
		if err != nil {
			return "", nil, err
		}
		sql := fmt.Sprintf("EXISTS (SELECT 1 FROM properties p WHERE p.workspace = ? AND p.node = %s.identifier AND p.name = ?)", a)
		return sql, []any{comp.c.Workspace, c.PropertyName}, nil
	case qom.Comparison:
		return comp.compileComparison(c)
	default:
		return "", nil, crerr.NotSupported(fmt.Sprintf("constraint %T", c))
	}
}

func (comp *compilation) compileComposite(cs []qom.Constraint, sep, empty string) (string, []any, error) {
	if len(cs) == 0 {
		return empty, nil, nil
	}
	var parts []string
	var params []any
	for _, sub := range cs {
		sql, subParams, err := comp.compileConstraint(sub)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sql+")")
		params = append(params, subParams...)
	}
	return strings.Join(parts, sep), params, nil
}

func (comp *compilation) compileComparison(c qom.Comparison) (string, []any, error) {
	lit, err := comp.literal(c.Operand2)
	if err != nil {
		return "", nil, err
	}
	if c.Operator != qom.OperatorLike {
		normalized, err := lit.Normalize()
		if err != nil {
			return "", nil, crerr.InvalidArgument("literal %q: %v", lit.Value.String(), err)
		}
		lit = normalized
	}

	// column and parameter of the comparison
	column := "value"
	var param any = lit.Value.String()
	if qom.Numeric(lit.Type) && c.Operator != qom.OperatorLike {
		f, err := lit.Value.Double()
		if err != nil {
			return "", nil, crerr.InvalidArgument("literal %q is not numeric", lit.Value.String())
		}
		column, param = "num", f
	}

	op := string(c.Operator)
	suffix := ""
	if c.Operator == qom.OperatorLike {
		suffix = ` ESCAPE '\'`
	}

	switch operand := c.Operand1.(type) {
	case qom.PropertyValue:
		a, err := comp.alias(operand.SelectorName)
		if err != nil {
			return "", nil, err
		}
		sql := fmt.Sprintf("EXISTS (SELECT 1 FROM properties p WHERE p.workspace = ? AND p.node = %s.identifier AND p.name = ? AND p.%s %s ?%s)",
			a, column, op, suffix)
		return sql, []any{comp.c.Workspace, operand.PropertyName, param}, nil

	case qom.NodeLocalName:
		a, err := comp.alias(operand.SelectorName)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s.local_name %s ?%s", a, op, suffix), []any{lit.Value.String()}, nil

	default:
		return "", nil, crerr.NotSupported(fmt.Sprintf("dynamic operand %T", c.Operand1))
	}
}

func (comp *compilation) literal(op qom.StaticOperand) (qom.Literal, error) {
	switch op := op.(type) {
	case qom.Literal:
		return op, nil
	case qom.BindVariableValue:
		v, ok := comp.binds[op.Name]
		if !ok {
			return qom.Literal{}, crerr.InvalidArgument("bind variable %q has no value", op.Name)
		}
		return v, nil
	default:
		return qom.Literal{}, crerr.NotSupported(fmt.Sprintf("static operand %T", op))
	}
}

func (comp *compilation) alias(selectorName string) (string, error) {
	sel, err := qom.ResolveSelector(comp.source, selectorName)
	if err != nil {
		return "", err
	}
	return comp.aliases[sel.Name()], nil
}

func (comp *compilation) alias2(a, b string) (string, string, error) {
	x, err := comp.alias(a)
	if err != nil {
		return "", "", err
	}
	y, err := comp.alias(b)
	if err != nil {
		return "", "", err
	}
	return x, y, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
