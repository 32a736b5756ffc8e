package qom

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/afoeder/typo3cr/internal/crerr"
	"github.com/afoeder/typo3cr/internal/node"
)

// comparisonPattern splits "operand op value". LIKE is matched before the
// symbolic operators so that a value starting with "=" is kept intact.
var comparisonPattern = regexp.MustCompile(`^\s*(\S+?)\s*(?i:\s(like)\s|(==|!=|<>|<=|>=|=|<|>))\s*(.*?)\s*$`)

// ParseFilter parses a filter expression into a constraint on the default
// selector.
//
// Supported expression formats:
//   - "title == 'Hello'"      → Comparison with a String literal
//   - "rating > 5"            → Comparison with a Long literal
//   - "title LIKE 'h%'"       → Comparison with OperatorLike
//   - "age >= :minAge"        → Comparison with a bind variable
//   - "post.title == x"       → property of the selector "post"
//   - "@name == post1"        → local name of the node
//   - "expr1 AND expr2"       → And
//
// Property names without a prefix are qualified with prefix.
func ParseFilter(expr, prefix string) (Constraint, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	parts, err := splitByAnd(expr)
	if err != nil {
		return nil, err
	}
	if len(parts) == 1 {
		return parseComparison(parts[0], prefix)
	}
	constraints := make([]Constraint, 0, len(parts))
	for _, part := range parts {
		c, err := parseComparison(part, prefix)
		if err != nil {
			return nil, err
		}
		constraints = append(constraints, c)
	}
	return And{Constraints: constraints}, nil
}

// splitByAnd splits a filter expression by AND (case insensitive), ignoring
// AND inside quoted literals.
func splitByAnd(expr string) ([]string, error) {
	var (
		parts []string
		start int
		quote byte
	)
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ' ' && i+5 <= len(expr) && strings.EqualFold(expr[i:i+5], " and "):
			parts = append(parts, strings.TrimSpace(expr[start:i]))
			start = i + 5
			i += 4
		}
	}
	if quote != 0 {
		return nil, crerr.InvalidArgument("unterminated literal in filter %q", expr)
	}
	parts = append(parts, strings.TrimSpace(expr[start:]))
	for _, p := range parts {
		if p == "" {
			return nil, crerr.InvalidArgument("empty comparison in filter %q", expr)
		}
	}
	return parts, nil
}

// parseComparison parses a single comparison expression.
func parseComparison(expr, prefix string) (Constraint, error) {
	m := comparisonPattern.FindStringSubmatch(expr)
	if m == nil {
		return nil, crerr.InvalidArgument("unsupported expression (no operator found): %s", expr)
	}
	token := m[2]
	if token == "" {
		token = m[3]
	}
	op, ok := ParseOperator(token)
	if !ok {
		return nil, crerr.InvalidArgument("unsupported operator %q in: %s", token, expr)
	}
	if m[4] == "" {
		return nil, crerr.InvalidArgument("missing value in: %s", expr)
	}

	operand, err := parseOperand(m[1], prefix)
	if err != nil {
		return nil, err
	}
	return Comparison{Operand1: operand, Operator: op, Operand2: parseStatic(m[4])}, nil
}

// parseOperand reads "[selector.]property" or "[selector.]@name".
func parseOperand(s, prefix string) (DynamicOperand, error) {
	var selector string
	if i := strings.LastIndex(s, "."); i >= 0 {
		selector, s = s[:i], s[i+1:]
		if selector == "" || s == "" {
			return nil, crerr.InvalidArgument("malformed operand %q", selector+"."+s)
		}
	}
	if s == "@name" {
		return NodeLocalName{SelectorName: selector}, nil
	}
	if !strings.Contains(s, ":") {
		s = node.QualifiedName(prefix, s)
	}
	return PropertyValue{SelectorName: selector, PropertyName: s}, nil
}

// parseStatic types an unquoted literal by its form. Quoted literals are
// always strings.
func parseStatic(value string) StaticOperand {
	if strings.HasPrefix(value, ":") && len(value) > 1 {
		return BindVariableValue{Name: value[1:]}
	}
	if len(value) >= 2 &&
		((value[0] == '\'' && value[len(value)-1] == '\'') || (value[0] == '"' && value[len(value)-1] == '"')) {
		return StringLiteral(value[1 : len(value)-1])
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return LongLiteral(n)
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return Literal{Value: node.DoubleValue(f), Type: node.TypeDouble}
	}
	if value == "true" || value == "false" {
		return Literal{Value: node.BooleanValue(value == "true"), Type: node.TypeBoolean}
	}
	return StringLiteral(value)
}

// ParseLiteral types value the way the right-hand side of a filter
// comparison is typed. A bind variable reference is taken as a string.
func ParseLiteral(value string) Literal {
	if lit, ok := parseStatic(value).(Literal); ok {
		return lit
	}
	return StringLiteral(value)
}
