package qom

import (
	"regexp"
	"strings"

	"github.com/afoeder/typo3cr/internal/node"
)

// Numeric reports whether values of t compare numerically.
func Numeric(t node.PropertyType) bool {
	switch t {
	case node.TypeLong, node.TypeDouble, node.TypeDecimal:
		return true
	default:
		return false
	}
}

// Normalize returns the literal in the stored form of its type, so that it
// compares correctly against canonicalized stored values.
func (l Literal) Normalize() (Literal, error) {
	v, err := node.Canonicalize(l.Value, l.Type)
	if err != nil {
		return Literal{}, err
	}
	return Literal{Value: v, Type: l.Type}, nil
}

// Compare evaluates "stored <op> literal". Numeric literals compare
// numerically, all others lexically against the canonical stored form.
// A stored value that does not parse as a number never matches a numeric
// literal.
func Compare(stored node.Value, op Operator, literal Literal) (bool, error) {
	if op == OperatorLike {
		return MatchLike(literal.Value.String(), stored.String()), nil
	}

	lit, err := literal.Normalize()
	if err != nil {
		return false, err
	}

	var cmp int
	if Numeric(lit.Type) {
		a, err := stored.Double()
		if err != nil {
			return false, nil
		}
		b, err := lit.Value.Double()
		if err != nil {
			return false, err
		}
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(stored.String(), lit.Value.String())
	}

	switch op {
	case OperatorEqualTo:
		return cmp == 0, nil
	case OperatorNotEqualTo:
		return cmp != 0, nil
	case OperatorLessThan:
		return cmp < 0, nil
	case OperatorLessThanOrEqualTo:
		return cmp <= 0, nil
	case OperatorGreaterThan:
		return cmp > 0, nil
	case OperatorGreaterThanOrEqualTo:
		return cmp >= 0, nil
	default:
		return false, nil
	}
}

// MatchLike matches s against a LIKE pattern: '%' matches any sequence, '_'
// any single character, and '\' escapes the next character. Matching is
// case-sensitive.
func MatchLike(pattern, s string) bool {
	return likeRegexp(pattern).MatchString(s)
}

func likeRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString(`(?s)^`)
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(`.*`)
		case r == '_':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if escaped {
		b.WriteString(`\\`)
	}
	b.WriteString(`$`)
	return regexp.MustCompile(b.String())
}
