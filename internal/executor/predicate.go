package executor

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/tempora/internal/query"
	"github.com/roach88/tempora/internal/value"
)

// bound is a condition with its arguments converted and, for LIKE, its
// pattern compiled.
type bound struct {
	query.Condition
	args    []value.Value
	pattern *regexp.Regexp
}

// bind consumes args left to right by operator arity and groups the
// conditions into AND-groups. Argument shapes are checked here, before any
// row is read.
func bind(q query.ParsedQuery, args []any) ([][]bound, error) {
	next := 0
	groups := q.Groups()
	out := make([][]bound, len(groups))

	for g, group := range groups {
		out[g] = make([]bound, len(group))
		for i, c := range group {
			b := bound{Condition: c}
			for range c.Operator.Arity() {
				v, err := value.From(args[next])
				if err != nil {
					return nil, errors.Wrapf(query.ErrUnsupportedOperator,
						"%s %s argument %d: %v", c.Property, c.Operator, next, err)
				}
				b.args = append(b.args, v)
				next++
			}
			if err := b.check(); err != nil {
				return nil, err
			}
			out[g][i] = b
		}
	}
	return out, nil
}

// check validates argument kinds for the operator.
func (b *bound) check() error {
	switch b.Operator {
	case query.In, query.NotIn:
		if _, ok := b.args[0].(value.List); !ok {
			return b.unsupported("argument must be a list, got %s", b.args[0].Kind())
		}
	case query.Like, query.NotLike:
		s, ok := b.args[0].(value.String)
		if !ok {
			return b.unsupported("pattern must be a string, got %s", b.args[0].Kind())
		}
		b.pattern = likePattern(string(s))
	case query.Containing, query.NotContaining, query.StartingWith, query.EndingWith:
		if _, ok := b.args[0].(value.String); !ok {
			return b.unsupported("argument must be a string, got %s", b.args[0].Kind())
		}
	}
	return nil
}

// eval applies the operator to one field value.
//
// Null handling: EQUALS, NOT_EQUALS, IN and NOT_IN treat null as an ordinary
// value. Relational, BETWEEN, string and boolean operators are false on a
// null field. IS_NULL and IS_NOT_NULL test for it.
func (b *bound) eval(field value.Value) (bool, error) {
	switch b.Operator {
	case query.Equals:
		return value.Equal(field, b.args[0]), nil
	case query.NotEquals:
		return !value.Equal(field, b.args[0]), nil
	case query.IsNull:
		return value.IsNull(field), nil
	case query.IsNotNull:
		return !value.IsNull(field), nil
	case query.In:
		return contains(b.args[0].(value.List), field), nil
	case query.NotIn:
		return !contains(b.args[0].(value.List), field), nil
	}

	if value.IsNull(field) {
		return false, nil
	}

	switch b.Operator {
	case query.LessThan:
		return b.relational(field, b.args[0], func(c int) bool { return c < 0 })
	case query.LessThanEqual:
		return b.relational(field, b.args[0], func(c int) bool { return c <= 0 })
	case query.GreaterThan:
		return b.relational(field, b.args[0], func(c int) bool { return c > 0 })
	case query.GreaterThanEqual:
		return b.relational(field, b.args[0], func(c int) bool { return c >= 0 })
	case query.Between:
		low, err := b.relational(field, b.args[0], func(c int) bool { return c >= 0 })
		if err != nil {
			return false, err
		}
		high, err := b.relational(field, b.args[1], func(c int) bool { return c <= 0 })
		if err != nil {
			return false, err
		}
		return low && high, nil
	case query.True, query.False:
		v, ok := field.(value.Bool)
		if !ok {
			return false, b.unsupported("field is %s, not bool", field.Kind())
		}
		return bool(v) == (b.Operator == query.True), nil
	}

	s, ok := field.(value.String)
	if !ok {
		return false, b.unsupported("field is %s, not string", field.Kind())
	}
	arg, _ := b.args[0].(value.String)

	switch b.Operator {
	case query.Like:
		return b.pattern.MatchString(string(s)), nil
	case query.NotLike:
		return !b.pattern.MatchString(string(s)), nil
	case query.Containing:
		return strings.Contains(string(s), string(arg)), nil
	case query.NotContaining:
		return !strings.Contains(string(s), string(arg)), nil
	case query.StartingWith:
		return strings.HasPrefix(string(s), string(arg)), nil
	case query.EndingWith:
		return strings.HasSuffix(string(s), string(arg)), nil
	}
	return false, b.unsupported("operator not implemented")
}

// relational compares a non-null field with arg. A null argument never
// matches; kinds without a common order are unsupported.
func (b *bound) relational(field, arg value.Value, ok func(int) bool) (bool, error) {
	if value.IsNull(arg) {
		return false, nil
	}
	c, err := value.Compare(field, arg)
	if err != nil {
		return false, b.unsupported("%v", err)
	}
	return ok(c), nil
}

func (b *bound) unsupported(format string, args ...any) error {
	return errors.Wrapf(query.ErrUnsupportedOperator, "%s %s: "+format,
		append([]any{b.Property, b.Operator}, args...)...)
}

func contains(list value.List, v value.Value) bool {
	for _, elem := range list {
		if value.Equal(elem, v) {
			return true
		}
	}
	return false
}

// likePattern compiles a SQL LIKE pattern: % matches any run of characters,
// _ matches exactly one, everything else is literal. The whole string must
// match.
func likePattern(pattern string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString(`(?s)^`)
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(`.*`)
		case '_':
			sb.WriteString(`.`)
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString(`$`)
	return regexp.MustCompile(sb.String())
}
