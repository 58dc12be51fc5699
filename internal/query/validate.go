package query

import "github.com/cockroachdb/errors"

// Validate checks the structural rules every ParsedQuery obeys, whether it
// came from the parser or from a Builder:
//  1. Every condition and sort key names a property
//  2. Every operator is declared
//  3. Limit is not negative
//
// Validate is a pure function with no side effects.
func Validate(q ParsedQuery) error {
	for i, c := range q.Conditions {
		if c.Property == "" {
			return errors.Wrapf(ErrInvalidQuery, "condition %d has no property", i)
		}
		if !c.Operator.Valid() {
			return errors.Wrapf(ErrUnsupportedOperator, "condition %d (%s): %s", i, c.Property, c.Operator)
		}
	}
	for i, o := range q.OrderBy {
		if o.Property == "" {
			return errors.Wrapf(ErrInvalidQuery, "order by %d has no property", i)
		}
	}
	if q.Limit < 0 {
		return errors.Wrapf(ErrInvalidQuery, "limit %d is negative", q.Limit)
	}
	return nil
}
