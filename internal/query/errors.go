package query

import "github.com/cockroachdb/errors"

// Sentinel errors shared by the parser and the executor. Callers test them
// with errors.Is; the wrapping message carries the offending input.
var (
	// ErrMalformedMethodName: no "By" literal, unrecognized prefix, or an
	// empty condition segment without AsOf.
	ErrMalformedMethodName = errors.New("malformed method name")

	// ErrUnknownProperty: a condition or sort key names a field the entity
	// does not have.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrUnsupportedOperator: the operator cannot apply to the field's value
	// or argument type, e.g. CONTAINING on a number.
	ErrUnsupportedOperator = errors.New("unsupported operator")

	// ErrParameterArityMismatch: the argument count differs from Arity().
	ErrParameterArityMismatch = errors.New("parameter arity mismatch")

	// ErrInvalidQuery: a programmatically built query is structurally
	// invalid (empty property name, negative limit).
	ErrInvalidQuery = errors.New("invalid query")
)
