package scenario

import (
	"github.com/cockroachdb/errors"

	"github.com/roach88/tempora/internal/query"
	"github.com/roach88/tempora/internal/repository"
	"github.com/roach88/tempora/internal/schema"
	"github.com/roach88/tempora/internal/temporal"
)

// sentinels maps the error names scenarios expect to the sentinel they
// test with errors.Is. Order matters for ErrorName: an entity-not-found
// error also matches no_edge_point, and the more specific name wins.
var sentinels = []struct {
	name string
	err  error
}{
	{"entity_not_found", repository.ErrEntityNotFound},
	{"entity_exists", repository.ErrEntityExists},
	{"no_edge_point", temporal.ErrNoEdgePoint},
	{"invalid_interval", temporal.ErrInvalidInterval},
	{"malformed_method_name", query.ErrMalformedMethodName},
	{"unknown_property", query.ErrUnknownProperty},
	{"unsupported_operator", query.ErrUnsupportedOperator},
	{"parameter_arity_mismatch", query.ErrParameterArityMismatch},
	{"invalid_query", query.ErrInvalidQuery},
	{"invalid_record", schema.ErrInvalidRecord},
}

// sentinelByName returns the sentinel for name, or nil for an unknown name.
func sentinelByName(name string) error {
	for _, s := range sentinels {
		if s.name == name {
			return s.err
		}
	}
	return nil
}

// ErrorName returns the name of the first sentinel err matches, or "error".
func ErrorName(err error) string {
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.name
		}
	}
	return "error"
}
