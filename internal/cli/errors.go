package cli

import (
	"github.com/cockroachdb/errors"

	"github.com/roach88/tempora/internal/query"
	"github.com/roach88/tempora/internal/repository"
	"github.com/roach88/tempora/internal/schema"
	"github.com/roach88/tempora/internal/sequence"
	"github.com/roach88/tempora/internal/temporal"
)

// Error codes reported in CLI output. Codes are stable across releases.
const (
	ErrCodeMalformedMethod = "E001"
	ErrCodeUnknownProperty = "E002"
	ErrCodeUnsupportedOp   = "E003"
	ErrCodeArityMismatch   = "E004"
	ErrCodeEntityNotFound  = "E005"
	ErrCodeEntityExists    = "E006"
	ErrCodeNoEdgePoint     = "E007"
	ErrCodeInvalidInterval = "E008"
	ErrCodeInvalidRecord   = "E009"
	ErrCodeInvalidSchema   = "E010"
	ErrCodeInvalidQuery    = "E011"
	ErrCodeInvalidCount    = "E012"
	ErrCodeNoBusinessTime  = "E013"
	ErrCodeCommand         = "E100"
	ErrCodeTestFailed      = "E101"
	ErrCodeGeneric         = "E999"
)

// errorCodes is checked in order. ErrEntityNotFound comes before
// ErrNoEdgePoint because not-found errors carry both.
var errorCodes = []struct {
	err  error
	code string
}{
	{repository.ErrEntityNotFound, ErrCodeEntityNotFound},
	{repository.ErrEntityExists, ErrCodeEntityExists},
	{repository.ErrNoBusinessTime, ErrCodeNoBusinessTime},
	{temporal.ErrNoEdgePoint, ErrCodeNoEdgePoint},
	{temporal.ErrInvalidInterval, ErrCodeInvalidInterval},
	{query.ErrMalformedMethodName, ErrCodeMalformedMethod},
	{query.ErrUnknownProperty, ErrCodeUnknownProperty},
	{query.ErrUnsupportedOperator, ErrCodeUnsupportedOp},
	{query.ErrParameterArityMismatch, ErrCodeArityMismatch},
	{query.ErrInvalidQuery, ErrCodeInvalidQuery},
	{schema.ErrInvalidRecord, ErrCodeInvalidRecord},
	{schema.ErrInvalidSchema, ErrCodeInvalidSchema},
	{sequence.ErrInvalidCount, ErrCodeInvalidCount},
}

// ErrorCode maps err to its CLI error code, or ErrCodeGeneric.
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ErrCodeGeneric
}
