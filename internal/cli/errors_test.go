package cli

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/tempora/internal/query"
	"github.com/roach88/tempora/internal/repository"
	"github.com/roach88/tempora/internal/schema"
	"github.com/roach88/tempora/internal/sequence"
	"github.com/roach88/tempora/internal/temporal"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{query.ErrMalformedMethodName, ErrCodeMalformedMethod},
		{query.ErrUnknownProperty, ErrCodeUnknownProperty},
		{query.ErrUnsupportedOperator, ErrCodeUnsupportedOp},
		{query.ErrParameterArityMismatch, ErrCodeArityMismatch},
		{query.ErrInvalidQuery, ErrCodeInvalidQuery},
		{repository.ErrEntityNotFound, ErrCodeEntityNotFound},
		{repository.ErrEntityExists, ErrCodeEntityExists},
		{temporal.ErrNoEdgePoint, ErrCodeNoEdgePoint},
		{temporal.ErrInvalidInterval, ErrCodeInvalidInterval},
		{schema.ErrInvalidRecord, ErrCodeInvalidRecord},
		{schema.ErrInvalidSchema, ErrCodeInvalidSchema},
		{sequence.ErrInvalidCount, ErrCodeInvalidCount},
		{repository.ErrNoBusinessTime, ErrCodeNoBusinessTime},
		{errors.New("something else"), ErrCodeGeneric},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, ErrorCode(errors.Wrap(tc.err, "context")))
		})
	}
}

func TestErrorCode_NotFoundWinsOverNoEdgePoint(t *testing.T) {
	err := errors.Mark(errors.Wrap(repository.ErrEntityNotFound, "get 7"), temporal.ErrNoEdgePoint)
	assert.Equal(t, ErrCodeEntityNotFound, ErrorCode(err))
}
