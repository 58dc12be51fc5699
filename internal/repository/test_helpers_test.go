package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tempora/internal/store"
	"github.com/roach88/tempora/internal/testutil"
	"github.com/roach88/tempora/internal/value"
)

type order struct {
	Status string
	Amount int64
}

var orderDescriptor = Descriptor[order]{
	Name:   "order",
	Fields: []string{"status", "amount"},
	Encode: func(o order) (value.Object, error) {
		return value.Object{"status": value.String(o.Status), "amount": value.Int(o.Amount)}, nil
	},
	Decode: func(p value.Object) (order, error) {
		var o order
		if s, ok := p["status"].(value.String); ok {
			o.Status = string(s)
		}
		if a, ok := p["amount"].(value.Int); ok {
			o.Amount = int64(a)
		}
		return o, nil
	},
}

// createTestRepo opens a repository over a fresh store with a clock that
// advances one second per reading.
func createTestRepo(t *testing.T, opts ...Option) (*Repository[order], *testutil.StepClock) {
	t.Helper()
	return createTestRepoFor(t, orderDescriptor, opts...)
}

func createTestRepoFor(t *testing.T, desc Descriptor[order], opts ...Option) (*Repository[order], *testutil.StepClock) {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"),
		store.WithTxIDs(testutil.NewSequentialTxIDs("")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	clock := testutil.NewStepClock()
	r, err := New(s, desc, append([]Option{WithClock(clock)}, opts...)...)
	require.NoError(t, err)
	return r, clock
}
