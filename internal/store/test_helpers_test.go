package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tempora/internal/temporal"
	"github.com/roach88/tempora/internal/testutil"
	"github.com/roach88/tempora/internal/value"
)

// createTestStore creates a new store in a temporary directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithTxIDs(testutil.NewSequentialTxIDs("")))
	require.NoError(t, err, "Open() failed")
	t.Cleanup(func() { s.Close() })
	return s
}

func day(month time.Month, d int) time.Time {
	return time.Date(2024, month, d, 0, 0, 0, 0, time.UTC)
}

// createTestVersion creates an open version starting on both axes at from.
func createTestVersion(id int64, from time.Time, payload value.Object) temporal.Version {
	return temporal.Version{
		ID:         id,
		Business:   temporal.Interval{From: from, Thru: temporal.Infinity},
		Processing: temporal.Interval{From: from, Thru: temporal.Infinity},
		Payload:    payload,
	}
}
