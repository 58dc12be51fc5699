package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tempora/internal/temporal"
	"github.com/roach88/tempora/internal/value"
)

// seedOrders records order 1 (updated on Mar 1, effective Feb 1) and
// order 2 (created Apr 1).
func seedOrders(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "Order", createTestVersion(1, day(1, 1),
		value.Object{"status": value.String("pending")})))
	_, err := s.Apply(ctx, "Order", 1, func(edge []temporal.Version) (temporal.Transition, error) {
		return temporal.Supersede(edge, day(2, 1), day(3, 1), value.Object{"status": value.String("shipped")})
	})
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, "Order", createTestVersion(2, day(4, 1),
		value.Object{"status": value.String("new")})))
}

func TestAsOf(t *testing.T) {
	s := createTestStore(t)
	seedOrders(t, s)
	one := int64(1)

	tests := []struct {
		name       string
		id         *int64
		business   time.Time
		processing time.Time
		want       []string
	}{
		{"current belief after update", &one, day(2, 15), time.Time{}, []string{"shipped"}},
		{"current belief before effective date", &one, day(1, 15), time.Time{}, []string{"pending"}},
		{"past belief", &one, day(2, 15), day(2, 20), []string{"pending"}},
		{"before existence", &one, day(1, 1).Add(-time.Hour), time.Time{}, nil},
		{"infinity normalized to current", &one, day(2, 15), temporal.Infinity.Add(time.Hour), []string{"shipped"}},
		{"all ids", nil, day(5, 1), time.Time{}, []string{"shipped", "new"}},
		{"all ids before second existed", nil, day(5, 1), day(3, 15), []string{"shipped"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vs, err := s.AsOf(context.Background(), "Order", tc.id, tc.business, tc.processing)
			require.NoError(t, err)

			var got []string
			for _, v := range vs {
				got = append(got, string(v.Payload["status"].(value.String)))
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAll_MatchesAsOfWithoutID(t *testing.T) {
	s := createTestStore(t)
	seedOrders(t, s)
	ctx := context.Background()

	all, err := s.All(ctx, "Order", day(5, 1), time.Time{})
	require.NoError(t, err)
	asOf, err := s.AsOf(ctx, "Order", nil, day(5, 1), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, asOf, all)
	assert.Len(t, all, 2)
	assert.Equal(t, int64(1), all[0].ID)
}

func TestHistory_IsChronological(t *testing.T) {
	s := createTestStore(t)
	seedOrders(t, s)

	history, err := s.History(context.Background(), "Order", 1)
	require.NoError(t, err)
	require.Len(t, history, 3)

	for i := 1; i < len(history); i++ {
		prev, cur := history[i-1], history[i]
		ordered := prev.Processing.From.Before(cur.Processing.From) ||
			(prev.Processing.From.Equal(cur.Processing.From) && prev.Business.From.Before(cur.Business.From))
		assert.True(t, ordered, "history[%d] out of order", i)
	}
	for _, v := range history {
		assert.NoError(t, v.Validate())
	}
}

func TestEdge_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)

	edge, err := s.Edge(context.Background(), "Order", 99)
	require.NoError(t, err)
	assert.NotNil(t, edge)
	assert.Empty(t, edge)
}

func TestCount_DistinctIDs(t *testing.T) {
	s := createTestStore(t)
	seedOrders(t, s)
	ctx := context.Background()

	n, err := s.Count(ctx, "Order")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.Count(ctx, "Customer")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEntities(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, "Order", createTestVersion(1, day(1, 1), nil)))
	require.NoError(t, s.Insert(ctx, "Customer", createTestVersion(1, day(1, 1), nil)))

	names, err := s.Entities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Customer", "Order"}, names)
}
