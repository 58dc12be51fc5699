package temporal

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tempora/internal/value"
)

func day(month time.Month, d int) time.Time {
	return time.Date(2024, month, d, 0, 0, 0, 0, time.UTC)
}

func open(t *testing.T, from time.Time) Interval {
	t.Helper()
	iv, err := OpenFrom(from)
	require.NoError(t, err)
	return iv
}

func closed(t *testing.T, from, thru time.Time) Interval {
	t.Helper()
	iv, err := NewInterval(from, thru)
	require.NoError(t, err)
	return iv
}

func TestNewInterval(t *testing.T) {
	_, err := NewInterval(day(1, 2), day(1, 2))
	assert.True(t, errors.Is(err, ErrInvalidInterval))

	_, err = NewInterval(day(1, 3), day(1, 2))
	assert.True(t, errors.Is(err, ErrInvalidInterval))

	iv, err := NewInterval(day(1, 1), day(1, 2))
	require.NoError(t, err)
	assert.False(t, iv.IsOpen())
	assert.NoError(t, iv.Validate())
}

func TestInterval_ContainsIsHalfOpen(t *testing.T) {
	iv := closed(t, day(1, 1), day(2, 1))

	assert.True(t, iv.Contains(day(1, 1)))
	assert.True(t, iv.Contains(day(1, 31)))
	assert.False(t, iv.Contains(day(2, 1)))
	assert.False(t, iv.Contains(day(1, 1).Add(-time.Nanosecond)))
}

func TestInterval_String(t *testing.T) {
	assert.Equal(t, "[2024-01-01T00:00:00Z, ∞)", open(t, day(1, 1)).String())
	assert.Equal(t, "[2024-01-01T00:00:00Z, 2024-02-01T00:00:00Z)", closed(t, day(1, 1), day(2, 1)).String())
}

func TestCurrent(t *testing.T) {
	assert.True(t, Current(time.Time{}))
	assert.True(t, Current(Infinity))
	assert.True(t, Current(Infinity.Add(time.Hour)))
	assert.False(t, Current(day(1, 1)))
}

func TestActiveAt(t *testing.T) {
	p1 := day(3, 1)
	p2 := day(4, 1)
	old := Version{ID: 1, Business: open(t, day(1, 1)), Processing: closed(t, p1, p2),
		Payload: value.Object{"status": value.String("pending")}}
	cur := Version{ID: 1, Business: open(t, day(1, 1)), Processing: open(t, p2),
		Payload: value.Object{"status": value.String("shipped")}}
	versions := []Version{old, cur}

	tests := []struct {
		name       string
		business   time.Time
		processing time.Time
		want       *Version
	}{
		{"current belief", day(1, 5), time.Time{}, &cur},
		{"infinity is current", day(1, 5), Infinity, &cur},
		{"past belief", day(1, 5), day(3, 15), &old},
		{"processing boundary belongs to successor", day(1, 5), p2, &cur},
		{"before existence in business time", day(12, 31).AddDate(-1, 0, 0), time.Time{}, nil},
		{"before anything was recorded", day(1, 5), day(2, 1), nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ActiveAt(versions, tc.business, tc.processing)
			if tc.want == nil {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, *tc.want, got)
		})
	}
}

func TestTerminate(t *testing.T) {
	v := Version{ID: 7, Business: open(t, day(1, 1)), Processing: open(t, day(1, 1))}

	got, err := Terminate(v, AxisProcessing, day(2, 1))
	require.NoError(t, err)
	assert.Equal(t, day(2, 1), got.Processing.Thru)
	assert.True(t, got.Business.IsOpen())
	assert.False(t, IsEdgePoint(got, AxisProcessing))
	assert.True(t, IsEdgePoint(got, AxisBusiness))

	_, err = Terminate(v, AxisProcessing, day(1, 1))
	assert.True(t, errors.Is(err, ErrInvalidInterval), "terminating at From leaves an empty interval")
}

func TestChain(t *testing.T) {
	old := Version{ID: 1, Business: open(t, day(1, 1)), Processing: open(t, day(1, 1))}
	next := Version{ID: 1, Business: open(t, day(1, 1)), Processing: open(t, day(2, 1))}

	tr, err := Chain(old, next)
	require.NoError(t, err)
	require.Len(t, tr.Terminated, 1)
	require.Len(t, tr.Inserted, 1)
	assert.Equal(t, day(2, 1), tr.Terminated[0].Processing.Thru)
	assert.Equal(t, next, tr.Inserted[0])
	assert.False(t, tr.Empty())
	assert.True(t, Transition{}.Empty())
}

func TestSupersede_SplitsAtBusinessDate(t *testing.T) {
	now := day(5, 1)
	edge := []Version{{
		ID: 1, Business: open(t, day(1, 1)), Processing: open(t, day(1, 1)),
		Payload: value.Object{"status": value.String("pending")},
	}}
	payload := value.Object{"status": value.String("shipped")}

	tr, err := Supersede(edge, day(3, 1), now, payload)
	require.NoError(t, err)

	require.Len(t, tr.Terminated, 1)
	assert.Equal(t, closed(t, day(1, 1), now), tr.Terminated[0].Processing)
	assert.True(t, tr.Terminated[0].Business.IsOpen(), "business interval of a terminated row is unchanged")

	require.Len(t, tr.Inserted, 2)
	assert.Equal(t, closed(t, day(1, 1), day(3, 1)), tr.Inserted[0].Business)
	assert.Equal(t, value.String("pending"), tr.Inserted[0].Payload["status"])
	assert.Equal(t, open(t, day(3, 1)), tr.Inserted[1].Business)
	assert.Equal(t, payload, tr.Inserted[1].Payload)
	for _, v := range tr.Inserted {
		assert.Equal(t, open(t, now), v.Processing)
		assert.Equal(t, int64(1), v.ID)
	}
}

func TestSupersede_AtBusinessFromReplacesWholeRow(t *testing.T) {
	edge := []Version{{ID: 1, Business: open(t, day(1, 1)), Processing: open(t, day(1, 1))}}

	tr, err := Supersede(edge, day(1, 1), day(2, 1), value.Object{"n": value.Int(2)})
	require.NoError(t, err)
	require.Len(t, tr.Terminated, 1)
	require.Len(t, tr.Inserted, 1)
	assert.Equal(t, open(t, day(1, 1)), tr.Inserted[0].Business)
}

func TestSupersede_SpansLaterSegments(t *testing.T) {
	now := day(6, 1)
	edge := []Version{
		{ID: 1, Business: closed(t, day(1, 1), day(3, 1)), Processing: open(t, day(4, 1)),
			Payload: value.Object{"n": value.Int(1)}},
		{ID: 1, Business: open(t, day(3, 1)), Processing: open(t, day(4, 1)),
			Payload: value.Object{"n": value.Int(2)}},
	}

	tr, err := Supersede(edge, day(2, 1), now, value.Object{"n": value.Int(3)})
	require.NoError(t, err)
	assert.Len(t, tr.Terminated, 2)
	require.Len(t, tr.Inserted, 2)
	assert.Equal(t, closed(t, day(1, 1), day(2, 1)), tr.Inserted[0].Business)
	assert.Equal(t, value.Int(1), tr.Inserted[0].Payload["n"])
	assert.Equal(t, open(t, day(2, 1)), tr.Inserted[1].Business)
	assert.Equal(t, value.Int(3), tr.Inserted[1].Payload["n"])
}

func TestSupersede_BeforeExistence(t *testing.T) {
	edge := []Version{{ID: 1, Business: open(t, day(3, 1)), Processing: open(t, day(3, 1))}}

	_, err := Supersede(edge, day(1, 1), day(4, 1), value.Object{})
	assert.True(t, errors.Is(err, ErrNoEdgePoint))
}

func TestRetire(t *testing.T) {
	edge := []Version{{ID: 1, Business: open(t, day(1, 1)), Processing: open(t, day(1, 1)),
		Payload: value.Object{"n": value.Int(1)}}}

	tr, err := Retire(edge, day(3, 1), day(4, 1))
	require.NoError(t, err)
	require.Len(t, tr.Terminated, 1)
	require.Len(t, tr.Inserted, 1)
	assert.Equal(t, closed(t, day(1, 1), day(3, 1)), tr.Inserted[0].Business)

	tr, err = Retire(edge, day(1, 1), day(4, 1))
	require.NoError(t, err)
	assert.Len(t, tr.Terminated, 1)
	assert.Empty(t, tr.Inserted, "retiring from the first business instant leaves no history to keep")

	_, err = Retire(nil, day(3, 1), day(4, 1))
	assert.True(t, errors.Is(err, ErrNoEdgePoint))
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func TestMonotonicClock_StrictlyIncreasing(t *testing.T) {
	clock := NewMonotonicClock(fixedClock{at: day(1, 1)})

	first := clock.Now()
	second := clock.Now()
	third := clock.Now()

	assert.Equal(t, day(1, 1), first)
	assert.Equal(t, time.Nanosecond, second.Sub(first))
	assert.True(t, third.After(second))
}

func TestMonotonicClock_DefaultsToSystemClock(t *testing.T) {
	clock := NewMonotonicClock(nil)
	assert.WithinDuration(t, time.Now(), clock.Now(), time.Minute)
}
