package executor

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tempora/internal/parser"
	"github.com/roach88/tempora/internal/query"
	"github.com/roach88/tempora/internal/value"
)

type order struct {
	ID       int64
	Status   string
	Amount   float64
	Note     *string
	Priority bool
	Placed   time.Time
}

type orderAccessor struct{}

func (orderAccessor) Get(o order, field string) (value.Value, error) {
	switch field {
	case "id":
		return value.Int(o.ID), nil
	case "status":
		return value.String(o.Status), nil
	case "amount":
		return value.Float(o.Amount), nil
	case "note":
		if o.Note == nil {
			return value.Null{}, nil
		}
		return value.String(*o.Note), nil
	case "priority":
		return value.Bool(o.Priority), nil
	case "placed":
		return value.NewTime(o.Placed), nil
	}
	return nil, errors.Wrapf(query.ErrUnknownProperty, "order has no %q", field)
}

func (orderAccessor) Identity(o order) string { return strconv.FormatInt(o.ID, 10) }

type memorySource struct {
	rows      []order
	deleted   []int64
	gone      map[int64]bool
	failOn    int64
	requested []time.Time
}

func (s *memorySource) Candidates(_ context.Context, businessAt time.Time) ([]order, error) {
	s.requested = append(s.requested, businessAt)
	return append([]order(nil), s.rows...), nil
}

func (s *memorySource) Delete(_ context.Context, rows []order) ([]order, error) {
	var deleted []order
	for _, o := range rows {
		if o.ID == s.failOn {
			return nil, errors.Newf("order %d is locked", o.ID)
		}
		if s.gone[o.ID] {
			continue
		}
		deleted = append(deleted, o)
	}
	for _, o := range deleted {
		s.deleted = append(s.deleted, o.ID)
	}
	return deleted, nil
}

func ptr(s string) *string { return &s }

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func fixture() *memorySource {
	return &memorySource{rows: []order{
		{ID: 1, Status: "pending", Amount: 10, Placed: day(3)},
		{ID: 2, Status: "shipped", Amount: 250, Note: ptr("fragile"), Priority: true, Placed: day(1)},
		{ID: 3, Status: "pending", Amount: 99.5, Note: ptr("gift_wrap 100%"), Placed: day(2)},
		{ID: 4, Status: "cancelled", Amount: 250, Placed: day(4)},
	}}
}

func run(t *testing.T, src *memorySource, method string, args ...any) (Result[order], error) {
	t.Helper()
	q, err := parser.Parse(method)
	require.NoError(t, err)
	return New[order](src, orderAccessor{}).Execute(context.Background(), q, args...)
}

func ids(rows []order) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestExecute_Find(t *testing.T) {
	tests := []struct {
		method string
		args   []any
		want   []int64
	}{
		{"findByStatus", []any{"pending"}, []int64{1, 3}},
		{"findByStatusNot", []any{"pending"}, []int64{2, 4}},
		{"findByAmountGreaterThan", []any{99.5}, []int64{2, 4}},
		{"findByAmountGreaterThanEqual", []any{99.5}, []int64{2, 3, 4}},
		{"findByAmountLessThan", []any{100}, []int64{1, 3}},
		{"findByAmountLessThanEqual", []any{10}, []int64{1}},
		{"findByAmountBetween", []any{10, 99.5}, []int64{1, 3}},
		{"findByPlacedBetween", []any{day(2), day(3)}, []int64{1, 3}},
		{"findByStatusIn", []any{[]string{"shipped", "cancelled"}}, []int64{2, 4}},
		{"findByStatusNotIn", []any{[]string{"shipped", "cancelled"}}, []int64{1, 3}},
		{"findByStatusLike", []any{"%end%"}, []int64{1, 3}},
		{"findByStatusLike", []any{"p_nding"}, []int64{1, 3}},
		{"findByStatusNotLike", []any{"%ed"}, []int64{1, 3}},
		{"findByNoteLike", []any{"gift\\_wrap 100%"}, nil},
		{"findByNoteLike", []any{"gift_wrap 100%"}, []int64{3}},
		{"findByNoteLike", []any{"gift.wrap%"}, nil},
		{"findByStatusContaining", []any{"ship"}, []int64{2}},
		{"findByStatusNotContaining", []any{"ship"}, []int64{1, 3, 4}},
		{"findByStatusStartingWith", []any{"can"}, []int64{4}},
		{"findByStatusEndingWith", []any{"ed"}, []int64{2, 4}},
		{"findByNoteIsNull", nil, []int64{1, 4}},
		{"findByNoteIsNotNull", nil, []int64{2, 3}},
		{"findByPriorityTrue", nil, []int64{2}},
		{"findByPriorityFalse", nil, []int64{1, 3, 4}},
		{"findByNote", []any{nil}, []int64{1, 4}},
		{"findByNoteContaining", []any{"r"}, []int64{2, 3}},
		{"findByStatusAndAmountGreaterThan", []any{"pending", 50}, []int64{3}},
	}

	for _, tc := range tests {
		t.Run(tc.method, func(t *testing.T) {
			res, err := run(t, fixture(), tc.method, tc.args...)
			require.NoError(t, err)
			assert.Equal(t, query.Find, res.Type)
			if tc.want == nil {
				assert.Empty(t, res.Rows)
				return
			}
			assert.Equal(t, tc.want, ids(res.Rows))
		})
	}
}

func TestExecute_AndGroupsAreORed(t *testing.T) {
	// (status = pending AND amount = 10) OR (status = cancelled)
	res, err := run(t, fixture(), "findByStatusAndAmountOrStatus", "pending", 10, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, ids(res.Rows))

	// A row matching only the second branch is included, one matching
	// neither branch is not.
	res, err = run(t, fixture(), "findByStatusAndAmountOrStatus", "pending", 12345, "shipped")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(res.Rows))
}

func TestExecute_GroupingUsesEachConditionsOwnJoin(t *testing.T) {
	src := &memorySource{rows: []order{
		{ID: 1, Status: "a1", Note: ptr("b1")},
		{ID: 2, Status: "zz", Note: ptr("zz"), Priority: true},
		{ID: 3, Status: "a1", Note: ptr("zz")},
	}}

	// findByAAndBOrC with A=status, B=note, C=priority.
	q := query.ParsedQuery{Conditions: []query.Condition{
		{Property: "status", Operator: query.Equals, Logical: query.And},
		{Property: "note", Operator: query.Equals, Logical: query.And},
		{Property: "priority", Operator: query.True, Logical: query.Or},
	}}
	res, err := New[order](src, orderAccessor{}).Execute(context.Background(), q, "a1", "b1")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(res.Rows))
}

func TestExecute_ArityMismatch(t *testing.T) {
	tests := []struct {
		method string
		args   []any
	}{
		{"findByAmountBetween", []any{10}},
		{"findByAmountBetween", []any{10, 20, 30}},
		{"findByNoteIsNull", []any{"x"}},
		{"findByStatus", nil},
		{"findByStatusAsOf", []any{"pending"}},
	}

	for _, tc := range tests {
		t.Run(tc.method, func(t *testing.T) {
			src := fixture()
			_, err := run(t, src, tc.method, tc.args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, query.ErrParameterArityMismatch))
			assert.Empty(t, src.requested, "no candidates are loaded on arity errors")
		})
	}
}

func TestExecute_UnknownProperty(t *testing.T) {
	_, err := run(t, fixture(), "findByColor", "red")
	assert.True(t, errors.Is(err, query.ErrUnknownProperty))

	_, err = run(t, fixture(), "findByStatusOrderByColor", "pending")
	assert.True(t, errors.Is(err, query.ErrUnknownProperty))

	// Never silently false: the unknown property in the OR branch still fails.
	_, err = run(t, fixture(), "findByStatusOrColor", "pending", "red")
	assert.True(t, errors.Is(err, query.ErrUnknownProperty))
}

func TestExecute_UnsupportedOperator(t *testing.T) {
	tests := []struct {
		method string
		args   []any
	}{
		{"findByAmountContaining", []any{"1"}},
		{"findByStatusTrue", nil},
		{"findByStatusIn", []any{"pending"}},
		{"findByStatusLike", []any{42}},
		{"findByAmountGreaterThan", []any{"ten"}},
		{"findByStatusAsOf", []any{"pending", "yesterday"}},
		{"findByStatus", []any{struct{}{}}},
	}

	for _, tc := range tests {
		t.Run(tc.method, func(t *testing.T) {
			_, err := run(t, fixture(), tc.method, tc.args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, query.ErrUnsupportedOperator), "got %v", err)
		})
	}
}

func TestExecute_OrderLimitDistinct(t *testing.T) {
	res, err := run(t, fixture(), "findByStatusNotOrderByAmountDescPlacedAsc", "none")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4, 3, 1}, ids(res.Rows))

	res, err = run(t, fixture(), "findTop2ByStatusNotOrderByAmountDescPlacedDesc", "none")
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 2}, ids(res.Rows))

	res, err = run(t, fixture(), "findFirstByStatusOrderByPlaced", "pending")
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(res.Rows))
}

func TestExecute_SortIsStableAndNullsFirst(t *testing.T) {
	res, err := run(t, fixture(), "findByStatusNotOrderByNote", "none")
	require.NoError(t, err)
	// Null notes first in candidate order, then "fragile" < "gift_wrap 100%".
	assert.Equal(t, []int64{1, 4, 2, 3}, ids(res.Rows))

	res, err = run(t, fixture(), "findByStatusNotOrderByNoteDesc", "none")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1, 4}, ids(res.Rows))
}

func TestExecute_DistinctAfterLimit(t *testing.T) {
	src := &memorySource{rows: []order{
		{ID: 1, Status: "a"}, {ID: 1, Status: "a"}, {ID: 2, Status: "a"}, {ID: 3, Status: "a"},
	}}

	res, err := run(t, src, "findDistinctTop3ByStatus", "a")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(res.Rows), "limit is applied before distinct")
}

func TestExecute_CountExistsDelete(t *testing.T) {
	res, err := run(t, fixture(), "countByStatus", "pending")
	require.NoError(t, err)
	assert.Equal(t, query.Count, res.Type)
	assert.Equal(t, int64(2), res.Count)
	assert.Nil(t, res.Rows)

	res, err = run(t, fixture(), "existsByStatus", "returned")
	require.NoError(t, err)
	assert.False(t, res.Exists)

	res, err = run(t, fixture(), "existsByStatus", "shipped")
	require.NoError(t, err)
	assert.True(t, res.Exists)

	src := fixture()
	res, err = run(t, src, "deleteByAmount", 250)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Count)
	assert.Equal(t, []int64{2, 4}, src.deleted)
}

func TestExecute_DeleteReportsOnlyTerminatedRows(t *testing.T) {
	src := fixture()
	src.gone = map[int64]bool{3: true}
	res, err := run(t, src, "deleteByStatus", "pending")
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Count)
	assert.Equal(t, []int64{1}, ids(res.Rows))

	src = fixture()
	src.gone = map[int64]bool{1: true, 3: true}
	res, err = run(t, src, "deleteByStatus", "pending")
	require.NoError(t, err)
	assert.Zero(t, res.Count)
	assert.False(t, res.Exists)
}

func TestExecute_DeleteFailureDeletesNothing(t *testing.T) {
	src := fixture()
	src.failOn = 3
	_, err := run(t, src, "deleteByStatus", "pending")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order 3 is locked")
	assert.Empty(t, src.deleted)
}

func TestExecute_AsOfPassesBusinessInstant(t *testing.T) {
	src := fixture()
	at := time.Date(2023, 6, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	res, err := run(t, src, "findByStatusAsOf", "pending", at)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(res.Rows))
	require.Len(t, src.requested, 1)
	assert.Equal(t, at.UTC(), src.requested[0])

	// Without conditions the as-of instant is not an argument.
	src = fixture()
	res, err = run(t, src, "findByAsOf")
	require.NoError(t, err)
	assert.Len(t, res.Rows, 4)
	assert.True(t, src.requested[0].IsZero())
}

func TestExecute_PropertyCheckerFailsFast(t *testing.T) {
	src := &memorySource{}
	x := New[order](src, checkedAccessor{})

	q, err := parser.Parse("findByColor")
	require.NoError(t, err)
	_, err = x.Execute(context.Background(), q, "red")
	assert.True(t, errors.Is(err, query.ErrUnknownProperty))
	assert.Empty(t, src.requested)
}

type checkedAccessor struct{ orderAccessor }

func (checkedAccessor) HasProperty(field string) bool {
	switch field {
	case "id", "status", "amount", "note", "priority", "placed":
		return true
	}
	return false
}

func TestLikePattern(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"%", "", true},
		{"a%", "abc", true},
		{"a_c", "abc", true},
		{"a_c", "abbc", false},
		{"a.c", "abc", false},
		{"a.c", "a.c", true},
		{"(x)+", "(x)+", true},
		{"%\n%", "line1\nline2", true},
	}

	for _, tc := range tests {
		t.Run(tc.pattern, func(t *testing.T) {
			assert.Equal(t, tc.want, likePattern(tc.pattern).MatchString(tc.input))
		})
	}
}
