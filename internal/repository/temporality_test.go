package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tempora/internal/temporal"
	tutil "github.com/roach88/tempora/internal/testutil"
)

func createProcessingRepo(t *testing.T) *Repository[order] {
	t.Helper()
	desc := orderDescriptor
	desc.Temporality = ProcessingTime
	r, _ := createTestRepoFor(t, desc)
	return r
}

func TestParseTemporality(t *testing.T) {
	tests := []struct {
		name string
		want Temporality
	}{
		{"", Bitemporal},
		{"bitemporal", Bitemporal},
		{"processing", ProcessingTime},
	}
	for _, tc := range tests {
		got, err := ParseTemporality(tc.name)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, got)
	}

	_, err := ParseTemporality("business")
	assert.Error(t, err)
	assert.Equal(t, "processing", ProcessingTime.String())
	assert.Equal(t, "Temporality(7)", Temporality(7).String())
}

func TestNew_RejectsUnknownTemporality(t *testing.T) {
	desc := orderDescriptor
	desc.Temporality = Temporality(7)
	_, err := New(nil, desc)
	assert.Error(t, err)
}

func TestProcessingTime_SavePinsBusinessInterval(t *testing.T) {
	r := createProcessingRepo(t)

	saved, err := r.Save(context.Background(), Entity[order]{Data: order{"pending", 10}})
	require.NoError(t, err)
	assert.Equal(t, temporal.Origin, saved.Business.From)
	assert.Equal(t, temporal.Infinity, saved.Business.Thru)
	assert.Equal(t, tutil.Epoch, saved.Processing.From)

	_, err = r.Save(context.Background(), Entity[order]{
		Data:     order{"pending", 10},
		Business: temporal.Interval{From: tutil.Epoch},
	})
	assert.True(t, errors.Is(err, ErrNoBusinessTime))
}

func TestProcessingTime_AsOfReadsFollowProcessingTime(t *testing.T) {
	r := createProcessingRepo(t)
	ctx := context.Background()

	saved, err := r.Save(ctx, Entity[order]{Data: order{"pending", 10}})
	require.NoError(t, err)
	updated, err := r.Update(ctx, Entity[order]{ID: saved.ID, Data: order{"shipped", 10}})
	require.NoError(t, err)
	assert.Equal(t, temporal.Origin, updated.Business.From)

	before, ok, err := r.FindByIDAsOfProcessing(ctx, saved.ID, saved.Processing.From)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "pending", before.Data.Status)

	now, ok, err := r.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "shipped", now.Data.Status)

	// Any business instant sees the same belief.
	far, ok, err := r.FindByIDAsOf(ctx, saved.ID, tutil.Epoch.AddDate(-100, 0, 0), temporal.Infinity)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, now, far)

	all, err := r.FindAllAsOfProcessing(ctx, saved.Processing.From)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "pending", all[0].Data.Status)

	history, err := r.History(ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, updated.Processing.From, history[0].Processing.Thru)
	for _, v := range history {
		assert.Equal(t, temporal.Origin, v.Business.From)
		assert.Equal(t, temporal.Infinity, v.Business.Thru)
	}
}

func TestProcessingTime_RejectsBusinessInstants(t *testing.T) {
	r := createProcessingRepo(t)
	ctx := context.Background()
	saved, err := r.Save(ctx, Entity[order]{Data: order{"pending", 10}})
	require.NoError(t, err)

	_, err = r.UpdateAsOf(ctx, Entity[order]{ID: saved.ID, Data: order{"shipped", 10}}, tutil.Epoch.Add(time.Hour))
	assert.True(t, errors.Is(err, ErrNoBusinessTime))

	err = r.DeleteByIDAsOf(ctx, saved.ID, tutil.Epoch.Add(time.Hour))
	assert.True(t, errors.Is(err, ErrNoBusinessTime))

	_, err = r.UpdateAsOf(ctx, Entity[order]{ID: saved.ID, Data: order{"shipped", 10}}, temporal.Origin)
	assert.NoError(t, err)
}

func TestProcessingTime_DeleteEndsProcessingLife(t *testing.T) {
	r := createProcessingRepo(t)
	ctx := context.Background()
	saved, err := r.Save(ctx, Entity[order]{Data: order{"pending", 10}})
	require.NoError(t, err)

	require.NoError(t, r.DeleteByID(ctx, saved.ID))

	exists, err := r.Exists(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	old, ok, err := r.FindByIDAsOfProcessing(ctx, saved.ID, saved.Processing.From)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, saved.Data, old.Data)

	history, err := r.History(ctx, saved.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "nothing is re-inserted before Origin")

	err = r.DeleteByID(ctx, saved.ID)
	assert.True(t, errors.Is(err, ErrEntityNotFound))
}

func TestProcessingTime_Query(t *testing.T) {
	r := createProcessingRepo(t)
	ctx := context.Background()
	seeded := seedOrders(t, r)

	res, err := r.Query(ctx, "findByStatusAsOf", "pending", tutil.Epoch.AddDate(-1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 30}, amounts(res.Rows))

	res, err = r.Query(ctx, "deleteByStatus", "pending")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Count)

	all, err := r.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{20}, amounts(all))

	before, err := r.FindAllAsOfProcessing(ctx, seeded[2].Processing.From)
	require.NoError(t, err)
	assert.Len(t, before, 3)
}
