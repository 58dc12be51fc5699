package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_CountsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg)
	require.NoError(t, err)

	ctx := context.Background()
	p.Observe(ctx, "order", "save", nil, time.Millisecond)
	p.Observe(ctx, "order", "save", nil, time.Millisecond)
	p.Observe(ctx, "order", "save", errors.New("boom"), time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.operations.WithLabelValues("order", "save", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.operations.WithLabelValues("order", "save", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(p.latency))
}

func TestPrometheus_LatencyHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg)
	require.NoError(t, err)

	ctx := context.Background()
	p.Observe(ctx, "order", "query", nil, 50*time.Microsecond)
	p.Observe(ctx, "order", "query", errors.New("boom"), 2*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	var latency *dto.MetricFamily
	for _, mf := range families {
		if mf.GetName() == "tempora_operation_duration_seconds" {
			latency = mf
		}
	}
	require.NotNil(t, latency)
	assert.Equal(t, dto.MetricType_HISTOGRAM, latency.GetType())
	require.Len(t, latency.GetMetric(), 1)

	m := latency.GetMetric()[0]
	labels := map[string]string{}
	for _, lp := range m.GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	assert.Equal(t, map[string]string{"entity": "order", "operation": "query"}, labels)
	assert.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
	assert.InDelta(t, 0.00205, m.GetHistogram().GetSampleSum(), 1e-9)
}

func TestPrometheus_DuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus(reg)
	require.NoError(t, err)

	_, err = NewPrometheus(reg)
	assert.Error(t, err)
}

type recording struct {
	entity, operation string
	err               error
}

func (r *recording) Observe(_ context.Context, entity, operation string, err error, _ time.Duration) {
	r.entity, r.operation, r.err = entity, operation, err
}

func TestSince_ReadsErrorAtDeferTime(t *testing.T) {
	rec := &recording{}
	run := func() (err error) {
		defer Since(context.Background(), rec, "order", "update", time.Now(), &err)
		return errors.New("late")
	}

	require.Error(t, run())
	assert.Equal(t, "order", rec.entity)
	assert.Equal(t, "update", rec.operation)
	assert.EqualError(t, rec.err, "late")
}
