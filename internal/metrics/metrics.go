// Package metrics records repository and query outcomes.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder observes one operation outcome.
type Recorder interface {
	Observe(ctx context.Context, entity, operation string, err error, duration time.Duration)
}

// Nop discards observations.
type Nop struct{}

// Observe implements Recorder.
func (Nop) Observe(context.Context, string, string, error, time.Duration) {}

// Prometheus counts operations by entity, operation and result, and tracks
// their latency.
type Prometheus struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with reg. A nil
// reg uses a fresh registry.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	p := &Prometheus{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tempora",
			Name:      "operations_total",
			Help:      "Repository operations by entity, operation and result.",
		}, []string{"entity", "operation", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tempora",
			Name:      "operation_duration_seconds",
			Help:      "Repository operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"entity", "operation"}),
	}
	for _, c := range []prometheus.Collector{p.operations, p.latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Observe implements Recorder.
func (p *Prometheus) Observe(_ context.Context, entity, operation string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	p.operations.WithLabelValues(entity, operation, result).Inc()
	p.latency.WithLabelValues(entity, operation).Observe(duration.Seconds())
}

// Since observes the time elapsed since start. It is meant for defer:
//
//	defer metrics.Since(ctx, rec, "order", "save", time.Now(), &err)
func Since(ctx context.Context, r Recorder, entity, operation string, start time.Time, err *error) {
	var e error
	if err != nil {
		e = *err
	}
	r.Observe(ctx, entity, operation, e, time.Since(start))
}
