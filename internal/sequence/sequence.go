// Package sequence allocates entity ids from named counters.
//
// A Generator hands out values start, start+increment, start+2*increment...
// per sequence name. Counter state lives in a pluggable Backend: Memory for
// tests and single-process use, store.SequenceBackend for persistence.
package sequence

import (
	"context"

	"github.com/cockroachdb/errors"
)

// DefaultStart is the first value handed out by a new sequence.
const DefaultStart int64 = 1000

// ErrInvalidCount is returned when a batch reservation asks for fewer than
// one value.
var ErrInvalidCount = errors.New("invalid sequence count")

// Backend stores counter state. Reserve must be atomic per name: two
// concurrent reservations never receive overlapping blocks.
type Backend interface {
	// Reserve advances the named counter by count*increment and returns the
	// value it held before. A name seen for the first time holds start.
	Reserve(ctx context.Context, name string, count, start, increment int64) (int64, error)
	// Reset makes next the value returned by the next reservation.
	Reset(ctx context.Context, name string, next int64) error
	// Clear forgets every counter.
	Clear(ctx context.Context) error
}

// Generator allocates ids. Safe for concurrent use when the backend is.
type Generator struct {
	backend   Backend
	start     int64
	increment int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithStart sets the first value of sequences not yet seen.
func WithStart(start int64) Option {
	return func(g *Generator) { g.start = start }
}

// WithIncrement sets the step between consecutive values. Values < 1 are
// ignored.
func WithIncrement(increment int64) Option {
	return func(g *Generator) {
		if increment > 0 {
			g.increment = increment
		}
	}
}

// New creates a generator over backend. A nil backend uses NewMemory().
func New(backend Backend, opts ...Option) *Generator {
	if backend == nil {
		backend = NewMemory()
	}
	g := &Generator{backend: backend, start: DefaultStart, increment: 1}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns the next id of the named sequence.
func (g *Generator) Next(ctx context.Context, name string) (int64, error) {
	id, err := g.backend.Reserve(ctx, name, 1, g.start, g.increment)
	if err != nil {
		return 0, errors.Wrapf(err, "next %s", name)
	}
	return id, nil
}

// NextN reserves count ids in one step and returns them in order.
func (g *Generator) NextN(ctx context.Context, name string, count int) ([]int64, error) {
	if count <= 0 {
		return nil, errors.Wrapf(ErrInvalidCount, "count %d for %s must be positive", count, name)
	}
	first, err := g.backend.Reserve(ctx, name, int64(count), g.start, g.increment)
	if err != nil {
		return nil, errors.Wrapf(err, "next %d %s", count, name)
	}

	ids := make([]int64, count)
	for i := range ids {
		ids[i] = first + int64(i)*g.increment
	}
	return ids, nil
}

// Reset makes next the value returned by the following Next call.
func (g *Generator) Reset(ctx context.Context, name string, next int64) error {
	return errors.Wrapf(g.backend.Reset(ctx, name, next), "reset %s", name)
}

// Clear forgets every sequence; each restarts at the start value.
func (g *Generator) Clear(ctx context.Context) error {
	return errors.Wrap(g.backend.Clear(ctx), "clear sequences")
}
