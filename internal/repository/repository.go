package repository

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/tempora/internal/executor"
	"github.com/roach88/tempora/internal/metrics"
	"github.com/roach88/tempora/internal/parser"
	"github.com/roach88/tempora/internal/query"
	"github.com/roach88/tempora/internal/sequence"
	"github.com/roach88/tempora/internal/store"
	"github.com/roach88/tempora/internal/temporal"
)

var (
	// ErrEntityNotFound is returned when an update or delete finds no
	// currently believed version of the id at the requested business instant.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrEntityExists is returned when Save is given the id of an entity
	// that already has current versions.
	ErrEntityExists = errors.New("entity already exists")

	// ErrNoBusinessTime is returned when a write names a business instant
	// for an entity that records processing time only.
	ErrNoBusinessTime = errors.New("entity has no business time")
)

// Repository stores and queries the versions of one entity type.
//
// Every write stamps a processing instant from the repository's clock. The
// clock is wrapped in a temporal.MonotonicClock, so two writes never share
// an instant.
type Repository[T any] struct {
	desc     Descriptor[T]
	store    *store.Store
	seq      *sequence.Generator
	clock    temporal.Clock
	parser   *parser.Parser
	executor *executor.Executor[row[T]]
	log      *zap.Logger
	metrics  metrics.Recorder
}

// Option configures a Repository.
type Option func(*options)

type options struct {
	clock   temporal.Clock
	seq     *sequence.Generator
	log     *zap.Logger
	metrics metrics.Recorder
}

// WithClock sets the source of processing instants and default business
// instants.
func WithClock(c temporal.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithSequence sets the id generator. The default persists counters in the
// store.
func WithSequence(g *sequence.Generator) Option {
	return func(o *options) { o.seq = g }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.metrics = r
		}
	}
}

// New creates a repository for desc backed by s.
func New[T any](s *store.Store, desc Descriptor[T], opts ...Option) (*Repository[T], error) {
	if err := desc.validate(); err != nil {
		return nil, err
	}

	o := options{log: zap.NewNop(), metrics: metrics.Nop{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.seq == nil {
		o.seq = sequence.New(s.Sequences())
	}

	log := o.log.With(zap.String("entity", desc.Name))
	r := &Repository[T]{
		desc:    desc,
		store:   s,
		seq:     o.seq,
		clock:   temporal.NewMonotonicClock(o.clock),
		parser:  parser.New(parser.WithLogger(log)),
		log:     log,
		metrics: o.metrics,
	}
	r.executor = executor.New[row[T]](source[T]{r}, newAccessor(desc), executor.WithLogger(log))
	return r, nil
}

// Name returns the entity name.
func (r *Repository[T]) Name() string {
	return r.desc.Name
}

// Save records a new entity. A zero ID is allocated from the entity's
// sequence. Business time starts at e.Business.From, or now when it is zero;
// processing time starts now. Both intervals are open. A ProcessingTime
// entity always starts business time at temporal.Origin.
func (r *Repository[T]) Save(ctx context.Context, e Entity[T]) (_ Entity[T], err error) {
	defer metrics.Since(ctx, r.metrics, r.desc.Name, "save", time.Now(), &err)

	now := r.clock.Now()
	if e.ID == 0 {
		if e.ID, err = r.seq.Next(ctx, r.desc.sequence()); err != nil {
			return Entity[T]{}, errors.Wrapf(err, "save %s", r.desc.Name)
		}
	}

	businessFrom := e.Business.From
	switch {
	case r.processingOnly():
		if businessFrom, err = r.pinBusiness(businessFrom); err != nil {
			return Entity[T]{}, errors.Wrapf(err, "save %s %d", r.desc.Name, e.ID)
		}
	case businessFrom.IsZero():
		businessFrom = now
	}
	v, err := r.newVersion(e.ID, e.Data, businessFrom, now)
	if err != nil {
		return Entity[T]{}, err
	}
	// The existence check and the insert share one transaction.
	_, err = r.store.Apply(ctx, r.desc.Name, e.ID, func(edge []temporal.Version) (temporal.Transition, error) {
		if len(edge) > 0 {
			return temporal.Transition{}, errors.Wrapf(ErrEntityExists, "%s %d", r.desc.Name, e.ID)
		}
		return temporal.Transition{Inserted: []temporal.Version{v}}, nil
	})
	if err != nil {
		return Entity[T]{}, errors.Wrapf(err, "save %s %d", r.desc.Name, e.ID)
	}

	r.log.Debug("entity saved", zap.Int64("id", e.ID), zap.Stringer("business", v.Business))
	return r.stored(e.ID, v)
}

func (r *Repository[T]) newVersion(id int64, data T, businessFrom, now time.Time) (temporal.Version, error) {
	payload, err := r.desc.Encode(data)
	if err != nil {
		return temporal.Version{}, errors.Wrapf(err, "encode %s %d", r.desc.Name, id)
	}
	business, err := temporal.OpenFrom(businessFrom)
	if err != nil {
		return temporal.Version{}, err
	}
	processing, err := temporal.OpenFrom(now)
	if err != nil {
		return temporal.Version{}, err
	}
	return temporal.Version{ID: id, Business: business, Processing: processing, Payload: payload}, nil
}

// processingOnly reports whether business time is pinned.
func (r *Repository[T]) processingOnly() bool {
	return r.desc.Temporality == ProcessingTime
}

// businessNow is the business instant of "true now" reads and writes.
func (r *Repository[T]) businessNow() time.Time {
	if r.processingOnly() {
		return temporal.Origin
	}
	return r.clock.Now()
}

// pinBusiness accepts only an unset business instant or temporal.Origin
// for a ProcessingTime entity.
func (r *Repository[T]) pinBusiness(at time.Time) (time.Time, error) {
	if !r.processingOnly() {
		return at, nil
	}
	if !at.IsZero() && !at.Equal(temporal.Origin) {
		return time.Time{}, errors.Wrapf(ErrNoBusinessTime, "%s at %s", r.desc.Name, at.Format(time.RFC3339Nano))
	}
	return temporal.Origin, nil
}

// readBusiness maps a read's business instant onto the entity's axes. A
// ProcessingTime version is true at every business instant.
func (r *Repository[T]) readBusiness(at time.Time) time.Time {
	if r.processingOnly() {
		return temporal.Origin
	}
	return at
}

// FindByID returns the version believed now that is true now.
func (r *Repository[T]) FindByID(ctx context.Context, id int64) (Entity[T], bool, error) {
	return r.FindByIDAsOf(ctx, id, r.businessNow(), temporal.Infinity)
}

// FindByIDAsOfProcessing returns the version believed at processingAt that
// is true now. It is the as-of read of a ProcessingTime entity.
func (r *Repository[T]) FindByIDAsOfProcessing(ctx context.Context, id int64, processingAt time.Time) (Entity[T], bool, error) {
	return r.FindByIDAsOf(ctx, id, r.businessNow(), processingAt)
}

// FindByIDAsOf returns the version whose business interval contains
// businessAt and whose processing interval contains processingAt. A zero
// or Infinity processingAt means the current belief. businessAt is ignored
// for a ProcessingTime entity.
func (r *Repository[T]) FindByIDAsOf(ctx context.Context, id int64, businessAt, processingAt time.Time) (_ Entity[T], _ bool, err error) {
	defer metrics.Since(ctx, r.metrics, r.desc.Name, "find_by_id", time.Now(), &err)

	businessAt = r.readBusiness(businessAt)
	vs, err := r.store.AsOf(ctx, r.desc.Name, &id, businessAt, processingAt)
	if err != nil {
		return Entity[T]{}, false, err
	}
	if len(vs) == 0 {
		return Entity[T]{}, false, nil
	}
	found, err := r.desc.toRow(vs[0])
	if err != nil {
		return Entity[T]{}, false, err
	}
	return found.entity, true, nil
}

// Exists reports whether id has a version that is true now.
func (r *Repository[T]) Exists(ctx context.Context, id int64) (bool, error) {
	_, ok, err := r.FindByID(ctx, id)
	return ok, err
}

// Update makes e.Data true from now on.
func (r *Repository[T]) Update(ctx context.Context, e Entity[T]) (Entity[T], error) {
	return r.UpdateAsOf(ctx, e, r.businessNow())
}

// UpdateAsOf makes e.Data true from businessAt until the end of the
// affected business history. The versions it replaces are terminated on
// processing time, never overwritten; history before businessAt is kept.
// A ProcessingTime entity accepts only temporal.Origin as businessAt.
func (r *Repository[T]) UpdateAsOf(ctx context.Context, e Entity[T], businessAt time.Time) (_ Entity[T], err error) {
	defer metrics.Since(ctx, r.metrics, r.desc.Name, "update", time.Now(), &err)

	if businessAt, err = r.pinBusiness(businessAt); err != nil {
		return Entity[T]{}, errors.Wrapf(err, "update %s %d", r.desc.Name, e.ID)
	}
	payload, err := r.desc.Encode(e.Data)
	if err != nil {
		return Entity[T]{}, errors.Wrapf(err, "encode %s %d", r.desc.Name, e.ID)
	}

	now := r.clock.Now()
	businessAt = businessAt.UTC()
	tr, err := r.store.Apply(ctx, r.desc.Name, e.ID, func(edge []temporal.Version) (temporal.Transition, error) {
		return temporal.Supersede(edge, businessAt, now, payload)
	})
	if err != nil {
		return Entity[T]{}, r.notFound(err, "update", e.ID)
	}

	r.log.Debug("entity updated",
		zap.Int64("id", e.ID),
		zap.Int("terminated", len(tr.Terminated)),
		zap.Int("inserted", len(tr.Inserted)),
	)
	for _, v := range tr.Inserted {
		if v.Business.From.Equal(businessAt) {
			return r.stored(e.ID, v)
		}
	}
	return Entity[T]{}, errors.AssertionFailedf("update %s %d inserted no version at %s",
		r.desc.Name, e.ID, businessAt)
}

// stored returns the entity as persisted in v, so callers see the encoded
// payload rather than their input.
func (r *Repository[T]) stored(id int64, v temporal.Version) (Entity[T], error) {
	data, err := r.desc.Decode(v.Payload)
	if err != nil {
		return Entity[T]{}, errors.Wrapf(err, "decode %s %d", r.desc.Name, id)
	}
	return Entity[T]{ID: id, Data: data, Business: v.Business, Processing: v.Processing}, nil
}

// DeleteByID ends the entity's business life now.
func (r *Repository[T]) DeleteByID(ctx context.Context, id int64) error {
	return r.DeleteByIDAsOf(ctx, id, r.businessNow())
}

// DeleteByIDAsOf ends the entity's business life at businessAt. Versions
// are terminated, never removed, so earlier as-of reads still see them.
// Deleting a ProcessingTime entity ends its processing life instead.
func (r *Repository[T]) DeleteByIDAsOf(ctx context.Context, id int64, businessAt time.Time) (err error) {
	defer metrics.Since(ctx, r.metrics, r.desc.Name, "delete", time.Now(), &err)

	if businessAt, err = r.pinBusiness(businessAt); err != nil {
		return errors.Wrapf(err, "delete %s %d", r.desc.Name, id)
	}
	now := r.clock.Now()
	tr, err := r.store.Apply(ctx, r.desc.Name, id, func(edge []temporal.Version) (temporal.Transition, error) {
		return temporal.Retire(edge, businessAt, now)
	})
	if err != nil {
		return r.notFound(err, "delete", id)
	}
	r.log.Debug("entity deleted", zap.Int64("id", id), zap.Int("terminated", len(tr.Terminated)))
	return nil
}

// notFound marks a missing edge point as ErrEntityNotFound while keeping
// the temporal cause.
func (r *Repository[T]) notFound(err error, op string, id int64) error {
	err = errors.Wrapf(err, "%s %s %d", op, r.desc.Name, id)
	if errors.Is(err, temporal.ErrNoEdgePoint) {
		return errors.Mark(err, ErrEntityNotFound)
	}
	return err
}

// FindAll returns every entity as it is believed and true now.
func (r *Repository[T]) FindAll(ctx context.Context) ([]Entity[T], error) {
	return r.FindAllAsOf(ctx, r.businessNow(), temporal.Infinity)
}

// FindAllAsOfProcessing returns every entity as it was believed at
// processingAt and is true now.
func (r *Repository[T]) FindAllAsOfProcessing(ctx context.Context, processingAt time.Time) ([]Entity[T], error) {
	return r.FindAllAsOf(ctx, r.businessNow(), processingAt)
}

// FindAllAsOf returns every entity's version at the given instants, ordered
// by id. businessAt is ignored for a ProcessingTime entity.
func (r *Repository[T]) FindAllAsOf(ctx context.Context, businessAt, processingAt time.Time) (_ []Entity[T], err error) {
	defer metrics.Since(ctx, r.metrics, r.desc.Name, "find_all", time.Now(), &err)

	businessAt = r.readBusiness(businessAt)
	vs, err := r.store.All(ctx, r.desc.Name, businessAt, processingAt)
	if err != nil {
		return nil, err
	}
	return r.desc.toEntities(vs)
}

// Count returns the number of entities true now.
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	all, err := r.FindAll(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(all)), nil
}

// History returns every version ever recorded for id, terminated ones
// included, ordered by processing then business start.
func (r *Repository[T]) History(ctx context.Context, id int64) (_ []Entity[T], err error) {
	defer metrics.Since(ctx, r.metrics, r.desc.Name, "history", time.Now(), &err)

	vs, err := r.store.History(ctx, r.desc.Name, id)
	if err != nil {
		return nil, err
	}
	return r.desc.toEntities(vs)
}

// Query parses method and runs it with args.
func (r *Repository[T]) Query(ctx context.Context, method string, args ...any) (executor.Result[Entity[T]], error) {
	q, err := r.parser.Parse(method)
	if err != nil {
		return executor.Result[Entity[T]]{}, err
	}
	return r.Run(ctx, q, args...)
}

// Run executes a parsed or built query.
func (r *Repository[T]) Run(ctx context.Context, q query.ParsedQuery, args ...any) (_ executor.Result[Entity[T]], err error) {
	defer metrics.Since(ctx, r.metrics, r.desc.Name, "query_"+strings.ToLower(q.Type.String()), time.Now(), &err)

	res, err := r.executor.Execute(ctx, q, args...)
	if err != nil {
		return executor.Result[Entity[T]]{}, errors.Wrapf(err, "%s", r.desc.Name)
	}

	out := executor.Result[Entity[T]]{
		Type:   res.Type,
		Count:  res.Count,
		Exists: res.Exists,
	}
	if res.Rows != nil {
		out.Rows = make([]Entity[T], len(res.Rows))
		for i, rw := range res.Rows {
			out.Rows[i] = rw.entity
		}
	}
	return out, nil
}

// source feeds the executor the current versions at a business instant.
type source[T any] struct {
	r *Repository[T]
}

func (s source[T]) Candidates(ctx context.Context, businessAt time.Time) ([]row[T], error) {
	switch {
	case s.r.processingOnly():
		businessAt = temporal.Origin
	case businessAt.IsZero():
		businessAt = s.r.clock.Now()
	}
	vs, err := s.r.store.All(ctx, s.r.desc.Name, businessAt, temporal.Infinity)
	if err != nil {
		return nil, err
	}
	rows := make([]row[T], 0, len(vs))
	for _, v := range vs {
		rw, err := s.r.desc.toRow(v)
		if err != nil {
			return nil, err
		}
		rows = append(rows, rw)
	}
	return rows, nil
}

// Delete retires every row's entity in one transaction, each from now on
// or from the row's own start when that lies in the future. An entity whose
// business life already ends by then is skipped. ProcessingTime rows are
// retired from temporal.Origin.
func (s source[T]) Delete(ctx context.Context, rows []row[T]) (_ []row[T], err error) {
	if len(rows) == 0 {
		return nil, nil
	}
	r := s.r
	defer metrics.Since(ctx, r.metrics, r.desc.Name, "delete", time.Now(), &err)

	now := r.clock.Now()
	ids := make([]int64, len(rows))
	retireAt := make(map[int64]time.Time, len(rows))
	for i, rw := range rows {
		at := now
		switch {
		case r.processingOnly():
			at = temporal.Origin
		case rw.entity.Business.From.After(at):
			at = rw.entity.Business.From
		}
		ids[i] = rw.entity.ID
		retireAt[rw.entity.ID] = at
	}

	trs, err := r.store.ApplyAll(ctx, r.desc.Name, ids, func(id int64, edge []temporal.Version) (temporal.Transition, error) {
		tr, err := temporal.Retire(edge, retireAt[id], now)
		if errors.Is(err, temporal.ErrNoEdgePoint) {
			return temporal.Transition{}, nil
		}
		return tr, err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "delete %s", r.desc.Name)
	}

	var deleted []row[T]
	for i, tr := range trs {
		if len(tr.Terminated) > 0 {
			deleted = append(deleted, rows[i])
		}
	}
	r.log.Debug("entities deleted", zap.Int("matched", len(rows)), zap.Int("deleted", len(deleted)))
	return deleted, nil
}
