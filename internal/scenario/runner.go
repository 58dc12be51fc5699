package scenario

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/tempora/internal/metrics"
	"github.com/roach88/tempora/internal/parser"
	"github.com/roach88/tempora/internal/repository"
	"github.com/roach88/tempora/internal/schema"
	"github.com/roach88/tempora/internal/store"
	"github.com/roach88/tempora/internal/temporal"
	"github.com/roach88/tempora/internal/testutil"
	"github.com/roach88/tempora/internal/value"
)

// Option configures Run.
type Option func(*options)

type options struct {
	log     *zap.Logger
	metrics metrics.Recorder
}

// WithLogger sets the logger handed to the store and repository.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithMetrics sets the recorder handed to the repository.
func WithMetrics(r metrics.Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.metrics = r
		}
	}
}

// Run executes sc against a fresh store in a temporary directory, using a
// step clock so every processing instant is reproducible.
//
// A returned error means the scenario could not be set up. Step failures
// and unmet expectations are reported in the Result.
func Run(ctx context.Context, sc *Scenario, opts ...Option) (*Result, error) {
	o := options{log: zap.NewNop(), metrics: metrics.Nop{}}
	for _, opt := range opts {
		opt(&o)
	}

	sch, err := schema.LoadFile(sc.SchemaPath())
	if err != nil {
		return nil, err
	}
	ent, ok := sch.Entity(sc.Entity)
	if !ok {
		return nil, errors.Newf("schema %s has no entity %q", sc.Schema, sc.Entity)
	}
	start, step, err := sc.Clock.parse()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "tempora-scenario-*")
	if err != nil {
		return nil, errors.Wrap(err, "create scenario store directory")
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "scenario.db"),
		store.WithTxIDs(testutil.NewSequentialTxIDs(sc.Name)),
		store.WithLogger(o.log))
	if err != nil {
		return nil, err
	}
	defer st.Close()

	clock := testutil.NewStepClockAt(start, step)
	repo, err := repository.New(st, ent.Descriptor(),
		repository.WithClock(clock),
		repository.WithLogger(o.log),
		repository.WithMetrics(o.metrics))
	if err != nil {
		return nil, err
	}

	r := &runner{entity: ent, repo: repo, clock: clock, bound: map[string]schema.Record{}}
	res := NewResult(sc.Name)
	for i, s := range sc.Steps {
		ev := TraceEvent{Step: i + 1, Op: s.Op}
		out, err := r.exec(ctx, s, &ev)
		if err != nil {
			ev.Error = ErrorName(err)
		} else {
			ev.Result = out.result
		}
		res.Trace = append(res.Trace, ev)

		for _, msg := range r.check(s, out, err) {
			res.AddError(fmt.Sprintf("step %d (%s): %s", i+1, s.Op, msg))
		}
		o.log.Debug("scenario step",
			zap.String("scenario", sc.Name),
			zap.Int("step", i+1),
			zap.String("op", s.Op),
			zap.Error(err))
	}
	return res, nil
}

type runner struct {
	entity schema.Entity
	repo   *repository.Repository[value.Object]
	clock  *testutil.StepClock
	bound  map[string]schema.Record
}

// outcome is what a step returned, in the shapes expectations check.
type outcome struct {
	record *schema.Record
	rows   []schema.Record
	count  int64
	exists bool
	result value.Value
}

func (r *runner) exec(ctx context.Context, s Step, ev *TraceEvent) (outcome, error) {
	switch s.Op {
	case OpSave:
		return r.save(ctx, s)
	case OpUpdate:
		return r.update(ctx, s)
	case OpDelete:
		return r.delete(ctx, s)
	case OpGet:
		return r.get(ctx, s)
	case OpQuery:
		ev.Detail = s.Method
		return r.query(ctx, s)
	case OpHistory:
		return r.history(ctx, s)
	case OpAdvance:
		d, err := time.ParseDuration(s.Duration)
		if err != nil {
			return outcome{}, err
		}
		r.clock.Advance(d)
		return outcome{result: value.Object{"now": value.NewTime(r.clock.Peek())}}, nil
	default:
		return outcome{}, errors.Newf("unknown op %q", s.Op)
	}
}

func (r *runner) save(ctx context.Context, s Step) (outcome, error) {
	data, err := r.data(s.Data)
	if err != nil {
		return outcome{}, err
	}
	e := schema.Record{Data: data}
	if s.ID != nil {
		if e.ID, err = r.id(s.ID); err != nil {
			return outcome{}, err
		}
	}
	if s.BusinessFrom != "" {
		if e.Business.From, err = r.instant(s.BusinessFrom); err != nil {
			return outcome{}, err
		}
	}
	saved, err := r.repo.Save(ctx, e)
	if err != nil {
		return outcome{}, err
	}
	r.bind(s.As, saved)
	return single(saved), nil
}

func (r *runner) update(ctx context.Context, s Step) (outcome, error) {
	id, err := r.id(s.ID)
	if err != nil {
		return outcome{}, err
	}
	data, err := r.data(s.Data)
	if err != nil {
		return outcome{}, err
	}

	e := schema.Record{ID: id, Data: data}
	var updated schema.Record
	if s.AsOf != "" {
		var at time.Time
		if at, err = r.instant(s.AsOf); err != nil {
			return outcome{}, err
		}
		updated, err = r.repo.UpdateAsOf(ctx, e, at)
	} else {
		updated, err = r.repo.Update(ctx, e)
	}
	if err != nil {
		return outcome{}, err
	}
	r.bind(s.As, updated)
	return single(updated), nil
}

func (r *runner) delete(ctx context.Context, s Step) (outcome, error) {
	id, err := r.id(s.ID)
	if err != nil {
		return outcome{}, err
	}
	if s.AsOf != "" {
		var at time.Time
		if at, err = r.instant(s.AsOf); err != nil {
			return outcome{}, err
		}
		err = r.repo.DeleteByIDAsOf(ctx, id, at)
	} else {
		err = r.repo.DeleteByID(ctx, id)
	}
	if err != nil {
		return outcome{}, err
	}
	return outcome{result: value.Object{"deleted": value.Int(id)}}, nil
}

func (r *runner) get(ctx context.Context, s Step) (outcome, error) {
	id, err := r.id(s.ID)
	if err != nil {
		return outcome{}, err
	}

	var (
		found schema.Record
		ok    bool
	)
	if s.AsOf == "" && s.ProcessingAsOf == "" {
		found, ok, err = r.repo.FindByID(ctx, id)
	} else {
		businessAt, processingAt := r.clock.Peek(), temporal.Infinity
		if s.AsOf != "" {
			if businessAt, err = r.instant(s.AsOf); err != nil {
				return outcome{}, err
			}
		}
		if s.ProcessingAsOf != "" {
			if processingAt, err = r.instant(s.ProcessingAsOf); err != nil {
				return outcome{}, err
			}
		}
		found, ok, err = r.repo.FindByIDAsOf(ctx, id, businessAt, processingAt)
	}
	if err != nil {
		return outcome{}, err
	}
	if !ok {
		return outcome{result: value.Object{"found": value.Bool(false)}}, nil
	}
	out := single(found)
	out.result = value.Object{"found": value.Bool(true), "entity": out.result}
	return out, nil
}

func (r *runner) query(ctx context.Context, s Step) (outcome, error) {
	q, err := parser.Parse(s.Method)
	if err != nil {
		return outcome{}, err
	}
	raw := make([]string, len(s.Args))
	for i, a := range s.Args {
		if raw[i], err = r.arg(a); err != nil {
			return outcome{}, err
		}
	}
	args, err := r.entity.ParseArgs(q, raw)
	if err != nil {
		return outcome{}, err
	}

	res, err := r.repo.Run(ctx, q, args...)
	if err != nil {
		return outcome{}, err
	}
	rows := make(value.List, len(res.Rows))
	for i, e := range res.Rows {
		rows[i] = schema.RecordValue(e)
	}
	return outcome{
		rows:   res.Rows,
		count:  res.Count,
		exists: res.Exists,
		result: value.Object{
			"type":   value.String(res.Type.String()),
			"count":  value.Int(res.Count),
			"exists": value.Bool(res.Exists),
			"rows":   rows,
		},
	}, nil
}

func (r *runner) history(ctx context.Context, s Step) (outcome, error) {
	id, err := r.id(s.ID)
	if err != nil {
		return outcome{}, err
	}
	versions, err := r.repo.History(ctx, id)
	if err != nil {
		return outcome{}, err
	}
	list := make(value.List, len(versions))
	for i, e := range versions {
		list[i] = schema.RecordValue(e)
	}
	return outcome{
		rows:   versions,
		count:  int64(len(versions)),
		exists: len(versions) > 0,
		result: value.Object{"versions": list},
	}, nil
}

func (r *runner) bind(name string, e schema.Record) {
	if name != "" {
		r.bound[name] = e
	}
}

func (r *runner) data(raw map[string]any) (value.Object, error) {
	v, err := value.From(raw)
	if err != nil {
		return nil, errors.Wrap(err, "data")
	}
	obj, _ := v.(value.Object)
	return obj, nil
}

// id resolves an id literal or a "$name" reference.
func (r *runner) id(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case string:
		if strings.HasPrefix(v, "$") {
			e, err := r.ref(v)
			if err != nil {
				return 0, err
			}
			return e.ID, nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "id %q", v)
		}
		return n, nil
	default:
		return 0, errors.Newf("id must be an integer or reference, got %T", raw)
	}
}

// instant resolves a timestamp literal, or "$name.business" and
// "$name.processing" for the start of a bound entity's intervals.
func (r *runner) instant(raw string) (time.Time, error) {
	if !strings.HasPrefix(raw, "$") {
		return schema.ParseTime(raw)
	}
	name, axis, _ := strings.Cut(raw, ".")
	e, err := r.ref(name)
	if err != nil {
		return time.Time{}, err
	}
	switch axis {
	case "business":
		return e.Business.From, nil
	case "processing":
		return e.Processing.From, nil
	default:
		return time.Time{}, errors.Newf("reference %q must end in .business or .processing", raw)
	}
}

// arg renders a query argument as the text ParseArgs types. Lists become
// comma-separated values; references become ids or instants.
func (r *runner) arg(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "null", nil
	case string:
		if !strings.HasPrefix(v, "$") {
			return v, nil
		}
		if strings.Contains(v, ".") {
			t, err := r.instant(v)
			if err != nil {
				return "", err
			}
			return t.Format(time.RFC3339Nano), nil
		}
		id, err := r.id(v)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(id, 10), nil
	case []any:
		parts := make([]string, len(v))
		for i, elem := range v {
			s, err := r.arg(elem)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, ","), nil
	case time.Time:
		return v.Format(time.RFC3339Nano), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func (r *runner) ref(raw string) (schema.Record, error) {
	name := strings.TrimPrefix(raw, "$")
	e, ok := r.bound[name]
	if !ok {
		return schema.Record{}, errors.Newf("reference %s is not bound", raw)
	}
	return e, nil
}

func single(e schema.Record) outcome {
	return outcome{record: &e, count: 1, exists: true, result: schema.RecordValue(e)}
}
