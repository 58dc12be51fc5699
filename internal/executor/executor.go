package executor

import (
	"context"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/tempora/internal/query"
	"github.com/roach88/tempora/internal/value"
)

// Source loads candidate rows and deletes matched row sets.
type Source[E any] interface {
	// Candidates returns every row believed now whose business interval
	// contains businessAt. A zero businessAt means the current instant.
	Candidates(ctx context.Context, businessAt time.Time) ([]E, error)
	// Delete terminates rows as one atomic unit and returns the rows it
	// actually terminated. A row that is already gone is skipped, not an
	// error; a failure on any row leaves every row untouched.
	Delete(ctx context.Context, rows []E) ([]E, error)
}

// Accessor reads named fields of a row. Registered per entity type, so the
// executor never reflects over rows.
type Accessor[E any] interface {
	// Get returns the field's value; an unknown field wraps
	// query.ErrUnknownProperty.
	Get(row E, field string) (value.Value, error)
	// Identity returns the key Distinct compares rows by.
	Identity(row E) string
}

// PropertyChecker is an optional Accessor extension. When implemented,
// every condition and sort property is checked before any row is loaded,
// so an unknown property fails even against an empty candidate set.
type PropertyChecker interface {
	HasProperty(field string) bool
}

// Result is the outcome of one Execute call. Which fields are meaningful
// depends on Type:
//   - Find: Rows
//   - Count: Count
//   - Exists: Exists
//   - Delete: Rows (the rows terminated) and Count
type Result[E any] struct {
	Type   query.Type `json:"type"`
	Rows   []E        `json:"rows,omitempty"`
	Count  int64      `json:"count"`
	Exists bool       `json:"exists"`
}

// Executor evaluates parsed queries against the rows of one entity type.
//
// Thread-safety: Executor holds no mutable state; it is safe for concurrent
// use when its Source and Accessor are.
type Executor[E any] struct {
	source   Source[E]
	accessor Accessor[E]
	log      *zap.Logger
}

// Option configures an Executor.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger sets the logger used for debug output.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// New creates an executor.
func New[E any](source Source[E], accessor Accessor[E], opts ...Option) *Executor[E] {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Executor[E]{source: source, accessor: accessor, log: o.log}
}

// Execute runs q with positional args.
//
// The argument count must equal q.Arity(). When q.AsOf is set and q has
// conditions, the last argument is the business instant (time.Time) the
// candidates are loaded at; the others bind to conditions left to right.
//
// Count, Exists and Delete all evaluate the Find pipeline first:
// filter, stable sort, limit, distinct.
func (x *Executor[E]) Execute(ctx context.Context, q query.ParsedQuery, args ...any) (Result[E], error) {
	if len(args) != q.Arity() {
		return Result[E]{}, errors.Wrapf(query.ErrParameterArityMismatch,
			"%s expects %d arguments, got %d", describe(q), q.Arity(), len(args))
	}
	if err := x.checkProperties(q); err != nil {
		return Result[E]{}, err
	}

	var businessAt time.Time
	if q.AsOf && len(q.Conditions) > 0 {
		var err error
		if businessAt, err = asTime(args[len(args)-1]); err != nil {
			return Result[E]{}, errors.Wrapf(err, "%s as-of argument", describe(q))
		}
		args = args[:len(args)-1]
	}

	groups, err := bind(q, args)
	if err != nil {
		return Result[E]{}, errors.Wrapf(err, "%s", describe(q))
	}

	rows, err := x.find(ctx, q, groups, businessAt)
	if err != nil {
		return Result[E]{}, errors.Wrapf(err, "%s", describe(q))
	}

	res := Result[E]{Type: q.Type}
	switch q.Type {
	case query.Find:
		res.Rows = rows
		res.Count = int64(len(rows))
		res.Exists = len(rows) > 0
	case query.Count:
		res.Count = int64(len(rows))
		res.Exists = len(rows) > 0
	case query.Exists:
		res.Count = int64(len(rows))
		res.Exists = len(rows) > 0
	case query.Delete:
		deleted, err := x.source.Delete(ctx, rows)
		if err != nil {
			return Result[E]{}, errors.Wrapf(err, "%s: delete %d rows", describe(q), len(rows))
		}
		res.Rows = deleted
		res.Count = int64(len(deleted))
		res.Exists = len(deleted) > 0
	default:
		return Result[E]{}, errors.Newf("unknown query type %s", q.Type)
	}

	x.log.Debug("query executed",
		zap.String("method", q.Method),
		zap.Stringer("type", q.Type),
		zap.Int("conditions", len(q.Conditions)),
		zap.Int64("rows", res.Count),
	)
	return res, nil
}

func (x *Executor[E]) checkProperties(q query.ParsedQuery) error {
	checker, ok := x.accessor.(PropertyChecker)
	if !ok {
		return nil
	}
	for _, c := range q.Conditions {
		if !checker.HasProperty(c.Property) {
			return errors.Wrapf(query.ErrUnknownProperty, "%s: %q", describe(q), c.Property)
		}
	}
	for _, o := range q.OrderBy {
		if !checker.HasProperty(o.Property) {
			return errors.Wrapf(query.ErrUnknownProperty, "%s: order by %q", describe(q), o.Property)
		}
	}
	return nil
}

// find loads candidates and applies filter, sort, limit, distinct in that
// fixed order.
func (x *Executor[E]) find(ctx context.Context, q query.ParsedQuery, groups [][]bound, businessAt time.Time) ([]E, error) {
	candidates, err := x.source.Candidates(ctx, businessAt)
	if err != nil {
		return nil, errors.Wrap(err, "load candidates")
	}

	rows := make([]E, 0, len(candidates))
	for _, row := range candidates {
		ok, err := x.matches(row, groups)
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, row)
		}
	}

	if rows, err = x.sort(rows, q.OrderBy); err != nil {
		return nil, err
	}

	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	if q.Distinct {
		seen := make(map[string]bool, len(rows))
		rows = slices.DeleteFunc(rows, func(row E) bool {
			id := x.accessor.Identity(row)
			if seen[id] {
				return true
			}
			seen[id] = true
			return false
		})
	}
	return rows, nil
}

// matches ORs the AND-groups. Every condition is evaluated, so a field
// error surfaces regardless of the outcome of earlier conditions.
func (x *Executor[E]) matches(row E, groups [][]bound) (bool, error) {
	if len(groups) == 0 {
		return true, nil
	}

	result := false
	for _, group := range groups {
		all := true
		for _, b := range group {
			field, err := x.accessor.Get(row, b.Property)
			if err != nil {
				return false, err
			}
			ok, err := b.eval(field)
			if err != nil {
				return false, err
			}
			all = all && ok
		}
		result = result || all
	}
	return result, nil
}

type sortKey[E any] struct {
	row    E
	values []value.Value
}

// sort orders rows by every OrderBy key in turn with value.Compare. The sort
// is stable: rows equal on all keys keep their candidate order.
func (x *Executor[E]) sort(rows []E, orderBy []query.OrderBy) ([]E, error) {
	if len(orderBy) == 0 || len(rows) < 2 {
		return rows, nil
	}

	keyed := make([]sortKey[E], len(rows))
	for i, row := range rows {
		keyed[i].row = row
		keyed[i].values = make([]value.Value, len(orderBy))
		for j, o := range orderBy {
			v, err := x.accessor.Get(row, o.Property)
			if err != nil {
				return nil, err
			}
			keyed[i].values[j] = v
		}
	}

	var cmpErr error
	slices.SortStableFunc(keyed, func(a, b sortKey[E]) int {
		for j, o := range orderBy {
			c, err := value.Compare(a.values[j], b.values[j])
			if err != nil {
				if cmpErr == nil {
					cmpErr = errors.Wrapf(query.ErrUnsupportedOperator, "order by %q: %v", o.Property, err)
				}
				return 0
			}
			if c != 0 {
				if o.Direction == query.Desc {
					return -c
				}
				return c
			}
		}
		return 0
	})
	if cmpErr != nil {
		return nil, cmpErr
	}

	out := make([]E, len(keyed))
	for i, k := range keyed {
		out[i] = k.row
	}
	return out, nil
}

func asTime(arg any) (time.Time, error) {
	switch t := arg.(type) {
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		if t != nil {
			return t.UTC(), nil
		}
	case value.Time:
		return t.T(), nil
	}
	return time.Time{}, errors.Wrapf(query.ErrUnsupportedOperator, "expected a time, got %T", arg)
}

func describe(q query.ParsedQuery) string {
	if q.Method != "" {
		return q.Method
	}
	return q.Type.String() + " query"
}
