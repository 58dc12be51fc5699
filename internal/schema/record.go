package schema

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/roach88/tempora/internal/query"
	"github.com/roach88/tempora/internal/repository"
	"github.com/roach88/tempora/internal/temporal"
	"github.com/roach88/tempora/internal/value"
)

// ErrInvalidRecord is returned when a payload or argument does not fit the
// entity's declared fields.
var ErrInvalidRecord = errors.New("invalid record")

// Record is one version of a schema-described entity.
type Record = repository.Entity[value.Object]

// RecordValue renders a record with its id and both intervals, for output
// and trace snapshots.
func RecordValue(r Record) value.Object {
	return value.Object{
		"id":         value.Int(r.ID),
		"data":       r.Data,
		"business":   intervalValue(r.Business),
		"processing": intervalValue(r.Processing),
	}
}

func intervalValue(iv temporal.Interval) value.Object {
	return value.Object{"from": value.NewTime(iv.From), "thru": value.NewTime(iv.Thru)}
}

// Descriptor stores the entity's records as dynamic value.Objects. Payloads
// are checked and coerced against the declared fields on every write.
func (e Entity) Descriptor() repository.Descriptor[value.Object] {
	// Validated schemas only name known temporalities.
	temporality, _ := repository.ParseTemporality(e.Temporality)
	return repository.Descriptor[value.Object]{
		Name:        e.Name,
		Sequence:    e.Sequence,
		Temporality: temporality,
		Fields:      e.FieldNames(),
		Encode:   e.Coerce,
		Decode: func(payload value.Object) (value.Object, error) {
			return payload.Clone(), nil
		},
	}
}

// Coerce checks obj against the declared fields and converts values to the
// declared types where the conversion is lossless: Int to Float, integral
// Float to Int, and RFC 3339 strings to Time. Null fits every type.
// Undeclared fields are rejected; absent fields read as null.
func (e Entity) Coerce(obj value.Object) (value.Object, error) {
	out := make(value.Object, len(obj))
	for _, name := range obj.SortedKeys() {
		f, ok := e.Field(name)
		if !ok {
			return nil, errors.Wrapf(ErrInvalidRecord, "%s has no field %q", e.Name, name)
		}
		v, err := coerce(f.Type, obj[name])
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s", e.Name, name)
		}
		out[name] = v
	}
	return out, nil
}

func coerce(t FieldType, v value.Value) (value.Value, error) {
	if value.IsNull(v) {
		return value.Null{}, nil
	}
	switch t {
	case TypeString:
		if _, ok := v.(value.String); ok {
			return v, nil
		}
	case TypeInt:
		switch n := v.(type) {
		case value.Int:
			return n, nil
		case value.Float:
			if f := float64(n); f == math.Trunc(f) && math.Abs(f) < 1<<63 {
				return value.Int(int64(f)), nil
			}
		}
	case TypeFloat:
		switch n := v.(type) {
		case value.Float:
			return n, nil
		case value.Int:
			return value.Float(float64(n)), nil
		}
	case TypeBool:
		if _, ok := v.(value.Bool); ok {
			return v, nil
		}
	case TypeTime:
		switch tv := v.(type) {
		case value.Time:
			return tv, nil
		case value.String:
			parsed, err := parseTime(string(tv))
			if err != nil {
				return nil, err
			}
			return value.NewTime(parsed), nil
		}
	case TypeList:
		if _, ok := v.(value.List); ok {
			return v, nil
		}
	case TypeObject:
		if _, ok := v.(value.Object); ok {
			return v, nil
		}
	}
	return nil, errors.Wrapf(ErrInvalidRecord, "%s does not fit %s", v.Kind(), t)
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseTime accepts RFC 3339 instants, zone-less date-times and bare dates.
// Zone-less input is read as UTC.
func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Wrapf(ErrInvalidRecord, "%q is not a time", s)
}

// ParseTime parses a command-line instant the way ParseArgs does.
func ParseTime(s string) (time.Time, error) {
	return parseTime(s)
}

// ParseArgs converts command-line strings into query arguments, typed by
// the field each condition reads. IN and NOT_IN take a comma-separated
// list. The literal "null" is a null argument. An as-of query's last
// argument is an instant.
func (e Entity) ParseArgs(q query.ParsedQuery, raw []string) ([]any, error) {
	if len(raw) != q.Arity() {
		return nil, errors.Wrapf(query.ErrParameterArityMismatch,
			"%s expects %d arguments, got %d", q.Method, q.Arity(), len(raw))
	}

	args := make([]any, 0, len(raw))
	next := 0
	for _, c := range q.Conditions {
		t := e.typeOf(c.Property)
		for range c.Operator.Arity() {
			v, err := parseArg(c.Operator, t, raw[next])
			if err != nil {
				return nil, errors.Wrapf(err, "%s %s argument %d", c.Property, c.Operator, next)
			}
			args = append(args, v)
			next++
		}
	}
	if next < len(raw) {
		t, err := parseTime(raw[next])
		if err != nil {
			return nil, errors.Wrap(err, "as-of argument")
		}
		args = append(args, t)
	}
	return args, nil
}

// typeOf returns the type of a declared or pseudo-field. Unknown names read
// as strings; the executor reports them.
func (e Entity) typeOf(property string) FieldType {
	switch query.CanonicalField(property) {
	case query.FieldID:
		return TypeInt
	case query.FieldBusinessFrom, query.FieldBusinessThru, query.FieldProcessingFrom, query.FieldProcessingThru:
		return TypeTime
	}
	if f, ok := e.Field(property); ok {
		return f.Type
	}
	return TypeString
}

func parseArg(op query.Operator, t FieldType, raw string) (value.Value, error) {
	switch op {
	case query.In, query.NotIn:
		var list value.List
		for _, part := range strings.Split(raw, ",") {
			v, err := parseScalar(t, strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case query.Like, query.NotLike, query.Containing, query.NotContaining, query.StartingWith, query.EndingWith:
		return value.String(raw), nil
	}
	return parseScalar(t, raw)
}

func parseScalar(t FieldType, raw string) (value.Value, error) {
	if raw == "null" {
		return value.Null{}, nil
	}
	switch t {
	case TypeInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidRecord, "%q is not an int", raw)
		}
		return value.Int(n), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidRecord, "%q is not a float", raw)
		}
		return value.Float(f), nil
	case TypeBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidRecord, "%q is not a bool", raw)
		}
		return value.Bool(b), nil
	case TypeTime:
		tm, err := parseTime(raw)
		if err != nil {
			return nil, err
		}
		return value.NewTime(tm), nil
	}
	return value.String(raw), nil
}
