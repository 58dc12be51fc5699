package repository

import (
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/roach88/tempora/internal/query"
	"github.com/roach88/tempora/internal/temporal"
	"github.com/roach88/tempora/internal/value"
)

// Entity is one version of a logical entity as the caller sees it.
type Entity[T any] struct {
	ID         int64             `json:"id"`
	Data       T                 `json:"data"`
	Business   temporal.Interval `json:"business"`
	Processing temporal.Interval `json:"processing"`
}

// Temporality selects the time axes an entity type records.
type Temporality int

const (
	// Bitemporal records business and processing time.
	Bitemporal Temporality = iota
	// ProcessingTime records processing time only. Business time is pinned
	// to [temporal.Origin, temporal.Infinity), so every version is true for
	// all business instants and only the processing axis carries history.
	ProcessingTime
)

var temporalityNames = map[Temporality]string{
	Bitemporal:     "bitemporal",
	ProcessingTime: "processing",
}

func (t Temporality) String() string {
	if name, ok := temporalityNames[t]; ok {
		return name
	}
	return "Temporality(" + strconv.Itoa(int(t)) + ")"
}

// ParseTemporality maps a schema name to a Temporality. The empty string
// is Bitemporal.
func ParseTemporality(name string) (Temporality, error) {
	if name == "" {
		return Bitemporal, nil
	}
	for t, n := range temporalityNames {
		if n == name {
			return t, nil
		}
	}
	return 0, errors.Newf("unknown temporality %q", name)
}

// Descriptor tells a Repository how to store one entity type.
type Descriptor[T any] struct {
	// Name keys the entity's rows in the store.
	Name string
	// Sequence names the id counter. Empty uses Name.
	Sequence string
	// Temporality selects the recorded time axes. The zero value is
	// Bitemporal.
	Temporality Temporality
	// Fields lists the payload fields queries may reference. When empty,
	// any field present in a row's payload is accepted.
	Fields []string
	// Encode converts data to the persisted payload.
	Encode func(data T) (value.Object, error)
	// Decode rebuilds data from a payload.
	Decode func(payload value.Object) (T, error)
}

func (d Descriptor[T]) validate() error {
	switch {
	case d.Name == "":
		return errors.New("descriptor has no name")
	case d.Encode == nil || d.Decode == nil:
		return errors.Newf("descriptor %q needs Encode and Decode", d.Name)
	case d.Temporality != Bitemporal && d.Temporality != ProcessingTime:
		return errors.Newf("descriptor %q has %s", d.Name, d.Temporality)
	}
	return nil
}

func (d Descriptor[T]) sequence() string {
	if d.Sequence != "" {
		return d.Sequence
	}
	return d.Name
}

// row pairs an entity with the payload it was decoded from, so queries read
// fields without re-encoding.
type row[T any] struct {
	entity  Entity[T]
	payload value.Object
}

func (d Descriptor[T]) toRow(v temporal.Version) (row[T], error) {
	data, err := d.Decode(v.Payload)
	if err != nil {
		return row[T]{}, errors.Wrapf(err, "decode %s %d", d.Name, v.ID)
	}
	return row[T]{
		entity: Entity[T]{
			ID:         v.ID,
			Data:       data,
			Business:   v.Business,
			Processing: v.Processing,
		},
		payload: v.Payload,
	}, nil
}

func (d Descriptor[T]) toEntities(vs []temporal.Version) ([]Entity[T], error) {
	out := make([]Entity[T], 0, len(vs))
	for _, v := range vs {
		r, err := d.toRow(v)
		if err != nil {
			return nil, err
		}
		out = append(out, r.entity)
	}
	return out, nil
}

// accessor reads pseudo-fields from the version and everything else from
// the payload.
type accessor[T any] struct {
	fields map[string]bool
}

func newAccessor[T any](d Descriptor[T]) accessor[T] {
	var fields map[string]bool
	if len(d.Fields) > 0 {
		fields = make(map[string]bool, len(d.Fields))
		for _, f := range d.Fields {
			fields[f] = true
		}
	}
	return accessor[T]{fields: fields}
}

func (a accessor[T]) Get(r row[T], field string) (value.Value, error) {
	switch query.CanonicalField(field) {
	case query.FieldID:
		return value.Int(r.entity.ID), nil
	case query.FieldBusinessFrom:
		return value.NewTime(r.entity.Business.From), nil
	case query.FieldBusinessThru:
		return value.NewTime(r.entity.Business.Thru), nil
	case query.FieldProcessingFrom:
		return value.NewTime(r.entity.Processing.From), nil
	case query.FieldProcessingThru:
		return value.NewTime(r.entity.Processing.Thru), nil
	}

	v, ok := r.payload.Get(field)
	switch {
	case ok:
		return v, nil
	case a.fields[field]:
		return value.Null{}, nil
	}
	return nil, errors.Wrapf(query.ErrUnknownProperty, "%q", field)
}

func (a accessor[T]) Identity(r row[T]) string {
	return strconv.FormatInt(r.entity.ID, 10)
}

// HasProperty accepts every name when no field list was declared; rows are
// then checked individually by Get.
func (a accessor[T]) HasProperty(field string) bool {
	if a.fields == nil || query.IsPseudoField(field) {
		return true
	}
	return a.fields[field]
}
