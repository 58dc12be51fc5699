package temporal

import (
	"slices"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/roach88/tempora/internal/value"
)

// ErrNoEdgePoint is returned when a change needs a currently believed
// version and none covers the requested business instant.
var ErrNoEdgePoint = errors.New("no edge point")

// Axis selects one of the two time dimensions.
type Axis int

const (
	// AxisBusiness is when a fact is true in the world.
	AxisBusiness Axis = iota
	// AxisProcessing is when the system recorded the fact.
	AxisProcessing
)

func (a Axis) String() string {
	if a == AxisBusiness {
		return "business"
	}
	return "processing"
}

// Version is one bitemporal row of a logical entity.
type Version struct {
	ID         int64
	Business   Interval
	Processing Interval
	Payload    value.Object
}

// Interval returns the version's interval on axis.
func (v Version) Interval(axis Axis) Interval {
	if axis == AxisBusiness {
		return v.Business
	}
	return v.Processing
}

// Validate checks From < Thru on both axes.
func (v Version) Validate() error {
	if err := v.Business.Validate(); err != nil {
		return errors.Wrapf(err, "version %d business", v.ID)
	}
	if err := v.Processing.Validate(); err != nil {
		return errors.Wrapf(err, "version %d processing", v.ID)
	}
	return nil
}

// IsEdgePoint reports whether v is the currently believed row on axis.
func IsEdgePoint(v Version, axis Axis) bool {
	return v.Interval(axis).IsOpen()
}

// ActiveAt selects the version whose business interval contains businessAt
// and whose processing interval contains processingAt. A processing instant
// that is zero or at/after Infinity selects the processing edge point.
func ActiveAt(versions []Version, businessAt, processingAt time.Time) (Version, bool) {
	current := Current(processingAt)
	for _, v := range versions {
		if !v.Business.Contains(businessAt) {
			continue
		}
		if current {
			if IsEdgePoint(v, AxisProcessing) {
				return v, true
			}
			continue
		}
		if v.Processing.Contains(processingAt) {
			return v, true
		}
	}
	return Version{}, false
}

// Terminate closes v on axis at the given instant. The instant must fall
// inside the interval's current bounds (From < at <= Thru).
func Terminate(v Version, axis Axis, at time.Time) (Version, error) {
	iv := v.Interval(axis)
	at = at.UTC()
	if !iv.From.Before(at) || at.After(iv.Thru) {
		return Version{}, errors.Wrapf(ErrInvalidInterval, "terminate %s %s at %s",
			axis, iv, at.Format(time.RFC3339Nano))
	}
	iv.Thru = at
	if axis == AxisBusiness {
		v.Business = iv
	} else {
		v.Processing = iv
	}
	return v, nil
}

// Transition is an atomic set of changes to a version chain: rows whose
// processing interval is closed, and rows that are inserted.
type Transition struct {
	Terminated []Version
	Inserted   []Version
}

// Empty reports whether the transition changes nothing.
func (tr Transition) Empty() bool {
	return len(tr.Terminated) == 0 && len(tr.Inserted) == 0
}

// Chain pairs the termination of old with the insertion of next. old is
// closed on the processing axis at next's processing start.
func Chain(old, next Version) (Transition, error) {
	if err := next.Validate(); err != nil {
		return Transition{}, err
	}
	terminated, err := Terminate(old, AxisProcessing, next.Processing.From)
	if err != nil {
		return Transition{}, err
	}
	return Transition{Terminated: []Version{terminated}, Inserted: []Version{next}}, nil
}

// Supersede plans an update that makes payload true from businessAt onward,
// recorded at now. Every edge version still open after businessAt is closed
// on the processing axis; the part of a version before businessAt is
// re-inserted unchanged, and payload covers [businessAt, last affected Thru).
func Supersede(edge []Version, businessAt, now time.Time, payload value.Object) (Transition, error) {
	businessAt, now = businessAt.UTC(), now.UTC()
	if _, ok := ActiveAt(edge, businessAt, Infinity); !ok {
		return Transition{}, errors.Wrapf(ErrNoEdgePoint, "at business %s", businessAt.Format(time.RFC3339Nano))
	}

	tr, lastThru, err := closeFrom(edge, businessAt, now)
	if err != nil {
		return Transition{}, err
	}

	business, err := NewInterval(businessAt, lastThru)
	if err != nil {
		return Transition{}, err
	}
	processing, err := OpenFrom(now)
	if err != nil {
		return Transition{}, err
	}
	tr.Inserted = append(tr.Inserted, Version{
		ID:         tr.Terminated[0].ID,
		Business:   business,
		Processing: processing,
		Payload:    payload,
	})
	sortByBusiness(tr.Inserted)
	return tr, nil
}

// Retire plans a delete as of businessAt: the entity stops being true from
// businessAt onward. Earlier business history is re-inserted unchanged.
func Retire(edge []Version, businessAt, now time.Time) (Transition, error) {
	businessAt, now = businessAt.UTC(), now.UTC()
	tr, _, err := closeFrom(edge, businessAt, now)
	if err != nil {
		return Transition{}, err
	}
	if len(tr.Terminated) == 0 {
		return Transition{}, errors.Wrapf(ErrNoEdgePoint, "at business %s", businessAt.Format(time.RFC3339Nano))
	}
	sortByBusiness(tr.Inserted)
	return tr, nil
}

// closeFrom terminates every processing edge point whose business interval
// extends past businessAt and keeps the portion before businessAt.
func closeFrom(edge []Version, businessAt, now time.Time) (Transition, time.Time, error) {
	var tr Transition
	var lastThru time.Time

	for _, v := range edge {
		if !IsEdgePoint(v, AxisProcessing) || !v.Business.Thru.After(businessAt) {
			continue
		}
		terminated, err := Terminate(v, AxisProcessing, now)
		if err != nil {
			return Transition{}, time.Time{}, err
		}
		tr.Terminated = append(tr.Terminated, terminated)
		if v.Business.Thru.After(lastThru) {
			lastThru = v.Business.Thru
		}

		if v.Business.From.Before(businessAt) {
			processing, err := OpenFrom(now)
			if err != nil {
				return Transition{}, time.Time{}, err
			}
			tr.Inserted = append(tr.Inserted, Version{
				ID:         v.ID,
				Business:   Interval{From: v.Business.From, Thru: businessAt},
				Processing: processing,
				Payload:    v.Payload,
			})
		}
	}
	return tr, lastThru, nil
}

func sortByBusiness(vs []Version) {
	slices.SortStableFunc(vs, func(a, b Version) int {
		return a.Business.From.Compare(b.Business.From)
	})
}
