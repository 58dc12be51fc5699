package temporal

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

// Infinity is the open upper bound of an interval: the row is still current
// on that axis. It is a real instant, distinct from the zero time.Time,
// which means "unset".
var Infinity = time.Date(9999, time.December, 1, 23, 59, 0, 0, time.UTC)

// Origin starts the business interval of entities that record processing
// time only; their business interval is always [Origin, Infinity).
var Origin = time.Unix(0, 0).UTC()

// ErrInvalidInterval is returned when an interval's Thru is not after its From.
var ErrInvalidInterval = errors.New("invalid interval")

// Interval is a half-open range [From, Thru) on one time axis.
type Interval struct {
	From time.Time
	Thru time.Time
}

// NewInterval builds [from, thru), rejecting empty or inverted ranges.
func NewInterval(from, thru time.Time) (Interval, error) {
	if !from.Before(thru) {
		return Interval{}, errors.Wrapf(ErrInvalidInterval, "thru %s is not after from %s",
			thru.Format(time.RFC3339Nano), from.Format(time.RFC3339Nano))
	}
	return Interval{From: from.UTC(), Thru: thru.UTC()}, nil
}

// OpenFrom returns [from, Infinity).
func OpenFrom(from time.Time) (Interval, error) {
	return NewInterval(from, Infinity)
}

// Contains reports whether From <= t < Thru.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.From) && t.Before(iv.Thru)
}

// IsOpen reports whether the interval runs to Infinity.
func (iv Interval) IsOpen() bool {
	return iv.Thru.Equal(Infinity)
}

// Validate checks the From < Thru invariant.
func (iv Interval) Validate() error {
	if !iv.From.Before(iv.Thru) {
		return errors.Wrapf(ErrInvalidInterval, "%s", iv)
	}
	return nil
}

func (iv Interval) String() string {
	thru := iv.Thru.Format(time.RFC3339Nano)
	if iv.IsOpen() {
		thru = "∞"
	}
	return fmt.Sprintf("[%s, %s)", iv.From.Format(time.RFC3339Nano), thru)
}

// Current normalizes a processing instant for as-of lookups. A zero instant,
// or one at or beyond Infinity, means "what is believed now".
func Current(processingAt time.Time) bool {
	return processingAt.IsZero() || !processingAt.Before(Infinity)
}
