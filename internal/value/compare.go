package value

import (
	"cmp"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrIncomparable is returned when two values have no defined ordering.
var ErrIncomparable = errors.New("values are not comparable")

// Comparable reports whether values of kind k have a total order.
func Comparable(k Kind) bool {
	switch k {
	case KindString, KindInt, KindFloat, KindBool, KindTime:
		return true
	}
	return false
}

// Compare orders a and b. Null sorts before every other value. Int and
// Float compare numerically with each other; every other pairing must share
// a kind. Lists and objects have no order.
func Compare(a, b Value) (int, error) {
	aNull, bNull := IsNull(a), IsNull(b)
	switch {
	case aNull && bNull:
		return 0, nil
	case aNull:
		return -1, nil
	case bNull:
		return 1, nil
	}

	if a.Kind().Numeric() && b.Kind().Numeric() {
		ai, aInt := a.(Int)
		bi, bInt := b.(Int)
		switch {
		case aInt && bInt:
			return cmp.Compare(ai, bi), nil
		case aInt:
			return compareIntFloat(int64(ai), float64(b.(Float))), nil
		case bInt:
			return -compareIntFloat(int64(bi), float64(a.(Float))), nil
		}
		return cmp.Compare(a.(Float), b.(Float)), nil
	}

	if a.Kind() != b.Kind() {
		return 0, errors.Wrapf(ErrIncomparable, "%s vs %s", a.Kind(), b.Kind())
	}

	switch av := a.(type) {
	case String:
		return strings.Compare(string(av), string(b.(String))), nil
	case Bool:
		bv := b.(Bool)
		switch {
		case av == bv:
			return 0, nil
		case !bool(av):
			return -1, nil
		default:
			return 1, nil
		}
	case Time:
		return av.T().Compare(b.(Time).T()), nil
	default:
		return 0, errors.Wrapf(ErrIncomparable, "kind %s has no order", a.Kind())
	}
}

// Equal reports whether a and b hold the same value. Numeric kinds compare
// across Int and Float; lists and objects compare element-wise.
func Equal(a, b Value) bool {
	aNull, bNull := IsNull(a), IsNull(b)
	if aNull || bNull {
		return aNull && bNull
	}

	switch av := a.(type) {
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, elem := range av {
			other, ok := bv[k]
			if !ok || !Equal(elem, other) {
				return false
			}
		}
		return true
	}

	c, err := Compare(a, b)
	return err == nil && c == 0
}

// compareIntFloat orders i against f without rounding i through float64,
// which loses precision above 2^53. NaN sorts before every int.
func compareIntFloat(i int64, f float64) int {
	switch {
	case math.IsNaN(f):
		return 1
	case f >= math.MaxInt64:
		return -1
	case f < math.MinInt64:
		return 1
	}
	whole := math.Trunc(f)
	if c := cmp.Compare(i, int64(whole)); c != 0 {
		return c
	}
	return cmp.Compare(whole, f)
}
