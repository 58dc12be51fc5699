package value

import (
	"fmt"
	"slices"
	"time"
	"unicode/utf16"

	"github.com/cockroachdb/errors"
)

// Value is a sealed interface over the field values an entity can expose.
// Only Null, String, Int, Float, Bool, Time, List and Object implement it.
type Value interface {
	Kind() Kind
	value() // Sealed - only these types implement it
}

// Kind identifies the concrete type behind a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindTime
	KindList
	KindObject
)

var kindNames = [...]string{"null", "string", "int", "float", "bool", "time", "list", "object"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Numeric reports whether values of this kind compare numerically.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat
}

// Null is an explicit absent value. Using a type keeps nil out of Objects.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) value()     {}

// String is a text value.
type String string

func (String) Kind() Kind { return KindString }
func (String) value()     {}

// Int is a signed 64-bit integer value.
type Int int64

func (Int) Kind() Kind { return KindInt }
func (Int) value()     {}

// Float is a 64-bit floating point value.
type Float float64

func (Float) Kind() Kind { return KindFloat }
func (Float) value()     {}

// Bool is a boolean value.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) value()     {}

// Time is an instant, always held in UTC.
type Time time.Time

func (Time) Kind() Kind { return KindTime }
func (Time) value()     {}

// T returns the instant as a time.Time.
func (t Time) T() time.Time { return time.Time(t) }

// NewTime wraps t, normalizing it to UTC.
func NewTime(t time.Time) Time { return Time(t.UTC()) }

// List is an ordered collection, used mainly for IN / NOT_IN arguments.
type List []Value

func (List) Kind() Kind { return KindList }
func (List) value()     {}

// Object maps field names to values. An entity payload is an Object.
type Object map[string]Value

func (Object) Kind() Kind { return KindObject }
func (Object) value()     {}

// Get returns the value stored under name.
func (obj Object) Get(name string) (Value, bool) {
	v, ok := obj[name]
	return v, ok
}

// Clone returns a shallow copy of obj.
func (obj Object) Clone() Object {
	out := make(Object, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out
}

// SortedKeys returns keys ordered by UTF-16 code units, matching the
// canonical JSON encoding.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// From converts a Go value into a Value. Supported inputs are nil, Value,
// strings, integer and float types, bool, time.Time, common slices and
// map[string]any.
func From(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case bool:
		return Bool(val), nil
	case time.Time:
		return NewTime(val), nil
	case *time.Time:
		if val == nil {
			return Null{}, nil
		}
		return NewTime(*val), nil
	case *string:
		if val == nil {
			return Null{}, nil
		}
		return String(*val), nil
	case []string:
		return fromSlice(val)
	case []int:
		return fromSlice(val)
	case []int64:
		return fromSlice(val)
	case []float64:
		return fromSlice(val)
	case []Value:
		return List(val), nil
	case []any:
		return fromSlice(val)
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			converted, err := From(elem)
			if err != nil {
				return nil, errors.Wrapf(err, "object[%q]", k)
			}
			obj[k] = converted
		}
		return obj, nil
	default:
		return nil, errors.Newf("unsupported value type %T", v)
	}
}

// MustFrom is From for literals known to be convertible. It panics on error.
func MustFrom(v any) Value {
	out, err := From(v)
	if err != nil {
		panic(err)
	}
	return out
}

func fromSlice[S ~[]E, E any](s S) (Value, error) {
	out := make(List, len(s))
	for i, elem := range s {
		converted, err := From(elem)
		if err != nil {
			return nil, errors.Wrapf(err, "list[%d]", i)
		}
		out[i] = converted
	}
	return out, nil
}

// Native converts v back into a plain Go value (nil, string, int64,
// float64, bool, time.Time, []any, map[string]any).
func Native(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case Time:
		return val.T()
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Native(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = Native(elem)
		}
		return out
	default:
		return nil
	}
}
