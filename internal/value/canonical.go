package value

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/unicode/norm"
)

// timeKey tags an object that encodes a Time. JSON has no instant type, so
// a Time is written as {"$time":"<UTC instant>"}.
const timeKey = "$time"

// TimeLayout is the fixed-width UTC layout for encoded instants. Every
// instant has nine fractional digits, so encoded instants order correctly
// as text.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// MarshalCanonical encodes v as canonical JSON: object keys sorted by
// UTF-16 code units, strings NFC-normalized, no HTML escaping. Floats always
// carry a fraction or exponent so they decode back as Float.
//
// The encoding is deterministic, so two payloads are equal exactly when
// their canonical bytes are equal.
func MarshalCanonical(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case String:
		return writeCanonicalString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.Newf("float %v has no JSON encoding", f)
		}
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		buf.WriteString(s)
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Time:
		buf.WriteString(`{"` + timeKey + `":`)
		if err := writeCanonicalString(buf, val.T().UTC().Format(TimeLayout)); err != nil {
			return err
		}
		buf.WriteByte('}')
	case List:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return errors.Wrapf(err, "list[%d]", i)
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return errors.Wrapf(err, "key %q", k)
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return errors.Wrapf(err, "value for key %q", k)
			}
		}
		buf.WriteByte('}')
	default:
		return errors.Newf("unsupported value type %T", v)
	}
	return nil
}

// writeCanonicalString writes s as a JSON string after NFC normalization.
// HTML characters are not escaped.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))
	buf.Write(out)
	return nil
}

// UnmarshalObject decodes canonical (or any compatible) JSON into an Object.
func UnmarshalObject(data []byte) (Object, error) {
	v, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(Object)
	if !ok {
		return nil, errors.Newf("expected JSON object, got %s", v.Kind())
	}
	return obj, nil
}

// Unmarshal decodes JSON into a Value. Integers become Int, numbers with a
// fraction or exponent become Float, and {"$time": ...} becomes Time.
func Unmarshal(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode json")
	}
	return fromJSON(raw)
}

func fromJSON(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			f, err := val.Float64()
			if err != nil {
				return nil, errors.Wrapf(err, "number %s", s)
			}
			return Float(f), nil
		}
		n, err := val.Int64()
		if err != nil {
			return nil, errors.Newf("number out of int64 range: %s", s)
		}
		return Int(n), nil
	case []any:
		out := make(List, len(val))
		for i, elem := range val {
			converted, err := fromJSON(elem)
			if err != nil {
				return nil, errors.Wrapf(err, "list[%d]", i)
			}
			out[i] = converted
		}
		return out, nil
	case map[string]any:
		if ts, ok := val[timeKey]; ok && len(val) == 1 {
			s, ok := ts.(string)
			if !ok {
				return nil, errors.Newf("%s must be a string", timeKey)
			}
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, errors.Wrapf(err, "parse %s", timeKey)
			}
			return NewTime(t), nil
		}
		out := make(Object, len(val))
		for k, elem := range val {
			converted, err := fromJSON(elem)
			if err != nil {
				return nil, errors.Wrapf(err, "object[%q]", k)
			}
			out[k] = converted
		}
		return out, nil
	default:
		return nil, errors.Newf("unsupported JSON type %T", v)
	}
}
