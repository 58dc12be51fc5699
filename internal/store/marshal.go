package store

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/roach88/tempora/internal/temporal"
	"github.com/roach88/tempora/internal/value"
)

// timeLayout matches the payload encoding of instants, so interval columns
// and payload fields compare the same way in SQL.
const timeLayout = value.TimeLayout

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "decode time %q", s)
	}
	return t.UTC(), nil
}

func marshalPayload(payload value.Object) (string, error) {
	if payload == nil {
		payload = value.Object{}
	}
	data, err := value.MarshalCanonical(payload)
	if err != nil {
		return "", errors.Wrap(err, "marshal payload")
	}
	return string(data), nil
}

func unmarshalPayload(data string) (value.Object, error) {
	if data == "" || data == "{}" {
		return value.Object{}, nil
	}
	obj, err := value.UnmarshalObject([]byte(data))
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal payload")
	}
	return obj, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(row scanner) (temporal.Version, error) {
	var (
		v                        temporal.Version
		bFrom, bThru, pFrom, pTh string
		payload                  string
	)
	if err := row.Scan(&v.ID, &bFrom, &bThru, &pFrom, &pTh, &payload); err != nil {
		return temporal.Version{}, errors.Wrap(err, "scan version")
	}

	var err error
	if v.Business.From, err = decodeTime(bFrom); err != nil {
		return temporal.Version{}, err
	}
	if v.Business.Thru, err = decodeTime(bThru); err != nil {
		return temporal.Version{}, err
	}
	if v.Processing.From, err = decodeTime(pFrom); err != nil {
		return temporal.Version{}, err
	}
	if v.Processing.Thru, err = decodeTime(pTh); err != nil {
		return temporal.Version{}, err
	}
	if v.Payload, err = unmarshalPayload(payload); err != nil {
		return temporal.Version{}, errors.Wrapf(err, "version %d", v.ID)
	}
	return v, nil
}

// EncodeTime renders t in the column format used by the versions table, for
// callers that build SQL against it.
func EncodeTime(t time.Time) string {
	return encodeTime(t)
}
