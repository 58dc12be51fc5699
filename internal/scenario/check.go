package scenario

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/roach88/tempora/internal/schema"
	"github.com/roach88/tempora/internal/value"
)

// check compares a step's outcome with its expectation and returns one
// message per mismatch. A step without an expectation only has to succeed.
func (r *runner) check(s Step, out outcome, err error) []string {
	exp := s.Expect
	if exp == nil {
		if err != nil {
			return []string{fmt.Sprintf("unexpected error: %v", err)}
		}
		return nil
	}

	if exp.Error != "" {
		if err == nil {
			return []string{fmt.Sprintf("expected error %s, step succeeded", exp.Error)}
		}
		if !errors.Is(err, sentinelByName(exp.Error)) {
			return []string{fmt.Sprintf("expected error %s, got %s: %v", exp.Error, ErrorName(err), err)}
		}
		return nil
	}
	if err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", err)}
	}

	var msgs []string
	if exp.Exists != nil && *exp.Exists != out.exists {
		msgs = append(msgs, fmt.Sprintf("exists: expected %t, got %t", *exp.Exists, out.exists))
	}
	if exp.Count != nil && *exp.Count != out.count {
		msgs = append(msgs, fmt.Sprintf("count: expected %d, got %d", *exp.Count, out.count))
	}
	if exp.IDs != nil {
		msgs = append(msgs, r.checkIDs(exp.IDs, out.rows)...)
	}
	if exp.Fields != nil {
		msgs = append(msgs, r.checkFields(exp.Fields, out)...)
	}
	return msgs
}

func (r *runner) checkIDs(want []any, rows []schema.Record) []string {
	got := make([]int64, len(rows))
	for i, e := range rows {
		got[i] = e.ID
	}
	ids := make([]int64, len(want))
	for i, raw := range want {
		id, err := r.id(raw)
		if err != nil {
			return []string{fmt.Sprintf("ids[%d]: %v", i, err)}
		}
		ids[i] = id
	}
	if len(ids) != len(got) {
		return []string{fmt.Sprintf("ids: expected %v, got %v", ids, got)}
	}
	for i := range ids {
		if ids[i] != got[i] {
			return []string{fmt.Sprintf("ids: expected %v, got %v", ids, got)}
		}
	}
	return nil
}

// checkFields is a subset match: only the listed fields are compared, after
// coercing the expected values to the declared field types.
func (r *runner) checkFields(want map[string]any, out outcome) []string {
	actual := out.record
	if actual == nil && len(out.rows) > 0 {
		actual = &out.rows[0]
	}
	if actual == nil {
		return []string{"fields: step returned no record"}
	}

	expected, err := r.data(want)
	if err == nil {
		expected, err = r.entity.Coerce(expected)
	}
	if err != nil {
		return []string{fmt.Sprintf("fields: %v", err)}
	}

	var msgs []string
	for _, name := range expected.SortedKeys() {
		got, ok := actual.Data[name]
		if !ok {
			got = value.Null{}
		}
		if !value.Equal(expected[name], got) {
			msgs = append(msgs, fmt.Sprintf("field %s: expected %s, got %s",
				name, render(expected[name]), render(got)))
		}
	}
	return msgs
}

func render(v value.Value) string {
	data, err := value.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
