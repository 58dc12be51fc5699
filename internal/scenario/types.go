package scenario

import (
	"encoding/json"

	"github.com/roach88/tempora/internal/value"
)

// TraceEvent records one executed step and what it returned.
type TraceEvent struct {
	Step   int
	Op     string
	Detail string
	Result value.Value
	Error  string
}

// Object renders the event as a value, so traces serialize canonically.
func (e TraceEvent) Object() value.Object {
	obj := value.Object{
		"step": value.Int(e.Step),
		"op":   value.String(e.Op),
	}
	if e.Detail != "" {
		obj["detail"] = value.String(e.Detail)
	}
	if e.Result != nil {
		obj["result"] = e.Result
	}
	if e.Error != "" {
		obj["error"] = value.String(e.Error)
	}
	return obj
}

// MarshalJSON encodes the event canonically.
func (e TraceEvent) MarshalJSON() ([]byte, error) {
	return value.MarshalCanonical(e.Object())
}

// Result is the outcome of running a scenario.
type Result struct {
	// Name is the scenario's name.
	Name string `json:"name"`

	// Pass is true when every step met its expectation.
	Pass bool `json:"pass"`

	// Trace holds every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult(name string) *Result {
	return &Result{Name: name, Pass: true, Trace: []TraceEvent{}, Errors: []string{}}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// Snapshot renders the trace as canonical JSON for golden comparison.
func (r *Result) Snapshot() ([]byte, error) {
	events := make(value.List, len(r.Trace))
	for i, e := range r.Trace {
		events[i] = e.Object()
	}
	return value.MarshalCanonical(value.Object{
		"scenario": value.String(r.Name),
		"trace":    events,
	})
}

var _ json.Marshaler = TraceEvent{}
