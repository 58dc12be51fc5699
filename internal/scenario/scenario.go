package scenario

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of repository operations against one
// entity of a schema, with expectations on each step's outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Schema is the path to a CUE or YAML schema file, relative to the
	// scenario file.
	Schema string `yaml:"schema"`

	// Entity names the schema entity the steps operate on.
	Entity string `yaml:"entity"`

	// Clock pins the processing clock. Defaults to 2024-01-01T09:00:00Z,
	// advancing one second per reading.
	Clock Clock `yaml:"clock,omitempty"`

	// Steps run in order against a fresh store.
	Steps []Step `yaml:"steps"`

	// dir is the directory of the scenario file; relative paths resolve
	// against it.
	dir string
}

// Clock configures the deterministic processing clock.
type Clock struct {
	Start string `yaml:"start,omitempty"`
	Step  string `yaml:"step,omitempty"`
}

// Step is one repository operation.
type Step struct {
	// Op is one of save, update, delete, get, query, history, advance.
	Op string `yaml:"op"`

	// ID is an entity id, or "$name" to reference an entity bound by an
	// earlier step's As.
	ID any `yaml:"id,omitempty"`

	// As binds the entity a save or update returns to a name.
	As string `yaml:"as,omitempty"`

	// Data is the record for save and update.
	Data map[string]any `yaml:"data,omitempty"`

	// BusinessFrom sets the business start of a save.
	BusinessFrom string `yaml:"business_from,omitempty"`

	// Method and Args describe a derived query.
	Method string `yaml:"method,omitempty"`
	Args   []any  `yaml:"args,omitempty"`

	// AsOf is the business instant of an update, delete or get.
	AsOf string `yaml:"as_of,omitempty"`

	// ProcessingAsOf is the processing instant of a get.
	ProcessingAsOf string `yaml:"processing_as_of,omitempty"`

	// Duration is how far an advance step moves the clock.
	Duration string `yaml:"duration,omitempty"`

	// Expect checks the step's outcome. A step without Expect must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a step.
type Expect struct {
	// Fields is a subset match against the returned record. For queries it
	// applies to the first row.
	Fields map[string]any `yaml:"fields,omitempty"`

	// Count is the number of rows a query matched or versions a history
	// returned.
	Count *int64 `yaml:"count,omitempty"`

	// Exists is whether a get found the entity or a query matched a row.
	Exists *bool `yaml:"exists,omitempty"`

	// IDs lists the ids of a query's rows in order. Entries may be "$name".
	IDs []any `yaml:"ids,omitempty"`

	// Error names the expected failure, e.g. entity_not_found.
	Error string `yaml:"error,omitempty"`
}

// Step operations.
const (
	OpSave    = "save"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpGet     = "get"
	OpQuery   = "query"
	OpHistory = "history"
	OpAdvance = "advance"
)

// Load reads and parses a scenario YAML file. Unknown keys are rejected so
// a misspelled expectation does not pass silently.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario file")
	}

	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	sc.dir = filepath.Dir(path)

	if err := validate(&sc); err != nil {
		return nil, errors.Wrapf(err, "invalid scenario %s", path)
	}
	return &sc, nil
}

// SchemaPath resolves the scenario's schema file.
func (sc *Scenario) SchemaPath() string {
	if filepath.IsAbs(sc.Schema) || sc.dir == "" {
		return sc.Schema
	}
	return filepath.Join(sc.dir, sc.Schema)
}

func validate(sc *Scenario) error {
	switch {
	case sc.Name == "":
		return errors.New("name is required")
	case sc.Schema == "":
		return errors.New("schema is required")
	case sc.Entity == "":
		return errors.New("entity is required")
	case len(sc.Steps) == 0:
		return errors.New("at least one step is required")
	}
	if _, _, err := sc.Clock.parse(); err != nil {
		return err
	}

	bound := map[string]bool{}
	for i, st := range sc.Steps {
		if err := st.validate(bound); err != nil {
			return errors.Wrapf(err, "step %d (%s)", i+1, st.Op)
		}
		if st.As != "" {
			bound[st.As] = true
		}
	}
	return nil
}

func (st Step) validate(bound map[string]bool) error {
	needsID := false
	switch st.Op {
	case OpSave:
		if st.Data == nil {
			return errors.New("data is required")
		}
	case OpUpdate, OpDelete, OpGet, OpHistory:
		needsID = true
	case OpQuery:
		if st.Method == "" {
			return errors.New("method is required")
		}
	case OpAdvance:
		if _, err := time.ParseDuration(st.Duration); err != nil {
			return errors.Wrap(err, "duration")
		}
	case "":
		return errors.New("op is required")
	default:
		return errors.Newf("unknown op %q", st.Op)
	}

	if needsID && st.ID == nil {
		return errors.New("id is required")
	}
	if st.Op == OpUpdate && st.Data == nil {
		return errors.New("data is required")
	}
	if st.As != "" && st.Op != OpSave && st.Op != OpUpdate {
		return errors.New("as is only valid on save and update")
	}
	for _, ref := range st.refs() {
		if !bound[ref] {
			return errors.Newf("reference $%s is not bound by an earlier step", ref)
		}
	}
	if st.Expect != nil && st.Expect.Error != "" {
		if sentinelByName(st.Expect.Error) == nil {
			return errors.Newf("unknown error name %q", st.Expect.Error)
		}
	}
	return nil
}

// refs lists the names a step references through "$name" values.
func (st Step) refs() []string {
	var out []string
	add := func(v any) {
		if s, ok := v.(string); ok && strings.HasPrefix(s, "$") {
			name, _, _ := strings.Cut(s[1:], ".")
			out = append(out, name)
		}
	}
	add(st.ID)
	add(st.AsOf)
	add(st.ProcessingAsOf)
	add(st.BusinessFrom)
	for _, a := range st.Args {
		add(a)
	}
	if st.Expect != nil {
		for _, id := range st.Expect.IDs {
			add(id)
		}
	}
	return out
}

func (c Clock) parse() (time.Time, time.Duration, error) {
	start := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	step := time.Second
	if c.Start != "" {
		t, err := time.Parse(time.RFC3339Nano, c.Start)
		if err != nil {
			return time.Time{}, 0, errors.Wrap(err, "clock.start")
		}
		start = t
	}
	if c.Step != "" {
		d, err := time.ParseDuration(c.Step)
		if err != nil {
			return time.Time{}, 0, errors.Wrap(err, "clock.step")
		}
		if d <= 0 {
			return time.Time{}, 0, errors.Newf("clock.step must be positive, got %s", d)
		}
		step = d
	}
	return start, step, nil
}
