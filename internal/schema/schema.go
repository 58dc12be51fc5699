package schema

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// ErrInvalidSchema is returned when a schema file cannot be loaded or
// violates a validation rule.
var ErrInvalidSchema = errors.New("invalid schema")

// FieldType is the declared type of a payload field.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
	TypeTime   FieldType = "time"
	TypeList   FieldType = "list"
	TypeObject FieldType = "object"
)

var fieldTypes = []FieldType{TypeString, TypeInt, TypeFloat, TypeBool, TypeTime, TypeList, TypeObject}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	return slices.Contains(fieldTypes, t)
}

// Field is one declared payload field.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Entity describes one stored entity type.
type Entity struct {
	Name string `json:"name"`
	// Sequence names the id counter; empty uses Name.
	Sequence string `json:"sequence,omitempty"`
	// Temporality is "bitemporal" (the default when empty) or "processing".
	Temporality string  `json:"temporality,omitempty"`
	Fields      []Field `json:"fields"`
}

// Field returns the declared field called name.
func (e Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns the declared field names in declaration order.
func (e Entity) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name
	}
	return names
}

// Schema is the set of entities a store holds.
type Schema struct {
	Entities []Entity `json:"entities"`
}

// Entity returns the entity called name.
func (s *Schema) Entity(name string) (Entity, bool) {
	for _, e := range s.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return Entity{}, false
}

// Names returns the entity names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Entities))
	for i, e := range s.Entities {
		names[i] = e.Name
	}
	return names
}
