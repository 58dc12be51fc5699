package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// LoadFile loads a schema by extension: .cue files with the CUE SDK,
// .yaml, .yml and .json files with the YAML decoder.
func LoadFile(path string) (*Schema, error) {
	s, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}
	if err := check(s); err != nil {
		return nil, err
	}
	return s, nil
}

// DecodeFile reads a schema without validating it. Callers that want
// every violation rather than one folded error pass the result to Validate.
func DecodeFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read schema %s", path)
	}
	switch filepath.Ext(path) {
	case ".cue":
		return decodeCUE(data, path)
	case ".yaml", ".yml", ".json":
		return decodeYAML(data)
	}
	return nil, errors.Wrapf(ErrInvalidSchema, "%s: unsupported schema format", path)
}

// LoadCUE compiles a CUE schema of the form
//
//	entity: order: {
//		sequence: "orders"
//		fields: {
//			status:   string
//			amount:   int
//			placedAt: "time"
//		}
//	}
//
// A field is typed by its CUE kind, or by a concrete string naming a
// FieldType. Fields keep their declaration order.
func LoadCUE(data []byte, filename string) (*Schema, error) {
	s, err := decodeCUE(data, filename)
	if err != nil {
		return nil, err
	}
	if err := check(s); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeCUE(data []byte, filename string) (*Schema, error) {
	v := cuecontext.New().CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueError(err)
	}

	s := &Schema{}
	entities := v.LookupPath(cue.ParsePath("entity"))
	if entities.Exists() {
		iter, err := entities.Fields()
		if err != nil {
			return nil, cueError(err)
		}
		for iter.Next() {
			e, err := compileEntity(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			s.Entities = append(s.Entities, e)
		}
	}
	return s, nil
}

func compileEntity(name string, v cue.Value) (Entity, error) {
	e := Entity{Name: name}

	if seq := v.LookupPath(cue.ParsePath("sequence")); seq.Exists() {
		s, err := seq.String()
		if err != nil {
			return Entity{}, cueError(err)
		}
		e.Sequence = s
	}
	if tm := v.LookupPath(cue.ParsePath("temporality")); tm.Exists() {
		s, err := tm.String()
		if err != nil {
			return Entity{}, cueError(err)
		}
		e.Temporality = s
	}

	fields := v.LookupPath(cue.ParsePath("fields"))
	if !fields.Exists() {
		return e, nil
	}
	iter, err := fields.Fields()
	if err != nil {
		return Entity{}, cueError(err)
	}
	for iter.Next() {
		t, err := cueFieldType(iter.Value())
		if err != nil {
			return Entity{}, errors.Wrapf(err, "entity.%s.fields.%s", name, iter.Label())
		}
		e.Fields = append(e.Fields, Field{Name: iter.Label(), Type: t})
	}
	return e, nil
}

// cueFieldType maps a CUE kind to a FieldType. Numbers that may be
// fractional are floats.
func cueFieldType(v cue.Value) (FieldType, error) {
	if v.IsConcrete() {
		if s, err := v.String(); err == nil {
			return FieldType(s), nil
		}
	}
	switch v.IncompleteKind() {
	case cue.StringKind:
		return TypeString, nil
	case cue.IntKind:
		return TypeInt, nil
	case cue.FloatKind, cue.NumberKind:
		return TypeFloat, nil
	case cue.BoolKind:
		return TypeBool, nil
	case cue.ListKind:
		return TypeList, nil
	case cue.StructKind:
		return TypeObject, nil
	}
	return "", errors.Wrapf(ErrInvalidSchema, "unsupported type kind: %v", v.IncompleteKind())
}

// cueError reports the first CUE error with its source position.
func cueError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return errors.Mark(err, ErrInvalidSchema)
	}
	first := errs[0]
	msg := first.Error()
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		pos := positions[0]
		msg = fmt.Sprintf("%s:%d:%d: %s", pos.Filename(), pos.Line(), pos.Column(), msg)
	}
	return errors.Wrapf(ErrInvalidSchema, "%s", msg)
}

// LoadYAML decodes a YAML (or JSON) schema of the same shape as LoadCUE:
//
//	entity:
//	  order:
//	    sequence: orders
//	    temporality: bitemporal
//	    fields:
//	      status: string
//	      amount: int
func LoadYAML(data []byte) (*Schema, error) {
	s, err := decodeYAML(data)
	if err != nil {
		return nil, err
	}
	if err := check(s); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeYAML(data []byte) (*Schema, error) {
	var doc struct {
		Entity entityList `yaml:"entity"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(ErrInvalidSchema, "%v", err)
	}

	return &Schema{Entities: doc.Entity}, nil
}

// entityList and fieldList decode YAML mappings in document order.
type entityList []Entity

func (l *entityList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.Newf("line %d: entity must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var body struct {
			Sequence    string    `yaml:"sequence"`
			Temporality string    `yaml:"temporality"`
			Fields      fieldList `yaml:"fields"`
		}
		if err := node.Content[i+1].Decode(&body); err != nil {
			return err
		}
		*l = append(*l, Entity{
			Name:        node.Content[i].Value,
			Sequence:    body.Sequence,
			Temporality: body.Temporality,
			Fields:      body.Fields,
		})
	}
	return nil
}

type fieldList []Field

func (l *fieldList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.Newf("line %d: fields must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		*l = append(*l, Field{
			Name: node.Content[i].Value,
			Type: FieldType(node.Content[i+1].Value),
		})
	}
	return nil
}
