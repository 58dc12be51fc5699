package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/tempora/internal/query"
	"github.com/roach88/tempora/internal/repository"
)

// Validation error codes (E101-E108)
const (
	ErrCodeNoEntities     = "E101" // schema declares no entity
	ErrCodeInvalidName    = "E102" // entity or field name is not an identifier
	ErrCodeDuplicateName  = "E103" // duplicate entity or field name
	ErrCodeNoFields       = "E104" // entity declares no field
	ErrCodeInvalidType    = "E105" // unknown field type
	ErrCodeReservedField  = "E106" // field shadows a pseudo-field
	ErrCodeInvalidSeqName = "E107" // sequence name is not an identifier
	ErrCodeTemporality    = "E108" // unknown temporality
)

// ValidationError is one violated schema rule.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks s against the schema rules and returns every violation.
func Validate(s *Schema) []ValidationError {
	var errs []ValidationError

	if len(s.Entities) == 0 {
		errs = append(errs, ValidationError{
			Field:   "entity",
			Message: "at least one entity is required",
			Code:    ErrCodeNoEntities,
		})
	}

	seen := make(map[string]bool)
	for _, e := range s.Entities {
		path := "entity." + e.Name
		if !identifier.MatchString(e.Name) {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("entity name %q is not an identifier", e.Name),
				Code:    ErrCodeInvalidName,
			})
		}
		if seen[e.Name] {
			errs = append(errs, ValidationError{
				Field:   path,
				Message: "duplicate entity name",
				Code:    ErrCodeDuplicateName,
			})
		}
		seen[e.Name] = true

		if e.Sequence != "" && !identifier.MatchString(e.Sequence) {
			errs = append(errs, ValidationError{
				Field:   path + ".sequence",
				Message: fmt.Sprintf("sequence name %q is not an identifier", e.Sequence),
				Code:    ErrCodeInvalidSeqName,
			})
		}
		if _, err := repository.ParseTemporality(e.Temporality); err != nil {
			errs = append(errs, ValidationError{
				Field:   path + ".temporality",
				Message: fmt.Sprintf("temporality %q is not bitemporal or processing", e.Temporality),
				Code:    ErrCodeTemporality,
			})
		}
		errs = append(errs, validateFields(path, e.Fields)...)
	}
	return errs
}

func validateFields(path string, fields []Field) []ValidationError {
	var errs []ValidationError
	if len(fields) == 0 {
		return append(errs, ValidationError{
			Field:   path + ".fields",
			Message: "at least one field is required",
			Code:    ErrCodeNoFields,
		})
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		fieldPath := path + ".fields." + f.Name
		switch {
		case !identifier.MatchString(f.Name):
			errs = append(errs, ValidationError{
				Field:   fieldPath,
				Message: fmt.Sprintf("field name %q is not an identifier", f.Name),
				Code:    ErrCodeInvalidName,
			})
		case query.IsPseudoField(f.Name):
			errs = append(errs, ValidationError{
				Field:   fieldPath,
				Message: "name is reserved for version metadata",
				Code:    ErrCodeReservedField,
			})
		case seen[f.Name]:
			errs = append(errs, ValidationError{
				Field:   fieldPath,
				Message: "duplicate field name",
				Code:    ErrCodeDuplicateName,
			})
		}
		seen[f.Name] = true

		if !f.Type.Valid() {
			errs = append(errs, ValidationError{
				Field:   fieldPath,
				Message: fmt.Sprintf("unknown type %q", f.Type),
				Code:    ErrCodeInvalidType,
			})
		}
	}
	return errs
}

// check runs Validate and folds the violations into one ErrInvalidSchema.
func check(s *Schema) error {
	errs := Validate(s)
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return errors.Wrapf(ErrInvalidSchema, "%s", strings.Join(msgs, "; "))
}
