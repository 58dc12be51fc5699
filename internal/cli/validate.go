package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tempora/internal/schema"
)

// ValidationResult holds the result of schema validation.
type ValidationResult struct {
	Valid    bool                     `json:"valid"`
	Entities []string                 `json:"entities,omitempty"`
	Errors   []schema.ValidationError `json:"errors,omitempty"`
}

func (r ValidationResult) String() string {
	if r.Valid {
		return fmt.Sprintf("✓ Schema valid (%s)", strings.Join(r.Entities, ", "))
	}
	var b strings.Builder
	b.WriteString("✗ Validation failed\n")
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "\n  %s: %s: %s", e.Code, e.Field, e.Message)
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema-file>",
		Short: "Validate an entity schema",
		Long: `Validate a CUE or YAML entity schema and report every violation.

Exit codes:
  0 - Schema is valid
  1 - Schema has validation errors
  2 - Command error (file not found, syntax error, etc.)

Examples:
  tempora validate ./orders.cue
  tempora validate ./orders.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args[0])
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command, path string) error {
	f := opts.formatter(cmd)

	f.VerboseLog("Loading schema: %s", path)
	sch, err := schema.DecodeFile(path)
	if err != nil {
		return f.Respond(nil, WrapExitError(ExitCommandError, "load schema", err))
	}

	errs := schema.Validate(sch)
	if len(errs) == 0 {
		return f.Respond(ValidationResult{Valid: true, Entities: sch.Names()}, nil)
	}
	return outputValidationErrors(f, ValidationResult{Valid: false, Errors: errs})
}

// outputValidationErrors reports every violation and fails with exit code 1.
func outputValidationErrors(f *OutputFormatter, result ValidationResult) error {
	first := result.Errors[0]
	if f.Format == FormatJSON {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    ErrCodeInvalidSchema,
				Message: first.Error(),
			},
		}
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(f.Writer, result.String())
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
}
