package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tempora/internal/parser"
	"github.com/roach88/tempora/internal/querysql"
	"github.com/roach88/tempora/internal/schema"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	At string // business instant for queries without an as-of argument
}

// explainResult is the SQL a query compiles to.
type explainResult struct {
	SQL    string   `json:"sql"`
	Params []string `json:"params"`
}

func (r explainResult) String() string {
	var b strings.Builder
	b.WriteString(r.SQL)
	for i, p := range r.Params {
		fmt.Fprintf(&b, "\n  $%d = %s", i+1, p)
	}
	return b.String()
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <entity> <method> [args...]",
		Short: "Show the SQL a query method compiles to",
		Long: `Compile a derived query to parameterized SQLite SQL over the versions
table, reading payload fields with json_extract.

Without arguments every parameter is shown by name (:status, :asOf, ...).
With arguments they are typed against the schema's field declarations, so
--schema is required.

Examples:
  tempora explain order findByStatusOrderByAmountDesc
  tempora explain order findByAmountGreaterThan 100 --schema orders.cue`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			res, err := runExplain(opts, cmd, args[0], args[1], args[2:])
			return f.Respond(res, err)
		},
	}

	cmd.Flags().StringVar(&opts.At, "at", "", "business instant for queries without an as-of argument")
	return cmd
}

func runExplain(opts *ExplainOptions, cmd *cobra.Command, entity, method string, raw []string) (*explainResult, error) {
	q, err := parser.Parse(method)
	if err != nil {
		return nil, err
	}

	compiler := querysql.NewSQLCompiler()
	if opts.At != "" {
		at, err := schema.ParseTime(opts.At)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "--at", err)
		}
		compiler.Now = func() time.Time { return at }
	}

	var args []any
	if len(raw) > 0 {
		cfg, _, err := loadConfig(cmd, opts.RootOptions)
		if err != nil {
			return nil, err
		}
		sch, err := loadSchema(cfg)
		if err != nil {
			return nil, err
		}
		ent, ok := sch.Entity(entity)
		if !ok {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown entity %q", entity))
		}
		if args, err = ent.ParseArgs(q, raw); err != nil {
			return nil, err
		}
	}

	stmt, err := compiler.Compile(entity, q, args...)
	if err != nil {
		return nil, err
	}
	params := make([]string, len(stmt.Params))
	for i, p := range stmt.Params {
		params[i] = fmt.Sprint(p)
	}
	return &explainResult{SQL: stmt.SQL, Params: params}, nil
}
