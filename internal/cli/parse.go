package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tempora/internal/parser"
	"github.com/roach88/tempora/internal/query"
)

// parseResult is a parsed method name plus its argument count.
type parseResult struct {
	query.ParsedQuery
	Arity int `json:"arity"`
}

// String renders the query one attribute per line.
func (r parseResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "method:     %s\n", r.Method)
	fmt.Fprintf(&b, "type:       %s\n", r.Type)

	b.WriteString("conditions:")
	if len(r.Conditions) == 0 {
		b.WriteString(" none")
	}
	b.WriteByte('\n')
	for i, c := range r.Conditions {
		if i == 0 {
			fmt.Fprintf(&b, "  %s %s\n", c.Property, c.Operator)
		} else {
			fmt.Fprintf(&b, "  %s %s %s\n", c.Logical, c.Property, c.Operator)
		}
	}

	b.WriteString("order by:")
	if len(r.OrderBy) == 0 {
		b.WriteString(" none")
	}
	b.WriteByte('\n')
	for _, o := range r.OrderBy {
		fmt.Fprintf(&b, "  %s %s\n", o.Property, o.Direction)
	}

	fmt.Fprintf(&b, "limit:      %d\n", r.Limit)
	fmt.Fprintf(&b, "distinct:   %t\n", r.Distinct)
	fmt.Fprintf(&b, "as of:      %t\n", r.AsOf)
	fmt.Fprintf(&b, "arity:      %d", r.Arity)
	return b.String()
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <method>",
		Short: "Parse a query method name",
		Long: `Parse a derived query method name and print its structure.

No database or schema is needed; parsing is purely syntactic.

Examples:
  tempora parse findByStatusOrderByAmountDesc
  tempora parse countByAmountBetweenAsOf --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			q, err := parser.Parse(args[0])
			if err != nil {
				return f.Respond(nil, err)
			}
			return f.Respond(parseResult{ParsedQuery: q, Arity: q.Arity()}, nil)
		},
	}
}
