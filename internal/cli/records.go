package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/roach88/tempora/internal/executor"
	"github.com/roach88/tempora/internal/parser"
	"github.com/roach88/tempora/internal/repository"
	"github.com/roach88/tempora/internal/schema"
	"github.com/roach88/tempora/internal/temporal"
	"github.com/roach88/tempora/internal/value"
)

// recordOutput renders one entity version.
type recordOutput schema.Record

func (r recordOutput) MarshalJSON() ([]byte, error) {
	return value.MarshalCanonical(schema.RecordValue(schema.Record(r)))
}

func (r recordOutput) String() string {
	data, err := value.MarshalCanonical(r.Data)
	if err != nil {
		data = []byte(err.Error())
	}
	return fmt.Sprintf("id=%d business=%s processing=%s data=%s", r.ID, r.Business, r.Processing, data)
}

type recordList []recordOutput

func toRecordList(rs []schema.Record) recordList {
	out := make(recordList, len(rs))
	for i, r := range rs {
		out[i] = recordOutput(r)
	}
	return out
}

func (l recordList) String() string {
	if len(l) == 0 {
		return "(no versions)"
	}
	lines := make([]string, len(l))
	for i, r := range l {
		lines[i] = r.String()
	}
	return strings.Join(lines, "\n")
}

// getResult is the outcome of a point read.
type getResult struct {
	Found  bool          `json:"found"`
	Record *recordOutput `json:"record,omitempty"`
}

func (r getResult) String() string {
	if !r.Found {
		return "not found"
	}
	return r.Record.String()
}

// deleteResult confirms a delete.
type deleteResult struct {
	ID int64 `json:"id"`
}

func (r deleteResult) String() string {
	return fmt.Sprintf("deleted id=%d", r.ID)
}

// queryResult is the outcome of a derived query.
type queryResult struct {
	Type   string     `json:"type"`
	Count  int64      `json:"count"`
	Exists bool       `json:"exists"`
	Rows   recordList `json:"rows"`
}

func (r queryResult) String() string {
	switch r.Type {
	case "Count":
		return strconv.FormatInt(r.Count, 10)
	case "Exists":
		return strconv.FormatBool(r.Exists)
	case "Delete":
		return fmt.Sprintf("deleted %d\n%s", r.Count, r.Rows)
	}
	return r.Rows.String()
}

// withRepository opens the environment, builds the entity's repository and
// closes everything once fn returns.
func withRepository(cmd *cobra.Command, opts *RootOptions, entity string,
	fn func(ctx context.Context, repo *repository.Repository[value.Object], ent schema.Entity) (any, error),
) error {
	f := opts.formatter(cmd)

	e, err := openEnv(cmd, opts)
	if err != nil {
		return f.Respond(nil, err)
	}
	repo, ent, err := e.repository(entity)
	if err != nil {
		_ = e.Close()
		return f.Respond(nil, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	data, err := fn(ctx, repo, ent)
	if closeErr := e.Close(); err == nil && closeErr != nil {
		err = WrapExitError(ExitCommandError, "close", closeErr)
	}
	return f.Respond(data, err)
}

// parseData decodes a JSON object argument.
func parseData(raw string) (value.Object, error) {
	obj, err := value.UnmarshalObject([]byte(raw))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "record data"), schema.ErrInvalidRecord)
	}
	return obj, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid id %q", raw), err)
	}
	return id, nil
}

// parseInstant parses an optional timestamp flag. Empty yields zero.
func parseInstant(flag, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := schema.ParseTime(raw)
	if err != nil {
		return time.Time{}, WrapExitError(ExitCommandError, "--"+flag, err)
	}
	return t, nil
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	var id int64
	var businessFrom string

	cmd := &cobra.Command{
		Use:   "save <entity> <json>",
		Short: "Save a new entity",
		Long: `Save a new entity. The record is a JSON object whose fields must be
declared by the schema. The id is allocated from the entity's sequence
unless --id is given.

Examples:
  tempora save order '{"status":"pending","amount":10}'
  tempora save order '{"status":"pending"}' --business-from 2024-01-01`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, rootOpts, args[0],
				func(ctx context.Context, repo *repository.Repository[value.Object], _ schema.Entity) (any, error) {
					data, err := parseData(args[1])
					if err != nil {
						return nil, err
					}
					from, err := parseInstant("business-from", businessFrom)
					if err != nil {
						return nil, err
					}
					saved, err := repo.Save(ctx, schema.Record{
						ID:       id,
						Data:     data,
						Business: temporal.Interval{From: from},
					})
					if err != nil {
						return nil, err
					}
					return recordOutput(saved), nil
				})
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "explicit id instead of the next sequence value")
	cmd.Flags().StringVar(&businessFrom, "business-from", "", "business start (default now)")
	return cmd
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	var asOf, processingAsOf string

	cmd := &cobra.Command{
		Use:   "get <entity> <id>",
		Short: "Read one entity",
		Long: `Read the version of an entity that is true at a business instant, as
it was believed at a processing instant. Both default to now.

Examples:
  tempora get order 1000
  tempora get order 1000 --as-of 2024-02-10
  tempora get order 1000 --as-of 2024-02-10 --processing-as-of 2024-03-01T12:00:00Z`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, rootOpts, args[0],
				func(ctx context.Context, repo *repository.Repository[value.Object], _ schema.Entity) (any, error) {
					id, err := parseID(args[1])
					if err != nil {
						return nil, err
					}
					businessAt, err := parseInstant("as-of", asOf)
					if err != nil {
						return nil, err
					}
					processingAt, err := parseInstant("processing-as-of", processingAsOf)
					if err != nil {
						return nil, err
					}

					var (
						found schema.Record
						ok    bool
					)
					switch {
					case businessAt.IsZero() && processingAt.IsZero():
						found, ok, err = repo.FindByID(ctx, id)
					case businessAt.IsZero():
						found, ok, err = repo.FindByIDAsOfProcessing(ctx, id, processingAt)
					default:
						found, ok, err = repo.FindByIDAsOf(ctx, id, businessAt, processingAt)
					}
					if err != nil {
						return nil, err
					}
					if !ok {
						return getResult{}, nil
					}
					out := recordOutput(found)
					return getResult{Found: true, Record: &out}, nil
				})
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "business instant (default now)")
	cmd.Flags().StringVar(&processingAsOf, "processing-as-of", "", "processing instant (default current belief)")
	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "update <entity> <id> <json>",
		Short: "Update an entity from a business instant onward",
		Long: `Make a record true from a business instant (default now) onward. The
versions it replaces are terminated on processing time, not overwritten.

Examples:
  tempora update order 1000 '{"status":"shipped","amount":10}'
  tempora update order 1000 '{"status":"pending","amount":9}' --as-of 2024-02-15`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, rootOpts, args[0],
				func(ctx context.Context, repo *repository.Repository[value.Object], _ schema.Entity) (any, error) {
					id, err := parseID(args[1])
					if err != nil {
						return nil, err
					}
					data, err := parseData(args[2])
					if err != nil {
						return nil, err
					}
					at, err := parseInstant("as-of", asOf)
					if err != nil {
						return nil, err
					}

					e := schema.Record{ID: id, Data: data}
					var updated schema.Record
					if at.IsZero() {
						updated, err = repo.Update(ctx, e)
					} else {
						updated, err = repo.UpdateAsOf(ctx, e, at)
					}
					if err != nil {
						return nil, err
					}
					return recordOutput(updated), nil
				})
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "business instant the update takes effect (default now)")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "delete <entity> <id>",
		Short: "End an entity's business life",
		Long: `End an entity's business life at a business instant (default now).
Versions are terminated, never removed: as-of reads still see them.

Examples:
  tempora delete order 1000
  tempora delete order 1000 --as-of 2024-06-30`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, rootOpts, args[0],
				func(ctx context.Context, repo *repository.Repository[value.Object], _ schema.Entity) (any, error) {
					id, err := parseID(args[1])
					if err != nil {
						return nil, err
					}
					at, err := parseInstant("as-of", asOf)
					if err != nil {
						return nil, err
					}
					if at.IsZero() {
						err = repo.DeleteByID(ctx, id)
					} else {
						err = repo.DeleteByIDAsOf(ctx, id, at)
					}
					if err != nil {
						return nil, err
					}
					return deleteResult{ID: id}, nil
				})
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "business instant the delete takes effect (default now)")
	return cmd
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <entity> <id>",
		Short: "List every version ever recorded for an entity",
		Long: `List every version recorded for an entity, terminated ones included,
ordered by processing start then business start.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, rootOpts, args[0],
				func(ctx context.Context, repo *repository.Repository[value.Object], _ schema.Entity) (any, error) {
					id, err := parseID(args[1])
					if err != nil {
						return nil, err
					}
					versions, err := repo.History(ctx, id)
					if err != nil {
						return nil, err
					}
					return toRecordList(versions), nil
				})
		},
	}
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <entity> <method> [args...]",
		Short: "Run a derived query",
		Long: `Run a derived query method against the current versions of an entity.

Arguments are typed by the field they bind to. IN and NOT_IN take a
comma-separated list; "null" is the null value; a trailing as-of argument
is a timestamp.

Examples:
  tempora query order findByStatus pending
  tempora query order findByAmountBetweenOrderByAmountDesc 10 20
  tempora query order countByStatusIn pending,shipped
  tempora query order findByStatusAsOf pending 2024-02-10`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, rootOpts, args[0],
				func(ctx context.Context, repo *repository.Repository[value.Object], ent schema.Entity) (any, error) {
					q, err := parser.Parse(args[1])
					if err != nil {
						return nil, err
					}
					typed, err := ent.ParseArgs(q, args[2:])
					if err != nil {
						return nil, err
					}
					res, err := repo.Run(ctx, q, typed...)
					if err != nil {
						return nil, err
					}
					return toQueryResult(res), nil
				})
		},
	}
}

func toQueryResult(res executor.Result[schema.Record]) queryResult {
	return queryResult{
		Type:   res.Type.String(),
		Count:  res.Count,
		Exists: res.Exists,
		Rows:   toRecordList(res.Rows),
	}
}

var (
	_ json.Marshaler = recordOutput{}
	_ fmt.Stringer   = recordList{}
)
