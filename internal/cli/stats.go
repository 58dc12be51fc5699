package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tempora/internal/store"
)

// entityStats counts the ids recorded for one entity.
type entityStats struct {
	Entity string `json:"entity"`
	IDs    int64  `json:"ids"`
}

type statsResult struct {
	Database string        `json:"database"`
	Entities []entityStats `json:"entities"`
}

func (r statsResult) String() string {
	if len(r.Entities) == 0 {
		return r.Database + ": no versions recorded"
	}
	var b strings.Builder
	b.WriteString(r.Database)
	for _, e := range r.Entities {
		fmt.Fprintf(&b, "\n  %-20s %d ids", e.Entity, e.IDs)
	}
	return b.String()
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize what a database holds",
		Long: `List every entity with at least one recorded version and the number of
distinct ids it has ever held, deleted ones included. No schema is needed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			res, err := runStats(cmd, rootOpts)
			return f.Respond(res, err)
		},
	}
}

func runStats(cmd *cobra.Command, opts *RootOptions) (*statsResult, error) {
	cfg, log, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Database, store.WithLogger(log))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	names, err := st.Entities(ctx)
	if err != nil {
		return nil, err
	}
	res := &statsResult{Database: cfg.Database, Entities: make([]entityStats, 0, len(names))}
	for _, name := range names {
		n, err := st.Count(ctx, name)
		if err != nil {
			return nil, err
		}
		res.Entities = append(res.Entities, entityStats{Entity: name, IDs: n})
	}
	return res, nil
}
