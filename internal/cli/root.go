package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{FormatText, FormatJSON}

// RootOptions holds global flags for all commands. Database, Schema,
// LogLevel and LogFormat are bound to configuration keys and only take
// effect through config.Load.
type RootOptions struct {
	ConfigFile string
	Database   string
	Schema     string
	LogLevel   string
	LogFormat  string
	MetricsOut string
	Format     string // "json" | "text"
	Verbose    int
}

// NewRootCommand creates the root command for the tempora CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tempora",
		Short: "tempora - bitemporal entity store",
		Long: `A bitemporal data access layer over SQLite.

Every entity version carries a business interval (when the fact is true)
and a processing interval (when it was recorded). Updates and deletes
terminate versions instead of overwriting them, so any past belief about
any past instant can be read back. Derived queries are written as method
names such as findByStatusAndAmountGreaterThanOrderByAmountDesc.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (YAML, TOML or JSON)")
	flags.StringVar(&opts.Database, "db", "", "path to SQLite database (default tempora.db)")
	flags.StringVar(&opts.Schema, "schema", "", "entity schema file (.cue, .yaml, .json)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	flags.StringVar(&opts.LogFormat, "log-format", "", "log format (console|json)")
	flags.StringVar(&opts.MetricsOut, "metrics-out", "", "write Prometheus metrics to this file on exit")
	flags.StringVar(&opts.Format, "format", FormatText, "output format (json|text)")
	flags.CountVarP(&opts.Verbose, "verbose", "v", "verbose output (repeat for debug logs)")

	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSaveCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose > 0,
	}
}
