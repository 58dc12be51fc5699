package cli

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/tempora/internal/config"
	"github.com/roach88/tempora/internal/logging"
	"github.com/roach88/tempora/internal/metrics"
	"github.com/roach88/tempora/internal/repository"
	"github.com/roach88/tempora/internal/schema"
	"github.com/roach88/tempora/internal/sequence"
	"github.com/roach88/tempora/internal/store"
	"github.com/roach88/tempora/internal/value"
)

// env is what a record command needs: resolved configuration, a logger,
// the loaded schema and an open store.
type env struct {
	cfg        *config.Config
	log        *zap.Logger
	schema     *schema.Schema
	store      *store.Store
	registry   *prometheus.Registry
	metrics    *metrics.Prometheus
	metricsOut string
}

// loadConfig resolves configuration and builds the logger. Log output goes
// to the command's stderr so JSON on stdout stays parseable.
func loadConfig(cmd *cobra.Command, opts *RootOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(config.New(), opts.ConfigFile, cmd.Flags())
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "load config", err)
	}
	level := logging.VerbosityToLevel(opts.Verbose, cfg.Log.Level)
	log, err := logging.NewWithWriter(cmd.ErrOrStderr(), level, cfg.Log.Format)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "configure logging", err)
	}
	return cfg, log, nil
}

// loadSchema reads the configured schema file.
func loadSchema(cfg *config.Config) (*schema.Schema, error) {
	if cfg.Schema == "" {
		return nil, NewExitError(ExitCommandError, "no schema configured: pass --schema or set TEMPORA_SCHEMA")
	}
	sch, err := schema.LoadFile(cfg.Schema)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load schema", err)
	}
	return sch, nil
}

// openEnv loads configuration and schema and opens the database.
func openEnv(cmd *cobra.Command, opts *RootOptions) (*env, error) {
	cfg, log, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}
	sch, err := loadSchema(cfg)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Database, store.WithLogger(log))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open database", err)
	}

	registry := prometheus.NewRegistry()
	rec, err := metrics.NewPrometheus(registry)
	if err != nil {
		_ = st.Close()
		return nil, WrapExitError(ExitCommandError, "register metrics", err)
	}

	log.Debug("environment ready",
		zap.String("database", cfg.Database),
		zap.String("schema", cfg.Schema),
		zap.Strings("entities", sch.Names()))
	return &env{
		cfg:        cfg,
		log:        log,
		schema:     sch,
		store:      st,
		registry:   registry,
		metrics:    rec,
		metricsOut: opts.MetricsOut,
	}, nil
}

// repository builds the repository for a schema entity.
func (e *env) repository(name string) (*repository.Repository[value.Object], schema.Entity, error) {
	ent, ok := e.schema.Entity(name)
	if !ok {
		return nil, schema.Entity{}, NewExitError(ExitCommandError,
			fmt.Sprintf("unknown entity %q (schema has: %s)", name, strings.Join(e.schema.Names(), ", ")))
	}

	seq := sequence.New(e.store.Sequences(),
		sequence.WithStart(e.cfg.Sequence.Start),
		sequence.WithIncrement(e.cfg.Sequence.Increment))
	repo, err := repository.New(e.store, ent.Descriptor(),
		repository.WithSequence(seq),
		repository.WithLogger(e.log),
		repository.WithMetrics(e.metrics))
	if err != nil {
		return nil, schema.Entity{}, err
	}
	return repo, ent, nil
}

// Close writes metrics when requested and closes the database.
func (e *env) Close() error {
	var errs []error
	if e.metricsOut != "" {
		if err := prometheus.WriteToTextfile(e.metricsOut, e.registry); err != nil {
			errs = append(errs, errors.Wrapf(err, "write metrics %s", e.metricsOut))
		}
	}
	if err := e.store.Close(); err != nil {
		errs = append(errs, errors.Wrap(err, "close database"))
	}
	_ = e.log.Sync()
	return errors.Join(errs...)
}
