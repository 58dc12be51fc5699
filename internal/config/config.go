// Package config loads tempora settings from defaults, an optional config
// file, TEMPORA_* environment variables and command-line flags, in
// increasing precedence.
package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the resolved configuration.
type Config struct {
	Database string         `mapstructure:"database"`
	Schema   string         `mapstructure:"schema"`
	Log      LogConfig      `mapstructure:"log"`
	Sequence SequenceConfig `mapstructure:"sequence"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SequenceConfig sets id allocation for new sequences.
type SequenceConfig struct {
	Start     int64 `mapstructure:"start"`
	Increment int64 `mapstructure:"increment"`
}

// EnvPrefix prefixes environment overrides: TEMPORA_DATABASE,
// TEMPORA_LOG_LEVEL and so on.
const EnvPrefix = "TEMPORA"

// SetDefaults registers the default of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database", "tempora.db")
	v.SetDefault("schema", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("sequence.start", 1000)
	v.SetDefault("sequence.increment", 1)
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// Load resolves the configuration. path names an optional config file
// (YAML, TOML or JSON by extension); flags overrides keys whose flag was
// set, mapped by flag name ("db" to database, "log-level" to log.level).
func Load(v *viper.Viper, path string, flags *pflag.FlagSet) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrapf(err, "bind flag %s", name)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var flagKeys = map[string]string{
	"database":   "db",
	"schema":     "schema",
	"log.level":  "log-level",
	"log.format": "log-format",
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Database == "":
		return errors.New("database path is empty")
	case c.Sequence.Increment < 1:
		return errors.Newf("sequence.increment must be positive, got %d", c.Sequence.Increment)
	}
	return nil
}
