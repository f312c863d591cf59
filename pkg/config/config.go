// Package config loads the reshape command line configuration from flags,
// RESHAPE_* environment variables and an optional config file.
package config

import (
	"fmt"
	"strings"

	"github.com/mmcat/resultshape"
	"github.com/mmcat/resultshape/pkg/resultfmt"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key for environment lookup, e.g.
// RESHAPE_LOG_LEVEL for log-level.
const EnvPrefix = "RESHAPE"

type Config struct {
	LogLevel    string `mapstructure:"log-level"`
	StrictNulls bool   `mapstructure:"strict-nulls"`
	CacheSize   int    `mapstructure:"cache-size"`
	Format      string `mapstructure:"format"`
	Indent      int    `mapstructure:"indent"`
	TimeFormat  string `mapstructure:"time-format"`
	Color       string `mapstructure:"color"` // auto, always or never
}

func Default() Config {
	opts := resultshape.DefaultOptions()
	return Config{
		LogLevel:   opts.LogLevel,
		CacheSize:  opts.CacheSize,
		Format:     string(resultfmt.FormatJSON),
		Indent:     2,
		TimeFormat: resultfmt.DefaultTimeFormat,
		Color:      "auto",
	}
}

// RegisterFlags adds a flag for every key to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "config file (yaml, json or toml)")
	fs.String("log-level", d.LogLevel, "log level: error, warn, info or debug")
	fs.Bool("strict-nulls", d.StrictNulls, "treat null where a record or list is expected as a shape mismatch")
	fs.Int("cache-size", d.CacheSize, "maximum number of cached plans")
	fs.StringP("format", "f", d.Format, "output format: json or yaml")
	fs.Int("indent", d.Indent, "output indentation, 0 for compact json")
	fs.String("time-format", d.TimeFormat, "strftime layout for time values")
	fs.String("color", d.Color, "colour plan listings: auto, always or never")
}

// Load resolves the configuration. Precedence is flags set on the command
// line, then the environment, then the config file named by the "config"
// flag, then defaults. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	d := Default()
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("strict-nulls", d.StrictNulls)
	v.SetDefault("cache-size", d.CacheSize)
	v.SetDefault("format", d.Format)
	v.SetDefault("indent", d.Indent)
	v.SetDefault("time-format", d.TimeFormat)
	v.SetDefault("color", d.Color)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the enumerated and numeric keys.
func (c *Config) Validate() error {
	if _, err := resultfmt.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid config: color must be auto, always or never, got %q", c.Color)
	}
	switch strings.ToLower(c.LogLevel) {
	case "error", "warn", "warning", "info", "debug":
	default:
		return fmt.Errorf("invalid config: unknown log level %q", c.LogLevel)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("invalid config: cache-size must be positive, got %d", c.CacheSize)
	}
	if c.Indent < 0 {
		return fmt.Errorf("invalid config: indent must not be negative, got %d", c.Indent)
	}
	return nil
}

// Options returns the library options this configuration selects.
func (c *Config) Options() resultshape.Options {
	opts := resultshape.DefaultOptions()
	opts.LogLevel = strings.ToLower(c.LogLevel)
	opts.StrictNulls = c.StrictNulls
	opts.CacheSize = c.CacheSize
	return opts
}

// OutputOptions returns the rendering options for reshaped values.
func (c *Config) OutputOptions() resultfmt.Options {
	format, _ := resultfmt.ParseFormat(c.Format)
	return resultfmt.Options{Format: format, Indent: c.Indent, TimeFormat: c.TimeFormat}
}
