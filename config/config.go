// Package config loads switchyard's runtime configuration from a YAML file
// and SWITCHYARD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/iaconlabs/switchyard/server"
)

// EnvPrefix is prepended to every environment override,
// e.g. SWITCHYARD_SERVER_ADDR overrides server.addr.
const EnvPrefix = "SWITCHYARD"

// Config is the top-level configuration.
type Config struct {
	Server      server.Config `yaml:"server" mapstructure:"server"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	LogLevel    string        `yaml:"log_level" mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat   string        `yaml:"log_format" mapstructure:"log_format" validate:"oneof=json text"`
	Definitions string        `yaml:"definitions" mapstructure:"definitions"`
	Metrics     MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path" validate:"omitempty,startswith=/"`
}

var keys = []string{
	"server.addr",
	"server.read_timeout",
	"server.write_timeout",
	"server.idle_timeout",
	"server.shutdown_timeout",
	"debug",
	"log_level",
	"log_format",
	"definitions",
	"metrics.enabled",
	"metrics.path",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("debug", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("definitions", "")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load reads configuration from path, or from switchyard.yaml in the working
// directory when path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("switchyard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Level maps LogLevel onto a slog level. Debug mode forces debug level.
func (c *Config) Level() log.Level {
	if c.Debug {
		return log.LevelDebug
	}
	switch c.LogLevel {
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}

// Logger builds a slog logger writing to w in the configured format.
func (c *Config) Logger(w io.Writer) *log.Logger {
	opts := &log.HandlerOptions{Level: c.Level()}
	if c.LogFormat == "json" {
		return log.New(log.NewJSONHandler(w, opts))
	}
	return log.New(log.NewTextHandler(w, opts))
}
