package container

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"fiberkernel/diag"
	"fiberkernel/handle"
	"fiberkernel/service"
)

// RuntimeConfig is the host-facing configuration for a Container (spec
// SPEC_FULL §10.2, AMBIENT), generalized from the teacher's ad hoc
// `-db`/`-port`/`-checkpoint` flags into a layered config the way
// dittofs's pkg/config does it: CLI flags override environment
// variables override a config file override built-in defaults.
type RuntimeConfig struct {
	// OpBudget is the per-tick instruction budget (see Config.OpBudget).
	OpBudget int `mapstructure:"op_budget" yaml:"op_budget"`
	// TickIntervalMS is the per-service scheduling cadence in
	// milliseconds (time.Duration doesn't round-trip through YAML/env
	// cleanly, so the on-disk/env form is a plain integer).
	TickIntervalMS int `mapstructure:"tick_interval_ms" yaml:"tick_interval_ms"`
	// DefaultMode names the re-entrancy mode new services start in
	// absent an explicit override ("Forbidden", "Exclusive",
	// "Prioritized", "Open").
	DefaultMode string `mapstructure:"default_mode" yaml:"default_mode"`
	// TraceEnabled turns on diag.Tracer output.
	TraceEnabled bool `mapstructure:"trace_enabled" yaml:"trace_enabled"`
	// TraceFilters is the glob pattern set diag.Tracer filters call
	// labels through; empty traces everything.
	TraceFilters []string `mapstructure:"trace_filters" yaml:"trace_filters"`
	// LogLevel is one of zerolog's level names ("debug", "info",
	// "warn", "error", "disabled").
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultRuntimeConfig returns the built-in defaults applied when no
// config file, environment variable, or flag supplies a value.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		OpBudget:       DefaultOpBudget,
		TickIntervalMS: int(DefaultTickInterval / time.Millisecond),
		DefaultMode:    service.Open.String(),
		TraceEnabled:   false,
		LogLevel:       "info",
	}
}

// LoadRuntimeConfig reads configuration from configPath (if non-empty),
// layering FIBERKERNEL_-prefixed environment variables and built-in
// defaults underneath it (spec SPEC_FULL §10.2, generalized from
// dittofs's pkg/config.Load: viper.New + SetEnvPrefix/AutomaticEnv +
// ReadInConfig, falling back to defaults when no file is found).
func LoadRuntimeConfig(configPath string) (RuntimeConfig, error) {
	v := viper.New()
	setupRuntimeViper(v, configPath)

	defaults := DefaultRuntimeConfig()
	v.SetDefault("op_budget", defaults.OpBudget)
	v.SetDefault("tick_interval_ms", defaults.TickIntervalMS)
	v.SetDefault("default_mode", defaults.DefaultMode)
	v.SetDefault("trace_enabled", defaults.TraceEnabled)
	v.SetDefault("log_level", defaults.LogLevel)

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return RuntimeConfig{}, fmt.Errorf("container: read config: %w", err)
			}
		}
	}

	var cfg RuntimeConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return RuntimeConfig{}, fmt.Errorf("container: unmarshal config: %w", err)
	}
	return cfg, nil
}

func setupRuntimeViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("FIBERKERNEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
}

// ParseReentrancyMode resolves a RuntimeConfig.DefaultMode string into a
// service.ReentrancyMode, defaulting to service.Open on an unrecognized
// name rather than failing startup over a typo in a rarely-touched
// field.
func ParseReentrancyMode(name string) service.ReentrancyMode {
	switch strings.ToLower(name) {
	case "forbidden":
		return service.Forbidden
	case "exclusive":
		return service.Exclusive
	case "prioritized":
		return service.Prioritized
	default:
		return service.Open
	}
}

// ParseLogLevel resolves a RuntimeConfig.LogLevel string into a
// zerolog.Level, falling back to zerolog.InfoLevel on an unrecognized
// name.
func ParseLogLevel(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// SaveRuntimeConfig writes cfg to path in YAML form, using yaml.Marshal
// directly so the yaml struct tags (not viper's own serialization) pick
// the on-disk key names, matching the teacher-adjacent dittofs pattern
// of saving what was loaded back out verbatim.
func SaveRuntimeConfig(cfg RuntimeConfig, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("container: marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("container: write config: %w", err)
	}
	return nil
}

// ToConfig converts a loaded RuntimeConfig plus an oracle into the
// container.Config New expects, wiring diag.Log/diag.Tracer to os.Stderr
// at the configured level/filters.
func (rc RuntimeConfig) ToConfig(oracle handle.SubtypeOracle) Config {
	return Config{
		OpBudget:     rc.OpBudget,
		TickInterval: time.Duration(rc.TickIntervalMS) * time.Millisecond,
		Oracle:       oracle,
		Log:          diag.NewLog(os.Stderr, ParseLogLevel(rc.LogLevel)),
		Trace:        diag.NewTracer(rc.TraceEnabled, rc.TraceFilters, os.Stderr),
	}
}
