// Package config manages netsimd daemon configuration using koanf/v2.
//
// Supports YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete netsimd configuration.
type Config struct {
	Control ControlConfig  `koanf:"control"`
	Metrics MetricsConfig  `koanf:"metrics"`
	Log     LogConfig      `koanf:"log"`
	Sim     SimConfig      `koanf:"sim"`
	Routers []RouterConfig `koanf:"routers"`
}

// ControlConfig holds the JSON control API server configuration.
type ControlConfig struct {
	// Addr is the control API listen address (e.g., ":8080").
	Addr string `koanf:"addr"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// SimConfig holds the simulation core's own settings.
type SimConfig struct {
	// Topology is the path to the YAML topology file describing devices
	// and cabling to load at startup.
	Topology string `koanf:"topology"`

	// TickInterval is the wall-clock duration between simulation ticks.
	// The nominal quantum is 1/30s; this is configurable for
	// slower-than-realtime or accelerated runs.
	TickInterval time.Duration `koanf:"tick_interval"`

	// DefaultRIPInterval overrides the default RIP advertisement cadence
	// applied to routers that don't set their own in the topology file.
	DefaultRIPInterval time.Duration `koanf:"default_rip_interval"`
}

// RouterConfig declares a per-router RIP cadence override, keyed by the
// router's name in the topology file  (RIP timing is
// otherwise a fixed simulator constant, but an operator may want to slow
// one router's advertisement rate down for a demo or test).
type RouterConfig struct {
	// Name identifies the router within the loaded topology.
	Name string `koanf:"name"`

	// RIPInterval overrides DefaultRIPInterval for this router alone.
	RIPInterval time.Duration `koanf:"rip_interval"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
//
// TickInterval follows the nominal 30-ticks-per-second quantum:
// 1,000,000,000ns / 30 rounds to roughly 33ms.
func DefaultConfig() *Config {
	return &Config{
		Control: ControlConfig{
			Addr: ":8080",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Sim: SimConfig{
			Topology:           "",
			TickInterval:       33 * time.Millisecond,
			DefaultRIPInterval: 5 * time.Second,
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for netsimd configuration.
// Variables are named NETSIM_<section>_<key>, e.g., NETSIM_CONTROL_ADDR.
const envPrefix = "NETSIM_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (NETSIM_ prefix), and merges on top of DefaultConfig().
// Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	NETSIM_CONTROL_ADDR       -> control.addr
//	NETSIM_METRICS_ADDR       -> metrics.addr
//	NETSIM_METRICS_PATH       -> metrics.path
//	NETSIM_LOG_LEVEL          -> log.level
//	NETSIM_LOG_FORMAT         -> log.format
//	NETSIM_SIM_TOPOLOGY       -> sim.topology
//	NETSIM_SIM_TICK_INTERVAL  -> sim.tick_interval
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load defaults first.
	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	// Load YAML file on top of defaults.
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	// Load environment variable overrides on top of YAML.
	// NETSIM_CONTROL_ADDR -> control.addr (strip prefix, lowercase, first _ -> .).
	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms NETSIM_CONTROL_ADDR -> control.addr.
// Strips the NETSIM_ prefix, lowercases, and replaces the first _ (the
// section separator) with ., so NETSIM_SIM_TICK_INTERVAL -> sim.tick_interval.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.Replace(s, "_", ".", 1)
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"control.addr":             defaults.Control.Addr,
		"metrics.addr":             defaults.Metrics.Addr,
		"metrics.path":             defaults.Metrics.Path,
		"log.level":                defaults.Log.Level,
		"log.format":               defaults.Log.Format,
		"sim.topology":             defaults.Sim.Topology,
		"sim.tick_interval":        defaults.Sim.TickInterval.String(),
		"sim.default_rip_interval": defaults.Sim.DefaultRIPInterval.String(),
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyControlAddr indicates the control API listen address is empty.
	ErrEmptyControlAddr = errors.New("control.addr must not be empty")

	// ErrInvalidTickInterval indicates the tick interval is not positive.
	ErrInvalidTickInterval = errors.New("sim.tick_interval must be > 0")

	// ErrMissingTopology indicates no topology file path was configured.
	ErrMissingTopology = errors.New("sim.topology must not be empty")

	// ErrDuplicateRouterName indicates two router overrides share a name.
	ErrDuplicateRouterName = errors.New("duplicate router name")

	// ErrInvalidRouterRIPInterval indicates a router override's RIP
	// interval is negative. Zero means "no override" and is accepted.
	ErrInvalidRouterRIPInterval = errors.New("routers[].rip_interval must not be negative")
)

// Validate checks the configuration for logical errors.
// Returns the first validation error encountered.
func Validate(cfg *Config) error {
	if cfg.Control.Addr == "" {
		return ErrEmptyControlAddr
	}

	if cfg.Sim.TickInterval <= 0 {
		return ErrInvalidTickInterval
	}

	if cfg.Sim.Topology == "" {
		return ErrMissingTopology
	}

	if err := validateRouters(cfg.Routers); err != nil {
		return err
	}

	return nil
}

// validateRouters checks each per-router RIP override for correctness.
func validateRouters(routers []RouterConfig) error {
	seen := make(map[string]struct{}, len(routers))

	for i, rc := range routers {
		if rc.RIPInterval != 0 && rc.RIPInterval <= 0 {
			return fmt.Errorf("routers[%d]: %w", i, ErrInvalidRouterRIPInterval)
		}

		if _, dup := seen[rc.Name]; dup {
			return fmt.Errorf("routers[%d] name %q: %w", i, rc.Name, ErrDuplicateRouterName)
		}
		seen[rc.Name] = struct{}{}
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
