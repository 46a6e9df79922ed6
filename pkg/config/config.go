// Package config loads and validates httpfs server configuration.
//
// Configuration sources (highest precedence first):
//  1. CLI flags (only -t and the positional PORT, per the server's
//     minimal external CLI contract)
//  2. Environment variables (HTTPFS_*)
//  3. Configuration file (YAML)
//  4. Default values
//
// Everything that is not part of the server's external CLI contract (webroot,
// lock policy, audit destination, operational log level/output, metrics bind
// address, accept-rate limit) is config-file/env only, with defaults chosen
// to reproduce the literal server behavior when no config file is present.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete httpfs server configuration.
type Config struct {
	// Logging controls operational log output, independent of the audit stream.
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings: listen port, worker count, webroot.
	Server ServerConfig `mapstructure:"server"`

	// Locking selects the reader/writer lock fairness policy used by every
	// per-URI registry slot.
	Locking LockingConfig `mapstructure:"locking"`

	// Audit controls where completed-request audit lines are written.
	Audit AuditConfig `mapstructure:"audit"`

	// Metrics controls the optional Prometheus exposition endpoint.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// AcceptLimit configures the optional token-bucket accept-rate limiter.
	AcceptLimit AcceptLimitConfig `mapstructure:"accept_limit"`
}

// LoggingConfig controls operational logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output specifies where operational logs are written.
	// Valid values: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// Port is the TCP port the file server listens on.
	Port int `mapstructure:"port" validate:"required,gte=1,lte=65535"`

	// Threads is the fixed worker-pool size; it also sets the bounded queue's capacity.
	Threads int `mapstructure:"threads" validate:"required,gt=0"`

	// Webroot is the directory GET/PUT URIs are resolved relative to.
	Webroot string `mapstructure:"webroot" validate:"required"`

	// RegistryCapacity overrides the per-URI lock registry size.
	// Defaults to Threads, the spec-mandated minimum (§4.3 Rationale).
	RegistryCapacity int `mapstructure:"registry_capacity" validate:"required,gt=0"`

	// ShutdownTimeout bounds how long graceful shutdown waits for in-flight workers.
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds" validate:"required,gt=0"`
}

// LockingConfig selects the RWLock fairness policy shared by every registry slot.
type LockingConfig struct {
	// Policy selects the fairness strategy.
	// Valid values: reader_priority, writer_priority, n_way.
	Policy string `mapstructure:"policy" validate:"required,oneof=reader_priority writer_priority n_way"`

	// N is the per-window reader quota; only meaningful when Policy is n_way.
	N int `mapstructure:"n" validate:"required,gt=0"`
}

// AuditConfig controls the per-request audit line destination.
type AuditConfig struct {
	// Output is where audit lines are written.
	// Valid values: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required"`
}

// MetricsConfig controls the optional Prometheus exposition endpoint.
type MetricsConfig struct {
	// Enabled turns on the /metrics HTTP endpoint on a separate bind address.
	Enabled bool `mapstructure:"enabled"`

	// Addr is the listen address for the metrics endpoint (e.g. ":9090").
	Addr string `mapstructure:"addr" validate:"required_if=Enabled true"`
}

// AcceptLimitConfig configures the optional accept-rate limiter (§4.9).
type AcceptLimitConfig struct {
	// RatePerSecond is the sustained accept rate. Zero disables the limiter entirely.
	RatePerSecond float64 `mapstructure:"rate_per_second" validate:"gte=0"`

	// Burst is the token bucket capacity.
	Burst int `mapstructure:"burst" validate:"gte=0"`
}

// Load loads configuration from an optional file, environment, and defaults,
// then applies the CLI overrides for port and thread count.
//
// Parameters:
//   - configPath: path to a YAML config file, which must exist; an empty
//     string searches the default config directory for config.yaml, where a
//     missing file is not an error
//   - port: CLI-supplied PORT, always overrides the file/env/default value
//   - threads: CLI-supplied -t value; 0 means "not supplied, keep file/env/default"
//
// Returns the loaded and validated configuration.
func Load(configPath string, port int, threads int) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	// CLI flags always win: PORT is a required positional argument, -t is optional.
	cfg.Server.Port = port
	if threads > 0 {
		cfg.Server.Threads = threads
	}
	if cfg.Server.RegistryCapacity < cfg.Server.Threads {
		cfg.Server.RegistryCapacity = cfg.Server.Threads
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("HTTPFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if configPath == "" {
			// Default location is optional; only explicit -config paths must exist.
			if os.IsNotExist(err) {
				return nil
			}
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory path, preferring
// XDG_CONFIG_HOME, then ~/.config, falling back to the current directory.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "httpfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "httpfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
