package config

import "strings"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false) are replaced with defaults
//   - Explicit values from file/env are preserved
//   - Defaults reproduce the literal spec behavior (4 threads, reader-priority
//     N/A, stderr audit) when no config file is present
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyLockingDefaults(&cfg.Locking)
	applyAuditDefaults(&cfg.Audit)
	applyMetricsDefaults(&cfg.Metrics)
	applyAcceptLimitDefaults(&cfg.AcceptLimit)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Threads == 0 {
		cfg.Threads = 4
	}
	if cfg.Webroot == "" {
		cfg.Webroot = "."
	}
	if cfg.RegistryCapacity == 0 {
		cfg.RegistryCapacity = cfg.Threads
	}
	if cfg.ShutdownTimeoutSeconds == 0 {
		cfg.ShutdownTimeoutSeconds = 30
	}
}

func applyLockingDefaults(cfg *LockingConfig) {
	if cfg.Policy == "" {
		cfg.Policy = "reader_priority"
	}
	cfg.Policy = strings.ToLower(cfg.Policy)

	if cfg.N == 0 {
		cfg.N = 1
	}
}

func applyAuditDefaults(cfg *AuditConfig) {
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Addr == "" {
		cfg.Addr = ":9090"
	}
}

func applyAcceptLimitDefaults(cfg *AcceptLimitConfig) {
	// RatePerSecond and Burst default to zero, meaning "disabled" (§4.9).
}

// GetDefaultConfig returns a Config struct with all default values applied,
// as if no config file, environment variables, or CLI overrides were present.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
