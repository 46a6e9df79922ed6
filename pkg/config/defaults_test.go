package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	require.Equal(t, "INFO", cfg.Logging.Level)
	require.Equal(t, "stdout", cfg.Logging.Output)
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	require.Equal(t, 4, cfg.Server.Threads)
	require.Equal(t, cfg.Server.Threads, cfg.Server.RegistryCapacity)
	require.Equal(t, 30, cfg.Server.ShutdownTimeoutSeconds)
	require.NotEmpty(t, cfg.Server.Webroot)
}

func TestApplyDefaults_Locking(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	require.Equal(t, "reader_priority", cfg.Locking.Policy)
	require.Equal(t, 1, cfg.Locking.N)
}

func TestApplyDefaults_Audit(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	require.Equal(t, "stderr", cfg.Audit.Output)
}

func TestApplyDefaults_AcceptLimitDisabledByDefault(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	require.Zero(t, cfg.AcceptLimit.RatePerSecond)
	require.Zero(t, cfg.AcceptLimit.Burst)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Threads: 16},
	}
	ApplyDefaults(cfg)

	require.Equal(t, 16, cfg.Server.Threads)
}
