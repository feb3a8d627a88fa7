package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Bridge config
	assert.True(t, cfg.Bridge.Enabled)
	assert.Equal(t, "8765", cfg.Bridge.Port)
	assert.Equal(t, 10*time.Second, cfg.Bridge.AuthTimeout)
	assert.Equal(t, 90*time.Second, cfg.Bridge.LivenessTimeout)
	assert.Equal(t, 30*time.Second, cfg.Bridge.InvokeTimeout)

	// Shell config
	assert.Equal(t, 300, cfg.Shell.MaxExecSeconds)
	assert.Equal(t, 1000000, cfg.Shell.MaxOutputLength)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8765", cfg.Bridge.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                    "9000",
		"HOST":                    "127.0.0.1",
		"BRIDGE_PORT":             "9765",
		"BRIDGE_TOKEN":            "secret",
		"BRIDGE_LIVENESS_TIMEOUT": "45s",
		"MCP_EXEC_TIMEOUT":        "60",
		"MCP_DENY_PATTERNS":       "rm -rf /,mkfs",
		"LOG_LEVEL":               "debug",
		"LOG_DEV":                 "true",
	}

	for key, value := range envVars {
		os.Setenv(key, value)
	}
	defer func() {
		for key := range envVars {
			os.Unsetenv(key)
		}
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "9765", cfg.Bridge.Port)
	assert.Equal(t, "secret", cfg.Bridge.Token)
	assert.Equal(t, 45*time.Second, cfg.Bridge.LivenessTimeout)
	assert.Equal(t, 60, cfg.Shell.MaxExecSeconds)
	assert.Equal(t, []string{"rm -rf /", "mkfs"}, cfg.Security.DenyPatterns)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
}
