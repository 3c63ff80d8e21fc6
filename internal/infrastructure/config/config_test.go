package config

import (
	"os"
	"path/filepath"
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
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Address())

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	// Session config
	assert.Equal(t, 30*time.Minute, cfg.Session.DefaultTTL)
	assert.Equal(t, "eco-user", cfg.Session.FallbackUserID)
	assert.False(t, cfg.Session.RejectExpired)

	// Widget limits
	assert.Equal(t, 512*1024, cfg.Widgets.MaxBytes)
	assert.Equal(t, 20, cfg.Widgets.MaxDepth)
}

func TestLoadUsesDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default().Session, cfg.Session)
	assert.Equal(t, Default().Widgets, cfg.Widgets)
	assert.Equal(t, Default().Agent, cfg.Agent)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                   "9000",
		"HOST":                   "127.0.0.1",
		"LOG_LEVEL":              "debug",
		"LOG_DEV":                "true",
		"RATE_LIMIT_RPS":         "500",
		"RATE_LIMIT_BURST":       "1000",
		"RATE_LIMIT_ENABLED":     "false",
		"HOST_ALLOWED_ORIGINS":   "https://app.ecocash.example,https://staging.ecocash.example",
		"SESSION_DEFAULT_TTL":    "1h",
		"SESSION_REJECT_EXPIRED": "true",
		"AGENT_URL":              "http://agent:8080",
		"AGENT_MAX_RETRIES":      "5",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, []string{"https://app.ecocash.example", "https://staging.ecocash.example"}, cfg.Host.AllowedOrigins)
	assert.Equal(t, time.Hour, cfg.Session.DefaultTTL)
	assert.True(t, cfg.Session.RejectExpired)
	assert.Equal(t, "http://agent:8080", cfg.Agent.BaseURL)
	assert.Equal(t, 5, cfg.Agent.MaxRetries)
}

func TestLoadWithInvalidValue(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "lots")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
}

func TestLoadWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	content := `
server:
  port: "7000"
host:
  allowed_origins:
    - https://app.ecocash.example
agent:
  base_url: http://agent.internal
widgets:
  max_depth: 12
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, []string{"https://app.ecocash.example"}, cfg.Host.AllowedOrigins)
	assert.Equal(t, "http://agent.internal", cfg.Agent.BaseURL)
	assert.Equal(t, 12, cfg.Widgets.MaxDepth)
	assert.Equal(t, 512*1024, cfg.Widgets.MaxBytes, "keys absent from the file keep their env value")
}

func TestLoadWithMissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}
