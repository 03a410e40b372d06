package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gal07143/Save-It.AI-sub002/pkg/observability"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, 3, cfg.Webhooks.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Webhooks.AttemptTimeout)
	assert.Equal(t, []time.Duration{60 * time.Second, 300 * time.Second, 900 * time.Second}, cfg.Webhooks.RetryDelays)
	assert.Equal(t, 1000, cfg.Webhooks.HistoryCapacity)
	assert.True(t, cfg.Webhooks.BreakerProtection)
	assert.Empty(t, cfg.Webhooks.RedisURL)
	assert.Empty(t, cfg.Webhooks.PostgresURL)

	assert.Equal(t, 5, cfg.Circuit.FailureThreshold)
	assert.Equal(t, 60*time.Second, cfg.Circuit.Timeout)

	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.False(t, cfg.Observability.OTelEnabled)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("SAVEIT_PORT", "8888")
	t.Setenv("SAVEIT_LOG_LEVEL", "debug")
	t.Setenv("SAVEIT_WEBHOOK_MAX_RETRIES", "5")
	t.Setenv("SAVEIT_WEBHOOK_ATTEMPT_TIMEOUT", "10s")
	t.Setenv("SAVEIT_WEBHOOK_RETRY_DELAYS", "1s, 5s,30s")
	t.Setenv("SAVEIT_WEBHOOK_BREAKER_PROTECTION", "false")
	t.Setenv("SAVEIT_CIRCUIT_FAILURE_THRESHOLD", "10")
	t.Setenv("SAVEIT_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8888", cfg.Server.Port)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, 5, cfg.Webhooks.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.Webhooks.AttemptTimeout)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.Webhooks.RetryDelays)
	assert.False(t, cfg.Webhooks.BreakerProtection)
	assert.Equal(t, 10, cfg.Circuit.FailureThreshold)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Webhooks.RedisURL)
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SAVEIT_WEBHOOK_MAX_RETRIES", "not-a-number")
	t.Setenv("SAVEIT_WEBHOOK_ATTEMPT_TIMEOUT", "soon")
	t.Setenv("SAVEIT_WEBHOOK_RETRY_DELAYS", "1s,eventually")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Webhooks.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Webhooks.AttemptTimeout)
	assert.Equal(t, []time.Duration{60 * time.Second, 300 * time.Second, 900 * time.Second}, cfg.Webhooks.RetryDelays)
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadConfig()
		require.NoError(t, err)
		return cfg
	}

	t.Run("ports must differ", func(t *testing.T) {
		cfg := base()
		cfg.Server.HealthPort = cfg.Server.Port
		assert.Error(t, cfg.Validate())
	})

	t.Run("max retries positive", func(t *testing.T) {
		cfg := base()
		cfg.Webhooks.MaxRetries = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("history capacity positive", func(t *testing.T) {
		cfg := base()
		cfg.Webhooks.HistoryCapacity = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("circuit timeout positive", func(t *testing.T) {
		cfg := base()
		cfg.Circuit.Timeout = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("otel endpoint required when enabled", func(t *testing.T) {
		cfg := base()
		cfg.Observability.OTelEnabled = true
		cfg.Observability.OTelEndpoint = ""
		assert.Error(t, cfg.Validate())
	})
}
