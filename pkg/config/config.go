package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Gal07143/Save-It.AI-sub002/pkg/circuit"
	"github.com/Gal07143/Save-It.AI-sub002/pkg/observability"
	"github.com/Gal07143/Save-It.AI-sub002/pkg/webhooks"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Webhook delivery configuration
	Webhooks WebhooksConfig

	// Default circuit breaker configuration
	Circuit circuit.Config

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// WebhooksConfig holds webhook delivery settings
type WebhooksConfig struct {
	MaxRetries      int
	AttemptTimeout  time.Duration
	RetryDelays     []time.Duration
	HistoryCapacity int

	// BreakerProtection wraps each endpoint's deliveries in a circuit
	// breaker
	BreakerProtection bool

	// RedisURL enables the Redis-backed delivery history when set
	RedisURL string

	// PostgresURL enables endpoint persistence when set
	PostgresURL string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Webhooks:      loadWebhooksConfig(),
		Circuit:       loadCircuitConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SAVEIT_HOST", "0.0.0.0"),
		Port:            getEnv("SAVEIT_PORT", "8080"),
		ReadTimeout:     getEnvDuration("SAVEIT_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("SAVEIT_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("SAVEIT_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SAVEIT_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("SAVEIT_HEALTH_PORT", "9090"),
	}
}

// loadWebhooksConfig loads webhook delivery configuration from environment
func loadWebhooksConfig() WebhooksConfig {
	def := webhooks.DefaultEngineConfig()

	cfg := WebhooksConfig{
		MaxRetries:        getEnvInt("SAVEIT_WEBHOOK_MAX_RETRIES", def.MaxRetries),
		AttemptTimeout:    getEnvDuration("SAVEIT_WEBHOOK_ATTEMPT_TIMEOUT", def.AttemptTimeout),
		RetryDelays:       def.RetryDelays,
		HistoryCapacity:   getEnvInt("SAVEIT_WEBHOOK_HISTORY_CAPACITY", webhooks.DefaultHistoryCapacity),
		BreakerProtection: getEnvBool("SAVEIT_WEBHOOK_BREAKER_PROTECTION", true),
		RedisURL:          getEnv("SAVEIT_REDIS_URL", ""),
		PostgresURL:       getEnv("SAVEIT_POSTGRES_URL", ""),
	}

	if delays := getEnv("SAVEIT_WEBHOOK_RETRY_DELAYS", ""); delays != "" {
		if parsed, err := parseDurations(delays); err == nil && len(parsed) > 0 {
			cfg.RetryDelays = parsed
		}
	}

	return cfg
}

// loadCircuitConfig loads default circuit breaker configuration from
// environment
func loadCircuitConfig() circuit.Config {
	def := circuit.DefaultConfig()
	return circuit.Config{
		FailureThreshold: getEnvInt("SAVEIT_CIRCUIT_FAILURE_THRESHOLD", def.FailureThreshold),
		SuccessThreshold: getEnvInt("SAVEIT_CIRCUIT_SUCCESS_THRESHOLD", def.SuccessThreshold),
		Timeout:          getEnvDuration("SAVEIT_CIRCUIT_TIMEOUT", def.Timeout),
		HalfOpenMaxCalls: getEnvInt("SAVEIT_CIRCUIT_HALF_OPEN_MAX_CALLS", def.HalfOpenMaxCalls),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("SAVEIT_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("SAVEIT_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("SAVEIT_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("SAVEIT_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("SAVEIT_OTEL_SERVICE_NAME", "saveit-dispatch"),
		OTelServiceVersion: getEnv("SAVEIT_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("SAVEIT_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Webhooks.MaxRetries < 1 {
		return fmt.Errorf("webhook max retries must be at least 1")
	}
	if c.Webhooks.AttemptTimeout <= 0 {
		return fmt.Errorf("webhook attempt timeout must be positive")
	}
	if c.Webhooks.HistoryCapacity < 1 {
		return fmt.Errorf("webhook history capacity must be at least 1")
	}

	if c.Circuit.FailureThreshold < 1 {
		return fmt.Errorf("circuit failure threshold must be at least 1")
	}
	if c.Circuit.SuccessThreshold < 1 {
		return fmt.Errorf("circuit success threshold must be at least 1")
	}
	if c.Circuit.Timeout <= 0 {
		return fmt.Errorf("circuit timeout must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseDurations parses a comma-separated list of durations, e.g. "60s,5m,15m"
func parseDurations(s string) ([]time.Duration, error) {
	parts := strings.Split(s, ",")
	out := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		d, err := time.ParseDuration(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", p, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
