// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Outbound webhooks
	WebhookSecret string // Default HMAC secret for signing outbound webhooks

	// Billing ingestion
	StripeWebhookSecret string // Signing secret for inbound Stripe events (optional)

	// Tracing
	OTLPEndpoint string // OTLP gRPC endpoint; empty disables tracing

	// Risk scoring
	RiskRecomputeInterval time.Duration // How often the background sweep recomputes stale scores
	SignalWindowDays      int           // How far back signals count toward a risk score
}

// Defaults
const (
	DefaultPort                  = "8080"
	DefaultEnv                   = "development"
	DefaultLogLevel              = "info"
	DefaultRiskRecomputeInterval = 5 * time.Minute
	DefaultSignalWindowDays      = 90
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", DefaultPort),
		Env:                   getEnv("ENV", DefaultEnv),
		LogLevel:              getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:           os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		WebhookSecret:         os.Getenv("WEBHOOK_SECRET"),
		StripeWebhookSecret:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
		OTLPEndpoint:          os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		RiskRecomputeInterval: getEnvDuration("RISK_RECOMPUTE_INTERVAL", DefaultRiskRecomputeInterval),
		SignalWindowDays:      getEnvInt("SIGNAL_WINDOW_DAYS", DefaultSignalWindowDays),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.RiskRecomputeInterval < time.Second {
		return fmt.Errorf("RISK_RECOMPUTE_INTERVAL must be at least 1s, got %s", c.RiskRecomputeInterval)
	}
	if c.SignalWindowDays <= 0 {
		return fmt.Errorf("SIGNAL_WINDOW_DAYS must be positive, got %d", c.SignalWindowDays)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SignalWindow returns the signal look-back window as a duration
func (c *Config) SignalWindow() time.Duration {
	return time.Duration(c.SignalWindowDays) * 24 * time.Hour
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
