package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port string
	Env  string

	// Database configuration
	DatabaseURL string

	// Redis configuration (optional; enables the shared FX rate cache)
	RedisURL      string
	RedisPassword string

	// Ledger provider configuration
	ProviderBaseURL string

	// FX configuration
	FxBaseURL         string
	ReportingCurrency string
	FxRateTTL         time.Duration

	// Ingest configuration
	IngestConcurrency int
	RequestTimeout    time.Duration

	// Snapshot job configuration
	SnapshotInterval time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RedisURL:          getEnv("REDIS_URL", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		ProviderBaseURL:   getEnv("PROVIDER_BASE_URL", ""),
		FxBaseURL:         getEnv("FX_BASE_URL", ""),
		ReportingCurrency: getEnv("REPORTING_CURRENCY", "EUR"),
		FxRateTTL:         getEnvAsDuration("FX_RATE_TTL", 24*time.Hour),
		IngestConcurrency: getEnvAsInt("INGEST_CONCURRENCY", 3),
		RequestTimeout:    getEnvAsDuration("REQUEST_TIMEOUT", 60*time.Second),
		SnapshotInterval:  getEnvAsDuration("SNAPSHOT_INTERVAL", 24*time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if len(c.ReportingCurrency) != 3 {
		return fmt.Errorf("REPORTING_CURRENCY must be a 3-letter ISO code")
	}

	if c.IngestConcurrency < 1 {
		return fmt.Errorf("INGEST_CONCURRENCY must be at least 1")
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

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
