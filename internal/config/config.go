// Package config handles engine configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all risk engine configuration
type Config struct {
	Env      string // "development", "staging", "production"
	LogLevel string

	// Inference settings
	SeqLen           int     // transaction sequence length fed to the pattern model
	LookbackWindow   int     // most recent transactions considered for graph edges
	AnomalyThreshold float64 // pattern anomaly score above which a sequence is suspicious
	ClusterThreshold float64 // per-wallet risk score above which a wallet joins a suspicious cluster

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint for traces (empty = tracing disabled)
}

// Defaults
const (
	DefaultEnv              = "development"
	DefaultLogLevel         = "info"
	DefaultSeqLen           = 10
	DefaultLookbackWindow   = 1000
	DefaultAnomalyThreshold = 0.5
	DefaultClusterThreshold = 0.7
)

// PatternThresholds maps pattern labels to per-pattern alerting sensitivity.
// A pattern classification only raises an alert when its confidence exceeds
// the threshold for that pattern.
var PatternThresholds = map[string]float64{
	"STRUCTURING":          0.75,
	"RAPID_MOVEMENT":       0.80,
	"MIXING":               0.85,
	"HIGH_VOLUME":          0.70,
	"SANCTION_INTERACTION": 0.95,
}

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Env:              getEnv("ENV", DefaultEnv),
		LogLevel:         getEnv("LOG_LEVEL", DefaultLogLevel),
		SeqLen:           getEnvInt("SEQ_LEN", DefaultSeqLen),
		LookbackWindow:   getEnvInt("LOOKBACK_WINDOW", DefaultLookbackWindow),
		AnomalyThreshold: getEnvFloat("ANOMALY_THRESHOLD", DefaultAnomalyThreshold),
		ClusterThreshold: getEnvFloat("CLUSTER_THRESHOLD", DefaultClusterThreshold),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all configuration values are usable
func (c *Config) Validate() error {
	if c.SeqLen <= 0 {
		return fmt.Errorf("SEQ_LEN must be positive, got %d", c.SeqLen)
	}
	if c.LookbackWindow <= 0 {
		return fmt.Errorf("LOOKBACK_WINDOW must be positive, got %d", c.LookbackWindow)
	}
	if c.AnomalyThreshold < 0 || c.AnomalyThreshold > 1 {
		return fmt.Errorf("ANOMALY_THRESHOLD must be in [0,1], got %g", c.AnomalyThreshold)
	}
	if c.ClusterThreshold < 0 || c.ClusterThreshold > 1 {
		return fmt.Errorf("CLUSTER_THRESHOLD must be in [0,1], got %g", c.ClusterThreshold)
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
