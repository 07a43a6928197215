package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Execution modes.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// DefaultBlockfrostURL is the mainnet endpoint of the block-data provider.
const DefaultBlockfrostURL = "https://cardano-mainnet.blockfrost.io/api/v0"

var networkURLs = map[string]string{
	"mainnet": DefaultBlockfrostURL,
	"preprod": "https://cardano-preprod.blockfrost.io/api/v0",
	"preview": "https://cardano-preview.blockfrost.io/api/v0",
}

// Config holds all application configuration loaded from environment variables.
// It is built once at startup and passed to constructors; nothing mutates it
// afterwards.
type Config struct {
	// Server configuration
	ServerAddr         string
	LogLevel           string
	Env                string
	CORSAllowedOrigins []string

	// Provider configuration
	BlockfrostProjectID string
	BlockfrostURL       string
	Network             string

	// Request handling
	RequestTimeout     time.Duration
	UpstreamTimeout    time.Duration
	UpstreamRPS        int
	BlockTxConcurrency int
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Execution mode drives the default log level
	cfg.Env = getEnvOrDefault("APP_ENV", EnvDevelopment)
	if cfg.Env != EnvDevelopment && cfg.Env != EnvProduction {
		errs = append(errs, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, cfg.Env))
	}

	defaultLevel := "debug"
	if cfg.Env == EnvProduction {
		defaultLevel = "info"
	}
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", defaultLevel)
	cfg.CORSAllowedOrigins = splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	// Provider configuration
	cfg.BlockfrostProjectID = os.Getenv("BLOCKFROST_PROJECT_ID")
	if cfg.BlockfrostProjectID == "" {
		errs = append(errs, fmt.Errorf("BLOCKFROST_PROJECT_ID is required"))
	}

	cfg.Network = getEnvOrDefault("CARDANO_NETWORK", "mainnet")
	networkURL, ok := networkURLs[cfg.Network]
	if !ok {
		errs = append(errs, fmt.Errorf("CARDANO_NETWORK must be one of mainnet, preprod, preview, got %q", cfg.Network))
	}
	cfg.BlockfrostURL = strings.TrimRight(getEnvOrDefault("BLOCKFROST_URL", networkURL), "/")

	// Request handling
	requestTimeout, err := parseDuration("REQUEST_TIMEOUT", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.RequestTimeout = requestTimeout
	}

	upstreamTimeout, err := parseDuration("UPSTREAM_TIMEOUT", "20s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.UpstreamTimeout = upstreamTimeout
	}

	rps, err := parseInt("UPSTREAM_RPS", 10)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.UpstreamRPS = rps
	}

	concurrency, err := parseInt("BLOCK_TX_CONCURRENCY", 10)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.BlockTxConcurrency = concurrency
	}

	if len(errs) == 0 {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.BlockfrostProjectID == "" {
		errs = append(errs, fmt.Errorf("BlockfrostProjectID is required"))
	}

	if c.BlockfrostURL == "" {
		errs = append(errs, fmt.Errorf("BlockfrostURL is required"))
	}

	if _, ok := networkURLs[c.Network]; !ok {
		errs = append(errs, fmt.Errorf("Network %q is not supported", c.Network))
	}

	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("RequestTimeout must be positive"))
	}

	if c.UpstreamTimeout < 0 {
		errs = append(errs, fmt.Errorf("UpstreamTimeout cannot be negative"))
	}

	if c.UpstreamRPS < 0 {
		errs = append(errs, fmt.Errorf("UpstreamRPS cannot be negative"))
	}

	if c.BlockTxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("BlockTxConcurrency must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// IsProduction reports whether error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
