// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// knownProviders are the market-data providers that can be configured as
// primary at startup. Further providers can be registered at runtime.
var knownProviders = map[string]bool{
	"mock": true,
	"ibkr": true,
	"saxo": true,
}

// Config holds application configuration
type Config struct {
	DataDir           string // Base directory for databases and backups (always absolute)
	Port              int
	DevMode           bool
	LogLevel          string
	DefaultNAV        float64
	Provider          string // Primary market data provider name
	ToolServersConfig string // Path to the fallback tool-server registry YAML
	IBKR              IBKRConfig
	Saxo              SaxoConfig
	BackupS3Bucket    string // Empty disables the backup job
	FearGreedURL      string
}

// IBKRConfig holds Interactive Brokers TWS/Gateway connection parameters.
type IBKRConfig struct {
	Host     string
	Port     int
	ClientID int
}

// SaxoConfig holds Saxo OpenAPI credentials. Environment is "sim" or "live".
type SaxoConfig struct {
	AccessToken string
	Environment string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Resolve the data directory to an absolute path and ensure it exists.
	dataDir := getEnv("DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:           absDataDir,
		Port:              getEnvAsInt("PORT", 8000),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DefaultNAV:        getEnvAsFloat("DEFAULT_NAV", 100000),
		Provider:          getEnv("MARKET_DATA_PROVIDER", "mock"),
		ToolServersConfig: getEnv("TOOL_SERVERS_CONFIG", "config/tool_servers.yaml"),
		IBKR: IBKRConfig{
			Host:     getEnv("IBKR_HOST", "127.0.0.1"),
			Port:     getEnvAsInt("IBKR_PORT", 7497),
			ClientID: getEnvAsInt("IBKR_CLIENT_ID", 1),
		},
		Saxo: SaxoConfig{
			AccessToken: getEnv("SAXO_ACCESS_TOKEN", ""),
			Environment: getEnv("SAXO_ENVIRONMENT", "sim"),
		},
		BackupS3Bucket: getEnv("BACKUP_S3_BUCKET", ""),
		FearGreedURL:   getEnv("FEAR_GREED_URL", "https://production.dataviz.cnn.io/index/fearandgreed/graphdata"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 1-65535", c.Port)
	}
	if c.DefaultNAV <= 0 {
		return fmt.Errorf("invalid default NAV %g: must be positive", c.DefaultNAV)
	}
	if !knownProviders[c.Provider] {
		return fmt.Errorf("unknown market data provider %q", c.Provider)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
