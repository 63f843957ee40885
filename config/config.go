package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// External service configurations
	FMP FMPConfig

	// Cache configuration
	Cache CacheConfig

	// Projection configuration
	Projection ProjectionConfig

	// HTTP configuration
	HTTP HTTPConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// FMPConfig holds Financial Modeling Prep API configuration
type FMPConfig struct {
	APIKey  string
	BaseURL string
}

// CacheConfig holds TTLs for cached market data, in seconds
type CacheConfig struct {
	QuoteTTLSeconds   int
	MetricsTTLSeconds int
	SearchTTLSeconds  int
}

// ProjectionConfig holds projection engine configuration
type ProjectionConfig struct {
	DefaultYears    int
	MaxYears        int
	DefaultDilution float64
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port               string
	CORSAllowedOrigins string
	ReadTimeoutSec     int
	WriteTimeoutSec    int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		FMP: FMPConfig{
			APIKey:  os.Getenv("FMP_API_KEY"),
			BaseURL: getEnvString("FMP_BASE_URL", "https://financialmodelingprep.com/api/v3"),
		},
		Cache: CacheConfig{
			QuoteTTLSeconds:   getEnvInt("CACHE_QUOTE_TTL_SECONDS", 60),
			MetricsTTLSeconds: getEnvInt("CACHE_METRICS_TTL_SECONDS", 3600),
			SearchTTLSeconds:  getEnvInt("CACHE_SEARCH_TTL_SECONDS", 86400),
		},
		Projection: ProjectionConfig{
			DefaultYears:    getEnvInt("PROJECTION_DEFAULT_YEARS", 5),
			MaxYears:        getEnvInt("PROJECTION_MAX_YEARS", 10),
			DefaultDilution: getEnvFloatUnbounded("PROJECTION_DEFAULT_DILUTION", 1.0),
		},
		HTTP: HTTPConfig{
			Port:               getEnvString("PORT", "8080"),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
			ReadTimeoutSec:     getEnvInt("HTTP_READ_TIMEOUT_SEC", 15),
			WriteTimeoutSec:    getEnvInt("HTTP_WRITE_TIMEOUT_SEC", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Projection.DefaultYears <= 0 {
		return fmt.Errorf("PROJECTION_DEFAULT_YEARS must be positive, got %d", c.Projection.DefaultYears)
	}
	if c.Projection.MaxYears < c.Projection.DefaultYears {
		return fmt.Errorf("PROJECTION_MAX_YEARS must be >= PROJECTION_DEFAULT_YEARS, got %d < %d",
			c.Projection.MaxYears, c.Projection.DefaultYears)
	}
	if c.Projection.DefaultDilution < 0 {
		return fmt.Errorf("PROJECTION_DEFAULT_DILUTION must be non-negative, got %.2f", c.Projection.DefaultDilution)
	}
	if c.Cache.QuoteTTLSeconds <= 0 {
		return fmt.Errorf("CACHE_QUOTE_TTL_SECONDS must be positive, got %d", c.Cache.QuoteTTLSeconds)
	}
	if c.Cache.MetricsTTLSeconds <= 0 {
		return fmt.Errorf("CACHE_METRICS_TTL_SECONDS must be positive, got %d", c.Cache.MetricsTTLSeconds)
	}

	return nil
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasFMP returns true if Financial Modeling Prep configuration is available
func (c *Config) HasFMP() bool {
	return c.FMP.APIKey != ""
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatUnbounded(key string, defaultValue float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			URL: "",
		},
		FMP: FMPConfig{
			APIKey:  "",
			BaseURL: "https://financialmodelingprep.com/api/v3",
		},
		Cache: CacheConfig{
			QuoteTTLSeconds:   60,
			MetricsTTLSeconds: 3600,
			SearchTTLSeconds:  86400,
		},
		Projection: ProjectionConfig{
			DefaultYears:    5,
			MaxYears:        10,
			DefaultDilution: 1.0,
		},
		HTTP: HTTPConfig{
			Port:               "8080",
			CORSAllowedOrigins: "*",
			ReadTimeoutSec:     15,
			WriteTimeoutSec:    30,
		},
	}
}
