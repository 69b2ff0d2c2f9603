package configs

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Feed     FeedConfig
	Monitor  MonitorConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// FeedConfig holds price feed configuration
type FeedConfig struct {
	BaseURL string
	Timeout time.Duration
}

// MonitorConfig holds position monitor configuration
type MonitorConfig struct {
	Interval    time.Duration // Polling interval between cycles
	Workers     int           // Bounded parallelism within one cycle
	NotionalUSD float64       // Fixed notional recorded when opening a position
	Leverage    float64
	BackoffMax  time.Duration // Cap on the store-failure backoff
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Feed: FeedConfig{
			BaseURL: getEnv("PRICE_FEED_URL", "https://api.binance.com"),
			Timeout: getEnvDuration("PRICE_FEED_TIMEOUT", 10*time.Second),
		},
		Monitor: MonitorConfig{
			Interval:    getEnvDuration("MONITOR_INTERVAL", 5*time.Second),
			Workers:     getEnvInt("MONITOR_WORKERS", 8),
			NotionalUSD: getEnvFloat("POSITION_NOTIONAL_USD", 1000.0),
			Leverage:    getEnvFloat("POSITION_LEVERAGE", 2.0),
			BackoffMax:  getEnvDuration("MONITOR_BACKOFF_MAX", 2*time.Minute),
		},
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable ("5s", "1m") or returns
// a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
