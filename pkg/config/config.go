// Package config loads application configuration from environment
// variables. Every knob has a sane default except the token signing
// secret, which must be provided explicitly.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vantagecrm/vantage/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Redis     RedisConfig
	Storage   StorageConfig
	LogLevel  observability.LogLevel

	// Debug switches error responses to include failure detail. Never
	// enable in production.
	Debug bool
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Addr returns the listen address in host:port form
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// AuthConfig holds token issuance and verification settings
type AuthConfig struct {
	SigningSecret string
	Algorithm     string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// Path prefixes exempt from authentication.
	ExemptPrefixes []string
}

// RateLimitConfig holds request throttling settings
type RateLimitConfig struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
}

// CORSConfig holds cross-origin settings
type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	// Driver is "memory" or "postgres".
	Driver      string
	PostgresURL string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("VANTAGE_HOST", "0.0.0.0"),
			Port:            getEnv("VANTAGE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("VANTAGE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("VANTAGE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("VANTAGE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("VANTAGE_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			SigningSecret:  getEnv("VANTAGE_SIGNING_SECRET", ""),
			Algorithm:      getEnv("VANTAGE_SIGNING_ALGORITHM", "HS256"),
			Issuer:         getEnv("VANTAGE_TOKEN_ISSUER", "vantage"),
			AccessTTL:      getEnvDuration("VANTAGE_ACCESS_TOKEN_TTL", time.Hour),
			RefreshTTL:     getEnvDuration("VANTAGE_REFRESH_TOKEN_TTL", 7*24*time.Hour),
			ExemptPrefixes: getEnvList("VANTAGE_AUTH_EXEMPT_PREFIXES", defaultExemptPrefixes),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getEnvBool("VANTAGE_RATE_LIMIT_ENABLED", true),
			MaxRequests: getEnvInt("VANTAGE_RATE_LIMIT_MAX", 100),
			Window:      getEnvDuration("VANTAGE_RATE_LIMIT_WINDOW", time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getEnvList("VANTAGE_CORS_ORIGINS", []string{"*"}),
			AllowCredentials: getEnvBool("VANTAGE_CORS_CREDENTIALS", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("VANTAGE_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("VANTAGE_REDIS_PASSWORD", ""),
			DB:       getEnvInt("VANTAGE_REDIS_DB", 0),
			PoolSize: getEnvInt("VANTAGE_REDIS_POOL_SIZE", 10),
		},
		Storage: StorageConfig{
			Driver:      getEnv("VANTAGE_STORAGE_DRIVER", "memory"),
			PostgresURL: getEnv("VANTAGE_POSTGRES_URL", ""),
		},
		LogLevel: observability.ParseLogLevel(getEnv("VANTAGE_LOG_LEVEL", "info")),
		Debug:    getEnvBool("VANTAGE_DEBUG", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

var defaultExemptPrefixes = []string{
	"/health",
	"/metrics",
	"/api/v1/auth/login",
	"/api/v1/auth/refresh",
	"/api/v1/auth/password-reset",
}

// Validate checks the configuration for fatal misconfiguration
func (c *Config) Validate() error {
	if c.Auth.SigningSecret == "" {
		return fmt.Errorf("VANTAGE_SIGNING_SECRET is required")
	}
	if len(c.Auth.SigningSecret) < 32 {
		return fmt.Errorf("VANTAGE_SIGNING_SECRET must be at least 32 bytes, got %d", len(c.Auth.SigningSecret))
	}
	switch c.Auth.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("invalid signing algorithm: %s (must be HS256, HS384 or HS512)", c.Auth.Algorithm)
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxRequests <= 0 {
			return fmt.Errorf("VANTAGE_RATE_LIMIT_MAX must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("VANTAGE_RATE_LIMIT_WINDOW must be positive")
		}
	}
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("VANTAGE_POSTGRES_URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s (must be memory or postgres)", c.Storage.Driver)
	}
	return nil
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
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated environment variable, trimming
// whitespace around each entry
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
