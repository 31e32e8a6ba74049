package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends selectable with STORE_BACKEND
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	CORSAllowedOrigins []string

	StoreBackend string
	LeadsFile    string
	UsersFile    string
	RedisURL     string
	Database     DatabaseConfig

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	SubmissionRateLimit int
	RateLimitWindow     time.Duration
	MaxRequestBytes     int64

	AdminEmail    string
	AdminPassword string

	ShutdownTimeout time.Duration
}

// DatabaseConfig describes the postgres connection used by the postgres backend.
// URL wins over the individual fields when set.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; real env vars take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	tokenTTL, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	bcryptCost, err := strconv.Atoi(getEnv("BCRYPT_COST", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("SUBMISSION_RATE_LIMIT", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid SUBMISSION_RATE_LIMIT: %w", err)
	}

	rateWindow, err := time.ParseDuration(getEnv("RATE_LIMIT_WINDOW", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}

	maxBytes, err := strconv.ParseInt(getEnv("MAX_REQUEST_BYTES", "10485760"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_REQUEST_BYTES: %w", err)
	}

	shutdownTimeout, err := time.ParseDuration(getEnv("SHUTDOWN_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),

		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", StoreFile)),
		LeadsFile:    getEnv("LEADS_FILE", "data/fake-db.json"),
		UsersFile:    getEnv("USERS_FILE", "data/users-db.json"),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "leadintake"),
			Password: getEnv("DB_PASSWORD", "dev"),
			Name:     getEnv("DB_NAME", "leadintake"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:   tokenTTL,
		BcryptCost: bcryptCost,

		SubmissionRateLimit: rateLimit,
		RateLimitWindow:     rateWindow,
		MaxRequestBytes:     maxBytes,

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		ShutdownTimeout: shutdownTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreFile, StoreMemory, StoreRedis, StorePostgres:
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q: want file, memory, redis or postgres", c.StoreBackend)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("invalid TOKEN_TTL: must be positive")
	}
	if c.MaxRequestBytes <= 0 {
		return fmt.Errorf("invalid MAX_REQUEST_BYTES: must be positive")
	}
	if c.Environment == "production" && c.JWTSecret == "dev-secret-change-me" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
