package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	_ "github.com/lib/pq"

	"github.com/aryan0dhankhar/leadintake/internal/reliability/retry"
)

const (
	pingTimeout   = 3 * time.Second
	startupPings  = 5
	startupWait   = 500 * time.Millisecond
	startupMaxGap = 5 * time.Second
)

// Config holds database configuration. URL, when set, is used as the
// connection string instead of the individual fields.
type Config struct {
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns the local development settings
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            5432,
		User:            "leadintake",
		Password:        "dev",
		Database:        "leadintake",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// ConnString returns the lib/pq connection string
func (c *Config) ConnString() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// target describes the server for logs without leaking credentials
func (c *Config) target() string {
	if c.URL == "" {
		return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Database)
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return "unparseable url"
	}
	return u.Host + u.Path
}

// ConnectionPool wraps the shared *sql.DB
type ConnectionPool struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewConnectionPool opens the pool and waits for the server to answer a ping.
// Postgres often starts alongside the service, so the first pings are retried.
func NewConnectionPool(ctx context.Context, cfg *Config, logger *slog.Logger) (*ConnectionPool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	db, err := sql.Open("postgres", cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(orDefault(cfg.MaxOpenConns, 10))
	db.SetMaxIdleConns(orDefault(cfg.MaxIdleConns, 5))
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pool := &ConnectionPool{db: db, logger: logger}

	backoff := &retry.Config{
		MaxAttempts:       startupPings,
		InitialBackoff:    startupWait,
		MaxBackoff:        startupMaxGap,
		BackoffMultiplier: 2,
	}
	if _, err := retry.Do(ctx, backoff, logger, "postgres_ping", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, pool.Health(ctx)
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database at %s: %w", cfg.target(), err)
	}

	logger.Info("database connected", slog.String("target", cfg.target()))
	return pool, nil
}

// GetDB returns the underlying pool
func (cp *ConnectionPool) GetDB() *sql.DB {
	return cp.db
}

// Health pings the server with a short deadline
func (cp *ConnectionPool) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return cp.db.PingContext(ctx)
}

func (cp *ConnectionPool) Close() error {
	if cp.db == nil {
		return nil
	}
	return cp.db.Close()
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
