package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
	"github.com/aryan0dhankhar/leadintake/internal/featureflags"
	"github.com/aryan0dhankhar/leadintake/internal/handler"
	"github.com/aryan0dhankhar/leadintake/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/leadintake/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/leadintake/internal/observability/tracing"
	"github.com/aryan0dhankhar/leadintake/internal/repository"
	"github.com/aryan0dhankhar/leadintake/internal/security"
	"github.com/aryan0dhankhar/leadintake/internal/security/audit"
	"github.com/aryan0dhankhar/leadintake/internal/security/auth"
	"github.com/aryan0dhankhar/leadintake/internal/security/ratelimit"
	"github.com/aryan0dhankhar/leadintake/internal/service"
	"github.com/aryan0dhankhar/leadintake/pkg/config"
	"github.com/aryan0dhankhar/leadintake/pkg/database"
)

// authAttemptsPerWindow bounds register and login attempts per client IP
const authAttemptsPerWindow = 10

// stores bundles the repositories chosen by STORE_BACKEND
type stores struct {
	leads  domain.LeadRepository
	users  domain.UserRepository
	checks map[string]handler.Checker
	close  func()
}

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting lead intake server",
		slog.String("environment", cfg.Environment),
		slog.String("store", cfg.StoreBackend),
		slog.Any("feature_flags", featureflags.Active()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing is a no-op unless OTEL_EXPORTER_OTLP_ENDPOINT is set
	shutdownTracing, err := tracing.Init(ctx, log, "leadintake", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Initialize repositories
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer st.close()

	// 5. Initialize services
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "leadintake")
	authService := service.NewAuthService(st.users, tokenManager, service.AuthConfig{
		TokenTTL:   cfg.TokenTTL,
		BcryptCost: cfg.BcryptCost,
	}, log)
	leadService := service.NewLeadService(st.leads, nil, log)

	if cfg.AdminEmail != "" {
		if err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Error("failed to seed admin account", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// 6. Initialize security components
	submitLimiter := ratelimit.NewLimiter(cfg.SubmissionRateLimit, cfg.RateLimitWindow)
	authLimiter := ratelimit.NewLimiter(authAttemptsPerWindow, cfg.RateLimitWindow)
	auditLogger := audit.NewLogger(log)

	// 7. Setup HTTP routes
	router := handler.NewRouter(handler.RouterConfig{
		Leads:              handler.NewLeadHandler(leadService, auditLogger, cfg.MaxRequestBytes, log),
		Auth:               handler.NewAuthHandler(authService, log),
		Health:             handler.NewHealthHandler(st.checks, log),
		Tokens:             tokenManager,
		Authz:              security.NewAuthorizationService(log),
		Audit:              auditLogger,
		SubmitLimiter:      submitLimiter,
		AuthLimiter:        authLimiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             log,
	})

	// 8. Start HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.Int("submission_rate_limit", cfg.SubmissionRateLimit),
		slog.Duration("rate_limit_window", cfg.RateLimitWindow),
		slog.Int64("max_request_bytes", cfg.MaxRequestBytes),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-sigChan:
		log.Info("shutdown signal received")
	case err := <-serverErr:
		log.Error("server error", slog.String("error", err.Error()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	submitLimiter.Stop()
	authLimiter.Stop()
	log.Info("server stopped")
}

// openStores builds the lead and user repositories for cfg.StoreBackend.
// The redis backend keeps operator accounts in the users file.
func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory:
		log.Warn("using in-memory store; leads are lost on restart")
		return &stores{
			leads:  repository.NewMemoryLeadRepository(),
			users:  repository.NewMemoryUserRepository(),
			checks: map[string]handler.Checker{},
			close:  func() {},
		}, nil

	case config.StoreRedis:
		redisClient, err := redis.NewClient(cfg.RedisURL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return &stores{
			leads:  repository.NewRedisLeadRepository(redisClient, log),
			users:  repository.NewFileUserRepository(cfg.UsersFile, log),
			checks: map[string]handler.Checker{"redis": redisClient.Ping},
			close: func() {
				if err := redisClient.Close(); err != nil {
					log.Warn("failed to close redis client", slog.String("error", err.Error()))
				}
			},
		}, nil

	case config.StorePostgres:
		dbCfg := database.DefaultConfig()
		dbCfg.URL = cfg.Database.URL
		dbCfg.Host = cfg.Database.Host
		dbCfg.Port = cfg.Database.Port
		dbCfg.User = cfg.Database.User
		dbCfg.Password = cfg.Database.Password
		dbCfg.Database = cfg.Database.Name
		dbCfg.SSLMode = cfg.Database.SSLMode

		pool, err := database.NewConnectionPool(ctx, dbCfg, log)
		if err != nil {
			return nil, err
		}
		if err := repository.EnsureSchema(ctx, pool.GetDB()); err != nil {
			_ = pool.Close()
			return nil, err
		}
		return &stores{
			leads:  repository.NewPostgresLeadRepository(pool.GetDB(), log),
			users:  repository.NewPostgresUserRepository(pool.GetDB(), log),
			checks: map[string]handler.Checker{"postgres": pool.Health},
			close: func() {
				if err := pool.Close(); err != nil {
					log.Warn("failed to close database", slog.String("error", err.Error()))
				}
			},
		}, nil

	default:
		leads := repository.NewFileLeadRepository(cfg.LeadsFile, log)
		return &stores{
			leads: leads,
			users: repository.NewFileUserRepository(cfg.UsersFile, log),
			checks: map[string]handler.Checker{
				"leads_file": func(ctx context.Context) error {
					_, err := leads.ListAll(ctx)
					return err
				},
			},
			close: func() {},
		}, nil
	}
}
