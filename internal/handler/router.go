package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/leadintake/internal/observability/metrics"
	"github.com/aryan0dhankhar/leadintake/internal/security"
	"github.com/aryan0dhankhar/leadintake/internal/security/audit"
	"github.com/aryan0dhankhar/leadintake/internal/security/auth"
	"github.com/aryan0dhankhar/leadintake/internal/security/middleware"
	"github.com/aryan0dhankhar/leadintake/internal/security/ratelimit"
)

// RouterConfig collects everything the HTTP surface is built from
type RouterConfig struct {
	Leads  *LeadHandler
	Auth   *AuthHandler
	Health *HealthHandler

	Tokens *auth.TokenManager
	Authz  *security.AuthorizationService
	Audit  *audit.Logger

	// SubmitLimiter guards the public lead form, AuthLimiter register and login
	SubmitLimiter *ratelimit.Limiter
	AuthLimiter   *ratelimit.Limiter

	CORSAllowedOrigins []string
	Logger             *slog.Logger
}

// NewRouter wires routes and middleware
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NewLogger(log)
	}
	if cfg.Authz == nil {
		cfg.Authz = security.NewAuthorizationService(log)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(metrics.HTTPMetricsMiddleware)
	r.Use(middleware.SanitizeInputs(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", cfg.Health.Health)
	r.Get("/readyz", cfg.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// public lead form
		r.With(middleware.RateLimitMiddleware(cfg.SubmitLimiter, "create_lead", log)).
			Post("/leads", cfg.Leads.Create)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitMiddleware(cfg.AuthLimiter, "auth", log))
			r.Use(middleware.ValidateJSONContentType(log))
			r.Post("/auth/register", cfg.Auth.Register)
			r.Post("/auth/login", cfg.Auth.Login)
		})

		// operator routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTMiddleware(cfg.Tokens, log))
			r.Use(middleware.ValidateJSONContentType(log))

			r.With(middleware.RequirePermission(cfg.Authz, security.PermListLeads, cfg.Audit)).
				Get("/leads", cfg.Leads.List)
			r.With(middleware.RequirePermission(cfg.Authz, security.PermDeleteLead, cfg.Audit)).
				Delete("/leads", cfg.Leads.Delete)
			r.With(middleware.RequirePermission(cfg.Authz, security.PermUpdateLeadStatus, cfg.Audit)).
				Patch("/leads", cfg.Leads.UpdateStatus)

			r.With(middleware.RequirePermission(cfg.Authz, security.PermManageUsers, cfg.Audit)).
				Get("/users", cfg.Auth.ListUsers)

			r.Get("/auth/me", cfg.Auth.Me)
			r.Post("/auth/change-password", cfg.Auth.ChangePassword)
		})
	})

	return otelhttp.NewHandler(r, "leadintake")
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			log.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}
