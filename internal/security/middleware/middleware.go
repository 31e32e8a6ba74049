package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/aryan0dhankhar/leadintake/internal/observability/metrics"
	"github.com/aryan0dhankhar/leadintake/internal/security"
	"github.com/aryan0dhankhar/leadintake/internal/security/audit"
	"github.com/aryan0dhankhar/leadintake/internal/security/auth"
	"github.com/aryan0dhankhar/leadintake/internal/security/ratelimit"
)

type ClaimsContextKey struct{}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}

// JWTMiddleware requires a valid bearer token and stores its claims in the request context
func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				log.Debug("rejected token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission rejects callers whose role lacks perm. Must run after JWTMiddleware.
func RequirePermission(authz *security.AuthorizationService, perm security.Permission, auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			if err := authz.ValidatePermission(security.Role(claims.Role), perm); err != nil {
				auditLog.LogDenied(r.Context(), claims.UserID, string(perm))
				writeJSONError(w, http.StatusForbidden, "Forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware limits requests per client IP. route labels the rejection metric.
// A nil limiter disables limiting.
func RateLimitMiddleware(limiter *ratelimit.Limiter, route string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			ok, wait := limiter.Reserve(ip)
			if !ok {
				metrics.ObserveRateLimited(route)
				log.Warn("rate limit exceeded",
					slog.String("route", route),
					slog.String("client_ip", ip),
					slog.Duration("retry_after", wait),
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeJSONError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr; chi's RealIP runs earlier and
// rewrites RemoteAddr from proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(ClaimsContextKey{}).(*auth.Claims); ok {
		return c
	}
	return nil
}

// WithClaims returns a context carrying claims, as JWTMiddleware would
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey{}, claims)
}
