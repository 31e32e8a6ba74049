package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
	"github.com/aryan0dhankhar/leadintake/internal/security/middleware"
	"github.com/aryan0dhankhar/leadintake/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// AuthLoginRequest represents login request
type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest represents change password request
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// UserResponse wraps the current user
type UserResponse struct {
	User domain.PublicUser `json:"user"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.Register(r.Context(), req)
	if err != nil {
		h.logger.Info("registration failed", slog.String("error", err.Error()))
		writeServiceError(w, h.logger, err, "Failed to register user")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req AuthLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.authService.Me(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: *user})
}

// ListUsers handles GET /api/users
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.authService.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	// Get user ID from JWT claims via middleware
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.ChangePassword(r.Context(), claims.UserID, req.OldPassword, req.NewPassword); err != nil {
		writeServiceError(w, h.logger, err, "Failed to change password")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}
