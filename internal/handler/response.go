package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string                  `json:"error"`
	Details []domain.FieldViolation `json:"details,omitempty"`
}

// MessageResponse acknowledges a mutation
type MessageResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps domain errors to status codes. Anything unrecognised
// is logged and reported as fallback with a 500.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ve.Message, Details: ve.Details})
	case errors.Is(err, domain.ErrLeadNotFound):
		writeError(w, http.StatusNotFound, "Lead not found")
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, domain.ErrEmailTaken):
		writeError(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "Invalid status transition")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, domain.ErrRegistrationDisabled):
		writeError(w, http.StatusForbidden, "Registration is disabled")
	default:
		logger.Error(fallback, slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// decodeJSON reads a JSON body into v, answering 413 or 400 itself on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
