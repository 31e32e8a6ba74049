package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, userID, action, resource, resourceID, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogDeletion(ctx context.Context, userID, leadID, status string) {
	al.LogAction(ctx, userID, "delete", "lead", leadID, status, "")
}

func (al *Logger) LogStatusChange(ctx context.Context, userID, leadID, newStatus, status string) {
	al.LogAction(ctx, userID, "update_status", "lead", leadID, status, newStatus)
}

func (al *Logger) LogDenied(ctx context.Context, userID, reason string) {
	al.LogAction(ctx, userID, "access_denied", "api", "", "denied", reason)
}
