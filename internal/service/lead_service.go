package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
	"github.com/aryan0dhankhar/leadintake/internal/observability/metrics"
	"github.com/aryan0dhankhar/leadintake/internal/observability/tracing"
	"github.com/aryan0dhankhar/leadintake/internal/validation"
)

// LeadService handles lead intake and operator actions
type LeadService struct {
	repo      domain.LeadRepository
	validator *validation.LeadValidator
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewLeadService creates a new lead service
func NewLeadService(repo domain.LeadRepository, validator *validation.LeadValidator, logger *slog.Logger) *LeadService {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = validation.NewLeadValidator()
	}

	return &LeadService{
		repo:      repo,
		validator: validator,
		tracer:    tracing.Tracer(),
		logger:    logger,
	}
}

// Submit validates a submission and stores it as a new pending lead.
// Invalid input returns a *domain.ValidationError and nothing is written.
func (s *LeadService) Submit(ctx context.Context, in validation.Submission) (*domain.Lead, error) {
	ctx, span := s.tracer.Start(ctx, "LeadService.Submit")
	defer span.End()

	draft, violations := s.validator.Validate(in)
	if len(violations) > 0 {
		metrics.ObserveSubmission(metrics.ResultInvalid)
		span.SetAttributes(attribute.Int("lead.violations", len(violations)))
		return nil, domain.NewValidationError("Invalid form data", violations)
	}

	lead, err := s.repo.Append(ctx, *draft)
	if err != nil {
		metrics.ObserveSubmission(metrics.ResultError)
		recordSpanError(span, err)
		s.logger.Error("failed to store lead", slog.String("error", err.Error()))
		return nil, err
	}

	metrics.ObserveSubmission(metrics.ResultSuccess)
	span.SetAttributes(attribute.String("lead.id", lead.ID))
	s.logger.Info("lead submitted",
		slog.String("lead_id", lead.ID),
		slog.Int("visas", len(lead.VisasOfInterest)),
	)
	return lead, nil
}

// List returns every lead in insertion order
func (s *LeadService) List(ctx context.Context) ([]domain.Lead, error) {
	ctx, span := s.tracer.Start(ctx, "LeadService.List")
	defer span.End()

	leads, err := s.repo.ListAll(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	metrics.SetStored(len(leads))
	span.SetAttributes(attribute.Int("lead.count", len(leads)))
	return leads, nil
}

// Delete removes a lead. Deleting an unknown id succeeds.
func (s *LeadService) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "LeadService.Delete", trace.WithAttributes(attribute.String("lead.id", id)))
	defer span.End()

	if id == "" {
		return domain.NewValidationError("Invalid request", []domain.FieldViolation{{Field: "id", Message: "id is required"}})
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		recordSpanError(span, err)
		return err
	}

	metrics.ObserveDelete()
	s.logger.Info("lead deleted", slog.String("lead_id", id))
	return nil
}

// UpdateStatus moves a lead to status. Only PENDING -> REACHED_OUT changes
// anything; re-applying the current status is a no-op.
func (s *LeadService) UpdateStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	ctx, span := s.tracer.Start(ctx, "LeadService.UpdateStatus", trace.WithAttributes(
		attribute.String("lead.id", id),
		attribute.String("lead.status", string(status)),
	))
	defer span.End()

	var violations []domain.FieldViolation
	if id == "" {
		violations = append(violations, domain.FieldViolation{Field: "id", Message: "id is required"})
	}
	if !status.Valid() {
		violations = append(violations, domain.FieldViolation{Field: "status", Message: "Invalid status"})
	}
	if len(violations) > 0 {
		return domain.NewValidationError("Invalid request", violations)
	}

	lead, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrLeadNotFound) {
			recordSpanError(span, err)
		}
		return err
	}

	if !lead.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, lead.Status, status)
	}
	if lead.Status == status {
		return nil
	}

	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		if !errors.Is(err, domain.ErrLeadNotFound) {
			recordSpanError(span, err)
		}
		return err
	}

	metrics.ObserveStatusUpdate(string(status))
	s.logger.Info("lead status updated",
		slog.String("lead_id", id),
		slog.String("status", string(status)),
	)
	return nil
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
