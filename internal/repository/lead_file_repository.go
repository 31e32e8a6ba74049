package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
)

// FileLeadRepository implements domain.LeadRepository on a JSON file
type FileLeadRepository struct {
	doc    *jsonDocument[domain.Lead]
	logger *slog.Logger
}

// NewFileLeadRepository creates a lead repository backed by path
func NewFileLeadRepository(path string, logger *slog.Logger) *FileLeadRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &FileLeadRepository{
		doc:    newJSONDocument[domain.Lead](path),
		logger: logger,
	}
}

// Append stores a new pending lead
func (r *FileLeadRepository) Append(ctx context.Context, draft domain.LeadDraft) (*domain.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lead := newLeadRecord(draft)
	err := r.doc.update(func(leads []domain.Lead) ([]domain.Lead, error) {
		return append(leads, *lead), nil
	})
	if err != nil {
		r.logger.Error("failed to append lead",
			slog.String("lead_id", lead.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to append lead: %w", err)
	}

	r.logger.Debug("lead appended", slog.String("lead_id", lead.ID))
	return lead, nil
}

// ListAll returns every lead in insertion order
func (r *FileLeadRepository) ListAll(ctx context.Context) ([]domain.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	leads, err := r.doc.load()
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

// FindByID retrieves a lead by ID
func (r *FileLeadRepository) FindByID(ctx context.Context, id string) (*domain.Lead, error) {
	leads, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	i := indexOfLead(leads, id)
	if i < 0 {
		return nil, domain.ErrLeadNotFound
	}
	return &leads[i], nil
}

// DeleteByID removes a lead. Unknown ids leave the file untouched.
func (r *FileLeadRepository) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.doc.update(func(leads []domain.Lead) ([]domain.Lead, error) {
		i := indexOfLead(leads, id)
		if i < 0 {
			return nil, errUnchanged
		}
		return append(leads[:i], leads[i+1:]...), nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	return nil
}

// SetStatus overwrites the status of an existing lead
func (r *FileLeadRepository) SetStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.doc.update(func(leads []domain.Lead) ([]domain.Lead, error) {
		i := indexOfLead(leads, id)
		if i < 0 {
			return nil, domain.ErrLeadNotFound
		}
		leads[i].Status = status
		leads[i].UpdatedAt = time.Now().UTC()
		return leads, nil
	})
	if err != nil {
		return fmt.Errorf("failed to set lead status: %w", err)
	}
	return nil
}
