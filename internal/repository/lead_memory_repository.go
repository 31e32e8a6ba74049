package repository

import (
	"context"
	"sync"
	"time"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
)

// MemoryLeadRepository keeps leads in process memory
type MemoryLeadRepository struct {
	mu    sync.RWMutex
	leads []domain.Lead
}

func NewMemoryLeadRepository() *MemoryLeadRepository {
	return &MemoryLeadRepository{}
}

func (r *MemoryLeadRepository) Append(ctx context.Context, draft domain.LeadDraft) (*domain.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lead := newLeadRecord(draft)

	r.mu.Lock()
	r.leads = append(r.leads, cloneLead(*lead))
	r.mu.Unlock()

	return lead, nil
}

func (r *MemoryLeadRepository) ListAll(ctx context.Context) ([]domain.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneLeads(r.leads), nil
}

func (r *MemoryLeadRepository) FindByID(ctx context.Context, id string) (*domain.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	i := indexOfLead(r.leads, id)
	if i < 0 {
		return nil, domain.ErrLeadNotFound
	}
	lead := cloneLead(r.leads[i])
	return &lead, nil
}

func (r *MemoryLeadRepository) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if i := indexOfLead(r.leads, id); i >= 0 {
		r.leads = append(r.leads[:i], r.leads[i+1:]...)
	}
	return nil
}

func (r *MemoryLeadRepository) SetStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := indexOfLead(r.leads, id)
	if i < 0 {
		return domain.ErrLeadNotFound
	}
	r.leads[i].Status = status
	r.leads[i].UpdatedAt = time.Now().UTC()
	return nil
}
