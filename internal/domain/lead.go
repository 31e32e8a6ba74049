package domain

import (
	"context"
	"time"
)

// LeadStatus is the lifecycle marker on a lead
type LeadStatus string

const (
	LeadStatusPending    LeadStatus = "PENDING"
	LeadStatusReachedOut LeadStatus = "REACHED_OUT"
)

// Valid reports whether s is one of the defined lead states
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusPending, LeadStatusReachedOut:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a lead in state s may move to next.
// Re-applying the current state is allowed and treated as a no-op.
func (s LeadStatus) CanTransitionTo(next LeadStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	return s == LeadStatusPending && next == LeadStatusReachedOut
}

// ResumeFile describes an uploaded resume. Only metadata is kept; the bytes are not persisted.
type ResumeFile struct {
	FileName    string `json:"fileName"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// Lead is one submitted inquiry
type Lead struct {
	ID              string      `json:"id"`
	FirstName       string      `json:"firstName"`
	LastName        string      `json:"lastName"`
	Email           string      `json:"email"`
	LinkedInProfile string      `json:"linkedinProfile"`
	VisasOfInterest []string    `json:"visasOfInterest"`
	Resume          *ResumeFile `json:"resume,omitempty"`
	AdditionalInfo  string      `json:"additionalInfo"`
	Status          LeadStatus  `json:"status"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// LeadDraft is a validated submission that has not been stored yet
type LeadDraft struct {
	FirstName       string
	LastName        string
	Email           string
	LinkedInProfile string
	VisasOfInterest []string
	Resume          ResumeFile
	AdditionalInfo  string
}

// NewLead builds a pending lead from a draft. The caller supplies the id and clock.
func NewLead(id string, draft LeadDraft, now time.Time) *Lead {
	visas := make([]string, len(draft.VisasOfInterest))
	copy(visas, draft.VisasOfInterest)
	resume := draft.Resume

	return &Lead{
		ID:              id,
		FirstName:       draft.FirstName,
		LastName:        draft.LastName,
		Email:           draft.Email,
		LinkedInProfile: draft.LinkedInProfile,
		VisasOfInterest: visas,
		Resume:          &resume,
		AdditionalInfo:  draft.AdditionalInfo,
		Status:          LeadStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// LeadRepository defines data access for leads
type LeadRepository interface {
	// Append assigns a fresh id, PENDING status and timestamps, then persists the lead.
	Append(ctx context.Context, draft LeadDraft) (*Lead, error)
	// ListAll returns every lead in insertion order.
	ListAll(ctx context.Context) ([]Lead, error)
	FindByID(ctx context.Context, id string) (*Lead, error)
	// DeleteByID removes the lead if present. Unknown ids are not an error.
	DeleteByID(ctx context.Context, id string) error
	// SetStatus overwrites the status and refreshes UpdatedAt, or returns ErrLeadNotFound.
	SetStatus(ctx context.Context, id string, status LeadStatus) error
}
