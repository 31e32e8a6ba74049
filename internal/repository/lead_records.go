package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
)

// newLeadRecord assigns identity and timestamps to a validated draft
func newLeadRecord(draft domain.LeadDraft) *domain.Lead {
	return domain.NewLead(uuid.NewString(), draft, time.Now().UTC())
}

func cloneLead(l domain.Lead) domain.Lead {
	if l.VisasOfInterest != nil {
		visas := make([]string, len(l.VisasOfInterest))
		copy(visas, l.VisasOfInterest)
		l.VisasOfInterest = visas
	}
	if l.Resume != nil {
		resume := *l.Resume
		l.Resume = &resume
	}
	return l
}

func cloneLeads(in []domain.Lead) []domain.Lead {
	out := make([]domain.Lead, len(in))
	for i := range in {
		out[i] = cloneLead(in[i])
	}
	return out
}

func indexOfLead(leads []domain.Lead, id string) int {
	for i := range leads {
		if leads[i].ID == id {
			return i
		}
	}
	return -1
}
