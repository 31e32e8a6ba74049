package leadclient

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
)

// LeadAPI is the subset of Client a LeadList needs
type LeadAPI interface {
	ListLeads(ctx context.Context) ([]domain.Lead, error)
	DeleteLead(ctx context.Context, id string) error
	UpdateLeadStatus(ctx context.Context, id string, status domain.LeadStatus) error
}

// Phase tells a still-loading list apart from an empty or failed one
type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseEmpty   Phase = "empty"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

// State is a consistent snapshot of a LeadList.
// On PhaseFailed, Leads holds whatever was cached before the failure.
type State struct {
	Phase Phase
	Leads []domain.Lead
	Err   error
}

// LeadList caches the lead collection for an operator view. The cache is kept
// until Refresh is called; nothing revalidates it in the background.
type LeadList struct {
	api    LeadAPI
	logger *slog.Logger

	mu       sync.Mutex
	leads    []domain.Lead
	loaded   bool
	fetching int // fetches in flight
	err      error
	pager    pager
}

// NewLeadList creates an empty, not yet loaded list
func NewLeadList(api LeadAPI, logger *slog.Logger) *LeadList {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeadList{
		api:    api,
		logger: logger,
		pager:  newPager(),
	}
}

// Load fetches the collection unless it has already been loaded
func (l *LeadList) Load(ctx context.Context) error {
	l.mu.Lock()
	loaded := l.loaded
	l.mu.Unlock()
	if loaded {
		return nil
	}
	return l.Refresh(ctx)
}

// Refresh re-fetches the collection and replaces the cache. A failed fetch
// keeps the previous rows.
func (l *LeadList) Refresh(ctx context.Context) error {
	l.mu.Lock()
	l.fetching++
	l.mu.Unlock()

	leads, err := l.api.ListLeads(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.fetching--

	if err != nil {
		l.err = err
		l.logger.Warn("failed to load leads", slog.String("error", err.Error()))
		return err
	}

	l.leads = cloneLeads(leads)
	l.loaded = true
	l.err = nil
	l.pager.clamp(len(l.leads))
	return nil
}

// State returns a snapshot of the list. A list with nothing cached reports
// PhaseLoading while a fetch is running, even after an earlier failure.
func (l *LeadList) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := State{Leads: cloneLeads(l.leads), Err: l.err}
	switch {
	case !l.loaded && l.fetching > 0:
		s.Phase = PhaseLoading
		s.Err = nil
	case l.err != nil:
		s.Phase = PhaseFailed
	case !l.loaded:
		s.Phase = PhaseLoading
	case len(l.leads) == 0:
		s.Phase = PhaseEmpty
	default:
		s.Phase = PhaseReady
	}
	return s
}

// Delete removes the lead from the cache right away and then from the server.
// If the server call fails the row is put back where it was.
func (l *LeadList) Delete(ctx context.Context, id string) error {
	rollback := l.apply(func() func() {
		idx := l.indexOf(id)
		if idx < 0 {
			return nil
		}
		removed := l.leads[idx]
		l.leads = append(l.leads[:idx], l.leads[idx+1:]...)

		return func() {
			if l.indexOf(id) >= 0 {
				return
			}
			at := min(idx, len(l.leads))
			l.leads = append(l.leads, domain.Lead{})
			copy(l.leads[at+1:], l.leads[at:])
			l.leads[at] = removed
		}
	})

	if err := l.api.DeleteLead(ctx, id); err != nil {
		l.logger.Warn("delete failed, restoring lead",
			slog.String("lead_id", id),
			slog.String("error", err.Error()),
		)
		l.apply(func() func() {
			rollback()
			return nil
		})
		return err
	}
	return nil
}

// MarkReachedOut flips the cached status to REACHED_OUT and then updates the
// server. If the server call fails the previous status is restored.
func (l *LeadList) MarkReachedOut(ctx context.Context, id string) error {
	rollback := l.apply(func() func() {
		idx := l.indexOf(id)
		if idx < 0 {
			return nil
		}
		prev := l.leads[idx].Status
		l.leads[idx].Status = domain.LeadStatusReachedOut

		return func() {
			if i := l.indexOf(id); i >= 0 {
				l.leads[i].Status = prev
			}
		}
	})

	if err := l.api.UpdateLeadStatus(ctx, id, domain.LeadStatusReachedOut); err != nil {
		l.logger.Warn("status update failed, restoring lead",
			slog.String("lead_id", id),
			slog.String("error", err.Error()),
		)
		l.apply(func() func() {
			rollback()
			return nil
		})
		return err
	}
	return nil
}

// apply runs patch under the lock and returns its compensation, never nil.
// The page index is re-clamped afterwards.
func (l *LeadList) apply(patch func() func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	undo := patch()
	l.pager.clamp(len(l.leads))
	if undo == nil {
		return func() {}
	}
	return undo
}

func (l *LeadList) indexOf(id string) int {
	for i := range l.leads {
		if l.leads[i].ID == id {
			return i
		}
	}
	return -1
}

// SetPageSize changes the page size and returns to the first page
func (l *LeadList) SetPageSize(size int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pager.setSize(size)
}

// SetPage moves to page n, clamped to the available pages
func (l *LeadList) SetPage(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pager.page = n
	l.pager.clamp(len(l.leads))
}

func (l *LeadList) CurrentPage() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pager.page
}

func (l *LeadList) PageSize() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pager.size
}

// Page returns the leads on the current page
func (l *LeadList) Page() []domain.Lead {
	l.mu.Lock()
	defer l.mu.Unlock()
	start, end := l.pager.bounds(len(l.leads))
	return cloneLeads(l.leads[start:end])
}

// PageCount is the number of pages, zero for an empty list
func (l *LeadList) PageCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pager.pageCount(len(l.leads))
}

// PageWindow returns the page indexes a pager control should show
func (l *LeadList) PageWindow() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pager.window(len(l.leads))
}

func cloneLeads(leads []domain.Lead) []domain.Lead {
	out := make([]domain.Lead, len(leads))
	for i, lead := range leads {
		lead.VisasOfInterest = append([]string(nil), lead.VisasOfInterest...)
		if lead.Resume != nil {
			r := *lead.Resume
			lead.Resume = &r
		}
		out[i] = lead
	}
	return out
}
