package leadclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeAPI struct {
	mu        sync.Mutex
	leads     []domain.Lead
	listCalls int
	listErr   error
	mutateErr error

	// when set, ListLeads signals started and waits for release before answering
	started chan struct{}
	release chan struct{}
}

func (f *fakeAPI) ListLeads(ctx context.Context) ([]domain.Lead, error) {
	if f.release != nil {
		f.started <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return cloneLeads(f.leads), nil
}

func (f *fakeAPI) DeleteLead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return f.mutateErr
	}
	for i := range f.leads {
		if f.leads[i].ID == id {
			f.leads = append(f.leads[:i], f.leads[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeAPI) UpdateLeadStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mutateErr != nil {
		return f.mutateErr
	}
	for i := range f.leads {
		if f.leads[i].ID == id {
			f.leads[i].Status = status
			return nil
		}
	}
	return &APIError{StatusCode: 404, Message: "Lead not found"}
}

func seedLeads(n int) []domain.Lead {
	leads := make([]domain.Lead, n)
	for i := range leads {
		leads[i] = domain.Lead{
			ID:              fmt.Sprintf("lead-%02d", i),
			FirstName:       fmt.Sprintf("First%d", i),
			VisasOfInterest: []string{"Work Visa"},
			Status:          domain.LeadStatusPending,
		}
	}
	return leads
}

func ids(leads []domain.Lead) []string {
	out := make([]string, len(leads))
	for i, l := range leads {
		out[i] = l.ID
	}
	return out
}

func TestLeadListPhases(t *testing.T) {
	api := &fakeAPI{}
	list := NewLeadList(api, quiet)
	assert.Equal(t, PhaseLoading, list.State().Phase)

	require.NoError(t, list.Load(context.Background()))
	assert.Equal(t, PhaseEmpty, list.State().Phase)

	api.leads = seedLeads(2)
	require.NoError(t, list.Refresh(context.Background()))
	state := list.State()
	assert.Equal(t, PhaseReady, state.Phase)
	assert.Len(t, state.Leads, 2)

	api.listErr = errors.New("network down")
	require.Error(t, list.Refresh(context.Background()))
	state = list.State()
	assert.Equal(t, PhaseFailed, state.Phase)
	assert.Len(t, state.Leads, 2, "stale rows are kept after a failed refresh")
	assert.EqualError(t, state.Err, "network down")
}

func TestLeadListFailedFirstLoad(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("boom")}
	list := NewLeadList(api, quiet)

	require.Error(t, list.Load(context.Background()))
	state := list.State()
	assert.Equal(t, PhaseFailed, state.Phase)
	assert.Empty(t, state.Leads)
}

func TestLeadListLoadFetchesOnce(t *testing.T) {
	api := &fakeAPI{leads: seedLeads(3)}
	list := NewLeadList(api, quiet)

	require.NoError(t, list.Load(context.Background()))
	api.leads = seedLeads(7)
	require.NoError(t, list.Load(context.Background()))

	assert.Equal(t, 1, api.listCalls)
	assert.Len(t, list.State().Leads, 3)

	require.NoError(t, list.Refresh(context.Background()))
	assert.Equal(t, 2, api.listCalls)
	assert.Len(t, list.State().Leads, 7)
}

func TestLeadListStateIsSnapshot(t *testing.T) {
	api := &fakeAPI{leads: seedLeads(1)}
	list := NewLeadList(api, quiet)
	require.NoError(t, list.Load(context.Background()))

	state := list.State()
	state.Leads[0].Status = domain.LeadStatusReachedOut
	state.Leads[0].VisasOfInterest[0] = "changed"

	fresh := list.State()
	assert.Equal(t, domain.LeadStatusPending, fresh.Leads[0].Status)
	assert.Equal(t, "Work Visa", fresh.Leads[0].VisasOfInterest[0])
}

func TestLeadListOptimisticDelete(t *testing.T) {
	api := &fakeAPI{leads: seedLeads(3)}
	list := NewLeadList(api, quiet)
	require.NoError(t, list.Load(context.Background()))

	require.NoError(t, list.Delete(context.Background(), "lead-01"))
	assert.Equal(t, []string{"lead-00", "lead-02"}, ids(list.State().Leads))
	assert.Len(t, api.leads, 2)
}

func TestLeadListDeleteRollsBack(t *testing.T) {
	api := &fakeAPI{leads: seedLeads(3), mutateErr: &APIError{StatusCode: 500, Message: "Failed to delete lead"}}
	list := NewLeadList(api, quiet)
	require.NoError(t, list.Load(context.Background()))

	err := list.Delete(context.Background(), "lead-01")
	require.Error(t, err)
	assert.True(t, IsStatus(err, 500))

	assert.Equal(t, []string{"lead-00", "lead-01", "lead-02"}, ids(list.State().Leads), "row restored in place")
}

func TestLeadListMarkReachedOut(t *testing.T) {
	api := &fakeAPI{leads: seedLeads(2)}
	list := NewLeadList(api, quiet)
	require.NoError(t, list.Load(context.Background()))

	require.NoError(t, list.MarkReachedOut(context.Background(), "lead-00"))
	leads := list.State().Leads
	assert.Equal(t, domain.LeadStatusReachedOut, leads[0].Status)
	assert.Equal(t, domain.LeadStatusPending, leads[1].Status)
}

func TestLeadListMarkReachedOutRollsBack(t *testing.T) {
	api := &fakeAPI{leads: seedLeads(2), mutateErr: errors.New("connection reset")}
	list := NewLeadList(api, quiet)
	require.NoError(t, list.Load(context.Background()))

	require.Error(t, list.MarkReachedOut(context.Background(), "lead-00"))
	assert.Equal(t, domain.LeadStatusPending, list.State().Leads[0].Status)
}

func TestLeadListPagination(t *testing.T) {
	api := &fakeAPI{leads: seedLeads(12)}
	list := NewLeadList(api, quiet)
	require.NoError(t, list.Load(context.Background()))

	assert.Equal(t, DefaultPageSize, list.PageSize())
	assert.Equal(t, 3, list.PageCount())
	assert.Equal(t, []string{"lead-00", "lead-01", "lead-02", "lead-03", "lead-04"}, ids(list.Page()))

	list.SetPage(2)
	assert.Equal(t, []string{"lead-10", "lead-11"}, ids(list.Page()))

	list.SetPage(99)
	assert.Equal(t, 2, list.CurrentPage())

	require.NoError(t, list.SetPageSize(10))
	assert.Equal(t, 0, list.CurrentPage())
	assert.Equal(t, 2, list.PageCount())

	require.NoError(t, list.SetPageSize(PageSizeAll))
	assert.Len(t, list.Page(), 12)
	assert.Equal(t, []int{0}, list.PageWindow())

	assert.Error(t, list.SetPageSize(3))
}

func TestLeadListDeleteReclampsPage(t *testing.T) {
	api := &fakeAPI{leads: seedLeads(6)}
	list := NewLeadList(api, quiet)
	require.NoError(t, list.Load(context.Background()))

	list.SetPage(1)
	assert.Equal(t, []string{"lead-05"}, ids(list.Page()))

	require.NoError(t, list.Delete(context.Background(), "lead-05"))
	assert.Equal(t, 0, list.CurrentPage())
	assert.Len(t, list.Page(), 5)
}

func TestRefreshAfterFailedLoadReportsLoading(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("connection refused")}
	list := NewLeadList(api, quiet)

	require.Error(t, list.Load(context.Background()))
	assert.Equal(t, PhaseFailed, list.State().Phase)

	api.mu.Lock()
	api.listErr = nil
	api.mu.Unlock()
	api.started = make(chan struct{})
	api.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- list.Refresh(context.Background()) }()

	<-api.started
	state := list.State()
	assert.Equal(t, PhaseLoading, state.Phase)
	assert.NoError(t, state.Err)

	close(api.release)
	require.NoError(t, <-done)
	assert.Equal(t, PhaseEmpty, list.State().Phase)
}
