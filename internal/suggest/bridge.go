package suggest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/opsboard/fieldsync/internal/logger"
	"github.com/opsboard/fieldsync/internal/mirror"
	"github.com/opsboard/fieldsync/internal/orchestrator"
)

const bridgeComponent = "SuggestionBridge"

var (
	ErrUnknownSuggestion = errors.New("unknown suggestion")
	ErrNotPending        = errors.New("suggestion is not pending")
	ErrNotErrored        = errors.New("suggestion is not in the error state")
	// ErrAlreadyRunning is returned while a suggestion is creating: no two
	// orchestration runs may be in flight for the same suggestion.
	ErrAlreadyRunning = errors.New("an orchestration run is already in flight for this suggestion")
)

// Runner executes one change request. Satisfied by *orchestrator.Orchestrator.
type Runner interface {
	Run(ctx context.Context, request orchestrator.ChangeRequest) (orchestrator.RunReport, error)
}

// RunnerProvider resolves the per-tenant orchestrator for an organization.
// A missing credential surfaces here, before any remote call.
type RunnerProvider interface {
	RunnerFor(organizationID string) (Runner, error)
}

// LinkResolver builds the external-system deep link for a remote job.
type LinkResolver interface {
	DeepLink(organizationID, remoteJobID string) string
}

// Bridge holds the suggestions of a review session and translates each
// accepted suggestion into exactly one orchestrator change request, mapping
// the aggregate verdict back onto the suggestion's lifecycle state.
type Bridge struct {
	provider RunnerProvider
	links    LinkResolver

	mu          sync.Mutex
	suggestions map[string]*Suggestion
	// requests stores the change request issued on confirm; retry replays it
	// unmodified.
	requests map[string]orchestrator.ChangeRequest
	reports  map[string]orchestrator.RunReport
	inflight map[string]bool
}

// NewBridge creates a bridge backed by the given runner provider.
func NewBridge(provider RunnerProvider, links LinkResolver) *Bridge {
	return &Bridge{
		provider:    provider,
		links:       links,
		suggestions: make(map[string]*Suggestion),
		requests:    make(map[string]orchestrator.ChangeRequest),
		reports:     make(map[string]orchestrator.RunReport),
		inflight:    make(map[string]bool),
	}
}

// Add registers suggestions with the session.
func (b *Bridge) Add(suggestions ...*Suggestion) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, suggestion := range suggestions {
		b.suggestions[suggestion.ID] = suggestion
	}
}

// Get returns a copy of one suggestion.
func (b *Bridge) Get(id string) (Suggestion, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	suggestion, ok := b.suggestions[id]
	if !ok {
		return Suggestion{}, fmt.Errorf("%w: %s", ErrUnknownSuggestion, id)
	}
	return *suggestion, nil
}

// List returns copies of every suggestion in the session.
func (b *Bridge) List() []Suggestion {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Suggestion, 0, len(b.suggestions))
	for _, suggestion := range b.suggestions {
		out = append(out, *suggestion)
	}
	return out
}

// Report returns the last run report for a suggestion, if any.
func (b *Bridge) Report(id string) (orchestrator.RunReport, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	report, ok := b.reports[id]
	return report, ok
}

// Modify mutates a pending suggestion's fields in place. No state change.
func (b *Bridge) Modify(id string, edit FieldEdit) (Suggestion, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	suggestion, ok := b.suggestions[id]
	if !ok {
		return Suggestion{}, fmt.Errorf("%w: %s", ErrUnknownSuggestion, id)
	}
	if suggestion.Status != StatusPending {
		return Suggestion{}, fmt.Errorf("%w: %s is %s", ErrNotPending, id, suggestion.Status)
	}
	suggestion.apply(edit)
	return *suggestion, nil
}

// Confirm transitions a pending suggestion to creating, issues the change
// request, and resolves to created or error. While a suggestion is creating
// a second invocation is rejected without starting a run.
func (b *Bridge) Confirm(ctx context.Context, id string) (Suggestion, error) {
	return b.execute(ctx, id, StatusPending, ErrNotPending)
}

// Retry re-issues the stored change request of an errored suggestion,
// byte-for-byte the request the original confirm sent.
func (b *Bridge) Retry(ctx context.Context, id string) (Suggestion, error) {
	return b.execute(ctx, id, StatusError, ErrNotErrored)
}

func (b *Bridge) execute(ctx context.Context, id string, from Status, wrongState error) (Suggestion, error) {
	suggestion, request, runner, err := b.begin(id, from, wrongState)
	if err != nil {
		return suggestion, err
	}

	report, runErr := runner.Run(ctx, request)
	return b.finish(id, report, runErr), nil
}

// begin claims the suggestion under the in-flight lock and transitions it to
// creating before the orchestrator call is issued.
func (b *Bridge) begin(id string, from Status, wrongState error) (Suggestion, orchestrator.ChangeRequest, Runner, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	suggestion, ok := b.suggestions[id]
	if !ok {
		return Suggestion{}, orchestrator.ChangeRequest{}, nil, fmt.Errorf("%w: %s", ErrUnknownSuggestion, id)
	}
	if b.inflight[id] {
		return *suggestion, orchestrator.ChangeRequest{}, nil, ErrAlreadyRunning
	}
	if suggestion.Status != from {
		return *suggestion, orchestrator.ChangeRequest{}, nil, fmt.Errorf("%w: %s is %s", wrongState, id, suggestion.Status)
	}

	request, stored := b.requests[id]
	if from == StatusPending || !stored {
		built, err := buildChangeRequest(*suggestion)
		if err != nil {
			return *suggestion, orchestrator.ChangeRequest{}, nil, err
		}
		request = built
		b.requests[id] = request
	}

	runner, err := b.provider.RunnerFor(suggestion.OrganizationID)
	if err != nil {
		return *suggestion, orchestrator.ChangeRequest{}, nil, err
	}

	b.inflight[id] = true
	suggestion.Status = StatusCreating
	suggestion.Error = ""
	return *suggestion, request, runner, nil
}

// finish maps the orchestrator's verdict onto the lifecycle and releases the
// in-flight lock.
func (b *Bridge) finish(id string, report orchestrator.RunReport, runErr error) Suggestion {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.inflight, id)
	suggestion := b.suggestions[id]

	if runErr != nil {
		suggestion.Status = StatusError
		suggestion.Error = runErr.Error()
		logger.Error(bridgeComponent, "finish", runErr)
		return *suggestion
	}

	b.reports[id] = report
	result := orchestrator.Verdict(report)
	if result.Success {
		suggestion.Status = StatusCreated
		suggestion.JobLink = b.links.DeepLink(suggestion.OrganizationID, suggestion.RemoteJobID)
	} else {
		suggestion.Status = StatusError
		suggestion.Error = result.Error
	}
	return *suggestion
}

// buildChangeRequest translates a suggestion into its change request.
// Confirming a suggestion schedules the job, so the status transition to
// scheduled rides along with the schedule window. The end time is filled in
// explicitly (start + 60 minutes) so the stored request replayed by retry is
// self-contained.
func buildChangeRequest(suggestion Suggestion) (orchestrator.ChangeRequest, error) {
	request := orchestrator.ChangeRequest{
		OrganizationID: suggestion.OrganizationID,
		RemoteJobID:    suggestion.RemoteJobID,
		ScheduledDate:  suggestion.ScheduledDate,
		ScheduledTime:  suggestion.ScheduledTime,
		TechnicianID:   suggestion.TechnicianID,
		Status:         mirror.StatusScheduled,
		Notes:          suggestion.Notes,
		Services:       suggestion.Services,
	}
	if suggestion.ScheduledTime != "" {
		end, err := orchestrator.DefaultEnd(suggestion.ScheduledTime)
		if err != nil {
			return orchestrator.ChangeRequest{}, fmt.Errorf("cannot build change request: %w", err)
		}
		request.ScheduledEnd = end
	}
	return request, nil
}
