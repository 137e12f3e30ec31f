package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/opsboard/fieldsync/internal/config"
	"github.com/opsboard/fieldsync/internal/logger"
	"github.com/opsboard/fieldsync/internal/orchestrator"
	"github.com/opsboard/fieldsync/internal/suggest"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// HandleHealth returns a handler for the /health endpoint.
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}

// SuggestRequest represents the request body for POST /suggestions.
type SuggestRequest struct {
	Job      suggest.Job              `json:"job"`
	Schedule []suggest.ScheduledVisit `json:"schedule,omitempty"`
}

// HandleSuggestions serves GET (list session) and POST (generate) on
// /suggestions.
func (s *Server) HandleSuggestions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, s.bridge.List())
		case http.MethodPost:
			var req SuggestRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}
			if req.Job.OrganizationID == "" || req.Job.RemoteJobID == "" {
				http.Error(w, "job.organization_id and job.remote_job_id are required", http.StatusBadRequest)
				return
			}
			suggestions := s.engine.Suggest(req.Job, s.directory.All(), req.Schedule)
			s.bridge.Add(suggestions...)
			writeJSON(w, http.StatusOK, suggestions)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandleSuggestionAction serves /suggestions/{id}, /suggestions/{id}/confirm,
// /suggestions/{id}/retry and /suggestions/{id}/report.
func (s *Server) HandleSuggestionAction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/suggestions/")
		id, action, _ := strings.Cut(rest, "/")
		if id == "" {
			http.Error(w, "Suggestion id is required", http.StatusBadRequest)
			return
		}

		switch action {
		case "":
			s.serveSuggestion(w, r, id)
		case "confirm":
			s.serveLifecycleAction(w, r, id, s.bridge.Confirm)
		case "retry":
			s.serveLifecycleAction(w, r, id, s.bridge.Retry)
		case "report":
			s.serveRunReport(w, r, id)
		default:
			http.NotFound(w, r)
		}
	}
}

func (s *Server) serveSuggestion(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		suggestion, err := s.bridge.Get(id)
		if err != nil {
			writeBridgeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, suggestion)
	case http.MethodPatch:
		var edit suggest.FieldEdit
		if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		suggestion, err := s.bridge.Modify(id, edit)
		if err != nil {
			writeBridgeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, suggestion)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) serveLifecycleAction(w http.ResponseWriter, r *http.Request, id string, action func(ctx context.Context, id string) (suggest.Suggestion, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	suggestion, err := action(r.Context(), id)
	if err != nil {
		writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

// serveRunReport exposes the step-level outcomes of the last orchestration
// run for a suggestion.
func (s *Server) serveRunReport(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, err := s.bridge.Get(id); err != nil {
		writeBridgeError(w, err)
		return
	}
	report, ok := s.bridge.Report(id)
	if !ok {
		http.Error(w, "No run has been issued for this suggestion", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleJobUpdate serves POST /jobs/update: a direct orchestrator invocation
// with the spec change-request shape, returning the aggregate verdict.
func (s *Server) HandleJobUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var request orchestrator.ChangeRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		runner, err := s.tenants.RunnerFor(request.OrganizationID)
		if err != nil {
			if errors.Is(err, config.ErrMissingCredential) {
				http.Error(w, err.Error(), http.StatusFailedDependency)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		report, err := runner.Run(r.Context(), request)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, orchestrator.Verdict(report))
	}
}

// HandleMirrorJob serves GET /mirror/job?organization_id=...&remote_job_id=...
// against the local mirror. Reads may be stale; the remote system is
// authoritative.
func (s *Server) HandleMirrorJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		organizationID := r.URL.Query().Get("organization_id")
		remoteJobID := r.URL.Query().Get("remote_job_id")
		if organizationID == "" || remoteJobID == "" {
			http.Error(w, "organization_id and remote_job_id are required", http.StatusBadRequest)
			return
		}

		record, err := s.store.Get(r.Context(), organizationID, remoteJobID)
		if err != nil {
			logger.Error("Server", "HandleMirrorJob", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if record == nil {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, http.StatusOK, record)
	}
}

func writeBridgeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, suggest.ErrUnknownSuggestion):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, suggest.ErrAlreadyRunning):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, suggest.ErrNotPending), errors.Is(err, suggest.ErrNotErrored):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, config.ErrMissingCredential):
		http.Error(w, err.Error(), http.StatusFailedDependency)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
