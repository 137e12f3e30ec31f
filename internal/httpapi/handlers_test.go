package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/opsboard/fieldsync/internal/catalog"
	"github.com/opsboard/fieldsync/internal/config"
	"github.com/opsboard/fieldsync/internal/directory"
	"github.com/opsboard/fieldsync/internal/mirror"
	"github.com/opsboard/fieldsync/internal/orchestrator"
	"github.com/opsboard/fieldsync/internal/suggest"
)

// remoteRecorder fakes the external field-service API and records calls.
type remoteRecorder struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]int // method+path prefix -> status code to return
}

func (r *remoteRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		call := req.Method + " " + req.URL.Path
		r.calls = append(r.calls, call)
		status := http.StatusOK
		for prefix, code := range r.fail {
			if strings.HasPrefix(call, prefix) {
				status = code
			}
		}
		r.mu.Unlock()

		if status != http.StatusOK {
			http.Error(w, "remote rejection", status)
			return
		}
		if req.Method == http.MethodGet && strings.HasSuffix(req.URL.Path, "/line_items") {
			w.Write([]byte(`{"items": []}`))
			return
		}
		w.Write([]byte(`{}`))
	}
}

func (r *remoteRecorder) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type testEnv struct {
	server *Server
	remote *remoteRecorder
	mock   sqlmock.Sqlmock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	remote := &remoteRecorder{fail: map[string]int{}}
	remoteServer := httptest.NewServer(remote.handler())
	t.Cleanup(remoteServer.Close)

	credentialsPath := filepath.Join(t.TempDir(), "credentials.json")
	document := fmt.Sprintf(`{"org-1": {"api_key": "k", "base_url": %q, "dashboard_url": "https://app.fieldservice.example"}}`, remoteServer.URL)
	if err := os.WriteFile(credentialsPath, []byte(document), 0600); err != nil {
		t.Fatalf("failed to write credentials: %v", err)
	}
	credentials, err := config.LoadCredentials(credentialsPath)
	if err != nil {
		t.Fatalf("failed to load credentials: %v", err)
	}

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := mirror.NewStore(db)

	technicians := directory.New([]directory.Technician{
		{ID: "tech-1", Name: "Jane", Lat: 45.0, Lng: -73.0,
			Skills: map[string]directory.Preference{"Carpet Cleaning": directory.PreferencePreferred}},
		{ID: "tech-2", Name: "Omar", Lat: 45.2, Lng: -73.2},
	})
	services := catalog.New([]catalog.Service{{RemoteID: "svc-1", Name: "Carpet Cleaning"}})

	tenants := NewTenants(credentials, store, services, technicians, 5*time.Second, orchestrator.NopPacer{})
	bridge := suggest.NewBridge(tenants, tenants)

	cfg := &config.Config{Port: 0}
	server := New(cfg, tenants, bridge, suggest.NewEngine(), technicians, store)
	return &testEnv{server: server, remote: remote, mock: mock}
}

func (e *testEnv) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	recorder := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request(t, http.MethodGet, "/health", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var health HealthResponse
	json.NewDecoder(resp.Body).Decode(&health)
	if health.Status != "ok" {
		t.Errorf("unexpected health %+v", health)
	}

	if resp := env.request(t, http.MethodPost, "/health", ""); resp.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST, got %d", resp.Code)
	}
}

func suggestBody() string {
	return `{"job": {
		"organization_id": "org-1", "remote_job_id": "job-42",
		"service_type": "Carpet Cleaning", "lat": 45.0, "lng": -73.0,
		"target_date": "2024-06-01"
	}}`
}

func TestSuggestConfirmFlow(t *testing.T) {
	env := newTestEnv(t)
	env.mock.ExpectExec("INSERT INTO job_mirror").WillReturnResult(sqlmock.NewResult(1, 1))

	resp := env.request(t, http.MethodPost, "/suggestions", suggestBody())
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var suggestions []suggest.Suggestion
	json.NewDecoder(resp.Body).Decode(&suggestions)
	if len(suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(suggestions))
	}
	top := suggestions[0]
	if top.TechnicianName != "Jane" {
		t.Errorf("expected the preferred close technician ranked first, got %s", top.TechnicianName)
	}
	if top.Reasoning == "" {
		t.Error("expected non-empty reasoning")
	}

	confirm := env.request(t, http.MethodPost, "/suggestions/"+top.ID+"/confirm", "")
	if confirm.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", confirm.Code, confirm.Body.String())
	}
	var confirmed suggest.Suggestion
	json.NewDecoder(confirm.Body).Decode(&confirmed)
	if confirmed.Status != suggest.StatusCreated {
		t.Fatalf("expected created, got %s (%s)", confirmed.Status, confirmed.Error)
	}
	if !strings.Contains(confirmed.JobLink, "job-42") {
		t.Errorf("expected deep link with the remote job id, got %q", confirmed.JobLink)
	}

	calls := env.remote.recorded()
	if len(calls) < 2 || calls[0] != "PATCH /v1/jobs/job-42" {
		t.Errorf("expected the schedule patch first, got %v", calls)
	}
	if calls[1] != "POST /v1/jobs/job-42/dispatch" {
		t.Errorf("expected dispatch second, got %v", calls)
	}

	reportResp := env.request(t, http.MethodGet, "/suggestions/"+top.ID+"/report", "")
	if reportResp.Code != http.StatusOK {
		t.Fatalf("expected 200 for run report, got %d", reportResp.Code)
	}
	var report orchestrator.RunReport
	json.NewDecoder(reportResp.Body).Decode(&report)
	if report.RemoteJobID != "job-42" || len(report.Outcomes) == 0 {
		t.Errorf("unexpected run report %+v", report)
	}

	// A suggestion that never ran has no report.
	other := suggestions[1]
	if resp := env.request(t, http.MethodGet, "/suggestions/"+other.ID+"/report", ""); resp.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unrun suggestion, got %d", resp.Code)
	}
}

func TestConfirmRemoteRejectionYieldsErrorStateWithRetry(t *testing.T) {
	env := newTestEnv(t)
	env.remote.fail["PATCH /v1/jobs/job-42"] = http.StatusConflict

	resp := env.request(t, http.MethodPost, "/suggestions", suggestBody())
	var suggestions []suggest.Suggestion
	json.NewDecoder(resp.Body).Decode(&suggestions)
	top := suggestions[0]

	confirm := env.request(t, http.MethodPost, "/suggestions/"+top.ID+"/confirm", "")
	var errored suggest.Suggestion
	json.NewDecoder(confirm.Body).Decode(&errored)
	if errored.Status != suggest.StatusError {
		t.Fatalf("expected error state, got %s", errored.Status)
	}
	if errored.Error == "" {
		t.Error("expected the fatal error message carried on the suggestion")
	}

	// Retry succeeds once the remote accepts.
	env.remote.mu.Lock()
	delete(env.remote.fail, "PATCH /v1/jobs/job-42")
	env.remote.mu.Unlock()
	env.mock.ExpectExec("INSERT INTO job_mirror").WillReturnResult(sqlmock.NewResult(1, 1))

	retry := env.request(t, http.MethodPost, "/suggestions/"+top.ID+"/retry", "")
	var retried suggest.Suggestion
	json.NewDecoder(retry.Body).Decode(&retried)
	if retried.Status != suggest.StatusCreated {
		t.Errorf("expected created after retry, got %s (%s)", retried.Status, retried.Error)
	}
}

func TestModifySuggestionEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/suggestions", suggestBody())
	var suggestions []suggest.Suggestion
	json.NewDecoder(resp.Body).Decode(&suggestions)
	top := suggestions[0]

	patch := env.request(t, http.MethodPatch, "/suggestions/"+top.ID, `{"scheduled_time": "13:00"}`)
	if patch.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", patch.Code, patch.Body.String())
	}
	var modified suggest.Suggestion
	json.NewDecoder(patch.Body).Decode(&modified)
	if modified.ScheduledTime != "13:00" || modified.Status != suggest.StatusPending {
		t.Errorf("unexpected suggestion after modify: %+v", modified)
	}
}

func TestHandleJobUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.mock.ExpectExec("INSERT INTO job_mirror").WillReturnResult(sqlmock.NewResult(1, 1))

	body := `{"organizationId": "org-1", "remoteJobId": "job-7",
		"scheduledDate": "2024-06-01", "scheduledTime": "09:00", "status": "in_progress"}`
	resp := env.request(t, http.MethodPost, "/jobs/update", body)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var result orchestrator.Result
	json.NewDecoder(resp.Body).Decode(&result)
	if !result.Success {
		t.Errorf("expected success, got %+v", result)
	}
}

func TestHandleJobUpdate_UnknownTenant(t *testing.T) {
	env := newTestEnv(t)

	body := `{"organizationId": "org-404", "remoteJobId": "job-7", "status": "completed"}`
	resp := env.request(t, http.MethodPost, "/jobs/update", body)
	if resp.Code != http.StatusFailedDependency {
		t.Errorf("expected 424 for missing credential, got %d", resp.Code)
	}
	if calls := env.remote.recorded(); len(calls) != 0 {
		t.Errorf("expected no remote calls for an unknown tenant, got %v", calls)
	}
}

func TestHandleMirrorJob(t *testing.T) {
	env := newTestEnv(t)
	syncedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	env.mock.ExpectQuery("SELECT (.+) FROM job_mirror").
		WithArgs("org-1", "job-42").
		WillReturnRows(sqlmock.NewRows([]string{
			"organization_id", "remote_job_id", "scheduled_date", "scheduled_start",
			"scheduled_end", "technician_id", "technician_name", "status", "synced_at",
		}).AddRow("org-1", "job-42", "2024-06-01", "09:00", "10:00", "tech-1", "Jane", "scheduled", syncedAt))

	resp := env.request(t, http.MethodGet, "/mirror/job?organization_id=org-1&remote_job_id=job-42", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var record mirror.JobRecord
	json.NewDecoder(resp.Body).Decode(&record)
	if record.TechnicianName != "Jane" || record.Status != mirror.StatusScheduled {
		t.Errorf("unexpected record %+v", record)
	}

	if resp := env.request(t, http.MethodGet, "/mirror/job", ""); resp.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing params, got %d", resp.Code)
	}
}

func TestUnknownSuggestionActions(t *testing.T) {
	env := newTestEnv(t)

	if resp := env.request(t, http.MethodPost, "/suggestions/nope/confirm", ""); resp.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown suggestion, got %d", resp.Code)
	}
	if resp := env.request(t, http.MethodPost, "/suggestions/nope/explode", ""); resp.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown action, got %d", resp.Code)
	}
	if resp := env.request(t, http.MethodPost, "/suggestions", `{"job": {}}`); resp.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing job identity, got %d", resp.Code)
	}
}
