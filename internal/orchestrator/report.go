package orchestrator

import (
	"time"
)

// Step identifies one orchestration step.
type Step string

const (
	StepSchedule  Step = "schedule_status"
	StepDispatch  Step = "technician_dispatch"
	StepNote      Step = "note_append"
	StepLineItems Step = "line_item_replace"
	StepMirror    Step = "mirror_reconcile"
)

// Outcome records how one step ended. Fatal marks the load-bearing step:
// its failure aborts the run and fails the whole request. All other step
// failures are captured for observability only.
type Outcome struct {
	Step  Step   `json:"step"`
	Fatal bool   `json:"fatal"`
	Error string `json:"error,omitempty"`
}

// Failed reports whether the step ended in error.
func (o Outcome) Failed() bool {
	return o.Error != ""
}

// RunReport collects the outcomes of one orchestration run.
type RunReport struct {
	RunID          string    `json:"run_id"`
	OrganizationID string    `json:"organization_id"`
	RemoteJobID    string    `json:"remote_job_id"`
	Outcomes       []Outcome `json:"outcomes"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Result is the aggregate verdict reported to callers. Success reflects only
// the load-bearing step; best-effort failures surface through logs and the
// run report, never here.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Verdict derives the aggregate result from a run report: the request
// succeeds if and only if no fatal step failed. The first fatal failure's
// message becomes the result error.
func Verdict(report RunReport) Result {
	for _, outcome := range report.Outcomes {
		if outcome.Fatal && outcome.Failed() {
			return Result{Success: false, Error: outcome.Error}
		}
	}
	return Result{Success: true}
}
