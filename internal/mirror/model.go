package mirror

import (
	"time"
)

// JobStatus represents the internal status of a mirrored job.
type JobStatus string

const (
	StatusScheduled       JobStatus = "scheduled"
	StatusInProgress      JobStatus = "in_progress"
	StatusCompleted       JobStatus = "completed"
	StatusCancelled       JobStatus = "cancelled"
	StatusNeedsScheduling JobStatus = "needs_scheduling"
)

// Valid reports whether s is one of the closed set of job statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusNeedsScheduling:
		return true
	}
	return false
}

// JobRecord is the locally cached copy of a remote job. It is a best-effort
// mirror: it may be stale or fail to update even when the remote update
// succeeded. The remote system is always authoritative.
type JobRecord struct {
	RemoteJobID    string    `json:"remote_job_id"`
	OrganizationID string    `json:"organization_id"`
	ScheduledDate  string    `json:"scheduled_date,omitempty"` // "YYYY-MM-DD"
	ScheduledStart string    `json:"scheduled_start,omitempty"` // "HH:MM"
	ScheduledEnd   string    `json:"scheduled_end,omitempty"`   // "HH:MM"
	TechnicianID   string    `json:"technician_id,omitempty"`
	TechnicianName string    `json:"technician_name,omitempty"`
	Status         JobStatus `json:"status,omitempty"`
	SyncedAt       time.Time `json:"synced_at"`
}

// JobUpdate carries only the fields that changed in one orchestration run.
// Nil pointers leave the mirrored column untouched.
type JobUpdate struct {
	RemoteJobID    string
	OrganizationID string
	ScheduledDate  *string
	ScheduledStart *string
	ScheduledEnd   *string
	TechnicianID   *string
	TechnicianName *string
	Status         *JobStatus
}
