package orchestrator

import (
	"fmt"
	"time"

	"github.com/opsboard/fieldsync/internal/mirror"
)

// ChangeRequest describes the changes to apply to exactly one remote job.
// Field presence, not value, determines whether a step runs: empty strings
// and a nil Services slice mean "leave untouched".
type ChangeRequest struct {
	OrganizationID string           `json:"organizationId"`
	RemoteJobID    string           `json:"remoteJobId"`
	ScheduledDate  string           `json:"scheduledDate,omitempty"` // "YYYY-MM-DD"
	ScheduledTime  string           `json:"scheduledTime,omitempty"` // "HH:MM", start
	ScheduledEnd   string           `json:"scheduledEnd,omitempty"`  // "HH:MM"
	TechnicianID   string           `json:"technicianId,omitempty"`
	Status         mirror.JobStatus `json:"status,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	Services       []string         `json:"services,omitempty"` // full replacement list; nil = untouched
}

// Validate checks the identity fields and the closed status set.
func (r ChangeRequest) Validate() error {
	if r.OrganizationID == "" {
		return fmt.Errorf("organizationId is required")
	}
	if r.RemoteJobID == "" {
		return fmt.Errorf("remoteJobId is required")
	}
	if r.Status != "" && !r.Status.Valid() {
		return fmt.Errorf("invalid status %q", r.Status)
	}
	if r.ScheduledTime != "" && r.ScheduledDate == "" {
		return fmt.Errorf("scheduledTime requires scheduledDate")
	}
	return nil
}

// HasSchedule reports whether the request carries a new schedule window.
func (r ChangeRequest) HasSchedule() bool {
	return r.ScheduledDate != "" && r.ScheduledTime != ""
}

// externalStatus maps internal status values to the remote system's codes.
// Values not in the table pass through verbatim.
func externalStatus(status mirror.JobStatus) string {
	switch status {
	case mirror.StatusCancelled:
		return "canceled"
	case mirror.StatusInProgress:
		return "in progress"
	default:
		return string(status)
	}
}

// ScheduleWindow combines date and start time into concrete timestamps. When
// end is omitted it defaults to start + 60 minutes; an end that rolls past
// midnight (either via the default or an explicit end earlier than start)
// lands on the next calendar day.
func ScheduleWindow(date, start, end string) (time.Time, time.Time, error) {
	startAt, err := time.ParseInLocation("2006-01-02 15:04", date+" "+start, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid schedule start %q %q: %w", date, start, err)
	}

	if end == "" {
		return startAt, startAt.Add(time.Hour), nil
	}

	endAt, err := time.ParseInLocation("2006-01-02 15:04", date+" "+end, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid schedule end %q %q: %w", date, end, err)
	}
	if !endAt.After(startAt) {
		endAt = endAt.AddDate(0, 0, 1)
	}
	return startAt, endAt, nil
}

// DefaultEnd returns the "HH:MM" end time for a start with no explicit end:
// start + 60 minutes, wrapping at midnight.
func DefaultEnd(start string) (string, error) {
	startAt, err := time.Parse("15:04", start)
	if err != nil {
		return "", fmt.Errorf("invalid start time %q: %w", start, err)
	}
	return startAt.Add(time.Hour).Format("15:04"), nil
}
