package orchestrator

import (
	"testing"

	"github.com/opsboard/fieldsync/internal/mirror"
)

func TestExternalStatus(t *testing.T) {
	tests := []struct {
		internal mirror.JobStatus
		external string
	}{
		{mirror.StatusCancelled, "canceled"},
		{mirror.StatusInProgress, "in progress"},
		{mirror.StatusScheduled, "scheduled"},
		{mirror.StatusCompleted, "completed"},
		{mirror.StatusNeedsScheduling, "needs_scheduling"},
	}
	for _, tt := range tests {
		if got := externalStatus(tt.internal); got != tt.external {
			t.Errorf("externalStatus(%q) = %q, want %q", tt.internal, got, tt.external)
		}
	}
}

func TestScheduleWindow_DefaultEndIsStartPlusHour(t *testing.T) {
	start, end, err := ScheduleWindow("2024-06-01", "09:00", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := end.Sub(start).Minutes(); got != 60 {
		t.Errorf("expected 60 minute window, got %v", got)
	}
	if end.Format("15:04") != "10:00" {
		t.Errorf("expected end 10:00, got %s", end.Format("15:04"))
	}
}

func TestScheduleWindow_DefaultEndRollsPastMidnight(t *testing.T) {
	start, end, err := ScheduleWindow("2024-06-01", "23:40", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if end.Format("15:04") != "00:40" {
		t.Errorf("expected end 00:40, got %s", end.Format("15:04"))
	}
	if end.Format("2006-01-02") != "2024-06-02" {
		t.Errorf("expected end on the next calendar day, got %s", end.Format("2006-01-02"))
	}
	if !end.After(start) {
		t.Error("end must be after start")
	}
}

func TestScheduleWindow_ExplicitEndBeforeStartRollsToNextDay(t *testing.T) {
	start, end, err := ScheduleWindow("2024-06-01", "22:00", "01:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !end.After(start) {
		t.Error("end must be after start")
	}
	if end.Format("2006-01-02 15:04") != "2024-06-02 01:30" {
		t.Errorf("expected 2024-06-02 01:30, got %s", end.Format("2006-01-02 15:04"))
	}
}

func TestScheduleWindow_InvalidInput(t *testing.T) {
	if _, _, err := ScheduleWindow("June 1st", "09:00", ""); err == nil {
		t.Error("expected error for invalid date")
	}
	if _, _, err := ScheduleWindow("2024-06-01", "9am", ""); err == nil {
		t.Error("expected error for invalid time")
	}
}

func TestDefaultEnd(t *testing.T) {
	tests := []struct {
		start string
		end   string
	}{
		{"09:00", "10:00"},
		{"23:40", "00:40"},
		{"00:00", "01:00"},
	}
	for _, tt := range tests {
		got, err := DefaultEnd(tt.start)
		if err != nil {
			t.Fatalf("DefaultEnd(%q): %v", tt.start, err)
		}
		if got != tt.end {
			t.Errorf("DefaultEnd(%q) = %q, want %q", tt.start, got, tt.end)
		}
	}
	if _, err := DefaultEnd("noon"); err == nil {
		t.Error("expected error for invalid start")
	}
}

func TestChangeRequestValidate(t *testing.T) {
	valid := ChangeRequest{OrganizationID: "org-1", RemoteJobID: "job-1"}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	missingOrg := ChangeRequest{RemoteJobID: "job-1"}
	if err := missingOrg.Validate(); err == nil {
		t.Error("expected error for missing organizationId")
	}

	missingJob := ChangeRequest{OrganizationID: "org-1"}
	if err := missingJob.Validate(); err == nil {
		t.Error("expected error for missing remoteJobId")
	}

	badStatus := ChangeRequest{OrganizationID: "org-1", RemoteJobID: "job-1", Status: "paused"}
	if err := badStatus.Validate(); err == nil {
		t.Error("expected error for status outside the closed set")
	}

	timeWithoutDate := ChangeRequest{OrganizationID: "org-1", RemoteJobID: "job-1", ScheduledTime: "09:00"}
	if err := timeWithoutDate.Validate(); err == nil {
		t.Error("expected error for time without date")
	}
}
