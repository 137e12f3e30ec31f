// Package suggest produces scheduling suggestions for jobs that need
// assignment and carries each suggestion through its review lifecycle.
package suggest

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the review lifecycle state of a suggestion.
type Status string

const (
	StatusPending  Status = "pending"
	StatusCreating Status = "creating"
	StatusCreated  Status = "created"
	StatusError    Status = "error"
)

// Valid reports whether s is one of the closed set of lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCreating, StatusCreated, StatusError:
		return true
	}
	return false
}

// Terminal reports whether the suggestion has finished its lifecycle.
// An errored suggestion can still be retried.
func (s Status) Terminal() bool {
	return s == StatusCreated
}

// Confidence is the engine's tier for a proposed assignment.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// SkillMatch is derived strictly from the technician's stored preference
// level for the job's service type.
type SkillMatch string

const (
	SkillMatchPreferred SkillMatch = "preferred"
	SkillMatchAvoid     SkillMatch = "avoid"
	SkillMatchNone      SkillMatch = "none"
)

// Suggestion is an engine-proposed (or operator-modified) assignment for one
// job, scoped to a single review session.
type Suggestion struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	RemoteJobID    string     `json:"remote_job_id"`
	ServiceType    string     `json:"service_type"`
	CustomerName   string     `json:"customer_name,omitempty"`
	CustomerPhone  string     `json:"customer_phone,omitempty"`
	Address        string     `json:"address,omitempty"`
	TechnicianID   string     `json:"technician_id"`
	TechnicianName string     `json:"technician_name"`
	ScheduledDate  string     `json:"scheduled_date"` // "YYYY-MM-DD"
	ScheduledTime  string     `json:"scheduled_time"` // "HH:MM"
	Notes          string     `json:"notes,omitempty"`
	Services       []string   `json:"services,omitempty"`
	Confidence     Confidence `json:"confidence"`
	SkillMatch     SkillMatch `json:"skill_match"`
	Reasoning      string     `json:"reasoning"`
	Status         Status     `json:"status"`
	Error          string     `json:"error,omitempty"` // last fatal failure, set in the error state
	JobLink        string     `json:"job_link,omitempty"` // deep link, set in the created state
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewSuggestion stamps identity, pending status, and timestamps.
func NewSuggestion(s Suggestion) *Suggestion {
	now := time.Now().UTC()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.Status = StatusPending
	s.CreatedAt = now
	s.UpdatedAt = now
	return &s
}

// FieldEdit carries an operator's in-place modification of a pending
// suggestion. Nil fields are left unchanged; editing never transitions the
// lifecycle state.
type FieldEdit struct {
	TechnicianID   *string  `json:"technician_id,omitempty"`
	TechnicianName *string  `json:"technician_name,omitempty"`
	ScheduledDate  *string  `json:"scheduled_date,omitempty"`
	ScheduledTime  *string  `json:"scheduled_time,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
	Services       []string `json:"services,omitempty"`
}

func (s *Suggestion) apply(edit FieldEdit) {
	if edit.TechnicianID != nil {
		s.TechnicianID = *edit.TechnicianID
	}
	if edit.TechnicianName != nil {
		s.TechnicianName = *edit.TechnicianName
	}
	if edit.ScheduledDate != nil {
		s.ScheduledDate = *edit.ScheduledDate
	}
	if edit.ScheduledTime != nil {
		s.ScheduledTime = *edit.ScheduledTime
	}
	if edit.Notes != nil {
		s.Notes = *edit.Notes
	}
	if edit.Services != nil {
		s.Services = edit.Services
	}
	s.UpdatedAt = time.Now().UTC()
}
