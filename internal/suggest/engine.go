package suggest

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/opsboard/fieldsync/internal/directory"
)

const (
	// nearbyRadiusKm bounds "already in the area" for same-day visits.
	nearbyRadiusKm = 10.0
	// closeBaseKm bounds "short drive" from a technician's base.
	closeBaseKm = 15.0

	firstWindowStart = 9  // earliest proposed start hour
	lastWindowStart  = 15 // latest proposed start hour
	windowHours      = 2  // assumed visit length when stacking proposals
)

// Job is the unit of work a suggestion is produced for.
type Job struct {
	OrganizationID string  `json:"organization_id"`
	RemoteJobID    string  `json:"remote_job_id"`
	ServiceType    string  `json:"service_type"`
	CustomerName   string  `json:"customer_name,omitempty"`
	CustomerPhone  string  `json:"customer_phone,omitempty"`
	Address        string  `json:"address,omitempty"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
	TargetDate     string  `json:"target_date"` // "YYYY-MM-DD"
}

// ScheduledVisit is an existing assignment on the target date, used to rank
// technicians already working nearby.
type ScheduledVisit struct {
	TechnicianID string  `json:"technician_id"`
	Date         string  `json:"date"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
}

// Engine ranks candidate assignments. It is a pure function of its inputs
// and never mutates job or remote state.
type Engine struct{}

// NewEngine creates a suggestion engine.
func NewEngine() *Engine {
	return &Engine{}
}

type candidate struct {
	suggestion *Suggestion
	distanceKm float64
}

// Suggest produces ranked candidate assignments for a job: highest confidence
// first, ties broken by lowest estimated travel distance, then by technician
// name for determinism. Every suggestion carries a non-empty reasoning
// string.
func (e *Engine) Suggest(job Job, technicians []directory.Technician, schedule []ScheduledVisit) []*Suggestion {
	candidates := make([]candidate, 0, len(technicians))
	for _, technician := range technicians {
		candidates = append(candidates, e.evaluate(job, technician, schedule))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if confidenceRank(a.suggestion.Confidence) != confidenceRank(b.suggestion.Confidence) {
			return confidenceRank(a.suggestion.Confidence) > confidenceRank(b.suggestion.Confidence)
		}
		if a.distanceKm != b.distanceKm {
			return a.distanceKm < b.distanceKm
		}
		return a.suggestion.TechnicianName < b.suggestion.TechnicianName
	})

	// Stagger proposed start times so the top candidates do not all land on
	// the same window.
	suggestions := make([]*Suggestion, 0, len(candidates))
	for i, c := range candidates {
		c.suggestion.ScheduledTime = proposedStart(i, sameDayVisits(schedule, c.suggestion.TechnicianID, job.TargetDate))
		suggestions = append(suggestions, c.suggestion)
	}
	return suggestions
}

// evaluate scores one technician for the job.
func (e *Engine) evaluate(job Job, technician directory.Technician, schedule []ScheduledVisit) candidate {
	distance := haversineKm(job.Lat, job.Lng, technician.Lat, technician.Lng)
	preference := technician.SkillFor(job.ServiceType)
	nearby := nearbyVisitCount(schedule, technician.ID, job.TargetDate, job.Lat, job.Lng)

	suggestion := NewSuggestion(Suggestion{
		OrganizationID: job.OrganizationID,
		RemoteJobID:    job.RemoteJobID,
		ServiceType:    job.ServiceType,
		CustomerName:   job.CustomerName,
		CustomerPhone:  job.CustomerPhone,
		Address:        job.Address,
		TechnicianID:   technician.ID,
		TechnicianName: technician.Name,
		ScheduledDate:  job.TargetDate,
		SkillMatch:     skillMatchFor(preference),
		Confidence:     confidenceFor(preference, distance, nearby),
	})
	suggestion.Reasoning = reasoningFor(technician.Name, job, preference, distance, nearby)
	return candidate{suggestion: suggestion, distanceKm: distance}
}

// skillMatchFor derives the match strictly from the stored preference level:
// preferred only when explicitly preferred, avoid only when explicitly avoid
// or never, otherwise none.
func skillMatchFor(preference directory.Preference) SkillMatch {
	switch preference {
	case directory.PreferencePreferred:
		return SkillMatchPreferred
	case directory.PreferenceAvoid, directory.PreferenceNever:
		return SkillMatchAvoid
	default:
		return SkillMatchNone
	}
}

func confidenceFor(preference directory.Preference, distanceKm float64, nearbyVisits int) Confidence {
	if preference == directory.PreferenceAvoid || preference == directory.PreferenceNever {
		return ConfidenceLow
	}
	shortDrive := distanceKm <= closeBaseKm
	if preference == directory.PreferencePreferred && (shortDrive || nearbyVisits > 0) {
		return ConfidenceHigh
	}
	if preference == directory.PreferencePreferred || shortDrive || nearbyVisits > 0 {
		return ConfidenceMedium
	}
	return ConfidenceLow
}

func reasoningFor(name string, job Job, preference directory.Preference, distanceKm float64, nearbyVisits int) string {
	var parts []string
	switch preference {
	case directory.PreferencePreferred:
		parts = append(parts, fmt.Sprintf("%s prefers %s work", name, job.ServiceType))
	case directory.PreferenceAvoid:
		parts = append(parts, fmt.Sprintf("%s avoids %s work", name, job.ServiceType))
	case directory.PreferenceNever:
		parts = append(parts, fmt.Sprintf("%s is marked never for %s work", name, job.ServiceType))
	}
	parts = append(parts, fmt.Sprintf("%.0f km from base", distanceKm))
	if nearbyVisits > 0 {
		parts = append(parts, fmt.Sprintf("%d nearby visit(s) already scheduled on %s", nearbyVisits, job.TargetDate))
	}
	// The distance part is always present, so reasoning is never empty.
	return strings.Join(parts, "; ")
}

func sameDayVisits(schedule []ScheduledVisit, technicianID, date string) int {
	count := 0
	for _, visit := range schedule {
		if visit.TechnicianID == technicianID && visit.Date == date {
			count++
		}
	}
	return count
}

func nearbyVisitCount(schedule []ScheduledVisit, technicianID, date string, lat, lng float64) int {
	count := 0
	for _, visit := range schedule {
		if visit.TechnicianID != technicianID || visit.Date != date {
			continue
		}
		if haversineKm(lat, lng, visit.Lat, visit.Lng) <= nearbyRadiusKm {
			count++
		}
	}
	return count
}

// proposedStart stacks proposals after the technician's existing visits and
// staggers equal-ranked candidates across the day.
func proposedStart(rank, existingVisits int) string {
	hour := firstWindowStart + windowHours*existingVisits + rank%2
	if hour > lastWindowStart {
		hour = lastWindowStart
	}
	return fmt.Sprintf("%02d:00", hour)
}

func confidenceRank(c Confidence) int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	default:
		return 1
	}
}

const earthRadiusKm = 6371.0

// haversineKm is the great-circle distance between two coordinates.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
