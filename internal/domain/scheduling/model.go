// Package scheduling manages clinic appointments and their visit workflow
// (scheduled, confirmed, checked in, in progress, completed).
package scheduling

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ehr/clinicconsole/internal/platform/hooks"
)

// Validation messages of the appointment form.
const (
	ErrPatientRequired  hooks.Invalid = "Patient name is required"
	ErrProviderRequired hooks.Invalid = "Provider is required"
	ErrServiceRequired  hooks.Invalid = "Service is required"
	ErrInvalidStart     hooks.Invalid = "Please enter a valid start time"
	ErrInvalidDuration  hooks.Invalid = "Duration must be a positive number of minutes"
)

const (
	StatusScheduled  = "scheduled"
	StatusConfirmed  = "confirmed"
	StatusCheckedIn  = "checked_in"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no_show"
)

type Appointment struct {
	ID              string     `json:"id"`
	ClinicID        string     `json:"clinic_id"`
	PatientName     string     `json:"patient_name"`
	ProviderName    string     `json:"provider_name"`
	ServiceName     string     `json:"service_name"`
	StartTime       time.Time  `json:"start_time"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          string     `json:"status"`
	CheckedInAt     *time.Time `json:"checked_in_at,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

func (a Appointment) EntityID() string { return a.ID }

// EndTime is the scheduled end of the appointment.
func (a Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Overlaps reports whether a and b are booked with the same provider at
// intersecting times. Cancelled and no-show appointments never overlap.
func (a Appointment) Overlaps(b Appointment) bool {
	if a.ID == b.ID || !strings.EqualFold(a.ProviderName, b.ProviderName) {
		return false
	}
	if !a.holdsSlot() || !b.holdsSlot() {
		return false
	}
	return a.StartTime.Before(b.EndTime()) && b.StartTime.Before(a.EndTime())
}

func (a Appointment) holdsSlot() bool {
	return a.Status != StatusCancelled && a.Status != StatusNoShow
}

// Badge is the display form of an appointment status.
type Badge struct {
	Label string `json:"label"`
	Tone  string `json:"tone"`
}

var badges = map[string]Badge{
	StatusScheduled:  {"Scheduled", "info"},
	StatusConfirmed:  {"Confirmed", "primary"},
	StatusCheckedIn:  {"Checked In", "warning"},
	StatusInProgress: {"In Progress", "primary"},
	StatusCompleted:  {"Completed", "success"},
	StatusCancelled:  {"Cancelled", "error"},
	StatusNoShow:     {"No Show", "error"},
}

// StatusBadge maps an API status to its badge. Unknown statuses keep their
// text with a neutral tone.
func StatusBadge(status string) Badge {
	if b, ok := badges[status]; ok {
		return b
	}
	label := strings.TrimSpace(strings.ReplaceAll(status, "_", " "))
	if label == "" {
		label = "Unknown"
	}
	return Badge{Label: label, Tone: "neutral"}
}

// transitions lists the statuses each status may move to.
var transitions = map[string][]string{
	StatusScheduled:  {StatusConfirmed, StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusConfirmed:  {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn:  {StatusInProgress},
	StatusInProgress: {StatusCompleted},
}

// CanTransition reports whether an appointment may move from one status to
// another. Staying in the same status is always allowed.
func CanTransition(from, to string) bool {
	return from == to || slices.Contains(transitions[from], to)
}

// Form is the modal copy of an appointment. StartTime accepts RFC 3339 or
// the "2006-01-02T15:04" value of a datetime-local input.
type Form struct {
	PatientName     string `json:"patient_name"`
	ProviderName    string `json:"provider_name"`
	ServiceName     string `json:"service_name"`
	StartTime       string `json:"start_time"`
	DurationMinutes string `json:"duration_minutes"`
	Notes           string `json:"notes"`
}

const localDateTime = "2006-01-02T15:04"

func NewForm() *Form {
	return &Form{DurationMinutes: "30"}
}

func (f *Form) SetField(key, value string) error {
	switch key {
	case "patient_name":
		f.PatientName = value
	case "provider_name":
		f.ProviderName = value
	case "service_name":
		f.ServiceName = value
	case "start_time":
		f.StartTime = value
	case "duration_minutes":
		f.DurationMinutes = value
	case "notes":
		f.Notes = value
	default:
		return fmt.Errorf("scheduling: unknown field %q", key)
	}
	return nil
}

func (f *Form) Validate() error {
	switch {
	case strings.TrimSpace(f.PatientName) == "":
		return ErrPatientRequired
	case strings.TrimSpace(f.ProviderName) == "":
		return ErrProviderRequired
	case strings.TrimSpace(f.ServiceName) == "":
		return ErrServiceRequired
	}
	if _, ok := parseStart(f.StartTime); !ok {
		return ErrInvalidStart
	}
	if n, err := strconv.Atoi(strings.TrimSpace(f.DurationMinutes)); err != nil || n <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

func parseStart(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(localDateTime, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// Build creates a scheduled appointment. Call only after Validate.
func (f *Form) Build(id string) Appointment {
	return f.Merge(Appointment{ID: id, Status: StatusScheduled})
}

func (f *Form) Merge(a Appointment) Appointment {
	a.PatientName = strings.TrimSpace(f.PatientName)
	a.ProviderName = strings.TrimSpace(f.ProviderName)
	a.ServiceName = strings.TrimSpace(f.ServiceName)
	if t, ok := parseStart(f.StartTime); ok {
		a.StartTime = t
	}
	if n, err := strconv.Atoi(strings.TrimSpace(f.DurationMinutes)); err == nil && n > 0 {
		a.DurationMinutes = n
	}
	a.Notes = f.Notes
	return a
}

func (f *Form) Clone() *Form {
	c := *f
	return &c
}

func fromAppointment(a Appointment) *Form {
	return &Form{
		PatientName:     a.PatientName,
		ProviderName:    a.ProviderName,
		ServiceName:     a.ServiceName,
		StartTime:       a.StartTime.UTC().Format(time.RFC3339),
		DurationMinutes: strconv.Itoa(a.DurationMinutes),
		Notes:           a.Notes,
	}
}
