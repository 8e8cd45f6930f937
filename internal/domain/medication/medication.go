// Package medication keeps the medication list shown on a patient chart.
package medication

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/clinicconsole/internal/platform/hooks"
	"github.com/ehr/clinicconsole/internal/platform/notification"
	"github.com/ehr/clinicconsole/internal/platform/panel"
)

// Validation messages of the medication form.
const (
	ErrNameRequired      hooks.Invalid = "Medication name is required"
	ErrDosageRequired    hooks.Invalid = "Dosage is required"
	ErrFrequencyRequired hooks.Invalid = "Frequency is required"
	ErrInvalidRoute      hooks.Invalid = "Please select a valid route"
	ErrInvalidStartDate  hooks.Invalid = "Start date must be a valid date"
	ErrInvalidEndDate    hooks.Invalid = "End date must be a valid date"
	ErrEndBeforeStart    hooks.Invalid = "End date cannot be before start date"
)

const PanelName = "medications"

// Routes accepted on the form.
var Routes = []string{"oral", "topical", "inhaled", "injection", "intravenous", "sublingual", "other"}

type Medication struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Dosage     string `json:"dosage"`
	Frequency  string `json:"frequency"`
	Route      string `json:"route"`
	StartDate  string `json:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
	Prescriber string `json:"prescriber,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Active     bool   `json:"active"`
}

func (m Medication) EntityID() string { return m.ID }

type Form struct {
	Name       string `json:"name"`
	Dosage     string `json:"dosage"`
	Frequency  string `json:"frequency"`
	Route      string `json:"route"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	Prescriber string `json:"prescriber"`
	Notes      string `json:"notes"`
	Active     bool   `json:"active"`
}

func (f *Form) SetField(key, value string) error {
	switch key {
	case "name":
		f.Name = value
	case "dosage":
		f.Dosage = value
	case "frequency":
		f.Frequency = value
	case "route":
		f.Route = value
	case "start_date":
		f.StartDate = value
	case "end_date":
		f.EndDate = value
	case "prescriber":
		f.Prescriber = value
	case "notes":
		f.Notes = value
	case "active":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("active: %w", err)
		}
		f.Active = b
	default:
		return fmt.Errorf("medication: unknown field %q", key)
	}
	return nil
}

func (f *Form) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(f.Dosage) == "" {
		return ErrDosageRequired
	}
	if strings.TrimSpace(f.Frequency) == "" {
		return ErrFrequencyRequired
	}
	if f.Route != "" && !validRoute(f.Route) {
		return ErrInvalidRoute
	}
	var start, end time.Time
	var err error
	if f.StartDate != "" {
		if start, err = time.Parse(time.DateOnly, f.StartDate); err != nil {
			return ErrInvalidStartDate
		}
	}
	if f.EndDate != "" {
		if end, err = time.Parse(time.DateOnly, f.EndDate); err != nil {
			return ErrInvalidEndDate
		}
		if !start.IsZero() && end.Before(start) {
			return ErrEndBeforeStart
		}
	}
	return nil
}

func validRoute(r string) bool {
	for _, v := range Routes {
		if v == r {
			return true
		}
	}
	return false
}

func (f *Form) Build(id string) Medication {
	return f.Merge(Medication{ID: id})
}

func (f *Form) Merge(m Medication) Medication {
	m.Name = strings.TrimSpace(f.Name)
	m.Dosage = strings.TrimSpace(f.Dosage)
	m.Frequency = strings.TrimSpace(f.Frequency)
	m.Route = f.Route
	m.StartDate = f.StartDate
	m.EndDate = f.EndDate
	m.Prescriber = f.Prescriber
	m.Notes = f.Notes
	m.Active = f.Active
	return m
}

func (f *Form) Clone() *Form {
	c := *f
	return &c
}

// NewForm returns the add-modal template: an active oral medication.
func NewForm() *Form {
	return &Form{Route: "oral", Active: true}
}

func fromMedication(m Medication) *Form {
	return &Form{
		Name: m.Name, Dosage: m.Dosage, Frequency: m.Frequency, Route: m.Route,
		StartDate: m.StartDate, EndDate: m.EndDate, Prescriber: m.Prescriber,
		Notes: m.Notes, Active: m.Active,
	}
}

type Panel = panel.Panel[Medication, *Form]

// NewPanel creates the medication panel. today supplies the end date written
// by the discontinue action.
func NewPanel(seed []Medication, today func() time.Time, n notification.Notifier, obs panel.MutationObserver, logger zerolog.Logger) *Panel {
	if today == nil {
		today = time.Now
	}
	return panel.New(panel.Config[Medication, *Form]{
		Name:  PanelName,
		Title: "Medication",
		Template: panel.Template[Medication, *Form]{
			Blank:      NewForm,
			FromEntity: fromMedication,
		},
		Seed: seed,
		Actions: []panel.Action[Medication]{
			{
				Name:    "discontinue",
				Title:   "Discontinue Medication",
				Message: "Medication discontinued",
				Allowed: func(m Medication) bool { return m.Active },
				Apply: func(m Medication) Medication {
					m.Active = false
					m.EndDate = today().Format(time.DateOnly)
					return m
				},
			},
			{
				Name:    "resume",
				Title:   "Resume Medication",
				Message: "Medication resumed",
				Allowed: func(m Medication) bool { return !m.Active },
				Apply: func(m Medication) Medication {
					m.Active = true
					m.EndDate = ""
					return m
				},
			},
		},
		Notifier: n,
		Observer: obs,
		Logger:   logger,
	})
}

func SampleMedications() []Medication {
	return []Medication{
		{ID: "1", Name: "Lisinopril", Dosage: "10 mg", Frequency: "Once daily", Route: "oral", StartDate: "2024-01-15", Prescriber: "Dr. Sarah Johnson", Active: true},
		{ID: "2", Name: "Metformin", Dosage: "500 mg", Frequency: "Twice daily", Route: "oral", StartDate: "2023-11-02", Prescriber: "Dr. Sarah Johnson", Notes: "Take with meals", Active: true},
		{ID: "3", Name: "Amoxicillin", Dosage: "250 mg", Frequency: "Three times daily", Route: "oral", StartDate: "2024-03-01", EndDate: "2024-03-10", Prescriber: "Dr. Michael Chen"},
	}
}
