// Package catalog holds the services a clinic offers, with their duration
// and price.
package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ehr/clinicconsole/internal/platform/hooks"
	"github.com/ehr/clinicconsole/internal/platform/notification"
	"github.com/ehr/clinicconsole/internal/platform/panel"
)

// Validation messages of the service form.
const (
	ErrNameRequired     hooks.Invalid = "Service name is required"
	ErrCategoryRequired hooks.Invalid = "Please select a category"
	ErrInvalidDuration  hooks.Invalid = "Duration must be a positive number of minutes"
	ErrNegativePrice    hooks.Invalid = "Price must be zero or more"
)

const PanelName = "services"

var Categories = []string{"consultation", "diagnostic", "procedure", "preventive", "therapy", "other"}

type Offering struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
	Description     string  `json:"description,omitempty"`
	Active          bool    `json:"active"`
}

func (o Offering) EntityID() string { return o.ID }

type Form struct {
	Name            string `json:"name"`
	Category        string `json:"category"`
	DurationMinutes string `json:"duration_minutes"`
	Price           string `json:"price"`
	Description     string `json:"description"`
	Active          bool   `json:"active"`
}

func NewForm() *Form {
	return &Form{Category: "consultation", DurationMinutes: "30", Price: "0", Active: true}
}

func (f *Form) SetField(key, value string) error {
	switch key {
	case "name":
		f.Name = value
	case "category":
		f.Category = value
	case "duration_minutes":
		f.DurationMinutes = value
	case "price":
		f.Price = value
	case "description":
		f.Description = value
	case "active":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("active: %w", err)
		}
		f.Active = b
	default:
		return fmt.Errorf("catalog: unknown field %q", key)
	}
	return nil
}

func (f *Form) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrNameRequired
	}
	known := false
	for _, c := range Categories {
		known = known || c == f.Category
	}
	if !known {
		return ErrCategoryRequired
	}
	if n, err := strconv.Atoi(strings.TrimSpace(f.DurationMinutes)); err != nil || n <= 0 {
		return ErrInvalidDuration
	}
	if p, err := strconv.ParseFloat(strings.TrimSpace(f.Price), 64); err != nil || p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return ErrNegativePrice
	}
	return nil
}

func (f *Form) Build(id string) Offering {
	return f.Merge(Offering{ID: id})
}

func (f *Form) Merge(o Offering) Offering {
	o.Name = strings.TrimSpace(f.Name)
	o.Category = f.Category
	if n, err := strconv.Atoi(strings.TrimSpace(f.DurationMinutes)); err == nil {
		o.DurationMinutes = n
	}
	if p, err := strconv.ParseFloat(strings.TrimSpace(f.Price), 64); err == nil {
		o.Price = math.Round(p*100) / 100
	}
	o.Description = f.Description
	o.Active = f.Active
	return o
}

func (f *Form) Clone() *Form {
	c := *f
	return &c
}

func fromOffering(o Offering) *Form {
	return &Form{
		Name:            o.Name,
		Category:        o.Category,
		DurationMinutes: strconv.Itoa(o.DurationMinutes),
		Price:           strconv.FormatFloat(o.Price, 'f', 2, 64),
		Description:     o.Description,
		Active:          o.Active,
	}
}

type Panel = panel.Panel[Offering, *Form]

func NewPanel(seed []Offering, n notification.Notifier, obs panel.MutationObserver, logger zerolog.Logger) *Panel {
	return panel.New(panel.Config[Offering, *Form]{
		Name:  PanelName,
		Title: "Service",
		Template: panel.Template[Offering, *Form]{
			Blank:      NewForm,
			FromEntity: fromOffering,
		},
		Seed: seed,
		Actions: []panel.Action[Offering]{
			{
				Name:    "archive",
				Title:   "Archive Service",
				Message: "Service archived",
				Allowed: func(o Offering) bool { return o.Active },
				Apply: func(o Offering) Offering {
					o.Active = false
					return o
				},
			},
			{
				Name:    "restore",
				Title:   "Restore Service",
				Message: "Service restored",
				Allowed: func(o Offering) bool { return !o.Active },
				Apply: func(o Offering) Offering {
					o.Active = true
					return o
				},
			},
		},
		Notifier: n,
		Observer: obs,
		Logger:   logger,
	})
}

func SampleOfferings() []Offering {
	return []Offering{
		{ID: "1", Name: "General Consultation", Category: "consultation", DurationMinutes: 30, Price: 75, Description: "Standard visit with a general practitioner", Active: true},
		{ID: "2", Name: "Blood Panel", Category: "diagnostic", DurationMinutes: 15, Price: 120, Active: true},
		{ID: "3", Name: "Flu Vaccination", Category: "preventive", DurationMinutes: 10, Price: 35, Active: true},
	}
}
