// Package contacts manages a patient's emergency contacts. At most one
// contact is the primary contact.
package contacts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ehr/clinicconsole/internal/platform/hooks"
	"github.com/ehr/clinicconsole/internal/platform/notification"
	"github.com/ehr/clinicconsole/internal/platform/panel"
)

// Validation messages of the contact form.
const (
	ErrNameRequired         hooks.Invalid = "Name is required"
	ErrRelationshipRequired hooks.Invalid = "Relationship is required"
	ErrPhoneRequired        hooks.Invalid = "Phone number is required"
	ErrInvalidEmail         hooks.Invalid = "Please enter a valid email address"
)

// PanelName is the key of the contacts panel in a console session.
const PanelName = "contacts"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Contact struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	IsPrimary    bool   `json:"is_primary"`
}

func (c Contact) EntityID() string { return c.ID }

// Form is the modal copy of a contact.
type Form struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	IsPrimary    bool   `json:"is_primary"`
}

func (f *Form) SetField(key, value string) error {
	switch key {
	case "name":
		f.Name = value
	case "relationship":
		f.Relationship = value
	case "phone":
		f.Phone = value
	case "email":
		f.Email = value
	case "is_primary":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("is_primary: %w", err)
		}
		f.IsPrimary = b
	default:
		return fmt.Errorf("contacts: unknown field %q", key)
	}
	return nil
}

func (f *Form) Validate() error {
	switch {
	case strings.TrimSpace(f.Name) == "":
		return ErrNameRequired
	case strings.TrimSpace(f.Relationship) == "":
		return ErrRelationshipRequired
	case strings.TrimSpace(f.Phone) == "":
		return ErrPhoneRequired
	case f.Email != "" && !emailPattern.MatchString(f.Email):
		return ErrInvalidEmail
	}
	return nil
}

func (f *Form) Build(id string) Contact {
	return f.Merge(Contact{ID: id})
}

func (f *Form) Merge(c Contact) Contact {
	c.Name = strings.TrimSpace(f.Name)
	c.Relationship = f.Relationship
	c.Phone = strings.TrimSpace(f.Phone)
	c.Email = strings.TrimSpace(f.Email)
	c.IsPrimary = f.IsPrimary
	return c
}

func (f *Form) Clone() *Form {
	c := *f
	return &c
}

func fromContact(c Contact) *Form {
	return &Form{Name: c.Name, Relationship: c.Relationship, Phone: c.Phone, Email: c.Email, IsPrimary: c.IsPrimary}
}

// Panel is the emergency contacts panel.
type Panel = panel.Panel[Contact, *Form]

// NewPanel creates a contacts panel working on local state seeded with seed.
func NewPanel(seed []Contact, n notification.Notifier, obs panel.MutationObserver, logger zerolog.Logger) *Panel {
	return panel.New(panel.Config[Contact, *Form]{
		Name:  PanelName,
		Title: "Contact",
		Template: panel.Template[Contact, *Form]{
			Blank:      func() *Form { return &Form{} },
			FromEntity: fromContact,
		},
		Seed: seed,
		Exclusive: &panel.Exclusive[Contact]{
			Label: "primary",
			Get:   func(c Contact) bool { return c.IsPrimary },
			Set: func(c Contact, on bool) Contact {
				c.IsPrimary = on
				return c
			},
		},
		Notifier: n,
		Observer: obs,
		Logger:   logger,
	})
}

// SampleContacts is the list a new session starts with.
func SampleContacts() []Contact {
	return []Contact{
		{ID: "1", Name: "Jane Doe", Relationship: "Spouse", Phone: "(555) 123-4567", Email: "jane.doe@example.com", IsPrimary: true},
		{ID: "2", Name: "John Smith", Relationship: "Brother", Phone: "(555) 987-6543", Email: "john.smith@example.com"},
	}
}
