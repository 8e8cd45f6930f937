// Package console holds the per-user view state of the clinic console: the
// clinic registration wizard and the entity panels, kept in server-side
// sessions and driven over HTTP.
package console

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/clinicconsole/internal/domain/catalog"
	"github.com/ehr/clinicconsole/internal/domain/clinic"
	"github.com/ehr/clinicconsole/internal/domain/contacts"
	"github.com/ehr/clinicconsole/internal/domain/medication"
	"github.com/ehr/clinicconsole/internal/domain/scheduling"
	"github.com/ehr/clinicconsole/internal/domain/staff"
	"github.com/ehr/clinicconsole/internal/platform/auth"
	"github.com/ehr/clinicconsole/internal/platform/notification"
	"github.com/ehr/clinicconsole/internal/platform/panel"
	"github.com/ehr/clinicconsole/internal/platform/telemetry"
)

// Deps are the collaborators shared by every session.
type Deps struct {
	Clinics      *clinic.Service
	Staff        *staff.Service
	Appointments *scheduling.Service
	Center       *notification.Center
	Metrics      *telemetry.Metrics
	Logger       zerolog.Logger
	Now          func() time.Time
	// ClinicName resolves the display name used in staff invitations.
	ClinicName func(clinicID string) string
}

func (d Deps) clinicName(id string) string {
	if d.ClinicName != nil {
		return d.ClinicName(id)
	}
	return id
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Session is one user's console state.
type Session struct {
	ID        string
	User      auth.CurrentUser
	CreatedAt time.Time

	Wizard *clinic.Wizard

	mu       sync.Mutex
	lastSeen time.Time
	panels   map[string]panel.Controller
	order    []string
}

var managementRoles = []string{auth.RoleAdmin, auth.RoleClinicAdmin, auth.RoleManager}

// NewSession builds the wizard and the panels visible to user. Panels backed
// by a service start empty until Refresh is called.
func NewSession(id string, user auth.CurrentUser, deps Deps) *Session {
	n := deps.Center.For(id)
	logger := deps.Logger.With().Str("session_id", id).Str("user_id", user.ID).Logger()
	now := deps.now()

	s := &Session{
		ID:        id,
		User:      user,
		CreatedAt: now,
		lastSeen:  now,
		panels:    make(map[string]panel.Controller),
		Wizard:    clinic.NewWizard(deps.Clinics, user.ID, n, deps.Metrics, logger),
	}

	s.add(contacts.NewPanel(contacts.SampleContacts(), n, deps.Metrics, logger))
	s.add(medication.NewPanel(medication.SampleMedications(), deps.Now, n, deps.Metrics, logger))

	if !slices.ContainsFunc(auth.StaffRoles, user.HasRole) {
		return s
	}
	s.add(catalog.NewPanel(catalog.SampleOfferings(), n, deps.Metrics, logger))
	if deps.Appointments != nil {
		s.add(scheduling.NewPanel(deps.Appointments.Backend(user.ClinicID), deps.Now, n, deps.Metrics, logger))
	}
	if deps.Staff != nil && slices.ContainsFunc(managementRoles, user.HasRole) {
		s.add(staff.NewPanel(deps.Staff.Backend(user.ClinicID, deps.clinicName(user.ClinicID)), n, deps.Metrics, logger))
	}
	return s
}

func (s *Session) add(c panel.Controller) {
	s.panels[c.Name()] = c
	s.order = append(s.order, c.Name())
}

// Panel returns the named panel.
func (s *Session) Panel(name string) (panel.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.panels[name]
	return c, ok
}

// PanelNames lists the session's panels in display order.
func (s *Session) PanelNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

// RefreshAll loads every backed panel. The first error is returned after all
// panels were tried.
func (s *Session) RefreshAll(ctx context.Context) error {
	var first error
	for _, name := range s.PanelNames() {
		c, _ := s.Panel(name)
		if err := c.Refresh(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// close unmounts the wizard and every panel so late backend results are
// discarded.
func (s *Session) close() {
	s.Wizard.Unmount()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.panels {
		c.Unmount()
	}
}

// View is the client-facing summary of a session.
type View struct {
	ID        string           `json:"id"`
	User      auth.CurrentUser `json:"user"`
	CreatedAt time.Time        `json:"created_at"`
	Panels    []string         `json:"panels"`
	Wizard    any              `json:"registration"`
}

func (s *Session) View() View {
	return View{
		ID:        s.ID,
		User:      s.User,
		CreatedAt: s.CreatedAt,
		Panels:    s.PanelNames(),
		Wizard:    s.Wizard.Snapshot(),
	}
}
