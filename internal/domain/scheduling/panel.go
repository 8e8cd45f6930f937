package scheduling

import (
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/clinicconsole/internal/platform/notification"
	"github.com/ehr/clinicconsole/internal/platform/panel"
)

const PanelName = "appointments"

type Panel = panel.Panel[Appointment, *Form]

// NewPanel creates the appointments panel on top of backend. now stamps the
// check-in, start and completion times written by the workflow actions.
func NewPanel(backend panel.Backend[Appointment], now func() time.Time, n notification.Notifier, obs panel.MutationObserver, logger zerolog.Logger) *Panel {
	if now == nil {
		now = time.Now
	}
	return panel.New(panel.Config[Appointment, *Form]{
		Name:  PanelName,
		Title: "Appointment",
		Template: panel.Template[Appointment, *Form]{
			Blank:      NewForm,
			FromEntity: fromAppointment,
		},
		Backend:  backend,
		Actions:  Actions(now),
		Notifier: n,
		Observer: obs,
		Logger:   logger,
	})
}

// Actions returns the visit workflow transitions.
func Actions(now func() time.Time) []panel.Action[Appointment] {
	stamp := func(set func(*Appointment, *time.Time)) func(Appointment) Appointment {
		return func(a Appointment) Appointment {
			t := now().UTC()
			set(&a, &t)
			return a
		}
	}
	return []panel.Action[Appointment]{
		transition("confirm", "Confirm Appointment", "Appointment confirmed", StatusConfirmed, nil),
		transition("check_in", "Check In Patient", "Patient checked in", StatusCheckedIn,
			stamp(func(a *Appointment, t *time.Time) { a.CheckedInAt = t })),
		transition("start", "Start Visit", "Visit started", StatusInProgress,
			stamp(func(a *Appointment, t *time.Time) { a.StartedAt = t })),
		transition("complete", "Complete Visit", "Visit completed", StatusCompleted,
			stamp(func(a *Appointment, t *time.Time) { a.CompletedAt = t })),
		transition("cancel", "Cancel Appointment", "Appointment cancelled", StatusCancelled, nil),
		transition("no_show", "Mark as No Show", "Appointment marked as no show", StatusNoShow, nil),
	}
}

func transition(name, title, message, to string, extra func(Appointment) Appointment) panel.Action[Appointment] {
	return panel.Action[Appointment]{
		Name:    name,
		Title:   title,
		Message: message,
		Allowed: func(a Appointment) bool {
			return slices.Contains(transitions[a.Status], to)
		},
		Apply: func(a Appointment) Appointment {
			a.Status = to
			if extra != nil {
				a = extra(a)
			}
			return a
		},
	}
}
