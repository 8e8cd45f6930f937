package staff

import (
	"github.com/rs/zerolog"

	"github.com/ehr/clinicconsole/internal/platform/notification"
	"github.com/ehr/clinicconsole/internal/platform/panel"
)

const PanelName = "staff"

type Panel = panel.Panel[Member, *Form]

// NewPanel creates the staff panel on top of backend. The panel starts empty
// until it is refreshed.
func NewPanel(backend panel.Backend[Member], n notification.Notifier, obs panel.MutationObserver, logger zerolog.Logger) *Panel {
	return panel.New(panel.Config[Member, *Form]{
		Name:  PanelName,
		Title: "Staff Member",
		Template: panel.Template[Member, *Form]{
			Blank:      NewForm,
			FromEntity: fromMember,
		},
		Backend: backend,
		Actions: []panel.Action[Member]{
			{
				Name:    "deactivate",
				Title:   "Deactivate Staff Member",
				Message: "Staff member deactivated",
				Allowed: func(m Member) bool { return m.Status != StatusInactive },
				Apply: func(m Member) Member {
					m.Status = StatusInactive
					return m
				},
			},
			{
				Name:    "activate",
				Title:   "Activate Staff Member",
				Message: "Staff member activated",
				Allowed: func(m Member) bool { return m.Status != StatusActive },
				Apply: func(m Member) Member {
					m.Status = StatusActive
					return m
				},
			},
		},
		Notifier: n,
		Observer: obs,
		Logger:   logger,
	})
}
