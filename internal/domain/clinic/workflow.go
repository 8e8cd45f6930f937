package clinic

import (
	"github.com/rs/zerolog"

	"github.com/ehr/clinicconsole/internal/platform/notification"
	"github.com/ehr/clinicconsole/internal/platform/stepform"
)

// WorkflowName labels the registration wizard in logs and metrics.
const WorkflowName = "clinic_registration"

// Wizard is the clinic registration stepped form.
type Wizard = stepform.Workflow[*RegistrationForm, *Record]

// NewWizard builds the registration wizard for one user session.
func NewWizard(svc *Service, submittedBy string, n notification.Notifier, obs stepform.SubmissionObserver, logger zerolog.Logger) *Wizard {
	return stepform.New(stepform.Config[*RegistrationForm, *Record]{
		Name:           WorkflowName,
		NewForm:        NewRegistrationForm,
		Submit:         svc.Submitter(submittedBy),
		Notifier:       n,
		Observer:       obs,
		Logger:         logger,
		SuccessMessage: "Clinic registration submitted successfully",
		FailureMessage: "Failed to register clinic. Please try again.",
	})
}
