package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/clinicconsole/internal/platform/db"
	"github.com/ehr/clinicconsole/internal/platform/hooks"
	"github.com/ehr/clinicconsole/internal/platform/notification"
)

// Messages returned to the wizard when a registration is refused.
const (
	MsgDuplicateEmail = "A clinic with this email is already registered"
	MsgMissingName    = "Clinic name is required"
	MsgInvalidEmail   = "A valid clinic email is required"
)

type Service struct {
	repo      Repository
	pool      db.Pool
	mailer    notification.EmailSender
	templates *notification.TemplateEngine
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// SetTxPool makes Register run its duplicate check and insert in one
// transaction.
func (s *Service) SetTxPool(pool db.Pool) {
	s.pool = pool
}

// SetMailer enables the confirmation e-mail sent after a registration.
func (s *Service) SetMailer(sender notification.EmailSender, templates *notification.TemplateEngine) {
	s.mailer = sender
	s.templates = templates
}

// Register stores a new registration. Data problems the caller can fix come
// back as an unsuccessful Result; storage failures come back as errors.
func (s *Service) Register(ctx context.Context, rec *Record) (hooks.Result[*Record], error) {
	if strings.TrimSpace(rec.Name) == "" {
		return hooks.Fail[*Record](MsgMissingName), nil
	}
	if !emailPattern.MatchString(rec.Email) {
		return hooks.Fail[*Record](MsgInvalidEmail), nil
	}

	duplicate := false
	store := func(ctx context.Context) error {
		_, err := s.repo.GetByEmail(ctx, rec.Email)
		switch {
		case err == nil:
			duplicate = true
			return nil
		case !errors.Is(err, ErrNotFound):
			return fmt.Errorf("check clinic email: %w", err)
		}
		return s.repo.Create(ctx, rec)
	}

	var err error
	if s.pool != nil {
		err = db.WithTx(ctx, s.pool, store)
	} else {
		err = store(ctx)
	}
	if err != nil {
		return hooks.Result[*Record]{}, err
	}
	if duplicate {
		return hooks.Fail[*Record](MsgDuplicateEmail), nil
	}

	s.logger.Info().Str("clinic_id", rec.ID).Str("submitted_by", rec.SubmittedBy).Msg("clinic registered")
	s.sendConfirmation(ctx, rec)
	return hooks.OK(rec), nil
}

// sendConfirmation mails the contact person. Failures are logged only.
func (s *Service) sendConfirmation(ctx context.Context, rec *Record) {
	if s.mailer == nil || s.templates == nil {
		return
	}
	to := rec.ContactPerson.Email
	if to == "" {
		to = rec.Email
	}
	subject, body, err := s.templates.Render(notification.TemplateClinicRegistered, map[string]string{
		"clinic_name":  rec.Name,
		"contact_name": rec.ContactPerson.Name,
		"reference":    rec.ID,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("render registration e-mail")
		return
	}
	msg := notification.EmailMessage{To: to, ToName: rec.ContactPerson.Name, Subject: subject, Body: body}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Warn().Err(err).Str("clinic_id", rec.ID).Msg("registration e-mail not sent")
	}
}

// Submitter returns the wizard's submission collaborator for the given user.
func (s *Service) Submitter(submittedBy string) func(context.Context, *RegistrationForm) (hooks.Result[*Record], error) {
	return func(ctx context.Context, f *RegistrationForm) (hooks.Result[*Record], error) {
		return s.Register(ctx, f.ToRecord(submittedBy, s.now()))
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Record, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Review moves a pending registration to approved or rejected.
func (s *Service) Review(ctx context.Context, id, status string) error {
	if status != StatusApproved && status != StatusRejected {
		return fmt.Errorf("invalid status %q", status)
	}
	return s.repo.UpdateStatus(ctx, id, status)
}
