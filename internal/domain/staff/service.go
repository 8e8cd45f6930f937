package staff

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicconsole/internal/platform/hooks"
	"github.com/ehr/clinicconsole/internal/platform/notification"
)

const (
	MsgDuplicateEmail = "A staff member with this email already exists"
	MsgNotFound       = "Staff member not found"
)

type Service struct {
	repo      Repository
	mailer    notification.EmailSender
	templates *notification.TemplateEngine
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// SetMailer enables the e-mail sent to newly added members.
func (s *Service) SetMailer(sender notification.EmailSender, templates *notification.TemplateEngine) {
	s.mailer = sender
	s.templates = templates
}

// Members returns the clinic's staff.
func (s *Service) Members(ctx context.Context, clinicID string) ([]Member, error) {
	ptrs, err := s.repo.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	out := make([]Member, 0, len(ptrs))
	for _, m := range ptrs {
		out = append(out, *m)
	}
	return out, nil
}

// Backend returns the staff data hooks scoped to one clinic.
func (s *Service) Backend(clinicID, clinicName string) *Backend {
	return &Backend{svc: s, clinicID: clinicID, clinicName: clinicName}
}

// Backend implements the staff panel's data hooks for one clinic.
type Backend struct {
	svc        *Service
	clinicID   string
	clinicName string
}

func (b *Backend) List(ctx context.Context) (hooks.Result[[]Member], error) {
	members, err := b.svc.Members(ctx, b.clinicID)
	if err != nil {
		return hooks.Result[[]Member]{}, err
	}
	return hooks.OK(members), nil
}

func (b *Backend) Create(ctx context.Context, m Member) (hooks.Result[Member], error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.ClinicID = b.clinicID
	m.JoinedAt = b.svc.now().UTC()

	taken, err := b.emailTaken(ctx, m)
	if err != nil {
		return hooks.Result[Member]{}, err
	}
	if taken {
		return hooks.Fail[Member](MsgDuplicateEmail), nil
	}
	if err := b.svc.repo.Create(ctx, &m); err != nil {
		return hooks.Result[Member]{}, err
	}
	b.svc.logger.Info().Str("clinic_id", m.ClinicID).Str("member_id", m.ID).Str("role", m.Role).Msg("staff member added")
	b.invite(ctx, m)
	return hooks.OK(m), nil
}

func (b *Backend) Update(ctx context.Context, m Member) (hooks.Result[Member], error) {
	m.ClinicID = b.clinicID
	taken, err := b.emailTaken(ctx, m)
	if err != nil {
		return hooks.Result[Member]{}, err
	}
	if taken {
		return hooks.Fail[Member](MsgDuplicateEmail), nil
	}
	err = b.svc.repo.Update(ctx, &m)
	if errors.Is(err, ErrNotFound) {
		return hooks.Fail[Member](MsgNotFound), nil
	}
	if err != nil {
		return hooks.Result[Member]{}, err
	}
	return hooks.OK(m), nil
}

func (b *Backend) Delete(ctx context.Context, id string) (hooks.Result[string], error) {
	err := b.svc.repo.Delete(ctx, b.clinicID, id)
	if errors.Is(err, ErrNotFound) {
		return hooks.Fail[string](MsgNotFound), nil
	}
	if err != nil {
		return hooks.Result[string]{}, err
	}
	return hooks.OK(id), nil
}

// emailTaken reports whether another member of the clinic uses m's e-mail.
func (b *Backend) emailTaken(ctx context.Context, m Member) (bool, error) {
	existing, err := b.svc.repo.GetByEmail(ctx, b.clinicID, m.Email)
	switch {
	case errors.Is(err, ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return existing.ID != m.ID, nil
}

func (b *Backend) invite(ctx context.Context, m Member) {
	s := b.svc
	if s.mailer == nil || s.templates == nil {
		return
	}
	subject, body, err := s.templates.Render(notification.TemplateStaffInvited, map[string]string{
		"staff_name":  m.Name,
		"clinic_name": b.clinicName,
		"role":        strings.ReplaceAll(m.Role, "_", " "),
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("render staff invitation")
		return
	}
	if err := s.mailer.Send(ctx, notification.EmailMessage{To: m.Email, ToName: m.Name, Subject: subject, Body: body}); err != nil {
		s.logger.Warn().Err(err).Str("member_id", m.ID).Msg("staff invitation not sent")
	}
}
