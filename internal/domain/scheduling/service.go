package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicconsole/internal/platform/hooks"
)

const (
	MsgNotFound    = "Appointment not found"
	MsgConflict    = "The provider already has an appointment at this time"
	MsgLockedVisit = "Appointments in progress or completed cannot be deleted"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Appointments returns the clinic's appointments ordered by start time.
func (s *Service) Appointments(ctx context.Context, clinicID string) ([]Appointment, error) {
	ptrs, err := s.repo.ListByClinic(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	out := make([]Appointment, 0, len(ptrs))
	for _, a := range ptrs {
		out = append(out, *a)
	}
	return out, nil
}

// Backend returns the appointment data hooks scoped to one clinic.
func (s *Service) Backend(clinicID string) *Backend {
	return &Backend{svc: s, clinicID: clinicID}
}

// Backend implements the appointments panel's data hooks for one clinic.
type Backend struct {
	svc      *Service
	clinicID string
}

func (b *Backend) List(ctx context.Context) (hooks.Result[[]Appointment], error) {
	appts, err := b.svc.Appointments(ctx, b.clinicID)
	if err != nil {
		return hooks.Result[[]Appointment]{}, err
	}
	return hooks.OK(appts), nil
}

func (b *Backend) Create(ctx context.Context, a Appointment) (hooks.Result[Appointment], error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.ClinicID = b.clinicID
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	conflict, err := b.conflicts(ctx, a)
	if err != nil {
		return hooks.Result[Appointment]{}, err
	}
	if conflict {
		return hooks.Fail[Appointment](MsgConflict), nil
	}
	if err := b.svc.repo.Create(ctx, &a); err != nil {
		return hooks.Result[Appointment]{}, err
	}
	b.svc.logger.Info().Str("clinic_id", a.ClinicID).Str("appointment_id", a.ID).Msg("appointment booked")
	return hooks.OK(a), nil
}

// Update stores a. Status changes must follow the visit workflow.
func (b *Backend) Update(ctx context.Context, a Appointment) (hooks.Result[Appointment], error) {
	a.ClinicID = b.clinicID
	stored, err := b.svc.repo.GetByID(ctx, b.clinicID, a.ID)
	if errors.Is(err, ErrNotFound) {
		return hooks.Fail[Appointment](MsgNotFound), nil
	}
	if err != nil {
		return hooks.Result[Appointment]{}, err
	}
	if !CanTransition(stored.Status, a.Status) {
		return hooks.Fail[Appointment](fmt.Sprintf("Cannot change an appointment from %s to %s",
			StatusBadge(stored.Status).Label, StatusBadge(a.Status).Label)), nil
	}
	conflict, err := b.conflicts(ctx, a)
	if err != nil {
		return hooks.Result[Appointment]{}, err
	}
	if conflict {
		return hooks.Fail[Appointment](MsgConflict), nil
	}
	err = b.svc.repo.Update(ctx, &a)
	if errors.Is(err, ErrNotFound) {
		return hooks.Fail[Appointment](MsgNotFound), nil
	}
	if err != nil {
		return hooks.Result[Appointment]{}, err
	}
	if stored.Status != a.Status {
		b.svc.logger.Info().Str("appointment_id", a.ID).Str("from", stored.Status).Str("to", a.Status).Msg("appointment status changed")
	}
	return hooks.OK(a), nil
}

func (b *Backend) Delete(ctx context.Context, id string) (hooks.Result[string], error) {
	stored, err := b.svc.repo.GetByID(ctx, b.clinicID, id)
	if errors.Is(err, ErrNotFound) {
		return hooks.Fail[string](MsgNotFound), nil
	}
	if err != nil {
		return hooks.Result[string]{}, err
	}
	if stored.Status == StatusInProgress || stored.Status == StatusCompleted {
		return hooks.Fail[string](MsgLockedVisit), nil
	}
	if err := b.svc.repo.Delete(ctx, b.clinicID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return hooks.Fail[string](MsgNotFound), nil
		}
		return hooks.Result[string]{}, err
	}
	return hooks.OK(id), nil
}

func (b *Backend) conflicts(ctx context.Context, a Appointment) (bool, error) {
	existing, err := b.svc.repo.ListByClinic(ctx, b.clinicID)
	if err != nil {
		return false, err
	}
	for _, other := range existing {
		if a.Overlaps(*other) {
			return true, nil
		}
	}
	return false, nil
}
