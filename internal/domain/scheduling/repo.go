package scheduling

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("appointment not found")

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, clinicID, id string) error
	GetByID(ctx context.Context, clinicID, id string) (*Appointment, error)
	ListByClinic(ctx context.Context, clinicID string) ([]*Appointment, error)
}
