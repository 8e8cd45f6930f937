package staff

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("staff member not found")

type Repository interface {
	Create(ctx context.Context, m *Member) error
	Update(ctx context.Context, m *Member) error
	Delete(ctx context.Context, clinicID, id string) error
	GetByEmail(ctx context.Context, clinicID, email string) (*Member, error)
	ListByClinic(ctx context.Context, clinicID string) ([]*Member, error)
}
