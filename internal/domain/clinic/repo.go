package clinic

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("clinic registration not found")

// Repository defines the persistence interface for clinic registrations.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id string) (*Record, error)
	GetByEmail(ctx context.Context, email string) (*Record, error)
	List(ctx context.Context, limit, offset int) ([]*Record, int, error)
	UpdateStatus(ctx context.Context, id, status string) error
}
