package scheduling

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is a Repository kept in process memory. It backs development
// servers started without a database.
type MemoryRepo struct {
	mu    sync.RWMutex
	appts map[string]Appointment
}

func NewMemoryRepo(seed ...Appointment) *MemoryRepo {
	r := &MemoryRepo{appts: make(map[string]Appointment)}
	for _, a := range seed {
		r.appts[a.ID] = a
	}
	return r
}

func (r *MemoryRepo) Create(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appts[a.ID] = *a
	return nil
}

func (r *MemoryRepo) Update(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.appts[a.ID]
	if !ok || cur.ClinicID != a.ClinicID {
		return ErrNotFound
	}
	r.appts[a.ID] = *a
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, clinicID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.appts[id]
	if !ok || cur.ClinicID != clinicID {
		return ErrNotFound
	}
	delete(r.appts, id)
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, clinicID, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.appts[id]
	if !ok || a.ClinicID != clinicID {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (r *MemoryRepo) ListByClinic(_ context.Context, clinicID string) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Appointment
	for _, a := range r.appts {
		if a.ClinicID == clinicID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}
