package staff

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is a Repository kept in process memory. It backs development
// servers started without a database.
type MemoryRepo struct {
	mu      sync.RWMutex
	members map[string]Member
}

func NewMemoryRepo(seed ...Member) *MemoryRepo {
	r := &MemoryRepo{members: make(map[string]Member)}
	for _, m := range seed {
		r.members[m.ID] = m
	}
	return r
}

func (r *MemoryRepo) Create(_ context.Context, m *Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[m.ID] = *m
	return nil
}

func (r *MemoryRepo) Update(_ context.Context, m *Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.members[m.ID]
	if !ok || cur.ClinicID != m.ClinicID {
		return ErrNotFound
	}
	r.members[m.ID] = *m
	return nil
}

func (r *MemoryRepo) Delete(_ context.Context, clinicID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.members[id]
	if !ok || cur.ClinicID != clinicID {
		return ErrNotFound
	}
	delete(r.members, id)
	return nil
}

func (r *MemoryRepo) GetByEmail(_ context.Context, clinicID, email string) (*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if m.ClinicID == clinicID && strings.EqualFold(m.Email, email) {
			m := m
			return &m, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepo) ListByClinic(_ context.Context, clinicID string) ([]*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Member
	for _, m := range r.members {
		if m.ClinicID == clinicID {
			m := m
			out = append(out, &m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
