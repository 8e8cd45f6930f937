package clinic

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ehr/clinicconsole/pkg/pagination"
)

// MemoryRepo is a Repository kept in process memory. It backs development
// servers started without a database.
type MemoryRepo struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[string]*Record)}
}

func (r *MemoryRepo) Create(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = uuid.New().String()
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	c := *rec
	r.records[rec.ID] = &c
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *rec
	return &c, nil
}

func (r *MemoryRepo) GetByEmail(_ context.Context, email string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if strings.EqualFold(rec.Email, email) {
			c := *rec
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepo) List(_ context.Context, limit, offset int) ([]*Record, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		c := *rec
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return pagination.Window(all, pagination.Params{Limit: limit, Offset: offset}), len(all), nil
}

func (r *MemoryRepo) UpdateStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.Status = status
	return nil
}
