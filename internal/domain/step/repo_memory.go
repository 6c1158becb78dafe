package step

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/pkg/pagination"
)

type stepRepoMemory struct {
	mu    sync.RWMutex
	order []uuid.UUID
	store map[uuid.UUID]*Step
}

// NewRepoMemory returns an in-process repository with the same uniqueness
// and ordering rules as the PostgreSQL one.
func NewRepoMemory() Repository {
	return &stepRepoMemory{store: make(map[uuid.UUID]*Step)}
}

func clone(s *Step) *Step {
	c := *s
	c.Tags = append([]string{}, s.Tags...)
	if s.DurationMinutes != nil {
		d := *s.DurationMinutes
		c.DurationMinutes = &d
	}
	return &c
}

// activeNameTaken must be called with mu held.
func (r *stepRepoMemory) activeNameTaken(name string, except uuid.UUID) bool {
	for id, s := range r.store {
		if id != except && s.IsActive && strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

func (r *stepRepoMemory) Create(_ context.Context, s *Step) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.IsActive && r.activeNameTaken(s.Name, uuid.Nil) {
		return apperr.DuplicateName("step", s.Name)
	}
	s.ID = uuid.New()
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	r.store[s.ID] = clone(s)
	r.order = append(r.order, s.ID)
	return nil
}

func (r *stepRepoMemory) GetByID(_ context.Context, id uuid.UUID) (*Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.store[id]
	if !ok {
		return nil, apperr.NotFound("step", id)
	}
	return clone(s), nil
}

func (r *stepRepoMemory) Update(_ context.Context, s *Step) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[s.ID]; !ok {
		return apperr.NotFound("step", s.ID)
	}
	if s.IsActive && r.activeNameTaken(s.Name, s.ID) {
		return apperr.DuplicateName("step", s.Name)
	}
	s.UpdatedAt = time.Now().UTC()
	r.store[s.ID] = clone(s)
	return nil
}

func (r *stepRepoMemory) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[id]; !ok {
		return apperr.NotFound("step", id)
	}
	delete(r.store, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *stepRepoMemory) List(_ context.Context, f Filter, limit, offset int) ([]*Step, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*Step
	for _, id := range r.order {
		s := r.store[id]
		if f.StepType != "" && s.StepType != f.StepType {
			continue
		}
		if f.Category != "" && s.Category != f.Category {
			continue
		}
		if f.Active != nil && s.IsActive != *f.Active {
			continue
		}
		matched = append(matched, clone(s))
	}
	start, end := pagination.Params{Skip: offset, Limit: limit}.Window(len(matched))
	return matched[start:end], len(matched), nil
}

func (r *stepRepoMemory) FindByName(_ context.Context, name string, activeOnly bool) (*Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *Step
	for _, id := range r.order {
		s := r.store[id]
		if !strings.EqualFold(s.Name, name) || (activeOnly && !s.IsActive) {
			continue
		}
		if s.IsActive {
			return clone(s), nil
		}
		if found == nil {
			found = s
		}
	}
	if found == nil {
		return nil, nil
	}
	return clone(found), nil
}

func (r *stepRepoMemory) ListCategories(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, s := range r.store {
		if s.IsActive && s.Category != "" && !seen[s.Category] {
			seen[s.Category] = true
			out = append(out, s.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}
