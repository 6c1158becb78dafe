package referral

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperr"
)

type criteriaRepoMemory struct {
	mu    sync.RWMutex
	items []*Criteria
}

// NewRepoMemory returns a read-only repository over the given criteria.
func NewRepoMemory(items ...*Criteria) Repository {
	r := &criteriaRepoMemory{}
	for _, c := range items {
		cp := *c
		r.items = append(r.items, &cp)
	}
	sort.SliceStable(r.items, func(i, j int) bool {
		return r.items[i].Diagnosis < r.items[j].Diagnosis
	})
	return r
}

func (r *criteriaRepoMemory) GetByID(_ context.Context, id uuid.UUID) (*Criteria, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.items {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("referral criteria", id)
}

func (r *criteriaRepoMemory) List(_ context.Context, f Filter) ([]*Criteria, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Criteria
	for _, c := range r.items {
		if f.ActiveOnly && !c.IsActive {
			continue
		}
		if f.Diagnosis != "" && !strings.EqualFold(c.Diagnosis, f.Diagnosis) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}
