package flow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/reference"
	"github.com/careflow/careflow/pkg/pagination"
)

type flowRepoMemory struct {
	mu    sync.RWMutex
	order []uuid.UUID
	store map[uuid.UUID]*Flow
}

// NewRepoMemory returns an in-process repository with the same semantics
// as the PostgreSQL one.
func NewRepoMemory() Repository {
	return &flowRepoMemory{store: make(map[uuid.UUID]*Flow)}
}

func strPtrCopy(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneFlow(f *Flow) *Flow {
	c := *f
	c.SpecialtyID = strPtrCopy(f.SpecialtyID)
	c.SpecialtyName = strPtrCopy(f.SpecialtyName)
	c.SourceID = strPtrCopy(f.SourceID)
	c.Code = strPtrCopy(f.Code)
	c.CreatedBy = strPtrCopy(f.CreatedBy)
	c.Metadata = make(map[string]interface{}, len(f.Metadata))
	for k, v := range f.Metadata {
		c.Metadata[k] = v
	}
	c.Nodes = make([]*Node, 0, len(f.Nodes))
	for _, n := range f.Nodes {
		nc := *n
		if n.StepID != nil {
			sid := *n.StepID
			nc.StepID = &sid
		}
		c.Nodes = append(c.Nodes, &nc)
	}
	c.Edges = make([]*Edge, 0, len(f.Edges))
	for _, e := range f.Edges {
		ec := *e
		c.Edges = append(c.Edges, &ec)
	}
	return &c
}

// codeTaken must be called with mu held.
func (r *flowRepoMemory) codeTaken(code *string, except uuid.UUID) bool {
	if code == nil {
		return false
	}
	for id, f := range r.store {
		if id != except && f.Code != nil && *f.Code == *code {
			return true
		}
	}
	return false
}

func stampGraph(f *Flow, now time.Time) {
	for _, n := range f.Nodes {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
	}
	for _, e := range f.Edges {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
	}
}

func (r *flowRepoMemory) Create(_ context.Context, f *Flow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.codeTaken(f.Code, uuid.Nil) {
		return apperr.DuplicateName("flow code", *f.Code)
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	stampGraph(f, now)
	stored := cloneFlow(f)
	stored.Legacy = LegacyFromGraph(f.Nodes, f.Edges)
	r.store[f.ID] = stored
	r.order = append(r.order, f.ID)
	return nil
}

func (r *flowRepoMemory) GetByID(_ context.Context, id uuid.UUID) (*Flow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.store[id]
	if !ok {
		return nil, apperr.NotFound("flow", id)
	}
	return cloneFlow(f), nil
}

func matches(f *Flow, flt Filter) bool {
	if flt.ActiveOnly && !f.IsActive {
		return false
	}
	if flt.SpecialtyID != nil && (f.SpecialtyID == nil || *f.SpecialtyID != *flt.SpecialtyID) {
		return false
	}
	if flt.SourceSystem != "" && f.SourceSystem != flt.SourceSystem {
		return false
	}
	return true
}

func (r *flowRepoMemory) List(_ context.Context, flt Filter, limit, offset int) ([]*Flow, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var all []*Flow
	for _, id := range r.order {
		if f := r.store[id]; matches(f, flt) {
			all = append(all, f)
		}
	}
	start, end := pagination.Params{Skip: offset, Limit: limit}.Window(len(all))
	out := make([]*Flow, 0, end-start)
	for _, f := range all[start:end] {
		out = append(out, cloneFlow(f))
	}
	return out, len(all), nil
}

func (r *flowRepoMemory) Update(_ context.Context, f *Flow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[f.ID]; !ok {
		return apperr.NotFound("flow", f.ID)
	}
	if r.codeTaken(f.Code, f.ID) {
		return apperr.DuplicateName("flow code", *f.Code)
	}
	now := time.Now().UTC()
	f.UpdatedAt = now
	stampGraph(f, now)
	f.LegacyOnly = false
	stored := cloneFlow(f)
	stored.Legacy = LegacyFromGraph(f.Nodes, f.Edges)
	r.store[f.ID] = stored
	return nil
}

func (r *flowRepoMemory) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.store[id]
	if !ok {
		return apperr.NotFound("flow", id)
	}
	f.IsActive = active
	f.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *flowRepoMemory) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[id]; !ok {
		return apperr.NotFound("flow", id)
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

func (r *flowRepoMemory) CountStepReferences(_ context.Context, stepID uuid.UUID, stepType, category string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byType := reference.CategoryFor(stepType) == category
	count := 0
	for _, f := range r.store {
		for _, n := range f.Nodes {
			if nodeReferences(n, stepID, stepType, byType) {
				count++
			}
		}
	}
	return count, nil
}

// nodeReferences reports whether n points at the step, either by id or,
// lacking one, by step type when the step carries its type's category.
func nodeReferences(n *Node, stepID uuid.UUID, stepType string, byType bool) bool {
	if n.StepID != nil {
		return *n.StepID == stepID
	}
	return byType && n.StepType == stepType
}
