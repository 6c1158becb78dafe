package flow

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists flows together with their nodes and edges. Create and
// Update write the flow row and its whole graph atomically; ids are assigned
// by the caller.
type Repository interface {
	Create(ctx context.Context, f *Flow) error
	GetByID(ctx context.Context, id uuid.UUID) (*Flow, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Flow, int, error)
	Update(ctx context.Context, f *Flow) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountStepReferences(ctx context.Context, stepID uuid.UUID, stepType, category string) (int, error)
}
