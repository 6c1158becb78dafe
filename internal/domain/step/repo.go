package step

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists steps. Create and Update return an apperr duplicate
// name error when another active step already holds the name, compared
// case-insensitively. GetByID returns an apperr not-found error.
type Repository interface {
	Create(ctx context.Context, s *Step) error
	GetByID(ctx context.Context, id uuid.UUID) (*Step, error)
	Update(ctx context.Context, s *Step) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns matching steps in creation order plus the total count.
	List(ctx context.Context, f Filter, limit, offset int) ([]*Step, int, error)
	// FindByName returns the step with the given name, or nil when absent.
	FindByName(ctx context.Context, name string, activeOnly bool) (*Step, error)
	ListCategories(ctx context.Context) ([]string, error)
}

// ReferenceCounter counts the flow nodes that reference a step, either by
// step id or, for nodes without one, by the (type, category) pair.
type ReferenceCounter interface {
	CountStepReferences(ctx context.Context, stepID uuid.UUID, stepType, category string) (int, error)
}
