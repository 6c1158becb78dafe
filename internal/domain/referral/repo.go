package referral

import (
	"context"

	"github.com/google/uuid"
)

// Repository reads referral criteria. Criteria are maintained outside
// careflow.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Criteria, error)
	List(ctx context.Context, f Filter) ([]*Criteria, error)
}
