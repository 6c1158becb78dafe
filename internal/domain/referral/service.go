package referral

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Criteria, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns criteria, optionally only those for one diagnosis.
func (s *Service) List(ctx context.Context, diagnosis *string, activeOnly bool) ([]*Criteria, error) {
	f := Filter{ActiveOnly: activeOnly}
	if diagnosis != nil {
		f.Diagnosis = strings.TrimSpace(*diagnosis)
	}
	items, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Criteria{}
	}
	return items, nil
}

// MatchDiagnosis returns the ids of active criteria whose diagnosis equals
// any of keys, ignoring case. Each id appears once.
func (s *Service) MatchDiagnosis(ctx context.Context, keys ...string) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			continue
		}
		items, err := s.repo.List(ctx, Filter{Diagnosis: k, ActiveOnly: true})
		if err != nil {
			return nil, err
		}
		for _, c := range items {
			if !seen[c.ID] {
				seen[c.ID] = true
				ids = append(ids, c.ID)
			}
		}
	}
	return ids, nil
}
