package step

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/reference"
	"github.com/careflow/careflow/internal/platform/validation"
	"github.com/careflow/careflow/pkg/pagination"
)

type Service struct {
	repo Repository
	refs ReferenceCounter
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SetReferenceCounter installs the flow-side reference check used by
// DeleteStep. Without one, deletion is never blocked.
func (s *Service) SetReferenceCounter(rc ReferenceCounter) { s.refs = rc }

func (s *Service) CreateStep(ctx context.Context, spec CreateSpec) (*Step, error) {
	spec.Name = strings.TrimSpace(spec.Name)
	if err := validation.Struct(spec); err != nil {
		return nil, err
	}

	st := &Step{
		Name:            spec.Name,
		StepType:        spec.StepType,
		Description:     spec.Description,
		BaseCost:        spec.BaseCost,
		CostUnit:        spec.CostUnit,
		DurationMinutes: spec.DurationMinutes,
		Icon:            spec.Icon,
		Color:           spec.Color,
		IsActive:        true,
		Category:        spec.Category,
		Tags:            spec.Tags,
	}
	if spec.IsActive != nil {
		st.IsActive = *spec.IsActive
	}
	if st.CostUnit == "" {
		st.CostUnit = DefaultCostUnit
	}
	if st.Color == "" {
		st.Color = DefaultColor
	}
	if st.Tags == nil {
		st.Tags = []string{}
	}

	if st.IsActive {
		existing, err := s.repo.FindByName(ctx, st.Name, true)
		if err != nil {
			return nil, fmt.Errorf("check step name: %w", err)
		}
		if existing != nil {
			return nil, apperr.DuplicateName("step", st.Name)
		}
	}
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Service) GetStep(ctx context.Context, id uuid.UUID) (*Step, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListSteps(ctx context.Context, f Filter, p pagination.Params) ([]*Step, int, error) {
	if err := p.Validate(); err != nil {
		return nil, 0, apperr.Validation("%v", err)
	}
	return s.repo.List(ctx, f, p.Limit, p.Skip)
}

// ActiveSteps returns every active step in creation order.
func (s *Service) ActiveSteps(ctx context.Context) ([]*Step, error) {
	active := true
	const page = 1000
	var out []*Step
	for offset := 0; ; offset += page {
		items, total, err := s.repo.List(ctx, Filter{Active: &active}, page, offset)
		if err != nil {
			return nil, fmt.Errorf("list active steps: %w", err)
		}
		out = append(out, items...)
		if offset+page >= total || len(items) == 0 {
			return out, nil
		}
	}
}

func (s *Service) UpdateStep(ctx context.Context, id uuid.UUID, spec UpdateSpec) (*Step, error) {
	if spec.Name != nil {
		trimmed := strings.TrimSpace(*spec.Name)
		spec.Name = &trimmed
	}
	if err := validation.Struct(spec); err != nil {
		return nil, err
	}

	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	renamed := spec.Name != nil && !strings.EqualFold(*spec.Name, st.Name)
	reactivated := spec.IsActive != nil && *spec.IsActive && !st.IsActive
	applyUpdate(st, spec)

	if st.IsActive && (renamed || reactivated) {
		existing, err := s.repo.FindByName(ctx, st.Name, true)
		if err != nil {
			return nil, fmt.Errorf("check step name: %w", err)
		}
		if existing != nil && existing.ID != st.ID {
			return nil, apperr.DuplicateName("step", st.Name)
		}
	}
	if err := s.repo.Update(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func applyUpdate(st *Step, spec UpdateSpec) {
	if spec.Name != nil {
		st.Name = *spec.Name
	}
	if spec.StepType != nil {
		st.StepType = *spec.StepType
	}
	if spec.Description != nil {
		st.Description = *spec.Description
	}
	if spec.BaseCost != nil {
		st.BaseCost = *spec.BaseCost
	}
	if spec.CostUnit != nil {
		st.CostUnit = *spec.CostUnit
	}
	if spec.DurationMinutes != nil {
		d := *spec.DurationMinutes
		st.DurationMinutes = &d
	}
	if spec.Icon != nil {
		st.Icon = *spec.Icon
	}
	if spec.Color != nil {
		st.Color = *spec.Color
	}
	if spec.IsActive != nil {
		st.IsActive = *spec.IsActive
	}
	if spec.Category != nil {
		st.Category = *spec.Category
	}
	if spec.Tags != nil {
		st.Tags = append([]string{}, (*spec.Tags)...)
	}
}

// DeleteStep removes a step. It fails with an in-use error carrying the
// reference count while any flow node still references the step.
func (s *Service) DeleteStep(ctx context.Context, id uuid.UUID) error {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s.refs != nil {
		n, err := s.refs.CountStepReferences(ctx, st.ID, st.StepType, st.Category)
		if err != nil {
			return fmt.Errorf("count step references: %w", err)
		}
		if n > 0 {
			return apperr.InUse("step", st.Name, n)
		}
	}
	return s.repo.Delete(ctx, id)
}

// ListByType returns the active steps of one type.
func (s *Service) ListByType(ctx context.Context, stepType string) ([]*Step, error) {
	if !reference.IsStepType(stepType) {
		return nil, apperr.Validation("unknown step type %q", stepType)
	}
	active := true
	items, _, err := s.repo.List(ctx, Filter{StepType: stepType, Active: &active}, 1000, 0)
	return items, err
}

// ListCategories returns the distinct categories of active steps.
func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if cats == nil {
		cats = []string{}
	}
	return cats, nil
}

// SeedResult reports what SeedDefaults did.
type SeedResult struct {
	Created []*Step `json:"created"`
	Skipped int     `json:"skipped"`
}

// SeedDefaults creates the default step library. Entries whose name already
// exists, active or not, are skipped, so repeated runs create nothing new.
func (s *Service) SeedDefaults(ctx context.Context) (*SeedResult, error) {
	res := &SeedResult{Created: []*Step{}}
	for _, d := range reference.DefaultSteps() {
		existing, err := s.repo.FindByName(ctx, d.Name, false)
		if err != nil {
			return res, fmt.Errorf("check default step %q: %w", d.Name, err)
		}
		if existing != nil {
			res.Skipped++
			continue
		}
		duration := d.DurationMinutes
		st, err := s.CreateStep(ctx, CreateSpec{
			Name:            d.Name,
			StepType:        d.StepType,
			Description:     d.Description,
			BaseCost:        d.BaseCost,
			CostUnit:        DefaultCostUnit,
			DurationMinutes: &duration,
			Icon:            d.Icon,
			Color:           d.Color,
			Category:        d.Category,
			Tags:            d.Tags,
		})
		if err != nil {
			return res, fmt.Errorf("seed default step %q: %w", d.Name, err)
		}
		res.Created = append(res.Created, st)
	}
	return res, nil
}
