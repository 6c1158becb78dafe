// Package stepsync keeps the step catalog in line with the steps that
// appear inside flows.
package stepsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/flow"
	"github.com/careflow/careflow/internal/domain/step"
	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/reference"
)

// Catalog is the slice of the step catalog the synchronizer writes to.
type Catalog interface {
	ActiveSteps(ctx context.Context) ([]*step.Step, error)
	CreateStep(ctx context.Context, spec step.CreateSpec) (*step.Step, error)
	UpdateStep(ctx context.Context, id uuid.UUID, spec step.UpdateSpec) (*step.Step, error)
}

// FlowSource iterates the flow corpus.
type FlowSource interface {
	Walk(ctx context.Context, f flow.Filter, fn func(*flow.Flow) error) error
}

type Synchronizer struct {
	catalog    Catalog
	flows      FlowSource
	maxRetries int
	retryDelay time.Duration
	logger     zerolog.Logger
}

func NewSynchronizer(catalog Catalog, flows FlowSource, maxRetries int, logger zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		catalog:    catalog,
		flows:      flows,
		maxRetries: maxRetries,
		retryDelay: 50 * time.Millisecond,
		logger:     logger.With().Str("component", "stepsync").Logger(),
	}
}

// CandidateFromNode derives the step implied by a flow node.
func CandidateFromNode(n *flow.Node, flowName string) Candidate {
	p := reference.Lookup(n.StepType)
	return Candidate{
		Name:            strings.TrimSpace(n.Label),
		Description:     fmt.Sprintf("Step of type %s extracted from flow %s", n.StepType, flowName),
		StepType:        n.StepType,
		Category:        p.Category,
		Icon:            p.Icon,
		Color:           p.Color,
		BaseCost:        n.CostAvg,
		DurationMinutes: n.DurationMinutes,
		Tags:            []string{n.StepType, p.Category, AutoGeneratedTag},
	}
}

// DiagnosisCandidate derives the step for a coded diagnosis.
func DiagnosisCandidate(d DiagnosisRecord) Candidate {
	p := reference.Lookup(reference.TypeDiagnosis)
	return Candidate{
		Name:            "Diagnosis " + d.DisplayName,
		Description:     "Diagnosis-specific step for " + d.DisplayName,
		StepType:        reference.TypeDiagnosis,
		Category:        p.Category,
		Icon:            p.Icon,
		Color:           p.Color,
		BaseCost:        0,
		DurationMinutes: 15,
		Tags:            []string{"diagnosis", "cie10", d.Code, AutoGeneratedTag},
	}
}

// Match returns the first catalog step with the candidate's name, compared
// case-insensitively, or failing that the first with the same type and
// category. Steps are searched in catalog order.
func Match(catalog []*step.Step, c Candidate) *step.Step {
	for _, s := range catalog {
		if strings.EqualFold(s.Name, c.Name) {
			return s
		}
	}
	for _, s := range catalog {
		if s.StepType == c.StepType && s.Category == c.Category {
			return s
		}
	}
	return nil
}

// run holds the catalog snapshot for one synchronization pass.
type run struct {
	*Synchronizer
	steps  []*step.Step
	result *Result
}

func (s *Synchronizer) begin(ctx context.Context) (*run, error) {
	steps, err := s.catalog.ActiveSteps(ctx)
	if err != nil {
		return nil, fmt.Errorf("load step catalog: %w", err)
	}
	return &run{Synchronizer: s, steps: steps, result: newResult()}, nil
}

func (r *run) refresh(ctx context.Context) error {
	steps, err := r.catalog.ActiveSteps(ctx)
	if err != nil {
		return err
	}
	r.steps = steps
	return nil
}

// SyncFromFlows creates or updates a catalog step for every node of every
// active flow. A failing node is recorded and skipped.
func (s *Synchronizer) SyncFromFlows(ctx context.Context) (*Result, error) {
	r, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}

	err = s.flows.Walk(ctx, flow.Filter{ActiveOnly: true}, func(f *flow.Flow) error {
		for _, n := range f.Nodes {
			c := CandidateFromNode(n, f.Name)
			if err := r.apply(ctx, c, true); err != nil {
				fid := f.ID
				r.fail(&fid, f.Name, c, err)
			}
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("walk flows: %w", err)
	}

	res := r.result
	return res.finish(fmt.Sprintf("synchronization complete: %d steps created, %d steps updated, %d failed",
		len(res.Created), len(res.Updated), len(res.Failed))), nil
}

// SyncDiagnoses creates one step per diagnosis that has no matching step.
func (s *Synchronizer) SyncDiagnoses(ctx context.Context, diagnoses []DiagnosisRecord) (*Result, error) {
	r, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range diagnoses {
		c := DiagnosisCandidate(d)
		if d.DisplayName == "" || d.Code == "" {
			r.fail(nil, "", c, apperr.Validation("diagnosis %q needs a code and a display name", d.ID))
			continue
		}
		if err := r.apply(ctx, c, false); err != nil {
			r.fail(nil, "", c, err)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	res := r.result
	return res.finish(fmt.Sprintf("created %d diagnosis steps", len(res.Created))), nil
}

func (r *run) fail(flowID *uuid.UUID, flowName string, c Candidate, err error) {
	ev := r.logger.Warn().Err(err).Str("step_name", c.Name).Str("step_type", c.StepType)
	if flowID != nil {
		ev = ev.Str("flow_id", flowID.String())
	}
	ev.Msg("step synchronization failed")
	r.result.Failed = append(r.result.Failed, Failure{
		FlowID:   flowID,
		FlowName: flowName,
		Name:     c.Name,
		Type:     c.StepType,
		Error:    err.Error(),
	})
}

// apply matches c against the snapshot and creates or, when update is set,
// updates the matched step. A create that loses a race on the active-name
// index is retried after reloading the catalog, so the other writer's step
// is matched instead.
func (r *run) apply(ctx context.Context, c Candidate, update bool) error {
	op := func() error {
		if m := Match(r.steps, c); m != nil {
			if update {
				return r.update(ctx, m, c)
			}
			return nil
		}
		err := r.create(ctx, c)
		if errors.Is(err, apperr.ErrDuplicateName) {
			r.logger.Debug().Str("step_name", c.Name).Msg("name conflict, reloading catalog")
			if rerr := r.refresh(ctx); rerr != nil {
				return backoff.Permanent(rerr)
			}
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.retryDelay), uint64(r.maxRetries)), ctx)
	return backoff.Retry(op, b)
}

func (r *run) create(ctx context.Context, c Candidate) error {
	duration := c.DurationMinutes
	st, err := r.catalog.CreateStep(ctx, step.CreateSpec{
		Name:            c.Name,
		StepType:        c.StepType,
		Description:     c.Description,
		BaseCost:        c.BaseCost,
		CostUnit:        step.DefaultCostUnit,
		DurationMinutes: &duration,
		Icon:            c.Icon,
		Color:           c.Color,
		Category:        c.Category,
		Tags:            c.Tags,
	})
	if err != nil {
		return err
	}
	r.steps = append(r.steps, st)
	r.result.Created = append(r.result.Created, summarize(st))
	return nil
}

// update touches only cost and duration, and only when one differs.
func (r *run) update(ctx context.Context, m *step.Step, c Candidate) error {
	sameCost := m.BaseCost == c.BaseCost
	sameDuration := m.DurationMinutes != nil && *m.DurationMinutes == c.DurationMinutes
	if sameCost && sameDuration {
		return nil
	}
	cost, duration := c.BaseCost, c.DurationMinutes
	st, err := r.catalog.UpdateStep(ctx, m.ID, step.UpdateSpec{BaseCost: &cost, DurationMinutes: &duration})
	if err != nil {
		return backoff.Permanent(err)
	}
	for i, s := range r.steps {
		if s.ID == st.ID {
			r.steps[i] = st
		}
	}
	r.result.Updated = append(r.result.Updated, summarize(st))
	return nil
}
