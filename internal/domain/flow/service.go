package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/validation"
	"github.com/careflow/careflow/pkg/pagination"
)

const maxNameLength = 255

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateFlow(ctx context.Context, spec CreateSpec) (*Flow, error) {
	spec.Name = strings.TrimSpace(spec.Name)
	if err := validation.Struct(spec); err != nil {
		return nil, err
	}

	id := uuid.New()
	nodes, edges, err := buildGraph(id, spec.Nodes, spec.Edges)
	if err != nil {
		return nil, err
	}

	f := &Flow{
		ID:              id,
		Name:            spec.Name,
		SpecialtyID:     spec.SpecialtyID,
		SpecialtyName:   spec.SpecialtyName,
		Description:     spec.Description,
		SourceSystem:    spec.SourceSystem,
		SourceID:        spec.SourceID,
		FlowType:        spec.FlowType,
		IsTemplate:      spec.IsTemplate,
		Code:            spec.Code,
		ComplexityLevel: spec.ComplexityLevel,
		IsActive:        true,
		IsPublic:        true,
		Version:         spec.Version,
		CreatedBy:       spec.CreatedBy,
		Metadata:        spec.Metadata,
		Nodes:           nodes,
		Edges:           edges,
	}
	if f.SourceSystem == "" {
		f.SourceSystem = SourceNormalized
	}
	if f.Version == "" {
		f.Version = DefaultVersion
	}
	if f.Metadata == nil {
		f.Metadata = map[string]interface{}{}
	}
	if spec.IsActive != nil {
		f.IsActive = *spec.IsActive
	}
	if spec.IsPublic != nil {
		f.IsPublic = *spec.IsPublic
	}
	if spec.EstimatedCost != nil {
		f.EstimatedCost = *spec.EstimatedCost
		f.CostExplicit = true
	}
	if spec.AverageDuration != nil {
		f.AverageDuration = *spec.AverageDuration
		f.DurationExplicit = true
	}
	f.RecomputeTotals()

	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) GetFlow(ctx context.Context, id uuid.UUID) (*Flow, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListFlows(ctx context.Context, flt Filter, p pagination.Params) ([]*Flow, int, error) {
	if err := p.Validate(); err != nil {
		return nil, 0, apperr.Validation("%v", err)
	}
	return s.repo.List(ctx, flt, p.Limit, p.Skip)
}

// Walk calls fn for every flow matching flt, one page at a time, in
// creation order. It stops at the first error fn returns.
func (s *Service) Walk(ctx context.Context, flt Filter, fn func(*Flow) error) error {
	p := pagination.Params{Limit: pagination.MaxLimit}
	for {
		items, total, err := s.repo.List(ctx, flt, p.Limit, p.Skip)
		if err != nil {
			return fmt.Errorf("list flows: %w", err)
		}
		for _, f := range items {
			if err := fn(f); err != nil {
				return err
			}
		}
		if !p.HasNext(total) || len(items) == 0 {
			return nil
		}
		p = p.Next()
	}
}

func (s *Service) UpdateFlow(ctx context.Context, id uuid.UUID, spec UpdateSpec) (*Flow, error) {
	if spec.Name != nil {
		trimmed := strings.TrimSpace(*spec.Name)
		spec.Name = &trimmed
	}
	if err := validation.Struct(spec); err != nil {
		return nil, err
	}
	if spec.Edges != nil && spec.Nodes == nil {
		return nil, apperr.Validation("edges can only be replaced together with nodes")
	}

	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if spec.Nodes != nil {
		// A new graph drops earlier overrides unless this update repeats them.
		f.CostExplicit, f.DurationExplicit = false, false
	}
	if err := applyUpdate(f, spec); err != nil {
		return nil, err
	}
	if spec.Nodes != nil {
		var edgeSpecs []EdgeSpec
		if spec.Edges != nil {
			edgeSpecs = *spec.Edges
		}
		nodes, edges, err := buildGraph(f.ID, *spec.Nodes, edgeSpecs)
		if err != nil {
			return nil, err
		}
		f.Nodes, f.Edges = nodes, edges
	}
	f.RecomputeTotals()

	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func applyUpdate(f *Flow, spec UpdateSpec) error {
	if spec.Name != nil {
		f.Name = *spec.Name
	}
	if spec.SpecialtyID != nil {
		f.SpecialtyID = spec.SpecialtyID
	}
	if spec.SpecialtyName != nil {
		f.SpecialtyName = spec.SpecialtyName
	}
	if spec.Description != nil {
		f.Description = *spec.Description
	}
	if spec.SourceSystem != nil {
		f.SourceSystem = *spec.SourceSystem
	}
	if spec.SourceID != nil {
		f.SourceID = spec.SourceID
	}
	if spec.FlowType != nil {
		f.FlowType = *spec.FlowType
	}
	if spec.IsTemplate != nil {
		f.IsTemplate = *spec.IsTemplate
	}
	if spec.Code != nil {
		f.Code = spec.Code
	}
	if spec.ComplexityLevel != nil {
		f.ComplexityLevel = *spec.ComplexityLevel
	}
	if spec.EstimatedCost != nil {
		f.EstimatedCost = *spec.EstimatedCost
		f.CostExplicit = true
	}
	if spec.AverageDuration != nil {
		f.AverageDuration = *spec.AverageDuration
		f.DurationExplicit = true
	}
	if spec.IsActive != nil {
		f.IsActive = *spec.IsActive
	}
	if spec.IsPublic != nil {
		f.IsPublic = *spec.IsPublic
	}
	if spec.Version != nil {
		f.Version = *spec.Version
	}
	if len(spec.Metadata) > 0 {
		if f.Metadata == nil {
			f.Metadata = map[string]interface{}{}
		}
		if err := mergo.Merge(&f.Metadata, spec.Metadata, mergo.WithOverride); err != nil {
			return fmt.Errorf("merge metadata: %w", err)
		}
	}
	return nil
}

// DeleteFlow removes a flow with its nodes and edges.
func (s *Service) DeleteFlow(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// SetActive soft-deletes or restores a flow.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*Flow, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// DuplicateFlow copies a flow and its graph under fresh ids. The copy has
// no code and is named newName, or the source name plus CopySuffix.
func (s *Service) DuplicateFlow(ctx context.Context, id uuid.UUID, newName *string) (*Flow, error) {
	src, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := src.Name
	if r := []rune(name); len(r)+len([]rune(CopySuffix)) > maxNameLength {
		name = string(r[:maxNameLength-len([]rune(CopySuffix))])
	}
	name += CopySuffix
	if newName != nil {
		name = strings.TrimSpace(*newName)
		if name == "" || len([]rune(name)) > maxNameLength {
			return nil, apperr.Validation("name: must be between 1 and %d characters", maxNameLength)
		}
	}

	dup := cloneFlow(src)
	dup.ID = uuid.New()
	dup.Name = name
	dup.Code = nil
	dup.Legacy = nil
	dup.LegacyOnly = false
	dup.Nodes, dup.Edges = cloneGraph(dup.ID, src.Nodes, src.Edges)
	for _, n := range dup.Nodes {
		n.CreatedAt = time.Time{}
	}
	for _, e := range dup.Edges {
		e.CreatedAt = time.Time{}
	}

	if err := s.repo.Create(ctx, dup); err != nil {
		return nil, err
	}
	return dup, nil
}

func (s *Service) load(ctx context.Context, flowID uuid.UUID) (*Flow, error) {
	return s.repo.GetByID(ctx, flowID)
}

func (s *Service) save(ctx context.Context, f *Flow) error {
	sortNodes(f.Nodes)
	f.RecomputeTotals()
	return s.repo.Update(ctx, f)
}

// AddNode inserts a node at OrderIndex, or appends it, shifting later
// nodes down by one.
func (s *Service) AddNode(ctx context.Context, flowID uuid.UUID, in NodeInput) (*Node, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	f, err := s.load(ctx, flowID)
	if err != nil {
		return nil, err
	}

	idx := len(f.Nodes)
	if in.OrderIndex != nil {
		if *in.OrderIndex > len(f.Nodes) {
			return nil, apperr.Validation("order_index: must be between 0 and %d", len(f.Nodes))
		}
		idx = *in.OrderIndex
	}
	sortNodes(f.Nodes)
	for _, n := range f.Nodes {
		if n.OrderIndex >= idx {
			n.OrderIndex++
		}
	}
	n := nodeFromSpec(f.ID, in.NodeSpec, idx)
	f.Nodes = append(f.Nodes, n)
	renumber(f.Nodes)

	if err := s.save(ctx, f); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) UpdateNode(ctx context.Context, flowID, nodeID uuid.UUID, upd NodeUpdate) (*Node, error) {
	if err := validation.Struct(upd); err != nil {
		return nil, err
	}
	f, err := s.load(ctx, flowID)
	if err != nil {
		return nil, err
	}
	n := f.NodeByID(nodeID)
	if n == nil {
		return nil, apperr.NotFound("node", nodeID)
	}

	if upd.StepType != nil {
		n.StepType = *upd.StepType
	}
	if upd.StepID != nil {
		sid := *upd.StepID
		n.StepID = &sid
	}
	if upd.Label != nil {
		n.Label = *upd.Label
	}
	if upd.Description != nil {
		n.Description = *upd.Description
	}
	if upd.DurationMinutes != nil {
		n.DurationMinutes = *upd.DurationMinutes
	}
	if upd.Cost != nil {
		n.CostAvg = *upd.Cost
	}
	if upd.CostMin != nil {
		n.CostMin = *upd.CostMin
	}
	if upd.CostMax != nil {
		n.CostMax = *upd.CostMax
	}
	if upd.Position != nil {
		n.Position = *upd.Position
	}
	if upd.OrderIndex != nil {
		if *upd.OrderIndex >= len(f.Nodes) {
			return nil, apperr.Validation("order_index: must be between 0 and %d", len(f.Nodes)-1)
		}
		moveNode(f.Nodes, n, *upd.OrderIndex)
	}

	if err := s.save(ctx, f); err != nil {
		return nil, err
	}
	return n, nil
}

// moveNode places n at index to and renumbers the rest around it.
func moveNode(nodes []*Node, n *Node, to int) {
	sortNodes(nodes)
	rest := make([]*Node, 0, len(nodes)-1)
	for _, o := range nodes {
		if o != n {
			rest = append(rest, o)
		}
	}
	ordered := make([]*Node, 0, len(nodes))
	ordered = append(ordered, rest[:to]...)
	ordered = append(ordered, n)
	ordered = append(ordered, rest[to:]...)
	for i, o := range ordered {
		o.OrderIndex = i
	}
}

// RemoveNode deletes a node, drops its incident edges and renumbers the
// remaining nodes so order stays contiguous.
func (s *Service) RemoveNode(ctx context.Context, flowID, nodeID uuid.UUID) error {
	f, err := s.load(ctx, flowID)
	if err != nil {
		return err
	}
	if f.NodeByID(nodeID) == nil {
		return apperr.NotFound("node", nodeID)
	}

	nodes := make([]*Node, 0, len(f.Nodes)-1)
	for _, n := range f.Nodes {
		if n.ID != nodeID {
			nodes = append(nodes, n)
		}
	}
	edges := make([]*Edge, 0, len(f.Edges))
	for _, e := range f.Edges {
		if e.SourceNodeID != nodeID && e.TargetNodeID != nodeID {
			edges = append(edges, e)
		}
	}
	renumber(nodes)
	f.Nodes, f.Edges = nodes, edges

	return s.save(ctx, f)
}

func (s *Service) AddEdge(ctx context.Context, flowID uuid.UUID, in EdgeInput) (*Edge, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	f, err := s.load(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if f.NodeByID(in.SourceNodeID) == nil || f.NodeByID(in.TargetNodeID) == nil {
		return nil, apperr.Validation("%v: %s -> %s", ErrUnknownNode, in.SourceNodeID, in.TargetNodeID)
	}
	for _, e := range f.Edges {
		if e.SourceNodeID == in.SourceNodeID && e.TargetNodeID == in.TargetNodeID {
			return nil, apperr.Validation("%v: %s -> %s", ErrDuplicateEdge, in.SourceNodeID, in.TargetNodeID)
		}
	}

	e := newEdge(f.ID, in.SourceNodeID, in.TargetNodeID, in.EdgeType)
	edges := append(append([]*Edge{}, f.Edges...), e)
	if err := validateGraph(f.Nodes, edges); err != nil {
		return nil, err
	}
	f.Edges = edges

	if err := s.save(ctx, f); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) RemoveEdge(ctx context.Context, flowID, edgeID uuid.UUID) error {
	f, err := s.load(ctx, flowID)
	if err != nil {
		return err
	}
	edges := make([]*Edge, 0, len(f.Edges))
	for _, e := range f.Edges {
		if e.ID != edgeID {
			edges = append(edges, e)
		}
	}
	if len(edges) == len(f.Edges) {
		return apperr.NotFound("edge", edgeID)
	}
	f.Edges = edges
	return s.save(ctx, f)
}

// ReorderNodes assigns order indices from the position of each id in
// nodeIDs. The list must name every node of the flow exactly once;
// otherwise nothing changes.
func (s *Service) ReorderNodes(ctx context.Context, flowID uuid.UUID, nodeIDs []uuid.UUID) ([]*Node, error) {
	f, err := s.load(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if len(nodeIDs) != len(f.Nodes) {
		return nil, apperr.Validation("node_ids: expected %d ids, got %d", len(f.Nodes), len(nodeIDs))
	}
	seen := make(map[uuid.UUID]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		if seen[id] {
			return nil, apperr.Validation("node_ids: %s listed twice", id)
		}
		if f.NodeByID(id) == nil {
			return nil, apperr.Validation("node_ids: %s is not a node of flow %s", id, flowID)
		}
		seen[id] = true
	}

	for i, id := range nodeIDs {
		f.NodeByID(id).OrderIndex = i
	}
	sortNodes(f.Nodes)

	if err := s.save(ctx, f); err != nil {
		return nil, err
	}
	return f.Nodes, nil
}

// UpdateNodePositions sets the canvas position of several nodes at once.
// Unknown node ids reject the whole request.
func (s *Service) UpdateNodePositions(ctx context.Context, flowID uuid.UUID, positions map[uuid.UUID]Position) (*Flow, error) {
	f, err := s.load(ctx, flowID)
	if err != nil {
		return nil, err
	}
	for id := range positions {
		if f.NodeByID(id) == nil {
			return nil, apperr.Validation("positions: %s is not a node of flow %s", id, flowID)
		}
	}
	for id, p := range positions {
		f.NodeByID(id).Position = p
	}
	if err := s.save(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// CountStepReferences lets the step catalog check for referencing nodes
// before deleting a step.
func (s *Service) CountStepReferences(ctx context.Context, stepID uuid.UUID, stepType, category string) (int, error) {
	return s.repo.CountStepReferences(ctx, stepID, stepType, category)
}

// LegacyMismatch describes one flow whose embedded graph disagrees with
// its normalized rows.
type LegacyMismatch struct {
	FlowID      uuid.UUID `json:"flow_id"`
	Name        string    `json:"name"`
	LegacyOnly  bool      `json:"legacy_only"`
	Differences []string  `json:"differences"`
}

// VerifyLegacyGraphs compares every flow's embedded graph with its
// normalized nodes and edges.
func (s *Service) VerifyLegacyGraphs(ctx context.Context) ([]LegacyMismatch, error) {
	out := []LegacyMismatch{}
	err := s.Walk(ctx, Filter{}, func(f *Flow) error {
		if f.LegacyOnly {
			out = append(out, LegacyMismatch{
				FlowID:      f.ID,
				Name:        f.Name,
				LegacyOnly:  true,
				Differences: []string{"no normalized node rows; embedded graph in use"},
			})
			return nil
		}
		if diffs := CompareLegacy(f.ID, f.Legacy, f.Nodes, f.Edges); len(diffs) > 0 {
			out = append(out, LegacyMismatch{FlowID: f.ID, Name: f.Name, Differences: diffs})
		}
		return nil
	})
	return out, err
}
