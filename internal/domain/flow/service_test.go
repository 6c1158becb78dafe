package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/domain/step"
	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/pkg/pagination"
)

func newTestService() *Service { return NewService(NewRepoMemory()) }

func intPtr(v int) *int           { return &v }
func strPtr(v string) *string     { return &v }
func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }

func twoStepSpec(name string) CreateSpec {
	return CreateSpec{
		Name: name,
		Nodes: []NodeSpec{
			{Key: "a", StepType: "consultation", Label: "Consultation", Cost: 35, DurationMinutes: 20},
			{Key: "b", StepType: "laboratory", Label: "Tests", Cost: 40, DurationMinutes: 25},
		},
		Edges: []EdgeSpec{{Source: "a", Target: "b"}},
	}
}

func mustCreate(t *testing.T, svc *Service, spec CreateSpec) *Flow {
	t.Helper()
	f, err := svc.CreateFlow(context.Background(), spec)
	if err != nil {
		t.Fatalf("create flow: %v", err)
	}
	return f
}

func TestCreateFlow_DerivesTotals(t *testing.T) {
	svc := newTestService()
	f := mustCreate(t, svc, twoStepSpec("Cardio"))
	if f.EstimatedCost != 75.0 {
		t.Errorf("expected estimated cost 75.0, got %v", f.EstimatedCost)
	}
	if f.AverageDuration != 45 {
		t.Errorf("expected duration 45, got %d", f.AverageDuration)
	}
	if f.SourceSystem != SourceNormalized || f.Version != DefaultVersion {
		t.Errorf("unexpected defaults: %q %q", f.SourceSystem, f.Version)
	}
	if !f.IsActive || !f.IsPublic {
		t.Error("expected active public flow")
	}
	if len(f.Edges) != 1 || f.Edges[0].SourceNodeID != f.Nodes[0].ID {
		t.Error("expected edge from first to second node")
	}
}

func TestCreateFlow_ExplicitOverrides(t *testing.T) {
	svc := newTestService()
	spec := twoStepSpec("Cardio")
	spec.EstimatedCost = floatPtr(500)
	spec.AverageDuration = intPtr(90)
	f := mustCreate(t, svc, spec)
	if f.EstimatedCost != 500 || f.AverageDuration != 90 {
		t.Errorf("expected explicit values, got %v/%d", f.EstimatedCost, f.AverageDuration)
	}

	if _, err := svc.AddNode(context.Background(), f.ID, NodeInput{NodeSpec: NodeSpec{StepType: "followup", Label: "Follow-up", Cost: 25}}); err != nil {
		t.Fatalf("add node: %v", err)
	}
	got, _ := svc.GetFlow(context.Background(), f.ID)
	if got.EstimatedCost != 500 {
		t.Errorf("explicit cost should survive node edits, got %v", got.EstimatedCost)
	}
}

func TestCreateFlow_Validation(t *testing.T) {
	svc := newTestService()
	tests := []struct {
		name string
		spec CreateSpec
	}{
		{"empty name", CreateSpec{Name: "  "}},
		{"unknown edge key", CreateSpec{Name: "X", Nodes: []NodeSpec{{StepType: "a", Label: "A"}}, Edges: []EdgeSpec{{Source: "0", Target: "9"}}}},
		{"missing label", CreateSpec{Name: "X", Nodes: []NodeSpec{{StepType: "a"}}}},
		{"bad complexity", CreateSpec{Name: "X", ComplexityLevel: "extreme"}},
		{"cycle", CreateSpec{
			Name:  "X",
			Nodes: []NodeSpec{{StepType: "a", Label: "A"}, {StepType: "b", Label: "B"}},
			Edges: []EdgeSpec{{Source: "0", Target: "1"}, {Source: "1", Target: "0"}},
		}},
	}
	for _, tt := range tests {
		_, err := svc.CreateFlow(context.Background(), tt.spec)
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", tt.name, err)
		}
	}
	items, total, _ := svc.ListFlows(context.Background(), Filter{}, pagination.Default())
	if total != 0 || len(items) != 0 {
		t.Error("rejected flows must not be stored")
	}
}

func TestCreateFlow_DuplicateCode(t *testing.T) {
	svc := newTestService()
	spec := twoStepSpec("A")
	spec.Code = strPtr("CARD-01")
	mustCreate(t, svc, spec)
	spec.Name = "B"
	if _, err := svc.CreateFlow(context.Background(), spec); !errors.Is(err, apperr.ErrDuplicateName) {
		t.Errorf("expected duplicate code error, got %v", err)
	}
}

func TestGetFlow_NotFound(t *testing.T) {
	svc := newTestService()
	if _, err := svc.GetFlow(context.Background(), uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListFlows_FiltersAndPagination(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	cardio := "cardiology"
	for i := 0; i < 3; i++ {
		spec := twoStepSpec("Cardio")
		spec.SpecialtyID = &cardio
		mustCreate(t, svc, spec)
	}
	inactive := twoStepSpec("Old")
	inactive.IsActive = boolPtr(false)
	mustCreate(t, svc, inactive)

	items, total, err := svc.ListFlows(ctx, Filter{SpecialtyID: &cardio}, pagination.Params{Skip: 1, Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(items) != 1 {
		t.Errorf("expected 1 of 3, got %d of %d", len(items), total)
	}

	_, total, _ = svc.ListFlows(ctx, Filter{ActiveOnly: true}, pagination.Default())
	if total != 3 {
		t.Errorf("expected 3 active flows, got %d", total)
	}

	for _, p := range []pagination.Params{{Skip: -1, Limit: 10}, {Skip: 0, Limit: 0}, {Skip: 0, Limit: 1001}} {
		if _, _, err := svc.ListFlows(ctx, Filter{}, p); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%+v: expected validation error, got %v", p, err)
		}
	}
}

func TestUpdateFlow_PartialAndMetadataMerge(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	spec := twoStepSpec("Cardio")
	spec.Metadata = map[string]interface{}{"owner": "ana", "rev": 1.0}
	f := mustCreate(t, svc, spec)

	got, err := svc.UpdateFlow(ctx, f.ID, UpdateSpec{
		Description: strPtr("updated"),
		Metadata:    map[string]interface{}{"rev": 2.0, "reviewed": true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Cardio" || got.Description != "updated" {
		t.Errorf("unexpected fields: %q %q", got.Name, got.Description)
	}
	if got.Metadata["owner"] != "ana" || got.Metadata["rev"] != 2.0 || got.Metadata["reviewed"] != true {
		t.Errorf("unexpected metadata: %v", got.Metadata)
	}
	if len(got.Nodes) != 2 {
		t.Error("graph must be untouched without nodes")
	}
}

func TestUpdateFlow_ReplaceGraph(t *testing.T) {
	svc := newTestService()
	f := mustCreate(t, svc, twoStepSpec("Cardio"))
	nodes := []NodeSpec{{StepType: "emergency", Label: "Triage", Cost: 50, DurationMinutes: 5}}
	got, err := svc.UpdateFlow(context.Background(), f.ID, UpdateSpec{Nodes: &nodes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Nodes) != 1 || len(got.Edges) != 0 {
		t.Errorf("expected replaced graph, got %d nodes %d edges", len(got.Nodes), len(got.Edges))
	}
	if got.EstimatedCost != 50 || got.AverageDuration != 5 {
		t.Errorf("expected recomputed totals, got %v/%d", got.EstimatedCost, got.AverageDuration)
	}

	edges := []EdgeSpec{{Source: "0", Target: "1"}}
	if _, err := svc.UpdateFlow(context.Background(), f.ID, UpdateSpec{Edges: &edges}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("edges without nodes: expected validation error, got %v", err)
	}
}

func TestUpdateFlow_ReplaceGraphDropsOverrides(t *testing.T) {
	svc := newTestService()
	spec := twoStepSpec("Cardio")
	spec.EstimatedCost = floatPtr(500)
	spec.AverageDuration = intPtr(90)
	f := mustCreate(t, svc, spec)

	nodes := []NodeSpec{{StepType: "consultation", Label: "Consult", Cost: 10, DurationMinutes: 5}}
	got, err := svc.UpdateFlow(context.Background(), f.ID, UpdateSpec{Nodes: &nodes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.EstimatedCost != 10 || got.AverageDuration != 5 {
		t.Errorf("expected totals from new nodes, got %v/%d", got.EstimatedCost, got.AverageDuration)
	}

	nodes = append(nodes, NodeSpec{StepType: "laboratory", Label: "Tests", Cost: 40, DurationMinutes: 25})
	got, err = svc.UpdateFlow(context.Background(), f.ID, UpdateSpec{Nodes: &nodes, EstimatedCost: floatPtr(300)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.EstimatedCost != 300 || got.AverageDuration != 30 {
		t.Errorf("expected cost override with derived duration, got %v/%d", got.EstimatedCost, got.AverageDuration)
	}

	if _, err := svc.AddNode(context.Background(), f.ID, NodeInput{NodeSpec: NodeSpec{StepType: "followup", Label: "Follow-up", Cost: 25, DurationMinutes: 10}}); err != nil {
		t.Fatalf("add node: %v", err)
	}
	stored, _ := svc.GetFlow(context.Background(), f.ID)
	if stored.EstimatedCost != 300 || stored.AverageDuration != 40 {
		t.Errorf("expected kept override and recomputed duration, got %v/%d", stored.EstimatedCost, stored.AverageDuration)
	}
}

func TestCreateFlow_RejectsDuplicateEdges(t *testing.T) {
	svc := newTestService()
	spec := twoStepSpec("Cardio")
	spec.Edges = append(spec.Edges, EdgeSpec{Source: "a", Target: "b"})
	if _, err := svc.CreateFlow(context.Background(), spec); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	f := mustCreate(t, svc, twoStepSpec("Neuro"))
	nodes := []NodeSpec{{Key: "x", StepType: "consultation", Label: "A"}, {Key: "y", StepType: "laboratory", Label: "B"}}
	edges := []EdgeSpec{{Source: "x", Target: "y"}, {Source: "x", Target: "y", EdgeType: "conditional"}}
	if _, err := svc.UpdateFlow(context.Background(), f.ID, UpdateSpec{Nodes: &nodes, Edges: &edges}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("update: expected validation error, got %v", err)
	}
	got, _ := svc.GetFlow(context.Background(), f.ID)
	if len(got.Edges) != 1 {
		t.Errorf("stored graph should be unchanged, got %d edges", len(got.Edges))
	}
}

func TestDeleteFlow(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	f := mustCreate(t, svc, twoStepSpec("Cardio"))
	if err := svc.DeleteFlow(ctx, f.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetFlow(ctx, f.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
	if err := svc.DeleteFlow(ctx, f.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestSetActive(t *testing.T) {
	svc := newTestService()
	f := mustCreate(t, svc, twoStepSpec("Cardio"))
	got, err := svc.SetActive(context.Background(), f.ID, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IsActive {
		t.Error("expected flow to be inactive")
	}
}

func TestDuplicateFlow(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	spec := twoStepSpec("Cardio")
	spec.Code = strPtr("CARD-01")
	src := mustCreate(t, svc, spec)

	dup, err := svc.DuplicateFlow(ctx, src.ID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dup.Name != "Cardio (Copy)" {
		t.Errorf("unexpected name %q", dup.Name)
	}
	if dup.Code != nil {
		t.Error("expected code to be cleared")
	}
	if dup.ID == src.ID || len(dup.Nodes) != len(src.Nodes) || len(dup.Edges) != len(src.Edges) {
		t.Fatal("expected isomorphic copy with a new id")
	}
	srcIDs := map[uuid.UUID]bool{}
	for _, n := range src.Nodes {
		srcIDs[n.ID] = true
	}
	for i, n := range dup.Nodes {
		if srcIDs[n.ID] {
			t.Error("copy must not reuse node ids")
		}
		if n.Label != src.Nodes[i].Label || n.OrderIndex != src.Nodes[i].OrderIndex {
			t.Errorf("node %d differs from source", i)
		}
	}
	if dup.Edges[0].SourceNodeID != dup.Nodes[0].ID || dup.Edges[0].TargetNodeID != dup.Nodes[1].ID {
		t.Error("edge should be remapped onto copied nodes")
	}

	orig, _ := svc.GetFlow(ctx, src.ID)
	if orig.Name != "Cardio" || orig.Nodes[0].ID != src.Nodes[0].ID || orig.Code == nil {
		t.Error("source flow must be unchanged")
	}

	named, err := svc.DuplicateFlow(ctx, src.ID, strPtr("Cardio v2"))
	if err != nil || named.Name != "Cardio v2" {
		t.Errorf("expected explicit name, got %v %v", named, err)
	}
}

func TestAddNode_InsertShiftsOrder(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	f := mustCreate(t, svc, twoStepSpec("Cardio"))
	n, err := svc.AddNode(ctx, f.ID, NodeInput{
		NodeSpec:   NodeSpec{StepType: "imaging", Label: "ECG", Cost: 35, DurationMinutes: 15},
		OrderIndex: intPtr(1),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.OrderIndex != 1 {
		t.Errorf("expected new node at 1, got %d", n.OrderIndex)
	}
	got, _ := svc.GetFlow(ctx, f.ID)
	labels := []string{"Consultation", "ECG", "Tests"}
	for i, node := range got.Nodes {
		if node.OrderIndex != i || node.Label != labels[i] {
			t.Errorf("position %d: got %q at %d", i, node.Label, node.OrderIndex)
		}
	}
	if got.EstimatedCost != 110 || got.AverageDuration != 60 {
		t.Errorf("expected recomputed totals, got %v/%d", got.EstimatedCost, got.AverageDuration)
	}

	if _, err := svc.AddNode(ctx, f.ID, NodeInput{NodeSpec: NodeSpec{StepType: "x", Label: "X"}, OrderIndex: intPtr(9)}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for out-of-range index, got %v", err)
	}
}

func TestUpdateNode_MoveAndCost(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	f := mustCreate(t, svc, twoStepSpec("Cardio"))
	n, err := svc.UpdateNode(ctx, f.ID, f.Nodes[1].ID, NodeUpdate{Cost: floatPtr(60), OrderIndex: intPtr(0)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.OrderIndex != 0 || n.CostAvg != 60 {
		t.Errorf("unexpected node %+v", n)
	}
	got, _ := svc.GetFlow(ctx, f.ID)
	if got.Nodes[0].Label != "Tests" || got.Nodes[1].OrderIndex != 1 {
		t.Error("expected nodes to swap")
	}
	if got.EstimatedCost != 95 {
		t.Errorf("expected 95, got %v", got.EstimatedCost)
	}

	if _, err := svc.UpdateNode(ctx, f.ID, uuid.New(), NodeUpdate{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRemoveNode_RenumbersAndDropsEdges(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	spec := twoStepSpec("Cardio")
	spec.Nodes = append(spec.Nodes, NodeSpec{Key: "c", StepType: "followup", Label: "Follow-up", Cost: 25, DurationMinutes: 15})
	spec.Edges = append(spec.Edges, EdgeSpec{Source: "b", Target: "c"})
	f := mustCreate(t, svc, spec)

	if err := svc.RemoveNode(ctx, f.ID, f.Nodes[1].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := svc.GetFlow(ctx, f.ID)
	if len(got.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(got.Nodes))
	}
	if got.Nodes[1].Label != "Follow-up" || got.Nodes[1].OrderIndex != 1 {
		t.Errorf("expected follow-up renumbered to 1, got %q at %d", got.Nodes[1].Label, got.Nodes[1].OrderIndex)
	}
	if len(got.Edges) != 0 {
		t.Errorf("expected incident edges dropped, got %d", len(got.Edges))
	}
	if got.EstimatedCost != 60 {
		t.Errorf("expected 60, got %v", got.EstimatedCost)
	}
}

func TestAddEdge(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	spec := twoStepSpec("Cardio")
	spec.Edges = nil
	f := mustCreate(t, svc, spec)
	other := mustCreate(t, svc, twoStepSpec("Other"))

	e, err := svc.AddEdge(ctx, f.ID, EdgeInput{SourceNodeID: f.Nodes[0].ID, TargetNodeID: f.Nodes[1].ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.EdgeType != DefaultEdgeType {
		t.Errorf("expected default edge type, got %q", e.EdgeType)
	}

	cases := map[string]EdgeInput{
		"cycle":      {SourceNodeID: f.Nodes[1].ID, TargetNodeID: f.Nodes[0].ID},
		"duplicate":  {SourceNodeID: f.Nodes[0].ID, TargetNodeID: f.Nodes[1].ID},
		"self loop":  {SourceNodeID: f.Nodes[0].ID, TargetNodeID: f.Nodes[0].ID},
		"cross flow": {SourceNodeID: f.Nodes[0].ID, TargetNodeID: other.Nodes[0].ID},
	}
	for name, in := range cases {
		if _, err := svc.AddEdge(ctx, f.ID, in); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}

	if err := svc.RemoveEdge(ctx, f.ID, e.ID); err != nil {
		t.Fatalf("remove edge: %v", err)
	}
	if err := svc.RemoveEdge(ctx, f.ID, e.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestReorderNodes_AllOrNothing(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	f := mustCreate(t, svc, twoStepSpec("Cardio"))
	a, b := f.Nodes[0].ID, f.Nodes[1].ID

	bad := [][]uuid.UUID{
		{a},
		{a, a},
		{a, uuid.New()},
	}
	for _, ids := range bad {
		if _, err := svc.ReorderNodes(ctx, f.ID, ids); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%v: expected validation error, got %v", ids, err)
		}
	}
	got, _ := svc.GetFlow(ctx, f.ID)
	if got.Nodes[0].ID != a {
		t.Error("failed reorder must leave order unchanged")
	}

	nodes, err := svc.ReorderNodes(ctx, f.ID, []uuid.UUID{b, a})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nodes[0].ID != b || nodes[0].OrderIndex != 0 || nodes[1].OrderIndex != 1 {
		t.Error("expected b first")
	}
}

func TestUpdateNodePositions(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	f := mustCreate(t, svc, twoStepSpec("Cardio"))
	got, err := svc.UpdateNodePositions(ctx, f.ID, map[uuid.UUID]Position{f.Nodes[0].ID: {X: 10, Y: 20}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Nodes[0].Position != (Position{X: 10, Y: 20}) || got.Nodes[1].Position != DefaultPosition {
		t.Errorf("unexpected positions %+v %+v", got.Nodes[0].Position, got.Nodes[1].Position)
	}
	if _, err := svc.UpdateNodePositions(ctx, f.ID, map[uuid.UUID]Position{uuid.New(): {}}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestWalk_VisitsEveryFlow(t *testing.T) {
	svc := newTestService()
	for i := 0; i < 5; i++ {
		mustCreate(t, svc, twoStepSpec("F"))
	}
	seen := 0
	err := svc.Walk(context.Background(), Filter{}, func(*Flow) error { seen++; return nil })
	if err != nil || seen != 5 {
		t.Errorf("expected 5 flows, got %d (%v)", seen, err)
	}
}

func TestVerifyLegacyGraphs_Consistent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	f := mustCreate(t, svc, twoStepSpec("Cardio"))
	svc.AddNode(ctx, f.ID, NodeInput{NodeSpec: NodeSpec{StepType: "followup", Label: "Follow-up"}})
	mismatches, err := svc.VerifyLegacyGraphs(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mismatches) != 0 {
		t.Errorf("expected no drift, got %+v", mismatches)
	}
}

func TestStepDelete_BlockedByFlowReference(t *testing.T) {
	ctx := context.Background()
	flows := newTestService()
	steps := step.NewService(step.NewRepoMemory())
	steps.SetReferenceCounter(flows)

	lab, err := steps.CreateStep(ctx, step.CreateSpec{Name: "Lipid Panel", StepType: "laboratory", BaseCost: 42.5, Category: "Laboratory"})
	if err != nil {
		t.Fatalf("create step: %v", err)
	}
	f := mustCreate(t, flows, CreateSpec{
		Name:  "Lipids",
		Nodes: []NodeSpec{{StepType: "laboratory", StepID: &lab.ID, Label: "Lipid Panel", Cost: 42.5}},
	})

	err = steps.DeleteStep(ctx, lab.ID)
	if !errors.Is(err, apperr.ErrInUse) || apperr.InUseCount(err) != 1 {
		t.Fatalf("expected in-use error with count 1, got %v", err)
	}

	if err := flows.RemoveNode(ctx, f.ID, f.Nodes[0].ID); err != nil {
		t.Fatalf("remove node: %v", err)
	}
	if err := steps.DeleteStep(ctx, lab.ID); err != nil {
		t.Errorf("expected delete to succeed once unreferenced, got %v", err)
	}
}

func TestCountStepReferences_ByTypeAndCategory(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	mustCreate(t, svc, CreateSpec{
		Name:  "Labs",
		Nodes: []NodeSpec{{StepType: "laboratory", Label: "Panel"}, {StepType: "laboratory", Label: "Culture"}},
	})
	n, _ := svc.CountStepReferences(ctx, uuid.New(), "laboratory", "Laboratory")
	if n != 2 {
		t.Errorf("expected 2 type references, got %d", n)
	}
	n, _ = svc.CountStepReferences(ctx, uuid.New(), "laboratory", "Custom")
	if n != 0 {
		t.Errorf("expected 0 references for a custom category, got %d", n)
	}
}
