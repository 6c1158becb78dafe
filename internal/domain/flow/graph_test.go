package flow

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperr"
)

func chain(n int) ([]*Node, []*Edge) {
	fid := uuid.New()
	nodes := make([]*Node, n)
	for i := range nodes {
		nodes[i] = &Node{ID: uuid.New(), FlowID: fid, OrderIndex: i}
	}
	var edges []*Edge
	for i := 1; i < n; i++ {
		edges = append(edges, newEdge(fid, nodes[i-1].ID, nodes[i].ID, ""))
	}
	return nodes, edges
}

func TestHasCycle(t *testing.T) {
	nodes, edges := chain(3)
	if hasCycle(nodes, edges) {
		t.Error("linear chain should be acyclic")
	}
	back := newEdge(nodes[0].FlowID, nodes[2].ID, nodes[0].ID, "")
	if !hasCycle(nodes, append(edges, back)) {
		t.Error("expected cycle after back edge")
	}
}

func TestValidateGraph(t *testing.T) {
	nodes, edges := chain(2)
	if err := validateGraph(nodes, edges); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	self := newEdge(nodes[0].FlowID, nodes[0].ID, nodes[0].ID, "")
	if err := validateGraph(nodes, []*Edge{self}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("self loop: expected validation error, got %v", err)
	}

	foreign := newEdge(nodes[0].FlowID, nodes[0].ID, uuid.New(), "")
	if err := validateGraph(nodes, []*Edge{foreign}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("foreign endpoint: expected validation error, got %v", err)
	}

	twice := []*Edge{edges[0], newEdge(nodes[0].FlowID, nodes[0].ID, nodes[1].ID, "")}
	if err := validateGraph(nodes, twice); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("duplicate edge: expected validation error, got %v", err)
	}

	nodes[1].OrderIndex = 5
	if err := validateGraph(nodes, edges); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("order gap: expected validation error, got %v", err)
	}
}

func TestBuildGraph_DefaultKeys(t *testing.T) {
	nodes, edges, err := buildGraph(uuid.New(),
		[]NodeSpec{{StepType: "consultation", Label: "A", Cost: 10}, {StepType: "laboratory", Label: "B"}},
		[]EdgeSpec{{Source: "0", Target: "1"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if edges[0].SourceNodeID != nodes[0].ID || edges[0].TargetNodeID != nodes[1].ID {
		t.Error("edge should connect first and second node")
	}
	if edges[0].EdgeType != DefaultEdgeType {
		t.Errorf("expected default edge type, got %q", edges[0].EdgeType)
	}
	if nodes[0].CostMin != 10 || nodes[0].CostMax != 10 || nodes[0].CostAvg != 10 {
		t.Errorf("expected cost range to default to cost, got %+v", nodes[0])
	}
	if nodes[1].Position != DefaultPosition {
		t.Errorf("expected default position, got %+v", nodes[1].Position)
	}
}

func TestBuildGraph_DuplicateKey(t *testing.T) {
	_, _, err := buildGraph(uuid.New(),
		[]NodeSpec{{Key: "a", StepType: "x", Label: "A"}, {Key: "a", StepType: "x", Label: "B"}}, nil)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCloneGraph_RemapsEdges(t *testing.T) {
	nodes, edges := chain(3)
	target := uuid.New()
	cn, ce := cloneGraph(target, nodes, edges)
	ids := map[uuid.UUID]bool{}
	for i, n := range cn {
		if n.ID == nodes[i].ID {
			t.Error("expected fresh node id")
		}
		if n.FlowID != target {
			t.Error("expected clone to belong to target flow")
		}
		ids[n.ID] = true
	}
	for _, e := range ce {
		if !ids[e.SourceNodeID] || !ids[e.TargetNodeID] {
			t.Error("cloned edge must point at cloned nodes")
		}
	}
}

func TestRenumber(t *testing.T) {
	nodes := []*Node{{OrderIndex: 7}, {OrderIndex: 2}, {OrderIndex: 4}}
	renumber(nodes)
	for i, n := range nodes {
		if n.OrderIndex != i {
			t.Errorf("position %d has order %d", i, n.OrderIndex)
		}
	}
}
