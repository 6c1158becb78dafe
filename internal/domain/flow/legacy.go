package flow

import (
	"fmt"
	"math"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// LegacyGraph is the embedded graph kept on the flow row next to the
// normalized node and edge rows.
type LegacyGraph struct {
	Nodes []LegacyNode `json:"nodes"`
	Edges []LegacyEdge `json:"edges"`
}

type LegacyNode struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Label    string                 `json:"label"`
	Cost     float64                `json:"cost"`
	Duration int                    `json:"duration"`
	Position Position               `json:"position"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

type LegacyEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type,omitempty"`
}

// LegacyFromGraph renders nodes (in order) and edges as a legacy graph.
func LegacyFromGraph(nodes []*Node, edges []*Edge) *LegacyGraph {
	sorted := append([]*Node(nil), nodes...)
	sortNodes(sorted)

	g := &LegacyGraph{
		Nodes: make([]LegacyNode, 0, len(sorted)),
		Edges: make([]LegacyEdge, 0, len(edges)),
	}
	for _, n := range sorted {
		data := map[string]interface{}{
			"cost_min": n.CostMin,
			"cost_max": n.CostMax,
		}
		if n.Description != "" {
			data["description"] = n.Description
		}
		if n.StepID != nil {
			data["step_id"] = n.StepID.String()
		}
		g.Nodes = append(g.Nodes, LegacyNode{
			ID:       n.ID.String(),
			Type:     n.StepType,
			Label:    n.Label,
			Cost:     n.CostAvg,
			Duration: n.DurationMinutes,
			Position: n.Position,
			Data:     data,
		})
	}
	for _, e := range edges {
		g.Edges = append(g.Edges, LegacyEdge{
			ID:     e.ID.String(),
			Source: e.SourceNodeID.String(),
			Target: e.TargetNodeID.String(),
			Type:   e.EdgeType,
		})
	}
	return g
}

// EncodeLegacy returns the JSON columns for nodes and edges.
func EncodeLegacy(g *LegacyGraph) (nodes, edges []byte, err error) {
	if g == nil {
		g = &LegacyGraph{}
	}
	ln, le := g.Nodes, g.Edges
	if ln == nil {
		ln = []LegacyNode{}
	}
	if le == nil {
		le = []LegacyEdge{}
	}
	if nodes, err = json.Marshal(ln); err != nil {
		return nil, nil, fmt.Errorf("encode legacy nodes: %w", err)
	}
	if edges, err = json.Marshal(le); err != nil {
		return nil, nil, fmt.Errorf("encode legacy edges: %w", err)
	}
	return nodes, edges, nil
}

// DecodeLegacy parses the JSON columns. Empty or null columns yield an
// empty graph.
func DecodeLegacy(nodes, edges []byte) (*LegacyGraph, error) {
	g := &LegacyGraph{}
	if len(nodes) > 0 && string(nodes) != "null" {
		if err := json.Unmarshal(nodes, &g.Nodes); err != nil {
			return nil, fmt.Errorf("decode legacy nodes: %w", err)
		}
	}
	if len(edges) > 0 && string(edges) != "null" {
		if err := json.Unmarshal(edges, &g.Edges); err != nil {
			return nil, fmt.Errorf("decode legacy edges: %w", err)
		}
	}
	return g, nil
}

// legacyID maps a legacy identifier to a node or edge id. Identifiers that
// are not UUIDs get a stable name-based UUID scoped to the flow.
func legacyID(flowID uuid.UUID, raw string) uuid.UUID {
	if id, err := uuid.Parse(raw); err == nil {
		return id
	}
	return uuid.NewSHA1(flowID, []byte(raw))
}

// ToGraph converts the legacy graph into nodes and edges of flowID. Node
// order follows list position.
func (g *LegacyGraph) ToGraph(flowID uuid.UUID) ([]*Node, []*Edge) {
	nodes := make([]*Node, 0, len(g.Nodes))
	for i, ln := range g.Nodes {
		n := &Node{
			ID:              legacyID(flowID, ln.ID),
			FlowID:          flowID,
			StepType:        ln.Type,
			Label:           ln.Label,
			OrderIndex:      i,
			DurationMinutes: ln.Duration,
			CostMin:         ln.Cost,
			CostMax:         ln.Cost,
			CostAvg:         ln.Cost,
			Position:        ln.Position,
		}
		if v, ok := ln.Data["cost_min"].(float64); ok {
			n.CostMin = v
		}
		if v, ok := ln.Data["cost_max"].(float64); ok {
			n.CostMax = v
		}
		if v, ok := ln.Data["description"].(string); ok {
			n.Description = v
		}
		if v, ok := ln.Data["step_id"].(string); ok {
			if sid, err := uuid.Parse(v); err == nil {
				n.StepID = &sid
			}
		}
		nodes = append(nodes, n)
	}
	edges := make([]*Edge, 0, len(g.Edges))
	for _, le := range g.Edges {
		et := le.Type
		if et == "" {
			et = DefaultEdgeType
		}
		edges = append(edges, &Edge{
			ID:           legacyID(flowID, le.ID),
			FlowID:       flowID,
			SourceNodeID: legacyID(flowID, le.Source),
			TargetNodeID: legacyID(flowID, le.Target),
			EdgeType:     et,
		})
	}
	return nodes, edges
}

// CompareLegacy lists the differences between a legacy graph and the
// normalized graph. An empty result means they agree.
func CompareLegacy(flowID uuid.UUID, g *LegacyGraph, nodes []*Node, edges []*Edge) []string {
	if g == nil {
		g = &LegacyGraph{}
	}
	var diffs []string
	lnodes, ledges := g.ToGraph(flowID)
	if len(lnodes) != len(nodes) {
		diffs = append(diffs, fmt.Sprintf("node count: legacy %d, normalized %d", len(lnodes), len(nodes)))
	}

	byID := make(map[uuid.UUID]*Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	for _, ln := range lnodes {
		n, ok := byID[ln.ID]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("node %s missing from normalized rows", ln.ID))
			continue
		}
		if n.Label != ln.Label || n.StepType != ln.StepType {
			diffs = append(diffs, fmt.Sprintf("node %s: label/type %q/%q vs %q/%q", n.ID, ln.Label, ln.StepType, n.Label, n.StepType))
		}
		if n.OrderIndex != ln.OrderIndex {
			diffs = append(diffs, fmt.Sprintf("node %s: order %d vs %d", n.ID, ln.OrderIndex, n.OrderIndex))
		}
		if math.Abs(n.CostAvg-ln.CostAvg) > 0.005 || n.DurationMinutes != ln.DurationMinutes {
			diffs = append(diffs, fmt.Sprintf("node %s: cost/duration %.2f/%d vs %.2f/%d", n.ID, ln.CostAvg, ln.DurationMinutes, n.CostAvg, n.DurationMinutes))
		}
	}

	want := edgeKeys(edges)
	got := edgeKeys(ledges)
	if len(want) != len(got) {
		diffs = append(diffs, fmt.Sprintf("edge count: legacy %d, normalized %d", len(got), len(want)))
	} else {
		for i := range want {
			if want[i] != got[i] {
				diffs = append(diffs, fmt.Sprintf("edge set differs at %s", want[i]))
				break
			}
		}
	}
	return diffs
}

func edgeKeys(edges []*Edge) []string {
	keys := make([]string, 0, len(edges))
	for _, e := range edges {
		keys = append(keys, e.SourceNodeID.String()+">"+e.TargetNodeID.String())
	}
	sort.Strings(keys)
	return keys
}
