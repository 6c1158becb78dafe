package flow

import (
	"errors"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/platform/apperr"
)

var (
	ErrCyclicGraph   = errors.New("graph contains a cycle")
	ErrSelfLoop      = errors.New("edge connects a node to itself")
	ErrUnknownNode   = errors.New("edge references a node outside the flow")
	ErrOrderGap      = errors.New("node order indices are not contiguous from 0")
	ErrDuplicateEdge = errors.New("edge already exists")
)

// buildGraph turns node and edge specs into nodes and edges of flowID with
// fresh ids. Edges address nodes by NodeSpec.Key.
func buildGraph(flowID uuid.UUID, nodeSpecs []NodeSpec, edgeSpecs []EdgeSpec) ([]*Node, []*Edge, error) {
	nodes := make([]*Node, 0, len(nodeSpecs))
	byKey := make(map[string]uuid.UUID, len(nodeSpecs))
	for i, ns := range nodeSpecs {
		key := ns.Key
		if key == "" {
			key = strconv.Itoa(i)
		}
		if _, dup := byKey[key]; dup {
			return nil, nil, apperr.Validation("duplicate node key %q", key)
		}
		n := nodeFromSpec(flowID, ns, i)
		byKey[key] = n.ID
		nodes = append(nodes, n)
	}

	edges := make([]*Edge, 0, len(edgeSpecs))
	for _, es := range edgeSpecs {
		src, ok := byKey[es.Source]
		if !ok {
			return nil, nil, apperr.Validation("edge source %q is not in the node list", es.Source)
		}
		dst, ok := byKey[es.Target]
		if !ok {
			return nil, nil, apperr.Validation("edge target %q is not in the node list", es.Target)
		}
		edges = append(edges, newEdge(flowID, src, dst, es.EdgeType))
	}

	if err := validateGraph(nodes, edges); err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

func nodeFromSpec(flowID uuid.UUID, ns NodeSpec, order int) *Node {
	n := &Node{
		ID:              uuid.New(),
		FlowID:          flowID,
		StepType:        ns.StepType,
		StepID:          ns.StepID,
		Label:           ns.Label,
		Description:     ns.Description,
		OrderIndex:      order,
		DurationMinutes: ns.DurationMinutes,
		CostMin:         ns.Cost,
		CostMax:         ns.Cost,
		CostAvg:         ns.Cost,
		Position:        DefaultPosition,
	}
	if ns.CostMin != nil {
		n.CostMin = *ns.CostMin
	}
	if ns.CostMax != nil {
		n.CostMax = *ns.CostMax
	}
	if ns.Position != nil {
		n.Position = *ns.Position
	}
	return n
}

func newEdge(flowID, src, dst uuid.UUID, edgeType string) *Edge {
	if edgeType == "" {
		edgeType = DefaultEdgeType
	}
	return &Edge{ID: uuid.New(), FlowID: flowID, SourceNodeID: src, TargetNodeID: dst, EdgeType: edgeType}
}

// validateGraph checks order contiguity, edge endpoints, edge uniqueness
// and acyclicity.
func validateGraph(nodes []*Node, edges []*Edge) error {
	if err := checkOrder(nodes); err != nil {
		return err
	}
	ids := make(map[uuid.UUID]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}
	pairs := make(map[[2]uuid.UUID]bool, len(edges))
	for _, e := range edges {
		if !ids[e.SourceNodeID] || !ids[e.TargetNodeID] {
			return apperr.Validation("%v: %s -> %s", ErrUnknownNode, e.SourceNodeID, e.TargetNodeID)
		}
		if e.SourceNodeID == e.TargetNodeID {
			return apperr.Validation("%v: %s", ErrSelfLoop, e.SourceNodeID)
		}
		pair := [2]uuid.UUID{e.SourceNodeID, e.TargetNodeID}
		if pairs[pair] {
			return apperr.Validation("%v: %s -> %s", ErrDuplicateEdge, e.SourceNodeID, e.TargetNodeID)
		}
		pairs[pair] = true
	}
	if hasCycle(nodes, edges) {
		return apperr.Validation("%v", ErrCyclicGraph)
	}
	return nil
}

// checkOrder requires order indices to be exactly 0..n-1.
func checkOrder(nodes []*Node) error {
	seen := make([]bool, len(nodes))
	for _, n := range nodes {
		if n.OrderIndex < 0 || n.OrderIndex >= len(nodes) || seen[n.OrderIndex] {
			return apperr.Validation("%v", ErrOrderGap)
		}
		seen[n.OrderIndex] = true
	}
	return nil
}

// hasCycle runs Kahn's algorithm; any node left unvisited sits on a cycle.
func hasCycle(nodes []*Node, edges []*Edge) bool {
	indegree := make(map[uuid.UUID]int, len(nodes))
	adj := make(map[uuid.UUID][]uuid.UUID, len(nodes))
	for _, n := range nodes {
		indegree[n.ID] = 0
	}
	for _, e := range edges {
		adj[e.SourceNodeID] = append(adj[e.SourceNodeID], e.TargetNodeID)
		indegree[e.TargetNodeID]++
	}

	queue := make([]uuid.UUID, 0, len(nodes))
	for id, d := range indegree {
		if d == 0 {
			queue = append(queue, id)
		}
	}
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range adj[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return visited != len(indegree)
}

// sortNodes orders nodes by OrderIndex.
func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].OrderIndex < nodes[j].OrderIndex
	})
}

// renumber sorts nodes and reassigns order indices 0..n-1.
func renumber(nodes []*Node) {
	sortNodes(nodes)
	for i, n := range nodes {
		n.OrderIndex = i
	}
}

// cloneGraph deep-copies nodes and edges into flowID with fresh ids,
// keeping order indices and edge topology.
func cloneGraph(flowID uuid.UUID, nodes []*Node, edges []*Edge) ([]*Node, []*Edge) {
	idMap := make(map[uuid.UUID]uuid.UUID, len(nodes))
	outNodes := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		c := *n
		c.ID = uuid.New()
		c.FlowID = flowID
		if n.StepID != nil {
			sid := *n.StepID
			c.StepID = &sid
		}
		idMap[n.ID] = c.ID
		outNodes = append(outNodes, &c)
	}
	outEdges := make([]*Edge, 0, len(edges))
	for _, e := range edges {
		c := *e
		c.ID = uuid.New()
		c.FlowID = flowID
		c.SourceNodeID = idMap[e.SourceNodeID]
		c.TargetNodeID = idMap[e.TargetNodeID]
		outEdges = append(outEdges, &c)
	}
	return outNodes, outEdges
}
