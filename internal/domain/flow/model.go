package flow

import (
	"time"

	"github.com/google/uuid"
)

const (
	SourceNormalized = "normalized"
	SourceGenerator  = "frequency_generator"

	DefaultVersion  = "1.0"
	DefaultEdgeType = "default"
	CopySuffix      = " (Copy)"
)

// DefaultPosition is where a node lands when no position is given.
var DefaultPosition = Position{X: 200, Y: 100}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Flow is one care-process definition or instance with its graph.
type Flow struct {
	ID               uuid.UUID              `db:"id" json:"id"`
	Name             string                 `db:"name" json:"name"`
	SpecialtyID      *string                `db:"specialty_id" json:"specialty_id,omitempty"`
	SpecialtyName    *string                `db:"specialty_name" json:"specialty_name,omitempty"`
	Description      string                 `db:"description" json:"description,omitempty"`
	SourceSystem     string                 `db:"source_system" json:"source_system"`
	SourceID         *string                `db:"source_id" json:"source_id,omitempty"`
	FlowType         string                 `db:"flow_type" json:"flow_type,omitempty"`
	IsTemplate       bool                   `db:"is_template" json:"is_template"`
	Code             *string                `db:"code" json:"code,omitempty"`
	ComplexityLevel  string                 `db:"complexity_level" json:"complexity_level,omitempty"`
	AverageDuration  int                    `db:"average_duration" json:"average_duration"`
	EstimatedCost    float64                `db:"estimated_cost" json:"estimated_cost"`
	CostExplicit     bool                   `db:"cost_explicit" json:"cost_explicit"`
	DurationExplicit bool                   `db:"duration_explicit" json:"duration_explicit"`
	IsActive         bool                   `db:"is_active" json:"is_active"`
	IsPublic         bool                   `db:"is_public" json:"is_public"`
	Version          string                 `db:"version" json:"version"`
	CreatedBy        *string                `db:"created_by" json:"created_by,omitempty"`
	Metadata         map[string]interface{} `db:"metadata" json:"metadata"`
	Nodes            []*Node                `json:"nodes"`
	Edges            []*Edge                `json:"edges"`
	CreatedAt        time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time              `db:"updated_at" json:"updated_at"`

	// Legacy is the embedded graph stored on the flow row, when present.
	Legacy *LegacyGraph `json:"-"`
	// LegacyOnly is set when Nodes/Edges were decoded from Legacy because
	// the flow has no normalized node rows.
	LegacyOnly bool `json:"legacy_only,omitempty"`
}

// Node is one step occurrence inside a flow.
type Node struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	FlowID          uuid.UUID  `db:"flow_id" json:"flow_id"`
	StepType        string     `db:"step_type" json:"step_type"`
	StepID          *uuid.UUID `db:"step_id" json:"step_id,omitempty"`
	Label           string     `db:"label" json:"label"`
	Description     string     `db:"description" json:"description,omitempty"`
	OrderIndex      int        `db:"order_index" json:"order_index"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	CostMin         float64    `db:"cost_min" json:"cost_min"`
	CostMax         float64    `db:"cost_max" json:"cost_max"`
	CostAvg         float64    `db:"cost_avg" json:"cost_avg"`
	Position        Position   `json:"position"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// Edge is a directed precedence link between two nodes of the same flow.
type Edge struct {
	ID           uuid.UUID `db:"id" json:"id"`
	FlowID       uuid.UUID `db:"flow_id" json:"flow_id"`
	SourceNodeID uuid.UUID `db:"source_node_id" json:"source_node_id"`
	TargetNodeID uuid.UUID `db:"target_node_id" json:"target_node_id"`
	EdgeType     string    `db:"edge_type" json:"edge_type"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// NodeSpec describes a node in a create or full-replace request. Key is a
// caller-chosen handle that EdgeSpec refers to; it defaults to the node's
// position in the list ("0", "1", ...).
type NodeSpec struct {
	Key             string     `json:"key"`
	StepType        string     `json:"step_type" validate:"required,max=50"`
	StepID          *uuid.UUID `json:"step_id"`
	Label           string     `json:"label" validate:"required,max=150"`
	Description     string     `json:"description"`
	DurationMinutes int        `json:"duration_minutes" validate:"gte=0"`
	Cost            float64    `json:"cost" validate:"gte=0"`
	CostMin         *float64   `json:"cost_min" validate:"omitempty,gte=0"`
	CostMax         *float64   `json:"cost_max" validate:"omitempty,gte=0"`
	Position        *Position  `json:"position"`
}

type EdgeSpec struct {
	Source   string `json:"source" validate:"required"`
	Target   string `json:"target" validate:"required"`
	EdgeType string `json:"edge_type" validate:"max=30"`
}

// CreateSpec is the input for creating a flow. EstimatedCost and
// AverageDuration, when nil, are derived from the nodes.
type CreateSpec struct {
	Name            string                 `json:"name" validate:"required,min=1,max=255"`
	SpecialtyID     *string                `json:"specialty_id"`
	SpecialtyName   *string                `json:"specialty_name" validate:"omitempty,max=255"`
	Description     string                 `json:"description"`
	SourceSystem    string                 `json:"source_system" validate:"max=50"`
	SourceID        *string                `json:"source_id" validate:"omitempty,max=100"`
	FlowType        string                 `json:"flow_type" validate:"max=50"`
	IsTemplate      bool                   `json:"is_template"`
	Code            *string                `json:"code" validate:"omitempty,min=1,max=50"`
	ComplexityLevel string                 `json:"complexity_level" validate:"omitempty,complexity"`
	EstimatedCost   *float64               `json:"estimated_cost" validate:"omitempty,gte=0"`
	AverageDuration *int                   `json:"average_duration" validate:"omitempty,gte=0"`
	IsActive        *bool                  `json:"is_active"`
	IsPublic        *bool                  `json:"is_public"`
	Version         string                 `json:"version" validate:"max=20"`
	CreatedBy       *string                `json:"created_by" validate:"omitempty,max=100"`
	Metadata        map[string]interface{} `json:"metadata"`
	Nodes           []NodeSpec             `json:"nodes" validate:"dive"`
	Edges           []EdgeSpec             `json:"edges" validate:"dive"`
}

// UpdateSpec carries a partial flow update. Nil fields are left unchanged.
// Metadata is merged into the existing map. When Nodes is set the graph is
// replaced and Edges refer to the new node keys.
type UpdateSpec struct {
	Name            *string                `json:"name" validate:"omitempty,min=1,max=255"`
	SpecialtyID     *string                `json:"specialty_id"`
	SpecialtyName   *string                `json:"specialty_name" validate:"omitempty,max=255"`
	Description     *string                `json:"description"`
	SourceSystem    *string                `json:"source_system" validate:"omitempty,max=50"`
	SourceID        *string                `json:"source_id" validate:"omitempty,max=100"`
	FlowType        *string                `json:"flow_type" validate:"omitempty,max=50"`
	IsTemplate      *bool                  `json:"is_template"`
	Code            *string                `json:"code" validate:"omitempty,min=1,max=50"`
	ComplexityLevel *string                `json:"complexity_level" validate:"omitempty,complexity"`
	EstimatedCost   *float64               `json:"estimated_cost" validate:"omitempty,gte=0"`
	AverageDuration *int                   `json:"average_duration" validate:"omitempty,gte=0"`
	IsActive        *bool                  `json:"is_active"`
	IsPublic        *bool                  `json:"is_public"`
	Version         *string                `json:"version" validate:"omitempty,max=20"`
	Metadata        map[string]interface{} `json:"metadata"`
	Nodes           *[]NodeSpec            `json:"nodes" validate:"omitempty,dive"`
	Edges           *[]EdgeSpec            `json:"edges" validate:"omitempty,dive"`
}

// NodeInput adds a single node. OrderIndex nil appends at the end.
type NodeInput struct {
	NodeSpec
	OrderIndex *int `json:"order_index" validate:"omitempty,gte=0"`
}

// NodeUpdate carries a partial node update.
type NodeUpdate struct {
	StepType        *string    `json:"step_type" validate:"omitempty,max=50"`
	StepID          *uuid.UUID `json:"step_id"`
	Label           *string    `json:"label" validate:"omitempty,min=1,max=150"`
	Description     *string    `json:"description"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,gte=0"`
	Cost            *float64   `json:"cost" validate:"omitempty,gte=0"`
	CostMin         *float64   `json:"cost_min" validate:"omitempty,gte=0"`
	CostMax         *float64   `json:"cost_max" validate:"omitempty,gte=0"`
	Position        *Position  `json:"position"`
	OrderIndex      *int       `json:"order_index" validate:"omitempty,gte=0"`
}

type EdgeInput struct {
	SourceNodeID uuid.UUID `json:"source_node_id" validate:"required"`
	TargetNodeID uuid.UUID `json:"target_node_id" validate:"required"`
	EdgeType     string    `json:"edge_type" validate:"max=30"`
}

// Filter narrows ListFlows. All set fields must match.
type Filter struct {
	SpecialtyID  *string
	ActiveOnly   bool
	SourceSystem string
}

// NodeByID returns the node with the given id, or nil.
func (f *Flow) NodeByID(id uuid.UUID) *Node {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// RecomputeTotals derives estimated cost and average duration from the
// nodes unless they were set explicitly.
func (f *Flow) RecomputeTotals() {
	if !f.CostExplicit {
		var sum float64
		for _, n := range f.Nodes {
			sum += n.CostAvg
		}
		f.EstimatedCost = sum
	}
	if !f.DurationExplicit {
		sum := 0
		for _, n := range f.Nodes {
			sum += n.DurationMinutes
		}
		f.AverageDuration = sum
	}
}
