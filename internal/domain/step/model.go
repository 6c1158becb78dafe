package step

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultCostUnit = "USD"
	DefaultColor    = "#1976d2"
)

// Step is a canonical, reusable step definition. It maps to the step table.
type Step struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	StepType        string    `db:"step_type" json:"step_type"`
	Description     string    `db:"description" json:"description,omitempty"`
	BaseCost        float64   `db:"base_cost" json:"base_cost"`
	CostUnit        string    `db:"cost_unit" json:"cost_unit"`
	DurationMinutes *int      `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Icon            string    `db:"icon" json:"icon,omitempty"`
	Color           string    `db:"color" json:"color"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	Category        string    `db:"category" json:"category,omitempty"`
	Tags            []string  `db:"tags" json:"tags"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Duration returns the duration in minutes, treating an unset duration as 0.
func (s *Step) Duration() int {
	if s.DurationMinutes == nil {
		return 0
	}
	return *s.DurationMinutes
}

// CreateSpec is the input for creating a step.
type CreateSpec struct {
	Name            string   `json:"name" validate:"required,min=1,max=100"`
	StepType        string   `json:"step_type" validate:"step_type"`
	Description     string   `json:"description"`
	BaseCost        float64  `json:"base_cost" validate:"gte=0"`
	CostUnit        string   `json:"cost_unit" validate:"max=20"`
	DurationMinutes *int     `json:"duration_minutes" validate:"omitempty,gte=0"`
	Icon            string   `json:"icon" validate:"max=50"`
	Color           string   `json:"color" validate:"omitempty,rgbhex"`
	IsActive        *bool    `json:"is_active"`
	Category        string   `json:"category" validate:"max=50"`
	Tags            []string `json:"tags"`
}

// UpdateSpec carries a partial update. Nil fields are left unchanged.
type UpdateSpec struct {
	Name            *string   `json:"name" validate:"omitempty,min=1,max=100"`
	StepType        *string   `json:"step_type" validate:"omitempty,step_type"`
	Description     *string   `json:"description"`
	BaseCost        *float64  `json:"base_cost" validate:"omitempty,gte=0"`
	CostUnit        *string   `json:"cost_unit" validate:"omitempty,max=20"`
	DurationMinutes *int      `json:"duration_minutes" validate:"omitempty,gte=0"`
	Icon            *string   `json:"icon" validate:"omitempty,max=50"`
	Color           *string   `json:"color" validate:"omitempty,rgbhex"`
	IsActive        *bool     `json:"is_active"`
	Category        *string   `json:"category" validate:"omitempty,max=50"`
	Tags            *[]string `json:"tags"`
}

// Filter narrows ListSteps. Empty fields do not filter.
type Filter struct {
	StepType string
	Category string
	Active   *bool
}

// JoinTags encodes tags for the comma-joined tags column.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}

// SplitTags decodes the tags column. An empty string yields an empty list.
func SplitTags(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
