package stepsync

import (
	"github.com/google/uuid"

	"github.com/careflow/careflow/internal/domain/step"
)

// AutoGeneratedTag marks steps created by the synchronizer.
const AutoGeneratedTag = "auto-generated"

// Candidate is the step a flow node implies.
type Candidate struct {
	Name            string
	Description     string
	StepType        string
	Category        string
	Icon            string
	Color           string
	BaseCost        float64
	DurationMinutes int
	Tags            []string
}

// StepSummary identifies a created or updated step in a Result.
type StepSummary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Category string    `json:"category"`
	Cost     float64   `json:"cost"`
	Duration int       `json:"duration"`
}

// Failure records a node that could not be synchronized.
type Failure struct {
	FlowID   *uuid.UUID `json:"flow_id,omitempty"`
	FlowName string     `json:"flow_name,omitempty"`
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	Error    string     `json:"error"`
}

type Result struct {
	Message      string        `json:"message"`
	Created      []StepSummary `json:"created"`
	Updated      []StepSummary `json:"updated"`
	Failed       []Failure     `json:"failed"`
	TotalCreated int           `json:"total_created"`
	TotalUpdated int           `json:"total_updated"`
	TotalFailed  int           `json:"total_failed"`
}

func newResult() *Result {
	return &Result{Created: []StepSummary{}, Updated: []StepSummary{}, Failed: []Failure{}}
}

func (r *Result) finish(message string) *Result {
	r.TotalCreated = len(r.Created)
	r.TotalUpdated = len(r.Updated)
	r.TotalFailed = len(r.Failed)
	r.Message = message
	return r
}

// DiagnosisRecord is an externally coded diagnosis.
type DiagnosisRecord struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

func summarize(s *step.Step) StepSummary {
	return StepSummary{
		ID:       s.ID,
		Name:     s.Name,
		Type:     s.StepType,
		Category: s.Category,
		Cost:     s.BaseCost,
		Duration: s.Duration(),
	}
}
