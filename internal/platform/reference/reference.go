// Package reference holds the static step reference data: the step-type
// presentation table and the default step library used to seed empty
// catalogs. Both are embedded YAML documents parsed once at init.
package reference

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Step types accepted by the catalog.
const (
	TypeConsultation = "consultation"
	TypeLaboratory   = "laboratory"
	TypeImaging      = "imaging"
	TypeReferral     = "referral"
	TypeDischarge    = "discharge"
	TypeProcedure    = "procedure"
	TypeMedication   = "medication"
	TypePrescription = "prescription"
	TypeFollowup     = "followup"
	TypeEmergency    = "emergency"
	TypeDiagnosis    = "diagnosis"
	TypeSurgery      = "surgery"
	TypeRecovery     = "recovery"
)

// StepTypes lists every valid step type in declaration order.
var StepTypes = []string{
	TypeConsultation, TypeLaboratory, TypeImaging, TypeReferral, TypeDischarge,
	TypeProcedure, TypeMedication, TypePrescription, TypeFollowup, TypeEmergency,
	TypeDiagnosis, TypeSurgery, TypeRecovery,
}

var validStepTypes = func() map[string]bool {
	m := make(map[string]bool, len(StepTypes))
	for _, t := range StepTypes {
		m[t] = true
	}
	return m
}()

// IsStepType reports whether t is one of StepTypes.
func IsStepType(t string) bool {
	return validStepTypes[t]
}

// Presentation is the display metadata derived from a step type.
type Presentation struct {
	Category string `yaml:"category" json:"category"`
	Icon     string `yaml:"icon" json:"icon"`
	Color    string `yaml:"color" json:"color"`
}

type typeTable struct {
	Fallback Presentation            `yaml:"fallback"`
	Types    map[string]Presentation `yaml:"types"`
}

// DefaultStep is one entry of the default step library.
type DefaultStep struct {
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	StepType        string   `yaml:"step_type"`
	BaseCost        float64  `yaml:"base_cost"`
	DurationMinutes int      `yaml:"duration_minutes"`
	Icon            string   `yaml:"icon"`
	Color           string   `yaml:"color"`
	Category        string   `yaml:"category"`
	Tags            []string `yaml:"tags"`
}

var (
	//go:embed step_types.yaml
	stepTypesYAML []byte
	//go:embed default_steps.yaml
	defaultStepsYAML []byte

	table    typeTable
	defaults []DefaultStep
)

func init() {
	var err error
	if table, err = parseTypeTable(stepTypesYAML); err != nil {
		panic(err)
	}
	if defaults, err = parseDefaultSteps(defaultStepsYAML); err != nil {
		panic(err)
	}
}

func parseTypeTable(data []byte) (typeTable, error) {
	var t typeTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse step type table: %w", err)
	}
	if t.Fallback.Category == "" {
		return t, fmt.Errorf("step type table has no fallback entry")
	}
	for name := range t.Types {
		if !IsStepType(name) {
			return t, fmt.Errorf("step type table lists unknown type %q", name)
		}
	}
	return t, nil
}

func parseDefaultSteps(data []byte) ([]DefaultStep, error) {
	var steps []DefaultStep
	if err := yaml.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("parse default steps: %w", err)
	}
	seen := make(map[string]bool, len(steps))
	for _, s := range steps {
		if !IsStepType(s.StepType) {
			return nil, fmt.Errorf("default step %q has unknown type %q", s.Name, s.StepType)
		}
		key := strings.ToLower(s.Name)
		if seen[key] {
			return nil, fmt.Errorf("default step %q listed twice", s.Name)
		}
		seen[key] = true
	}
	return steps, nil
}

// Lookup returns the presentation for a step type. Types missing from the
// table get the generic fallback.
func Lookup(stepType string) Presentation {
	if p, ok := table.Types[stepType]; ok {
		return p
	}
	return table.Fallback
}

// CategoryFor is shorthand for Lookup(stepType).Category.
func CategoryFor(stepType string) string {
	return Lookup(stepType).Category
}

// TypeInfo is a step type with its resolved presentation.
type TypeInfo struct {
	Type string `json:"type"`
	Presentation
}

// Types returns every valid step type with its presentation, in
// declaration order.
func Types() []TypeInfo {
	out := make([]TypeInfo, 0, len(StepTypes))
	for _, t := range StepTypes {
		out = append(out, TypeInfo{Type: t, Presentation: Lookup(t)})
	}
	return out
}

// DefaultSteps returns a copy of the default step library.
func DefaultSteps() []DefaultStep {
	out := make([]DefaultStep, len(defaults))
	for i, s := range defaults {
		s.Tags = append([]string(nil), s.Tags...)
		out[i] = s
	}
	return out
}
