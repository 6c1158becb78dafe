package generator

import (
	"fmt"
	"strconv"

	"github.com/careflow/careflow/internal/domain/flow"
	"github.com/careflow/careflow/internal/platform/reference"
)

// Flow types of generated flows.
const (
	TypeDiagnosis  = "diagnosis_based"
	TypeProcedure  = "procedure_based"
	TypeReferral   = "referral_based"
	TypeLaboratory = "laboratory_based"
	TypeImaging    = "imaging_based"
	TypeEmergency  = "emergency_based"
)

// EmergencyFrequency is the case count attached to the emergency flow,
// which has no order volume of its own.
const EmergencyFrequency = 25

const (
	originX   = 100
	spacingX  = 300
	laneY     = 200
	maxLabel  = 150
	maxName   = 255
	procClip  = 50
	clipTrail = "..."
)

type templateNode struct {
	Type     string
	Label    string
	Cost     float64
	Duration int
}

// build lays the nodes out left to right and chains them in order.
func build(name, description, flowType string, frequency int, nodes []templateNode) flow.CreateSpec {
	spec := flow.CreateSpec{
		Name:         clip(name, maxName, ""),
		Description:  description,
		SourceSystem: flow.SourceGenerator,
		FlowType:     flowType,
		Metadata: map[string]interface{}{
			"generator": flowType,
			"frequency": frequency,
		},
	}
	for i, n := range nodes {
		key := "node-" + strconv.Itoa(i+1)
		spec.Nodes = append(spec.Nodes, flow.NodeSpec{
			Key:             key,
			StepType:        n.Type,
			Label:           clip(n.Label, maxLabel, ""),
			Cost:            n.Cost,
			DurationMinutes: n.Duration,
			Position:        &flow.Position{X: float64(originX + spacingX*i), Y: laneY},
		})
		if i > 0 {
			spec.Edges = append(spec.Edges, flow.EdgeSpec{
				Source: "node-" + strconv.Itoa(i),
				Target: key,
			})
		}
	}
	return spec
}

// clip shortens s to at most max runes, ending in trail when cut.
func clip(s string, max int, trail string) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + trail
}

func DiagnosisFlow(diagnosis string, frequency int) flow.CreateSpec {
	return build(
		"Flow "+diagnosis,
		fmt.Sprintf("Optimized flow for %s with %d recorded cases", diagnosis, frequency),
		TypeDiagnosis, frequency,
		[]templateNode{
			{reference.TypeConsultation, "Initial Consultation", 35, 20},
			{reference.TypeLaboratory, "Diagnostic Tests", 40, 25},
			{reference.TypeDiagnosis, diagnosis, 0, 15},
			{reference.TypePrescription, "Treatment", 0, 10},
			{reference.TypeFollowup, "Follow-up", 25, 15},
		})
}

// ProcedureFlow builds the procedure template. Long procedure names are
// cut to 50 characters.
func ProcedureFlow(procedure string, frequency int) flow.CreateSpec {
	display := clip(procedure, procClip, clipTrail)
	return build(
		"Flow "+display,
		fmt.Sprintf("Optimized flow for %s with %d recorded cases", display, frequency),
		TypeProcedure, frequency,
		[]templateNode{
			{reference.TypeConsultation, "Pre-Procedure Evaluation", 45, 30},
			{reference.TypeLaboratory, "Pre-Operative Tests", 55, 30},
			{reference.TypeImaging, "Imaging Studies", 80, 45},
			{reference.TypeProcedure, display, 150, 90},
			{reference.TypeFollowup, "Recovery and Follow-up", 35, 30},
		})
}

func ReferralFlow(specialty string, frequency int) flow.CreateSpec {
	return build(
		"Referral Flow "+specialty,
		fmt.Sprintf("Optimized flow for referrals to %s with %d cases", specialty, frequency),
		TypeReferral, frequency,
		[]templateNode{
			{reference.TypeConsultation, "General Consultation", 35, 25},
			{reference.TypeLaboratory, "Basic Tests", 30, 20},
			{reference.TypeReferral, "Referral " + specialty, 0, 10},
			{reference.TypeConsultation, "Consultation " + specialty, 85, 40},
			{reference.TypeFollowup, "Follow-up", 30, 20},
		})
}

func LaboratoryFlow(orders int) flow.CreateSpec {
	return build(
		"Complete Laboratory Flow",
		fmt.Sprintf("Optimized flow for laboratory studies based on %d recorded orders", orders),
		TypeLaboratory, orders,
		[]templateNode{
			{reference.TypeConsultation, "Consultation and Order", 35, 15},
			{reference.TypeLaboratory, "Sample Collection", 20, 10},
			{reference.TypeLaboratory, "Processing", 0, 60},
			{reference.TypeDiagnosis, "Interpretation", 25, 20},
			{reference.TypeConsultation, "Results Delivery", 30, 15},
		})
}

func ImagingFlow(orders int) flow.CreateSpec {
	return build(
		"Complete Imaging Flow",
		fmt.Sprintf("Optimized flow for imaging studies based on %d recorded orders", orders),
		TypeImaging, orders,
		[]templateNode{
			{reference.TypeConsultation, "Evaluation and Order", 35, 20},
			{reference.TypeLaboratory, "Preparation", 15, 15},
			{reference.TypeImaging, "Imaging Study", 120, 45},
			{reference.TypeDiagnosis, "Radiology Interpretation", 50, 30},
			{reference.TypeConsultation, "Results Delivery", 30, 15},
		})
}

func EmergencyFlow(frequency int) flow.CreateSpec {
	return build(
		"Emergency Flow",
		"Optimized flow for emergency cases based on billing patterns",
		TypeEmergency, frequency,
		[]templateNode{
			{reference.TypeEmergency, "Emergency Triage", 50, 5},
			{reference.TypeConsultation, "Medical Evaluation", 75, 15},
			{reference.TypeLaboratory, "Urgent Tests", 60, 20},
			{reference.TypeImaging, "Urgent Imaging", 150, 30},
			{reference.TypeProcedure, "Intervention", 200, 60},
			{reference.TypeFollowup, "Stabilization", 40, 20},
		})
}
