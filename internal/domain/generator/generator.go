// Package generator builds care flows from observed clinical activity.
// Each template is a fixed linear pathway; the generator fills in display
// names and the observed frequency and stores the result as a flow.
package generator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/domain/flow"
	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/clinical"
)

// DefaultTopN is how many of each ranked entity become flows.
const DefaultTopN = 3

type FlowCreator interface {
	CreateFlow(ctx context.Context, spec flow.CreateSpec) (*flow.Flow, error)
}

// CriteriaFinder returns referral criteria ids for a diagnosis.
type CriteriaFinder interface {
	MatchDiagnosis(ctx context.Context, keys ...string) ([]uuid.UUID, error)
}

type GeneratedFlow struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Type              string    `json:"type"`
	Frequency         int       `json:"frequency"`
	EstimatedCost     float64   `json:"estimated_cost"`
	EstimatedDuration int       `json:"estimated_duration"`
}

type Failure struct {
	Type     string `json:"type"`
	SourceID string `json:"source_id,omitempty"`
	Error    string `json:"error"`
}

type Report struct {
	Flows        []GeneratedFlow `json:"flows"`
	Failed       []Failure       `json:"failed"`
	TotalCreated int             `json:"total_created"`
	TotalFailed  int             `json:"total_failed"`
}

type Generator struct {
	flows    FlowCreator
	names    clinical.NameLookup
	summary  clinical.SummaryProvider
	criteria CriteriaFinder
	topN     int
	logger   zerolog.Logger
}

func New(flows FlowCreator, names clinical.NameLookup, summary clinical.SummaryProvider, topN int, logger zerolog.Logger) *Generator {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Generator{
		flows:   flows,
		names:   names,
		summary: summary,
		topN:    topN,
		logger:  logger.With().Str("component", "generator").Logger(),
	}
}

// SetCriteriaFinder enables tagging diagnosis flows with referral criteria.
func (g *Generator) SetCriteriaFinder(f CriteriaFinder) {
	g.criteria = f
}

var placeholders = map[clinical.Kind]string{
	clinical.KindDiagnosis: "Diagnosis %s",
	clinical.KindProcedure: "Procedure %s",
	clinical.KindSpecialty: "Specialty %s",
}

// resolve never fails: unknown ids and lookup errors yield a placeholder.
func (g *Generator) resolve(ctx context.Context, kind clinical.Kind, id string) string {
	if g.names != nil {
		name, ok, err := g.names.DisplayName(ctx, kind, id)
		switch {
		case err != nil:
			g.logger.Warn().Err(apperr.ExternalLookup(err, "%s %s", kind, id)).Msg("display name lookup failed, using placeholder")
		case ok && name != "":
			return name
		}
	}
	return fmt.Sprintf(placeholders[kind], id)
}

func (g *Generator) store(ctx context.Context, spec flow.CreateSpec) (*GeneratedFlow, error) {
	f, err := g.flows.CreateFlow(ctx, spec)
	if err != nil {
		return nil, err
	}
	freq, _ := spec.Metadata["frequency"].(int)
	return &GeneratedFlow{
		ID:                f.ID,
		Name:              f.Name,
		Type:              f.FlowType,
		Frequency:         freq,
		EstimatedCost:     f.EstimatedCost,
		EstimatedDuration: f.AverageDuration,
	}, nil
}

func (g *Generator) GenerateDiagnosisFlow(ctx context.Context, diagnosisID string, frequency int) (*GeneratedFlow, error) {
	name := g.resolve(ctx, clinical.KindDiagnosis, diagnosisID)
	spec := DiagnosisFlow(name, frequency)
	spec.SourceID = &diagnosisID
	if g.criteria != nil {
		ids, err := g.criteria.MatchDiagnosis(ctx, diagnosisID, name)
		if err != nil {
			g.logger.Warn().Err(err).Str("diagnosis", diagnosisID).Msg("referral criteria lookup failed")
		} else if len(ids) > 0 {
			refs := make([]string, len(ids))
			for i, id := range ids {
				refs[i] = id.String()
			}
			spec.Metadata["referral_criteria"] = refs
		}
	}
	return g.store(ctx, spec)
}

func (g *Generator) GenerateProcedureFlow(ctx context.Context, procedureID string, frequency int) (*GeneratedFlow, error) {
	spec := ProcedureFlow(g.resolve(ctx, clinical.KindProcedure, procedureID), frequency)
	spec.SourceID = &procedureID
	return g.store(ctx, spec)
}

func (g *Generator) GenerateReferralFlow(ctx context.Context, specialtyID string, frequency int) (*GeneratedFlow, error) {
	name := g.resolve(ctx, clinical.KindSpecialty, specialtyID)
	spec := ReferralFlow(name, frequency)
	spec.SourceID = &specialtyID
	spec.SpecialtyID = &specialtyID
	spec.SpecialtyName = &name
	return g.store(ctx, spec)
}

func (g *Generator) GenerateLaboratoryFlow(ctx context.Context, orders int) (*GeneratedFlow, error) {
	return g.store(ctx, LaboratoryFlow(orders))
}

func (g *Generator) GenerateImagingFlow(ctx context.Context, orders int) (*GeneratedFlow, error) {
	return g.store(ctx, ImagingFlow(orders))
}

func (g *Generator) GenerateEmergencyFlow(ctx context.Context) (*GeneratedFlow, error) {
	return g.store(ctx, EmergencyFlow(EmergencyFrequency))
}

// GenerateComprehensiveFlows creates flows for the top diagnoses,
// procedures and referral specialties, then one laboratory, one imaging
// and one emergency flow. A failing item is recorded and skipped.
func (g *Generator) GenerateComprehensiveFlows(ctx context.Context) (*Report, error) {
	sum, err := g.summary.Summary(ctx)
	if err != nil {
		return nil, apperr.ExternalLookup(err, "clinical summary")
	}

	report := &Report{Flows: []GeneratedFlow{}, Failed: []Failure{}}
	record := func(kind, sourceID string, gf *GeneratedFlow, err error) {
		if err != nil {
			g.logger.Warn().Err(err).Str("type", kind).Str("source_id", sourceID).Msg("flow generation failed")
			report.Failed = append(report.Failed, Failure{Type: kind, SourceID: sourceID, Error: err.Error()})
			return
		}
		report.Flows = append(report.Flows, *gf)
	}

	for _, d := range clinical.Rank(sum.Diagnoses, g.topN) {
		gf, err := g.GenerateDiagnosisFlow(ctx, d.ID, d.Count)
		record(TypeDiagnosis, d.ID, gf, err)
	}
	for _, p := range clinical.Rank(sum.Procedures, g.topN) {
		gf, err := g.GenerateProcedureFlow(ctx, p.ID, p.Count)
		record(TypeProcedure, p.ID, gf, err)
	}
	for _, r := range clinical.Rank(sum.Referrals, g.topN) {
		gf, err := g.GenerateReferralFlow(ctx, r.ID, r.Count)
		record(TypeReferral, r.ID, gf, err)
	}
	gf, err := g.GenerateLaboratoryFlow(ctx, sum.LabOrders)
	record(TypeLaboratory, "", gf, err)
	gf, err = g.GenerateImagingFlow(ctx, sum.ImagingOrders)
	record(TypeImaging, "", gf, err)
	gf, err = g.GenerateEmergencyFlow(ctx)
	record(TypeEmergency, "", gf, err)

	report.TotalCreated = len(report.Flows)
	report.TotalFailed = len(report.Failed)
	g.logger.Info().Int("created", report.TotalCreated).Int("failed", report.TotalFailed).Msg("comprehensive generation finished")
	return report, nil
}
