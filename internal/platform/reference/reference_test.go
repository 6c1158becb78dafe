package reference

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func TestLookup_KnownTypes(t *testing.T) {
	tests := []struct {
		stepType string
		want     Presentation
	}{
		{"consultation", Presentation{"Consultation", "Person", "#1976d2"}},
		{"laboratory", Presentation{"Laboratory", "Science", "#dc004e"}},
		{"imaging", Presentation{"Imaging", "Assignment", "#2e7d32"}},
		{"diagnosis", Presentation{"Diagnosis", "LocalHospital", "#ed6c02"}},
		{"prescription", Presentation{"Treatment", "Medication", "#9c27b0"}},
		{"followup", Presentation{"Follow-up", "Schedule", "#00bcd4"}},
		{"emergency", Presentation{"Emergency", "Emergency", "#f44336"}},
		{"procedure", Presentation{"Procedure", "MedicalServices", "#ff9800"}},
		{"referral", Presentation{"Referral", "TransferWithinAStation", "#795548"}},
		{"discharge", Presentation{"Discharge", "CheckCircle", "#4caf50"}},
	}
	for _, tt := range tests {
		t.Run(tt.stepType, func(t *testing.T) {
			assert.Equal(t, tt.want, Lookup(tt.stepType))
		})
	}
}

func TestLookup_UnknownFallsBackToGeneral(t *testing.T) {
	for _, stepType := range []string{"surgery", "recovery", "teleconsult", ""} {
		p := Lookup(stepType)
		assert.Equal(t, "General", p.Category, stepType)
		assert.Equal(t, "Help", p.Icon, stepType)
		assert.Equal(t, "#757575", p.Color, stepType)
	}
}

func TestTypes_CoversEveryStepType(t *testing.T) {
	assert.Len(t, table.Types, 10)
	types := Types()
	require.Len(t, types, len(StepTypes))
	assert.Equal(t, TypeConsultation, types[0].Type)
	assert.Equal(t, CategoryFor(TypeConsultation), types[0].Category)
	last := types[len(types)-1]
	assert.Equal(t, TypeRecovery, last.Type)
	assert.Equal(t, "General", last.Category)
}

func TestIsStepType(t *testing.T) {
	assert.Len(t, StepTypes, 13)
	assert.True(t, IsStepType("surgery"))
	assert.True(t, IsStepType("medication"))
	assert.False(t, IsStepType("Consultation"))
	assert.False(t, IsStepType("xray"))
}

func TestDefaultSteps_Library(t *testing.T) {
	steps := DefaultSteps()
	require.Len(t, steps, 11)

	assert.Equal(t, "General Consultation", steps[0].Name)
	assert.Equal(t, 35.0, steps[0].BaseCost)
	assert.Equal(t, 20, steps[0].DurationMinutes)

	for _, s := range steps {
		assert.True(t, IsStepType(s.StepType), s.Name)
		assert.Regexp(t, hexColor, s.Color, s.Name)
		assert.GreaterOrEqual(t, s.BaseCost, 0.0, s.Name)
		assert.NotEmpty(t, s.Tags, s.Name)
	}
}

func TestDefaultSteps_ReturnsCopy(t *testing.T) {
	steps := DefaultSteps()
	steps[0].Name = "changed"
	steps[0].Tags[0] = "changed"

	again := DefaultSteps()
	assert.Equal(t, "General Consultation", again[0].Name)
	assert.NotEqual(t, "changed", again[0].Tags[0])
}

func TestParseDefaultSteps_RejectsUnknownType(t *testing.T) {
	_, err := parseDefaultSteps([]byte("- name: X\n  step_type: xray\n"))
	assert.Error(t, err)
}

func TestParseDefaultSteps_RejectsDuplicateName(t *testing.T) {
	_, err := parseDefaultSteps([]byte("- name: X\n  step_type: imaging\n- name: x\n  step_type: imaging\n"))
	assert.Error(t, err)
}

func TestParseTypeTable_RequiresFallback(t *testing.T) {
	_, err := parseTypeTable([]byte("types:\n  imaging:\n    category: Imaging\n"))
	assert.Error(t, err)
}
