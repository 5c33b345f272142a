package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSQLPrompt(t *testing.T) {
	p := BuildSQLPrompt("  ¿Cuántas citas hay hoy? ", "Citas: IdCita, FechaCita")

	assert.Contains(t, p, "Citas: IdCita, FechaCita")
	assert.Contains(t, p, "Question:\n¿Cuántas citas hay hoy?\n")
	assert.True(t, len(p) > 0 && p[len(p)-4:] == "SQL:")
}

func TestBuildValidationPrompt(t *testing.T) {
	p := BuildValidationPrompt("SELECT 1", "Citas: IdCita")
	assert.Contains(t, p, "SQL:\nSELECT 1\n")
	assert.Contains(t, p, "Schema:\nCitas: IdCita")
}

func TestBuildSummaryPrompt(t *testing.T) {
	rows := []map[string]any{{"total": 5}}
	p := BuildSummaryPrompt("how many", rows, 1)

	assert.Contains(t, p, "Original question: how many")
	assert.Contains(t, p, "Query returned 1 rows")
	assert.Contains(t, p, `"total": 5`)
}

func TestBuildInsightPrompt(t *testing.T) {
	p := BuildInsightPrompt("Patient churn risk analysis", map[string]int{"critical": 3})
	assert.Contains(t, p, "Context: Patient churn risk analysis")
	assert.Contains(t, p, `"critical": 3`)
}

func TestSystemPromptsForbidSelectStar(t *testing.T) {
	assert.Contains(t, SQLGeneratorSystem, "NEVER use SELECT *")
	assert.Contains(t, QueryValidatorSystem, `"estimated_rows"`)
}
