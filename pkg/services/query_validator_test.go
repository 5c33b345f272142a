package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/llm"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/prompts"
)

const approvingVerdict = `{"valid": true, "issues": [], "risk_level": "low", "estimated_rows": 120}`

func TestQueryValidator_ValidSelectPasses(t *testing.T) {
	gateway := llm.NewMockGateway(approvingVerdict)
	v := NewQueryValidator(gateway, 500, zap.NewNop())

	verdict := v.Validate(context.Background(), "SELECT COUNT(*) AS total FROM Pacientes", "Pacientes: IdPac")

	assert.True(t, verdict.Valid)
	assert.Empty(t, verdict.Issues)
	assert.Equal(t, models.RiskLow, verdict.RiskLevel)
	assert.Equal(t, int64(120), verdict.EstimatedRows)

	calls := gateway.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, prompts.QueryValidatorSystem, calls[0].SystemPrompt)
	assert.Equal(t, 0.0, calls[0].Options.Temperature)
	assert.Contains(t, calls[0].Prompt, "SELECT COUNT(*) AS total FROM Pacientes")
}

func TestQueryValidator_DenylistOverridesApproval(t *testing.T) {
	for _, sqlQuery := range []string{
		"DELETE FROM Pacientes",
		"delete from Pacientes",
		"SELECT * FROM Pacientes; DrOp TABLE Pacientes",
	} {
		t.Run(sqlQuery, func(t *testing.T) {
			v := NewQueryValidator(llm.NewMockGateway(approvingVerdict), 500, zap.NewNop())

			verdict := v.Validate(context.Background(), sqlQuery, "")

			assert.False(t, verdict.Valid)
			assert.Equal(t, models.RiskHigh, verdict.RiskLevel)
			assert.NotEmpty(t, verdict.Issues)
		})
	}
}

func TestQueryValidator_DeleteIssueText(t *testing.T) {
	v := NewQueryValidator(llm.NewMockGateway(approvingVerdict), 500, zap.NewNop())

	verdict := v.Validate(context.Background(), "DELETE FROM Pacientes", "")
	assert.Contains(t, verdict.Issues, "Dangerous keyword detected: DELETE")
}

func TestQueryValidator_MalformedVerdictFailsClosed(t *testing.T) {
	for name, response := range map[string]string{
		"not json":       "looks fine to me",
		"missing risk":   `{"valid": true}`,
		"bad risk value": `{"valid": true, "risk_level": "none"}`,
		"wrong type":     `{"valid": "yes", "risk_level": "low"}`,
	} {
		t.Run(name, func(t *testing.T) {
			v := NewQueryValidator(llm.NewMockGateway(response), 500, zap.NewNop())

			verdict := v.Validate(context.Background(), "SELECT IdPac FROM Pacientes", "")

			assert.False(t, verdict.Valid)
			assert.Equal(t, models.RiskHigh, verdict.RiskLevel)
			assert.Contains(t, verdict.Issues, "unparseable verdict")
		})
	}
}

func TestQueryValidator_GatewayErrorFailsClosed(t *testing.T) {
	gateway := &llm.MockGateway{
		GenerateFunc: func(context.Context, string, string, llm.Options) (string, error) {
			return "", errors.New("503 service unavailable")
		},
	}
	v := NewQueryValidator(gateway, 500, zap.NewNop())

	verdict := v.Validate(context.Background(), "SELECT IdPac FROM Pacientes", "")

	assert.False(t, verdict.Valid)
	assert.Equal(t, models.RiskHigh, verdict.RiskLevel)
	require.Len(t, verdict.Issues, 1)
	assert.Contains(t, verdict.Issues[0], "semantic validation unavailable")
}

func TestQueryValidator_SemanticRejectionKeepsJudgeIssues(t *testing.T) {
	gateway := llm.NewMockGateway("<think>hmm</think>```json\n{\"valid\": false, \"issues\": [\"Unknown column Foo\"], \"risk_level\": \"medium\"}\n```")
	v := NewQueryValidator(gateway, 500, zap.NewNop())

	verdict := v.Validate(context.Background(), "SELECT Foo FROM Pacientes", "")

	assert.False(t, verdict.Valid)
	assert.Equal(t, []string{"Unknown column Foo"}, verdict.Issues)
	assert.Equal(t, models.RiskMedium, verdict.RiskLevel)
}

func TestQueryValidator_InspectDoesNotCallGateway(t *testing.T) {
	gateway := llm.NewMockGateway(approvingVerdict)
	v := NewQueryValidator(gateway, 500, zap.NewNop())

	ok := v.Inspect("SELECT IdPac FROM Pacientes")
	assert.True(t, ok.Valid)
	assert.Equal(t, []string{}, ok.Issues)
	assert.Equal(t, models.RiskLow, ok.RiskLevel)

	bad := v.Inspect("TRUNCATE TABLE Citas")
	assert.False(t, bad.Valid)
	assert.Equal(t, models.RiskHigh, bad.RiskLevel)
	assert.Contains(t, bad.Issues, "Dangerous keyword detected: TRUNCATE")

	assert.Zero(t, gateway.CallCount())
}

func TestParseVerdict_FlexibleIssuesAndRows(t *testing.T) {
	verdict, err := ParseVerdict(`{"valid": true, "issues": ["a", 2], "risk_level": "low", "estimated_rows": "35"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "2"}, verdict.Issues)
	assert.Equal(t, int64(35), verdict.EstimatedRows)
}

func TestMergeVerdicts(t *testing.T) {
	semantic := models.ValidationVerdict{Valid: true, Issues: []string{"judge note"}, RiskLevel: models.RiskMedium, EstimatedRows: 10}
	deterministic := models.ValidationVerdict{Valid: false, Issues: []string{"Dangerous keyword detected: DROP"}, RiskLevel: models.RiskHigh}

	merged := MergeVerdicts(semantic, deterministic)

	assert.False(t, merged.Valid)
	assert.Equal(t, models.RiskHigh, merged.RiskLevel)
	assert.Equal(t, []string{"judge note", "Dangerous keyword detected: DROP"}, merged.Issues)
	assert.Equal(t, int64(10), merged.EstimatedRows)

	both := MergeVerdicts(
		models.ValidationVerdict{Valid: true, Issues: []string{}, RiskLevel: models.RiskLow},
		models.ValidationVerdict{Valid: true, Issues: []string{}, RiskLevel: models.RiskLow},
	)
	assert.True(t, both.Valid)
	assert.Equal(t, models.RiskLow, both.RiskLevel)
}
