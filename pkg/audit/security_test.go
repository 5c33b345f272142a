package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

// setupTestLogger creates a test logger with an observer to capture log entries.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	return zap.New(core), recorded
}

func rejectedResult(risk models.RiskLevel) *models.QueryResult {
	return &models.QueryResult{
		ID:           uuid.New(),
		Request:      models.QueryRequest{Text: "borra los pacientes", RequestedBy: "dr-lopez"},
		GeneratedSQL: "DELETE FROM Pacientes WHERE Nombre = 'Ana'",
		Validation: &models.ValidationVerdict{
			Issues:    []string{"Dangerous keyword detected: DELETE"},
			RiskLevel: risk,
		},
		Status: models.QueryStatusValidationFailed,
	}
}

func TestNewSecurityAuditor(t *testing.T) {
	logger, _ := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	assert.NotNil(t, auditor)
	assert.NotNil(t, auditor.logger)
}

func TestLogRejected_HighRiskIsCritical(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)
	auditor.now = func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC) }

	result := rejectedResult(models.RiskHigh)
	auditor.LogRejected(context.Background(), result)

	entries := recorded.All()
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "Dangerous query rejected", entry.Message)
	assert.Equal(t, "security_audit", entry.LoggerName)

	fields := entry.ContextMap()
	assert.Equal(t, result.ID.String(), fields["query_id"])
	assert.Equal(t, "dr-lopez", fields["user_id"])
	assert.Equal(t, "critical", fields["severity"])

	var event SecurityEvent
	require.NoError(t, json.Unmarshal([]byte(fields["event_json"].(string)), &event))
	assert.Equal(t, EventQueryRejected, event.EventType)
	assert.Equal(t, result.ID, event.QueryID)
	assert.Equal(t, "2026-10-16T09:00:00Z", event.Timestamp.Format(time.RFC3339))

	details, ok := event.Details.(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, details["sql"], "Ana", "literals must be masked")
	assert.Equal(t, "high", details["risk_level"])
}

func TestLogRejected_LowerRiskIsWarning(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	auditor.LogRejected(context.Background(), rejectedResult(models.RiskMedium))

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "warning", entries[0].ContextMap()["severity"])
}

func TestLogRejected_WithoutVerdict(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	result := rejectedResult(models.RiskLow)
	result.Validation = nil
	auditor.LogRejected(context.Background(), result)

	require.Equal(t, 1, recorded.FilterMessage("Query rejected").Len())
}

func TestLogExecution(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	result := &models.QueryResult{
		ID:           uuid.New(),
		Request:      models.QueryRequest{Text: "¿Cuántas citas hay hoy?", RequestedBy: "recepcion"},
		Domain:       "appointments",
		GeneratedSQL: "SELECT COUNT(*) FROM Citas",
		Status:       models.QueryStatusSuccess,
		RowCount:     1,
		DurationMs:   42,
	}
	auditor.LogExecution(context.Background(), result)

	entries := recorded.FilterMessage("Query executed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "recepcion", fields["user_id"])
	assert.Equal(t, int64(1), fields["row_count"])

	var event SecurityEvent
	require.NoError(t, json.Unmarshal([]byte(fields["event_json"].(string)), &event))
	assert.Equal(t, EventQueryExecution, event.EventType)
	assert.Equal(t, "info", event.Severity)
}
