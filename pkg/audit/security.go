// Package audit writes security-relevant query events as structured JSON
// under a dedicated logger namespace for SIEM ingestion.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/logging"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventQueryRejected is logged when validation vetoes a generated statement.
	EventQueryRejected SecurityEventType = "query_rejected"
	// EventQueryExecution is logged for every statement that reached the database.
	EventQueryExecution SecurityEventType = "query_execution"
)

// SecurityEvent is one auditable event.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	QueryID   uuid.UUID         `json:"query_id"`
	UserID    string            `json:"user_id,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// RejectionDetails describes a vetoed statement.
type RejectionDetails struct {
	Question  string   `json:"question"`
	SQL       string   `json:"sql"`
	Issues    []string `json:"issues"`
	RiskLevel string   `json:"risk_level"`
}

// ExecutionDetails describes a statement that ran.
type ExecutionDetails struct {
	Domain     string `json:"domain"`
	SQL        string `json:"sql"`
	Status     string `json:"status"`
	RowCount   int    `json:"row_count"`
	DurationMs int64  `json:"duration_ms"`
}

// SecurityAuditor logs query events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSecurityAuditor creates an auditor logging under the "security_audit" namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit"), now: time.Now}
}

// LogRejected records a statement vetoed by validation. High-risk verdicts
// are logged at ERROR with critical severity; the rest at WARN.
func (a *SecurityAuditor) LogRejected(_ context.Context, result *models.QueryResult) {
	details := RejectionDetails{
		Question: logging.TruncateString(result.Request.Text, 200),
		SQL:      logging.SanitizeQuery(result.GeneratedSQL),
	}
	if v := result.Validation; v != nil {
		details.Issues = v.Issues
		details.RiskLevel = string(v.RiskLevel)
	}

	severity := "warning"
	if details.RiskLevel == string(models.RiskHigh) {
		severity = "critical"
	}

	event := a.event(EventQueryRejected, result, details, severity)
	fields := []zap.Field{
		zap.String("event_json", event),
		zap.String("query_id", result.ID.String()),
		zap.String("user_id", result.Request.RequestedBy),
		zap.Strings("issues", details.Issues),
		zap.String("risk_level", details.RiskLevel),
		zap.String("severity", severity),
	}
	if severity == "critical" {
		a.logger.Error("Dangerous query rejected", fields...)
		return
	}
	a.logger.Warn("Query rejected", fields...)
}

// LogExecution records a statement that reached the database.
func (a *SecurityAuditor) LogExecution(_ context.Context, result *models.QueryResult) {
	details := ExecutionDetails{
		Domain:     result.Domain,
		SQL:        logging.SanitizeQuery(result.GeneratedSQL),
		Status:     string(result.Status),
		RowCount:   result.RowCount,
		DurationMs: result.DurationMs,
	}

	a.logger.Info("Query executed",
		zap.String("event_json", a.event(EventQueryExecution, result, details, "info")),
		zap.String("query_id", result.ID.String()),
		zap.String("user_id", result.Request.RequestedBy),
		zap.Int("row_count", result.RowCount),
		zap.String("severity", "info"))
}

func (a *SecurityAuditor) event(kind SecurityEventType, result *models.QueryResult, details any, severity string) string {
	event := SecurityEvent{
		Timestamp: a.now().UTC(),
		EventType: kind,
		QueryID:   result.ID,
		UserID:    result.Request.RequestedBy,
		Details:   details,
		Severity:  severity,
	}
	// marshaling these known types cannot fail
	eventJSON, _ := json.Marshal(event)
	return string(eventJSON)
}
