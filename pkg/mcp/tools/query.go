package tools

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/auth"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

// maxToolRows caps the rows echoed back to the model; row_count stays exact.
const maxToolRows = 100

type askResult struct {
	QueryID   uuid.UUID           `json:"query_id"`
	Domain    string              `json:"domain"`
	SQL       string              `json:"sql"`
	Columns   []models.ColumnInfo `json:"columns"`
	Rows      []models.Row        `json:"rows"`
	RowCount  int                 `json:"row_count"`
	Truncated bool                `json:"truncated,omitempty"`
	Summary   string              `json:"summary,omitempty"`
	Warnings  []string            `json:"warnings,omitempty"`
}

// RegisterQueryTools adds ask_clinic_database.
func RegisterQueryTools(s *server.MCPServer, deps *ClinicToolDeps) {
	tool := mcp.NewTool(
		"ask_clinic_database",
		mcp.WithDescription(
			"Answer a question about the clinic in natural language (Spanish or English). "+
				"The question is turned into a read-only SQL query, validated, executed "+
				"against the clinic database and summarized."),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The question, e.g. '¿Cuántos pacientes tuvieron cita este mes?'"),
		),
		mcp.WithBoolean(
			"validate",
			mcp.Description("Run the semantic validator before executing (default: true)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return NewErrorResult("invalid_input", "question is required"), nil
		}
		validate := true
		if v, ok := getOptionalBool(req, "validate"); ok {
			validate = v
		}

		result := deps.Orchestrator.Process(ctx, models.QueryRequest{
			Text:        strings.TrimSpace(question),
			Validate:    validate,
			RequestedBy: auth.GetUserIDFromContext(ctx),
		})

		if !result.Succeeded() {
			deps.Logger.Debug("ask_clinic_database did not succeed",
				zap.String("query_id", result.ID.String()),
				zap.String("status", string(result.Status)))
			details := map[string]any{"sql": result.GeneratedSQL}
			if result.Validation != nil {
				details["issues"] = result.Validation.Issues
				details["risk_level"] = result.Validation.RiskLevel
			}
			return NewErrorResultWithDetails(string(result.Status), result.ErrorMessage, details), nil
		}

		out := askResult{
			QueryID:  result.ID,
			Domain:   result.Domain,
			SQL:      result.GeneratedSQL,
			Columns:  result.Columns,
			Rows:     result.Rows,
			RowCount: result.RowCount,
			Summary:  result.Summary,
			Warnings: result.Warnings,
		}
		if len(out.Rows) > maxToolRows {
			out.Rows = out.Rows[:maxToolRows]
			out.Truncated = true
		}
		if out.Rows == nil {
			out.Rows = []models.Row{}
		}
		return jsonResult(out)
	})
}
