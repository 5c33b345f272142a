package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

type churnRiskResult struct {
	RiskLevel string               `json:"risk_level,omitempty"`
	Total     int                  `json:"total"`
	Patients  []models.EntityScore `json:"patients"`
}

// RegisterAnalyticsTools adds churn_risk.
func RegisterAnalyticsTools(s *server.MCPServer, deps *ClinicToolDeps) {
	tool := mcp.NewTool(
		"churn_risk",
		mcp.WithDescription(
			"List patients at risk of leaving the clinic, highest risk first, with their score, "+
				"tier, contributing factors and a suggested retention action."),
		mcp.WithString(
			"risk_level",
			mcp.Description("Only return this tier"),
			mcp.Enum(models.TierCritical, models.TierHigh, models.TierMedium, models.TierLow),
		),
		mcp.WithNumber(
			"limit",
			mcp.Description("Max patients to return (default: 50, max: 500)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tier := getOptionalString(req, "risk_level")
		scores, err := deps.Analytics.ChurnRisk(ctx, tier)
		if err != nil {
			return errorResult(err, "score churn risk")
		}

		out := churnRiskResult{RiskLevel: tier, Total: len(scores), Patients: scores}
		if limit := clampLimit(req, 50, 500); len(out.Patients) > limit {
			out.Patients = out.Patients[:limit]
		}
		if out.Patients == nil {
			out.Patients = []models.EntityScore{}
		}
		return jsonResult(out)
	})
}
