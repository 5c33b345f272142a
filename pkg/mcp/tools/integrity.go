package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

var reportKinds = []string{
	models.ReportKindIntegrity,
	models.ReportKindAnalytics,
	models.ReportKindMonthly,
	models.ReportKindQuery,
}

type integrityResult struct {
	RunID          string                    `json:"run_id"`
	Status         models.RunStatus          `json:"status"`
	Total          int                       `json:"total_tests"`
	Passed         int                       `json:"passed"`
	Failed         int                       `json:"failed"`
	CriticalIssues []models.IntegrityFinding `json:"critical_issues"`
	ReportID       string                    `json:"report_id,omitempty"`
	Actions        []string                  `json:"recommended_actions"`
	PersistError   string                    `json:"persist_error,omitempty"`
}

// RegisterIntegrityTools adds run_integrity_check and latest_report.
func RegisterIntegrityTools(s *server.MCPServer, deps *ClinicToolDeps) {
	runTool := mcp.NewTool(
		"run_integrity_check",
		mcp.WithDescription(
			"Run every data integrity check (orphaned records, inconsistent values, business rules) "+
				"against the clinic database and store the report."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(runTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		outcome, err := deps.Integrity.RunAndReport(ctx)
		if err != nil {
			return errorResult(err, "run integrity check")
		}
		run := outcome.Run
		out := integrityResult{
			RunID:          run.ID.String(),
			Status:         run.Status,
			Total:          run.Total,
			Passed:         run.Passed,
			Failed:         run.Failed,
			CriticalIssues: run.CriticalIssues,
			Actions:        outcome.Report.RecommendedActions,
			PersistError:   outcome.PersistError,
		}
		if outcome.Persisted {
			out.ReportID = outcome.Report.ID.String()
		}
		return jsonResult(out)
	})

	latestTool := mcp.NewTool(
		"latest_report",
		mcp.WithDescription("Return the most recent stored report of a kind (default: integrity)."),
		mcp.WithString(
			"kind",
			mcp.Description("Report kind"),
			mcp.Enum(reportKinds...),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(latestTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind := getOptionalString(req, "kind")
		if kind == "" {
			kind = models.ReportKindIntegrity
		}
		if !validKind(kind) {
			return NewErrorResultWithDetails("invalid_input", fmt.Sprintf("unknown report kind %q", kind),
				map[string]any{"valid_kinds": reportKinds}), nil
		}

		report, err := deps.Reports.Latest(ctx, kind)
		if err != nil {
			return errorResult(err, "load latest report")
		}
		return jsonResult(report)
	})
}

func validKind(kind string) bool {
	for _, k := range reportKinds {
		if k == kind {
			return true
		}
	}
	return false
}
