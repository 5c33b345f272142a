package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/models"
)

type healthResult struct {
	Version string `json:"version"`
	*models.HealthStatus
}

// RegisterHealthTool adds a health tool reporting database reachability,
// schema stats, the last integrity report and the scheduled jobs.
func RegisterHealthTool(s *server.MCPServer, deps *ClinicToolDeps) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns system health: database, schema catalog, last integrity check and scheduled jobs"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(healthResult{Version: deps.Version, HealthStatus: deps.Health.Status(ctx)})
	})
}

// RegisterClinicTools registers every clinic tool.
func RegisterClinicTools(s *server.MCPServer, deps *ClinicToolDeps) {
	RegisterQueryTools(s, deps)
	RegisterIntegrityTools(s, deps)
	RegisterAnalyticsTools(s, deps)
	RegisterHealthTool(s, deps)
}
