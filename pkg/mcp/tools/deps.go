// Package tools registers the clinic's MCP tools.
package tools

import (
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/services"
)

// ClinicToolDeps holds the services the MCP tools call into.
type ClinicToolDeps struct {
	Orchestrator services.QueryOrchestrator
	Integrity    services.IntegrityService
	Reports      services.ReportService
	Analytics    services.AnalyticsService
	Health       services.HealthService
	Version      string
	Logger       *zap.Logger
}

// getOptionalString extracts an optional string argument from the request.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return ""
	}
	val, _ := args[key].(string)
	return val
}

// getOptionalFloat extracts an optional number argument from the request.
func getOptionalFloat(req mcp.CallToolRequest, key string) (float64, bool) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return 0, false
	}
	val, ok := args[key].(float64)
	return val, ok
}

// getOptionalBool extracts an optional boolean argument from the request.
func getOptionalBool(req mcp.CallToolRequest, key string) (bool, bool) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return false, false
	}
	val, ok := args[key].(bool)
	return val, ok
}

// clampLimit reads an optional "limit" argument bounded to [1, max].
func clampLimit(req mcp.CallToolRequest, def, max int) int {
	v, ok := getOptionalFloat(req, "limit")
	if !ok {
		return def
	}
	n := int(v)
	if n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
