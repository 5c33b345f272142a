// Package mcp serves the clinic tools over the Model Context Protocol.
package mcp

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/Manzanedodelgado/IA-DENTAL/pkg/mcp/tools"
	"github.com/Manzanedodelgado/IA-DENTAL/pkg/middleware"
)

// ServerName is advertised to MCP clients during initialize.
const ServerName = "ia-dental"

// Server wraps the mcp-go MCPServer with the clinic tool set.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates an MCP server with every clinic tool registered.
func NewServer(version string, deps *tools.ClinicToolDeps, logger *zap.Logger) *Server {
	logger = logger.Named("mcp")

	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	if deps.Version == "" {
		deps.Version = version
	}
	if deps.Logger == nil {
		deps.Logger = logger
	}
	tools.RegisterClinicTools(mcpServer, deps)

	return &Server{
		mcp:    mcpServer,
		logger: logger,
	}
}

// MCP returns the underlying MCPServer.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Handler returns the streamable HTTP transport with MCP request logging.
// The HTTP mux handles routing to /mcp, so no endpoint path is configured here.
func (s *Server) Handler() http.Handler {
	transport := server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
	return middleware.MCPRequestLogger(s.logger)(transport)
}
