// Package server hosts the MCP server for the spec archive tools.
package server

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server bundles the MCP server with the logger its middleware reports to.
type Server struct {
	mcp    *mcp.Server
	logger *slog.Logger
}

// New builds a server advertising the given version.
func New(version string, logger *slog.Logger) *Server {
	impl := &mcp.Implementation{
		Name:    "specfetch",
		Version: version,
	}

	return &Server{
		mcp:    mcp.NewServer(impl, nil),
		logger: logger,
	}
}

// Run serves on stdio and blocks until the client disconnects or ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server", "transport", "stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer exposes the underlying server so tools can be registered on it.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Setup installs the request logging middleware.
func (s *Server) Setup() {
	s.mcp.AddReceivingMiddleware(LoggingMiddleware(s.logger))
}
