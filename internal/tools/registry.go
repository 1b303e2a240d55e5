package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/specfetch/specfetch/internal/config"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies, cfg *config.Config) {
	// Resolve a spec+release to an archive URL and register a pending task
	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_spec",
		Description: "Resolve a 3GPP spec and release to its versioned archive URL; returns a task ID for start_download",
	}, NewResolveSpecHandler(deps, cfg))

	// Start a resolved download in the background
	mcp.AddTool(server, &mcp.Tool{
		Name:        "start_download",
		Description: "Start downloading and extracting a resolved spec archive in the background",
	}, NewStartDownloadHandler(deps))

	// Poll a background download
	mcp.AddTool(server, &mcp.Tool{
		Name:        "download_status",
		Description: "Check status, progress and extracted files of a download task, or list all tasks",
	}, NewDownloadStatusHandler(deps))

	// Enumerate releases/versions for a spec, specs within a series, or known series
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_releases",
		Description: "List available releases and version tokens for a spec, the spec directories of a series, or the known series",
	}, NewListReleasesHandler(deps))
}
