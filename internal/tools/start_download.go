package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StartDownloadInput defines the input schema for the start_download tool.
type StartDownloadInput struct {
	TaskID    string `json:"task_id" jsonschema:"required,Task ID returned by resolve_spec"`
	OutputDir string `json:"output_dir,omitempty" jsonschema:"Directory to download into; defaults to the configured output directory"`
}

// StartDownloadResult is the response from the start_download tool.
type StartDownloadResult struct {
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	URL       string `json:"url"`
	OutputDir string `json:"output_dir"`
}

// NewStartDownloadHandler creates the start_download tool handler.
// Claims a pending task and launches the download in the background;
// the call returns immediately and progress is polled via download_status.
func NewStartDownloadHandler(deps *Dependencies) mcp.ToolHandlerFor[StartDownloadInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StartDownloadInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.TaskID == "" {
			return ErrorResult("task_id is required", "Call resolve_spec first to obtain one"), nil, nil
		}

		t, ok := deps.Tasks.Claim(input.TaskID, input.OutputDir)
		if !ok {
			if snap, exists := deps.Tasks.Get(input.TaskID); exists {
				return ErrorResult("task "+input.TaskID+" already started",
					"Its status is "+string(snap.Status)+", poll it with download_status"), nil, nil
			}
			return ErrorResult("unknown task "+input.TaskID,
				"The ID may have expired, call resolve_spec again"), nil, nil
		}

		out := StartDownloadResult{
			TaskID:    t.ID,
			Status:    "running",
			URL:       t.Archive.URL,
			OutputDir: t.OutDir,
		}

		// The request context dies with this call; the download must not.
		go deps.Pipeline.RunTask(context.Background(), deps.Tasks, t)
		jsonBytes, _ := json.MarshalIndent(out, "", "  ")

		deps.Logger.Info("download started", "task_id", t.ID, "out_dir", t.OutDir)
		return TextResult(string(jsonBytes)), nil, nil
	}
}
