package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/specfetch/specfetch/internal/task"
)

// DownloadStatusInput defines the input schema for the download_status tool.
type DownloadStatusInput struct {
	TaskID string `json:"task_id,omitempty" jsonschema:"Task ID to poll; lists all known tasks when omitted"`
}

// TaskStatusResult describes one task in a download_status response.
type TaskStatusResult struct {
	TaskID      string   `json:"task_id"`
	Spec        string   `json:"spec"`
	Release     string   `json:"release"`
	Status      string   `json:"status"`
	Progress    *float64 `json:"progress,omitempty"`
	Bytes       int64    `json:"bytes,omitempty"`
	TotalBytes  int64    `json:"total_bytes,omitempty"`
	ArchivePath string   `json:"archive_path,omitempty"`
	Extracted   []string `json:"extracted,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// NewDownloadStatusHandler creates the download_status tool handler.
// Polling is read-only, the same task can be polled any number of times.
func NewDownloadStatusHandler(deps *Dependencies) mcp.ToolHandlerFor[DownloadStatusInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input DownloadStatusInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.TaskID == "" {
			tasks := deps.Tasks.List()
			out := make([]TaskStatusResult, 0, len(tasks))
			for i := range tasks {
				out = append(out, taskStatus(&tasks[i]))
			}
			jsonBytes, _ := json.MarshalIndent(out, "", "  ")
			return TextResult(string(jsonBytes)), nil, nil
		}

		snap, ok := deps.Tasks.Get(input.TaskID)
		if !ok {
			return ErrorResult("unknown task "+input.TaskID,
				"The ID may have expired, call resolve_spec again"), nil, nil
		}

		jsonBytes, _ := json.MarshalIndent(taskStatus(&snap), "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}

func taskStatus(snap *task.Snapshot) TaskStatusResult {
	out := TaskStatusResult{
		TaskID:      snap.ID,
		Spec:        snap.Archive.Key.String(),
		Release:     snap.Archive.Release.String(),
		Status:      string(snap.Status),
		Bytes:       snap.Bytes,
		ArchivePath: snap.ArchivePath,
		Extracted:   snap.Extracted,
		Error:       snap.Error,
	}
	if snap.Total > 0 {
		out.TotalBytes = snap.Total
	}
	if f := snap.Fraction; f >= 0 {
		out.Progress = &f
	}
	return out
}
