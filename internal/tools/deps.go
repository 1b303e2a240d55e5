// Package tools provides MCP tool handlers and registration.
package tools

import (
	"log/slog"

	"github.com/specfetch/specfetch/internal/pipeline"
	"github.com/specfetch/specfetch/internal/task"
)

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Pipeline *pipeline.Pipeline
	Tasks    *task.Manager
	Logger   *slog.Logger
}
