package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/specfetch/specfetch/internal/config"
	"github.com/specfetch/specfetch/internal/spec"
)

// ResolveSpecInput defines the input schema for the resolve_spec tool.
type ResolveSpecInput struct {
	Spec    string `json:"spec" jsonschema:"required,Spec identifier like 'TS 24.301' or '24.301'"`
	Release string `json:"release,omitempty" jsonschema:"Release like 'Rel-16'; resolves the latest version when omitted"`
}

// ResolveSpecResult is the response from the resolve_spec tool.
type ResolveSpecResult struct {
	TaskID  string `json:"task_id"`
	Spec    string `json:"spec"`
	Release string `json:"release"`
	Version string `json:"version"`
	URL     string `json:"url"`
}

// NewResolveSpecHandler creates the resolve_spec tool handler.
// Resolves a spec+release to a concrete archive URL and registers a
// pending download task for it; the task is started via start_download.
func NewResolveSpecHandler(deps *Dependencies, cfg *config.Config) mcp.ToolHandlerFor[ResolveSpecInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ResolveSpecInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.Spec == "" {
			return ErrorResult("spec is required", `Provide a spec identifier like "TS 24.301"`), nil, nil
		}

		key, err := spec.ParseKey(input.Spec)
		if err != nil {
			return resolveErrorResult(err), nil, nil
		}

		var rel spec.Release
		latest := input.Release == ""
		if !latest {
			rel, err = spec.ParseRelease(input.Release)
			if err != nil {
				return resolveErrorResult(err), nil, nil
			}
		}

		resolved, err := deps.Pipeline.Resolve(ctx, key, rel, latest)
		if err != nil {
			return resolveErrorResult(err), nil, nil
		}

		t := deps.Tasks.Create(resolved, cfg.OutputDir)

		out := ResolveSpecResult{
			TaskID:  t.ID,
			Spec:    resolved.Key.String(),
			Release: resolved.Release.String(),
			Version: resolved.Token,
			URL:     resolved.URL,
		}
		jsonBytes, _ := json.MarshalIndent(out, "", "  ")

		deps.Logger.Info("spec resolved", "spec", out.Spec, "release", out.Release, "task_id", t.ID)
		return TextResult(string(jsonBytes)), nil, nil
	}
}
