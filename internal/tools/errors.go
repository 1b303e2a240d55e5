package tools

import (
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/specfetch/specfetch/internal/resolve"
	"github.com/specfetch/specfetch/internal/spec"
)

// ErrorResult creates a tool error result with optional recovery hint.
// If hint is non-empty, formats as "{msg}. {hint}".
// Returns IsError=true so the caller can see the error and self-correct.
func ErrorResult(msg, hint string) *mcp.CallToolResult {
	text := msg
	if hint != "" {
		text = msg + ". " + hint
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}

// TextResult creates a success result with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// resolveErrorResult maps resolution failures to error results with a
// corrective hint for each known cause.
func resolveErrorResult(err error) *mcp.CallToolResult {
	var upstream *resolve.UpstreamError
	switch {
	case errors.Is(err, spec.ErrInvalidSpec):
		return ErrorResult(err.Error(), `Use the form "TS 24.301" or "24.301"`)
	case errors.Is(err, spec.ErrInvalidRelease):
		return ErrorResult(err.Error(), `Use the form "Rel-16"`)
	case errors.Is(err, spec.ErrUnsupportedRelease):
		return ErrorResult(err.Error(), "Releases up to Rel-35 are supported")
	case errors.Is(err, resolve.ErrSpecUnknown):
		return ErrorResult(err.Error(), "Check the spec number, or use list_releases with an empty spec to enumerate known series")
	case errors.Is(err, resolve.ErrNoRelease):
		return ErrorResult(err.Error(), "Use list_releases to see which releases exist for this spec")
	case errors.As(err, &upstream):
		return ErrorResult(err.Error(), "The archive server may be unavailable, retry later")
	default:
		return ErrorResult(fmt.Sprintf("resolution failed: %v", err), "")
	}
}
