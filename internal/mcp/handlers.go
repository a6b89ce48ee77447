package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/valpere/simplylegal/internal"
	"github.com/valpere/simplylegal/internal/orchestrator"
)

// Handlers contains the handler functions for the MCP tools.
type Handlers struct {
	pipeline Pipeline
}

// SimplifyText handles the simplify_text tool. The result is the same JSON
// envelope the HTTP API returns.
func (h *Handlers) SimplifyText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}

	mode, err := internal.ParseMode(request.GetString("mode", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	outcome, err := h.pipeline.Run(ctx, orchestrator.Request{Text: text, Mode: mode})
	if err != nil {
		if outcome == nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("rewrite failed after %d chunks: %v", outcome.ChunksProcessed, err)), nil
	}

	responseJSON, err := json.Marshal(outcome.Envelope())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
