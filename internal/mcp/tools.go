// Package mcp exposes the rewrite pipeline as a Model Context Protocol tool.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/valpere/simplylegal/internal/orchestrator"
)

// Pipeline runs one rewrite request.
type Pipeline interface {
	Run(ctx context.Context, req orchestrator.Request) (*orchestrator.Outcome, error)
}

// RegisterTools registers the simplify_text tool with the server.
func RegisterTools(server *mcpserver.MCPServer, p Pipeline) *Handlers {
	handlers := &Handlers{pipeline: p}

	server.AddTool(mcp.Tool{
		Name:        "simplify_text",
		Description: "Rewrite legal or archaic English text into plain modern English. Long documents are split into chunks, rewritten, and merged back in order.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Text to rewrite (up to the configured maximum length)",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Rewrite style: legal (default) or oldEnglish",
					"enum":        []string{"legal", "oldEnglish"},
					"default":     "legal",
				},
			},
			Required: []string{"text"},
		},
	}, handlers.SimplifyText)

	return handlers
}
