package server

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/foldersync/foldersync/internal/instrumentation"
)

// RegisterSubscriptionTools exposes subscribe and unsubscribe as MCP tools.
//
// Clients whose transport does not route native resources/subscribe
// requests can still manage their subscriptions through tool calls; both
// paths land in the same subscription index.
func RegisterSubscriptionTools(s *mcpserver.MCPServer, b *Bridge) {
	subscribeTool := mcp.NewTool("resources_subscribe",
		mcp.WithDescription("Subscribe the calling session to update notifications for a resource URI"),
		mcp.WithString("uri",
			mcp.Required(),
			mcp.Description("The resource URI to watch, e.g. file:///path/to/file.txt"),
		),
	)

	s.AddTool(subscribeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSubscriptionTool(ctx, request, b, "resources_subscribe", b.Subscribe)
	})

	unsubscribeTool := mcp.NewTool("resources_unsubscribe",
		mcp.WithDescription("Remove the calling session's subscription for a resource URI"),
		mcp.WithString("uri",
			mcp.Required(),
			mcp.Description("The resource URI to stop watching"),
		),
	)

	s.AddTool(unsubscribeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSubscriptionTool(ctx, request, b, "resources_unsubscribe", b.Unsubscribe)
	})
}

func handleSubscriptionTool(
	ctx context.Context,
	request mcp.CallToolRequest,
	b *Bridge,
	toolName string,
	apply func(ctx context.Context, uri string) error,
) (*mcp.CallToolResult, error) {
	start := time.Now()
	metrics := b.core.Metrics()

	args, _ := request.Params.Arguments.(map[string]interface{})
	uri, ok := args["uri"].(string)
	if !ok || uri == "" {
		metrics.RecordToolInvocation(ctx, toolName, instrumentation.StatusError, time.Since(start))
		return mcp.NewToolResultError("uri is required"), nil
	}

	if err := apply(ctx, uri); err != nil {
		metrics.RecordToolInvocation(ctx, toolName, instrumentation.StatusError, time.Since(start))
		return mcp.NewToolResultError(err.Error()), nil
	}

	metrics.RecordToolInvocation(ctx, toolName, instrumentation.StatusSuccess, time.Since(start))
	return mcp.NewToolResultText("ok"), nil
}
