package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/order-status-assistant/internal/core/ports"
)

const (
	serverName    = "order-status-assistant"
	serverVersion = "1.0.0"

	toolCheckOrderStatus  = "check_order_status"
	toolProcessTranscript = "process_transcript"
)

// Tools exposes the order-status pipeline as MCP tools.
type Tools struct {
	assistant ports.OrderStatusAssistant
}

func NewTools(assistant ports.OrderStatusAssistant) *Tools {
	return &Tools{assistant: assistant}
}

// NewServer registers the tools on a fresh MCP server.
func NewServer(assistant ports.OrderStatusAssistant) *server.MCPServer {
	tools := NewTools(assistant)
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool(toolCheckOrderStatus,
		mcp.WithDescription("Look up an order by the customer's 10-digit mobile number and order id. Both are required for a match."),
		mcp.WithString("mobile_number", mcp.Description("Customer mobile number, 10 digits.")),
		mcp.WithString("order_id", mcp.Description("Order id such as AMZ12345.")),
	), tools.CheckOrderStatus)

	s.AddTool(mcp.NewTool(toolProcessTranscript,
		mcp.WithDescription("Extract order identifiers from a free-text customer message and answer with the order status."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Customer message or speech transcript.")),
	), tools.ProcessTranscript)

	return s
}

func (t *Tools) CheckOrderStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mobile := strings.TrimSpace(request.GetString("mobile_number", ""))
	orderID := strings.TrimSpace(request.GetString("order_id", ""))
	if mobile == "" && orderID == "" {
		return mcp.NewToolResultError("mobile_number or order_id is required"), nil
	}
	return reportResult(t.assistant.LookupOrder(ctx, mobile, orderID))
}

func (t *Tools) ProcessTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil || strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("text is required"), nil
	}
	return reportResult(t.assistant.ProcessTranscript(ctx, text, ports.ProcessOptions{}))
}

func reportResult(report any) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal status report: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}
