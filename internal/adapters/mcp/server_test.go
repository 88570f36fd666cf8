package mcpadapter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
	"github.com/kirillkom/order-status-assistant/internal/core/ports"
)

type assistantFake struct {
	gotMobile  string
	gotOrderID string
	gotText    string
}

func (f *assistantFake) ProcessTranscript(_ context.Context, transcript string, _ ports.ProcessOptions) domain.StatusReport {
	f.gotText = transcript
	return domain.StatusReport{Transcript: transcript, ResponseText: "ok"}
}

func (f *assistantFake) ProcessAudio(context.Context, string, []byte, ports.ProcessOptions) (domain.StatusReport, error) {
	return domain.StatusReport{}, nil
}

func (f *assistantFake) LookupOrder(_ context.Context, mobileNumber, orderID string) domain.StatusReport {
	f.gotMobile = mobileNumber
	f.gotOrderID = orderID
	return domain.StatusReport{
		StatusFound: true,
		OrderStatus: domain.OrderStatusView{Status: "Shipped"},
	}
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestCheckOrderStatusReturnsReport(t *testing.T) {
	fake := &assistantFake{}
	tools := NewTools(fake)

	result, err := tools.CheckOrderStatus(context.Background(), callRequest(toolCheckOrderStatus, map[string]any{
		"mobile_number": " 9876543210 ",
		"order_id":      "AMZ12345",
	}))
	if err != nil {
		t.Fatalf("check order status: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if fake.gotMobile != "9876543210" || fake.gotOrderID != "AMZ12345" {
		t.Fatalf("unexpected lookup args %q %q", fake.gotMobile, fake.gotOrderID)
	}

	var report domain.StatusReport
	if err := json.Unmarshal([]byte(resultText(t, result)), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report.StatusFound || report.OrderStatus.Status != "Shipped" {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestCheckOrderStatusRejectsEmptyArguments(t *testing.T) {
	tools := NewTools(&assistantFake{})

	result, err := tools.CheckOrderStatus(context.Background(), callRequest(toolCheckOrderStatus, map[string]any{}))
	if err != nil {
		t.Fatalf("check order status: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected tool error for missing identifiers")
	}
}

func TestProcessTranscriptRequiresText(t *testing.T) {
	fake := &assistantFake{}
	tools := NewTools(fake)

	result, err := tools.ProcessTranscript(context.Background(), callRequest(toolProcessTranscript, map[string]any{"text": "  "}))
	if err != nil {
		t.Fatalf("process transcript: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected tool error for blank text")
	}

	result, err = tools.ProcessTranscript(context.Background(), callRequest(toolProcessTranscript, map[string]any{"text": "order AMZ12345"}))
	if err != nil {
		t.Fatalf("process transcript: %v", err)
	}
	if result.IsError || fake.gotText != "order AMZ12345" {
		t.Fatalf("unexpected result: error=%v text=%q", result.IsError, fake.gotText)
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer(&assistantFake{})
	tools := s.ListTools()
	for _, name := range []string{toolCheckOrderStatus, toolProcessTranscript} {
		if _, ok := tools[name]; !ok {
			t.Fatalf("expected tool %q to be registered", name)
		}
	}
}
