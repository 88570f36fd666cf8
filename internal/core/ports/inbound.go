package ports

import (
	"context"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
)

// StageFunc receives pipeline progress: stage name plus a stage payload.
type StageFunc func(stage string, payload any)

// OrderStatusAssistant is the inbound contract for the voice order-status pipeline.
type OrderStatusAssistant interface {
	ProcessTranscript(ctx context.Context, transcript string, opts ProcessOptions) domain.StatusReport
	ProcessAudio(ctx context.Context, filename string, audio []byte, opts ProcessOptions) (domain.StatusReport, error)
	LookupOrder(ctx context.Context, mobileNumber, orderID string) domain.StatusReport
}

// ProcessOptions tunes a single transcript run.
type ProcessOptions struct {
	Speak     bool
	RequestID string
	OnStage   StageFunc
}
