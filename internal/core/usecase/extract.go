package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
	"github.com/kirillkom/order-status-assistant/internal/core/ports"
)

const (
	defaultExtractionTimeout = 15 * time.Second

	topicOrderStatus   = "Order Status Inquiry"
	topicGeneral       = "General Query"
	intentCheckStatus  = "check_status"
	intentGeneralQuery = "general_query"
)

const (
	FallbackAIDisabled    = "ai_disabled"
	FallbackAIError       = "ai_error"
	FallbackAITimeout     = "ai_timeout"
	FallbackAIInvalidJSON = "ai_invalid_json"
)

// FieldExtractor pulls a mobile number, an order id and a customer name out of a transcript.
// The completer is optional; without it only the deterministic matchers run.
type FieldExtractor struct {
	completer ports.Completer
	timeout   time.Duration
}

func NewFieldExtractor(completer ports.Completer, timeout time.Duration) *FieldExtractor {
	if timeout <= 0 {
		timeout = defaultExtractionTimeout
	}
	return &FieldExtractor{
		completer: completer,
		timeout:   timeout,
	}
}

// Extract never fails: any problem with the model degrades to the regex tier.
func (e *FieldExtractor) Extract(ctx context.Context, transcript string) domain.ExtractionResult {
	deterministic := extractDeterministic(transcript)
	if e == nil || e.completer == nil {
		deterministic.FallbackReason = FallbackAIDisabled
		return deterministic
	}

	ai, reason, err := e.extractWithAI(ctx, transcript)
	if err != nil {
		slog.Warn("extraction_fallback",
			"reason", reason,
			"error", err.Error(),
		)
		deterministic.FallbackReason = reason
		return deterministic
	}
	return mergeExtraction(ai, deterministic)
}

func (e *FieldExtractor) extractWithAI(ctx context.Context, transcript string) (domain.ExtractionResult, string, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.completer.Complete(callCtx, buildExtractionPrompt(transcript))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return domain.ExtractionResult{}, FallbackAITimeout, err
		}
		return domain.ExtractionResult{}, FallbackAIError, err
	}

	parsed, err := parseAIExtraction(raw)
	if err != nil {
		return domain.ExtractionResult{}, FallbackAIInvalidJSON, err
	}
	return parsed.normalized(), "", nil
}

// extractDeterministic is the regex tier.
func extractDeterministic(transcript string) domain.ExtractionResult {
	out := domain.ExtractionResult{Source: domain.ExtractionSourceRegex}
	if strings.TrimSpace(transcript) == "" {
		out.Topic, out.Intent = topicGeneral, intentGeneralQuery
		return out
	}

	if mobile, ok := extractMobile(transcript); ok {
		out.MobileNumber = domain.StringPtr(mobile)
	}
	if orderID, ok := extractOrderID(transcript); ok {
		out.OrderID = domain.StringPtr(orderID)
	}
	if name, ok := extractName(transcript); ok {
		out.CustomerName = domain.StringPtr(name)
	}

	if out.MobileNumber != nil || out.OrderID != nil {
		out.Topic, out.Intent = topicOrderStatus, intentCheckStatus
	} else {
		out.Topic, out.Intent = topicGeneral, intentGeneralQuery
	}
	return out
}

// mergeExtraction keeps the model answer and fills identifiers it missed from the
// regex tier. Names are never backfilled: the regex guess is too weak to override
// a model that saw no name.
func mergeExtraction(ai, deterministic domain.ExtractionResult) domain.ExtractionResult {
	out := ai
	out.Source = domain.ExtractionSourceAI
	if out.OutOfContext {
		if out.Topic == "" {
			out.Topic, out.Intent = topicGeneral, intentGeneralQuery
		}
		return out
	}

	filled := false
	if out.MobileNumber == nil && deterministic.MobileNumber != nil {
		out.MobileNumber = deterministic.MobileNumber
		filled = true
	}
	if out.OrderID == nil && deterministic.OrderID != nil {
		out.OrderID = deterministic.OrderID
		filled = true
	}
	if filled {
		out.Source = domain.ExtractionSourceAIRegex
	}
	if out.Topic == "" {
		out.Topic = deterministic.Topic
	}
	if out.Intent == "" {
		out.Intent = deterministic.Intent
	}
	return out
}
