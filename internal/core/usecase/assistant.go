package usecase

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
	"github.com/kirillkom/order-status-assistant/internal/core/ports"
)

const (
	StageProcessing = "processing"
	StageExtracted  = "extracted"
	StageResolved   = "resolved"
	StageCompleted  = "completed"

	NoSpeechMessage = "No speech detected in the audio file"

	audioPathPrefix = "/audio/"
	audioExtension  = ".mp3"
)

// AssistantDeps groups the collaborators of AssistantUseCase.
// Transcriber, Synthesizer, Audio, Events and Metrics may be nil.
type AssistantDeps struct {
	Extractor        *FieldExtractor
	Store            ports.RecordStore
	Transcriber      ports.Transcriber
	Synthesizer      ports.SpeechSynthesizer
	Audio            ports.AudioStore
	Events           ports.LookupEventPublisher
	Metrics          ports.AssistantMetrics
	RefreshOnRequest bool
}

type AssistantUseCase struct {
	extractor        *FieldExtractor
	store            ports.RecordStore
	transcriber      ports.Transcriber
	synthesizer      ports.SpeechSynthesizer
	audio            ports.AudioStore
	events           ports.LookupEventPublisher
	metrics          ports.AssistantMetrics
	refreshOnRequest bool

	now   func() time.Time
	newID func() string
}

var _ ports.OrderStatusAssistant = (*AssistantUseCase)(nil)

func NewAssistantUseCase(deps AssistantDeps) *AssistantUseCase {
	extractor := deps.Extractor
	if extractor == nil {
		extractor = NewFieldExtractor(nil, 0)
	}
	return &AssistantUseCase{
		extractor:        extractor,
		store:            deps.Store,
		transcriber:      deps.Transcriber,
		synthesizer:      deps.Synthesizer,
		audio:            deps.Audio,
		events:           deps.Events,
		metrics:          deps.Metrics,
		refreshOnRequest: deps.RefreshOnRequest,
		now:              time.Now,
		newID:            uuid.NewString,
	}
}

func (uc *AssistantUseCase) ProcessAudio(
	ctx context.Context,
	filename string,
	audio []byte,
	opts ports.ProcessOptions,
) (domain.StatusReport, error) {
	if len(audio) == 0 {
		return domain.StatusReport{}, domain.WrapError(domain.ErrInvalidInput, "process audio", errors.New("audio file is empty"))
	}
	if uc.transcriber == nil {
		return domain.StatusReport{}, domain.WrapError(domain.ErrNotConfigured, "process audio", errors.New("speech-to-text is not configured"))
	}

	transcript, err := uc.transcriber.Transcribe(ctx, filename, audio)
	if err != nil {
		slog.Error("transcription_failed",
			"request_id", opts.RequestID,
			"filename", filename,
			"error", err.Error(),
		)
		return errorReport("transcription failed: " + err.Error()), nil
	}
	if strings.TrimSpace(transcript) == "" {
		return errorReport(NoSpeechMessage), nil
	}
	return uc.ProcessTranscript(ctx, transcript, opts), nil
}

func (uc *AssistantUseCase) ProcessTranscript(
	ctx context.Context,
	transcript string,
	opts ports.ProcessOptions,
) domain.StatusReport {
	emit(opts, StageProcessing, map[string]string{"transcript": transcript})

	extraction := uc.extractor.Extract(ctx, transcript)
	emit(opts, StageExtracted, extraction)

	return uc.complete(ctx, transcript, extraction, opts)
}

// LookupOrder skips extraction and resolves identifiers supplied directly.
func (uc *AssistantUseCase) LookupOrder(ctx context.Context, mobileNumber, orderID string) domain.StatusReport {
	extraction := domain.ExtractionResult{
		Topic:  topicOrderStatus,
		Intent: intentCheckStatus,
		Source: domain.ExtractionSourceDirect,
	}
	if v := strings.TrimSpace(mobileNumber); v != "" {
		extraction.MobileNumber = domain.StringPtr(v)
	}
	if v := domain.NormalizeOrderID(orderID); v != "" {
		extraction.OrderID = domain.StringPtr(v)
	}
	return uc.complete(ctx, "", extraction, ports.ProcessOptions{})
}

func (uc *AssistantUseCase) complete(
	ctx context.Context,
	transcript string,
	extraction domain.ExtractionResult,
	opts ports.ProcessOptions,
) domain.StatusReport {
	var outcome domain.LookupOutcome
	if !extraction.OutOfContext {
		outcome = ResolveOrder(uc.records(ctx, opts.RequestID), extraction.MobileNumber, extraction.OrderID)
		emit(opts, StageResolved, outcome)
	}

	response := ComposeResponse(extraction, outcome)
	report := buildReport(transcript, extraction, outcome, response)

	if opts.Speak {
		report.AudioURL = uc.speak(ctx, response.VoiceText, opts.RequestID)
	}

	uc.publish(ctx, report, extraction, opts.RequestID)
	emit(opts, StageCompleted, report)
	return report
}

func (uc *AssistantUseCase) records(ctx context.Context, requestID string) []domain.OrderRecord {
	if uc.store == nil {
		return nil
	}
	if uc.refreshOnRequest {
		if err := uc.store.Refresh(ctx); err != nil {
			slog.Warn("records_refresh_failed",
				"request_id", requestID,
				"error", err.Error(),
			)
		}
	}
	return uc.store.Records()
}

// speak synthesizes the voice text and returns its download path.
// Failures are logged and leave the report without audio.
func (uc *AssistantUseCase) speak(ctx context.Context, text, requestID string) *string {
	if uc.synthesizer == nil || uc.audio == nil || strings.TrimSpace(text) == "" {
		return nil
	}

	clip, err := uc.synthesizer.Synthesize(ctx, text)
	if err == nil && len(clip) == 0 {
		err = errors.New("empty audio clip")
	}
	key := uc.newID() + audioExtension
	if err == nil {
		err = uc.audio.Save(ctx, key, bytes.NewReader(clip))
	}
	if err != nil {
		slog.Warn("speech_failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		if uc.metrics != nil {
			uc.metrics.IncSpeechFailure()
		}
		return nil
	}
	return domain.StringPtr(audioPathPrefix + key)
}

func (uc *AssistantUseCase) publish(ctx context.Context, report domain.StatusReport, extraction domain.ExtractionResult, requestID string) {
	event := domain.LookupEvent{
		RequestID:        requestID,
		StatusFound:      report.StatusFound,
		Reason:           report.Reason,
		OutOfContext:     report.OutOfContext,
		ExtractionSource: extraction.Source,
		OccurredAt:       uc.now().UTC(),
	}
	if mobile, ok := extraction.Mobile(); ok {
		event.MaskedMobile = domain.MaskMobile(mobile)
	}
	if orderID, ok := extraction.Order(); ok {
		event.OrderID = orderID
	}

	if uc.metrics != nil {
		uc.metrics.ObserveLookup(event, extraction.FallbackReason)
	}
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishLookup(ctx, event); err != nil {
		slog.Warn("lookup_event_publish_failed",
			"request_id", requestID,
			"error", err.Error(),
		)
	}
}

func buildReport(
	transcript string,
	extraction domain.ExtractionResult,
	outcome domain.LookupOutcome,
	response domain.ComposedResponse,
) domain.StatusReport {
	report := domain.StatusReport{
		Transcript:        transcript,
		MobileNumber:      extraction.MobileNumber,
		OrderID:           extraction.OrderID,
		CustomerName:      extraction.CustomerName,
		Topic:             extraction.Topic,
		Intent:            extraction.Intent,
		StatusFound:       outcome.Found,
		ResponseText:      response.Text,
		ResponseVoiceText: response.VoiceText,
		OutOfContext:      extraction.OutOfContext,
		Reason:            outcome.Reason,
		ExtractionSource:  extraction.Source,
	}
	if outcome.Found {
		rec := outcome.Record
		if rec.CustomerName != "" {
			report.CustomerName = domain.StringPtr(rec.CustomerName)
		}
		report.OrderStatus = domain.OrderStatusView{
			Status:       rec.OrderStatus,
			DeliveryDate: rec.DeliveryDate,
			LastUpdate:   rec.LastUpdate,
		}
	}
	return report
}

func errorReport(message string) domain.StatusReport {
	return domain.StatusReport{Error: message}
}

func emit(opts ports.ProcessOptions, stage string, payload any) {
	if opts.OnStage != nil {
		opts.OnStage(stage, payload)
	}
}
