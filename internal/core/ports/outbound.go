package ports

import (
	"context"
	"io"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
)

// Transcriber turns an audio clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

// SpeechSynthesizer turns text into an audio clip.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Completer is the language-model capability used by the AI extraction tier.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// RecordSource loads order records from an external tabular source.
// Version returns a cheap change marker; an empty version means "always reload".
type RecordSource interface {
	Load(ctx context.Context) ([]domain.OrderRecord, error)
	Version(ctx context.Context) (string, error)
}

// RecordStore serves the current read-only record snapshot.
type RecordStore interface {
	Records() []domain.OrderRecord
	Refresh(ctx context.Context) error
}

// AudioStore keeps synthesized clips for later download.
type AudioStore interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// LookupEventPublisher emits lookup events for downstream consumers.
type LookupEventPublisher interface {
	PublishLookup(ctx context.Context, event domain.LookupEvent) error
}

// AssistantMetrics observes pipeline outcomes.
type AssistantMetrics interface {
	ObserveLookup(event domain.LookupEvent, fallbackReason string)
	IncSpeechFailure()
}
