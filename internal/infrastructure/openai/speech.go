package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/order-status-assistant/internal/core/ports"
	"github.com/kirillkom/order-status-assistant/internal/infrastructure/resilience"
)

const (
	DefaultSpeechModel = "tts-1"
	DefaultVoice       = "alloy"
)

type SpeechSynthesizer struct {
	client *Client
	model  string
	voice  string
}

var _ ports.SpeechSynthesizer = (*SpeechSynthesizer)(nil)

func NewSpeechSynthesizer(client *Client, model, voice string) *SpeechSynthesizer {
	if model == "" {
		model = DefaultSpeechModel
	}
	if voice == "" {
		voice = DefaultVoice
	}
	return &SpeechSynthesizer{client: client, model: model, voice: voice}
}

// Synthesize returns an MP3 clip.
func (s *SpeechSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{
		"model":           s.model,
		"voice":           s.voice,
		"input":           text,
		"response_format": "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal speech request: %w", err)
	}

	clip, err := resilience.Call(ctx, s.client.exec, "openai.speech", resilience.ClassifyHTTP, func(ctx context.Context) ([]byte, error) {
		return s.client.do(ctx, "/audio/speech", "application/json", body, "speech")
	})
	if err != nil {
		return nil, resilience.WrapTemporary("openai speech", err)
	}
	if len(clip) == 0 {
		return nil, errors.New("openai speech returned an empty clip")
	}
	return clip, nil
}
