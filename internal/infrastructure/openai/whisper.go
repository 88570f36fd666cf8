package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/kirillkom/order-status-assistant/internal/core/ports"
	"github.com/kirillkom/order-status-assistant/internal/infrastructure/resilience"
)

const DefaultTranscriptionModel = "whisper-1"

type Transcriber struct {
	client   *Client
	model    string
	language string
}

var _ ports.Transcriber = (*Transcriber)(nil)

// NewTranscriber builds a Whisper adapter. An empty language lets the API detect it.
func NewTranscriber(client *Client, model, language string) *Transcriber {
	if model == "" {
		model = DefaultTranscriptionModel
	}
	return &Transcriber{client: client, model: model, language: language}
}

func (t *Transcriber) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	body, contentType, err := t.form(filename, audio)
	if err != nil {
		return "", err
	}

	out, err := resilience.Call(ctx, t.client.exec, "openai.transcribe", resilience.ClassifyHTTP, func(ctx context.Context) (string, error) {
		raw, err := t.client.do(ctx, "/audio/transcriptions", contentType, body, "transcribe")
		if err != nil {
			return "", err
		}
		var result struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(raw, &result); err != nil {
			return "", fmt.Errorf("decode transcribe response: %w", err)
		}
		return strings.TrimSpace(result.Text), nil
	})
	if err != nil {
		return "", resilience.WrapTemporary("openai transcribe", err)
	}
	return out, nil
}

func (t *Transcriber) form(filename string, audio []byte) ([]byte, string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		name = "audio.wav"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("write audio: %w", err)
	}
	if err := writer.WriteField("model", t.model); err != nil {
		return nil, "", fmt.Errorf("write model field: %w", err)
	}
	if t.language != "" {
		if err := writer.WriteField("language", t.language); err != nil {
			return nil, "", fmt.Errorf("write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}
