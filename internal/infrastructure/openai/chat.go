package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/kirillkom/order-status-assistant/internal/core/ports"
	"github.com/kirillkom/order-status-assistant/internal/infrastructure/resilience"
)

const DefaultChatModel = "gpt-4o-mini"

type ChatCompleter struct {
	client *Client
	model  string
}

var _ ports.Completer = (*ChatCompleter)(nil)

func NewChatCompleter(client *Client, model string) *ChatCompleter {
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatCompleter{client: client, model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *ChatCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := resilience.Call(ctx, c.client.exec, "openai.chat", resilience.ClassifyHTTP, func(ctx context.Context) (string, error) {
		var resp chatResponse
		err := c.client.postJSON(ctx, "/chat/completions", chatRequest{
			Model:          c.model,
			Messages:       []chatMessage{{Role: "user", Content: prompt}},
			Temperature:    0,
			ResponseFormat: map[string]any{"type": "json_object"},
		}, &resp, "chat")
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("openai chat returned no choices")
		}
		return strings.TrimSpace(resp.Choices[0].Message.Content), nil
	})
	if err != nil {
		return "", resilience.WrapTemporary("openai chat", err)
	}
	return out, nil
}
