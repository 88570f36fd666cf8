package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/order-status-assistant/internal/core/ports"
	"github.com/kirillkom/order-status-assistant/internal/infrastructure/resilience"
)

// Client completes extraction prompts against a local Ollama server.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	exec       *resilience.Executor
}

var _ ports.Completer = (*Client)(nil)

func New(baseURL, model string, timeout time.Duration, exec *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		exec:       exec,
	}
}

// Complete asks for a JSON-formatted answer; the extractor parses it.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := resilience.Call(ctx, c.exec, "ollama.generate", resilience.ClassifyHTTP, func(ctx context.Context) (string, error) {
		return c.generate(ctx, prompt)
	})
	if err != nil {
		return "", resilience.WrapTemporary("ollama generate", err)
	}
	return out, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	request := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": 0,
		},
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", request, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
