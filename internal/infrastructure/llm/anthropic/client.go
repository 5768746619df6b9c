// Package anthropic is the Messages API client used for voice intent
// extraction.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/dash-voice/internal/infrastructure/resilience"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	defaultModel   = "claude-sonnet-4-5-20250929"
	apiVersion     = "2023-06-01"
)

type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(apiKey, baseURL, model string, executor *resilience.Executor) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

// Configured reports whether an API key is present. Callers check this before
// issuing requests so an unconfigured deployment fails fast instead of
// round-tripping a guaranteed 401.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// CreateMessage sends one user message under the given system prompt and
// returns the concatenated text blocks of the reply.
func (c *Client) CreateMessage(ctx context.Context, system, user string, maxTokens int) (string, error) {
	request := map[string]any{
		"model":      c.model,
		"max_tokens": maxTokens,
		"system":     system,
		"messages": []map[string]any{
			{"role": "user", "content": user},
		},
	}

	var response struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}

	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/v1/messages", request, &response, "messages")
	}
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "anthropic_messages", call, classifyAnthropicError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic messages: empty text content")
	}
	return text.String(), nil
}
