// Package llm wraps the chat-completions HTTP API behind a single Complete
// call. Failures are classified so the retry helper can tell transient
// outages from rejected requests.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"content_harvester/internal/domain"
)

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Client struct {
	client  *resty.Client
	apiKey  string
	model   string
	baseURL string
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func New(cfg Config) *Client {
	return &Client{
		client:  resty.New().SetTimeout(cfg.Timeout),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
	}
}

// Complete sends a system+user prompt pair and returns the completion text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	var body chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetBody(req).
		SetResult(&body).
		SetError(&body).
		Post(c.baseURL + "/chat/completions")

	if err != nil {
		return "", &domain.TransientError{Op: "llm complete", Err: err}
	}

	if resp.IsError() {
		msg := fmt.Errorf("request rejected")
		if body.Error != nil {
			msg = fmt.Errorf("%s", body.Error.Message)
		}
		return "", domain.ClassifyStatus("llm complete", resp.StatusCode(), msg)
	}

	if len(body.Choices) == 0 {
		return "", &domain.PermanentError{Op: "llm complete", Err: fmt.Errorf("no choices in response")}
	}

	text := strings.TrimSpace(body.Choices[0].Message.Content)
	if text == "" {
		return "", &domain.PermanentError{Op: "llm complete", Err: fmt.Errorf("empty completion")}
	}
	return text, nil
}
