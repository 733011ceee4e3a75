// Package llm calls an OpenAI-compatible chat completions endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// #region types

// ErrEmptyResponse is returned when the endpoint answers without any choice text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Config holds endpoint settings.
type Config struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	Model       string        `yaml:"model" json:"model"`
	APIKey      string        `yaml:"api_key" json:"-"`
	Temperature float64       `yaml:"temperature" json:"temperature"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// DefaultConfig points at the public OpenAI endpoint.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://api.openai.com/v1",
		Model:       "gpt-4o-mini",
		Temperature: 0.3,
		MaxTokens:   1024,
		Timeout:     60 * time.Second,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// #endregion types

// #region client

// Client is a chat completions client.
type Client struct {
	http   *resty.Client
	config Config
	logger *slog.Logger
}

// NewClient creates a client for cfg.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &Client{http: client, config: cfg, logger: logger}
}

// BuildURL returns the chat completions URL for a base URL.
func BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = DefaultConfig().BaseURL
	}
	return strings.TrimRight(baseURL, "/") + "/chat/completions"
}

// Complete sends one system+user exchange and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := chatRequest{
		Model: c.config.Model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}

	var out chatResponse
	var apiErr errorResponse
	start := time.Now()
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post(BuildURL(c.config.BaseURL))
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	if res.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = truncate(res.String(), 200)
		}
		return "", fmt.Errorf("llm status %d: %s", res.StatusCode(), msg)
	}

	c.logger.Debug("llm: completion", "model", c.config.Model, "elapsed", time.Since(start), "choices", len(out.Choices))

	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return out.Choices[0].Message.Content, nil
}

// #endregion client

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
