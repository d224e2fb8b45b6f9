// Package cohere adapts the Cohere chat API to the oracle.Client contract.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sweetpotato0/health-agent/oracle"
)

const defaultAPIURL = "https://api.cohere.ai/v1/chat"

// Config holds Cohere client configuration.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:       "command-r",
		MaxTokens:   2048,
		Temperature: 0.3,
	}
}

// WithAPIKey sets the API key.
func (cfg *Config) WithAPIKey(apiKey string) *Config {
	cfg.APIKey = apiKey
	return cfg
}

// WithModel sets the model.
func (cfg *Config) WithModel(model string) *Config {
	cfg.Model = model
	return cfg
}

// Client is a Cohere-backed oracle.
type Client struct {
	config *Config
	client *http.Client
}

var _ oracle.Client = (*Client)(nil)

// New creates a Cohere-backed oracle client.
func New(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Model == "" {
		config.Model = "command-r"
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultAPIURL
	}

	return &Client{
		config: config,
		client: &http.Client{},
	}
}

type cohereRequest struct {
	Model       string  `json:"model"`
	Message     string  `json:"message"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type cohereResponse struct {
	Text  string       `json:"text"`
	Error *cohereError `json:"error,omitempty"`
}

type cohereError struct {
	Message string `json:"message"`
}

// Complete sends one prompt and returns the model's text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.config.APIKey == "" {
		return "", fmt.Errorf("cohere completion: API key not configured")
	}

	payload, err := json.Marshal(cohereRequest{
		Model:       c.config.Model,
		Message:     prompt,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("cohere completion: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("cohere completion: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cohere completion: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("cohere completion: read response: %w", err)
	}

	var parsed cohereResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("cohere completion: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("cohere completion: %s", parsed.Error.Message)
	}
	if parsed.Text == "" {
		return "", fmt.Errorf("cohere completion: empty response")
	}
	return parsed.Text, nil
}
