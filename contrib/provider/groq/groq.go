// Package groq adapts the Groq chat-completions API (OpenAI wire format)
// to the oracle.Client contract.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sweetpotato0/health-agent/oracle"
)

const defaultAPIURL = "https://api.groq.com/openai/v1/chat/completions"

// Config holds Groq client configuration.
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
		Model:       "llama-3.1-8b-instant",
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

// Client is a Groq-backed oracle.
type Client struct {
	config *Config
	client *http.Client
}

var _ oracle.Client = (*Client)(nil)

// New creates a Groq-backed oracle client.
func New(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Model == "" {
		config.Model = "llama-3.1-8b-instant"
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultAPIURL
	}

	return &Client{
		config: config,
		client: &http.Client{},
	}
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type groqResponse struct {
	Choices []struct {
		Message groqMessage `json:"message"`
	} `json:"choices"`
	Error *groqError `json:"error,omitempty"`
}

type groqError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete sends one prompt and returns the model's text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.config.APIKey == "" {
		return "", fmt.Errorf("groq completion: API key not configured")
	}

	payload, err := json.Marshal(groqRequest{
		Model:       c.config.Model,
		Messages:    []groqMessage{{Role: "user", Content: prompt}},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("groq completion: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("groq completion: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq completion: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("groq completion: read response: %w", err)
	}

	var parsed groqResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("groq completion: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("groq completion: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("groq completion: no choices returned")
	}
	return parsed.Choices[0].Message.Content, nil
}
