// Package provider builds oracle clients for the supported LLM vendors.
//
// A single factory keeps vendor selection in one place: callers pass the
// provider name from configuration and get back an oracle.Client without
// importing vendor packages themselves. OpenAI-compatible services such as
// DeepSeek or Moonshot reuse the openai adapter with a custom base URL.
package provider

import (
	"fmt"
	"strings"

	"github.com/sweetpotato0/health-agent/contrib/provider/claude"
	"github.com/sweetpotato0/health-agent/contrib/provider/cohere"
	"github.com/sweetpotato0/health-agent/contrib/provider/gemini"
	"github.com/sweetpotato0/health-agent/contrib/provider/groq"
	"github.com/sweetpotato0/health-agent/contrib/provider/openai"
	errorskg "github.com/sweetpotato0/health-agent/errors"
	"github.com/sweetpotato0/health-agent/oracle"
)

// Settings is the vendor-independent subset every provider understands.
// Vendor-specific tuning (token limits, temperature) stays on the vendor
// package's own Config.
type Settings struct {
	APIKey  string
	BaseURL string
	Model   string
}

// New returns an oracle client for the named provider. The name is matched
// case-insensitively; an empty name defaults to the OpenAI adapter, which
// also serves OpenAI-compatible endpoints via Settings.BaseURL.
func New(name string, s Settings) (oracle.Client, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "openai", "deepseek":
		cfg := openai.DefaultConfig().WithAPIKey(s.APIKey)
		if s.BaseURL != "" {
			cfg = cfg.WithBaseURL(s.BaseURL)
		}
		if s.Model != "" {
			cfg = cfg.WithModel(s.Model)
		}
		return openai.New(cfg), nil
	case "claude", "anthropic":
		cfg := claude.DefaultConfig().WithAPIKey(s.APIKey)
		if s.BaseURL != "" {
			cfg = cfg.WithBaseURL(s.BaseURL)
		}
		if s.Model != "" {
			cfg = cfg.WithModel(s.Model)
		}
		return claude.New(cfg), nil
	case "gemini", "google":
		cfg := gemini.DefaultConfig().WithAPIKey(s.APIKey)
		if s.Model != "" {
			cfg = cfg.WithModel(s.Model)
		}
		return gemini.New(cfg)
	case "groq":
		cfg := groq.DefaultConfig().WithAPIKey(s.APIKey)
		if s.Model != "" {
			cfg = cfg.WithModel(s.Model)
		}
		return groq.New(cfg), nil
	case "cohere":
		cfg := cohere.DefaultConfig().WithAPIKey(s.APIKey)
		if s.Model != "" {
			cfg = cfg.WithModel(s.Model)
		}
		return cohere.New(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q: %w", name, errorskg.ErrInvalidInput)
	}
}
