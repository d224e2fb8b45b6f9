package config

import (
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Provider != ProviderDeepSeek {
		t.Errorf("Provider = %q, want %q", cfg.Provider, ProviderDeepSeek)
	}
	if cfg.MemoryBackend != MemoryBackendSQLite {
		t.Errorf("MemoryBackend = %q, want %q", cfg.MemoryBackend, MemoryBackendSQLite)
	}
}

func TestFromEnvDeepSeekDefaults(t *testing.T) {
	t.Setenv("PROVIDER", "deepseek")
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	t.Setenv("LLM_BASE_URL", "")
	t.Setenv("LLM_MODEL", "")

	cfg := FromEnv()
	if cfg.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want %q", cfg.APIKey, "sk-test")
	}
	if cfg.BaseURL != deepseekBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, deepseekBaseURL)
	}
	if cfg.Model != "deepseek-chat" {
		t.Errorf("Model = %q, want %q", cfg.Model, "deepseek-chat")
	}
}

func TestFromEnvGenericKeyWinsOverVendorKey(t *testing.T) {
	t.Setenv("PROVIDER", "openai")
	t.Setenv("LLM_API_KEY", "sk-generic")
	t.Setenv("OPENAI_API_KEY", "sk-vendor")

	cfg := FromEnv()
	if cfg.APIKey != "sk-generic" {
		t.Errorf("APIKey = %q, want %q", cfg.APIKey, "sk-generic")
	}
}

func TestFromEnvOtherProviderLeavesModelToAdapter(t *testing.T) {
	t.Setenv("PROVIDER", "claude")
	t.Setenv("ANTHROPIC_API_KEY", "sk-claude")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("LLM_BASE_URL", "")

	cfg := FromEnv()
	if cfg.Model != "" {
		t.Errorf("Model = %q, want empty (adapter default)", cfg.Model)
	}
	if cfg.BaseURL != "" {
		t.Errorf("BaseURL = %q, want empty", cfg.BaseURL)
	}
}

func TestFromEnvPipelineKnobs(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "8")
	t.Setenv("RETRIEVAL_MAX_LOOPS", "2")
	t.Setenv("INTERVIEW_MAX_FOLLOWUPS", "0")
	t.Setenv("WEB_SEARCH", "false")

	cfg := FromEnv()
	if cfg.TopK != 8 {
		t.Errorf("TopK = %d, want 8", cfg.TopK)
	}
	if cfg.MaxLoops != 2 {
		t.Errorf("MaxLoops = %d, want 2", cfg.MaxLoops)
	}
	if cfg.MaxFollowups != 0 {
		t.Errorf("MaxFollowups = %d, want 0", cfg.MaxFollowups)
	}
	if cfg.WebSearch {
		t.Errorf("WebSearch = true, want false")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestFromEnvMalformedIntFallsBack(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "four")

	cfg := FromEnv()
	if cfg.TopK != Default().TopK {
		t.Errorf("TopK = %d, want default %d", cfg.TopK, Default().TopK)
	}
}

func TestValidateRejectsUnknownEnums(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "unknown provider",
			mutate: func(c *Config) { c.Provider = "watson" },
		},
		{
			name:   "unknown memory backend",
			mutate: func(c *Config) { c.MemoryBackend = "cassandra" },
		},
		{
			name:   "unknown session backend",
			mutate: func(c *Config) { c.SessionBackend = "etcd" },
		},
		{
			name:   "empty knowledge dir",
			mutate: func(c *Config) { c.KnowledgeDir = "" },
		},
		{
			name:   "zero topK",
			mutate: func(c *Config) { c.TopK = 0 },
		},
		{
			name:   "negative followups",
			mutate: func(c *Config) { c.MaxFollowups = -1 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}
}
