// Package config assembles application settings from environment variables
// and provides the validation helpers the storage and provider packages use
// on their own config blocks. A .env file in the working directory is
// honored when present.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Provider names accepted in PROVIDER. DeepSeek and the other
// OpenAI-compatible services ride the openai adapter with a custom base URL.
const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderClaude   = "claude"
	ProviderGemini   = "gemini"
	ProviderGroq     = "groq"
	ProviderCohere   = "cohere"
)

// Memory backend names accepted in MEMORY_BACKEND.
const (
	MemoryBackendMemory   = "memory"
	MemoryBackendSQLite   = "sqlite"
	MemoryBackendPostgres = "postgres"
	MemoryBackendMongo    = "mongo"
)

// Session backend names accepted in SESSION_BACKEND.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

// Config is the application configuration. Storage-specific connection
// settings stay with their store packages (POSTGRES_*, MONGODB_*, REDIS_*,
// SQLITE_PATH); this struct selects between them and configures the
// conversation pipeline.
type Config struct {
	// Provider selects the LLM vendor. APIKey, BaseURL and Model feed the
	// matching provider adapter; empty Model falls back to the adapter's
	// default.
	Provider string
	APIKey   string
	BaseURL  string
	Model    string

	MemoryBackend  string
	SessionBackend string

	// KnowledgeDir is scanned for markdown knowledge-base documents.
	KnowledgeDir string

	// TopK and MaxLoops bound the retrieval loop; MaxFollowups bounds the
	// interview's dynamic follow-up rounds.
	TopK         int
	MaxLoops     int
	MaxFollowups int

	// WebSearch enables the remote fallback source.
	WebSearch bool
}

// apiKeyEnvs maps provider names to their conventional key variables.
// LLM_API_KEY works for any provider.
var apiKeyEnvs = map[string]string{
	ProviderOpenAI:   "OPENAI_API_KEY",
	ProviderDeepSeek: "DEEPSEEK_API_KEY",
	ProviderClaude:   "ANTHROPIC_API_KEY",
	ProviderGemini:   "GEMINI_API_KEY",
	ProviderGroq:     "GROQ_API_KEY",
	ProviderCohere:   "COHERE_API_KEY",
}

const deepseekBaseURL = "https://api.deepseek.com"

// Default returns the stock configuration: DeepSeek for language calls, a
// local SQLite profile store, in-process sessions and web search enabled.
func Default() *Config {
	return &Config{
		Provider:       ProviderDeepSeek,
		MemoryBackend:  MemoryBackendSQLite,
		SessionBackend: SessionBackendMemory,
		KnowledgeDir:   "data/knowledge",
		TopK:           4,
		MaxLoops:       3,
		MaxFollowups:   3,
		WebSearch:      true,
	}
}

// Load reads .env when present, assembles the configuration from the
// environment and validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv assembles the configuration from environment variables, falling
// back to defaults for anything unset. It does not validate.
func FromEnv() *Config {
	cfg := Default()
	cfg.Provider = strings.ToLower(getEnv("PROVIDER", cfg.Provider))
	cfg.APIKey = apiKeyFromEnv(cfg.Provider)
	cfg.BaseURL = getEnv("LLM_BASE_URL", "")
	cfg.Model = getEnv("LLM_MODEL", "")
	cfg.MemoryBackend = strings.ToLower(getEnv("MEMORY_BACKEND", cfg.MemoryBackend))
	cfg.SessionBackend = strings.ToLower(getEnv("SESSION_BACKEND", cfg.SessionBackend))
	cfg.KnowledgeDir = getEnv("KNOWLEDGE_DIR", cfg.KnowledgeDir)
	cfg.TopK = getEnvInt("RETRIEVAL_TOP_K", cfg.TopK)
	cfg.MaxLoops = getEnvInt("RETRIEVAL_MAX_LOOPS", cfg.MaxLoops)
	cfg.MaxFollowups = getEnvInt("INTERVIEW_MAX_FOLLOWUPS", cfg.MaxFollowups)
	cfg.WebSearch = getEnvBool("WEB_SEARCH", cfg.WebSearch)

	// DeepSeek speaks the OpenAI protocol but needs its own endpoint and
	// model name.
	if cfg.Provider == ProviderDeepSeek {
		if cfg.BaseURL == "" {
			cfg.BaseURL = deepseekBaseURL
		}
		if cfg.Model == "" {
			cfg.Model = "deepseek-chat"
		}
	}
	return cfg
}

// Validate checks enum fields and pipeline bounds. The API key is not
// required here: without one the interview still runs its fixed script and
// the caller decides how loudly to warn.
func (c *Config) Validate() error {
	v := NewValidator()
	v.ValidateOneOf("provider", c.Provider,
		ProviderOpenAI, ProviderDeepSeek, ProviderClaude, ProviderGemini, ProviderGroq, ProviderCohere)
	v.ValidateOneOf("memoryBackend", c.MemoryBackend,
		MemoryBackendMemory, MemoryBackendSQLite, MemoryBackendPostgres, MemoryBackendMongo)
	v.ValidateOneOf("sessionBackend", c.SessionBackend,
		SessionBackendMemory, SessionBackendRedis)
	v.RequireNonEmpty("knowledgeDir", c.KnowledgeDir)
	if err := v.Error(); err != nil {
		return err
	}
	if err := ValidateRetrievalConfig(c.TopK, c.MaxLoops); err != nil {
		return err
	}
	return ValidateInterviewConfig(c.MaxFollowups)
}

// apiKeyFromEnv resolves the key for a provider: the generic LLM_API_KEY
// first, then the vendor's conventional variable.
func apiKeyFromEnv(provider string) string {
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		return v
	}
	if name, ok := apiKeyEnvs[provider]; ok {
		return os.Getenv(name)
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
