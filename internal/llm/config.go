package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Provider names accepted in Config.Provider.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMock       = "mock"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// defaultModels is the model used when Config.Model is empty.
var defaultModels = map[string]string{
	ProviderAnthropic:  "claude-haiku",
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderGemini:     "gemini-flash",
	ProviderOpenRouter: "google/gemini-2.5-flash",
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string

	// BaseURL overrides the endpoint of OpenAI-compatible providers.
	BaseURL string

	// Timeout bounds one Generate call including retries.
	Timeout time.Duration
	Retry   RetryConfig
}

// RetryConfig configures backoff for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig returns the defaults for provider.
func DefaultConfig(provider string) Config {
	return Config{
		Provider: provider,
		Model:    defaultModels[provider],
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// ConfigFromEnv reads SATSLAB_LLM_PROVIDER, SATSLAB_LLM_API_KEY,
// SATSLAB_LLM_MODEL, SATSLAB_LLM_BASE_URL and SATSLAB_LLM_TIMEOUT. When no
// provider is named it falls back to DiscoverConfig. ok is false when no
// provider could be configured.
func ConfigFromEnv() (cfg Config, ok bool) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("SATSLAB_LLM_PROVIDER")))
	if provider == "" {
		return DiscoverConfig()
	}

	cfg = DefaultConfig(provider)
	cfg.APIKey = os.Getenv("SATSLAB_LLM_API_KEY")
	if m := os.Getenv("SATSLAB_LLM_MODEL"); m != "" {
		cfg.Model = m
	}
	cfg.BaseURL = os.Getenv("SATSLAB_LLM_BASE_URL")
	if d, err := time.ParseDuration(os.Getenv("SATSLAB_LLM_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	return cfg, true
}

// DiscoverConfig probes the vendors' standard API key variables and
// configures the first provider found.
func DiscoverConfig() (Config, bool) {
	probes := []struct{ env, provider string }{
		{"ANTHROPIC_API_KEY", ProviderAnthropic},
		{"OPENAI_API_KEY", ProviderOpenAI},
		{"GEMINI_API_KEY", ProviderGemini},
		{"OPENROUTER_API_KEY", ProviderOpenRouter},
	}
	for _, p := range probes {
		if k := os.Getenv(p.env); k != "" {
			cfg := DefaultConfig(p.provider)
			cfg.APIKey = k
			return cfg, true
		}
	}
	return Config{}, false
}

// Validate checks that the provider is known and has a key.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderMock:
		return nil
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderOpenRouter:
		if c.APIKey == "" {
			return fmt.Errorf("SATSLAB_LLM_API_KEY is required for the %s provider", c.Provider)
		}
		return nil
	}
	return fmt.Errorf("unknown LLM provider: %q", c.Provider)
}

// resolveModel maps a short alias to a provider model id. Unknown names
// pass through unchanged.
func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}
