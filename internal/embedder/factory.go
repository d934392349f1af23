package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string // jina, openai, local; empty means detect from APIKey
	APIKey    string
	BaseURL   string // overrides the provider endpoint (OpenAI-compatible servers)
	Model     string
	Dimension int // hint for remote providers until the first response
	CacheSize int
}

// NewFromEnv creates an embedder from environment variables.
// Priority:
//  1. DOCSTORE_EMBEDDING_PROVIDER (jina, openai, local)
//  2. Available API keys: JINA_API_KEY, then OPENAI_API_KEY
//  3. The local provider
func NewFromEnv() (Embedder, error) {
	provider := DetectProvider()
	cfg := Config{Provider: provider, CacheSize: DefaultCacheSize}

	switch provider {
	case ProviderJina:
		cfg.APIKey = os.Getenv(EnvJinaAPIKey)
	case ProviderOpenAI:
		cfg.APIKey = os.Getenv(EnvOpenAIAPIKey)
		cfg.BaseURL = os.Getenv(EnvOpenAIBaseURL)
	}

	return New(cfg)
}

// New creates an embedder with explicit configuration
func New(cfg Config) (Embedder, error) {
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache := NewCache(cacheSize)

	switch strings.ToLower(cfg.Provider) {
	case ProviderJina:
		return NewRemoteProvider(ProviderJina, cfg.APIKey,
			orDefault(cfg.BaseURL, DefaultJinaBaseURL),
			orDefault(cfg.Model, DefaultJinaModel),
			orDefaultInt(cfg.Dimension, JinaDimension), cache)
	case ProviderOpenAI:
		return NewRemoteProvider(ProviderOpenAI, cfg.APIKey,
			orDefault(cfg.BaseURL, DefaultOpenAIBaseURL),
			orDefault(cfg.Model, DefaultOpenAIModel),
			orDefaultInt(cfg.Dimension, OpenAIDimension), cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	case "":
		return nil, ErrNoProviderEnabled
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// DetectProvider returns the provider NewFromEnv would use
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
