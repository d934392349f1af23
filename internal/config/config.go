// Package config loads docstore configuration from defaults, an optional
// YAML file, an optional .env file, and environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig selects the MCP transport
type ServerConfig struct {
	Name      string `yaml:"name"`
	Transport string `yaml:"transport"`
	Port      int    `yaml:"port"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
	File   string `yaml:"file"`
}

// QdrantConfig contains connection details for a Qdrant backend
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the store backend
type VectorStoreConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Backend    string       `yaml:"backend"`
	DBPath     string       `yaml:"db_path"`
	Collection string       `yaml:"collection"`
	Qdrant     QdrantConfig `yaml:"qdrant"`
}

// EmbeddingConfig selects and configures the embedding provider
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	CacheSize int    `yaml:"cache_size"`
}

// SyncConfig controls data source synchronization
type SyncConfig struct {
	DataSource   string `yaml:"data_source"`
	IndexFile    string `yaml:"index_file"`
	OnStartup    bool   `yaml:"on_startup"`
	Watch        bool   `yaml:"watch"`
	DebounceMS   int    `yaml:"debounce_ms"`
	PruneMissing bool   `yaml:"prune_missing"`
	ChunkSize    int    `yaml:"chunk_size"`
	Overlap      int    `yaml:"overlap"`
}

// Debounce returns the watcher debounce interval
func (s SyncConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Config is the root configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Sync        SyncConfig        `yaml:"sync"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:      "docstore",
			Transport: "stdio",
			Port:      8000,
		},
		Log: LogConfig{
			Level: "info",
		},
		VectorStore: VectorStoreConfig{
			Enabled:    true,
			Backend:    "sqlite",
			DBPath:     "./vector_store.db",
			Collection: "documents",
			Qdrant: QdrantConfig{
				URL:         "http://localhost:6333",
				TimeoutSecs: 30,
			},
		},
		Embedding: EmbeddingConfig{
			CacheSize: 10000,
		},
		Sync: SyncConfig{
			DataSource: "./data_source",
			IndexFile:  "vector_store_index.json",
			OnStartup:  true,
			DebounceMS: 2000,
			ChunkSize:  1200,
			Overlap:    200,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// Load builds the configuration. path may be empty or name a file that does
// not exist, in which case only defaults and the environment apply. A .env
// file in the working directory is loaded when present without overriding
// variables that are already set.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating parent directories
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("DOCSTORE_TRANSPORT", &c.Server.Transport)
	if v, ok := lookup("DOCSTORE_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DOCSTORE_PORT: invalid port %q", v)
		}
		c.Server.Port = port
	}

	var debug bool
	if err := boolean("DOCSTORE_DEBUG", &debug); err != nil {
		return err
	}
	if debug {
		c.Log.Level = "debug"
	}
	str("DOCSTORE_LOG_FILE", &c.Log.File)

	if err := boolean("ENABLE_VECTOR_STORE", &c.VectorStore.Enabled); err != nil {
		return err
	}
	str("DOCSTORE_DB_PATH", &c.VectorStore.DBPath)
	str("DOCSTORE_COLLECTION", &c.VectorStore.Collection)
	str("DOCSTORE_QDRANT_URL", &c.VectorStore.Qdrant.URL)
	str("DOCSTORE_QDRANT_API_KEY", &c.VectorStore.Qdrant.APIKey)
	if v, ok := lookup("DOCSTORE_QDRANT_URL"); ok && v != "" {
		c.VectorStore.Backend = "qdrant"
	}

	str("DOCSTORE_DATA_SOURCE", &c.Sync.DataSource)
	str("DOCSTORE_INDEX_FILE", &c.Sync.IndexFile)

	str("DOCSTORE_EMBEDDING_PROVIDER", &c.Embedding.Provider)
	if c.Embedding.APIKey == "" {
		switch c.Embedding.Provider {
		case "jina":
			str("JINA_API_KEY", &c.Embedding.APIKey)
		case "openai":
			str("OPENAI_API_KEY", &c.Embedding.APIKey)
		}
	}

	if v, ok := lookup("DOCSTORE_METRICS_ADDR"); ok && v != "" {
		c.Metrics.Addr = v
		c.Metrics.Enabled = true
	}
	return nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", v)
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	var errs []error

	switch c.Server.Transport {
	case "stdio", "sse":
	default:
		errs = append(errs, fmt.Errorf("server.transport must be stdio or sse, got %q", c.Server.Transport))
	}
	if c.Server.Port < 1024 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1024 and 65535, got %d", c.Server.Port))
	}

	switch c.VectorStore.Backend {
	case "sqlite", "qdrant":
	default:
		errs = append(errs, fmt.Errorf("vector_store.backend must be sqlite or qdrant, got %q", c.VectorStore.Backend))
	}
	if c.VectorStore.Collection == "" {
		errs = append(errs, errors.New("vector_store.collection is required"))
	}

	if c.Sync.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("sync.chunk_size must be positive, got %d", c.Sync.ChunkSize))
	}
	if c.Sync.Overlap < 0 || c.Sync.Overlap >= c.Sync.ChunkSize {
		errs = append(errs, fmt.Errorf("sync.overlap must be non-negative and smaller than sync.chunk_size, got %d", c.Sync.Overlap))
	}
	if c.Sync.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("sync.debounce_ms must not be negative, got %d", c.Sync.DebounceMS))
	}

	return errors.Join(errs...)
}
