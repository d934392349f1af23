package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/docstore-mcp/internal/config"
	"github.com/dshills/docstore-mcp/internal/documents"
	"github.com/dshills/docstore-mcp/internal/embedder"
	"github.com/dshills/docstore-mcp/internal/extractor"
	"github.com/dshills/docstore-mcp/internal/indexer"
	"github.com/dshills/docstore-mcp/internal/mcp"
	"github.com/dshills/docstore-mcp/internal/metrics"
	"github.com/dshills/docstore-mcp/internal/storage"
	"github.com/dshills/docstore-mcp/internal/storage/qdrant"
	"github.com/dshills/docstore-mcp/internal/vectorstore"
)

var errStoreDisabled = errors.New("vector store is disabled (vector_store.enabled=false or ENABLE_VECTOR_STORE=false)")

// app holds the wired components of one process
type app struct {
	metrics *metrics.Metrics
	backend storage.Storage
	emb     embedder.Embedder
	store   *vectorstore.Store
	docs    *documents.Manager
	syncer  *indexer.Syncer
}

// newApp wires the document components from cfg. When the vector store is
// disabled the app carries metrics only.
func newApp(cfg *config.Config) (*app, error) {
	a := &app{metrics: metrics.New()}
	if !cfg.VectorStore.Enabled {
		return a, nil
	}

	emb, err := newEmbedder(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	a.emb = emb

	backend, err := newBackend(cfg.VectorStore, emb.Dimension())
	if err != nil {
		_ = emb.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.backend = backend

	applog := log.Component("app")
	applog.Info().
		Str("backend", cfg.VectorStore.Backend).
		Str("location", backend.Location()).
		Str("embedder", emb.Provider()).
		Str("model", emb.Model()).
		Msg("vector store configured")

	a.store = vectorstore.New(backend, emb, cfg.VectorStore.Collection,
		vectorstore.WithLogger(log.Component("vectorstore")),
		vectorstore.WithMetrics(a.metrics),
	)
	a.docs = documents.New(a.store, extractor.New(log.Component("extractor")),
		documents.WithLogger(log.Component("documents")),
		documents.WithMetrics(a.metrics),
	)
	a.syncer = indexer.New(indexer.Config{
		DataSource:   cfg.Sync.DataSource,
		IndexFile:    cfg.Sync.IndexFile,
		Collection:   cfg.VectorStore.Collection,
		ChunkSize:    cfg.Sync.ChunkSize,
		Overlap:      cfg.Sync.Overlap,
		PruneMissing: cfg.Sync.PruneMissing,
	}, a.docs, a.store,
		indexer.WithLogger(log.Component("sync")),
		indexer.WithMetrics(a.metrics),
	)
	return a, nil
}

// newServeApp is newApp for the server: a failure to wire the document
// components is logged and the app falls back to the local folder tools.
func newServeApp(cfg *config.Config) *app {
	a, err := newApp(cfg)
	if err != nil {
		applog := log.Component("app")
		applog.Error().Err(err).Msg("vector store unavailable, serving local folder tools only")
		return &app{metrics: metrics.New()}
	}
	return a
}

// requireStore fails when the document components are not wired
func (a *app) requireStore() error {
	if a.store == nil {
		return errStoreDisabled
	}
	return nil
}

func (a *app) mcpDeps() mcp.Deps {
	return mcp.Deps{
		Store:   a.store,
		Docs:    a.docs,
		Syncer:  a.syncer,
		Metrics: a.metrics,
		Log:     log.Zerolog(),
	}
}

func (a *app) Close() {
	if a.backend != nil {
		_ = a.backend.Close()
	}
	if a.emb != nil {
		_ = a.emb.Close()
	}
}

func newEmbedder(c config.EmbeddingConfig) (embedder.Embedder, error) {
	ecfg := embedder.Config{
		Provider:  strings.ToLower(c.Provider),
		APIKey:    c.APIKey,
		BaseURL:   c.BaseURL,
		Model:     c.Model,
		CacheSize: c.CacheSize,
	}
	if ecfg.Provider == "" {
		ecfg.Provider = embedder.DetectProvider()
	}
	if ecfg.APIKey == "" {
		switch ecfg.Provider {
		case embedder.ProviderJina:
			ecfg.APIKey = os.Getenv(embedder.EnvJinaAPIKey)
		case embedder.ProviderOpenAI:
			ecfg.APIKey = os.Getenv(embedder.EnvOpenAIAPIKey)
		}
	}
	if ecfg.BaseURL == "" && ecfg.Provider == embedder.ProviderOpenAI {
		ecfg.BaseURL = os.Getenv(embedder.EnvOpenAIBaseURL)
	}
	return embedder.New(ecfg)
}

func newBackend(c config.VectorStoreConfig, dimension int) (storage.Storage, error) {
	switch c.Backend {
	case "qdrant":
		return qdrant.NewStorage(qdrant.Config{
			URL:       c.Qdrant.URL,
			APIKey:    c.Qdrant.APIKey,
			Timeout:   time.Duration(c.Qdrant.TimeoutSecs) * time.Second,
			Dimension: dimension,
		}), nil
	default:
		if dir := filepath.Dir(c.DBPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return storage.NewSQLiteStorage(c.DBPath)
	}
}
