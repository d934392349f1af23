package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Provider configuration
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultLocalModel  = "feature-hash-v1"

	// Default endpoints
	DefaultJinaBaseURL   = "https://api.jina.ai/v1"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// Dimensions
	JinaDimension   = 1024
	OpenAIDimension = 1536
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize = 50
	MaxBatchSize     = 100

	DefaultCacheSize = 10000

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// Environment variables read by NewFromEnv
const (
	EnvProvider      = "DOCSTORE_EMBEDDING_PROVIDER"
	EnvJinaAPIKey    = "JINA_API_KEY"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
)

// RemoteProvider implements Embedder against an OpenAI-compatible
// /embeddings endpoint. Jina and OpenAI share the same wire format.
type RemoteProvider struct {
	provider   string
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	cache      *Cache
	retry      RetryConfig

	mu        sync.RWMutex
	dimension int
}

// NewJinaProvider creates a provider for the Jina AI embeddings API
func NewJinaProvider(apiKey string, cache *Cache) (*RemoteProvider, error) {
	return NewRemoteProvider(ProviderJina, apiKey, DefaultJinaBaseURL, DefaultJinaModel, JinaDimension, cache)
}

// NewOpenAIProvider creates a provider for the OpenAI embeddings API
func NewOpenAIProvider(apiKey string, cache *Cache) (*RemoteProvider, error) {
	return NewRemoteProvider(ProviderOpenAI, apiKey, DefaultOpenAIBaseURL, DefaultOpenAIModel, OpenAIDimension, cache)
}

// NewRemoteProvider creates a provider posting to baseURL + "/embeddings".
// The dimension is a hint until the first response reports the real one.
func NewRemoteProvider(provider, apiKey, baseURL, model string, dimension int, cache *Cache) (*RemoteProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s API key is required", ErrInvalidInput, provider)
	}
	if baseURL == "" {
		return nil, fmt.Errorf("%w: %s base URL is required", ErrInvalidInput, provider)
	}
	if model == "" {
		return nil, fmt.Errorf("%w: %s model is required", ErrUnsupportedModel, provider)
	}

	return &RemoteProvider{
		provider: provider,
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		model:    model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache:     cache,
		retry:     DefaultRetryConfig(),
		dimension: dimension,
	}, nil
}

func (r *RemoteProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	resp, err := r.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{req.Text}})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}

	return resp.Embeddings[0], nil
}

func (r *RemoteProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	out := make([]*Embedding, len(req.Texts))
	hashes := make([]string, len(req.Texts))
	var missing []int
	for i, text := range req.Texts {
		hashes[i] = ComputeHash(text)
		if emb, ok := r.cache.Get(hashes[i]); ok {
			out[i] = emb
			continue
		}
		missing = append(missing, i)
	}

	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for j, i := range missing {
			texts[j] = req.Texts[i]
		}

		embeddings, err := retryWithBackoff(ctx, r.retry, func() ([]*Embedding, error) {
			return r.callAPI(ctx, texts)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
		}
		if len(embeddings) != len(texts) {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrProviderFailed, len(texts), len(embeddings))
		}

		for j, i := range missing {
			emb := embeddings[j]
			emb.Hash = hashes[i]
			r.cache.Set(hashes[i], emb)
			out[i] = emb
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: out,
		Provider:   r.provider,
		Model:      r.model,
	}, nil
}

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

func (r *RemoteProvider) callAPI(ctx context.Context, texts []string) ([]*Embedding, error) {
	body, err := json.Marshal(embeddingsRequest{Input: texts, Model: r.model})
	if err != nil {
		return nil, permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := fmt.Errorf("api error %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, permanent(apiErr)
		}
		return nil, apiErr
	}

	var apiResp embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	sort.SliceStable(apiResp.Data, func(a, b int) bool {
		return apiResp.Data[a].Index < apiResp.Data[b].Index
	})

	model := apiResp.Model
	if model == "" {
		model = r.model
	}

	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		embeddings[i] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  r.provider,
			Model:     model,
		}
	}

	if len(embeddings) > 0 && embeddings[0].Dimension > 0 {
		r.mu.Lock()
		r.dimension = embeddings[0].Dimension
		r.mu.Unlock()
	}

	return embeddings, nil
}

func (r *RemoteProvider) Dimension() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dimension
}

func (r *RemoteProvider) Provider() string {
	return r.provider
}

func (r *RemoteProvider) Model() string {
	return r.model
}

func (r *RemoteProvider) Close() error {
	r.httpClient.CloseIdleConnections()
	return nil
}
