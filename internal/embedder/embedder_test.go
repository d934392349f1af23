package embedder

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ComputeHash(""))
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", ComputeHash("hello world"))
	assert.Equal(t, ComputeHash("test"), ComputeHash("test"))
}

func TestValidateBatchRequest(t *testing.T) {
	tooMany := make([]string, MaxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = "x"
	}

	tests := []struct {
		name    string
		texts   []string
		wantErr error
	}{
		{"valid", []string{"a", "b"}, nil},
		{"empty batch", nil, ErrInvalidInput},
		{"empty text", []string{"a", ""}, ErrInvalidInput},
		{"too large", tooMany, ErrBatchTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatchRequest(BatchEmbeddingRequest{Texts: tt.texts})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.ErrorIs(t, ValidateRequest(EmbeddingRequest{}), ErrEmptyText)
}

func TestCache(t *testing.T) {
	c := NewCache(2)
	c.Set("a", &Embedding{Vector: []float32{1, 2}})
	c.Set("b", &Embedding{Vector: []float32{3, 4}})

	got, ok := c.Get("a")
	require.True(t, ok)
	got.Vector[0] = 99

	again, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, float32(1), again.Vector[0], "cached vector must not be shared")

	// "b" is least recently used now
	c.Set("c", &Embedding{Vector: []float32{5}})
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Size())

	c.Clear()
	assert.Equal(t, 0, c.Size())

	var nilCache *Cache
	_, ok = nilCache.Get("a")
	assert.False(t, ok)
	nilCache.Set("a", &Embedding{})
}

func TestRetryWithBackoff(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		got, err := retryWithBackoff(context.Background(), cfg, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		_, err := retryWithBackoff(context.Background(), cfg, func() (int, error) {
			calls++
			return 0, errors.New("down")
		})
		assert.EqualError(t, err, "down")
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		calls := 0
		_, err := retryWithBackoff(context.Background(), cfg, func() (int, error) {
			calls++
			return 0, permanent(errors.New("bad request"))
		})
		assert.EqualError(t, err, "bad request")
		assert.Equal(t, 1, calls)
	})

	t.Run("context cancellation stops retries", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := retryWithBackoff(ctx, cfg, func() (int, error) {
			return 0, errors.New("down")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalProvider(t *testing.T) {
	p, err := NewLocalProvider(NewCache(10))
	require.NoError(t, err)
	ctx := context.Background()

	a, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "AWS Lambda runs serverless functions"})
	require.NoError(t, err)
	assert.Len(t, a.Vector, LocalDimension)
	assert.Equal(t, LocalDimension, a.Dimension)
	assert.Equal(t, ProviderLocal, a.Provider)
	assert.InDelta(t, 1.0, norm(a.Vector), 1e-5)

	again, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "AWS Lambda runs serverless functions"})
	require.NoError(t, err)
	assert.Equal(t, a.Vector, again.Vector)

	b, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "serverless functions on AWS Lambda"})
	require.NoError(t, err)
	c, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "quarterly travel reimbursement policy"})
	require.NoError(t, err)
	assert.Greater(t, dot(a.Vector, b.Vector), dot(a.Vector, c.Vector))

	_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestLocalProvider_Batch(t *testing.T) {
	p, err := NewLocalProvider(nil)
	require.NoError(t, err)

	resp, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"one", "two", "three"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 3)
	assert.Equal(t, ProviderLocal, resp.Provider)
	assert.Equal(t, DefaultLocalModel, resp.Model)
	assert.Equal(t, ComputeHash("two"), resp.Embeddings[1].Hash)
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	assert.Equal(t, zero, NormalizeVector(zero))
}

func TestNew(t *testing.T) {
	emb, err := New(Config{Provider: "LOCAL"})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, emb.Provider())

	emb, err = New(Config{Provider: ProviderOpenAI, APIKey: "k", BaseURL: "http://localhost:8080/v1", Model: "nomic-embed-text", Dimension: 768})
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", emb.Model())
	assert.Equal(t, 768, emb.Dimension())

	_, err = New(Config{Provider: ProviderJina})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = New(Config{Provider: "bert"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)

	_, err = New(Config{})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"explicit", map[string]string{EnvProvider: "OpenAI", EnvJinaAPIKey: "j"}, ProviderOpenAI},
		{"jina key", map[string]string{EnvJinaAPIKey: "j", EnvOpenAIAPIKey: "o"}, ProviderJina},
		{"openai key", map[string]string{EnvOpenAIAPIKey: "o"}, ProviderOpenAI},
		{"fallback", map[string]string{}, ProviderLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{EnvProvider, EnvJinaAPIKey, EnvOpenAIAPIKey} {
				t.Setenv(k, tt.env[k])
			}
			assert.Equal(t, tt.want, DetectProvider())
		})
	}
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
