// Package embedder turns document chunks into vectors for the semantic store.
//
// Three providers are available: Jina AI and OpenAI (both over the
// OpenAI-compatible /embeddings endpoint) and an offline feature-hashing
// provider. Every provider caches embeddings by the SHA-256 of their text,
// so re-ingesting unchanged chunks does not hit the API again.
//
// # Basic Usage
//
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: []string{chunk1.Text, chunk2.Text},
//	})
//
// # Provider Selection
//
//  1. If DOCSTORE_EMBEDDING_PROVIDER is set, use that provider
//  2. Else if JINA_API_KEY is set, use Jina AI
//  3. Else if OPENAI_API_KEY is set, use OpenAI (OPENAI_BASE_URL overrides the endpoint)
//  4. Else fall back to the local provider
//
// # Error Handling
//
// Remote calls are retried with exponential backoff (3 attempts, 100ms
// doubling up to 5s). Client errors other than 429 are returned at once.
// Failures wrap ErrProviderFailed:
//
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // API unreachable or rejected the request
//	}
package embedder
