// Package vectorstore is the semantic store adapter: it embeds text with an
// embedder.Embedder and persists it in a storage.Storage collection.
//
// Operations never return Go errors. Backend and embedding failures are
// reported as results with Success=false so that one failed call cannot
// abort a batch of ingestions.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/docstore-mcp/internal/embedder"
	"github.com/dshills/docstore-mcp/internal/metrics"
	"github.com/dshills/docstore-mcp/internal/storage"
	"github.com/dshills/docstore-mcp/pkg/types"
)

// DefaultCollection is used when neither the request nor the store names one
const DefaultCollection = "documents"

// EmptyCollectionMessage is returned by Search on a collection without entries
const EmptyCollectionMessage = "Collection is empty. Add documents first."

// Store adapts a storage backend and an embedder into collection operations
type Store struct {
	backend    storage.Storage
	embedder   embedder.Embedder
	collection string
	log        zerolog.Logger
	metrics    *metrics.Metrics
	workers    int
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithMetrics records operation counts and latencies
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithConcurrency bounds the number of embedding batches in flight
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.workers = n
		}
	}
}

// New creates a Store. collection is the default for requests that leave it empty.
func New(backend storage.Storage, emb embedder.Embedder, collection string, opts ...Option) *Store {
	if collection == "" {
		collection = DefaultCollection
	}
	s := &Store{
		backend:    backend,
		embedder:   emb,
		collection: collection,
		log:        zerolog.Nop(),
		workers:    4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collection returns the default collection name
func (s *Store) Collection() string {
	return s.collection
}

// Location returns where the backend keeps its data
func (s *Store) Location() string {
	return s.backend.Location()
}

func (s *Store) resolve(name string) string {
	if name == "" {
		return s.collection
	}
	return name
}

func (s *Store) observe(op string, start time.Time, ok bool) {
	s.metrics.RecordStoreOperation(op, ok, time.Since(start))
}

// Count returns the number of entries in a collection
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	return s.backend.Count(ctx, s.resolve(collection))
}

// Add embeds and writes texts. Missing ids become doc_{count+i}; missing
// metadata becomes {"type": "general"}. Existing ids are overwritten.
func (s *Store) Add(ctx context.Context, req AddRequest) AddResult {
	start := time.Now()
	collection := s.resolve(req.Collection)
	res := AddResult{Collection: collection}

	fail := func(format string, args ...interface{}) AddResult {
		res.Success = false
		res.Error = fmt.Sprintf(format, args...)
		s.log.Error().Str("collection", collection).Str("error", res.Error).Msg("add failed")
		s.observe("add", start, false)
		return res
	}

	if len(req.Texts) == 0 {
		return fail("Failed to add documents: no documents provided")
	}
	if req.IDs != nil && len(req.IDs) != len(req.Texts) {
		return fail("Failed to add documents: %d ids for %d documents", len(req.IDs), len(req.Texts))
	}
	if req.Metadatas != nil && len(req.Metadatas) != len(req.Texts) {
		return fail("Failed to add documents: %d metadatas for %d documents", len(req.Metadatas), len(req.Texts))
	}
	for i, text := range req.Texts {
		if text == "" {
			return fail("Failed to add documents: document %d is empty", i)
		}
	}

	if _, err := s.backend.GetOrCreateCollection(ctx, collection, storage.DefaultCollectionMetadata()); err != nil {
		return fail("Failed to add documents: %v", err)
	}

	ids := req.IDs
	if ids == nil {
		count, err := s.backend.Count(ctx, collection)
		if err != nil {
			return fail("Failed to add documents: %v", err)
		}
		ids = make([]string, len(req.Texts))
		for i := range ids {
			ids[i] = fmt.Sprintf("doc_%d", count+i)
		}
	}

	metadatas := req.Metadatas
	if metadatas == nil {
		metadatas = make([]types.Metadata, len(req.Texts))
		for i := range metadatas {
			metadatas[i] = types.Metadata{"type": "general"}
		}
	}

	embeddings, err := s.embedAll(ctx, req.Texts)
	if err != nil {
		return fail("Failed to add documents: %v", err)
	}

	records := make([]storage.Record, len(req.Texts))
	for i, text := range req.Texts {
		md := metadatas[i]
		if md == nil {
			md = types.Metadata{}
		}
		records[i] = storage.Record{
			ID:       ids[i],
			Document: text,
			Metadata: md,
			Vector:   embeddings[i].Vector,
			Provider: embeddings[i].Provider,
			Model:    embeddings[i].Model,
		}
	}

	if err := s.backend.Upsert(ctx, collection, records); err != nil {
		return fail("Failed to add documents: %v", err)
	}

	total, err := s.backend.Count(ctx, collection)
	if err != nil {
		return fail("Failed to add documents: %v", err)
	}

	s.metrics.SetStoreEntries(collection, total)
	s.observe("add", start, true)
	s.log.Debug().Str("collection", collection).Int("added", len(records)).Int("total", total).Msg("documents added")

	res.Success = true
	res.Message = fmt.Sprintf("Added %d documents to collection '%s'", len(records), collection)
	res.DocumentCount = len(records)
	res.CollectionTotal = total
	return res
}

// embedAll embeds texts in batches of embedder.MaxBatchSize, running up to
// s.workers batches at once. Output order matches input order.
func (s *Store) embedAll(ctx context.Context, texts []string) ([]*embedder.Embedding, error) {
	out := make([]*embedder.Embedding, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for startIdx := 0; startIdx < len(texts); startIdx += embedder.MaxBatchSize {
		lo := startIdx
		hi := lo + embedder.MaxBatchSize
		if hi > len(texts) {
			hi = len(texts)
		}
		g.Go(func() error {
			resp, err := s.embedder.GenerateBatch(gctx, embedder.BatchEmbeddingRequest{Texts: texts[lo:hi]})
			if err != nil {
				return err
			}
			if len(resp.Embeddings) != hi-lo {
				return fmt.Errorf("%w: expected %d embeddings, got %d", embedder.ErrProviderFailed, hi-lo, len(resp.Embeddings))
			}
			copy(out[lo:hi], resp.Embeddings)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Search returns the NResults nearest entries to Query. An empty query
// enumerates entries in insertion order with distance 1.
func (s *Store) Search(ctx context.Context, req SearchRequest) SearchResult {
	start := time.Now()
	collection := s.resolve(req.Collection)
	res := SearchResult{Query: req.Query, Collection: collection, Results: []types.SearchHit{}}

	fail := func(format string, args ...interface{}) SearchResult {
		res.Success = false
		res.Error = fmt.Sprintf(format, args...)
		s.log.Error().Str("collection", collection).Str("error", res.Error).Msg("search failed")
		s.observe("search", start, false)
		return res
	}

	if req.NResults <= 0 {
		return fail("Search failed: n_results must be positive, got %d", req.NResults)
	}

	count, err := s.backend.Count(ctx, collection)
	if err != nil {
		return fail("Search failed: %v", err)
	}
	if count == 0 {
		s.observe("search", start, true)
		res.Success = true
		res.Message = EmptyCollectionMessage
		return res
	}

	n := req.NResults
	if n > count {
		n = count
	}

	var matches []storage.Match
	if req.Query == "" {
		matches, err = s.backend.Peek(ctx, collection, n)
	} else {
		var emb *embedder.Embedding
		emb, err = s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
		if err == nil {
			matches, err = s.backend.Query(ctx, collection, emb.Vector, n)
		}
	}
	if err != nil {
		return fail("Search failed: %v", err)
	}

	for i, m := range matches {
		hit := types.SearchHit{
			Rank:     i + 1,
			ID:       m.ID,
			Document: m.Document,
			Metadata: m.Metadata,
		}
		if req.IncludeDistances {
			distance := m.Distance
			similarity := types.Similarity(distance)
			hit.Distance = &distance
			hit.SimilarityScore = &similarity
		}
		res.Results = append(res.Results, hit)
	}

	s.observe("search", start, true)
	res.Success = true
	res.TotalDocuments = count
	res.ReturnedCount = len(res.Results)
	return res
}

// Info describes a collection, creating it when absent, and lists all collections
func (s *Store) Info(ctx context.Context, collection string) InfoResult {
	start := time.Now()
	collection = s.resolve(collection)
	res := InfoResult{DatabasePath: s.backend.Location(), AllCollections: []string{}}

	c, err := s.backend.GetOrCreateCollection(ctx, collection, storage.DefaultCollectionMetadata())
	if err == nil {
		var count int
		count, err = s.backend.Count(ctx, collection)
		if err == nil {
			res.CurrentCollection = &CollectionInfo{Name: c.Name, Count: count, Metadata: c.Metadata}
			s.metrics.SetStoreEntries(collection, count)
		}
	}
	if err == nil {
		var all []*storage.Collection
		all, err = s.backend.ListCollections(ctx)
		for _, c := range all {
			res.AllCollections = append(res.AllCollections, c.Name)
		}
	}
	if err != nil {
		res.Error = fmt.Sprintf("Failed to get collection info: %v", err)
		s.log.Error().Str("collection", collection).Err(err).Msg("info failed")
		s.observe("info", start, false)
		return res
	}

	s.observe("info", start, true)
	res.Success = true
	return res
}

// Reset deletes a collection (absence is ignored) and recreates it empty.
// This is destructive and cannot be undone.
func (s *Store) Reset(ctx context.Context, collection string) ResetResult {
	start := time.Now()
	collection = s.resolve(collection)
	res := ResetResult{Collection: collection}

	if err := s.backend.DeleteCollection(ctx, collection); err != nil && !errors.Is(err, storage.ErrNotFound) {
		res.Error = fmt.Sprintf("Failed to reset collection: %v", err)
		s.log.Error().Str("collection", collection).Err(err).Msg("reset failed")
		s.observe("reset", start, false)
		return res
	}

	if _, err := s.backend.GetOrCreateCollection(ctx, collection, storage.DefaultCollectionMetadata()); err != nil {
		res.Error = fmt.Sprintf("Failed to reset collection: %v", err)
		s.log.Error().Str("collection", collection).Err(err).Msg("reset failed")
		s.observe("reset", start, false)
		return res
	}

	count, err := s.backend.Count(ctx, collection)
	if err != nil {
		res.Error = fmt.Sprintf("Failed to reset collection: %v", err)
		s.observe("reset", start, false)
		return res
	}

	s.log.Warn().Str("collection", collection).Msg("collection reset")
	s.metrics.SetStoreEntries(collection, count)
	s.observe("reset", start, true)
	res.Success = true
	res.Message = fmt.Sprintf("Collection '%s' has been reset", collection)
	res.CollectionCount = count
	return res
}

// DeleteDocument removes every chunk whose document_title equals title
func (s *Store) DeleteDocument(ctx context.Context, collection, title string) DeleteResult {
	return s.DeleteStaleChunks(ctx, collection, title, nil)
}

// DeleteStaleChunks removes the chunks of title whose ids are not in keep
func (s *Store) DeleteStaleChunks(ctx context.Context, collection, title string, keep []string) DeleteResult {
	start := time.Now()
	collection = s.resolve(collection)
	res := DeleteResult{Collection: collection, DocumentTitle: title}

	if title == "" {
		res.Error = "Failed to delete document: title is required"
		s.observe("delete", start, false)
		return res
	}

	n, err := s.backend.DeleteByTitle(ctx, collection, title, keep...)
	if err != nil {
		res.Error = fmt.Sprintf("Failed to delete document: %v", err)
		s.log.Error().Str("collection", collection).Str("title", title).Err(err).Msg("delete failed")
		s.observe("delete", start, false)
		return res
	}

	s.observe("delete", start, true)
	res.Success = true
	res.Deleted = n
	res.Message = fmt.Sprintf("Deleted %d chunks of '%s'", n, title)
	return res
}
