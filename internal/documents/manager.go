// Package documents turns raw text and PDF files into titled, categorized,
// chunked entries of the semantic store, and searches and lists them back
// as documents.
package documents

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/dshills/docstore-mcp/internal/chunker"
	"github.com/dshills/docstore-mcp/internal/metrics"
	"github.com/dshills/docstore-mcp/internal/vectorstore"
	"github.com/dshills/docstore-mcp/pkg/types"
)

// DocumentCategories maps each category to its suggested document types
var DocumentCategories = map[string][]string{
	"technical":   {"documentation", "manual", "guide", "reference", "api"},
	"business":    {"policy", "procedure", "compliance", "governance", "strategy"},
	"educational": {"tutorial", "course", "lesson", "training", "workshop"},
	"legal":       {"contract", "agreement", "terms", "privacy", "regulation"},
	"research":    {"paper", "study", "analysis", "report", "whitepaper"},
	"general":     {"misc", "other", "uncategorized"},
}

// SourceTypes lists how a document can enter the store
var SourceTypes = []string{"pdf", "web", "file", "api", "manual"}

const (
	DefaultSourceType = "manual"
	DefaultCategory   = "general"
	DefaultDocType    = "documentation"
	DefaultNResults   = 5
	DefaultChunkSize  = 1200
	DefaultOverlap    = 200

	// NoOverlap asks for chunks that share no characters, since a zero
	// Overlap selects the default
	NoOverlap = -1

	// UntitledDocumentID is the safe id of a title with no usable characters
	UntitledDocumentID = "untitled_document"

	maxSafeIDLength = 50
	listLimit       = 100
	overFetch       = 3
)

// Store is the subset of the semantic store adapter the manager uses
type Store interface {
	Add(ctx context.Context, req vectorstore.AddRequest) vectorstore.AddResult
	Search(ctx context.Context, req vectorstore.SearchRequest) vectorstore.SearchResult
	Info(ctx context.Context, collection string) vectorstore.InfoResult
	DeleteStaleChunks(ctx context.Context, collection, title string, keep []string) vectorstore.DeleteResult
	Collection() string
}

// Extractor reads the text of a PDF file
type Extractor interface {
	ExtractFile(path string) (*types.ExtractResult, error)
}

// Manager ingests, searches, and lists documents
type Manager struct {
	store     Store
	extractor Extractor
	client    *http.Client
	maxPDF    int64
	log       zerolog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithMetrics counts ingested chunks
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithHTTPClient sets the client used to download PDFs
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.client = c }
}

// WithMaxDownloadSize bounds the size of a downloaded PDF in bytes
func WithMaxDownloadSize(n int64) Option {
	return func(m *Manager) { m.maxPDF = n }
}

// New creates a Manager over store. extractor may be nil when PDF ingestion is not used.
func New(store Store, extractor Extractor, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		extractor: extractor,
		client:    &http.Client{Timeout: 2 * time.Minute},
		maxPDF:    DefaultMaxDownloadSize,
		log:       zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IngestRequest describes one document to ingest. Content, when empty, is
// built by joining Parts with blank lines. Zero-valued fields take the
// package defaults.
type IngestRequest struct {
	Content    string
	Parts      []string
	Title      string
	SourceType string
	Category   string
	DocType    string
	Tags       []string
	Metadata   types.Metadata
	Collection string
	ChunkSize  int
	Overlap    int

	// Replace removes chunks of Title left over from an earlier version
	Replace bool
}

// IngestResult is the store's add result enriched with document statistics
type IngestResult struct {
	vectorstore.AddResult
	DocumentTitle   string `json:"document_title,omitempty"`
	Category        string `json:"category,omitempty"`
	DocType         string `json:"doc_type,omitempty"`
	TotalTextLength int    `json:"total_text_length,omitempty"`
	ChunksCreated   int    `json:"chunks_created,omitempty"`
	SafeDocumentID  string `json:"safe_document_id,omitempty"`
	ReplacedChunks  int    `json:"replaced_chunks,omitempty"`

	// Set by PDF ingestion
	SourceFile        string  `json:"source_file,omitempty"`
	TotalPages        int     `json:"total_pages,omitempty"`
	PagesExtracted    int     `json:"pages_extracted,omitempty"`
	SourceURL         string  `json:"source_url,omitempty"`
	DownloadSizeBytes int64   `json:"download_size_bytes,omitempty"`
	DownloadSizeMB    float64 `json:"download_size_mb,omitempty"`
	Preset            string  `json:"preset_used,omitempty"`
}

// chunking resolves a requested chunk size and overlap. Zero selects the
// default, and a defaulted overlap stays below the size.
func chunking(size, overlap, defSize, defOverlap int) (int, int) {
	if size == 0 {
		size = defSize
	}
	switch overlap {
	case NoOverlap:
		overlap = 0
	case 0:
		overlap = defOverlap
		if overlap >= size {
			overlap = size / 6
		}
	}
	return size, overlap
}

func ingestFailure(format string, args ...interface{}) IngestResult {
	var r IngestResult
	r.Error = fmt.Sprintf(format, args...)
	return r
}

// Ingest chunks a document and adds it to the store
func (m *Manager) Ingest(ctx context.Context, req IngestRequest) IngestResult {
	content := req.Content
	if content == "" && len(req.Parts) > 0 {
		content = strings.Join(req.Parts, "\n\n")
	}
	if strings.TrimSpace(content) == "" || strings.TrimSpace(req.Title) == "" {
		return ingestFailure("Content and document title are required")
	}

	sourceType := orDefault(req.SourceType, DefaultSourceType)
	category := req.Category
	if _, ok := DocumentCategories[category]; !ok {
		category = DefaultCategory
	}
	docType := orDefault(req.DocType, DefaultDocType)
	size, overlap := chunking(req.ChunkSize, req.Overlap, DefaultChunkSize, DefaultOverlap)

	texts, err := chunker.Split(content, size, overlap)
	if err != nil {
		return ingestFailure("Document ingestion failed: %v", err)
	}
	if len(texts) == 0 {
		return ingestFailure("Document ingestion failed: %v", types.ErrEmptyContent)
	}

	contentLength := utf8.RuneCountInString(content)
	base := types.Metadata{
		"document_title": req.Title,
		"source_type":    sourceType,
		"category":       category,
		"doc_type":       docType,
		"tags":           strings.Join(req.Tags, ","),
		"ingested_at":    m.now().Format(time.RFC3339),
		"content_length": contentLength,
	}
	base.Merge(req.Metadata)

	safeID := SafeDocumentID(req.Title)
	chunks := types.BuildChunks(safeID, texts, base)

	collection := req.Collection
	if collection == "" {
		collection = m.store.Collection()
	}

	addReq := vectorstore.AddRequest{
		Texts:      make([]string, len(chunks)),
		IDs:        make([]string, len(chunks)),
		Metadatas:  make([]types.Metadata, len(chunks)),
		Collection: collection,
	}
	for i, c := range chunks {
		addReq.Texts[i] = c.Text
		addReq.IDs[i] = c.ID
		addReq.Metadatas[i] = c.Metadata
	}

	added := m.store.Add(ctx, addReq)
	result := IngestResult{AddResult: added}
	if !added.Success {
		m.log.Error().Str("title", req.Title).Str("error", added.Error).Msg("document ingestion failed")
		return result
	}

	// stale chunks are removed only once the new ones are stored
	var replaced int
	if req.Replace {
		del := m.store.DeleteStaleChunks(ctx, collection, req.Title, addReq.IDs)
		if !del.Success {
			m.log.Error().Str("title", req.Title).Str("error", del.Error).Msg("stale chunk cleanup failed")
			result.Success = false
			result.Error = fmt.Sprintf("Document ingestion failed: %s", del.Error)
			return result
		}
		replaced = del.Deleted
		result.CollectionTotal -= replaced
	}

	m.metrics.AddChunksIngested(len(chunks))
	m.log.Info().
		Str("title", req.Title).
		Str("collection", collection).
		Int("chunks", len(chunks)).
		Int("replaced", replaced).
		Msg("document ingested")

	result.DocumentTitle = req.Title
	result.Category = category
	result.DocType = docType
	result.TotalTextLength = contentLength
	result.ChunksCreated = len(chunks)
	result.SafeDocumentID = safeID
	result.ReplacedChunks = replaced
	return result
}

// DocSearchRequest filters a semantic search by category, doc type, and tags
type DocSearchRequest struct {
	Query      string
	Category   string
	DocType    string
	Tags       []string
	Collection string
	NResults   int
}

// SearchFilters echoes the filters a search applied
type SearchFilters struct {
	Category string   `json:"category,omitempty"`
	DocType  string   `json:"doc_type,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// DocumentHit is a search hit with document fields lifted out of its metadata
type DocumentHit struct {
	types.SearchHit
	DocumentTitle string   `json:"document_title"`
	Category      string   `json:"category"`
	DocType       string   `json:"doc_type"`
	SourceType    string   `json:"source_type"`
	ChunkInfo     string   `json:"chunk_info"`
	Tags          []string `json:"tags"`
}

// DocSearchResult reports a filtered search
type DocSearchResult struct {
	vectorstore.Result
	Query              string        `json:"query"`
	Filters            SearchFilters `json:"filters_applied"`
	Results            []DocumentHit `json:"results"`
	TotalFound         int           `json:"total_found"`
	SearchedCollection string        `json:"searched_collection"`
}

// Search fetches 3*NResults candidates and keeps the first NResults that
// pass every filter. Fewer than NResults may come back even when more
// matching chunks exist further down the ranking.
func (m *Manager) Search(ctx context.Context, req DocSearchRequest) DocSearchResult {
	n := req.NResults
	if n <= 0 {
		n = DefaultNResults
	}
	collection := req.Collection
	if collection == "" {
		collection = m.store.Collection()
	}

	res := DocSearchResult{
		Query:              req.Query,
		Filters:            SearchFilters{Category: req.Category, DocType: req.DocType, Tags: req.Tags},
		Results:            []DocumentHit{},
		SearchedCollection: collection,
	}

	raw := m.store.Search(ctx, vectorstore.SearchRequest{
		Query:            req.Query,
		NResults:         n * overFetch,
		Collection:       collection,
		IncludeDistances: true,
	})
	if !raw.Success {
		res.Error = raw.Error
		return res
	}
	res.Message = raw.Message

	for _, hit := range raw.Results {
		md := hit.Metadata
		if md == nil {
			md = types.Metadata{}
		}
		if !matchesFilters(md, req.Category, req.DocType, req.Tags) {
			continue
		}
		res.Results = append(res.Results, DocumentHit{
			SearchHit:     hit,
			DocumentTitle: md.String("document_title", "Untitled"),
			Category:      md.String("category", "unknown"),
			DocType:       md.String("doc_type", "unknown"),
			SourceType:    md.String("source_type", "unknown"),
			ChunkInfo:     fmt.Sprintf("%d/%d", md.Int("chunk_index", 0)+1, md.Int("total_chunks", 1)),
			Tags:          md.Tags(),
		})
		if len(res.Results) >= n {
			break
		}
	}

	res.Success = true
	res.TotalFound = len(res.Results)
	return res
}

func matchesFilters(md types.Metadata, category, docType string, tags []string) bool {
	if category != "" && md.String("category", "") != category {
		return false
	}
	if docType != "" && md.String("doc_type", "") != docType {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, have := range md.Tags() {
		for _, want := range tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// ListRequest narrows a listing by category and doc type
type ListRequest struct {
	Collection string
	Category   string
	DocType    string
}

// DocumentSummary describes one document, taken from its first-seen chunk
type DocumentSummary struct {
	Title         string   `json:"title"`
	Category      string   `json:"category"`
	DocType       string   `json:"doc_type"`
	SourceType    string   `json:"source_type"`
	Tags          []string `json:"tags"`
	IngestedAt    string   `json:"ingested_at"`
	TotalChunks   int      `json:"total_chunks"`
	ContentLength int      `json:"content_length"`
}

// ListResult reports a List
type ListResult struct {
	vectorstore.Result
	Collection     string            `json:"collection"`
	Filters        SearchFilters     `json:"filters_applied"`
	Documents      []DocumentSummary `json:"documents"`
	TotalDocuments int               `json:"total_documents"`
	TotalChunks    int               `json:"total_chunks"`
}

// List enumerates up to 100 entries of a collection and groups them by
// document title. Larger collections are listed partially.
func (m *Manager) List(ctx context.Context, req ListRequest) ListResult {
	collection := req.Collection
	if collection == "" {
		collection = m.store.Collection()
	}
	res := ListResult{
		Collection: collection,
		Filters:    SearchFilters{Category: req.Category, DocType: req.DocType},
		Documents:  []DocumentSummary{},
	}

	info := m.store.Info(ctx, collection)
	if !info.Success {
		res.Error = info.Error
		return res
	}
	count := 0
	if info.CurrentCollection != nil {
		count = info.CurrentCollection.Count
	}
	res.TotalChunks = count
	if count == 0 {
		res.Success = true
		return res
	}

	limit := count
	if limit > listLimit {
		limit = listLimit
	}
	raw := m.store.Search(ctx, vectorstore.SearchRequest{NResults: limit, Collection: collection})
	if !raw.Success {
		res.Error = raw.Error
		return res
	}

	seen := make(map[string]bool)
	for _, hit := range raw.Results {
		md := hit.Metadata
		if md == nil {
			md = types.Metadata{}
		}
		if !matchesFilters(md, req.Category, req.DocType, nil) {
			continue
		}
		title := md.String("document_title", "Untitled")
		if seen[title] {
			continue
		}
		seen[title] = true
		res.Documents = append(res.Documents, DocumentSummary{
			Title:         title,
			Category:      md.String("category", "unknown"),
			DocType:       md.String("doc_type", "unknown"),
			SourceType:    md.String("source_type", "unknown"),
			Tags:          md.Tags(),
			IngestedAt:    md.String("ingested_at", "unknown"),
			TotalChunks:   md.Int("total_chunks", 1),
			ContentLength: md.Int("content_length", 0),
		})
	}

	res.Success = true
	res.TotalDocuments = len(res.Documents)
	return res
}

// CategoriesResult lists the known categories and source types
type CategoriesResult struct {
	vectorstore.Result
	Categories  map[string][]string `json:"categories"`
	SourceTypes []string            `json:"source_types"`
	Usage       map[string]string   `json:"usage"`
}

// Categories returns the classification vocabulary
func (m *Manager) Categories() CategoriesResult {
	return CategoriesResult{
		Result:      vectorstore.Result{Success: true},
		Categories:  DocumentCategories,
		SourceTypes: SourceTypes,
		Usage: map[string]string{
			"categories":   "High-level classification of document purpose",
			"doc_types":    "Specific type within each category",
			"source_types": "How the document was ingested",
			"tags":         "Custom labels for flexible categorization",
		},
	}
}

var (
	unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	underscoreRun = regexp.MustCompile(`_+`)
)

// SafeDocumentID derives the id prefix of a document's chunks from its title.
// Distinct titles can map to the same id, in which case their chunks
// overwrite each other.
func SafeDocumentID(title string) string {
	id := strings.ToLower(strings.TrimSpace(title))
	id = unsafeIDChars.ReplaceAllString(id, "_")
	id = underscoreRun.ReplaceAllString(id, "_")
	id = strings.Trim(id, "_")
	if len(id) > maxSafeIDLength {
		id = strings.TrimRight(id[:maxSafeIDLength], "_")
	}
	if id == "" {
		return UntitledDocumentID
	}
	return id
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
