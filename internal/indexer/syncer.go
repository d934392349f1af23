package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dshills/docstore-mcp/internal/classifier"
	"github.com/dshills/docstore-mcp/internal/documents"
	"github.com/dshills/docstore-mcp/internal/metrics"
	"github.com/dshills/docstore-mcp/internal/vectorstore"
	"github.com/dshills/docstore-mcp/pkg/types"
)

// ErrSyncInProgress is returned when a sync is requested while another runs
var ErrSyncInProgress = errors.New("sync already in progress")

// AutoSyncedTag is added to the tags of every document ingested by a sync
const AutoSyncedTag = "auto_synced"

// File outcomes, also used as metric labels
const (
	OutcomeNew     = "new"
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomePruned  = "pruned"
)

// Ingester ingests a single PDF file
type Ingester interface {
	IngestPDFFile(ctx context.Context, req documents.PDFRequest) documents.IngestResult
}

// Store is the part of the semantic store a sync inspects and prunes
type Store interface {
	Info(ctx context.Context, collection string) vectorstore.InfoResult
	DeleteDocument(ctx context.Context, collection, title string) vectorstore.DeleteResult
}

// Config controls what a Syncer reads and where it writes
type Config struct {
	DataSource   string
	IndexFile    string
	Collection   string
	ChunkSize    int
	Overlap      int
	PruneMissing bool
}

// Summary reports one sync run
type Summary struct {
	RunID          string        `json:"run_id"`
	New            int           `json:"new_files"`
	Updated        int           `json:"updated_files"`
	Skipped        int           `json:"skipped_files"`
	Failed         int           `json:"failed_files"`
	Pruned         int           `json:"pruned_files,omitempty"`
	Total          int           `json:"total_files"`
	StoreDocuments int           `json:"store_documents"`
	StoreChunks    int           `json:"store_chunks"`
	Duration       time.Duration `json:"-"`
	Elapsed        string        `json:"duration"`
}

// Processed is the number of files ingested in the run
func (s *Summary) Processed() int {
	return s.New + s.Updated
}

// Syncer keeps a store collection in step with a folder of PDFs, using the
// file index to skip files whose content has not changed.
type Syncer struct {
	cfg     Config
	docs    Ingester
	store   Store
	log     zerolog.Logger
	metrics *metrics.Metrics
	lock    IndexLock
	now     func() time.Time

	mu   sync.Mutex
	last *Summary
}

// Option configures a Syncer
type Option func(*Syncer)

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *Syncer) { s.log = log }
}

// WithMetrics records sync runs and per-file outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Syncer) { s.metrics = m }
}

// New creates a Syncer
func New(cfg Config, docs Ingester, store Store, opts ...Option) *Syncer {
	if cfg.IndexFile == "" {
		cfg.IndexFile = DefaultIndexFile
	}
	if cfg.Collection == "" {
		cfg.Collection = vectorstore.DefaultCollection
	}
	s := &Syncer{
		cfg:   cfg,
		docs:  docs,
		store: store,
		log:   zerolog.Nop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the syncer configuration
func (s *Syncer) Config() Config {
	return s.cfg
}

// Running reports whether a sync is in progress
func (s *Syncer) Running() bool {
	return s.lock.Held()
}

// LastSummary returns the summary of the most recent completed run, or nil
func (s *Syncer) LastSummary() *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Sync ingests new and modified PDFs of the configured data source
func (s *Syncer) Sync(ctx context.Context) (*Summary, error) {
	return s.syncDir(ctx, s.cfg.DataSource)
}

func (s *Syncer) syncDir(ctx context.Context, dir string) (*Summary, error) {
	if !s.lock.TryAcquire() {
		return nil, ErrSyncInProgress
	}
	defer s.lock.Release()

	start := s.now()
	runID := uuid.NewString()
	summary, err := s.run(ctx, dir, s.log.With().Str("run_id", runID).Logger())
	elapsed := s.now().Sub(start)
	s.metrics.RecordSyncRun(err == nil, elapsed)
	if summary != nil {
		summary.RunID = runID
		summary.Duration = elapsed
		summary.Elapsed = elapsed.Round(time.Millisecond).String()
		s.mu.Lock()
		s.last = summary
		s.mu.Unlock()
	}
	return summary, err
}

func (s *Syncer) run(ctx context.Context, dir string, log zerolog.Logger) (*Summary, error) {
	files, err := Scan(dir, log)
	if err != nil {
		return nil, fmt.Errorf("scan data source: %w", err)
	}

	index := LoadIndex(s.cfg.IndexFile, log)
	if len(index) > 0 {
		log.Info().Int("tracked_files", len(index)).Msg("Loaded file index")
	}

	summary := &Summary{Total: len(files)}
	if len(files) == 0 {
		log.Info().Str("data_source", dir).Msg("No PDF files found in data source")
	} else {
		log.Info().Int("files", len(files)).Str("data_source", dir).Msg("Syncing files with vector store")
	}

	warnDuplicateTitles(log, files)

	for i, path := range files {
		if err := ctx.Err(); err != nil {
			s.saveIndex(log, index)
			return summary, err
		}

		outcome := s.syncFile(ctx, log, path, index, i+1, len(files))
		s.metrics.RecordSyncFile(outcome)
		switch outcome {
		case OutcomeNew:
			summary.New++
		case OutcomeUpdated:
			summary.Updated++
		case OutcomeSkipped:
			summary.Skipped++
		case OutcomeFailed:
			summary.Failed++
		}
		if outcome == OutcomeNew || outcome == OutcomeUpdated {
			s.saveIndex(log, index)
		}
	}

	if s.cfg.PruneMissing {
		summary.Pruned = s.prune(ctx, log, dir, files, index)
	}

	s.saveIndex(log, index)

	summary.StoreDocuments = len(index)
	if info := s.store.Info(ctx, s.cfg.Collection); info.Success && info.CurrentCollection != nil {
		summary.StoreChunks = info.CurrentCollection.Count
	}

	log.Info().
		Int("new", summary.New).
		Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("pruned", summary.Pruned).
		Int("total", summary.Total).
		Int("tracked_files", summary.StoreDocuments).
		Int("store_chunks", summary.StoreChunks).
		Msg("Sync summary")

	return summary, nil
}

// syncFile hashes path, compares it with its index entry, and ingests it
// when new or modified. The entry is only written after a successful ingestion.
func (s *Syncer) syncFile(ctx context.Context, log zerolog.Logger, path string, index FileIndex, n, total int) string {
	log = log.With().Str("file", filepath.Base(path)).Int("n", n).Int("of", total).Logger()

	info, err := os.Stat(path)
	if err != nil {
		log.Warn().Err(err).Msg("Error reading file")
		return OutcomeFailed
	}

	hash, err := HashFile(path)
	if err != nil {
		log.Warn().Err(err).Msg("Error reading file")
		return OutcomeFailed
	}

	existing, tracked := index[path]
	if tracked && existing.Hash == hash {
		log.Debug().Msg("Skipped (unchanged)")
		return OutcomeSkipped
	}

	outcome := OutcomeNew
	if tracked {
		outcome = OutcomeUpdated
	}
	log.Info().
		Str("status", outcome).
		Float64("size_mb", float64(info.Size())/1024/1024).
		Msg("Ingesting")

	class := classifier.Classify(path)
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tags := append(append([]string{}, class.Tags...), AutoSyncedTag)

	res := s.docs.IngestPDFFile(ctx, documents.PDFRequest{
		Source:   path,
		Title:    title,
		Category: class.Category,
		DocType:  class.DocType,
		Tags:     tags,
		Metadata: types.Metadata{
			"source_file":    path,
			"auto_synced":    true,
			"sync_timestamp": s.now().Format(time.RFC3339),
		},
		Collection: s.cfg.Collection,
		ChunkSize:  s.cfg.ChunkSize,
		Overlap:    overlapOrNone(s.cfg.Overlap),
		Replace:    tracked,
	})
	if !res.Success {
		log.Error().Str("error", res.Error).Msg("Failed to ingest file")
		return OutcomeFailed
	}

	index[path] = FileIndexEntry{
		Hash:          hash,
		Size:          info.Size(),
		ModifiedTime:  epochSeconds(info.ModTime()),
		IngestedAt:    s.now().Format(time.RFC3339),
		DocumentTitle: res.DocumentTitle,
		ChunksCreated: res.ChunksCreated,
		Category:      class.Category,
		DocType:       class.DocType,
		Tags:          class.Tags,
	}

	log.Info().
		Int("chunks", res.ChunksCreated).
		Int("chars", res.TotalTextLength).
		Msg("Ingested")
	return outcome
}

// prune drops index entries under dir whose files are gone, along with
// their chunks. Entries whose chunks cannot be deleted are kept for the next run.
func (s *Syncer) prune(ctx context.Context, log zerolog.Logger, dir string, files []string, index FileIndex) int {
	root, err := filepath.Abs(dir)
	if err != nil {
		return 0
	}
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}

	pruned := 0
	for _, path := range index.Paths() {
		if present[path] || !strings.HasPrefix(path, root+string(filepath.Separator)) {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			continue
		}

		entry := index[path]
		del := s.store.DeleteDocument(ctx, s.cfg.Collection, entry.DocumentTitle)
		if !del.Success {
			log.Warn().Str("file", path).Str("error", del.Error).Msg("Failed to prune missing file")
			continue
		}
		delete(index, path)
		pruned++
		s.metrics.RecordSyncFile(OutcomePruned)
		log.Info().Str("file", path).Int("chunks", del.Deleted).Msg("Pruned missing file")
	}
	return pruned
}

// warnDuplicateTitles logs files whose titles collide once turned into chunk
// id prefixes, since their chunks overwrite each other.
func warnDuplicateTitles(log zerolog.Logger, files []string) {
	seen := make(map[string]string, len(files))
	for _, path := range files {
		title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		id := documents.SafeDocumentID(title)
		if first, ok := seen[id]; ok {
			log.Warn().
				Str("file", path).
				Str("conflicts_with", first).
				Str("document_id", id).
				Msg("Files share a document id; their chunks will overwrite each other")
			continue
		}
		seen[id] = path
	}
}

func (s *Syncer) saveIndex(log zerolog.Logger, index FileIndex) {
	if err := SaveIndex(s.cfg.IndexFile, index); err != nil {
		log.Warn().Err(err).Str("index_file", s.cfg.IndexFile).Msg("Error saving index file")
	}
}

// InitializeAndSync creates dataSource if needed and syncs it, logging the
// store state before and after. Failures are logged, never returned; the
// caller keeps running without document features. An empty dataSource
// means the configured one.
func (s *Syncer) InitializeAndSync(ctx context.Context, dataSource string) *Summary {
	if dataSource == "" {
		dataSource = s.cfg.DataSource
	}
	s.log.Info().Str("data_source", dataSource).Msg("Initializing vector store")

	if err := os.MkdirAll(dataSource, 0o755); err != nil {
		s.log.Error().Err(err).Msg("Vector store initialization failed, continuing without document features")
		return nil
	}

	if info := s.store.Info(ctx, s.cfg.Collection); info.Success && info.CurrentCollection != nil {
		s.log.Info().Int("chunks", info.CurrentCollection.Count).Msg("Vector store found")
	} else {
		s.log.Info().Str("error", info.Error).Msg("Vector store not available yet, will create new one")
	}

	summary, err := s.syncDir(ctx, dataSource)
	if err != nil {
		s.log.Error().Err(err).Msg("Vector store initialization failed, continuing without document features")
		return nil
	}

	s.log.Info().
		Int("store_chunks", summary.StoreChunks).
		Int("tracked_files", summary.StoreDocuments).
		Msg("Vector store ready")
	return summary
}

// IndexStatus describes the persisted file index
type IndexStatus struct {
	Exists    bool     `json:"exists"`
	FileCount int      `json:"file_count"`
	IndexFile string   `json:"index_file"`
	Files     []string `json:"files,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// FileIndexStatus reports whether the index exists and which files it tracks
func (s *Syncer) FileIndexStatus() IndexStatus {
	status := IndexStatus{IndexFile: s.cfg.IndexFile}
	if _, err := os.Stat(s.cfg.IndexFile); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			status.Exists = true
			status.Error = fmt.Sprintf("Failed to read index: %v", err)
		}
		return status
	}

	index := LoadIndex(s.cfg.IndexFile, s.log)
	status.Exists = true
	status.FileCount = len(index)
	status.Files = index.Paths()
	return status
}

// StoreStatus is the store state together with the sync configuration
type StoreStatus struct {
	vectorstore.InfoResult
	DataSource   string   `json:"data_source"`
	IndexFile    string   `json:"index_file"`
	Collection   string   `json:"sync_collection"`
	PruneMissing bool     `json:"prune_missing"`
	SyncRunning  bool     `json:"sync_running"`
	LastSync     *Summary `json:"last_sync,omitempty"`
}

// StoreStatus reports the sync collection and configuration
func (s *Syncer) StoreStatus(ctx context.Context) StoreStatus {
	return StoreStatus{
		InfoResult:   s.store.Info(ctx, s.cfg.Collection),
		DataSource:   s.cfg.DataSource,
		IndexFile:    s.cfg.IndexFile,
		Collection:   s.cfg.Collection,
		PruneMissing: s.cfg.PruneMissing,
		SyncRunning:  s.Running(),
		LastSync:     s.LastSummary(),
	}
}

// overlapOrNone maps a configured zero overlap to an explicit request for none
func overlapOrNone(overlap int) int {
	if overlap == 0 {
		return documents.NoOverlap
	}
	return overlap
}
