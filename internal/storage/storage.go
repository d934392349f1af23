package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dshills/docstore-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
	// ErrDimensionMismatch is returned when a vector's length differs from the rest of its batch
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Storage persists named collections of embedded text entries
type Storage interface {
	// Collection operations
	GetOrCreateCollection(ctx context.Context, name string, metadata types.Metadata) (*Collection, error)
	GetCollection(ctx context.Context, name string) (*Collection, error)
	DeleteCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]*Collection, error)

	// Entry operations
	Count(ctx context.Context, collection string) (int, error)
	Upsert(ctx context.Context, collection string, records []Record) error
	// DeleteByTitle removes the entries of a document, sparing the ids in keep
	DeleteByTitle(ctx context.Context, collection, title string, keep ...string) (int, error)

	// Query returns the limit nearest entries to vector by cosine distance
	Query(ctx context.Context, collection string, vector []float32, limit int) ([]Match, error)
	// Peek returns the first limit entries in insertion order
	Peek(ctx context.Context, collection string, limit int) ([]Match, error)

	// Location describes where the data lives (file path or URL)
	Location() string
	Close() error
}

// Collection is a named group of entries
type Collection struct {
	ID        int64
	Name      string
	Metadata  types.Metadata
	CreatedAt time.Time
}

// Record is an entry to be written
type Record struct {
	ID       string
	Document string
	Metadata types.Metadata
	Vector   []float32
	Provider string
	Model    string
}

// Match is an entry returned by Query or Peek
type Match struct {
	ID       string
	Document string
	Metadata types.Metadata
	Distance float64 // cosine distance, lower is nearer
}

// DefaultCollectionMetadata is attached to collections created on demand
func DefaultCollectionMetadata() types.Metadata {
	return types.Metadata{"description": "Document knowledge base"}
}

// titleOf extracts the document_title used for delete-by-title
func titleOf(md types.Metadata) string {
	return md.String("document_title", "")
}
