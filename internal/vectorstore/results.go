package vectorstore

import "github.com/dshills/docstore-mcp/pkg/types"

// Result is the status shared by every store operation
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AddRequest adds Texts to Collection. IDs and Metadatas are optional but,
// when given, must have one element per text.
type AddRequest struct {
	Texts      []string
	IDs        []string
	Metadatas  []types.Metadata
	Collection string
}

// AddResult reports an Add
type AddResult struct {
	Result
	Collection      string `json:"collection"`
	DocumentCount   int    `json:"document_count"`
	CollectionTotal int    `json:"collection_total"`
}

// SearchRequest asks for the NResults entries nearest to Query
type SearchRequest struct {
	Query            string
	NResults         int
	Collection       string
	IncludeDistances bool
}

// SearchResult reports a Search
type SearchResult struct {
	Result
	Query          string            `json:"query"`
	Collection     string            `json:"collection"`
	Results        []types.SearchHit `json:"results"`
	TotalDocuments int               `json:"total_documents"`
	ReturnedCount  int               `json:"returned_count"`
}

// CollectionInfo describes one collection
type CollectionInfo struct {
	Name     string         `json:"name"`
	Count    int            `json:"count"`
	Metadata types.Metadata `json:"metadata"`
}

// InfoResult reports an Info
type InfoResult struct {
	Result
	CurrentCollection *CollectionInfo `json:"current_collection,omitempty"`
	AllCollections    []string        `json:"all_collections"`
	DatabasePath      string          `json:"database_path"`
}

// ResetResult reports a Reset
type ResetResult struct {
	Result
	Collection      string `json:"collection"`
	CollectionCount int    `json:"collection_count"`
}

// DeleteResult reports a DeleteDocument
type DeleteResult struct {
	Result
	Collection    string `json:"collection"`
	DocumentTitle string `json:"document_title"`
	Deleted       int    `json:"deleted_chunks"`
}
