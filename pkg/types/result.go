package types

// SearchHit represents a single ranked entry returned by the vector store
type SearchHit struct {
	Rank     int      `json:"rank"` // Position in result set (1-based)
	ID       string   `json:"id"`
	Document string   `json:"document"`
	Metadata Metadata `json:"metadata"`

	// Set only when distances are requested
	Distance        *float64 `json:"distance,omitempty"`
	SimilarityScore *float64 `json:"similarity_score,omitempty"`
}

// Validate checks if the search hit is valid
func (h *SearchHit) Validate() error {
	if h.ID == "" {
		return ErrInvalidChunkID
	}

	if h.Rank < 1 {
		return ErrInvalidRank
	}

	return nil
}

// Similarity converts a distance to a similarity score clamped at zero
func Similarity(distance float64) float64 {
	s := 1 - distance
	if s < 0 {
		return 0
	}
	return s
}

// PageError records a page whose text could not be extracted
type PageError struct {
	Page  int    `json:"page"`
	Error string `json:"error"`
}

// ExtractResult is the normalized text of a document plus extraction statistics
type ExtractResult struct {
	Text           string      `json:"-"`
	TotalPages     int         `json:"total_pages"`
	PagesExtracted int         `json:"pages_extracted"`
	PageErrors     []PageError `json:"page_errors,omitempty"`
}
