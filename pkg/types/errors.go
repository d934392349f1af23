package types

import "errors"

// Domain errors for type validation
var (
	ErrInvalidChunkID = errors.New("invalid chunk ID")
	ErrInvalidRank    = errors.New("rank must be >= 1")
	ErrEmptyContent   = errors.New("content cannot be empty")
	ErrEmptyTitle     = errors.New("title cannot be empty")

	// ErrExtraction wraps failures to open or read a source document
	ErrExtraction = errors.New("document extraction failed")
)
