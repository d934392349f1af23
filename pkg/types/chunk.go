package types

import (
	"errors"
	"fmt"
)

// Chunk represents a bounded text span of a document prepared for the vector store
type Chunk struct {
	// Identification
	ID string // "{safe_id}_chunk_{index:04d}"

	// Content
	Text string

	// Position within the document
	Index int
	Total int

	Metadata Metadata
}

// ChunkID builds the deterministic id of the chunk at index within a document
func ChunkID(safeID string, index int) string {
	return fmt.Sprintf("%s_chunk_%04d", safeID, index)
}

// Size returns the chunk length in characters
func (c *Chunk) Size() int {
	return len([]rune(c.Text))
}

// Validate checks if the chunk is valid
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return ErrInvalidChunkID
	}

	if c.Text == "" {
		return ErrEmptyContent
	}

	if c.Index < 0 || (c.Total > 0 && c.Index >= c.Total) {
		return errors.New("chunk index out of range")
	}

	return nil
}

// BuildChunks assigns ids and per-chunk metadata to the given texts.
// Each chunk's metadata is a copy of base plus chunk_index, total_chunks and chunk_size.
func BuildChunks(safeID string, texts []string, base Metadata) []*Chunk {
	chunks := make([]*Chunk, len(texts))
	for i, text := range texts {
		meta := base.Clone()
		chunk := &Chunk{
			ID:    ChunkID(safeID, i),
			Text:  text,
			Index: i,
			Total: len(texts),
		}
		meta["chunk_index"] = i
		meta["total_chunks"] = len(texts)
		meta["chunk_size"] = chunk.Size()
		chunk.Metadata = meta
		chunks[i] = chunk
	}
	return chunks
}
