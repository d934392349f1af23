// Package types provides shared type definitions for the docstore MCP server.
//
// This package defines the value types that cross package boundaries:
// chunk records, metadata maps, extraction results, and the domain errors
// they validate against.
//
// # Metadata
//
// Metadata is the flat key/value record attached to every stored chunk.
// Values are restricted to strings, numbers, and booleans so that every
// storage backend can persist them:
//
//	meta := types.Metadata{
//	    "document_title": "Guide",
//	    "category":       "technical",
//	    "tags":           "aws,cloud",
//	    "chunk_index":    0,
//	}
//
// Typed accessors tolerate the numeric types produced by JSON decoding:
//
//	meta.Int("chunk_index", -1)  // 0
//	meta.Tags()                   // []string{"aws", "cloud"}
//
// # Chunks
//
// Chunk is one bounded span of a document ready for the vector store. Its ID
// is derived from the document's safe id and its ordinal:
//
//	chunk := &types.Chunk{
//	    ID:    types.ChunkID("guide", 0), // "guide_chunk_0000"
//	    Text:  text,
//	    Index: 0,
//	    Total: 3,
//	}
//
// # Extraction
//
// ExtractResult carries the normalized text of a source document together
// with per-page failures, which are tolerated rather than fatal.
package types
