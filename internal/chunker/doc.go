// Package chunker divides document text into overlapping chunks for embedding.
//
// Chunks are bounded by a maximum size in characters and prefer to end on a
// sentence boundary so that each chunk reads as complete prose.
//
// # Basic Usage
//
//	c, err := chunker.New(1200, 200)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for i, text := range c.Split(document) {
//	    fmt.Printf("chunk %d: %d chars\n", i, len([]rune(text)))
//	}
//
// # Chunking Strategy
//
// Text no longer than the maximum size is returned as-is. Otherwise a window
// of the maximum size slides over the text:
//   - If the window contains ". " in its second half, the chunk ends at that
//     period and the next window starts overlap characters before it.
//   - Otherwise the chunk is the whole window and the next window starts
//     overlap characters before its end.
//   - The remaining tail is emitted whole once it fits.
//
// Sentence-cut chunks and the tail are trimmed; chunks that are blank after
// trimming are dropped. The output is deterministic for a given input.
//
// # Preconditions
//
// The overlap must be smaller than the maximum size; New and Split reject
// other combinations with ErrInvalidOverlap.
package chunker
