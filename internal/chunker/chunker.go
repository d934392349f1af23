package chunker

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters
	DefaultChunkSize = 1000

	// DefaultOverlap is the number of characters repeated between consecutive chunks
	DefaultOverlap = 200

	// boundaryRatio is how far into the window a sentence break must sit to be used
	boundaryRatio = 0.5
)

var (
	// ErrInvalidSize is returned when the maximum chunk size is not positive
	ErrInvalidSize = errors.New("chunk size must be positive")
	// ErrInvalidOverlap is returned when overlap is negative or not smaller than the chunk size
	ErrInvalidOverlap = errors.New("overlap must be non-negative and smaller than chunk size")
)

// Chunker splits document text into overlapping, sentence-aware chunks
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker with the given maximum size and overlap
func New(size, overlap int) (*Chunker, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the maximum chunk size
func (c *Chunker) Size() int {
	return c.size
}

// Overlap returns the configured overlap
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Split chunks text using the chunker's configured sizes
func (c *Chunker) Split(text string) []string {
	// sizes were validated in New
	chunks, _ := Split(text, c.size, c.overlap)
	return chunks
}

// Split divides text into chunks of at most maxSize characters.
//
// Text that already fits is returned as the single element, untouched.
// Longer text is cut at the last ". " found in the second half of each
// window; when there is none the window is cut hard. Consecutive chunks
// share overlap characters. Chunks that are empty after trimming are dropped.
func Split(text string, maxSize, overlap int) ([]string, error) {
	if err := validate(maxSize, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	if len(runes) <= maxSize {
		return []string{text}, nil
	}

	chunks := make([]string, 0, len(runes)/(maxSize-overlap)+1)
	start := 0
	for start < len(runes) {
		end := start + maxSize
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}

		window := runes[start:end]
		next := end - overlap

		if i := lastSentenceEnd(window); i >= 0 && float64(i) >= float64(maxSize)*boundaryRatio {
			cut := start + i + 1
			chunks = append(chunks, strings.TrimSpace(string(runes[start:cut])))
			next = cut - overlap
			if next <= start {
				next = cut
			}
		} else {
			chunks = append(chunks, string(window))
		}

		start = next
	}

	return dropEmpty(chunks), nil
}

func validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: overlap %d, size %d", ErrInvalidOverlap, overlap, size)
	}
	return nil
}

// lastSentenceEnd returns the index of the period of the last ". " in window, or -1
func lastSentenceEnd(window []rune) int {
	for i := len(window) - 2; i >= 0; i-- {
		if window[i] == '.' && window[i+1] == ' ' {
			return i
		}
	}
	return -1
}

func dropEmpty(chunks []string) []string {
	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}
