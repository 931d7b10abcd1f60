// Package chunk splits raw text into overlapping fragments for embedding.
//
// Splitting is deterministic and pure: the same input always yields the
// same fragments, and concatenating the fragments with their overlaps
// removed reconstructs the original text.
package chunk

import (
	"errors"
	"fmt"
)

// Default chunking parameters, chosen to keep fragments well under
// embedding model token limits while preserving enough context at
// chunk boundaries.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// ErrInvalidParams indicates the size/overlap combination is unusable.
var ErrInvalidParams = errors.New("invalid chunk parameters")

// Split divides text into overlapping chunks of at most size runes,
// where consecutive chunks share overlap runes. Text shorter than size
// yields a single chunk. An empty input yields no chunks.
//
// Operates on runes, not bytes, so multi-byte characters are never cut
// in half.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidParams, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must be non-negative, got %d", ErrInvalidParams, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than size %d", ErrInvalidParams, overlap, size)
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	if len(runes) <= size {
		return []string{text}, nil
	}

	step := size - overlap
	chunks := make([]string, 0, (len(runes)-overlap+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// SplitDefault splits text using the package default size and overlap.
func SplitDefault(text string) ([]string, error) {
	return Split(text, DefaultSize, DefaultOverlap)
}
