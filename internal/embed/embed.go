// Package embed maps text fragments to fixed-length vectors through
// pluggable embedding providers.
//
// All vectors stored in one style index must come from the same provider;
// mixing dimensionalities breaks similarity comparison. The style index
// enforces this by checking the dimension on append.
package embed

import (
	"context"
	"errors"
	"log/slog"
)

// Sentinel errors for embedding operations.
var (
	// ErrEmptyInput indicates an empty text was submitted for embedding.
	ErrEmptyInput = errors.New("empty input text")

	// ErrNoEmbedding indicates the provider returned no vector.
	ErrNoEmbedding = errors.New("no embedding returned")
)

// Embedder maps a text fragment to a fixed-length numeric vector.
//
// Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed returns the vector for text. The returned slice always has
	// length Dimension().
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension reports the dimensionality of produced vectors.
	Dimension() int

	// Name identifies the provider (used to verify index compatibility).
	Name() string
}

// BatchResult pairs a successful embedding with the index of its source
// text in the original batch.
type BatchResult struct {
	Index  int
	Vector []float32
}

// EmbedBatch embeds each text, continuing past individual failures and
// returning only the successes. Failed items are logged, not fatal, so
// one bad fragment does not abort a whole sample's indexing.
func EmbedBatch(ctx context.Context, e Embedder, texts []string, logger *slog.Logger) []BatchResult {
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]BatchResult, 0, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			logger.Warn("embedding fragment failed, skipping",
				"index", i,
				"provider", e.Name(),
				"error", err)
			continue
		}
		results = append(results, BatchResult{Index: i, Vector: vec})
	}
	return results
}
