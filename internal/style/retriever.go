package style

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/inkvoice/inkvoice/internal/embed"
)

// Retriever embeds a query and returns the most similar fragments of a
// profile, ranked by descending similarity.
type Retriever struct {
	embedder embed.Embedder
	index    FragmentIndex
	topK     int
	logger   *slog.Logger
}

// NewRetriever creates a Retriever. topK <= 0 uses DefaultTopK.
func NewRetriever(embedder embed.Embedder, index FragmentIndex, topK int, logger *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, index: index, topK: topK, logger: logger}
}

// Retrieve returns up to the configured top-k fragments of profileID
// most similar to queryText.
func (r *Retriever) Retrieve(ctx context.Context, profileID uuid.UUID, queryText string) ([]Scored, error) {
	vec, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.index.TopK(ctx, profileID, vec, r.topK)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	r.logger.Debug("retrieved style fragments",
		"profile", profileID,
		"count", len(results),
		"query_length", len(queryText))
	return results, nil
}
