// Package ingest turns uploaded writing samples into indexed style
// fragments: chunk, embed, append.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/inkvoice/inkvoice/internal/chunk"
	"github.com/inkvoice/inkvoice/internal/embed"
	"github.com/inkvoice/inkvoice/internal/style"
)

var ErrEmptySample = errors.New("sample text must not be empty")

// Result reports what an upload produced.
type Result struct {
	Sample    *style.Sample
	Chunks    int // chunks produced by the splitter
	Fragments int // fragments actually embedded and indexed
}

// Service runs the upload pipeline.
type Service struct {
	profiles  style.ProfileStore
	index     style.FragmentIndex
	embedder  embed.Embedder
	chunkSize int
	overlap   int
	logger    *slog.Logger
}

func NewService(profiles style.ProfileStore, index style.FragmentIndex, embedder embed.Embedder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		profiles:  profiles,
		index:     index,
		embedder:  embedder,
		chunkSize: chunk.DefaultSize,
		overlap:   chunk.DefaultOverlap,
		logger:    logger,
	}
}

// SetChunking overrides the default chunk size and overlap.
func (s *Service) SetChunking(size, overlap int) {
	s.chunkSize = size
	s.overlap = overlap
}

// Upload persists the sample, then chunks, embeds and indexes it.
// Individual embedding failures are skipped, not fatal: a sample is
// useful even when only some of its fragments made it into the index.
func (s *Service) Upload(ctx context.Context, profileID uuid.UUID, fileName, text string) (*Result, error) {
	if text == "" {
		return nil, ErrEmptySample
	}
	if _, err := s.profiles.Profile(ctx, profileID); err != nil {
		return nil, err
	}

	sample, err := s.profiles.CreateSample(ctx, profileID, fileName, text)
	if err != nil {
		return nil, fmt.Errorf("storing sample: %w", err)
	}

	chunks, err := chunk.Split(text, s.chunkSize, s.overlap)
	if err != nil {
		return nil, fmt.Errorf("chunking sample %s: %w", sample.ID, err)
	}

	embedded := embed.EmbedBatch(ctx, s.embedder, chunks, s.logger)

	fragments := make([]style.Fragment, 0, len(embedded))
	for _, e := range embedded {
		fragments = append(fragments, style.Fragment{
			ID:        uuid.New(),
			SampleID:  sample.ID,
			ProfileID: profileID,
			Text:      chunks[e.Index],
			Vector:    e.Vector,
			Position:  e.Index,
		})
	}
	if len(fragments) > 0 {
		if err := s.index.Append(ctx, fragments); err != nil {
			return nil, fmt.Errorf("indexing fragments for sample %s: %w", sample.ID, err)
		}
	}

	s.logger.Info("sample ingested",
		"sample", sample.ID,
		"profile", profileID,
		"chunks", len(chunks),
		"fragments", len(fragments))

	return &Result{Sample: sample, Chunks: len(chunks), Fragments: len(fragments)}, nil
}
