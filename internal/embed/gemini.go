package embed

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Default Gemini embedding configuration.
//
// gemini-embedding-001 outputs 3072 dimensions by default but supports
// truncation via OutputDimensionality; 768 matches the pgvector schema.
const (
	DefaultGeminiModel     = "gemini-embedding-001"
	DefaultGeminiDimension = 768
)

// Gemini embeds text through the Gemini API.
type Gemini struct {
	client    *genai.Client
	model     string
	dimension int
}

// NewGemini creates a Gemini embedder. Empty model or non-positive
// dimension fall back to the package defaults.
func NewGemini(ctx context.Context, apiKey, model string, dimension int) (*Gemini, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	if dimension <= 0 {
		dimension = DefaultGeminiDimension
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{client: client, model: model, dimension: dimension}, nil
}

// Embed implements Embedder.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}

	dim := int32(g.dimension) // #nosec G115 -- dimension validated at construction
	resp, err := g.client.Models.EmbedContent(ctx, g.model,
		genai.Text(text),
		&genai.EmbedContentConfig{OutputDimensionality: &dim},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, ErrNoEmbedding
	}

	vec := resp.Embeddings[0].Values
	if len(vec) != g.dimension {
		return nil, fmt.Errorf("gemini embed: got %d dimensions, want %d", len(vec), g.dimension)
	}
	return vec, nil
}

// Dimension implements Embedder.
func (g *Gemini) Dimension() int { return g.dimension }

// Name implements Embedder.
func (g *Gemini) Name() string { return "gemini" }
