package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default OpenAI embedding configuration.
const (
	DefaultOpenAIModel     = "text-embedding-3-small"
	DefaultOpenAIDimension = 1536
	DefaultOpenAIBaseURL   = "https://api.openai.com/v1"

	openAIEmbedTimeout = 30 * time.Second
)

// OpenAI embeds text through the OpenAI embeddings API.
type OpenAI struct {
	apiKey    string
	model     string
	baseURL   string
	dimension int
	client    *http.Client
}

// NewOpenAI creates an OpenAI embedder. Empty model, base URL, or
// non-positive dimension fall back to the package defaults.
func NewOpenAI(apiKey, model, baseURL string, dimension int) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if dimension <= 0 {
		dimension = DefaultOpenAIDimension
	}
	return &OpenAI{
		apiKey:    apiKey,
		model:     model,
		baseURL:   baseURL,
		dimension: dimension,
		client:    &http.Client{Timeout: openAIEmbedTimeout},
	}
}

type openAIEmbedRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Embed implements Embedder.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}

	body, err := json.Marshal(openAIEmbedRequest{
		Model:      o.model,
		Input:      text,
		Dimensions: o.dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}

	var parsed openAIEmbedResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse embed response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return nil, fmt.Errorf("openai embed: %s (%s)", parsed.Error.Message, parsed.Error.Type)
		}
		return nil, fmt.Errorf("openai embed: unexpected status %d", resp.StatusCode)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, ErrNoEmbedding
	}

	vec := parsed.Data[0].Embedding
	if len(vec) != o.dimension {
		return nil, fmt.Errorf("openai embed: got %d dimensions, want %d", len(vec), o.dimension)
	}
	return vec, nil
}

// Dimension implements Embedder.
func (o *OpenAI) Dimension() int { return o.dimension }

// Name implements Embedder.
func (o *OpenAI) Name() string { return "openai" }
