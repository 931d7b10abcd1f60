package provider

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/genai"
)

// Gemini streams generations through the Gemini API. Unlike the OpenAI
// wire format, the SDK iterator yields raw incremental text chunks.
type Gemini struct {
	client *genai.Client
}

// NewGemini creates a Gemini adapter.
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{client: client}, nil
}

// Name implements Provider.
func (g *Gemini) Name() string { return "gemini" }

// Stream implements Provider.
func (g *Gemini) Stream(ctx context.Context, req Request) iter.Seq2[Delta, error] {
	return func(yield func(Delta, error) bool) {
		contents := make([]*genai.Content, 0, len(req.Messages))
		for _, m := range req.Messages {
			role := genai.RoleUser
			if m.Role == RoleAssistant {
				role = genai.RoleModel
			}
			contents = append(contents, genai.NewContentFromText(m.Content, genai.Role(role)))
		}

		var cfg *genai.GenerateContentConfig
		if req.System != "" {
			cfg = &genai.GenerateContentConfig{
				SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
			}
		}

		sawText := false
		for resp, err := range g.client.Models.GenerateContentStream(ctx, req.Model, contents, cfg) {
			if err != nil {
				yield(Delta{}, fmt.Errorf("gemini stream: %w", err))
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			sawText = true
			if !yield(Delta{Text: text}, nil) {
				return
			}
		}

		if !sawText {
			yield(Delta{}, ErrEmptyResponse)
		}
	}
}
