package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"
)

// DefaultOpenAIBaseURL is the production chat completions endpoint root.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// openAIStreamTimeout bounds one whole generation request.
const openAIStreamTimeout = 5 * time.Minute

// scannerBufferSize accommodates large SSE lines (model chunks with
// long content or tool payloads).
const scannerBufferSize = 1024 * 1024

// OpenAI streams chat completions over the OpenAI SSE wire format:
// one "data: {json}" line per chunk, terminated by "data: [DONE]".
type OpenAI struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAI creates an OpenAI adapter. Empty baseURL falls back to the
// production endpoint.
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &OpenAI{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: openAIStreamTimeout},
	}
}

// Name implements Provider.
func (o *OpenAI) Name() string { return "openai" }

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model    string              `json:"model"`
	Messages []openAIChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Stream implements Provider.
func (o *OpenAI) Stream(ctx context.Context, req Request) iter.Seq2[Delta, error] {
	return func(yield func(Delta, error) bool) {
		resp, err := o.open(ctx, req)
		if err != nil {
			yield(Delta{}, err)
			return
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), scannerBufferSize)

		sawText := false
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				break
			}

			var chunk openAIStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				// Skip malformed keep-alive or partial lines.
				continue
			}
			if chunk.Error != nil {
				yield(Delta{}, fmt.Errorf("openai stream: %s (%s)", chunk.Error.Message, chunk.Error.Type))
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if text := chunk.Choices[0].Delta.Content; text != "" {
				sawText = true
				if !yield(Delta{Text: text}, nil) {
					return
				}
			}
			if chunk.Choices[0].FinishReason != nil {
				break
			}
		}

		if err := scanner.Err(); err != nil {
			yield(Delta{}, fmt.Errorf("reading openai stream: %w", err))
			return
		}
		if !sawText {
			yield(Delta{}, ErrEmptyResponse)
		}
	}
}

// open sends the streaming request and validates the response status.
func (o *OpenAI) open(ctx context.Context, req Request) (*http.Response, error) {
	messages := make([]openAIChatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openAIChatMessage{Role: string(RoleSystem), Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, openAIChatMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(openAIChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()

		var parsed openAIStreamChunk
		if json.Unmarshal(data, &parsed) == nil && parsed.Error != nil {
			return nil, fmt.Errorf("openai: %s (%s)", parsed.Error.Message, parsed.Error.Type)
		}
		return nil, fmt.Errorf("openai: unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}
