// Package client is the HTTP/SSE client for the inkvoice API, used by
// the TUI and the CLI commands.
package client

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

	"github.com/google/uuid"
)

// Conversation mirrors the API's conversation resource.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message mirrors the API's message resource.
type Message struct {
	ID             uuid.UUID `json:"id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Model          string    `json:"model,omitempty"`
	VoiceProfileID string    `json:"voiceProfileId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Profile mirrors the API's profile resource.
type Profile struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	IsActive bool      `json:"isActive"`
}

// EventKind mirrors the server's stream event kinds.
type EventKind string

const (
	EventContent EventKind = "content"
	EventDone    EventKind = "done"
	EventError   EventKind = "error"
	EventReset   EventKind = "reset"
)

// Event is one parsed stream event.
type Event struct {
	Kind      EventKind
	Delta     string
	Reason    string
	MessageID string
}

// Client talks to one inkvoice server.
type Client struct {
	baseURL string
	http    *http.Client
	owner   string
}

// Option configures a Client.
type Option func(*Client)

// WithOwner sets the X-Owner-ID header on every request.
func WithOwner(owner string) Option {
	return func(c *Client) { c.owner = owner }
}

// WithHTTPClient replaces the default HTTP client. Streaming requests
// need a client without a response timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.owner != "" {
		req.Header.Set("X-Owner-ID", c.owner)
	}
	return req, nil
}

// doJSON executes a request and decodes the JSON response into dst
// (which may be nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, dst any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return fmt.Errorf("server: %s (status %d)", payload.Error, resp.StatusCode)
	}
	return fmt.Errorf("server returned status %d", resp.StatusCode)
}

func (c *Client) CreateConversation(ctx context.Context, title string) (Conversation, error) {
	var out Conversation
	err := c.doJSON(ctx, http.MethodPost, "/api/conversations", map[string]string{"title": title}, &out)
	return out, err
}

func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var out []Conversation
	err := c.doJSON(ctx, http.MethodGet, "/api/conversations", nil, &out)
	return out, err
}

func (c *Client) Messages(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	var out []Message
	err := c.doJSON(ctx, http.MethodGet, "/api/conversations/"+conversationID.String()+"/messages", nil, &out)
	return out, err
}

func (c *Client) Stop(ctx context.Context, conversationID uuid.UUID) (bool, error) {
	var out struct {
		Stopped bool `json:"stopped"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/conversations/"+conversationID.String()+"/stop", nil, &out)
	return out.Stopped, err
}

// GenerateSync runs a full generation and returns the final text plus
// the persisted assistant message ID.
func (c *Client) GenerateSync(ctx context.Context, conversationID uuid.UUID, userText, modelID string) (string, string, error) {
	var out struct {
		Text      string `json:"text"`
		MessageID string `json:"messageId"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/generate", map[string]string{
		"conversationId": conversationID.String(),
		"userText":       userText,
		"modelId":        modelID,
	}, &out)
	return out.Text, out.MessageID, err
}

func (c *Client) CreateProfile(ctx context.Context, name string) (Profile, error) {
	var out Profile
	err := c.doJSON(ctx, http.MethodPost, "/api/profiles", map[string]string{"name": name}, &out)
	return out, err
}

func (c *Client) Profiles(ctx context.Context) ([]Profile, error) {
	var out []Profile
	err := c.doJSON(ctx, http.MethodGet, "/api/profiles", nil, &out)
	return out, err
}

func (c *Client) ActivateProfile(ctx context.Context, profileID uuid.UUID) error {
	return c.doJSON(ctx, http.MethodPost, "/api/profiles/"+profileID.String()+"/activate", nil, nil)
}

// UploadSample uploads a writing sample and reports how many fragments
// were indexed.
func (c *Client) UploadSample(ctx context.Context, profileID uuid.UUID, fileName, text string) (string, int, error) {
	var out struct {
		SampleID  string `json:"sampleId"`
		Fragments int    `json:"fragments"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/profiles/"+profileID.String()+"/samples", map[string]string{
		"fileName": fileName,
		"text":     text,
	}, &out)
	return out.SampleID, out.Fragments, err
}

// Generate opens the SSE stream for one generation. Iteration ends
// after the terminal done or error event; a non-nil error from the
// sequence means the transport itself failed.
func (c *Client) Generate(ctx context.Context, conversationID uuid.UUID, userText, modelID string) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		req, err := c.newRequest(ctx, http.MethodPost,
			"/api/conversations/"+conversationID.String()+"/generate",
			map[string]string{"userText": userText, "modelId": modelID})
		if err != nil {
			yield(Event{}, err)
			return
		}
		req.Header.Set("Accept", "text/event-stream")

		resp, err := c.http.Do(req)
		if err != nil {
			yield(Event{}, fmt.Errorf("opening stream: %w", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			yield(Event{}, apiError(resp))
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		var name string
		var data []string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = append(data, strings.TrimPrefix(line, "data: "))
			case line == "":
				if name == "" && len(data) == 0 {
					continue
				}
				ev, decodeErr := decodeEvent(name, strings.Join(data, "\n"))
				name, data = "", nil
				if decodeErr != nil {
					yield(Event{}, decodeErr)
					return
				}
				if !yield(ev, nil) {
					return
				}
				if ev.Kind == EventDone || ev.Kind == EventError {
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			yield(Event{}, fmt.Errorf("reading stream: %w", err))
		}
	}
}

func decodeEvent(name, data string) (Event, error) {
	ev := Event{Kind: EventKind(name)}
	switch ev.Kind {
	case EventContent:
		var payload struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return Event{}, fmt.Errorf("decoding content event: %w", err)
		}
		ev.Delta = payload.Delta
	case EventDone:
		var payload struct {
			MessageID string `json:"messageId"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return Event{}, fmt.Errorf("decoding done event: %w", err)
		}
		ev.MessageID = payload.MessageID
	case EventError:
		var payload struct {
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return Event{}, fmt.Errorf("decoding error event: %w", err)
		}
		ev.Reason = payload.Reason
	case EventReset:
		// No payload.
	default:
		// Unknown event kinds are forwarded as-is so newer servers can
		// add kinds without breaking older clients.
	}
	return ev, nil
}
