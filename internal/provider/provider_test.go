package provider

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	openai := NewOpenAI("key", "")
	r.Register("gpt-4o-mini", openai)

	p, err := r.Lookup("gpt-4o-mini")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("Lookup() provider = %s, want openai", p.Name())
	}

	_, err = r.Lookup("claude-unconfigured")
	if !errors.Is(err, ErrUnknownModel) {
		t.Errorf("Lookup(unregistered) error = %v, want ErrUnknownModel", err)
	}
}

func TestRegistry_Models(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register("model-b", NewOpenAI("key", ""))
	r.Register("model-a", NewOpenAI("key", ""))

	models := r.Models()
	if len(models) != 2 || models[0] != "model-a" || models[1] != "model-b" {
		t.Errorf("Models() = %v, want sorted [model-a model-b]", models)
	}
}

// drain collects all deltas from a stream into text plus a terminal error.
func drain(seq iter.Seq2[Delta, error]) (string, error) {
	var text string
	for d, err := range seq {
		if err != nil {
			return text, err
		}
		text += d.Text
	}
	return text, nil
}

func TestOpenAI_Stream(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo \"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive comment\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"world\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenAI("test-key", srv.URL)
	text, err := drain(p.Stream(context.Background(), Request{
		Model:    "gpt-4o-mini",
		System:   "be brief",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	}))
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if text != "Hello world" {
		t.Errorf("Stream() text = %q, want %q", text, "Hello world")
	}
}

func TestOpenAI_Stream_EmptyResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenAI("test-key", srv.URL)
	_, err := drain(p.Stream(context.Background(), Request{Model: "m"}))
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Stream() error = %v, want ErrEmptyResponse", err)
	}
}

func TestOpenAI_Stream_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"auth_error"}}`)
	}))
	defer srv.Close()

	p := NewOpenAI("wrong-key", srv.URL)
	_, err := drain(p.Stream(context.Background(), Request{Model: "m"}))
	if err == nil {
		t.Fatal("Stream() expected error, got nil")
	}
}

func TestOpenAI_Stream_MidStreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"overloaded\",\"type\":\"server_error\"}}\n\n")
	}))
	defer srv.Close()

	p := NewOpenAI("test-key", srv.URL)
	text, err := drain(p.Stream(context.Background(), Request{Model: "m"}))
	if err == nil {
		t.Fatal("Stream() expected mid-stream error")
	}
	if text != "partial" {
		t.Errorf("Stream() text before error = %q, want %q", text, "partial")
	}
}

func TestOpenAI_Stream_ConsumerBreak(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		for i := 0; i < 100; i++ {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"chunk-%d \"}}]}\n\n", i)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewOpenAI("test-key", srv.URL)
	var count int
	for _, err := range p.Stream(context.Background(), Request{Model: "m"}) {
		if err != nil {
			t.Fatalf("Stream() error = %v", err)
		}
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Errorf("received %d deltas after break, want 3", count)
	}
}

func TestOpenAI_Stream_FinishReasonEndsStream(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"done\"},\"finish_reason\":\"stop\"}]}\n\n")
		// Nothing more; no [DONE] sentinel.
	}))
	defer srv.Close()

	p := NewOpenAI("test-key", srv.URL)
	text, err := drain(p.Stream(context.Background(), Request{Model: "m"}))
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if text != "done" {
		t.Errorf("Stream() text = %q, want %q", text, "done")
	}
}
