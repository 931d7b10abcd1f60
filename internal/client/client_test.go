package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestClient_Generate(t *testing.T) {
	t.Parallel()

	convID := uuid.New()
	msgID := uuid.NewString()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantPath := "/api/conversations/" + convID.String() + "/generate"
		if r.URL.Path != wantPath {
			http.NotFound(w, r)
			return
		}
		var req struct {
			UserText string `json:"userText"`
			ModelID  string `json:"modelId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserText != "hi" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: content\ndata: {\"delta\":\"Hel\"}\n\n")
		fmt.Fprint(w, "event: content\ndata: {\"delta\":\"lo\"}\n\n")
		fmt.Fprintf(w, "event: done\ndata: {\"messageId\":%q}\n\n", msgID)
	}))
	defer srv.Close()

	c := New(srv.URL)
	var text string
	var last Event
	for ev, err := range c.Generate(context.Background(), convID, "hi", "test-model") {
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if ev.Kind == EventContent {
			text += ev.Delta
		}
		last = ev
	}
	if text != "Hello" {
		t.Errorf("accumulated text = %q, want %q", text, "Hello")
	}
	if last.Kind != EventDone || last.MessageID != msgID {
		t.Errorf("last event = %+v, want done with message ID", last)
	}
}

func TestClient_Generate_ErrorEvent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: content\ndata: {\"delta\":\"par\"}\n\n")
		fmt.Fprint(w, "event: reset\ndata: {}\n\n")
		fmt.Fprint(w, "event: error\ndata: {\"reason\":\"please retry\"}\n\n")
	}))
	defer srv.Close()

	c := New(srv.URL)
	var kinds []EventKind
	var reason string
	for ev, err := range c.Generate(context.Background(), uuid.New(), "hi", "m") {
		if err != nil {
			t.Fatalf("Generate() transport error = %v", err)
		}
		kinds = append(kinds, ev.Kind)
		if ev.Kind == EventError {
			reason = ev.Reason
		}
	}
	want := []EventKind{EventContent, EventReset, EventError}
	if len(kinds) != len(want) {
		t.Fatalf("event kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}
	if reason != "please retry" {
		t.Errorf("error reason = %q, want %q", reason, "please retry")
	}
}

func TestClient_Generate_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"error":"a generation is already running for this conversation"}`)
	}))
	defer srv.Close()

	c := New(srv.URL)
	var gotErr error
	for _, err := range c.Generate(context.Background(), uuid.New(), "hi", "m") {
		gotErr = err
	}
	if gotErr == nil {
		t.Fatal("expected an error for HTTP 409")
	}
}

func TestClient_CreateConversationAndOwnerHeader(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Owner-ID"); got != "alice" {
			t.Errorf("X-Owner-ID = %q, want alice", got)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"id":%q,"title":"t","createdAt":"2026-08-29T10:00:00.000Z","updatedAt":"2026-08-29T10:00:00.000Z"}`,
			uuid.NewString())
	}))
	defer srv.Close()

	c := New(srv.URL, WithOwner("alice"))
	conv, err := c.CreateConversation(context.Background(), "t")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if conv.Title != "t" || conv.ID == uuid.Nil {
		t.Errorf("unexpected conversation: %+v", conv)
	}
}

func TestClient_Stop(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"stopped":true}`)
	}))
	defer srv.Close()

	stopped, err := New(srv.URL).Stop(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !stopped {
		t.Error("Stop() = false, want true")
	}
}
