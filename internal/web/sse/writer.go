// Package sse provides Server-Sent Events utilities for streaming
// generation output.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Writer wraps an http.ResponseWriter for SSE streaming. Events are
// written in emission order; Done and Error are terminal.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter creates an SSE writer and sets the stream headers.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flusher interface")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	return &Writer{w: w, flusher: flusher}, nil
}

// writeEvent writes one SSE frame. Multi-line payloads get a "data: "
// prefix per line as the SSE format requires.
func (w *Writer) writeEvent(event, payload string) error {
	if _, err := fmt.Fprintf(w.w, "event: %s\n", event); err != nil {
		return fmt.Errorf("write event name: %w", err)
	}
	for _, line := range strings.Split(payload, "\n") {
		if _, err := fmt.Fprintf(w.w, "data: %s\n", line); err != nil {
			return fmt.Errorf("write data line: %w", err)
		}
	}
	if _, err := w.w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("write terminator: %w", err)
	}

	w.flusher.Flush()
	return nil
}

func (w *Writer) writeJSON(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return w.writeEvent(event, string(data))
}

// WriteContent sends one text delta.
func (w *Writer) WriteContent(delta string) error {
	return w.writeJSON("content", map[string]string{"delta": delta})
}

// WriteDone sends the terminal completion event with the persisted
// assistant message ID, empty when persistence failed.
func (w *Writer) WriteDone(messageID uuid.UUID) error {
	payload := map[string]string{}
	if messageID != uuid.Nil {
		payload["messageId"] = messageID.String()
	}
	return w.writeJSON("done", payload)
}

// WriteError sends the terminal error event. reason must already be
// safe to show to the user.
func (w *Writer) WriteError(reason string) error {
	return w.writeJSON("error", map[string]string{"reason": reason})
}

// WriteReset tells the client to discard transient buffers.
func (w *Writer) WriteReset() error {
	return w.writeEvent("reset", "{}")
}
