package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/inkvoice/inkvoice/internal/client"
)

// streamBufferSize absorbs delta bursts while the UI is mid-render.
const streamBufferSize = 100

// streamEvent is a discriminated union for all stream events. A single
// channel with a union type keeps the select logic simple.
type streamEvent struct {
	kind      client.EventKind
	text      string
	reason    string
	messageID string
	err       error // transport failure, not a server error event
}

// Bubble Tea message types for the stream lifecycle.
type streamStartedMsg struct {
	eventCh <-chan streamEvent
	cancel  context.CancelFunc
}

type streamTextMsg struct{ text string }

type streamResetMsg struct{}

type streamDoneMsg struct{ messageID string }

type streamErrorMsg struct{ reason string }

type streamClosedMsg struct{}

// refreshedMsg carries the persisted messages fetched after done.
type refreshedMsg struct {
	messages []client.Message
	err      error
}

// startStream opens the SSE stream for query and pumps its events into
// a channel the Update loop drains one message at a time.
//
// The goroutine exits when the stream delivers its terminal event, the
// transport fails, or the context is cancelled. Channel closure signals
// completion.
func (m *Model) startStream(query string) tea.Cmd {
	return func() tea.Msg {
		eventCh := make(chan streamEvent, streamBufferSize)
		ctx, cancel := context.WithCancel(m.ctx)

		go func() {
			defer close(eventCh)
			for ev, err := range m.api.Generate(ctx, m.conversationID, query, m.modelID) {
				if err != nil {
					select {
					case eventCh <- streamEvent{err: err}:
					case <-ctx.Done():
					}
					return
				}
				select {
				case eventCh <- streamEvent{
					kind:      ev.Kind,
					text:      ev.Delta,
					reason:    ev.Reason,
					messageID: ev.MessageID,
				}:
				case <-ctx.Done():
					return
				}
			}
		}()

		return streamStartedMsg{eventCh: eventCh, cancel: cancel}
	}
}

// listenForStream waits for the next stream event.
func listenForStream(eventCh <-chan streamEvent) tea.Cmd {
	return func() tea.Msg {
		if eventCh == nil {
			return nil
		}
		ev, ok := <-eventCh
		if !ok {
			return streamClosedMsg{}
		}
		switch {
		case ev.err != nil:
			return streamErrorMsg{reason: ev.err.Error()}
		case ev.kind == client.EventContent:
			return streamTextMsg{text: ev.text}
		case ev.kind == client.EventReset:
			return streamResetMsg{}
		case ev.kind == client.EventDone:
			return streamDoneMsg{messageID: ev.messageID}
		case ev.kind == client.EventError:
			return streamErrorMsg{reason: ev.reason}
		default:
			return streamClosedMsg{}
		}
	}
}

// fetchMessages reloads the conversation's persisted messages. Run on
// done so the transient typing buffer is replaced by server truth.
func (m *Model) fetchMessages() tea.Cmd {
	return func() tea.Msg {
		msgs, err := m.api.Messages(m.ctx, m.conversationID)
		return refreshedMsg{messages: msgs, err: err}
	}
}

// sendStop asks the server to finalize the in-flight generation.
func (m *Model) sendStop() tea.Cmd {
	api, ctx, id := m.api, m.ctx, m.conversationID
	return func() tea.Msg {
		_, _ = api.Stop(ctx, id)
		return nil
	}
}
