package generate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind identifies a stream transport event.
type EventKind string

const (
	// EventContent carries one text delta.
	EventContent EventKind = "content"
	// EventDone terminates a successful (possibly partial) generation.
	EventDone EventKind = "done"
	// EventError terminates a failed generation.
	EventError EventKind = "error"
	// EventReset tells the client to clear transient buffers after an
	// abort. Never the last event of a session.
	EventReset EventKind = "reset"
)

// Event is one frame on a session's transport. A done or error event is
// always the last event for its session.
type Event struct {
	Kind      EventKind
	Delta     string    // content only
	Reason    string    // error only, safe to show to the user
	MessageID uuid.UUID // done only, zero when persistence failed
}

// eventBuffer bounds how far the transport can run ahead of a slow
// consumer before content deltas are dropped.
const eventBuffer = 1024

// Session is the ephemeral state of one in-flight generation. It is
// created by the Orchestrator and destroyed by its finalize step.
type Session struct {
	ID             uuid.UUID
	ConversationID uuid.UUID

	events chan Event
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once

	mu  sync.Mutex
	buf strings.Builder
}

func newSession(conversationID uuid.UUID, cancel context.CancelFunc) *Session {
	return &Session{
		ID:             uuid.New(),
		ConversationID: conversationID,
		events:         make(chan Event, eventBuffer),
		done:           make(chan struct{}),
		cancel:         cancel,
	}
}

// Events returns the session's transport. The channel is closed after
// the terminal done or error event.
func (s *Session) Events() <-chan Event { return s.events }

// Done is closed once the session has finalized, including persistence.
func (s *Session) Done() <-chan struct{} { return s.done }

// Cancel requests cooperative cancellation. The session still runs its
// finalize step, persisting whatever was accumulated.
func (s *Session) Cancel() { s.cancel() }

func (s *Session) append(delta string) {
	s.mu.Lock()
	s.buf.WriteString(delta)
	s.mu.Unlock()
}

func (s *Session) text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// emit forwards an event without blocking the read loop. Content deltas
// to a consumer that has fallen a full buffer behind are dropped; the
// accumulated buffer, not the transport, is the source of truth for
// persistence. Terminal events wait briefly for the consumer.
func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
		return
	default:
	}
	if ev.Kind == EventContent {
		return
	}
	select {
	case s.events <- ev:
	case <-time.After(time.Second):
	}
}
