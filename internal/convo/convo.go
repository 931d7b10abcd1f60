// Package convo holds conversations and their messages. Conversations
// are created only by explicit user action, never as a side effect of
// typing or sending.
package convo

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/inkvoice/inkvoice/internal/provider"
)

var (
	ErrNotFound     = errors.New("conversation not found")
	ErrEmptyContent = errors.New("message content must not be empty")
)

// maxTitleRunes bounds auto-derived conversation titles.
const maxTitleRunes = 50

// Conversation groups an ordered sequence of messages for one owner.
type Conversation struct {
	ID        uuid.UUID
	OwnerID   string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one turn in a conversation. Messages are totally ordered
// by their sequence number within a conversation.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Seq            int
	Role           provider.Role
	Content        string
	Model          string
	VoiceProfileID *uuid.UUID
	CreatedAt      time.Time
}

// Store persists conversations and messages.
type Store interface {
	CreateConversation(ctx context.Context, owner, title string) (Conversation, error)
	Conversation(ctx context.Context, id uuid.UUID) (Conversation, error)
	ListConversations(ctx context.Context, owner string) ([]Conversation, error)
	DeleteConversation(ctx context.Context, id uuid.UUID) error
	SetTitle(ctx context.Context, id uuid.UUID, title string) error

	// AppendMessage assigns the next sequence number and persists the
	// message. It rejects empty content with ErrEmptyContent.
	AppendMessage(ctx context.Context, msg Message) (Message, error)
	Messages(ctx context.Context, conversationID uuid.UUID) ([]Message, error)
}

// TitleFromText derives a conversation title from the first user turn,
// truncated to a word boundary.
func TitleFromText(text string) string {
	title := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(title) <= maxTitleRunes {
		return title
	}
	runes := []rune(title)
	cut := maxTitleRunes
	for i := maxTitleRunes - 1; i > 0; i-- {
		if runes[i] == ' ' {
			cut = i
			break
		}
	}
	return string(runes[:cut]) + "…"
}
