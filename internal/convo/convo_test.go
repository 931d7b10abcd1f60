package convo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/inkvoice/inkvoice/internal/provider"
)

func TestTitleFromText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "Hello there", "Hello there"},
		{"collapses whitespace", "  Hello\n\tthere  ", "Hello there"},
		{"empty", "", ""},
		{
			"truncates at word boundary",
			"This is a rather long first message that certainly exceeds the title limit",
			"This is a rather long first message that…",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := TitleFromText(tt.in)
			if got != tt.want {
				t.Errorf("TitleFromText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTitleFromText_Bound(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 40)
	got := TitleFromText(long)
	if n := utf8.RuneCountInString(got); n > maxTitleRunes+1 {
		t.Errorf("title length = %d runes, want <= %d plus ellipsis", n, maxTitleRunes)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated title %q should end with ellipsis", got)
	}
}

func TestMemoryStore_AppendOrdering(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	c, err := s.CreateConversation(ctx, "owner-1", "test")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	for _, content := range []string{"first", "second", "third"} {
		if _, err := s.AppendMessage(ctx, Message{
			ConversationID: c.ID,
			Role:           provider.RoleUser,
			Content:        content,
		}); err != nil {
			t.Fatalf("AppendMessage(%q) error = %v", content, err)
		}
	}

	msgs, err := s.Messages(ctx, c.ID)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len(msgs) = %d, want 3", len(msgs))
	}
	for i, m := range msgs {
		if m.Seq != i+1 {
			t.Errorf("msgs[%d].Seq = %d, want %d", i, m.Seq, i+1)
		}
	}
	if msgs[0].Content != "first" || msgs[2].Content != "third" {
		t.Errorf("messages out of order: %v", msgs)
	}
}

func TestMemoryStore_RejectsEmptyContent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	c, _ := s.CreateConversation(ctx, "owner-1", "")

	_, err := s.AppendMessage(ctx, Message{ConversationID: c.ID, Role: provider.RoleAssistant})
	if !errors.Is(err, ErrEmptyContent) {
		t.Errorf("AppendMessage(empty) error = %v, want ErrEmptyContent", err)
	}
}

func TestMemoryStore_UnknownConversation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.AppendMessage(ctx, Message{ConversationID: uuid.New(), Content: "hi"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendMessage(unknown) error = %v, want ErrNotFound", err)
	}
	_, err = s.Messages(ctx, uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Messages(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_ListByOwner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	s.CreateConversation(ctx, "alice", "a1")
	s.CreateConversation(ctx, "alice", "a2")
	s.CreateConversation(ctx, "bob", "b1")

	list, err := s.ListConversations(ctx, "alice")
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("len(list) = %d, want 2", len(list))
	}
	for _, c := range list {
		if c.OwnerID != "alice" {
			t.Errorf("listed conversation owned by %q, want alice", c.OwnerID)
		}
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	c, _ := s.CreateConversation(ctx, "owner-1", "doomed")
	s.AppendMessage(ctx, Message{ConversationID: c.ID, Role: provider.RoleUser, Content: "hi"})

	if err := s.DeleteConversation(ctx, c.ID); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}
	if _, err := s.Conversation(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Conversation(deleted) error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteConversation(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteConversation(again) error = %v, want ErrNotFound", err)
	}
}
