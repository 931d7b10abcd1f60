package convo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkvoice/inkvoice/internal/provider"
)

// Postgres is the PostgreSQL implementation of Store.
//
// Safe for concurrent use by multiple goroutines.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ Store = (*Postgres)(nil)

func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, logger: logger}
}

func (s *Postgres) CreateConversation(ctx context.Context, owner, title string) (Conversation, error) {
	c := Conversation{ID: uuid.New(), OwnerID: owner, Title: title}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, owner_id, title)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		c.ID, owner, title)
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return Conversation{}, fmt.Errorf("creating conversation: %w", err)
	}

	s.logger.Debug("created conversation", "id", c.ID, "owner", owner)
	return c, nil
}

func (s *Postgres) Conversation(ctx context.Context, id uuid.UUID) (Conversation, error) {
	var c Conversation
	row := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, title, created_at, updated_at
		FROM conversations WHERE id = $1`, id)
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("getting conversation %s: %w", id, err)
	}
	return c, nil
}

func (s *Postgres) ListConversations(ctx context.Context, owner string) ([]Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, title, created_at, updated_at
		FROM conversations
		WHERE owner_id = $1
		ORDER BY updated_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Postgres) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) SetTitle(ctx context.Context, id uuid.UUID, title string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE conversations SET title = $2, updated_at = now()
		WHERE id = $1`, id, title)
	if err != nil {
		return fmt.Errorf("setting title on %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage implements Store. The conversation row is locked for
// the duration of the transaction so sequence numbers stay dense under
// concurrent writers.
func (s *Postgres) AppendMessage(ctx context.Context, msg Message) (Message, error) {
	if msg.Content == "" {
		return Message{}, ErrEmptyContent
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT true FROM conversations WHERE id = $1 FOR UPDATE`,
		msg.ConversationID).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, ErrNotFound
		}
		return Message{}, fmt.Errorf("locking conversation %s: %w", msg.ConversationID, err)
	}

	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE conversation_id = $1`,
		msg.ConversationID).Scan(&msg.Seq); err != nil {
		return Message{}, fmt.Errorf("computing next sequence: %w", err)
	}

	msg.ID = uuid.New()
	row := tx.QueryRow(ctx, `
		INSERT INTO messages (id, conversation_id, seq, role, content, model, voice_profile_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
		RETURNING created_at`,
		msg.ID, msg.ConversationID, msg.Seq, string(msg.Role), msg.Content, msg.Model, msg.VoiceProfileID)
	if err := row.Scan(&msg.CreatedAt); err != nil {
		return Message{}, fmt.Errorf("inserting message: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE conversations SET updated_at = now() WHERE id = $1`,
		msg.ConversationID); err != nil {
		return Message{}, fmt.Errorf("touching conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Message{}, fmt.Errorf("committing message: %w", err)
	}
	return msg, nil
}

func (s *Postgres) Messages(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, seq, role, COALESCE(content, ''), COALESCE(model, ''), voice_profile_id, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY seq`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var role string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Seq, &role, &m.Content, &m.Model, &m.VoiceProfileID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Role = provider.Role(role)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if out == nil {
		// Distinguish an empty conversation from a missing one.
		if _, err := s.Conversation(ctx, conversationID); err != nil {
			return nil, err
		}
	}
	return out, nil
}
