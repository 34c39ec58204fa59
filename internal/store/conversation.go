package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/vidya/internal/chat"
)

// ConversationRepo implements chat.ConversationRepo on SQLite. Messages are
// stored as a JSON column; the (class, pinned, created_at) index serves the
// per-class listing.
type ConversationRepo struct {
	db *sql.DB
}

var _ chat.ConversationRepo = (*ConversationRepo)(nil)

// Add persists a new conversation. Missing id and creation time are stamped
// here so every stored record carries both.
func (r *ConversationRepo) Add(ctx context.Context, conv *chat.Conversation) (*chat.Conversation, error) {
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	if conv.ID == "" {
		conv.ID = chat.NewConversationID(conv.CreatedAt)
	}

	msgs, err := marshalMessages(conv.Messages)
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO conversations (id, class, title, pinned, created_at, messages)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		conv.ID, int(conv.Class), conv.Title, boolToInt(conv.Pinned),
		conv.CreatedAt.UnixMilli(), msgs)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return conv, nil
}

// Update overwrites the record with the same id. Idempotent; updating an
// absent id is a no-op.
func (r *ConversationRepo) Update(ctx context.Context, conv *chat.Conversation) error {
	msgs, err := marshalMessages(conv.Messages)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE conversations SET class = ?, title = ?, pinned = ?, messages = ?
		 WHERE id = ?`,
		int(conv.Class), conv.Title, boolToInt(conv.Pinned), msgs, conv.ID)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	return nil
}

// Delete removes a conversation by id. No-op if absent.
func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// Get returns the conversation with the given id, or nil if absent.
func (r *ConversationRepo) Get(ctx context.Context, id string) (*chat.Conversation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, class, title, pinned, created_at, messages
		 FROM conversations WHERE id = ?`, id)

	conv, err := scanConversation(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// ListByClass returns all conversations for the class, pinned first, then
// creation time descending.
func (r *ConversationRepo) ListByClass(ctx context.Context, class chat.Class) ([]*chat.Conversation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, class, title, pinned, created_at, messages
		 FROM conversations WHERE class = ?
		 ORDER BY pinned DESC, created_at DESC`, int(class))
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []*chat.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

// Count returns the total number of stored conversations across all classes.
func (r *ConversationRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count conversations: %w", err)
	}
	return n, nil
}

func scanConversation(scan func(...any) error) (*chat.Conversation, error) {
	var (
		conv      chat.Conversation
		class     int
		pinned    int
		createdMs int64
		msgs      string
	)
	if err := scan(&conv.ID, &class, &conv.Title, &pinned, &createdMs, &msgs); err != nil {
		return nil, err
	}
	conv.Class = chat.Class(class)
	conv.Pinned = pinned != 0
	conv.CreatedAt = time.UnixMilli(createdMs)
	if err := json.Unmarshal([]byte(msgs), &conv.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return &conv, nil
}

func marshalMessages(msgs []chat.Message) (string, error) {
	if msgs == nil {
		msgs = []chat.Message{}
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		return "", fmt.Errorf("encode messages: %w", err)
	}
	return string(b), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
