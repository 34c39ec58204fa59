package chat

import "context"

// ConversationRepo is durable storage for conversations, keyed by id with a
// secondary ordering by class. Implemented by internal/store.
type ConversationRepo interface {
	// Add persists a new conversation and returns the stored record.
	Add(ctx context.Context, conv *Conversation) (*Conversation, error)

	// Update overwrites the record with the same id. Idempotent.
	Update(ctx context.Context, conv *Conversation) error

	// Delete removes a conversation by id. No-op if absent.
	Delete(ctx context.Context, id string) error

	// Get returns the conversation with the given id, or nil if absent.
	Get(ctx context.Context, id string) (*Conversation, error)

	// ListByClass returns all conversations for the class, pinned first,
	// then creation time descending.
	ListByClass(ctx context.Context, class Class) ([]*Conversation, error)

	// Count returns the total number of stored conversations.
	Count(ctx context.Context) (int, error)
}

// PrefsRepo is scalar key-value storage for small session preferences
// (active class, per-class active conversation id, schema version).
type PrefsRepo interface {
	// GetPref returns the value for key, or "" if unset.
	GetPref(ctx context.Context, key string) (string, error)

	// SetPref stores the value for key, overwriting any previous value.
	SetPref(ctx context.Context, key string, value string) error

	// DeletePref removes key. No-op if absent.
	DeletePref(ctx context.Context, key string) error
}
