package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/abhisek/vidya/internal/chat"
)

// Memory is a non-durable fallback used when the SQLite store cannot be
// opened. The app stays usable for the session; nothing survives exit.
type Memory struct {
	mu    sync.Mutex
	convs map[string]*chat.Conversation
	prefs map[string]string
}

var (
	_ chat.ConversationRepo = (*Memory)(nil)
	_ chat.PrefsRepo        = (*Memory)(nil)
)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		convs: make(map[string]*chat.Conversation),
		prefs: make(map[string]string),
	}
}

func (m *Memory) Add(_ context.Context, conv *chat.Conversation) (*chat.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	if conv.ID == "" {
		conv.ID = chat.NewConversationID(conv.CreatedAt)
	}
	m.convs[conv.ID] = cloneConv(conv)
	return conv, nil
}

func (m *Memory) Update(_ context.Context, conv *chat.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.convs[conv.ID]; ok {
		m.convs[conv.ID] = cloneConv(conv)
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.convs, id)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*chat.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.convs[id]
	if !ok {
		return nil, nil
	}
	return cloneConv(conv), nil
}

func (m *Memory) ListByClass(_ context.Context, class chat.Class) ([]*chat.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*chat.Conversation
	for _, c := range m.convs {
		if c.Class == class {
			out = append(out, cloneConv(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.convs), nil
}

func (m *Memory) GetPref(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs[key], nil
}

func (m *Memory) SetPref(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[key] = value
	return nil
}

func (m *Memory) DeletePref(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.prefs, key)
	return nil
}

// cloneConv copies a conversation so callers never share message slices
// with the stored record.
func cloneConv(c *chat.Conversation) *chat.Conversation {
	cp := *c
	cp.Messages = append([]chat.Message(nil), c.Messages...)
	return &cp
}
