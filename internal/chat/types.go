package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the message sender role.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Source is a web citation attached to a grounded model answer.
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// Message is a single turn in a conversation. A model message starts
// empty (a placeholder) and is mutated in place while a response streams;
// once finalized it is never touched again.
type Message struct {
	Role    Role     `json:"role"`
	Text    string   `json:"text"`
	Image   string   `json:"image,omitempty"` // data URL
	Sources []Source `json:"sources,omitempty"`
}

// Conversation is a named, ordered message sequence scoped to one class.
type Conversation struct {
	ID        string    `json:"id"`
	Class     Class     `json:"class"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	Pinned    bool      `json:"pinned,omitempty"`
}

// NewConversationID mints a conversation id. The unix-millisecond prefix
// keeps creation time derivable from the id alone.
func NewConversationID(now time.Time) string {
	suffix := strings.SplitN(uuid.New().String(), "-", 2)[0]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}

// CreatedAtFromID recovers the creation time from an id whose prefix is a
// unix-millisecond timestamp. ok is false when the id has no such prefix.
func CreatedAtFromID(id string) (t time.Time, ok bool) {
	head, _, _ := strings.Cut(id, "-")
	ms, err := strconv.ParseInt(head, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// LastMessage returns the final message, or nil for an empty conversation.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// HasPendingPlaceholder reports whether the conversation ends in an empty
// model message awaiting streamed content.
func (c *Conversation) HasPendingPlaceholder() bool {
	last := c.LastMessage()
	return last != nil && last.Role == RoleModel && last.Text == ""
}

// Transcript renders the conversation as plain text, one "role: text" line
// per message. Used as input to the summary and title generators.
func (c *Conversation) Transcript() string {
	var b strings.Builder
	for _, m := range c.Messages {
		if m.Text == "" {
			continue
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Text)
		b.WriteString("\n")
	}
	return b.String()
}
