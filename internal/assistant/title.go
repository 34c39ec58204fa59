package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/abhisek/vidya/internal/llm"
)

const titleSystemPrompt = `You label student tutoring conversations. ` +
	`Produce a short descriptive title (at most six words) for the ` +
	`conversation below. Plain words only, no quotes or punctuation.`

// titleSchema constrains the title call to a single JSON field.
var titleSchema = &llm.Schema{
	Name:        "conversation-title",
	Description: "A short label for a tutoring conversation",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Short descriptive title, at most six words",
			},
		},
		"required":             []any{"title"},
		"additionalProperties": false,
	},
}

// maybeTitle fires title generation after a successful reply when the
// conversation has exactly its first user+model exchange and no title yet.
// The guard is consumed before the call, so concurrent completions never
// double-fire.
func (c *Coordinator) maybeTitle(ctx context.Context, convID string) {
	conv, err := c.session.Conversation(ctx, convID)
	if err != nil || !c.session.TitleNeeded(conv) {
		return
	}
	if !c.session.BeginTitle(convID) {
		return
	}
	c.GenerateTitle(ctx, convID)
}

// GenerateTitle asks the provider for a conversation title and writes it
// back. Failures are swallowed: the conversation simply stays untitled and
// the guard stays consumed for this session.
func (c *Coordinator) GenerateTitle(ctx context.Context, convID string) {
	conv, err := c.session.Conversation(ctx, convID)
	if err != nil || conv == nil {
		return
	}

	ctx = llm.WithPurpose(ctx, "title")
	resp, err := c.provider.Generate(ctx, llm.Request{
		System: titleSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: conv.Transcript()},
		},
		Schema:    titleSchema,
		MaxTokens: 64,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: title generation failed: %v\n", err)
		return
	}

	var out struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		fmt.Fprintf(os.Stderr, "warning: title response malformed: %v\n", err)
		return
	}
	title := strings.TrimSpace(out.Title)
	if title == "" {
		return
	}
	if err := c.session.SetTitle(ctx, convID, title); err != nil {
		fmt.Fprintf(os.Stderr, "warning: saving title failed: %v\n", err)
		return
	}
	c.events <- Event{ConvID: convID, Kind: EventTitle, Text: title}
}
