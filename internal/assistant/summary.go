package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/vidya/internal/chat"
	"github.com/abhisek/vidya/internal/llm"
)

const summaryHeading = "## Summary"

const summarySystemPrompt = `You summarize student tutoring conversations. ` +
	`Write a concise study summary of the conversation: the topics covered, ` +
	`the key facts and formulas, and anything the student struggled with. ` +
	`Use short paragraphs or bullet points.`

// Summarize appends a placeholder to the conversation and streams a summary
// of the transcript into it under a fixed heading. Like Send, it is meant to
// run inside a tea.Cmd goroutine and reports progress via the Events channel.
func (c *Coordinator) Summarize(ctx context.Context, convID string) error {
	conv, err := c.session.Conversation(ctx, convID)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("conversation %s not found", convID)
	}
	transcript := conv.Transcript()
	if transcript == "" {
		return fmt.Errorf("nothing to summarize")
	}

	c.session.SetStreaming(true)
	defer c.session.SetStreaming(false)

	if _, err := c.session.AppendMessageTo(ctx, convID, chat.Message{Role: chat.RoleModel}); err != nil {
		return fmt.Errorf("append placeholder: %w", err)
	}

	req := llm.Request{
		System: summarySystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "Summarize this conversation:\n\n" + transcript},
		},
		MaxTokens:   chatMaxTokens,
		Temperature: 0.3,
	}

	ctx = llm.WithPurpose(ctx, "summary")

	var acc strings.Builder
	acc.WriteString(summaryHeading)
	acc.WriteString("\n\n")
	resp, err := c.provider.GenerateStream(ctx, req, func(chunk string) {
		acc.WriteString(chunk)
		text := acc.String()
		if _, uerr := c.session.ReplaceLastMessageTo(ctx, convID, chat.Message{Role: chat.RoleModel, Text: text}); uerr != nil {
			return
		}
		c.events <- Event{ConvID: convID, Kind: EventChunk, Text: text}
	})
	if err != nil {
		c.fail(ctx, convID, err)
		return nil
	}

	final := acc.String()
	if resp.Text != "" {
		final = summaryHeading + "\n\n" + resp.Text
	}
	if _, err := c.session.ReplaceLastMessageTo(ctx, convID, chat.Message{Role: chat.RoleModel, Text: final}); err != nil {
		c.fail(ctx, convID, err)
		return nil
	}
	c.events <- Event{ConvID: convID, Kind: EventDone, Text: final}
	return nil
}
