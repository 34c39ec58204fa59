// Package assistant drives LLM requests for the chat screen: streamed tutor
// replies, grounded search answers, conversation titles, and summaries.
// Every update is addressed to the conversation id captured when the request
// was issued, so a reply keeps landing in its own conversation even after the
// user navigates elsewhere.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/vidya/internal/chat"
	"github.com/abhisek/vidya/internal/llm"
)

const (
	chatMaxTokens   = 4096
	chatTemperature = 0.7
)

// EventKind classifies coordinator events.
type EventKind int

const (
	// EventChunk signals new streamed text was applied to the conversation.
	EventChunk EventKind = iota
	// EventDone signals the reply is finalized and persisted.
	EventDone
	// EventFailed signals the placeholder was replaced with an error message.
	EventFailed
	// EventTitle signals a generated title was written to the conversation.
	EventTitle
)

// Event notifies the UI that a conversation changed. Text carries the full
// accumulated reply so far (not the delta) for chunk events, the final reply
// for done events, and the new title for title events.
type Event struct {
	ConvID  string
	Kind    EventKind
	Text    string
	Sources []chat.Source
	Err     error
}

// SendInput is one chat turn as entered by the user.
type SendInput struct {
	ConvID       string
	Text         string
	ImageDataURL string
	Search       bool
}

// Coordinator owns the async request lifecycle. Its methods are blocking and
// meant to run inside tea.Cmd goroutines; progress reaches the UI through
// the Events channel.
type Coordinator struct {
	session  *chat.Session
	provider llm.Provider
	events   chan Event
}

// NewCoordinator wires a coordinator to the session and provider.
func NewCoordinator(session *chat.Session, provider llm.Provider) *Coordinator {
	return &Coordinator{
		session:  session,
		provider: provider,
		events:   make(chan Event, 128),
	}
}

// Events is the channel the chat screen pumps for conversation updates.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// Send runs one full chat turn: append the user message and an empty model
// placeholder, call the provider, and fill the placeholder incrementally
// (streamed) or at once (grounded search). Errors replace the placeholder
// with an apologetic message instead of propagating; the returned error is
// reserved for storage failures before the request even started.
func (c *Coordinator) Send(ctx context.Context, in SendInput) error {
	c.session.SetStreaming(true)
	defer c.session.SetStreaming(false)

	userMsg := chat.Message{Role: chat.RoleUser, Text: in.Text, Image: in.ImageDataURL}
	if _, err := c.session.AppendMessageTo(ctx, in.ConvID, userMsg); err != nil {
		return fmt.Errorf("append user message: %w", err)
	}
	conv, err := c.session.AppendMessageTo(ctx, in.ConvID, chat.Message{Role: chat.RoleModel})
	if err != nil {
		return fmt.Errorf("append placeholder: %w", err)
	}

	req, err := c.buildRequest(conv, in)
	if err != nil {
		c.fail(ctx, in.ConvID, err)
		return nil
	}

	ctx = llm.WithPurpose(ctx, "chat")
	if in.Search {
		c.sendGrounded(ctx, in.ConvID, req)
	} else {
		c.sendStreamed(ctx, in.ConvID, req)
	}
	return nil
}

// buildRequest converts history to provider messages, excluding the trailing
// placeholder and any empty turns. The attached image rides on the request,
// not the history, so only the current turn carries it.
func (c *Coordinator) buildRequest(conv *chat.Conversation, in SendInput) (llm.Request, error) {
	req := llm.Request{
		System:      conv.Class.SystemPrompt(),
		Search:      in.Search,
		MaxTokens:   chatMaxTokens,
		Temperature: chatTemperature,
	}

	for _, m := range conv.Messages {
		if m.Text == "" {
			continue
		}
		role := llm.RoleAssistant
		if m.Role == chat.RoleUser {
			role = llm.RoleUser
		}
		req.Messages = append(req.Messages, llm.Message{Role: role, Content: m.Text})
	}

	if in.ImageDataURL != "" {
		img, err := ParseDataURL(in.ImageDataURL)
		if err != nil {
			return llm.Request{}, fmt.Errorf("decode attached image: %w", err)
		}
		req.Image = img
	}
	return req, nil
}

// sendGrounded issues a one-shot search-grounded request and applies the
// final text with its source citations in a single replace.
func (c *Coordinator) sendGrounded(ctx context.Context, convID string, req llm.Request) {
	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		c.fail(ctx, convID, err)
		return
	}

	msg := chat.Message{Role: chat.RoleModel, Text: resp.Text, Sources: convertSources(resp.Sources)}
	if _, err := c.session.ReplaceLastMessageTo(ctx, convID, msg); err != nil {
		c.fail(ctx, convID, err)
		return
	}
	c.events <- Event{ConvID: convID, Kind: EventDone, Text: resp.Text, Sources: msg.Sources}
	c.maybeTitle(ctx, convID)
}

// sendStreamed issues a streaming request. Each chunk grows the placeholder
// in place; the conversation is persisted on every chunk so a crash mid-reply
// loses at most the tail.
func (c *Coordinator) sendStreamed(ctx context.Context, convID string, req llm.Request) {
	var acc strings.Builder
	resp, err := c.provider.GenerateStream(ctx, req, func(chunk string) {
		acc.WriteString(chunk)
		text := acc.String()
		msg := chat.Message{Role: chat.RoleModel, Text: text}
		if _, uerr := c.session.ReplaceLastMessageTo(ctx, convID, msg); uerr != nil {
			return
		}
		c.events <- Event{ConvID: convID, Kind: EventChunk, Text: text}
	})
	if err != nil {
		c.fail(ctx, convID, err)
		return
	}

	final := resp.Text
	if final == "" {
		final = acc.String()
	}
	msg := chat.Message{Role: chat.RoleModel, Text: final}
	if _, err := c.session.ReplaceLastMessageTo(ctx, convID, msg); err != nil {
		c.fail(ctx, convID, err)
		return
	}
	c.events <- Event{ConvID: convID, Kind: EventDone, Text: final}
	c.maybeTitle(ctx, convID)
}

// fail replaces the placeholder with an apology embedding the reason. The
// user re-sends manually; nothing is retried here.
func (c *Coordinator) fail(ctx context.Context, convID string, cause error) {
	text := fmt.Sprintf("Sorry, something went wrong: %v", cause)
	msg := chat.Message{Role: chat.RoleModel, Text: text}
	if _, err := c.session.ReplaceLastMessageTo(ctx, convID, msg); err != nil {
		text = fmt.Sprintf("%s (and saving the error failed: %v)", text, err)
	}
	c.events <- Event{ConvID: convID, Kind: EventFailed, Text: text, Err: cause}
}

func convertSources(refs []llm.SourceRef) []chat.Source {
	if len(refs) == 0 {
		return nil
	}
	out := make([]chat.Source, len(refs))
	for i, r := range refs {
		out[i] = chat.Source{URI: r.URI, Title: r.Title}
	}
	return out
}
