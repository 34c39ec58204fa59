// Package chat implements the main conversation screen: message history,
// the input line, and the streaming indicator.
package chat

import (
	"context"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/vidya/internal/assistant"
	chatpkg "github.com/abhisek/vidya/internal/chat"
	"github.com/abhisek/vidya/internal/llm"
	"github.com/abhisek/vidya/internal/router"
	"github.com/abhisek/vidya/internal/screen"
	"github.com/abhisek/vidya/internal/screens/history"
	"github.com/abhisek/vidya/internal/screens/quiz"
	"github.com/abhisek/vidya/internal/ui/components"
	"github.com/abhisek/vidya/internal/ui/layout"
)

// ChatScreen is the conversation view for the active class.
type ChatScreen struct {
	session       *chatpkg.Session
	coord         *assistant.Coordinator
	provider      llm.Provider
	pickerFactory func() screen.Screen

	input      components.TextInput
	conv       *chatpkg.Conversation
	scroll     int // lines scrolled up from the bottom; 0 follows the tail
	attachMode bool
	draft      string // chat draft stashed while attachMode repurposes the input
	notice     string
	errMsg     string
}

var _ screen.Screen = (*ChatScreen)(nil)
var _ screen.KeyHintProvider = (*ChatScreen)(nil)

// New creates the chat screen. pickerFactory builds the class picker shown
// when the student wants to switch class.
func New(session *chatpkg.Session, coord *assistant.Coordinator, provider llm.Provider, pickerFactory func() screen.Screen) *ChatScreen {
	return &ChatScreen{
		session:       session,
		coord:         coord,
		provider:      provider,
		pickerFactory: pickerFactory,
		input:         components.NewTextInput("Ask me anything about your subjects...", 0),
	}
}

func (s *ChatScreen) Title() string {
	if s.conv != nil && s.conv.Title != "" {
		return s.conv.Title
	}
	return "New chat"
}

func (s *ChatScreen) KeyHints() []layout.KeyHint {
	if s.attachMode {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Attach"},
			{Key: "Esc", Description: "Cancel"},
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Send"},
		{Key: "^N", Description: "New"},
		{Key: "^H", Description: "History"},
		{Key: "^Q", Description: "Quiz"},
		{Key: "^S", Description: "Summary"},
		{Key: "^G", Description: "Search"},
		{Key: "^A", Description: "Image"},
		{Key: "Esc", Description: "Class"},
	}
}

func (s *ChatScreen) Init() tea.Cmd {
	return tea.Batch(s.loadActive(), s.input.Init())
}

// loadActive fetches the open conversation for rendering.
func (s *ChatScreen) loadActive() tea.Cmd {
	return func() tea.Msg {
		conv, err := s.session.Active(context.Background())
		return convLoadedMsg{Conv: conv, Err: err}
	}
}

func (s *ChatScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case convLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		s.conv = msg.Conv
		s.errMsg = ""
		return s, nil

	case router.ActivatedMsg:
		// A screen above us (history, quiz) may have changed the active
		// conversation or appended messages.
		s.scroll = 0
		return s, s.loadActive()

	case AssistantEventMsg:
		return s.handleEvent(msg.Event)

	case sendFinishedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		}
		return s, nil

	case imageAttachedMsg:
		if msg.Err != nil {
			s.notice = "Could not attach image: " + msg.Err.Error()
		} else {
			s.notice = "Image attached: " + msg.Path + " (web search off)"
		}
		return s, nil

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

// handleEvent applies a coordinator event. Only events for the conversation
// on screen change the view; background completions for other conversations
// were already persisted by the coordinator.
func (s *ChatScreen) handleEvent(ev assistant.Event) (screen.Screen, tea.Cmd) {
	if s.conv == nil || ev.ConvID != s.conv.ID {
		return s, nil
	}

	switch ev.Kind {
	case assistant.EventChunk:
		s.patchLast(ev.Text, nil)
		return s, nil
	case assistant.EventDone, assistant.EventFailed:
		s.patchLast(ev.Text, ev.Sources)
		// Reload to pick up anything persisted alongside the final text.
		return s, s.loadActive()
	case assistant.EventTitle:
		s.conv.Title = ev.Text
		return s, nil
	}
	return s, nil
}

// patchLast rewrites the trailing model message in the local copy so chunk
// events render without a database round trip.
func (s *ChatScreen) patchLast(text string, sources []chatpkg.Source) {
	last := s.conv.LastMessage()
	if last != nil && last.Role == chatpkg.RoleModel {
		last.Text = text
		if sources != nil {
			last.Sources = sources
		}
		return
	}
	s.conv.Messages = append(s.conv.Messages, chatpkg.Message{
		Role: chatpkg.RoleModel, Text: text, Sources: sources,
	})
}

func (s *ChatScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	if s.attachMode {
		return s.handleAttachKey(msg)
	}

	switch msg.String() {
	case "enter":
		return s.send()

	case "ctrl+n":
		return s, s.newConversation()

	case "ctrl+h":
		return s, func() tea.Msg {
			return router.PushScreenMsg{Screen: history.New(s.session)}
		}

	case "ctrl+q":
		if s.session.IsStreaming() {
			s.notice = "Wait for the current reply to finish"
			return s, nil
		}
		return s, func() tea.Msg {
			return router.PushScreenMsg{Screen: quiz.New(s.session, s.provider)}
		}

	case "ctrl+s":
		return s.summarize()

	case "ctrl+g":
		if s.session.ToggleSearch() {
			s.notice = "Web search ON (answers cite sources)"
		} else {
			s.notice = "Web search OFF"
		}
		return s, nil

	case "ctrl+a":
		s.attachMode = true
		s.draft = s.input.Value()
		s.input.Reset()
		s.input.SetPlaceholder("Path to image file...")
		return s, nil

	case "esc":
		picker := s.pickerFactory()
		return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: picker} }

	case "pgup":
		s.scroll += 5
		return s, nil

	case "pgdown":
		s.scroll -= 5
		if s.scroll < 0 {
			s.scroll = 0
		}
		return s, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *ChatScreen) handleAttachKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "esc":
		s.leaveAttachMode()
		return s, nil

	case "enter":
		path := strings.TrimSpace(s.input.Value())
		s.leaveAttachMode()
		if path == "" {
			return s, nil
		}
		return s, func() tea.Msg {
			dataURL, err := assistant.EncodeImageFile(path)
			if err != nil {
				return imageAttachedMsg{Path: path, Err: err}
			}
			s.session.SetPendingImage(dataURL)
			return imageAttachedMsg{Path: path}
		}
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *ChatScreen) leaveAttachMode() {
	s.attachMode = false
	s.input.Reset()
	s.input.SetPlaceholder("Ask me anything about your subjects...")
	if s.draft != "" {
		s.input.Model.SetValue(s.draft)
		s.draft = ""
	}
}

// send issues the chat turn. The conversation id is captured here, before
// the request starts, so the reply lands in this conversation even if the
// student switches away mid-stream.
func (s *ChatScreen) send() (screen.Screen, tea.Cmd) {
	text := strings.TrimSpace(s.input.Value())
	if text == "" || s.conv == nil {
		return s, nil
	}
	if s.session.IsStreaming() {
		s.notice = "Wait for the current reply to finish"
		return s, nil
	}

	in := assistant.SendInput{
		ConvID:       s.conv.ID,
		Text:         text,
		ImageDataURL: s.session.TakePendingImage(),
		Search:       s.session.SearchEnabled(),
	}

	s.input.Reset()
	s.notice = ""
	s.scroll = 0

	// Show the user message immediately; the coordinator persists it.
	s.conv.Messages = append(s.conv.Messages,
		chatpkg.Message{Role: chatpkg.RoleUser, Text: in.Text, Image: in.ImageDataURL},
		chatpkg.Message{Role: chatpkg.RoleModel},
	)

	return s, func() tea.Msg {
		return sendFinishedMsg{Err: s.coord.Send(context.Background(), in)}
	}
}

func (s *ChatScreen) summarize() (screen.Screen, tea.Cmd) {
	if s.conv == nil || len(s.conv.Messages) == 0 {
		s.notice = "Nothing to summarize yet"
		return s, nil
	}
	if s.session.IsStreaming() {
		s.notice = "Wait for the current reply to finish"
		return s, nil
	}

	convID := s.conv.ID
	s.conv.Messages = append(s.conv.Messages, chatpkg.Message{Role: chatpkg.RoleModel})
	s.scroll = 0

	return s, func() tea.Msg {
		return sendFinishedMsg{Err: s.coord.Summarize(context.Background(), convID)}
	}
}

func (s *ChatScreen) newConversation() tea.Cmd {
	class := s.session.ActiveClass()
	return func() tea.Msg {
		conv, err := s.session.NewConversation(context.Background(), class)
		return convLoadedMsg{Conv: conv, Err: err}
	}
}
