// Package history lists the active class's conversations: open, pin, delete,
// or start a new one.
package history

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vidya/internal/chat"
	"github.com/abhisek/vidya/internal/router"
	"github.com/abhisek/vidya/internal/screen"
	"github.com/abhisek/vidya/internal/ui/layout"
	"github.com/abhisek/vidya/internal/ui/theme"
)

type listLoadedMsg struct {
	Convs []*chat.Conversation
	Err   error
}

type actionDoneMsg struct {
	Err error
	Pop bool
}

// HistoryScreen displays the conversation list for the active class.
type HistoryScreen struct {
	session  *chat.Session
	convs    []*chat.Conversation
	selected int
	loaded   bool
	errMsg   string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a new HistoryScreen.
func New(session *chat.Session) *HistoryScreen {
	return &HistoryScreen{session: session}
}

func (s *HistoryScreen) Init() tea.Cmd {
	return s.load()
}

func (s *HistoryScreen) load() tea.Cmd {
	return func() tea.Msg {
		convs, err := s.session.List(context.Background())
		return listLoadedMsg{Convs: convs, Err: err}
	}
}

func (s *HistoryScreen) Title() string {
	return "Chats"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Open"},
		{Key: "P", Description: "Pin"},
		{Key: "D", Description: "Delete"},
		{Key: "N", Description: "New"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case listLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.convs = msg.Convs
			if s.selected >= len(s.convs) {
				s.selected = len(s.convs) - 1
			}
			if s.selected < 0 {
				s.selected = 0
			}
		}
		s.loaded = true
		return s, nil

	case actionDoneMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
			return s, nil
		}
		if msg.Pop {
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
		return s, s.load()

	case tea.KeyMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *HistoryScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if s.selected > 0 {
			s.selected--
		}
		return s, nil

	case "down", "j":
		if s.selected < len(s.convs)-1 {
			s.selected++
		}
		return s, nil

	case "enter":
		if conv := s.current(); conv != nil {
			id := conv.ID
			return s, func() tea.Msg {
				_, err := s.session.SelectConversation(context.Background(), id)
				return actionDoneMsg{Err: err, Pop: true}
			}
		}
		return s, nil

	case "p":
		if conv := s.current(); conv != nil {
			id := conv.ID
			return s, func() tea.Msg {
				return actionDoneMsg{Err: s.session.TogglePin(context.Background(), id)}
			}
		}
		return s, nil

	case "d":
		if conv := s.current(); conv != nil {
			id := conv.ID
			return s, func() tea.Msg {
				_, err := s.session.DeleteConversation(context.Background(), id)
				return actionDoneMsg{Err: err}
			}
		}
		return s, nil

	case "n":
		class := s.session.ActiveClass()
		return s, func() tea.Msg {
			_, err := s.session.NewConversation(context.Background(), class)
			return actionDoneMsg{Err: err, Pop: true}
		}
	}
	return s, nil
}

func (s *HistoryScreen) current() *chat.Conversation {
	if s.selected < 0 || s.selected >= len(s.convs) {
		return nil
	}
	return s.convs[s.selected]
}

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render("\n\nError: " + s.errMsg)
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading chats...")
	}
	if len(s.convs) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No chats yet. Press N to start one.")
	}

	activeID := s.session.ActiveID()

	var b strings.Builder
	b.WriteString("\n")
	for i, conv := range s.convs {
		title := conv.Title
		if title == "" {
			title = "Untitled chat"
		}

		pin := "  "
		if conv.Pinned {
			pin = "📌"
		}
		open := " "
		if conv.ID == activeID {
			open = "•"
		}

		prefix := "  "
		if i == s.selected {
			prefix = "> "
		}

		line := fmt.Sprintf("%s%s %s %-40s %s  %d msgs",
			prefix, open, pin, truncate(title, 40),
			conv.CreatedAt.Format("Jan 02 15:04"), len(conv.Messages))

		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			style = style.Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
