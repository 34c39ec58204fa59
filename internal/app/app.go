// Package app assembles the TUI: screen stack, header/footer chrome, and
// the coordinator event pump.
package app

import (
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vidya/internal/assistant"
	"github.com/abhisek/vidya/internal/chat"
	"github.com/abhisek/vidya/internal/llm"
	"github.com/abhisek/vidya/internal/router"
	"github.com/abhisek/vidya/internal/screen"
	chatscreen "github.com/abhisek/vidya/internal/screens/chat"
	"github.com/abhisek/vidya/internal/screens/welcome"
	"github.com/abhisek/vidya/internal/ui/layout"
	"github.com/abhisek/vidya/internal/ui/theme"
)

// Options carries the app's injected dependencies.
type Options struct {
	Session     *chat.Session
	Coordinator *assistant.Coordinator
	Provider    llm.Provider

	// Notice is a one-time startup message, like the degraded-storage
	// warning. Cleared on the first key press.
	Notice string
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	opts   Options
	router *router.Router
	width  int
	height int
	notice string
}

// newAppModel builds the screen graph. The welcome (class picker) screen and
// the chat screen create each other through factories, so the packages stay
// decoupled.
func newAppModel(opts Options) AppModel {
	var chatFactory func() screen.Screen
	pickerFactory := func() screen.Screen {
		return welcome.New(opts.Session, chatFactory)
	}
	chatFactory = func() screen.Screen {
		return chatscreen.New(opts.Session, opts.Coordinator, opts.Provider, pickerFactory)
	}

	return AppModel{
		opts:   opts,
		router: router.New(pickerFactory()),
		notice: opts.Notice,
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.router.Active().Init(), m.listenEvents())
}

// listenEvents pumps coordinator events into the update loop. It lives at
// the app level so a reply streaming in the background keeps flowing while
// the student is on another screen.
func (m AppModel) listenEvents() tea.Cmd {
	events := m.opts.Coordinator.Events()
	return func() tea.Msg {
		return chatscreen.AssistantEventMsg{Event: <-events}
	}
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case chatscreen.AssistantEventMsg:
		cmd := m.router.Update(msg)
		return m, tea.Batch(cmd, m.listenEvents())

	case tea.KeyMsg:
		m.notice = ""
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	classLabel := ""
	if class := m.opts.Session.ActiveClass(); class.Valid() {
		classLabel = class.Label()
	}

	header := layout.RenderHeader(title, classLabel, m.width)
	if m.notice != "" {
		header += "\n" + theme.Hint.Render("  "+m.notice)
	}

	footer := layout.RenderFooter(m.footerHints(active), m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

func (m AppModel) footerHints(active screen.Screen) []layout.KeyHint {
	if hinter, ok := active.(screen.KeyHintProvider); ok {
		if hints := hinter.KeyHints(); len(hints) > 0 {
			return hints
		}
	}
	if m.router.Depth() > 1 {
		return []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	p := tea.NewProgram(newAppModel(opts))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
