// Package welcome shows the startup splash and the class picker. Picking a
// class selects it on the session and hands over to the chat screen.
package welcome

import (
	"context"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vidya/internal/chat"
	"github.com/abhisek/vidya/internal/router"
	"github.com/abhisek/vidya/internal/screen"
	"github.com/abhisek/vidya/internal/ui/components"
	"github.com/abhisek/vidya/internal/ui/layout"
	"github.com/abhisek/vidya/internal/ui/theme"
)

const (
	tickInterval = 100 * time.Millisecond
	splashDur    = 1200 * time.Millisecond
)

type tickMsg time.Time

type rememberedClassMsg struct {
	Class chat.Class
}

type classChosenMsg struct {
	Err error
}

// WelcomeScreen shows a splash, then the class picker.
type WelcomeScreen struct {
	session     *chat.Session
	chatFactory func() screen.Screen

	elapsed time.Duration
	picking bool
	menu    components.Menu
	errMsg  string
}

var _ screen.Screen = (*WelcomeScreen)(nil)
var _ screen.KeyHintProvider = (*WelcomeScreen)(nil)

// New creates a WelcomeScreen. chatFactory builds the chat screen entered
// after a class is picked.
func New(session *chat.Session, chatFactory func() screen.Screen) *WelcomeScreen {
	w := &WelcomeScreen{
		session:     session,
		chatFactory: chatFactory,
	}
	w.menu = w.buildMenu(0)
	return w
}

func (w *WelcomeScreen) buildMenu(remembered chat.Class) components.Menu {
	items := make([]components.MenuItem, len(chat.AllClasses))
	for i, class := range chat.AllClasses {
		items[i] = components.MenuItem{
			Label:  class.Label(),
			Action: w.selectClass(class),
		}
	}
	menu := components.NewMenu(items)
	for i, class := range chat.AllClasses {
		if class == remembered {
			menu.Selected = i
		}
	}
	return menu
}

func (w *WelcomeScreen) selectClass(class chat.Class) func() tea.Cmd {
	return func() tea.Cmd {
		return func() tea.Msg {
			if _, err := w.session.SelectClass(context.Background(), class); err != nil {
				return classChosenMsg{Err: err}
			}
			return classChosenMsg{}
		}
	}
}

func (w *WelcomeScreen) Title() string {
	if w.picking {
		return "Choose your class"
	}
	return ""
}

func (w *WelcomeScreen) KeyHints() []layout.KeyHint {
	if !w.picking {
		return []layout.KeyHint{{Key: "any key", Description: "Continue"}}
	}
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (w *WelcomeScreen) Init() tea.Cmd {
	return tea.Batch(
		tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) }),
		func() tea.Msg {
			class, err := w.session.Load(context.Background())
			if err != nil {
				return rememberedClassMsg{}
			}
			return rememberedClassMsg{Class: class}
		},
	)
}

func (w *WelcomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		w.elapsed += tickInterval
		if w.elapsed >= splashDur {
			w.picking = true
			return w, nil
		}
		return w, tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })

	case rememberedClassMsg:
		if msg.Class.Valid() {
			w.menu = w.buildMenu(msg.Class)
		}
		return w, nil

	case classChosenMsg:
		if msg.Err != nil {
			w.errMsg = msg.Err.Error()
			return w, nil
		}
		chatScreen := w.chatFactory()
		return w, func() tea.Msg { return router.ReplaceScreenMsg{Screen: chatScreen} }

	case tea.KeyMsg:
		if !w.picking {
			// Skip the splash.
			w.picking = true
			return w, nil
		}
		var cmd tea.Cmd
		w.menu, cmd = w.menu.Update(msg)
		return w, cmd
	}

	return w, nil
}

func (w *WelcomeScreen) View(width, height int) string {
	var sections []string

	sections = append(sections, RenderBanner(width))
	sections = append(sections, "")

	tagline := lipgloss.NewStyle().
		Foreground(theme.Text).
		Bold(true).
		Render("Your AI study companion")
	sections = append(sections, tagline)
	sections = append(sections, "")

	if w.picking {
		prompt := theme.Subtitle.Render("Which class are you in?")
		sections = append(sections, prompt, "", w.menu.View())
		if w.errMsg != "" {
			sections = append(sections, theme.Incorrect.Render(w.errMsg))
		}
	} else {
		hint := theme.Hint.Render("press any key to continue")
		sections = append(sections, hint)
	}

	content := strings.Join(sections, "\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
