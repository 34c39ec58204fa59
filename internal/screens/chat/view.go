package chat

import (
	"strings"

	"charm.land/lipgloss/v2"

	chatpkg "github.com/abhisek/vidya/internal/chat"
	"github.com/abhisek/vidya/internal/ui/theme"
)

func (s *ChatScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render("\n\nError: " + s.errMsg)
	}
	if s.conv == nil {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading...")
	}

	inputArea := s.renderInputArea(width)
	inputHeight := lipgloss.Height(inputArea)

	transcriptHeight := height - inputHeight - 1
	if transcriptHeight < 1 {
		transcriptHeight = 1
	}

	transcript := s.renderTranscript(width, transcriptHeight)
	return transcript + "\n" + inputArea
}

// renderTranscript renders the visible window of the message list, following
// the tail unless the student has scrolled up.
func (s *ChatScreen) renderTranscript(width, height int) string {
	lines := s.transcriptLines(width)

	if len(lines) <= height {
		// Pad from the top so short conversations sit at the bottom.
		pad := height - len(lines)
		return strings.Repeat("\n", pad) + strings.Join(lines, "\n")
	}

	end := len(lines) - s.scroll
	if end > len(lines) {
		end = len(lines)
	}
	if end < height {
		end = height
	}
	return strings.Join(lines[end-height:end], "\n")
}

func (s *ChatScreen) transcriptLines(width int) []string {
	textWidth := width - 4
	if textWidth < 20 {
		textWidth = 20
	}
	wrap := lipgloss.NewStyle().Width(textWidth)

	var lines []string
	for i, msg := range s.conv.Messages {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, s.messageLines(msg, wrap)...)
	}
	if len(lines) == 0 {
		lines = append(lines,
			theme.Hint.Render("  Ask a question to get started. Try \"Explain photosynthesis\"."))
	}
	return lines
}

func (s *ChatScreen) messageLines(msg chatpkg.Message, wrap lipgloss.Style) []string {
	var lines []string

	switch msg.Role {
	case chatpkg.RoleUser:
		lines = append(lines, theme.UserLabel.Render("  You"))
	default:
		lines = append(lines, theme.TutorLabel.Render("  Vidya"))
	}

	text := msg.Text
	if text == "" && msg.Role == chatpkg.RoleModel {
		text = "…"
	}
	for _, l := range strings.Split(wrap.Render(text), "\n") {
		lines = append(lines, "  "+l)
	}

	if msg.Image != "" {
		lines = append(lines, "  "+theme.Hint.Render("(attached image)"))
	}

	for _, src := range msg.Sources {
		title := src.Title
		if title == "" {
			title = src.URI
		}
		lines = append(lines, "  "+theme.SourceLink.Render("↗ "+title))
	}

	return lines
}

func (s *ChatScreen) renderInputArea(width int) string {
	var b strings.Builder

	status := s.notice
	if s.session.IsStreaming() {
		status = "Thinking..."
	}
	if status != "" {
		b.WriteString(theme.Hint.Render("  " + status))
	}
	b.WriteString("\n")

	var badges []string
	if s.session.SearchEnabled() {
		badges = append(badges, theme.Correct.Render("[web]"))
	}
	if s.attachMode {
		badges = append(badges, theme.Selected.Render("[attach]"))
	}
	badge := ""
	if len(badges) > 0 {
		badge = " " + strings.Join(badges, " ")
	}

	inputLine := "  > " + s.input.View() + badge
	b.WriteString(lipgloss.NewStyle().Width(width).Render(inputLine))

	return b.String()
}
