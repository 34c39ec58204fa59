package export

import (
	"fmt"
	"io"

	"github.com/abhisek/vidya/internal/chat"
)

// MarkdownExporter exports conversations as readable Markdown.
type MarkdownExporter struct{}

// Export writes the conversation as a Markdown transcript.
func (e *MarkdownExporter) Export(conv *chat.Conversation, w io.Writer) error {
	title := conv.Title
	if title == "" {
		title = "Untitled chat"
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)
	_, _ = fmt.Fprintf(w, "**Class:** %s  \n", conv.Class.Label())
	_, _ = fmt.Fprintf(w, "**Created:** %s  \n", conv.CreatedAt.Format("2006-01-02 15:04"))
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(conv.Messages))
	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range conv.Messages {
		actor := "Student"
		if msg.Role == chat.RoleModel {
			actor = "Tutor"
		}
		_, _ = fmt.Fprintf(w, "**%s:**\n\n%s\n\n", actor, msg.Text)

		if msg.Image != "" {
			_, _ = fmt.Fprintf(w, "*(attached image)*\n\n")
		}
		if len(msg.Sources) > 0 {
			_, _ = fmt.Fprintf(w, "Sources:\n\n")
			for _, s := range msg.Sources {
				title := s.Title
				if title == "" {
					title = s.URI
				}
				_, _ = fmt.Fprintf(w, "- [%s](%s)\n", title, s.URI)
			}
			_, _ = fmt.Fprintf(w, "\n")
		}

		if i < len(conv.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// Extension returns the file extension for this format.
func (e *MarkdownExporter) Extension() string {
	return "md"
}
