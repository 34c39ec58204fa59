// Package export writes conversations to portable formats for sharing or
// backup outside the local database.
package export

import (
	"fmt"
	"io"

	"github.com/abhisek/vidya/internal/chat"
)

// Exporter writes one conversation to a destination format.
type Exporter interface {
	Export(conv *chat.Conversation, w io.Writer) error
	Extension() string
}

// NewExporter creates an exporter for the given format name.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: md, json, yaml)", format)
	}
}
