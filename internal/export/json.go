package export

import (
	"encoding/json"
	"io"

	"github.com/abhisek/vidya/internal/chat"
)

// JSONExporter exports conversations as pretty-printed JSON.
type JSONExporter struct{}

// Export writes the conversation as indented JSON.
func (e *JSONExporter) Export(conv *chat.Conversation, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(conv)
}

// Extension returns the file extension for this format.
func (e *JSONExporter) Extension() string {
	return "json"
}
