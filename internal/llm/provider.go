package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
)

// Provider is the core abstraction for LLM interaction. Structured one-shot
// calls (titles, quizzes) go through Generate with a Schema; free-form tutor
// replies go through GenerateStream so the UI can show incremental growth.
type Provider interface {
	// Generate sends a prompt to the LLM and returns a structured response.
	// The request's Schema field, when set, instructs the provider to return
	// JSON conforming to that schema. With Search set the reply is grounded
	// in web results and carries source citations.
	Generate(ctx context.Context, req Request) (*Response, error)

	// GenerateStream sends a prompt and delivers the reply incrementally,
	// calling onChunk for every text delta in receipt order. The returned
	// Response carries the full concatenated text. Schema and Search are
	// ignored in streaming mode.
	GenerateStream(ctx context.Context, req Request, onChunk func(string)) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// System is the system prompt. Sets the tutor's role and syllabus framing.
	System string

	// Messages is the conversation history, oldest first.
	Messages []Message

	// Schema is the JSON Schema the response must conform to.
	// When set, the provider uses its native structured output mechanism.
	Schema *Schema

	// Image is an optional inline attachment sent with the last user turn.
	// Mutually exclusive with Search.
	Image *ImageData

	// Search asks for a web-grounded answer with source citations.
	// Only honored by providers with a native search tool; others answer
	// from model knowledge with no sources.
	Search bool

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	Temperature float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ImageData is an inline image attachment.
type ImageData struct {
	Data     []byte
	MimeType string
}

// SourceRef is a web citation from a grounded response.
type SourceRef struct {
	URI   string
	Title string
}

// Schema defines the JSON structure expected from the LLM.
type Schema struct {
	// Name identifies this schema (used as tool name for Anthropic,
	// schema name for OpenAI). Kebab-case, e.g. "quiz-questions".
	Name string

	// Description is a human-readable description of what this schema
	// represents. Sent to the LLM to guide generation.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the LLM's output.
type Response struct {
	// Content is the generated output for schema-constrained requests:
	// the validated JSON object.
	Content json.RawMessage

	// Text is the plain reply text for streamed and grounded requests.
	Text string

	// Sources carries web citations when the request was grounded.
	Sources []SourceRef

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason indicates why generation stopped.
	// Normalized to: "end", "max_tokens", "error"
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

func base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// resolveModel maps a friendly model name to a provider model ID.
func resolveModel(name string, models map[string]string) string {
	if id, ok := models[name]; ok {
		return id
	}
	// If not in the map, use as-is (allows direct model IDs).
	return name
}
