package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/abhisek/vidya/internal/store"
)

// EventSink records LLM request events. Satisfied by *store.EventRepo.
type EventSink interface {
	AppendLLMRequest(ctx context.Context, data store.LLMRequestEventData) error
}

// LoggingProvider is a decorator that records every LLM request as an event.
type LoggingProvider struct {
	inner Provider
	name  string
	sink  EventSink
}

// WithLogging wraps a Provider with event logging. name identifies the
// backing provider (gemini, openai, ...) in the event log.
func WithLogging(p Provider, name string, sink EventSink) Provider {
	return &LoggingProvider{inner: p, name: name, sink: sink}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	l.record(ctx, req, resp, err, time.Since(start))
	return resp, err
}

func (l *LoggingProvider) GenerateStream(ctx context.Context, req Request, onChunk func(string)) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.GenerateStream(ctx, req, onChunk)
	l.record(ctx, req, resp, err, time.Since(start))
	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

func (l *LoggingProvider) record(ctx context.Context, req Request, resp *Response, err error, latency time.Duration) {
	data := store.LLMRequestEventData{
		Provider:    l.name,
		Model:       l.inner.ModelID(),
		Purpose:     PurposeFrom(ctx),
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}

	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		data.Model = resp.Model
		if len(resp.Content) > 0 {
			data.ResponseBody = string(resp.Content)
		} else {
			data.ResponseBody = resp.Text
		}
	}

	if err != nil {
		data.ErrorMessage = err.Error()
	}

	// Log the event but don't fail the request if logging fails.
	if logErr := l.sink.AppendLLMRequest(ctx, data); logErr != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to log LLM request event: %v\n", logErr)
	}
}

// serializeRequest builds a readable representation of the LLM request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		b.WriteString(fmt.Sprintf("[%s]\n", m.Role))
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}

	if req.Image != nil {
		b.WriteString(fmt.Sprintf("[image: %s, %d bytes]\n", req.Image.MimeType, len(req.Image.Data)))
	}

	if req.Search {
		b.WriteString("[search grounding enabled]\n")
	}

	if req.Schema != nil {
		schemaDef, err := json.Marshal(req.Schema.Definition)
		if err == nil {
			b.WriteString(fmt.Sprintf("[schema: %s]\n", req.Schema.Name))
			b.WriteString(string(schemaDef))
			b.WriteString("\n")
		}
	}

	return b.String()
}
