package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Content json.RawMessage
	Text    string
	Sources []SourceRef
	Usage   Usage
	Err     error
}

// MockProvider is a deterministic Provider for testing.
// It returns canned responses in FIFO order and records all requests.
// For GenerateStream the canned text is delivered in fixed-size chunks so
// tests can observe incremental application.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	ChunkSize int
	Calls     []Request
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses, ChunkSize: 8}
}

// Generate returns the next canned response or ErrProviderUnavailable if
// the queue is empty.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	resp, err := m.next(req)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GenerateStream returns the next canned response, delivering its text to
// onChunk in ChunkSize pieces.
func (m *MockProvider) GenerateStream(_ context.Context, req Request, onChunk func(string)) (*Response, error) {
	resp, err := m.next(req)
	if err != nil {
		return nil, err
	}

	size := m.ChunkSize
	if size <= 0 {
		size = 8
	}
	for text := resp.Text; text != ""; {
		n := min(size, len(text))
		onChunk(text[:n])
		text = text[n:]
	}
	return resp, nil
}

func (m *MockProvider) next(req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)

	if len(m.responses) == 0 {
		return nil, &ErrProviderUnavailable{Err: nil}
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]

	if resp.Err != nil {
		return nil, resp.Err
	}

	return &Response{
		Content:    resp.Content,
		Text:       resp.Text,
		Sources:    resp.Sources,
		Usage:      resp.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response to the queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of requests made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
