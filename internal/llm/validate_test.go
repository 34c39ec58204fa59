package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func testSchema() *Schema {
	return &Schema{
		Name:        "test-answer",
		Description: "A test answer object",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"topic":      map[string]any{"type": "string"},
				"confidence": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
				"difficulty": map[string]any{"type": "string", "enum": []any{"easy", "medium", "hard"}},
			},
			"required": []any{"topic", "confidence"},
		},
	}
}

func TestValidateResponse_ValidJSON(t *testing.T) {
	raw := json.RawMessage(`{"topic":"algebra","confidence":90,"difficulty":"easy"}`)
	if err := validateResponse(testSchema(), raw); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidateResponse_ValidWithoutOptional(t *testing.T) {
	raw := json.RawMessage(`{"topic":"optics","confidence":70}`)
	if err := validateResponse(testSchema(), raw); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidateResponse_Invalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"missing required", `{"topic":"algebra"}`},
		{"wrong type", `{"topic":"algebra","confidence":"high"}`},
		{"invalid enum", `{"topic":"algebra","confidence":90,"difficulty":"extreme"}`},
		{"out of range", `{"topic":"algebra","confidence":200}`},
		{"malformed JSON", `{not json}`},
		{"empty response", ``},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateResponse(testSchema(), json.RawMessage(tc.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			var invErr *ErrInvalidResponse
			if !errors.As(err, &invErr) {
				t.Fatalf("expected ErrInvalidResponse, got: %T", err)
			}
		})
	}
}

func TestValidateResponse_NilSchema(t *testing.T) {
	raw := json.RawMessage(`{"anything":"goes"}`)
	if err := validateResponse(nil, raw); err != nil {
		t.Fatalf("expected no error with nil schema, got: %v", err)
	}
}

func TestValidateResponse_NestedObjects(t *testing.T) {
	schema := &Schema{
		Name:        "test-nested",
		Description: "Nested test",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text": map[string]any{"type": "string"},
					},
					"required": []any{"text"},
				},
				"options": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"required": []any{"question", "options"},
		},
	}

	valid := json.RawMessage(`{"question":{"text":"What is 2+2?"},"options":["3","4","5","6"]}`)
	if err := validateResponse(schema, valid); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	invalid := json.RawMessage(`{"question":{"text":"What is 2+2?"},"options":[3,4]}`)
	if err := validateResponse(schema, invalid); err == nil {
		t.Fatal("expected error for wrong array item type")
	}
}
