package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/abhisek/vidya/internal/chat"
	"github.com/abhisek/vidya/internal/llm"
)

// quizSchema constrains the generation call to well-formed question sets.
var quizSchema = &llm.Schema{
	Name:        "quiz-questions",
	Description: "A multiple-choice quiz for a school student",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type": "string",
						},
						"options": map[string]any{
							"type":     "array",
							"items":    map[string]any{"type": "string"},
							"minItems": OptionsPerQuestion,
							"maxItems": OptionsPerQuestion,
						},
						"correct_index": map[string]any{
							"type":    "integer",
							"minimum": 0,
							"maximum": OptionsPerQuestion - 1,
						},
						"explanation": map[string]any{
							"type": "string",
						},
					},
					"required":             []any{"question", "options", "correct_index", "explanation"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}

// Generate asks the provider for exactly count questions on the topic at
// the given difficulty, framed for the class syllabus. Malformed output,
// including an empty question set, is an error.
func Generate(ctx context.Context, provider llm.Provider, class chat.Class, topic string, difficulty Difficulty, count int) ([]Question, error) {
	if !slices.Contains(Counts, count) {
		return nil, fmt.Errorf("question count must be one of %v, got %d", Counts, count)
	}
	if !slices.Contains(Difficulties, difficulty) {
		return nil, fmt.Errorf("unknown difficulty %q", difficulty)
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	prompt := fmt.Sprintf(
		"Create a quiz with exactly %d multiple-choice questions on the topic %q "+
			"at %s difficulty. Each question has exactly %d options and one correct answer. "+
			"Keep questions within the student's syllabus.",
		count, topic, difficulty, OptionsPerQuestion)

	ctx = llm.WithPurpose(ctx, "quiz")
	resp, err := provider.Generate(ctx, llm.Request{
		System:    class.SystemPrompt(),
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Schema:    quizSchema,
		MaxTokens: 8192,
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Questions []Question `json:"questions"`
	}
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, &llm.ErrInvalidResponse{Content: resp.Content, Err: fmt.Errorf("decode quiz: %w", err)}
	}
	if len(out.Questions) == 0 {
		return nil, &llm.ErrInvalidResponse{Content: resp.Content, Err: fmt.Errorf("quiz has zero questions")}
	}
	for i, q := range out.Questions {
		if err := validateQuestion(q); err != nil {
			return nil, &llm.ErrInvalidResponse{Content: resp.Content, Err: fmt.Errorf("question %d: %w", i+1, err)}
		}
	}
	return out.Questions, nil
}

func validateQuestion(q Question) error {
	if q.Question == "" {
		return fmt.Errorf("empty question text")
	}
	if len(q.Options) != OptionsPerQuestion {
		return fmt.Errorf("%d options, want %d", len(q.Options), OptionsPerQuestion)
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= OptionsPerQuestion {
		return fmt.Errorf("correct index %d out of range", q.CorrectIndex)
	}
	return nil
}
