package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/abhisek/vidya/internal/chat"
	"github.com/abhisek/vidya/internal/llm"
)

func sampleQuestions(n int) []Question {
	qs := make([]Question, n)
	for i := range qs {
		qs[i] = Question{
			Question:     "question",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: i % OptionsPerQuestion,
			Explanation:  "because",
		}
	}
	return qs
}

func TestStateMachineWalk(t *testing.T) {
	q := New("algebra", Easy, sampleQuestions(3))

	if q.Phase() != Asking || q.Index() != 0 {
		t.Fatalf("start phase = %v index = %d", q.Phase(), q.Index())
	}

	for i := 0; i < 3; i++ {
		if _, err := q.Answer(0); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if q.Phase() != Feedback {
			t.Fatalf("after answer %d phase = %v, want Feedback", i, q.Phase())
		}
		// Repeat answers for the same question are rejected.
		if _, err := q.Answer(1); err == nil {
			t.Error("second answer for same question should fail")
		}
		q.Advance()
	}

	if q.Phase() != Results {
		t.Fatalf("final phase = %v, want Results", q.Phase())
	}
}

func TestScoreExactMatch(t *testing.T) {
	tests := []struct {
		name    string
		correct []int
		answers []int
		want    int
	}{
		{"all right", []int{0, 1, 2}, []int{0, 1, 2}, 3},
		{"all wrong", []int{0, 1, 2}, []int{1, 2, 3}, 0},
		{"mixed", []int{0, 1, 2, 3, 0}, []int{0, 2, 2, 1, 0}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs := make([]Question, len(tt.correct))
			for i, c := range tt.correct {
				qs[i] = Question{
					Question:     "q",
					Options:      []string{"a", "b", "c", "d"},
					CorrectIndex: c,
				}
			}
			q := New("t", Medium, qs)
			for _, a := range tt.answers {
				if _, err := q.Answer(a); err != nil {
					t.Fatal(err)
				}
				q.Advance()
			}
			if got := q.Score(); got != tt.want {
				t.Errorf("score = %d, want %d", got, tt.want)
			}
			if got := q.Score(); got < 0 || got > len(qs) {
				t.Errorf("score %d out of [0,%d]", got, len(qs))
			}
		})
	}
}

func TestAnswerOutOfRange(t *testing.T) {
	q := New("t", Hard, sampleQuestions(1))
	for _, bad := range []int{-1, 4, 100} {
		if _, err := q.Answer(bad); err == nil {
			t.Errorf("Answer(%d) should fail", bad)
		}
	}
	if q.Phase() != Asking {
		t.Error("rejected answer must not change phase")
	}
}

func TestResultsMessage(t *testing.T) {
	qs := sampleQuestions(2)
	qs[0].CorrectIndex = 0
	qs[1].CorrectIndex = 1
	q := New("fractions", Easy, qs)

	q.Answer(0) // right
	q.Advance()
	q.Answer(0) // wrong
	q.Advance()

	msg := q.ResultsMessage()
	if !strings.Contains(msg, "Score: 1/2") {
		t.Errorf("results missing score: %q", msg)
	}
	if !strings.Contains(msg, "fractions") {
		t.Errorf("results missing topic: %q", msg)
	}
	if !strings.Contains(msg, "Correct answer: b") {
		t.Errorf("results missing correction for wrong answer: %q", msg)
	}
}

func quizJSON(t *testing.T, questions []Question) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(map[string]any{"questions": questions})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	provider := llm.NewMockProvider(llm.MockResponse{
		Content: quizJSON(t, sampleQuestions(5)),
	})

	qs, err := Generate(ctx, provider, chat.Class9, "light", Medium, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 5 {
		t.Fatalf("questions = %d, want 5", len(qs))
	}
	if len(provider.Calls) != 1 || provider.Calls[0].Schema == nil {
		t.Error("generation must request structured output")
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	provider := llm.NewMockProvider()

	if _, err := Generate(ctx, provider, chat.Class9, "light", Medium, 7); err == nil {
		t.Error("count 7 should be rejected")
	}
	if _, err := Generate(ctx, provider, chat.Class9, "light", "Impossible", 5); err == nil {
		t.Error("unknown difficulty should be rejected")
	}
	if _, err := Generate(ctx, provider, chat.Class9, "", Medium, 5); err == nil {
		t.Error("empty topic should be rejected")
	}
	if provider.CallCount() != 0 {
		t.Error("invalid input must not reach the provider")
	}
}

func TestGenerateRejectsMalformedOutput(t *testing.T) {
	ctx := context.Background()

	bad := []struct {
		name    string
		content json.RawMessage
	}{
		{"zero questions", []byte(`{"questions": []}`)},
		{"not json", []byte(`oops`)},
		{"three options", quizJSONRaw(`[{"question":"q","options":["a","b","c"],"correct_index":0,"explanation":"e"}]`)},
		{"index out of range", quizJSONRaw(`[{"question":"q","options":["a","b","c","d"],"correct_index":4,"explanation":"e"}]`)},
		{"empty question", quizJSONRaw(`[{"question":"","options":["a","b","c","d"],"correct_index":0,"explanation":"e"}]`)},
	}

	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			provider := llm.NewMockProvider(llm.MockResponse{Content: tt.content})
			_, err := Generate(ctx, provider, chat.Class6, "plants", Easy, 5)
			if err == nil {
				t.Fatal("expected error")
			}
			var inv *llm.ErrInvalidResponse
			if !errors.As(err, &inv) {
				t.Errorf("error type = %T, want *llm.ErrInvalidResponse", err)
			}
		})
	}
}

func quizJSONRaw(items string) json.RawMessage {
	return json.RawMessage(`{"questions": ` + items + `}`)
}
