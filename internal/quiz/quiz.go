// Package quiz runs AI-generated multiple-choice quizzes as a modal flow
// over the active conversation. Quiz state lives only for the session; only
// the textual results summary is persisted, as a regular chat message.
package quiz

import (
	"fmt"
	"strings"
)

// Difficulty of the generated questions.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// Difficulties lists the selectable difficulties in menu order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// Counts lists the allowed question counts.
var Counts = []int{5, 10, 15, 20}

// OptionsPerQuestion is fixed: every question has exactly four options.
const OptionsPerQuestion = 4

// Phase is the quiz state machine phase.
type Phase int

const (
	// Asking shows the current question awaiting an answer.
	Asking Phase = iota
	// Feedback reveals correctness before advancing.
	Feedback
	// Results shows the final score.
	Results
)

// Question is one multiple-choice item.
type Question struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

// Quiz is a live quiz run. It is not safe for concurrent use; the single
// Update loop is the only caller.
type Quiz struct {
	Topic      string
	Difficulty Difficulty
	Questions  []Question

	phase   Phase
	index   int
	answers []int
}

// New starts a quiz over the given questions at Asking(0).
func New(topic string, difficulty Difficulty, questions []Question) *Quiz {
	answers := make([]int, len(questions))
	for i := range answers {
		answers[i] = -1
	}
	return &Quiz{
		Topic:      topic,
		Difficulty: difficulty,
		Questions:  questions,
		phase:      Asking,
		answers:    answers,
	}
}

// Phase returns the current state machine phase.
func (q *Quiz) Phase() Phase { return q.phase }

// Index returns the zero-based current question index.
func (q *Quiz) Index() int { return q.index }

// Current returns the question being asked or reviewed.
func (q *Quiz) Current() Question { return q.Questions[q.index] }

// Answered returns the recorded answer for the current question (-1 before
// Answer is called).
func (q *Quiz) Answered() int { return q.answers[q.index] }

// Answer records the selection for the current question and moves to
// Feedback, reporting whether it was correct. Further answers for the same
// question are rejected.
func (q *Quiz) Answer(selected int) (correct bool, err error) {
	if q.phase != Asking {
		return false, fmt.Errorf("not accepting answers in phase %d", q.phase)
	}
	if selected < 0 || selected >= OptionsPerQuestion {
		return false, fmt.Errorf("answer index %d out of range", selected)
	}
	q.answers[q.index] = selected
	q.phase = Feedback
	return selected == q.Current().CorrectIndex, nil
}

// Advance moves past the feedback display: to the next question, or to
// Results after the last one. No-op outside Feedback.
func (q *Quiz) Advance() {
	if q.phase != Feedback {
		return
	}
	if q.index+1 < len(q.Questions) {
		q.index++
		q.phase = Asking
		return
	}
	q.phase = Results
}

// Score counts questions whose recorded answer matches the correct index.
func (q *Quiz) Score() int {
	score := 0
	for i, question := range q.Questions {
		if q.answers[i] == question.CorrectIndex {
			score++
		}
	}
	return score
}

// ResultsMessage renders the summary persisted into the conversation when
// the quiz completes.
func (q *Quiz) ResultsMessage() string {
	total := len(q.Questions)
	score := q.Score()

	var b strings.Builder
	fmt.Fprintf(&b, "Quiz finished: %s (%s)\n", q.Topic, q.Difficulty)
	fmt.Fprintf(&b, "Score: %d/%d\n", score, total)
	for i, question := range q.Questions {
		mark := "✗"
		if q.answers[i] == question.CorrectIndex {
			mark = "✓"
		}
		fmt.Fprintf(&b, "%s Q%d: %s\n", mark, i+1, question.Question)
		if q.answers[i] != question.CorrectIndex {
			fmt.Fprintf(&b, "   Correct answer: %s\n", question.Options[question.CorrectIndex])
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
