// Package quiz is the modal quiz flow: a setup form, then one multichoice
// question at a time with timed feedback, then the results summary.
package quiz

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vidya/internal/chat"
	"github.com/abhisek/vidya/internal/llm"
	quizpkg "github.com/abhisek/vidya/internal/quiz"
	"github.com/abhisek/vidya/internal/router"
	"github.com/abhisek/vidya/internal/screen"
	"github.com/abhisek/vidya/internal/ui/components"
	"github.com/abhisek/vidya/internal/ui/layout"
	"github.com/abhisek/vidya/internal/ui/theme"
)

// feedbackDelay is how long correctness stays on screen before advancing.
const feedbackDelay = 2500 * time.Millisecond

// setup form fields, cycled with tab.
const (
	fieldTopic = iota
	fieldDifficulty
	fieldCount
	numFields
)

type phase int

const (
	phaseSetup phase = iota
	phaseLoading
	phaseAsking
	phaseResults
)

type questionsReadyMsg struct {
	Questions []quizpkg.Question
	Err       error
}

type feedbackDoneMsg struct{}

type resultsSavedMsg struct {
	Err error
}

// QuizScreen drives one quiz over the active conversation.
type QuizScreen struct {
	session  *chat.Session
	provider llm.Provider

	phase      phase
	field      int
	topicInput components.TextInput
	diffIdx    int
	countIdx   int

	convID    string // conversation the quiz writes into, captured at start
	quiz      *quizpkg.Quiz
	choice    components.MultiChoice
	cancelled atomic.Bool
	errMsg    string

	stopSwitchWatch func()
}

var _ screen.Screen = (*QuizScreen)(nil)
var _ screen.KeyHintProvider = (*QuizScreen)(nil)
var _ screen.Closer = (*QuizScreen)(nil)

// New creates the quiz setup screen.
func New(session *chat.Session, provider llm.Provider) *QuizScreen {
	s := &QuizScreen{
		session:    session,
		provider:   provider,
		topicInput: components.NewTextInput("Topic, e.g. \"Chemical bonding\"...", 80),
	}
	// Switching conversations discards quiz state.
	s.stopSwitchWatch = session.OnConversationSwitch(func() { s.cancelled.Store(true) })
	return s
}

// Close deregisters the conversation switch listener.
func (s *QuizScreen) Close() {
	if s.stopSwitchWatch != nil {
		s.stopSwitchWatch()
	}
}

func (s *QuizScreen) Title() string {
	return "Quiz"
}

func (s *QuizScreen) KeyHints() []layout.KeyHint {
	switch s.phase {
	case phaseSetup:
		return []layout.KeyHint{
			{Key: "Tab", Description: "Next field"},
			{Key: "←→", Description: "Change"},
			{Key: "Enter", Description: "Start"},
			{Key: "Esc", Description: "Back"},
		}
	case phaseAsking:
		if s.quiz != nil && s.quiz.Phase() == quizpkg.Feedback {
			return []layout.KeyHint{{Key: "", Description: "Next question shortly..."}}
		}
		return []layout.KeyHint{
			{Key: "↑↓/1-4", Description: "Answer"},
			{Key: "Enter", Description: "Submit"},
		}
	case phaseResults:
		return []layout.KeyHint{{Key: "Enter/Esc", Description: "Back to chat"}}
	}
	return nil
}

func (s *QuizScreen) Init() tea.Cmd {
	return s.topicInput.Init()
}

func (s *QuizScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if s.cancelled.Load() && s.phase != phaseSetup {
		// The active conversation changed under us; drop the quiz.
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	}

	switch msg := msg.(type) {
	case questionsReadyMsg:
		return s.handleQuestionsReady(msg)

	case feedbackDoneMsg:
		if s.quiz == nil {
			return s, nil
		}
		s.quiz.Advance()
		if s.quiz.Phase() == quizpkg.Results {
			s.phase = phaseResults
			return s, s.saveResults()
		}
		s.choice = s.newChoice()
		return s, nil

	case resultsSavedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		}
		return s, nil

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.phase == phaseSetup && s.field == fieldTopic {
		var cmd tea.Cmd
		s.topicInput, cmd = s.topicInput.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *QuizScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch s.phase {
	case phaseSetup:
		return s.handleSetupKey(msg)

	case phaseAsking:
		if s.quiz.Phase() != quizpkg.Asking {
			return s, nil
		}
		wasSubmitted := s.choice.Submitted
		var cmd tea.Cmd
		s.choice, cmd = s.choice.Update(msg)
		if s.choice.Submitted && !wasSubmitted {
			if _, err := s.quiz.Answer(s.choice.ChosenIndex); err != nil {
				s.errMsg = err.Error()
				return s, cmd
			}
			return s, tea.Batch(cmd, tea.Tick(feedbackDelay, func(time.Time) tea.Msg {
				return feedbackDoneMsg{}
			}))
		}
		return s, cmd

	case phaseResults:
		switch msg.String() {
		case "enter", "esc", "f":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}

func (s *QuizScreen) handleSetupKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab":
		s.field = (s.field + 1) % numFields
		return s, nil

	case "left", "right":
		delta := 1
		if msg.String() == "left" {
			delta = -1
		}
		switch s.field {
		case fieldDifficulty:
			s.diffIdx = clampIndex(s.diffIdx+delta, len(quizpkg.Difficulties))
		case fieldCount:
			s.countIdx = clampIndex(s.countIdx+delta, len(quizpkg.Counts))
		}
		return s, nil

	case "enter":
		return s.start()
	}

	if s.field == fieldTopic {
		var cmd tea.Cmd
		s.topicInput, cmd = s.topicInput.Update(msg)
		return s, cmd
	}
	return s, nil
}

// start posts the quiz request: a user message recording it, a placeholder,
// then generation. The placeholder becomes an acknowledgment on success or
// an explanatory error on failure.
func (s *QuizScreen) start() (screen.Screen, tea.Cmd) {
	topic := strings.TrimSpace(s.topicInput.Value())
	if topic == "" {
		s.errMsg = "Enter a topic first"
		return s, nil
	}

	difficulty := quizpkg.Difficulties[s.diffIdx]
	count := quizpkg.Counts[s.countIdx]
	class := s.session.ActiveClass()
	convID := s.session.ActiveID()

	s.convID = convID
	s.phase = phaseLoading
	s.errMsg = ""

	return s, func() tea.Msg {
		ctx := context.Background()
		record := fmt.Sprintf("Quiz me on %q (%s, %d questions)", topic, difficulty, count)
		if _, err := s.session.AppendMessageTo(ctx, convID, chat.Message{Role: chat.RoleUser, Text: record}); err != nil {
			return questionsReadyMsg{Err: err}
		}
		if _, err := s.session.AppendMessageTo(ctx, convID, chat.Message{Role: chat.RoleModel}); err != nil {
			return questionsReadyMsg{Err: err}
		}

		questions, err := quizpkg.Generate(ctx, s.provider, class, topic, difficulty, count)
		if err != nil {
			text := "Sorry, I couldn't build that quiz: " + err.Error()
			_, _ = s.session.ReplaceLastMessageTo(ctx, convID, chat.Message{Role: chat.RoleModel, Text: text})
			return questionsReadyMsg{Err: err}
		}

		ack := fmt.Sprintf("Starting a %d-question quiz on %q. Good luck!", len(questions), topic)
		if _, err := s.session.ReplaceLastMessageTo(ctx, convID, chat.Message{Role: chat.RoleModel, Text: ack}); err != nil {
			return questionsReadyMsg{Err: err}
		}
		return questionsReadyMsg{Questions: questions}
	}
}

func (s *QuizScreen) handleQuestionsReady(msg questionsReadyMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		// Stay on setup so the student can adjust and retry.
		s.phase = phaseSetup
		s.errMsg = msg.Err.Error()
		return s, nil
	}

	topic := strings.TrimSpace(s.topicInput.Value())
	s.quiz = quizpkg.New(topic, quizpkg.Difficulties[s.diffIdx], msg.Questions)
	s.choice = s.newChoice()
	s.phase = phaseAsking
	return s, nil
}

func (s *QuizScreen) newChoice() components.MultiChoice {
	q := s.quiz.Current()
	return components.NewMultiChoice(
		fmt.Sprintf("Q%d. %s", s.quiz.Index()+1, q.Question),
		q.Options, q.CorrectIndex, q.Explanation)
}

// saveResults persists the textual summary into the quiz's conversation.
// The question set and answers themselves are never stored.
func (s *QuizScreen) saveResults() tea.Cmd {
	convID := s.convID
	text := s.quiz.ResultsMessage()
	return func() tea.Msg {
		_, err := s.session.AppendMessageTo(context.Background(), convID,
			chat.Message{Role: chat.RoleModel, Text: text})
		return resultsSavedMsg{Err: err}
	}
}

func (s *QuizScreen) View(width, height int) string {
	switch s.phase {
	case phaseSetup:
		return s.viewSetup(width, height)
	case phaseLoading:
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			theme.Hint.Render("Building your quiz..."))
	case phaseAsking:
		return s.viewQuestion(width, height)
	case phaseResults:
		return s.viewResults(width, height)
	}
	return ""
}

func (s *QuizScreen) viewSetup(width, height int) string {
	label := func(field int, text string) string {
		if s.field == field {
			return theme.Selected.Render("▸ " + text)
		}
		return theme.Unselected.Render("  " + text)
	}

	var b strings.Builder
	b.WriteString(theme.Title.Render("Quiz setup") + "\n\n")
	b.WriteString(label(fieldTopic, "Topic:      ") + s.topicInput.View() + "\n\n")
	b.WriteString(label(fieldDifficulty, "Difficulty: ") + pickerView(difficultyLabels(), s.diffIdx) + "\n\n")
	b.WriteString(label(fieldCount, "Questions:  ") + pickerView(countLabels(), s.countIdx) + "\n")

	if s.errMsg != "" {
		b.WriteString("\n" + theme.Incorrect.Render(s.errMsg) + "\n")
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, b.String())
}

func (s *QuizScreen) viewQuestion(width, height int) string {
	total := len(s.quiz.Questions)
	progress := components.NewProgressBar(
		fmt.Sprintf("Question %d of %d", s.quiz.Index()+1, total),
		float64(s.quiz.Index())/float64(total),
		false, min(width-8, 60))

	body := progress.View() + "\n\n" + s.choice.View()

	if s.quiz.Phase() == quizpkg.Feedback {
		verdict := theme.Incorrect.Render("Not quite.")
		if s.choice.IsCorrect() {
			verdict = theme.Correct.Render("Correct!")
		}
		body += "\n" + verdict
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}

func (s *QuizScreen) viewResults(width, height int) string {
	total := len(s.quiz.Questions)
	score := s.quiz.Score()

	var b strings.Builder
	b.WriteString(theme.Title.Render("Quiz complete!") + "\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Bold(true).
		Render(fmt.Sprintf("You scored %d out of %d", score, total)) + "\n\n")

	bar := components.NewProgressBar("", float64(score)/float64(total), true, min(width-8, 60))
	b.WriteString(bar.View() + "\n\n")
	b.WriteString(theme.Hint.Render("The full breakdown was added to your chat."))

	if s.errMsg != "" {
		b.WriteString("\n\n" + theme.Incorrect.Render(s.errMsg))
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, b.String())
}

func pickerView(options []string, selected int) string {
	parts := make([]string, len(options))
	for i, opt := range options {
		if i == selected {
			parts[i] = theme.Selected.Render("[" + opt + "]")
		} else {
			parts[i] = theme.Unselected.Render(" " + opt + " ")
		}
	}
	return strings.Join(parts, " ")
}

func difficultyLabels() []string {
	labels := make([]string, len(quizpkg.Difficulties))
	for i, d := range quizpkg.Difficulties {
		labels[i] = string(d)
	}
	return labels
}

func countLabels() []string {
	labels := make([]string, len(quizpkg.Counts))
	for i, c := range quizpkg.Counts {
		labels[i] = fmt.Sprintf("%d", c)
	}
	return labels
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
