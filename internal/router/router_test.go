package router

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/vidya/internal/screen"
)

// stubScreen is a minimal screen for testing.
type stubScreen struct {
	title   string
	initRan bool
}

func (s *stubScreen) Init() tea.Cmd {
	s.initRan = true
	return nil
}
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return s.title }
func (s *stubScreen) Title() string                           { return s.title }

func TestPush(t *testing.T) {
	s1 := &stubScreen{title: "first"}
	r := New(s1)

	s2 := &stubScreen{title: "second"}
	r.Push(s2)

	if r.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", r.Depth())
	}
	if r.Active().Title() != "second" {
		t.Errorf("expected active 'second', got %q", r.Active().Title())
	}
	if !s2.initRan {
		t.Error("expected Init() to run on pushed screen")
	}
}

func TestPop(t *testing.T) {
	s1 := &stubScreen{title: "first"}
	r := New(s1)

	s2 := &stubScreen{title: "second"}
	r.Push(s2)
	r.Pop()

	if r.Depth() != 1 {
		t.Errorf("expected depth 1, got %d", r.Depth())
	}
	if r.Active().Title() != "first" {
		t.Errorf("expected active 'first', got %q", r.Active().Title())
	}
}

func TestPopNoopAtBottom(t *testing.T) {
	s1 := &stubScreen{title: "first"}
	r := New(s1)
	r.Pop()

	if r.Depth() != 1 {
		t.Errorf("expected depth 1 after pop at bottom, got %d", r.Depth())
	}
}

func TestReplace(t *testing.T) {
	s1 := &stubScreen{title: "splash"}
	r := New(s1)

	s2 := &stubScreen{title: "chat"}
	r.Replace(s2)

	if r.Depth() != 1 {
		t.Errorf("expected depth 1 after replace, got %d", r.Depth())
	}
	if r.Active().Title() != "chat" {
		t.Errorf("expected active 'chat', got %q", r.Active().Title())
	}
	if !s2.initRan {
		t.Error("expected Init() to run on replacement screen")
	}
}

// closableScreen records whether the router called Close on it.
type closableScreen struct {
	stubScreen
	closed bool
}

func (s *closableScreen) Close() { s.closed = true }

func TestPopClosesScreen(t *testing.T) {
	s1 := &stubScreen{title: "first"}
	r := New(s1)

	s2 := &closableScreen{stubScreen: stubScreen{title: "second"}}
	r.Push(s2)
	r.Pop()

	if !s2.closed {
		t.Error("expected Close() to run on popped screen")
	}
}

func TestReplaceClosesPreviousScreen(t *testing.T) {
	s1 := &closableScreen{stubScreen: stubScreen{title: "splash"}}
	r := New(s1)

	s2 := &stubScreen{title: "chat"}
	r.Replace(s2)

	if !s1.closed {
		t.Error("expected Close() to run on replaced screen")
	}
}

func TestUpdateNavigationMessages(t *testing.T) {
	s1 := &stubScreen{title: "first"}
	r := New(s1)

	s2 := &stubScreen{title: "second"}
	r.Update(PushScreenMsg{Screen: s2})
	if r.Active().Title() != "second" {
		t.Fatalf("push via Update failed, active = %q", r.Active().Title())
	}

	s3 := &stubScreen{title: "third"}
	r.Update(ReplaceScreenMsg{Screen: s3})
	if r.Active().Title() != "third" || r.Depth() != 2 {
		t.Fatalf("replace via Update failed, active = %q depth = %d", r.Active().Title(), r.Depth())
	}

	r.Update(PopScreenMsg{})
	if r.Active().Title() != "first" {
		t.Fatalf("pop via Update failed, active = %q", r.Active().Title())
	}
}
