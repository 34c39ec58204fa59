package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/abhisek/vidya/internal/chat"
	"github.com/abhisek/vidya/internal/store"
)

func newSession(t *testing.T) (*chat.Session, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return chat.NewSession(mem, mem), mem
}

func TestSelectClassCreatesFirstConversation(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)

	conv, err := s.SelectClass(ctx, chat.Class7)
	if err != nil {
		t.Fatalf("SelectClass: %v", err)
	}
	if conv == nil || conv.ID == "" {
		t.Fatal("expected a fresh conversation with an id")
	}
	if conv.Class != chat.Class7 {
		t.Errorf("Class = %d, want %d", conv.Class, chat.Class7)
	}
	if len(conv.Messages) != 0 {
		t.Errorf("new conversation has %d messages, want 0", len(conv.Messages))
	}
	if got := s.ActiveID(); got != conv.ID {
		t.Errorf("ActiveID = %q, want %q", got, conv.ID)
	}
}

func TestSelectClassRemembersConversationPerClass(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)

	first, err := s.SelectClass(ctx, chat.Class8)
	if err != nil {
		t.Fatalf("SelectClass(8): %v", err)
	}
	second, err := s.NewConversation(ctx, chat.Class8)
	if err != nil {
		t.Fatalf("NewConversation: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("NewConversation returned the existing conversation")
	}

	if _, err := s.SelectClass(ctx, chat.ClassJEE); err != nil {
		t.Fatalf("SelectClass(JEE): %v", err)
	}
	back, err := s.SelectClass(ctx, chat.Class8)
	if err != nil {
		t.Fatalf("SelectClass(8) again: %v", err)
	}
	if back.ID != second.ID {
		t.Errorf("returned to conversation %q, want remembered %q", back.ID, second.ID)
	}
}

func TestSelectClassRejectsInvalidClass(t *testing.T) {
	s, _ := newSession(t)
	if _, err := s.SelectClass(context.Background(), chat.Class(5)); err == nil {
		t.Error("SelectClass(5) succeeded, want error")
	}
	if _, err := s.SelectClass(context.Background(), chat.Class(15)); err == nil {
		t.Error("SelectClass(15) succeeded, want error")
	}
}

func TestLoadRestoresActiveClass(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	s := chat.NewSession(mem, mem)

	if _, err := s.SelectClass(ctx, chat.ClassNEET); err != nil {
		t.Fatalf("SelectClass: %v", err)
	}

	// A fresh session over the same store sees the persisted class.
	s2 := chat.NewSession(mem, mem)
	class, err := s2.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if class != chat.ClassNEET {
		t.Errorf("Load = %d, want %d", class, chat.ClassNEET)
	}
}

func TestLoadFirstRunReturnsZero(t *testing.T) {
	s, _ := newSession(t)
	class, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if class != 0 {
		t.Errorf("Load = %d, want 0 on first run", class)
	}
}

func TestDeleteActiveSelectsMostRecentRemaining(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)

	old, err := s.SelectClass(ctx, chat.Class9)
	if err != nil {
		t.Fatalf("SelectClass: %v", err)
	}
	newer, err := s.NewConversation(ctx, chat.Class9)
	if err != nil {
		t.Fatalf("NewConversation: %v", err)
	}

	next, err := s.DeleteConversation(ctx, newer.ID)
	if err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if next == nil || next.ID != old.ID {
		t.Fatalf("active after delete = %+v, want %q", next, old.ID)
	}
	if got := s.ActiveID(); got != old.ID {
		t.Errorf("ActiveID = %q, want %q", got, old.ID)
	}
}

func TestDeleteLastConversationCreatesFreshOne(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)

	only, err := s.SelectClass(ctx, chat.Class10)
	if err != nil {
		t.Fatalf("SelectClass: %v", err)
	}
	next, err := s.DeleteConversation(ctx, only.ID)
	if err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if next == nil {
		t.Fatal("expected a fresh conversation after deleting the last one")
	}
	if next.ID == only.ID {
		t.Error("fresh conversation reused the deleted id")
	}
	if len(next.Messages) != 0 {
		t.Errorf("fresh conversation has %d messages, want 0", len(next.Messages))
	}
	if got := s.ActiveID(); got != next.ID {
		t.Errorf("ActiveID = %q, want %q", got, next.ID)
	}
}

func TestDeleteNonActiveKeepsActive(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)

	first, err := s.SelectClass(ctx, chat.Class6)
	if err != nil {
		t.Fatalf("SelectClass: %v", err)
	}
	active, err := s.NewConversation(ctx, chat.Class6)
	if err != nil {
		t.Fatalf("NewConversation: %v", err)
	}

	next, err := s.DeleteConversation(ctx, first.ID)
	if err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if next != nil {
		t.Errorf("deleting non-active returned %q, want nil", next.ID)
	}
	if got := s.ActiveID(); got != active.ID {
		t.Errorf("ActiveID = %q, want unchanged %q", got, active.ID)
	}
}

func TestAppendAndReplaceByID(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)

	conv, err := s.SelectClass(ctx, chat.Class11)
	if err != nil {
		t.Fatalf("SelectClass: %v", err)
	}
	target := conv.ID

	// Navigate away; mutations by id must still land in target.
	if _, err := s.NewConversation(ctx, chat.Class11); err != nil {
		t.Fatalf("NewConversation: %v", err)
	}

	if _, err := s.AppendMessageTo(ctx, target, chat.Message{Role: chat.RoleUser, Text: "hi"}); err != nil {
		t.Fatalf("AppendMessageTo: %v", err)
	}
	if _, err := s.AppendMessageTo(ctx, target, chat.Message{Role: chat.RoleModel}); err != nil {
		t.Fatalf("AppendMessageTo placeholder: %v", err)
	}
	if _, err := s.ReplaceLastMessageTo(ctx, target, chat.Message{Role: chat.RoleModel, Text: "hello"}); err != nil {
		t.Fatalf("ReplaceLastMessageTo: %v", err)
	}

	got, err := s.Conversation(ctx, target)
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(got.Messages))
	}
	if got.Messages[1].Text != "hello" {
		t.Errorf("last message = %q, want %q", got.Messages[1].Text, "hello")
	}

	current, err := s.Active(ctx)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if len(current.Messages) != 0 {
		t.Errorf("active conversation has %d messages, want 0", len(current.Messages))
	}
}

func TestReplaceAppendsWhenNoModelTail(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)

	conv, err := s.SelectClass(ctx, chat.Class12)
	if err != nil {
		t.Fatalf("SelectClass: %v", err)
	}
	if _, err := s.AppendMessageTo(ctx, conv.ID, chat.Message{Role: chat.RoleUser, Text: "q"}); err != nil {
		t.Fatalf("AppendMessageTo: %v", err)
	}
	got, err := s.ReplaceLastMessageTo(ctx, conv.ID, chat.Message{Role: chat.RoleModel, Text: "a"})
	if err != nil {
		t.Fatalf("ReplaceLastMessageTo: %v", err)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("got %d messages, want 2 (replace must append after a user turn)", len(got.Messages))
	}
}

func TestTitleGuardFiresOnce(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)

	conv, err := s.SelectClass(ctx, chat.Class8)
	if err != nil {
		t.Fatalf("SelectClass: %v", err)
	}
	s.AppendMessageTo(ctx, conv.ID, chat.Message{Role: chat.RoleUser, Text: "q"})
	conv, _ = s.AppendMessageTo(ctx, conv.ID, chat.Message{Role: chat.RoleModel, Text: "a"})

	if !s.TitleNeeded(conv) {
		t.Fatal("TitleNeeded = false for a first exchange with no title")
	}
	if !s.BeginTitle(conv.ID) {
		t.Fatal("BeginTitle = false on first call")
	}
	if s.BeginTitle(conv.ID) {
		t.Error("BeginTitle = true on second call, want consumed")
	}
	if s.TitleNeeded(conv) {
		t.Error("TitleNeeded = true after BeginTitle")
	}
}

func TestTitleNotNeededCases(t *testing.T) {
	s, _ := newSession(t)

	twoMsgs := []chat.Message{
		{Role: chat.RoleUser, Text: "q"},
		{Role: chat.RoleModel, Text: "a"},
	}
	cases := []struct {
		name string
		conv *chat.Conversation
	}{
		{"nil conversation", nil},
		{"already titled", &chat.Conversation{ID: "a", Title: "Algebra", Messages: twoMsgs}},
		{"only one message", &chat.Conversation{ID: "b", Messages: twoMsgs[:1]}},
		{"beyond first exchange", &chat.Conversation{ID: "c", Messages: append(append([]chat.Message{}, twoMsgs...), twoMsgs...)}},
		{"reply still streaming", &chat.Conversation{ID: "d", Messages: []chat.Message{
			{Role: chat.RoleUser, Text: "q"},
			{Role: chat.RoleModel},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if s.TitleNeeded(tc.conv) {
				t.Error("TitleNeeded = true, want false")
			}
		})
	}
}

func TestSearchAndImageAreMutuallyExclusive(t *testing.T) {
	s, _ := newSession(t)

	s.SetPendingImage("data:image/png;base64,xyz")
	if on := s.ToggleSearch(); !on {
		t.Fatal("ToggleSearch = false, want true")
	}
	if img := s.TakePendingImage(); img != "" {
		t.Errorf("pending image survived enabling search: %q", img)
	}

	s.SetPendingImage("data:image/png;base64,abc")
	if s.SearchEnabled() {
		t.Error("search still enabled after attaching an image")
	}
	if img := s.TakePendingImage(); img != "data:image/png;base64,abc" {
		t.Errorf("TakePendingImage = %q", img)
	}
	if img := s.TakePendingImage(); img != "" {
		t.Errorf("second TakePendingImage = %q, want empty", img)
	}
}

func TestConversationSwitchListener(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)

	fired := 0
	s.OnConversationSwitch(func() { fired++ })

	if _, err := s.SelectClass(ctx, chat.Class6); err != nil {
		t.Fatalf("SelectClass: %v", err)
	}
	if fired == 0 {
		t.Error("listener did not fire on class selection")
	}

	before := fired
	if _, err := s.NewConversation(ctx, chat.Class6); err != nil {
		t.Fatalf("NewConversation: %v", err)
	}
	if fired <= before {
		t.Error("listener did not fire on new conversation")
	}
}

func TestConversationSwitchListenerRemove(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)

	first, second := 0, 0
	remove := s.OnConversationSwitch(func() { first++ })
	s.OnConversationSwitch(func() { second++ })

	if _, err := s.SelectClass(ctx, chat.Class6); err != nil {
		t.Fatalf("SelectClass: %v", err)
	}
	if first == 0 || second == 0 {
		t.Fatal("both listeners should fire before removal")
	}

	remove()
	before := first
	if _, err := s.NewConversation(ctx, chat.Class6); err != nil {
		t.Fatalf("NewConversation: %v", err)
	}
	if first != before {
		t.Error("removed listener still fires")
	}
	if second <= 1 {
		t.Error("remaining listener stopped firing")
	}
}

func TestCreatedAtFromID(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	id := chat.NewConversationID(now)

	got, ok := chat.CreatedAtFromID(id)
	if !ok {
		t.Fatalf("CreatedAtFromID(%q) not ok", id)
	}
	if !got.Equal(now) {
		t.Errorf("CreatedAtFromID = %v, want %v", got, now)
	}

	for _, bad := range []string{"", "abc", "-12-x", "0-x"} {
		if _, ok := chat.CreatedAtFromID(bad); ok {
			t.Errorf("CreatedAtFromID(%q) ok, want false", bad)
		}
	}
}
