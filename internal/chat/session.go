package chat

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// Preference keys. The per-conversation key is suffixed with the class
// number so each class remembers its own open conversation.
const (
	prefActiveClass   = "active_class"
	prefActiveConvFmt = "active_conv_%d"
)

// Session is the single source of truth for which conversations exist for
// the active class and which one is open. It is the only component that
// mutates a conversation's message list. Mutating methods address
// conversations by id so that a streamed update started in one conversation
// still lands there after the user navigates away.
type Session struct {
	mu    sync.Mutex
	convs ConversationRepo
	prefs PrefsRepo

	activeClass Class
	activeConv  map[Class]string

	titleStarted map[string]bool

	streaming     bool
	searchEnabled bool
	pendingImage  string

	onSwitch     map[int]func()
	nextSwitchID int
}

// NewSession creates a session backed by the given repositories.
func NewSession(convs ConversationRepo, prefs PrefsRepo) *Session {
	return &Session{
		convs:        convs,
		prefs:        prefs,
		activeConv:   make(map[Class]string),
		titleStarted: make(map[string]bool),
		onSwitch:     make(map[int]func()),
	}
}

// Load restores the previously active class from preferences. It returns
// zero when no class has been selected yet (first run).
func (s *Session) Load(ctx context.Context) (Class, error) {
	v, err := s.prefs.GetPref(ctx, prefActiveClass)
	if err != nil {
		return 0, fmt.Errorf("load active class: %w", err)
	}
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || !Class(n).Valid() {
		return 0, nil
	}
	return Class(n), nil
}

// OnConversationSwitch registers fn to run whenever the open conversation
// changes. The quiz screen uses this to discard quiz state. The returned
// func deregisters fn; callers invoke it when they stop listening.
func (s *Session) OnConversationSwitch(fn func()) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSwitchID
	s.nextSwitchID++
	s.onSwitch[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.onSwitch, id)
		s.mu.Unlock()
	}
}

// notifySwitch runs the registered listeners. Callers hold s.mu.
func (s *Session) notifySwitch() {
	for _, fn := range s.onSwitch {
		fn()
	}
}

// ActiveClass returns the currently selected class (zero before SelectClass).
func (s *Session) ActiveClass() Class {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeClass
}

// SelectClass swaps the active class and returns the conversation that
// becomes active: the remembered one if it still exists, else the most
// recently created, else a freshly created empty conversation.
func (s *Session) SelectClass(ctx context.Context, class Class) (*Conversation, error) {
	if !class.Valid() {
		return nil, fmt.Errorf("invalid class %d", int(class))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeClass = class
	if err := s.prefs.SetPref(ctx, prefActiveClass, strconv.Itoa(int(class))); err != nil {
		return nil, fmt.Errorf("persist active class: %w", err)
	}

	convs, err := s.convs.ListByClass(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("list class %d: %w", int(class), err)
	}
	if len(convs) == 0 {
		return s.newConversationLocked(ctx, class)
	}

	if id := s.rememberedConv(ctx, class); id != "" {
		for _, c := range convs {
			if c.ID == id {
				s.activeConv[class] = id
				return c, nil
			}
		}
	}

	newest := convs[0]
	for _, c := range convs[1:] {
		if c.CreatedAt.After(newest.CreatedAt) {
			newest = c
		}
	}
	return s.setActiveLocked(ctx, newest)
}

// rememberedConv returns the persisted active conversation id for class,
// preferring the in-memory map for ids selected this session.
func (s *Session) rememberedConv(ctx context.Context, class Class) string {
	if id, ok := s.activeConv[class]; ok {
		return id
	}
	id, err := s.prefs.GetPref(ctx, fmt.Sprintf(prefActiveConvFmt, int(class)))
	if err != nil {
		return ""
	}
	return id
}

// NewConversation creates an empty conversation for class, persists it, and
// makes it active.
func (s *Session) NewConversation(ctx context.Context, class Class) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newConversationLocked(ctx, class)
}

func (s *Session) newConversationLocked(ctx context.Context, class Class) (*Conversation, error) {
	conv := &Conversation{
		Class: class,
	}
	stored, err := s.convs.Add(ctx, conv)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return s.setActiveLocked(ctx, stored)
}

func (s *Session) setActiveLocked(ctx context.Context, conv *Conversation) (*Conversation, error) {
	s.activeConv[conv.Class] = conv.ID
	key := fmt.Sprintf(prefActiveConvFmt, int(conv.Class))
	if err := s.prefs.SetPref(ctx, key, conv.ID); err != nil {
		return nil, fmt.Errorf("persist active conversation: %w", err)
	}
	s.notifySwitch()
	return conv, nil
}

// SelectConversation opens the conversation with the given id. Switching
// conversations discards any in-progress quiz (via the switch listeners).
func (s *Session) SelectConversation(ctx context.Context, id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.convs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %s not found", id)
	}
	return s.setActiveLocked(ctx, conv)
}

// DeleteConversation removes the conversation. When the active conversation
// is deleted, the most recent remaining one for that class becomes active;
// with none remaining a fresh empty conversation is created. The returned
// conversation is the active one afterwards (nil when a non-active
// conversation of another class was removed).
func (s *Session) DeleteConversation(ctx context.Context, id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.convs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, nil
	}

	if err := s.convs.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete conversation: %w", err)
	}

	if s.activeConv[conv.Class] != id {
		return nil, nil
	}
	delete(s.activeConv, conv.Class)

	remaining, err := s.convs.ListByClass(ctx, conv.Class)
	if err != nil {
		return nil, err
	}
	if len(remaining) == 0 {
		return s.newConversationLocked(ctx, conv.Class)
	}
	newest := remaining[0]
	for _, c := range remaining[1:] {
		if c.CreatedAt.After(newest.CreatedAt) {
			newest = c
		}
	}
	return s.setActiveLocked(ctx, newest)
}

// Active returns the open conversation for the active class, or nil when
// none has been selected yet.
func (s *Session) Active(ctx context.Context) (*Conversation, error) {
	s.mu.Lock()
	id := s.activeConv[s.activeClass]
	s.mu.Unlock()
	if id == "" {
		return nil, nil
	}
	return s.convs.Get(ctx, id)
}

// Conversation fetches a conversation by id, active or not. Returns nil
// when absent.
func (s *Session) Conversation(ctx context.Context, id string) (*Conversation, error) {
	return s.convs.Get(ctx, id)
}

// ActiveID returns the open conversation id for the active class.
func (s *Session) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeConv[s.activeClass]
}

// List returns the active class's conversations, pinned first then newest.
func (s *Session) List(ctx context.Context) ([]*Conversation, error) {
	s.mu.Lock()
	class := s.activeClass
	s.mu.Unlock()
	return s.convs.ListByClass(ctx, class)
}

// AppendMessageTo pushes a message onto the conversation with the given id
// and persists it.
func (s *Session) AppendMessageTo(ctx context.Context, id string, msg Message) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.convs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %s not found", id)
	}
	conv.Messages = append(conv.Messages, msg)
	if err := s.convs.Update(ctx, conv); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}
	return conv, nil
}

// ReplaceLastMessageTo replaces the conversation's trailing model message in
// place, or appends when the last message is not a model turn. Used both for
// streaming updates and for placing a finalized model reply.
func (s *Session) ReplaceLastMessageTo(ctx context.Context, id string, msg Message) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.convs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation %s not found", id)
	}
	if last := conv.LastMessage(); last != nil && last.Role == RoleModel {
		conv.Messages[len(conv.Messages)-1] = msg
	} else {
		conv.Messages = append(conv.Messages, msg)
	}
	if err := s.convs.Update(ctx, conv); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}
	return conv, nil
}

// SetTitle writes the generated title back onto the conversation.
func (s *Session) SetTitle(ctx context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.convs.Get(ctx, id)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("conversation %s not found", id)
	}
	conv.Title = title
	return s.convs.Update(ctx, conv)
}

// TogglePin flips the pinned flag and persists it.
func (s *Session) TogglePin(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.convs.Get(ctx, id)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("conversation %s not found", id)
	}
	conv.Pinned = !conv.Pinned
	return s.convs.Update(ctx, conv)
}

// TitleNeeded reports whether conv qualifies for automatic title generation:
// exactly one completed user+model exchange, no title yet, and generation
// not already started for it.
func (s *Session) TitleNeeded(conv *Conversation) bool {
	if conv == nil || conv.Title != "" || len(conv.Messages) != 2 {
		return false
	}
	if conv.HasPendingPlaceholder() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.titleStarted[conv.ID]
}

// BeginTitle consumes the once-per-conversation title guard. It returns
// false when generation was already started, so callers never double-fire.
func (s *Session) BeginTitle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.titleStarted[id] {
		return false
	}
	s.titleStarted[id] = true
	return true
}

// SetStreaming marks whether a chat request is in flight. The chat screen
// disables sending while this is set.
func (s *Session) SetStreaming(v bool) {
	s.mu.Lock()
	s.streaming = v
	s.mu.Unlock()
}

// IsStreaming reports whether a chat request is in flight.
func (s *Session) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// ToggleSearch flips the web-search flag and returns the new value.
// Enabling search drops any pending image; the two are mutually exclusive.
func (s *Session) ToggleSearch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchEnabled = !s.searchEnabled
	if s.searchEnabled {
		s.pendingImage = ""
	}
	return s.searchEnabled
}

// SearchEnabled reports whether grounded web search is on.
func (s *Session) SearchEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchEnabled
}

// SetPendingImage attaches an image (as a data URL) to the next message and
// turns web search off.
func (s *Session) SetPendingImage(dataURL string) {
	s.mu.Lock()
	s.pendingImage = dataURL
	s.searchEnabled = false
	s.mu.Unlock()
}

// TakePendingImage returns and clears the pending attachment.
func (s *Session) TakePendingImage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	img := s.pendingImage
	s.pendingImage = ""
	return img
}
