package chat

import (
	"github.com/abhisek/vidya/internal/assistant"
	chatpkg "github.com/abhisek/vidya/internal/chat"
)

// AssistantEventMsg wraps a coordinator event. The app-level pump delivers
// these so streamed replies keep flowing even while another screen is open.
type AssistantEventMsg struct {
	Event assistant.Event
}

// convLoadedMsg carries the freshly loaded active conversation.
type convLoadedMsg struct {
	Conv *chatpkg.Conversation
	Err  error
}

// sendFinishedMsg reports that a Send or Summarize call returned. The error
// is only set for failures before the request started (storage problems);
// provider failures surface through the event stream instead.
type sendFinishedMsg struct {
	Err error
}

// imageAttachedMsg reports the outcome of encoding an attachment.
type imageAttachedMsg struct {
	Path string
	Err  error
}
