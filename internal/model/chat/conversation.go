package chat

import "time"

// State is a point-in-time view of a conversation for the presentation layer.
type State struct {
	ConversationID string    `json:"conversationId"`
	CreatedAt      time.Time `json:"createdAt"`
	Messages       []Message `json:"messages"`
	Busy           bool      `json:"busy"`
	Notice         string    `json:"notice,omitempty"`
}

// EventType enumerates the updates a conversation publishes.
type EventType string

const (
	EventState   EventType = "state"
	EventMessage EventType = "message"
	EventBusy    EventType = "busy"
	EventNotice  EventType = "notice"
)

// Event is pushed to subscribers whenever the transcript, busy flag or notice changes.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversationId"`
	Message        *Message  `json:"message,omitempty"`
	State          *State    `json:"state,omitempty"`
	Busy           bool      `json:"busy"`
	Notice         string    `json:"notice,omitempty"`
}
