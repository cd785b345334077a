package domain

import "time"

// Realtime event names, shared by both directions of the channel.
const (
	EventMessageSend = "message:send"
	EventMessageNew  = "message:new"
	EventMessageSent = "message:sent"
	EventMessageRead = "message:read"
	EventTypingStart = "typing:start"
	EventTypingStop  = "typing:stop"
	EventUserStatus  = "user:status"
	EventError       = "error"
)

// Event is one server-to-client notification queued on a connection.
type Event struct {
	Name    string
	Payload any
}

// PresenceEvent is emitted whenever a session is created or destroyed.
type PresenceEvent struct {
	Identity string
	Online   bool
}

// TypingKind distinguishes typing-start from typing-stop signals.
type TypingKind string

const (
	TypingStart TypingKind = "start"
	TypingStop  TypingKind = "stop"
)

// EventName returns the wire event used to forward a signal of this kind.
func (k TypingKind) EventName() string {
	if k == TypingStop {
		return EventTypingStop
	}
	return EventTypingStart
}

// --- Server -> client payloads ---

type NewMessagePayload struct {
	ID   string    `json:"id"`
	From string    `json:"from"`
	Text string    `json:"text"`
	TS   time.Time `json:"ts"`
}

type MessageSentPayload struct {
	ID        string `json:"id"`
	Delivered bool   `json:"delivered"`
}

type MessageReadPayload struct {
	IDs []string `json:"ids"`
}

type TypingPayload struct {
	From string `json:"from"`
}

type UserStatusPayload struct {
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

// ErrorPayload tells a client that the action it triggered failed and can be retried.
type ErrorPayload struct {
	Event string `json:"event"`
	Error string `json:"error"`
}
