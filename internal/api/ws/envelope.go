package ws

import "encoding/json"

// inbound is the client frame: {"event": "...", "data": {...}}.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type sendMessageRequest struct {
	To       string `json:"to" validate:"required"`
	Text     string `json:"text"`
	ClientID string `json:"clientId" validate:"omitempty,max=128"`
}

type typingRequest struct {
	To string `json:"to" validate:"required"`
}

type readRequest struct {
	From string   `json:"from" validate:"required"`
	IDs  []string `json:"ids" validate:"dive,required"`
}
