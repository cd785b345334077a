package domain

import "time"

// Message is a single direct message between two identities.
//
// ID and CreatedAt are assigned by the store on append. Delivered is decided
// once, at send time, and never re-evaluated. Read only moves false -> true.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Text      string    `json:"text"`
	Delivered bool      `json:"delivered"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"ts"`
}
