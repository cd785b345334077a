package ports

import "github.com/directchat/chat-server/internal/core/domain"

// Conn is a handle on one live, authenticated client channel.
type Conn interface {
	// ID is unique per physical connection; two connections of the same
	// identity never share it.
	ID() string
	Identity() string
	// Send queues ev for delivery without blocking. Events sent to one Conn are
	// written in the order they were queued.
	Send(ev domain.Event) error
	// Close tears the channel down. Calling it more than once is safe.
	Close() error
}
