package ports

import (
	"context"

	"github.com/directchat/chat-server/internal/core/domain"
)

// SendInput is the decoded message:send request.
type SendInput struct {
	To   string
	Text string
	// ClientID is an optional client-chosen key that makes resends idempotent.
	ClientID string
}

// SendResult is what the sender is acknowledged with.
type SendResult struct {
	ID        string
	Delivered bool
	// Replayed is true when ClientID matched an earlier send.
	Replayed bool
}

// ReadInput is the decoded message:read request.
type ReadInput struct {
	From string
	IDs  []string
}

// Lifecycle admits and retires connections.
type Lifecycle interface {
	Connect(ctx context.Context, conn Conn) error
	Disconnect(ctx context.Context, conn Conn)
}

type MessageRouter interface {
	// Send returns a nil result and nil error when the message was dropped
	// because its text is blank.
	Send(ctx context.Context, sender Conn, in SendInput) (*SendResult, error)
}

type TypingRelay interface {
	Relay(ctx context.Context, from Conn, to string, kind domain.TypingKind) error
}

type ReceiptPropagator interface {
	MarkRead(ctx context.Context, reader Conn, in ReadInput) error
}
