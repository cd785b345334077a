package ports

import (
	"context"

	"github.com/directchat/chat-server/internal/core/domain"
)

// MessageStore is what the realtime core needs from durable message storage.
type MessageStore interface {
	// Append persists msg and returns it with ID and CreatedAt assigned by the store.
	Append(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	// MarkRead sets read=true on every message in ids. Unknown ids are ignored.
	MarkRead(ctx context.Context, ids []string) error
}

// MessageRepository adds history queries used by the REST layer.
type MessageRepository interface {
	MessageStore
	// Conversation returns the messages exchanged between a and b in both
	// directions, oldest first.
	Conversation(ctx context.Context, a, b string) ([]*domain.Message, error)
}
