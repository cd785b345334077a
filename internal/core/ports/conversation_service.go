package ports

import (
	"context"

	"github.com/directchat/chat-server/internal/core/domain"
)

// ConversationService backs the user-listing and history endpoints.
type ConversationService interface {
	ListUsers(ctx context.Context, caller string) ([]*domain.User, error)
	History(ctx context.Context, caller, peer string) ([]*domain.Message, error)
}
