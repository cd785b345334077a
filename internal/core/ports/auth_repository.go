package ports

import (
	"context"

	"github.com/directchat/chat-server/internal/core/domain"
)

// UserRepository defines persistence for accounts and their durable online flag.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// ListExcept returns every user other than username, sorted by username.
	ListExcept(ctx context.Context, username string) ([]*domain.User, error)
	PresenceStore
}

// PresenceStore is the slice of the user store the lifecycle manager needs.
type PresenceStore interface {
	SetOnline(ctx context.Context, username string, online bool) error
}
