package ports

import (
	"context"

	"github.com/directchat/chat-server/internal/core/domain"
)

type AuthService interface {
	Register(ctx context.Context, username, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
}

// TokenVerifier resolves an identity token to the username it was issued for.
// Implementations also confirm the account still exists.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}
