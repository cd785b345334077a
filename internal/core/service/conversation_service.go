package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/directchat/chat-server/internal/core/domain"
	"github.com/directchat/chat-server/internal/core/ports"
)

type ConversationService struct {
	users    ports.UserRepository
	messages ports.MessageRepository
	logger   zerolog.Logger
}

func NewConversationService(users ports.UserRepository, messages ports.MessageRepository, logger zerolog.Logger) *ConversationService {
	return &ConversationService{users: users, messages: messages, logger: logger}
}

// ListUsers returns every account except the caller, with its online flag.
func (s *ConversationService) ListUsers(ctx context.Context, caller string) ([]*domain.User, error) {
	users, err := s.users.ListExcept(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("list users: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return users, nil
}

// History returns the conversation between caller and peer, oldest first.
func (s *ConversationService) History(ctx context.Context, caller, peer string) ([]*domain.Message, error) {
	if peer == "" {
		return nil, fmt.Errorf("history: %w: missing peer", domain.ErrMalformedPayload)
	}

	msgs, err := s.messages.Conversation(ctx, caller, peer)
	if err != nil {
		return nil, fmt.Errorf("history: %w: %w", domain.ErrStoreUnavailable, err)
	}

	s.logger.Debug().Str("username", caller).Str("peer", peer).Int("count", len(msgs)).Msg("history fetched")
	return msgs, nil
}
