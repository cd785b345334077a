// Package memory provides process-local user and message stores. They back
// STORE_DRIVER=memory and the end-to-end tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/directchat/chat-server/internal/core/domain"
	"github.com/directchat/chat-server/internal/core/ports"
)

// UserStore keeps accounts keyed by username.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*domain.User)}
}

func (s *UserStore) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return nil, domain.ErrUserExists
	}
	u := *user
	u.ID = primitive.NewObjectID().Hex()
	u.Online = false
	s.users[u.Username] = &u

	out := u
	return &out, nil
}

func (s *UserStore) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (s *UserStore) ListExcept(_ context.Context, username string) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.User, 0, len(s.users))
	for name, u := range s.users {
		if name == username {
			continue
		}
		c := *u
		c.PasswordHash = ""
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *UserStore) SetOnline(_ context.Context, username string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[username]; ok {
		u.Online = online
		u.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// MessageStore keeps messages in insertion order.
type MessageStore struct {
	mu    sync.RWMutex
	order []*domain.Message
	byID  map[string]*domain.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{byID: make(map[string]*domain.Message)}
}

func (s *MessageStore) Append(_ context.Context, msg *domain.Message) (*domain.Message, error) {
	m := *msg
	m.ID = primitive.NewObjectID().Hex()
	m.Read = false
	m.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	s.order = append(s.order, &m)
	s.byID[m.ID] = &m
	s.mu.Unlock()

	out := m
	return &out, nil
}

// MarkRead uses the same id format as the Mongo store so clients see identical
// validation in both modes.
func (s *MessageStore) MarkRead(_ context.Context, ids []string) error {
	for _, id := range ids {
		if !primitive.IsValidObjectID(id) {
			return fmt.Errorf("mark read: %w: invalid id %q", domain.ErrMalformedPayload, id)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if m, ok := s.byID[id]; ok {
			m.Read = true
		}
	}
	return nil
}

func (s *MessageStore) Conversation(_ context.Context, a, b string) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*domain.Message{}
	for _, m := range s.order {
		if (m.From == a && m.To == b) || (m.From == b && m.To == a) {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

var (
	_ ports.UserRepository    = (*UserStore)(nil)
	_ ports.MessageRepository = (*MessageStore)(nil)
)
