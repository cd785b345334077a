package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/directchat/chat-server/internal/core/domain"
	"github.com/directchat/chat-server/internal/core/ports"
)

// ---------------------------------------------------------------------------
// recordingConn captures every event queued on it.
// ---------------------------------------------------------------------------

type recordingConn struct {
	id       string
	identity string
	sendErr  error

	mu     sync.Mutex
	events []domain.Event
	closed int
}

func newConn(id, identity string) *recordingConn {
	return &recordingConn{id: id, identity: identity}
}

func (c *recordingConn) ID() string       { return c.id }
func (c *recordingConn) Identity() string { return c.identity }

func (c *recordingConn) Send(ev domain.Event) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *recordingConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// named returns the events with the given wire name.
func (c *recordingConn) named(name string) []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Event
	for _, ev := range c.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (c *recordingConn) statuses() []domain.UserStatusPayload {
	var out []domain.UserStatusPayload
	for _, ev := range c.named(domain.EventUserStatus) {
		out = append(out, ev.Payload.(domain.UserStatusPayload))
	}
	return out
}

// ---------------------------------------------------------------------------
// stubPresenceStore
// ---------------------------------------------------------------------------

type onlineCall struct {
	username string
	online   bool
}

type stubPresenceStore struct {
	mu    sync.Mutex
	err   error
	calls []onlineCall
}

func (s *stubPresenceStore) SetOnline(_ context.Context, username string, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, onlineCall{username: username, online: online})
	return nil
}

func (s *stubPresenceStore) recorded() []onlineCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]onlineCall(nil), s.calls...)
}

// ---------------------------------------------------------------------------
// stubMessageStore is an in-memory MessageRepository.
// ---------------------------------------------------------------------------

type stubMessageStore struct {
	mu          sync.Mutex
	appendErr   error
	markReadErr error
	seq         int
	byID        map[string]*domain.Message
	order       []string
	markedRead  [][]string

	// onAppend runs after a successful Append, outside the lock.
	onAppend func()
}

func newStubMessageStore() *stubMessageStore {
	return &stubMessageStore{byID: make(map[string]*domain.Message)}
}

func (s *stubMessageStore) Append(_ context.Context, msg *domain.Message) (*domain.Message, error) {
	out, err := s.append(msg)
	if err == nil && s.onAppend != nil {
		s.onAppend()
	}
	return out, err
}

func (s *stubMessageStore) append(msg *domain.Message) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return nil, s.appendErr
	}
	s.seq++
	clone := *msg
	clone.ID = fmt.Sprintf("m%d", s.seq)
	clone.CreatedAt = time.Date(2026, 1, 1, 12, 0, s.seq, 0, time.UTC)
	s.byID[clone.ID] = &clone
	s.order = append(s.order, clone.ID)
	out := clone
	return &out, nil
}

func (s *stubMessageStore) MarkRead(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markReadErr != nil {
		return s.markReadErr
	}
	s.markedRead = append(s.markedRead, append([]string(nil), ids...))
	for _, id := range ids {
		if m, ok := s.byID[id]; ok {
			m.Read = true
		}
	}
	return nil
}

func (s *stubMessageStore) Conversation(_ context.Context, a, b string) ([]*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Message
	for _, id := range s.order {
		m := s.byID[id]
		if (m.From == a && m.To == b) || (m.From == b && m.To == a) {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *stubMessageStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *stubMessageStore) get(id string) *domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return nil
	}
	clone := *m
	return &clone
}

// ---------------------------------------------------------------------------
// stubUserRepo is an in-memory UserRepository.
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	users   map[string]*domain.User
	findErr error
	listErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, exists := r.users[user.Username]; exists {
		return nil, domain.ErrUserExists
	}
	copy := cloneUser(user)
	if copy.ID == "" {
		copy.ID = "id-" + user.Username
	}
	r.users[copy.Username] = cloneUser(copy)
	return cloneUser(copy), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) ListExcept(_ context.Context, username string) ([]*domain.User, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*domain.User
	for name, u := range r.users {
		if name != username {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *stubUserRepo) SetOnline(_ context.Context, username string, online bool) error {
	u, ok := r.users[username]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Online = online
	return nil
}

// ---------------------------------------------------------------------------
// stubDedup
// ---------------------------------------------------------------------------

type dedupEntry struct {
	id        string
	delivered bool
}

type stubDedup struct {
	lookupErr   error
	rememberErr error
	entries     map[string]dedupEntry
}

func newStubDedup() *stubDedup {
	return &stubDedup{entries: make(map[string]dedupEntry)}
}

func (d *stubDedup) Lookup(_ context.Context, sender, clientID string) (string, bool, bool, error) {
	if d.lookupErr != nil {
		return "", false, false, d.lookupErr
	}
	e, ok := d.entries[sender+":"+clientID]
	return e.id, e.delivered, ok, nil
}

func (d *stubDedup) Remember(_ context.Context, sender, clientID, id string, delivered bool) error {
	if d.rememberErr != nil {
		return d.rememberErr
	}
	d.entries[sender+":"+clientID] = dedupEntry{id: id, delivered: delivered}
	return nil
}

var _ ports.MessageRepository = (*stubMessageStore)(nil)
var _ ports.UserRepository = (*stubUserRepo)(nil)
