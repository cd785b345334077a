package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/directchat/chat-server/internal/core/domain"
)

type stubConversationService struct {
	users    []*domain.User
	history  []*domain.Message
	err      error
	lastPeer string
}

func (s *stubConversationService) ListUsers(_ context.Context, caller string) ([]*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.users, nil
}

func (s *stubConversationService) History(_ context.Context, caller, peer string) ([]*domain.Message, error) {
	s.lastPeer = peer
	if s.err != nil {
		return nil, s.err
	}
	return s.history, nil
}

func TestUserHandler_List(t *testing.T) {
	e := newTestEcho()
	svc := &stubConversationService{users: []*domain.User{
		{ID: "1", Username: "bob", Online: true, PasswordHash: "x"},
		{ID: "2", Username: "carol"},
	}}
	h := NewUserHandler(svc)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/users", nil), rec)
	c.Set("username", "alice")

	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var got []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got) != 2 || got[0]["username"] != "bob" || got[0]["online"] != true || got[1]["online"] != false {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if _, ok := got[0]["password"]; ok {
		t.Fatalf("password must not be exposed")
	}
}

func TestUserHandler_List_MissingIdentity(t *testing.T) {
	e := newTestEcho()
	h := NewUserHandler(&stubConversationService{})

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/users", nil), httptest.NewRecorder())
	if code := httpCode(t, h.List(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestConversationHandler_Messages(t *testing.T) {
	e := newTestEcho()
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := &stubConversationService{history: []*domain.Message{
		{ID: "m1", From: "alice", To: "bob", Text: "hi", Delivered: true, CreatedAt: ts},
	}}
	h := NewConversationHandler(svc)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/conversations/bob/messages", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("bob")
	c.Set("username", "alice")

	if err := h.Messages(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if svc.lastPeer != "bob" {
		t.Fatalf("expected peer bob, got %q", svc.lastPeer)
	}

	var got []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got) != 1 || got[0]["id"] != "m1" || got[0]["ts"] != "2026-03-01T10:00:00Z" || got[0]["read"] != false {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestConversationHandler_StoreError(t *testing.T) {
	e := newTestEcho()
	h := NewConversationHandler(&stubConversationService{err: domain.ErrStoreUnavailable})

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("bob")
	c.Set("username", "alice")

	if err := h.Messages(c); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
