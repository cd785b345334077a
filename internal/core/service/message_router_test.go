package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/directchat/chat-server/internal/core/domain"
	"github.com/directchat/chat-server/internal/core/ports"
	"github.com/directchat/chat-server/internal/core/session"
)

func newRouter(store *stubMessageStore, dedup SendDedup) (ports.MessageRouter, *session.Registry) {
	reg := session.NewRegistry()
	return NewMessageRouter(reg, store, dedup, zerolog.Nop()), reg
}

func TestMessageRouter_Send_RecipientOnline(t *testing.T) {
	store := newStubMessageStore()
	router, reg := newRouter(store, nil)

	alice := newConn("c-alice", "alice")
	bob := newConn("c-bob", "bob")
	reg.Register("alice", alice)
	reg.Register("bob", bob)

	res, err := router.Send(context.Background(), alice, ports.SendInput{To: "bob", Text: "hi bob"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil || !res.Delivered {
		t.Fatalf("expected delivered result, got %+v", res)
	}

	news := bob.named(domain.EventMessageNew)
	if len(news) != 1 {
		t.Fatalf("expected exactly one message:new, got %d", len(news))
	}
	p := news[0].Payload.(domain.NewMessagePayload)
	if p.ID != res.ID || p.From != "alice" || p.Text != "hi bob" || p.TS.IsZero() {
		t.Errorf("unexpected message:new payload: %+v", p)
	}

	sent := alice.named(domain.EventMessageSent)
	if len(sent) != 1 {
		t.Fatalf("expected exactly one message:sent, got %d", len(sent))
	}
	if ack := sent[0].Payload.(domain.MessageSentPayload); ack.ID != res.ID || !ack.Delivered {
		t.Errorf("unexpected ack: %+v", ack)
	}

	if stored := store.get(res.ID); stored == nil || !stored.Delivered {
		t.Errorf("expected stored message with delivered=true, got %+v", stored)
	}
}

func TestMessageRouter_Send_RecipientOffline(t *testing.T) {
	store := newStubMessageStore()
	router, reg := newRouter(store, nil)

	alice := newConn("c-alice", "alice")
	reg.Register("alice", alice)

	res, err := router.Send(context.Background(), alice, ports.SendInput{To: "bob", Text: "are you there?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Delivered {
		t.Fatalf("expected delivered=false")
	}

	sent := alice.named(domain.EventMessageSent)
	if len(sent) != 1 || sent[0].Payload.(domain.MessageSentPayload).Delivered {
		t.Fatalf("expected message:sent{delivered:false}, got %+v", sent)
	}

	history, _ := store.Conversation(context.Background(), "bob", "alice")
	if len(history) != 1 || history[0].Delivered {
		t.Fatalf("expected one undelivered message in history, got %+v", history)
	}
}

func TestMessageRouter_Send_BlankTextDropped(t *testing.T) {
	store := newStubMessageStore()
	router, reg := newRouter(store, nil)

	alice := newConn("c-alice", "alice")
	bob := newConn("c-bob", "bob")
	reg.Register("alice", alice)
	reg.Register("bob", bob)

	res, err := router.Send(context.Background(), alice, ports.SendInput{To: "bob", Text: "  \n\t "})
	if err != nil || res != nil {
		t.Fatalf("expected silent drop, got res=%+v err=%v", res, err)
	}
	if store.count() != 0 {
		t.Errorf("blank message must not be persisted")
	}
	if len(alice.named(domain.EventMessageSent)) != 0 || len(bob.named(domain.EventMessageNew)) != 0 {
		t.Errorf("blank message must not produce events")
	}
}

func TestMessageRouter_Send_MissingRecipient(t *testing.T) {
	store := newStubMessageStore()
	router, _ := newRouter(store, nil)

	_, err := router.Send(context.Background(), newConn("c-alice", "alice"), ports.SendInput{Text: "hello"})
	if !errors.Is(err, domain.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
	if store.count() != 0 {
		t.Errorf("nothing should be persisted")
	}
}

func TestMessageRouter_Send_StoreUnavailable(t *testing.T) {
	store := newStubMessageStore()
	store.appendErr = errors.New("mongo down")
	router, reg := newRouter(store, nil)

	alice := newConn("c-alice", "alice")
	bob := newConn("c-bob", "bob")
	reg.Register("alice", alice)
	reg.Register("bob", bob)

	_, err := router.Send(context.Background(), alice, ports.SendInput{To: "bob", Text: "hi"})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if len(bob.named(domain.EventMessageNew)) != 0 {
		t.Errorf("nothing may be forwarded when the append fails")
	}
	if len(alice.named(domain.EventMessageSent)) != 0 {
		t.Errorf("no ack expected when the append fails")
	}
}

func TestMessageRouter_Send_ForwardFailureStillAcks(t *testing.T) {
	store := newStubMessageStore()
	router, reg := newRouter(store, nil)

	alice := newConn("c-alice", "alice")
	bob := newConn("c-bob", "bob")
	bob.sendErr = domain.ErrConnClosed
	reg.Register("alice", alice)
	reg.Register("bob", bob)

	res, err := router.Send(context.Background(), alice, ports.SendInput{To: "bob", Text: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Delivery is decided by the presence snapshot, not by the write outcome.
	if !res.Delivered {
		t.Errorf("expected delivered=true from snapshot")
	}
	if len(alice.named(domain.EventMessageSent)) != 1 {
		t.Errorf("sender must still be acknowledged")
	}
	if store.count() != 1 {
		t.Errorf("message must remain stored")
	}
}

func TestMessageRouter_Send_RecipientLeavesAfterSnapshot(t *testing.T) {
	store := newStubMessageStore()
	router, reg := newRouter(store, nil)

	alice := newConn("c-alice", "alice")
	bob := newConn("c-bob", "bob")
	reg.Register("alice", alice)
	reg.Register("bob", bob)
	store.onAppend = func() { reg.Unregister("bob", bob) }

	res, err := router.Send(context.Background(), alice, ports.SendInput{To: "bob", Text: "just missed you"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Delivered {
		t.Errorf("expected delivered=true from the pre-append snapshot")
	}
	if got := bob.named(domain.EventMessageNew); len(got) != 0 {
		t.Errorf("nothing should be forwarded to a recipient that left, got %d", len(got))
	}
	sent := alice.named(domain.EventMessageSent)
	if len(sent) != 1 || !sent[0].Payload.(domain.MessageSentPayload).Delivered {
		t.Fatalf("expected message:sent{delivered:true}, got %+v", sent)
	}

	history, _ := store.Conversation(context.Background(), "alice", "bob")
	if len(history) != 1 || !history[0].Delivered {
		t.Fatalf("history should keep delivered=true, got %+v", history)
	}
}

func TestMessageRouter_Send_ClientIDReplay(t *testing.T) {
	store := newStubMessageStore()
	dedup := newStubDedup()
	router, reg := newRouter(store, dedup)

	alice := newConn("c-alice", "alice")
	bob := newConn("c-bob", "bob")
	reg.Register("alice", alice)
	reg.Register("bob", bob)

	in := ports.SendInput{To: "bob", Text: "once", ClientID: "tmp-1"}
	first, err := router.Send(context.Background(), alice, in)
	if err != nil {
		t.Fatalf("first send: %v", err)
	}
	second, err := router.Send(context.Background(), alice, in)
	if err != nil {
		t.Fatalf("second send: %v", err)
	}

	if !second.Replayed || second.ID != first.ID || second.Delivered != first.Delivered {
		t.Fatalf("expected replay of %+v, got %+v", first, second)
	}
	if store.count() != 1 {
		t.Errorf("expected one stored message, got %d", store.count())
	}
	if len(bob.named(domain.EventMessageNew)) != 1 {
		t.Errorf("recipient must be notified once")
	}
	if len(alice.named(domain.EventMessageSent)) != 2 {
		t.Errorf("each send attempt is acknowledged")
	}
}

func TestMessageRouter_Send_DedupFailureSendsAnyway(t *testing.T) {
	store := newStubMessageStore()
	dedup := newStubDedup()
	dedup.lookupErr = errors.New("redis down")
	dedup.rememberErr = errors.New("redis down")
	router, reg := newRouter(store, dedup)

	alice := newConn("c-alice", "alice")
	reg.Register("alice", alice)

	res, err := router.Send(context.Background(), alice, ports.SendInput{To: "bob", Text: "hi", ClientID: "tmp-1"})
	if err != nil {
		t.Fatalf("expected send to proceed, got %v", err)
	}
	if res.Replayed || store.count() != 1 {
		t.Fatalf("expected a fresh append, got %+v (stored %d)", res, store.count())
	}
}

func TestMessageRouter_Send_PreservesOriginalText(t *testing.T) {
	store := newStubMessageStore()
	router, _ := newRouter(store, nil)

	res, _ := router.Send(context.Background(), newConn("c-alice", "alice"), ports.SendInput{To: "bob", Text: "  padded  "})
	if got := store.get(res.ID).Text; got != "  padded  " {
		t.Fatalf("text should be stored verbatim, got %q", got)
	}
}
