package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/directchat/chat-server/internal/core/domain"
	"github.com/directchat/chat-server/internal/core/ports"
	"github.com/directchat/chat-server/internal/core/session"
	"github.com/directchat/chat-server/internal/pkg/metrics"
)

// SendDedup abstracts the idempotency store (Redis) for client resends.
type SendDedup interface {
	Lookup(ctx context.Context, sender, clientID string) (id string, delivered bool, found bool, err error)
	Remember(ctx context.Context, sender, clientID, id string, delivered bool) error
}

type messageRouter struct {
	registry *session.Registry
	store    ports.MessageStore
	dedup    SendDedup
	log      zerolog.Logger
}

// NewMessageRouter returns a MessageRouter. dedup may be nil, in which case
// client ids are ignored.
func NewMessageRouter(
	registry *session.Registry,
	store ports.MessageStore,
	dedup SendDedup,
	log zerolog.Logger,
) ports.MessageRouter {
	return &messageRouter{
		registry: registry,
		store:    store,
		dedup:    dedup,
		log:      log,
	}
}

// Send persists a message, forwards it to the recipient when live, and
// acknowledges the sender.
func (r *messageRouter) Send(ctx context.Context, sender ports.Conn, in ports.SendInput) (*ports.SendResult, error) {
	from := sender.Identity()

	// 1. Blank text is dropped without a reply.
	if strings.TrimSpace(in.Text) == "" {
		r.log.Debug().Str("username", from).Str("to", in.To).Msg("blank message dropped")
		return nil, nil
	}
	if in.To == "" {
		return nil, fmt.Errorf("send message: %w: missing recipient", domain.ErrMalformedPayload)
	}

	// 2. Idempotent resend: re-ack without a second append.
	if res := r.replay(ctx, from, in.ClientID); res != nil {
		r.ack(sender, res)
		return res, nil
	}

	// 3. Snapshot delivery state and persist.
	delivered := r.registry.IsOnline(in.To)
	msg, err := r.store.Append(ctx, &domain.Message{
		From:      from,
		To:        in.To,
		Text:      in.Text,
		Delivered: delivered,
	})
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("append").Inc()
		return nil, fmt.Errorf("send message: %w: %w", domain.ErrStoreUnavailable, err)
	}
	metrics.MessagesSentTotal.WithLabelValues(strconv.FormatBool(delivered)).Inc()

	if in.ClientID != "" && r.dedup != nil {
		if err := r.dedup.Remember(ctx, from, in.ClientID, msg.ID, delivered); err != nil {
			r.log.Warn().Err(err).Str("username", from).Str("client_id", in.ClientID).Msg("failed to set dedup key")
		}
	}

	// 4. Forward to the recipient. The recipient may have left since the
	// snapshot; the message stays in history either way.
	if delivered {
		r.forward(msg)
	}

	// 5. Acknowledge regardless of recipient presence.
	res := &ports.SendResult{ID: msg.ID, Delivered: delivered}
	r.ack(sender, res)

	r.log.Debug().
		Str("username", from).
		Str("to", in.To).
		Str("message_id", msg.ID).
		Bool("delivered", delivered).
		Msg("message routed")

	return res, nil
}

func (r *messageRouter) replay(ctx context.Context, from, clientID string) *ports.SendResult {
	if clientID == "" || r.dedup == nil {
		return nil
	}
	id, delivered, found, err := r.dedup.Lookup(ctx, from, clientID)
	if err != nil {
		r.log.Warn().Err(err).Str("username", from).Str("client_id", clientID).Msg("dedup check failed, sending anyway")
		return nil
	}
	if !found {
		return nil
	}
	r.log.Debug().Str("username", from).Str("client_id", clientID).Str("message_id", id).Msg("duplicate send replayed")
	return &ports.SendResult{ID: id, Delivered: delivered, Replayed: true}
}

func (r *messageRouter) forward(msg *domain.Message) {
	ev := domain.Event{
		Name: domain.EventMessageNew,
		Payload: domain.NewMessagePayload{
			ID:   msg.ID,
			From: msg.From,
			Text: msg.Text,
			TS:   msg.CreatedAt,
		},
	}

	conn := r.registry.Lookup(msg.To)
	if conn == nil {
		metrics.EventsDroppedTotal.WithLabelValues(ev.Name).Inc()
		r.log.Debug().Str("to", msg.To).Str("message_id", msg.ID).Msg("recipient left before forward")
		return
	}
	if err := conn.Send(ev); err != nil {
		metrics.EventsDroppedTotal.WithLabelValues(ev.Name).Inc()
		r.log.Warn().Err(err).Str("to", msg.To).Str("message_id", msg.ID).Msg("forward dropped")
	}
}

func (r *messageRouter) ack(sender ports.Conn, res *ports.SendResult) {
	ev := domain.Event{
		Name:    domain.EventMessageSent,
		Payload: domain.MessageSentPayload{ID: res.ID, Delivered: res.Delivered},
	}
	if err := sender.Send(ev); err != nil {
		metrics.EventsDroppedTotal.WithLabelValues(ev.Name).Inc()
		r.log.Debug().Err(err).Str("username", sender.Identity()).Str("message_id", res.ID).Msg("ack dropped")
	}
}
