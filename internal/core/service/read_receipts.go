package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/directchat/chat-server/internal/core/domain"
	"github.com/directchat/chat-server/internal/core/ports"
	"github.com/directchat/chat-server/internal/core/session"
	"github.com/directchat/chat-server/internal/pkg/metrics"
)

type receiptPropagator struct {
	registry *session.Registry
	store    ports.MessageStore
	log      zerolog.Logger
}

func NewReceiptPropagator(registry *session.Registry, store ports.MessageStore, log zerolog.Logger) ports.ReceiptPropagator {
	return &receiptPropagator{registry: registry, store: store, log: log}
}

// MarkRead flags ids as read and tells the original sender when live.
// Any connected identity may mark any id; ownership is not checked.
func (p *receiptPropagator) MarkRead(ctx context.Context, reader ports.Conn, in ports.ReadInput) error {
	if len(in.IDs) == 0 {
		return nil
	}
	if in.From == "" {
		return fmt.Errorf("mark read: %w: missing sender", domain.ErrMalformedPayload)
	}

	if err := p.store.MarkRead(ctx, in.IDs); err != nil {
		if errors.Is(err, domain.ErrMalformedPayload) {
			return fmt.Errorf("mark read: %w", err)
		}
		metrics.StoreErrorsTotal.WithLabelValues("mark_read").Inc()
		return fmt.Errorf("mark read: %w: %w", domain.ErrStoreUnavailable, err)
	}

	notified := false
	if conn := p.registry.Lookup(in.From); conn != nil {
		ev := domain.Event{
			Name:    domain.EventMessageRead,
			Payload: domain.MessageReadPayload{IDs: in.IDs},
		}
		if err := conn.Send(ev); err != nil {
			metrics.EventsDroppedTotal.WithLabelValues(ev.Name).Inc()
			p.log.Debug().Err(err).Str("to", in.From).Msg("read receipt dropped")
		} else {
			notified = true
		}
	}
	metrics.ReadReceiptsTotal.WithLabelValues(strconv.FormatBool(notified)).Inc()

	p.log.Debug().
		Str("username", reader.Identity()).
		Str("from", in.From).
		Int("count", len(in.IDs)).
		Bool("notified", notified).
		Msg("messages marked read")
	return nil
}
