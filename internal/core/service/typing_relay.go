package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/directchat/chat-server/internal/core/domain"
	"github.com/directchat/chat-server/internal/core/ports"
	"github.com/directchat/chat-server/internal/core/session"
	"github.com/directchat/chat-server/internal/pkg/metrics"
)

type typingRelay struct {
	registry *session.Registry
	log      zerolog.Logger
}

func NewTypingRelay(registry *session.Registry, log zerolog.Logger) ports.TypingRelay {
	return &typingRelay{registry: registry, log: log}
}

// Relay forwards a typing signal to a live recipient and drops it otherwise.
func (t *typingRelay) Relay(_ context.Context, from ports.Conn, to string, kind domain.TypingKind) error {
	if to == "" {
		return fmt.Errorf("typing %s: %w: missing recipient", kind, domain.ErrMalformedPayload)
	}

	conn := t.registry.Lookup(to)
	if conn == nil {
		metrics.TypingSignalsTotal.WithLabelValues("dropped").Inc()
		return nil
	}

	ev := domain.Event{
		Name:    kind.EventName(),
		Payload: domain.TypingPayload{From: from.Identity()},
	}
	if err := conn.Send(ev); err != nil {
		metrics.TypingSignalsTotal.WithLabelValues("dropped").Inc()
		t.log.Debug().Err(err).Str("to", to).Msg("typing signal dropped")
		return nil
	}

	metrics.TypingSignalsTotal.WithLabelValues("relayed").Inc()
	return nil
}
